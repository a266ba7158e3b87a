package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/fetchr/internal/canonical"
	"github.com/roach88/fetchr/internal/entity"
	"github.com/roach88/fetchr/internal/remote"
	"github.com/roach88/fetchr/internal/spec"
)

// Retriever resolves a batch of specs. It must return results under the
// same keys as specs, or an error.
type Retriever interface {
	Retrieve(ctx context.Context, specs spec.Map, opts CacheOptions) (Results, error)
}

// RetrieverFunc adapts a function to Retriever.
type RetrieverFunc func(ctx context.Context, specs spec.Map, opts CacheOptions) (Results, error)

func (fn RetrieverFunc) Retrieve(ctx context.Context, specs spec.Map, opts CacheOptions) (Results, error) {
	return fn(ctx, specs, opts)
}

// cacheRetriever serves specs from the stores when allowed and usable, and
// from the remote source otherwise. Keys run concurrently; the first
// failure cancels the rest.
type cacheRetriever struct {
	f *Fetcher
}

func (r *cacheRetriever) Retrieve(ctx context.Context, specs spec.Map, opts CacheOptions) (Results, error) {
	var (
		mu      sync.Mutex
		results = make(Results, len(specs))
	)
	g, gctx := errgroup.WithContext(ctx)
	for key, s := range specs {
		g.Go(func() error {
			e, err := r.retrieveOne(gctx, key, s, opts)
			if err != nil {
				return err
			}
			mu.Lock()
			results[key] = e
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *cacheRetriever) retrieveOne(ctx context.Context, key string, s spec.Spec, opts CacheOptions) (entity.Entity, error) {
	if opts.ReadFromCache {
		cached, err := r.fromCache(ctx, s)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			r.f.emit(Event{Name: EventCacheHit, Key: key, Spec: s, Entity: cached})
			r.maybeCheckFresh(ctx, key, s, cached)
			return cached, nil
		}
		r.f.emit(Event{Name: EventCacheMiss, Key: key, Spec: s})
	}
	e, err := r.fromSource(ctx, s)
	if err != nil {
		return nil, err
	}
	// Data straight from the source counts as a freshness check.
	if r.f.freshness != nil {
		_ = r.f.freshness.DidCheckFresh(s)
	}
	return e, nil
}

// fromCache returns a usable cached entity, or nil when a fetch is needed.
func (r *cacheRetriever) fromCache(ctx context.Context, s spec.Spec) (entity.Entity, error) {
	f := r.f
	switch s.Kind {
	case spec.KindModel:
		t, err := f.registry.ModelConstructor(s.Name)
		if err != nil {
			return nil, err
		}
		id, ok := s.Params[t.Def.IDAttr()]
		if !ok || id == nil {
			return nil, nil
		}
		attrs, err := f.models.Get(ctx, s.Name, id, true)
		if err != nil {
			return nil, err
		}
		if NeedsFetch(attrs, s) {
			return nil, nil
		}
		m, err := t.New(attrs)
		if err != nil {
			return nil, err
		}
		m.SetApp(f.app)
		return m, nil

	case spec.KindCollection:
		t, err := f.registry.CollectionConstructor(s.Name)
		if err != nil {
			return nil, err
		}
		rec, err := f.collections.Get(ctx, s.Name, s.ParamsOrEmpty())
		if err != nil || rec == nil {
			return nil, err
		}
		bags, err := f.models.GetMany(ctx, t.Member.Def.Name, rec.IDs, true)
		if err != nil {
			return nil, err
		}
		members := make([]entity.Model, len(bags))
		for i, attrs := range bags {
			// Members must be complete for the cached collection to be usable.
			if attrs == nil || IsMissingKeys(attrs, s.EnsureKeys...) {
				return nil, nil
			}
			if members[i], err = t.Member.New(attrs); err != nil {
				return nil, err
			}
			members[i].SetApp(f.app)
		}
		metaSpec := s
		metaSpec.EnsureKeys = nil
		if NeedsFetch(rec.Meta, metaSpec) {
			return nil, nil
		}
		c, err := t.New(members, rec.Params, rec.Meta)
		if err != nil {
			return nil, err
		}
		c.SetApp(f.app)
		return c, nil
	}
	return nil, s.Validate()
}

// fromSource fetches s remotely and parses the response into a new entity.
// Source errors are returned unchanged.
func (r *cacheRetriever) fromSource(ctx context.Context, s spec.Spec) (entity.Entity, error) {
	f := r.f
	if f.source == nil {
		return nil, ErrNoSource
	}
	e, err := f.ModelOrCollectionForSpec(s)
	if err != nil {
		return nil, err
	}

	req := remote.Request{Kind: s.Kind, Name: s.Name, Params: s.ParamsOrEmpty()}
	switch v := e.(type) {
	case entity.Model:
		req.URL = v.Def().URL
	case entity.Collection:
		req.URL = v.Def().URL
	}

	raw, err := f.source.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	switch v := e.(type) {
	case entity.Model:
		attrs, err := v.Parse(raw)
		if err != nil {
			return nil, err
		}
		v.Set(attrs)
	case entity.Collection:
		if err := r.populate(v, raw); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (r *cacheRetriever) populate(c entity.Collection, raw any) error {
	bags, meta, err := c.Parse(raw)
	if err != nil {
		return err
	}
	t, err := r.f.registry.CollectionConstructor(c.TypeName())
	if err != nil {
		return err
	}
	members := make([]entity.Model, len(bags))
	for i, attrs := range bags {
		if members[i], err = t.Member.New(attrs); err != nil {
			return err
		}
		members[i].SetApp(r.f.app)
	}
	c.Reset(members...)
	c.SetMeta(meta)
	return nil
}

// maybeCheckFresh revalidates a cache hit in the background at most once
// per tracker rate. Changed data is written to the stores and announced
// with a refresh event.
func (r *cacheRetriever) maybeCheckFresh(ctx context.Context, key string, s spec.Spec, cached entity.Entity) {
	f := r.f
	if f.freshness == nil || f.source == nil || !f.freshness.ShouldCheckFresh(s) {
		return
	}
	if err := f.freshness.DidCheckFresh(s); err != nil {
		return
	}

	bg := context.WithoutCancel(ctx)
	f.background.Add(1)
	go func() {
		defer f.background.Done()

		fresh, err := r.fromSource(bg, s)
		if err != nil {
			f.logger.Warn("freshness check failed", "key", key, "name", s.Name, "error", err)
			return
		}
		changed, err := differs(cached, fresh)
		if err != nil {
			f.logger.Warn("freshness compare failed", "key", key, "error", err)
			return
		}
		if !changed {
			f.logger.Debug("fresh data unchanged", "key", key)
			return
		}
		waitSettled(bg)
		if err := f.StoreResults(bg, Results{key: fresh}); err != nil {
			f.logger.Error("store refreshed data failed", "key", key, "error", err)
			return
		}
		f.emit(Event{Name: EventRefresh, Key: key, Spec: s, Entity: fresh})
	}()
}

// WaitBackground blocks until every background freshness check started so
// far has finished.
func (f *Fetcher) WaitBackground() {
	f.background.Wait()
}

func differs(a, b entity.Entity) (bool, error) {
	ja, err := serialize(a)
	if err != nil {
		return false, err
	}
	jb, err := serialize(b)
	if err != nil {
		return false, err
	}
	return !bytes.Equal(ja, jb), nil
}

func serialize(e entity.Entity) ([]byte, error) {
	switch v := e.(type) {
	case entity.Model:
		return canonical.Marshal(map[string]any(v.ToJSON()))
	case entity.Collection:
		items := v.ToJSON()
		list := make([]any, len(items))
		for i, item := range items {
			list[i] = map[string]any(item)
		}
		return canonical.Marshal(map[string]any{"models": list, "meta": map[string]any(orEmpty(v.Meta()))})
	default:
		return nil, fmt.Errorf("serialize: unsupported entity %T", e)
	}
}

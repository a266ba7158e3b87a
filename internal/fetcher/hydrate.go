package fetcher

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/fetchr/internal/canonical"
	"github.com/roach88/fetchr/internal/entity"
	"github.com/roach88/fetchr/internal/registry"
	"github.com/roach88/fetchr/internal/spec"
	"github.com/roach88/fetchr/internal/store"
)

// HydrateOption configures Hydrate.
type HydrateOption func(*hydrateSettings)

type hydrateSettings struct {
	app    any
	hasApp bool
}

// WithApp attaches app to every hydrated entity and member.
func WithApp(app any) HydrateOption {
	return func(s *hydrateSettings) {
		s.app = app
		s.hasApp = true
	}
}

// Hydrate rebuilds live entities from summaries using only the stores.
//
// Every collection record is looked up before any work starts; a missing
// one returns *CollectionNotFoundError at once. The remaining work runs one
// task per key. The first failing key cancels the rest and is returned as
// *HydrationError with no results. Result keys mirror the input keys.
func (f *Fetcher) Hydrate(ctx context.Context, summaries map[string]spec.Summary, opts ...HydrateOption) (Results, error) {
	var settings hydrateSettings
	for _, opt := range opts {
		opt(&settings)
	}

	records := make(map[string]*store.CollectionRecord)
	for _, key := range canonical.SortedKeys(summaries) {
		s := summaries[key]
		switch s.Kind {
		case spec.KindModel:
		case spec.KindCollection:
			rec, err := f.collections.Get(ctx, s.Name, s.Params)
			if err != nil {
				return nil, &HydrationError{Key: key, Err: err}
			}
			if rec == nil {
				return nil, &CollectionNotFoundError{Type: s.Name, Params: describeParams(s.Params)}
			}
			records[key] = rec
		default:
			return nil, &HydrationError{Key: key, Err: &spec.InvalidSpecError{Key: key, Message: "summary has no kind"}}
		}
	}

	var (
		mu      sync.Mutex
		results = make(Results, len(summaries))
	)
	g, gctx := errgroup.WithContext(ctx)
	for key, s := range summaries {
		g.Go(func() error {
			var (
				e   entity.Entity
				err error
			)
			if s.Kind == spec.KindModel {
				e, err = f.hydrateModel(gctx, s)
			} else {
				e, err = f.hydrateCollection(gctx, s, records[key])
			}
			if err != nil {
				return &HydrationError{Key: key, Err: err}
			}
			if settings.hasApp {
				attachApp(e, settings.app)
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

	f.logger.Debug("hydrated", "keys", len(results))
	return results, nil
}

func (f *Fetcher) hydrateModel(ctx context.Context, s spec.Summary) (entity.Model, error) {
	t, err := f.registry.ModelConstructor(s.Name)
	if err != nil {
		return nil, err
	}
	attrs, err := f.models.Get(ctx, s.Name, s.ID, true)
	if err != nil {
		return nil, err
	}
	return newMember(t, s.ID, attrs)
}

func (f *Fetcher) hydrateCollection(ctx context.Context, s spec.Summary, rec *store.CollectionRecord) (entity.Collection, error) {
	t, err := f.registry.CollectionConstructor(s.Name)
	if err != nil {
		return nil, err
	}
	bags, err := f.models.GetMany(ctx, t.Member.Def.Name, rec.IDs, true)
	if err != nil {
		return nil, err
	}
	members := make([]entity.Model, len(bags))
	for i, attrs := range bags {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if members[i], err = newMember(t.Member, rec.IDs[i], attrs); err != nil {
			return nil, err
		}
	}
	return t.New(members, rec.Params, rec.Meta)
}

// newMember builds a model from its stored bag. A missing slot yields a
// model holding only its id.
func newMember(t registry.ModelType, id any, attrs entity.Attributes) (entity.Model, error) {
	if attrs == nil {
		attrs = entity.Attributes{t.Def.IDAttr(): id}
	}
	return t.New(attrs)
}

func attachApp(e entity.Entity, app any) {
	e.SetApp(app)
	if c, ok := e.(entity.Collection); ok {
		for _, m := range c.Models() {
			m.SetApp(app)
		}
	}
}

// describeParams renders params for error messages: canonical JSON, or Go
// syntax when the bag cannot be encoded.
func describeParams(params entity.Attributes) string {
	enc, err := canonical.MarshalString(map[string]any(orEmpty(params)))
	if err != nil {
		return fmt.Sprint(map[string]any(params))
	}
	return enc
}

func orEmpty(a entity.Attributes) entity.Attributes {
	if a == nil {
		return entity.Attributes{}
	}
	return a
}

package fetcher

import (
	"context"
	"time"

	"github.com/roach88/fetchr/internal/spec"
)

// CacheOptions are the resolved cache flags handed to the retriever.
type CacheOptions struct {
	ReadFromCache bool
	WriteToCache  bool
}

// FetchOption overrides a cache flag for one fetch.
type FetchOption func(*fetchSettings)

type fetchSettings struct {
	readFromCache *bool
	writeToCache  *bool
}

// WithReadFromCache overrides the environment default for reading cached data.
func WithReadFromCache(b bool) FetchOption {
	return func(s *fetchSettings) { s.readFromCache = &b }
}

// WithWriteToCache overrides the environment default for storing results.
func WithWriteToCache(b bool) FetchOption {
	return func(s *fetchSettings) { s.writeToCache = &b }
}

// DoneFunc receives the settlement of an asynchronous fetch.
type DoneFunc func(results Results, err error)

// CacheOptionsFor resolves the cache flags: false/false on the server and
// true/true on the client, unless overridden.
func (f *Fetcher) CacheOptionsFor(opts ...FetchOption) CacheOptions {
	var s fetchSettings
	for _, opt := range opts {
		opt(&s)
	}
	resolved := CacheOptions{ReadFromCache: f.client, WriteToCache: f.client}
	if s.readFromCache != nil {
		resolved.ReadFromCache = *s.readFromCache
	}
	if s.writeToCache != nil {
		resolved.WriteToCache = *s.writeToCache
	}
	return resolved
}

// FetchAsync starts a fetch and returns immediately. done is called exactly
// once from another goroutine when the fetch settles.
//
// Before returning, FetchAsync validates the specs against the registry,
// increments the pending counter and emits fetch:start. A validation failure
// is returned directly; in that case nothing is emitted and done is never
// called.
//
// On settlement, in order: the pending counter is decremented, fetch:end is
// emitted with the specs and the outcome, results are stored if
// WriteToCache is set and the retriever succeeded, then done is called.
// Retriever errors reach done verbatim, together with whatever results
// the retriever returned alongside them. No timeout is imposed; a retriever
// that never returns leaves the fetch pending.
func (f *Fetcher) FetchAsync(ctx context.Context, specs spec.Map, done DoneFunc, opts ...FetchOption) error {
	if err := f.validate(specs); err != nil {
		return err
	}
	cacheOpts := f.CacheOptionsFor(opts...)

	f.pending.Add(1)
	fetchID := f.tokens.Generate()
	started := f.now()

	f.logger.Debug("fetch start",
		"fetch_id", fetchID,
		"keys", specs.Keys(),
		"read_from_cache", cacheOpts.ReadFromCache,
		"write_to_cache", cacheOpts.WriteToCache,
	)
	f.emit(Event{Name: EventFetchStart, FetchID: fetchID, Time: started, Specs: specs})

	settled := make(chan struct{})
	ctx = context.WithValue(ctx, settledKey{}, (<-chan struct{})(settled))

	go func() {
		results, err := f.retriever.Retrieve(ctx, specs, cacheOpts)

		f.pending.Add(-1)
		ended := f.now()
		f.logger.Debug("fetch end",
			"fetch_id", fetchID,
			"error", err,
			"duration", ended.Sub(started).Round(time.Microsecond),
		)
		f.emit(Event{Name: EventFetchEnd, FetchID: fetchID, Time: ended, Specs: specs, Err: err, Results: results})

		if cacheOpts.WriteToCache && err == nil {
			if serr := f.StoreResults(ctx, results); serr != nil {
				f.logger.Error("store results failed", "fetch_id", fetchID, "error", serr)
			}
		}
		close(settled)

		if done != nil {
			done(results, err)
		}
	}()
	return nil
}

// Fetch is the blocking form of FetchAsync.
func (f *Fetcher) Fetch(ctx context.Context, specs spec.Map, opts ...FetchOption) (Results, error) {
	type outcome struct {
		results Results
		err     error
	}
	ch := make(chan outcome, 1)
	if err := f.FetchAsync(ctx, specs, func(r Results, err error) {
		ch <- outcome{r, err}
	}, opts...); err != nil {
		return nil, err
	}
	out := <-ch
	return out.results, out.err
}

// settledKey carries a channel closed once the fetch's own store write is
// done. A background refresh writes only after it, so the refreshed data
// lands on top of the cached entity the fetch wrote back.
type settledKey struct{}

func waitSettled(ctx context.Context) {
	if ch, ok := ctx.Value(settledKey{}).(<-chan struct{}); ok {
		<-ch
	}
}

// validate checks every spec's shape and that its type is registered.
func (f *Fetcher) validate(specs spec.Map) error {
	if err := specs.Validate(); err != nil {
		return err
	}
	for _, key := range specs.Keys() {
		s := specs[key]
		var err error
		if s.Kind == spec.KindModel {
			_, err = f.registry.ModelConstructor(s.Name)
		} else {
			_, err = f.registry.CollectionConstructor(s.Name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

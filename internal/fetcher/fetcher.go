// Package fetcher resolves fetch specs to live models and collections.
//
// A Fetcher is built once per application instance around an explicit
// registry and pair of stores. Fetch delegates to a Retriever (by default
// a cache-aware one backed by a remote.Source), tracks in-flight work in a
// pending counter, emits lifecycle events, and optionally writes results
// back to the stores. Hydrate turns summaries back into live entities
// using only the stores.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/fetchr/internal/entity"
	"github.com/roach88/fetchr/internal/freshness"
	"github.com/roach88/fetchr/internal/registry"
	"github.com/roach88/fetchr/internal/remote"
	"github.com/roach88/fetchr/internal/spec"
	"github.com/roach88/fetchr/internal/store"
)

// AppKey is the options key holding the owning application reference.
const AppKey = "app"

// Results maps spec keys to live entities.
type Results map[string]entity.Entity

// Fetcher is the orchestrator. It is safe for concurrent use.
type Fetcher struct {
	app         any
	registry    *registry.Registry
	models      *store.ModelStore
	collections *store.CollectionStore

	retriever  Retriever
	source     remote.Source
	client     bool
	freshness  *freshness.Tracker
	ownTracker bool
	clock      freshness.Clock
	logger     *slog.Logger
	tokens     TokenGenerator

	pending atomic.Int64

	mu           sync.RWMutex
	listeners    map[string][]listenerEntry
	nextListener int

	// background tracks freshness re-fetches.
	background sync.WaitGroup
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRetriever replaces the default cache-aware retriever.
func WithRetriever(r Retriever) Option {
	return func(f *Fetcher) {
		f.retriever = r
	}
}

// WithSource sets the remote source used by the default retriever.
func WithSource(s remote.Source) Option {
	return func(f *Fetcher) {
		f.source = s
	}
}

// WithClient sets the execution-environment flag. On the client, fetches
// read from and write to the cache unless told otherwise.
func WithClient(client bool) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithFreshness sets the freshness tracker. A nil tracker disables
// background freshness checks.
func WithFreshness(t *freshness.Tracker) Option {
	return func(f *Fetcher) {
		f.freshness = t
		f.ownTracker = false
	}
}

// WithClock sets the time source used to stamp events. The default
// tracker follows the same clock.
func WithClock(c freshness.Clock) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.clock = c
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithTokenGenerator sets the fetch id generator. Default: UUIDv7Generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(f *Fetcher) {
		if g != nil {
			f.tokens = g
		}
	}
}

// New creates a Fetcher for app.
func New(app any, reg *registry.Registry, models *store.ModelStore, collections *store.CollectionStore, opts ...Option) *Fetcher {
	f := &Fetcher{
		app:         app,
		registry:    reg,
		models:      models,
		collections: collections,
		ownTracker:  true,
		clock:       freshness.SystemClock{},
		logger:      slog.Default(),
		tokens:      UUIDv7Generator{},
		listeners:   make(map[string][]listenerEntry),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.ownTracker {
		f.freshness = freshness.New(freshness.WithClock(f.clock))
	}
	if f.retriever == nil {
		f.retriever = &cacheRetriever{f: f}
	}
	return f
}

// App returns the owning application reference.
func (f *Fetcher) App() any { return f.app }

// Registry returns the type registry.
func (f *Fetcher) Registry() *registry.Registry { return f.registry }

// IsClient reports the execution-environment flag.
func (f *Fetcher) IsClient() bool { return f.client }

// Pending returns the number of fetches started but not yet settled.
func (f *Fetcher) Pending() int64 { return f.pending.Load() }

// BuildOptions merges params, then additional, then the app reference.
// Later sources win, so the app is always present and never overridden.
// Nil maps are treated as empty.
func (f *Fetcher) BuildOptions(additional, params map[string]any) map[string]any {
	out := make(map[string]any, len(additional)+len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	for k, v := range additional {
		out[k] = v
	}
	out[AppKey] = f.app
	return out
}

// ModelOrCollectionForSpec builds an empty instance of the spec's type with
// the app attached. Collections carry the spec's params.
func (f *Fetcher) ModelOrCollectionForSpec(s spec.Spec) (entity.Entity, error) {
	var (
		e   entity.Entity
		err error
	)
	switch s.Kind {
	case spec.KindModel:
		e, err = f.registry.NewModel(s.Name, nil)
	case spec.KindCollection:
		e, err = f.registry.NewCollection(s.Name, nil, s.ParamsOrEmpty(), nil)
	default:
		return nil, s.Validate()
	}
	if err != nil {
		return nil, err
	}
	e.SetApp(f.app)
	return e, nil
}

// IsMissingKeys reports whether any of keys is absent from data. A key
// mapped to a zero value is present. No keys means nothing is missing.
func IsMissingKeys(data entity.Attributes, keys ...string) bool {
	for _, k := range keys {
		if !data.Has(k) {
			return true
		}
	}
	return false
}

// NeedsFetch decides whether cached data is unusable for s. First match
// wins:
//
//  1. no data
//  2. an ensureKeys entry is missing
//  3. a fixed policy: its value
//  4. a function policy: its result (called exactly once)
//  5. otherwise false
func NeedsFetch(data entity.Attributes, s spec.Spec) bool {
	if data == nil {
		return true
	}
	if len(s.EnsureKeys) > 0 && IsMissingKeys(data, s.EnsureKeys...) {
		return true
	}
	if s.NeedsFetch.IsSet() {
		return s.NeedsFetch.Decide(data)
	}
	return false
}

// StoreResults writes every model to the model store and every collection
// to the collection store, with its members to the model store.
func (f *Fetcher) StoreResults(ctx context.Context, results Results) error {
	for _, key := range sortedResultKeys(results) {
		switch e := results[key].(type) {
		case entity.Model:
			if err := f.models.Set(ctx, e); err != nil {
				return fmt.Errorf("store %s: %w", key, err)
			}
		case entity.Collection:
			if err := f.storeCollection(ctx, e); err != nil {
				return fmt.Errorf("store %s: %w", key, err)
			}
		case nil:
			continue
		default:
			return fmt.Errorf("store %s: unsupported entity %T", key, e)
		}
	}
	return nil
}

func (f *Fetcher) storeCollection(ctx context.Context, c entity.Collection) error {
	for _, m := range c.Models() {
		if err := f.models.Set(ctx, m); err != nil {
			return err
		}
	}
	return f.collections.Set(ctx, c)
}

func (f *Fetcher) now() time.Time {
	return f.clock.Now()
}

package fetcher

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/fetchr/internal/entity"
	"github.com/roach88/fetchr/internal/freshness"
	"github.com/roach88/fetchr/internal/registry"
	"github.com/roach88/fetchr/internal/store"
	"github.com/roach88/fetchr/internal/testutil"
)

var (
	listingDef       = entity.ModelDef{Name: "Listing", JSONKey: "listing", URL: "/listings/:id"}
	customListingDef = entity.ModelDef{Name: "CustomListing", IDAttribute: "login"}
	listingsDef      = entity.CollectionDef{Name: "Listings", Model: "Listing", JSONKey: "listings", URL: "/listings"}
)

type fakeApp struct{ name string }

type harness struct {
	fetcher *Fetcher
	source  *testutil.FakeSource
	clock   *testutil.ManualClock
	tracker *freshness.Tracker
	models  *store.ModelStore
	colls   *store.CollectionStore
	app     *fakeApp
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	require.NoError(t, r.Register(listingDef, nil))
	require.NoError(t, r.Register(customListingDef, nil))
	require.NoError(t, r.RegisterCollection(listingsDef, nil))
	return r
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	reg := newTestRegistry(t)
	backend := store.NewMemoryBackend()
	h := &harness{
		source: testutil.NewFakeSource(),
		clock:  testutil.NewManualClock(time.Time{}),
		models: store.NewModelStore(backend, reg),
		colls:  store.NewCollectionStore(backend),
		app:    &fakeApp{name: "test"},
	}
	h.tracker = freshness.New(freshness.WithClock(h.clock))

	base := []Option{
		WithSource(h.source),
		WithFreshness(h.tracker),
		WithClock(h.clock),
		WithTokenGenerator(testutil.NewSequenceGenerator("")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	h.fetcher = New(h.app, reg, h.models, h.colls, append(base, opts...)...)
	return h
}

func listing(attrs entity.Attributes) *entity.BaseModel {
	return entity.NewModel(listingDef, attrs)
}

func listings(params, meta entity.Attributes, ids ...int) *entity.BaseCollection {
	members := make([]entity.Model, len(ids))
	for i, id := range ids {
		members[i] = listing(entity.Attributes{"id": id})
	}
	return entity.NewCollection(listingsDef, members, params, meta)
}

// recorder collects events in emission order.
type recorder struct {
	ch chan Event
}

func record(f *Fetcher, names ...string) *recorder {
	r := &recorder{ch: make(chan Event, 64)}
	for _, n := range names {
		f.On(n, func(ev Event) { r.ch <- ev })
	}
	return r
}

func (r *recorder) next(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-r.ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	select {
	case ev := <-r.ch:
		t.Fatalf("unexpected event %s", ev.Name)
	default:
	}
}

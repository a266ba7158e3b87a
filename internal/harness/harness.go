package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/roach88/fetchr/internal/canonical"
	"github.com/roach88/fetchr/internal/entity"
	"github.com/roach88/fetchr/internal/fetcher"
	"github.com/roach88/fetchr/internal/freshness"
	"github.com/roach88/fetchr/internal/registry"
	"github.com/roach88/fetchr/internal/remote"
	"github.com/roach88/fetchr/internal/spec"
	"github.com/roach88/fetchr/internal/store"
	"github.com/roach88/fetchr/internal/testutil"
)

// Harness is the scenario execution engine. It runs steps against a real
// fetcher with a manual clock, sequential fetch ids, and a fake source.
type Harness struct {
	fetcher *fetcher.Fetcher
	source  *testutil.FakeSource
	clock   *testutil.ManualClock

	mu     sync.Mutex
	events []fetcher.Event
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory SQLite database. Step failures
// are recorded in the trace and checked against expectations; only setup
// problems (bad types, store errors) are returned as errors.
func Run(scenario *Scenario) (*Result, error) {
	backend, err := store.OpenSQLite(store.MemoryDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer backend.Close()

	h, err := newHarness(scenario, backend)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}
	return result, nil
}

func newHarness(scenario *Scenario, backend store.Backend) (*Harness, error) {
	defs, err := registry.CompileString(scenario.Types)
	if err != nil {
		return nil, fmt.Errorf("failed to compile types: %w", err)
	}
	reg := registry.New()
	if err := reg.RegisterDefinitions(defs); err != nil {
		return nil, fmt.Errorf("failed to register types: %w", err)
	}

	h := &Harness{
		source: testutil.NewFakeSource(),
		clock:  testutil.NewManualClock(time.Time{}),
	}
	h.load(scenario.Fixtures)

	trackerOpts := []freshness.Option{freshness.WithClock(h.clock)}
	if scenario.CheckedFreshRate != "" {
		rate, _ := time.ParseDuration(scenario.CheckedFreshRate)
		trackerOpts = append(trackerOpts, freshness.WithRate(rate))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.fetcher = fetcher.New(nil, reg,
		store.NewModelStore(backend, reg, store.WithLogger(logger)),
		store.NewCollectionStore(backend, store.WithLogger(logger)),
		fetcher.WithClient(scenario.Environment == "client"),
		fetcher.WithSource(h.source),
		fetcher.WithFreshness(freshness.New(trackerOpts...)),
		fetcher.WithClock(h.clock),
		fetcher.WithTokenGenerator(testutil.NewSequenceGenerator("fetch")),
		fetcher.WithLogger(logger),
	)

	for _, name := range []string{fetcher.EventFetchStart, fetcher.EventCacheHit, fetcher.EventCacheMiss, fetcher.EventRefresh} {
		h.fetcher.On(name, h.record)
	}
	return h, nil
}

// load registers fixtures with the fake source, replacing earlier ones.
func (h *Harness) load(fixtures []Fixture) {
	for _, fx := range fixtures {
		if fx.Status != 0 {
			h.source.Fail(fx.Name(), fx.Params, &remote.StatusError{Code: fx.Status, URL: registry.Underscorize(fx.Name())})
			continue
		}
		h.source.Respond(fx.Name(), fx.Params, fx.Response)
	}
}

func (h *Harness) record(ev fetcher.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func (h *Harness) drain() []fetcher.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.events
	h.events = nil
	return out
}

// executeStep runs one step, appends its trace entry, and checks its
// expectations.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	h.load(step.Fixtures)
	if step.Advance != "" {
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return err
		}
		h.clock.Advance(d)
	}
	h.source.Reset()
	h.drain()

	trace := StepTrace{Step: index}
	var (
		results fetcher.Results
		err     error
	)
	if len(step.Fetch) > 0 {
		trace.Op = "fetch"
		var opts []fetcher.FetchOption
		if step.ReadFromCache != nil {
			opts = append(opts, fetcher.WithReadFromCache(*step.ReadFromCache))
		}
		if step.WriteToCache != nil {
			opts = append(opts, fetcher.WithWriteToCache(*step.WriteToCache))
		}
		results, err = h.fetcher.Fetch(ctx, step.Fetch, opts...)
		h.fetcher.WaitBackground()
	} else {
		trace.Op = "hydrate"
		results, err = h.fetcher.Hydrate(ctx, step.Hydrate)
	}

	for _, ev := range h.drain() {
		switch ev.Name {
		case fetcher.EventFetchStart:
			trace.FetchID = ev.FetchID
		case fetcher.EventCacheHit:
			trace.CacheHits = append(trace.CacheHits, ev.Key)
		case fetcher.EventCacheMiss:
			trace.CacheMisses = append(trace.CacheMisses, ev.Key)
		case fetcher.EventRefresh:
			trace.Refreshed = append(trace.Refreshed, ev.Key)
		}
	}
	slices.Sort(trace.CacheHits)
	slices.Sort(trace.CacheMisses)
	slices.Sort(trace.Refreshed)

	calls, callErr := remoteCalls(h.source.Calls())
	if callErr != nil {
		return callErr
	}
	trace.Remote = calls

	var summaries map[string]spec.Summary
	if err != nil {
		trace.Error = err.Error()
	} else {
		if summaries, err = fetcher.SummarizeAll(results); err != nil {
			return err
		}
		if trace.Results, err = summaryValues(summaries); err != nil {
			return err
		}
	}

	result.Trace = append(result.Trace, trace)
	if step.Expect != nil {
		for _, msg := range checkExpect(index, step.Expect, trace, results, summaries) {
			result.AddError(msg)
		}
	}
	return nil
}

// remoteCalls converts recorded requests to trace entries, sorted by
// type name then canonical params.
func remoteCalls(reqs []remote.Request) ([]RemoteCall, error) {
	type keyed struct {
		key  string
		call RemoteCall
	}
	list := make([]keyed, 0, len(reqs))
	for _, req := range reqs {
		params, err := canonical.Normalize(map[string]any(orEmpty(req.Params)))
		if err != nil {
			return nil, err
		}
		enc, err := canonical.MarshalString(params)
		if err != nil {
			return nil, err
		}
		name := registry.Underscorize(req.Name)
		list = append(list, keyed{key: name + "\x00" + enc, call: RemoteCall{Name: name, Params: params.(map[string]any)}})
	}
	slices.SortFunc(list, func(a, b keyed) int { return strings.Compare(a.key, b.key) })

	out := make([]RemoteCall, len(list))
	for i, k := range list {
		out[i] = k.call
	}
	return out, nil
}

func summaryValues(summaries map[string]spec.Summary) (map[string]any, error) {
	out := make(map[string]any, len(summaries))
	for key, s := range summaries {
		data, err := s.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if out[key], err = canonical.Decode(data); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}
	return out, nil
}

func orEmpty(a entity.Attributes) entity.Attributes {
	if a == nil {
		return entity.Attributes{}
	}
	return a
}

package fetcher

import (
	"time"

	"github.com/roach88/fetchr/internal/entity"
	"github.com/roach88/fetchr/internal/spec"
)

// Event names.
const (
	// EventFetchStart fires synchronously inside Fetch, before the
	// retriever is invoked.
	EventFetchStart = "fetch:start"

	// EventFetchEnd fires exactly once after the retriever settles.
	EventFetchEnd = "fetch:end"

	// EventCacheHit and EventCacheMiss fire per key from the default
	// retriever when reading from cache.
	EventCacheHit  = "cache:hit"
	EventCacheMiss = "cache:miss"

	// EventRefresh fires when a background freshness check found changed
	// data and wrote it to the stores.
	EventRefresh = "refresh"
)

// Event is the payload handed to listeners. Fields not relevant to an
// event name are zero.
type Event struct {
	Name    string
	FetchID string
	Time    time.Time

	// fetch:start, fetch:end
	Specs   spec.Map
	Err     error
	Results Results

	// cache:hit, cache:miss, refresh
	Key    string
	Spec   spec.Spec
	Entity entity.Entity
}

// Listener receives events. Listeners run synchronously at the emission
// point and must not block.
type Listener func(Event)

type listenerEntry struct {
	id int
	fn Listener
}

// On registers l for events named name and returns a function that
// removes it.
func (f *Fetcher) On(name string, l Listener) (off func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextListener++
	id := f.nextListener
	f.listeners[name] = append(f.listeners[name], listenerEntry{id: id, fn: l})

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		entries := f.listeners[name]
		for i, e := range entries {
			if e.id == id {
				f.listeners[name] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

func (f *Fetcher) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = f.now()
	}
	f.mu.RLock()
	entries := append([]listenerEntry(nil), f.listeners[ev.Name]...)
	f.mu.RUnlock()

	for _, e := range entries {
		e.fn(ev)
	}
}

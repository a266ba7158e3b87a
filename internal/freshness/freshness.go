// Package freshness tracks when each spec was last checked against the
// remote side, so a cached value is revalidated at most once per rate.
package freshness

import (
	"fmt"
	"sync"
	"time"

	"github.com/roach88/fetchr/internal/canonical"
	"github.com/roach88/fetchr/internal/spec"
)

// DefaultCheckedFreshRate is the minimum interval between freshness checks
// of the same spec.
const DefaultCheckedFreshRate = 3 * time.Minute

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Tracker records per-spec check timestamps in milliseconds since the epoch.
// It is safe for concurrent use.
type Tracker struct {
	rate  time.Duration
	clock Clock

	mu         sync.Mutex
	timestamps map[string]int64
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithRate sets the check interval. Non-positive values are ignored.
func WithRate(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.rate = d
		}
	}
}

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clock = c
		}
	}
}

// New creates an empty tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		rate:       DefaultCheckedFreshRate,
		clock:      SystemClock{},
		timestamps: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Rate returns the check interval.
func (t *Tracker) Rate() time.Duration { return t.rate }

// Key derives the tracking key of s: canonical JSON of its raw name and its
// params, e.g. {"name":"Listing","params":{"id":1}}. The name is not
// normalized, so "Listing" and "listing" are tracked separately. A spec
// without params has no "params" member at all, which differs from the key
// of a spec with an empty params bag.
func Key(s spec.Spec) (string, error) {
	fields := map[string]any{"name": s.Name}
	if s.Params != nil {
		fields["params"] = map[string]any(s.Params)
	}
	key, err := canonical.MarshalString(fields)
	if err != nil {
		return "", fmt.Errorf("freshness key %s: %w", s.Name, err)
	}
	return key, nil
}

// ShouldCheckFresh reports whether s has never been checked or was last
// checked more than the rate ago. A spec whose key cannot be derived is
// never checked.
func (t *Tracker) ShouldCheckFresh(s spec.Spec) bool {
	key, err := Key(s)
	if err != nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.timestamps[key]
	if !ok {
		return true
	}
	return t.nowMillis()-ts > t.rate.Milliseconds()
}

// DidCheckFresh records that s was checked now.
func (t *Tracker) DidCheckFresh(s spec.Spec) error {
	key, err := Key(s)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timestamps[key] = t.nowMillis()
	return nil
}

// Timestamp returns the last check time of s in epoch milliseconds.
func (t *Tracker) Timestamp(s spec.Spec) (int64, bool) {
	key, err := Key(s)
	if err != nil {
		return 0, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.timestamps[key]
	return ts, ok
}

// Set stores a raw timestamp under key.
func (t *Tracker) Set(key string, millis int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timestamps[key] = millis
}

// Reset forgets every timestamp.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.timestamps)
}

func (t *Tracker) nowMillis() int64 {
	return t.clock.Now().UnixMilli()
}

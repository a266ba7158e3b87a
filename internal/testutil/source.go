package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/fetchr/internal/canonical"
	"github.com/roach88/fetchr/internal/registry"
	"github.com/roach88/fetchr/internal/remote"
)

// FakeSource serves canned responses and records every request.
//
// Responses are keyed by the underscored type name and the canonical JSON
// of the params, so "Listing" {"id": 1} and "listing" {"id": 1.0} hit the
// same fixture. Thread-safety: safe for concurrent use.
type FakeSource struct {
	mu        sync.Mutex
	responses map[string]any
	errors    map[string]error
	calls     []remote.Request

	// Gate, when set, is received from before each response, letting a test
	// hold fetches in flight.
	Gate chan struct{}
}

var _ remote.Source = (*FakeSource)(nil)

// NewFakeSource creates a source with no fixtures.
func NewFakeSource() *FakeSource {
	return &FakeSource{
		responses: make(map[string]any),
		errors:    make(map[string]error),
	}
}

// Respond registers the response for name and params, replacing any
// earlier response or error.
func (s *FakeSource) Respond(name string, params map[string]any, response any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fixtureKey(name, params)
	delete(s.errors, key)
	s.responses[key] = response
}

// Fail registers an error for name and params.
func (s *FakeSource) Fail(name string, params map[string]any, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fixtureKey(name, params)
	delete(s.responses, key)
	s.errors[key] = err
}

func (s *FakeSource) Fetch(ctx context.Context, req remote.Request) (any, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	gate := s.Gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	key := fixtureKey(req.Name, req.Params)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.errors[key]; ok {
		return nil, err
	}
	resp, ok := s.responses[key]
	if !ok {
		return nil, &remote.StatusError{Code: 404, URL: key, Body: "no fixture"}
	}
	// Hand out a decoded copy so callers cannot mutate the fixture.
	data, err := canonical.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", key, err)
	}
	return canonical.Decode(data)
}

// Calls returns a copy of the recorded requests.
func (s *FakeSource) Calls() []remote.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]remote.Request(nil), s.calls...)
}

// CallCount returns how many fetches were made.
func (s *FakeSource) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Reset forgets recorded calls. Fixtures are kept.
func (s *FakeSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func fixtureKey(name string, params map[string]any) string {
	if params == nil {
		params = map[string]any{}
	}
	enc, err := canonical.MarshalString(params)
	if err != nil {
		enc = fmt.Sprintf("%v", params)
	}
	return registry.Underscorize(name) + ":" + enc
}

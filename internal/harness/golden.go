package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/fetchr/internal/canonical"
)

// Snapshot renders a scenario's trace as canonical JSON, the golden file
// format.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, st := range result.Trace {
		trace[i] = st.toCanonicalMap()
	}
	return canonical.Marshal(map[string]any{
		"scenario_name": scenario.Name,
		"trace":         trace,
	})
}

// toCanonicalMap converts a StepTrace to plain maps and slices, the only
// shapes canonical.Marshal accepts.
func (s StepTrace) toCanonicalMap() map[string]any {
	m := map[string]any{
		"step": s.Step,
		"op":   s.Op,
	}
	if s.FetchID != "" {
		m["fetch_id"] = s.FetchID
	}
	if len(s.CacheHits) > 0 {
		m["cache_hits"] = s.CacheHits
	}
	if len(s.CacheMisses) > 0 {
		m["cache_misses"] = s.CacheMisses
	}
	if len(s.Refreshed) > 0 {
		m["refreshed"] = s.Refreshed
	}
	if len(s.Remote) > 0 {
		calls := make([]any, len(s.Remote))
		for i, c := range s.Remote {
			calls[i] = map[string]any{"name": c.Name, "params": c.Params}
		}
		m["remote"] = calls
	}
	if s.Results != nil {
		m["results"] = s.Results
	}
	if s.Error != "" {
		m["error"] = s.Error
	}
	return m
}

// RunWithGolden executes a scenario, fails t on unmet expectations, and
// compares the trace against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if !result.Pass {
		return fmt.Errorf("scenario %s failed:\n  %s", scenario.Name, strings.Join(result.Errors, "\n  "))
	}

	snapshot, err := Snapshot(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot)
	return nil
}

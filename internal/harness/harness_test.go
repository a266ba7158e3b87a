package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".yaml"), func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

const listingTypes = `model: Listing: {json_key: "listing", url: "/listings/:id"}`

func TestRun_ReportsUnmetExpectations(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: unmet
description: "every expectation is wrong"
types: '` + listingTypes + `'
fixtures:
  - model: Listing
    params: {id: 1}
    response: {id: 1, name: "Sunny"}
steps:
  - fetch:
      listing: {model: Listing, params: {id: 1}}
    expect:
      remote_calls: 2
      error: "boom"
      summaries:
        listing: {model: listing, id: 2}
        other: {model: listing, id: 1}
      attributes:
        listing: {name: "Rainy", city: "SF"}
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{
		`steps[0]: expected error containing "boom", step succeeded`,
		`steps[0]: expected 2 remote calls, got 1`,
		`steps[0]: result "listing": expected summary {"model":"listing","id":2}, got {"model":"listing","id":1}`,
		`steps[0]: result "other" missing`,
		`steps[0]: result "listing": attribute "city" missing`,
		`steps[0]: result "listing": attribute "name": expected Rainy, got Sunny`,
	}, result.Errors)
}

func TestRun_UnexpectedError(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: missing_fixture
description: "no fixture means a 404"
types: '` + listingTypes + `'
steps:
  - fetch:
      listing: {model: Listing, params: {id: 1}}
    expect: {}
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error: REMOTE_STATUS")
	assert.Equal(t, "fetch-1", result.Trace[0].FetchID)
}

func TestRun_ReadCacheOverride(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: read_override
description: "client writes, then reads past the cache on request"
environment: client
types: '` + listingTypes + `'
fixtures:
  - model: Listing
    params: {id: 1}
    response: {id: 1}
steps:
  - fetch:
      listing: {model: Listing, params: {id: 1}}
  - fetch:
      listing: {model: Listing, params: {id: 1}}
    read_from_cache: false
    expect:
      remote_calls: 1
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, []string{"listing"}, result.Trace[0].CacheMisses)
	assert.Empty(t, result.Trace[1].CacheMisses)
	assert.Empty(t, result.Trace[1].CacheHits)
}

func TestRun_BadTypes(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: bad_types
description: "types do not compile"
types: 'model: Listing: {'
steps:
  - hydrate:
      listing: {model: listing, id: 1}
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	assert.ErrorContains(t, err, "failed to compile types")
}

func TestSnapshot_IsCanonical(t *testing.T) {
	scenario := &Scenario{Name: "snap"}
	result := NewResult()
	result.Trace = append(result.Trace, StepTrace{
		Step:        0,
		Op:          "fetch",
		FetchID:     "fetch-1",
		CacheMisses: []string{"b", "a"},
		Remote:      []RemoteCall{{Name: "listing", Params: map[string]any{"id": 1}}},
	})

	data, err := Snapshot(scenario, result)
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"snap","trace":[{"cache_misses":["b","a"],"fetch_id":"fetch-1","op":"fetch","remote":[{"name":"listing","params":{"id":1}}],"step":0}]}`, string(data))
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "name: x\ndescription: y\ntypes: z\nstep: []\n", "failed to parse YAML"},
		{"missing name", "description: y\ntypes: z\nsteps: [{hydrate: {a: {model: a, id: 1}}}]\n", "name is required"},
		{"missing description", "name: x\ntypes: z\nsteps: [{hydrate: {a: {model: a, id: 1}}}]\n", "description is required"},
		{"missing types", "name: x\ndescription: y\nsteps: [{hydrate: {a: {model: a, id: 1}}}]\n", "types is required"},
		{"no steps", "name: x\ndescription: y\ntypes: z\n", "steps list is required"},
		{"bad environment", "name: x\ndescription: y\ntypes: z\nenvironment: browser\nsteps: [{hydrate: {a: {model: a, id: 1}}}]\n", "environment must be"},
		{"bad rate", "name: x\ndescription: y\ntypes: z\nchecked_fresh_rate: soon\nsteps: [{hydrate: {a: {model: a, id: 1}}}]\n", "checked_fresh_rate"},
		{"empty step", "name: x\ndescription: y\ntypes: z\nsteps: [{advance: 1m}]\n", "exactly one of fetch or hydrate"},
		{"bad advance", "name: x\ndescription: y\ntypes: z\nsteps: [{advance: later, hydrate: {a: {model: a, id: 1}}}]\n", "steps[0].advance"},
		{"hydrate with cache flag", "name: x\ndescription: y\ntypes: z\nsteps: [{read_from_cache: true, hydrate: {a: {model: a, id: 1}}}]\n", "cache flags"},
		{"fixture without type", "name: x\ndescription: y\ntypes: z\nfixtures: [{response: {}}]\nsteps: [{hydrate: {a: {model: a, id: 1}}}]\n", "fixtures[0]"},
		{"fixture without response", "name: x\ndescription: y\ntypes: z\nfixtures: [{model: A}]\nsteps: [{hydrate: {a: {model: a, id: 1}}}]\n", "response or status"},
		{"step fixture", "name: x\ndescription: y\ntypes: z\nsteps: [{fixtures: [{model: A, collection: B, status: 500}], hydrate: {a: {model: a, id: 1}}}]\n", "steps[0].fixtures[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scenario.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

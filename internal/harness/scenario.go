package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fetchr/internal/spec"
)

// Scenario defines a fetch scenario: type definitions, canned remote
// responses, and a sequence of fetch and hydrate steps with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Types is inline CUE declaring the model and collection types.
	Types string `yaml:"types"`

	// Environment is "server" (default) or "client".
	Environment string `yaml:"environment,omitempty"`

	// CheckedFreshRate overrides the freshness rate, as a Go duration.
	CheckedFreshRate string `yaml:"checked_fresh_rate,omitempty"`

	// Fixtures are the remote responses available to the fetcher.
	Fixtures []Fixture `yaml:"fixtures,omitempty"`

	// Steps run in order against one fetcher and one store.
	Steps []Step `yaml:"steps"`
}

// Fixture is one canned remote response, keyed by type and params.
type Fixture struct {
	Model      string         `yaml:"model,omitempty"`
	Collection string         `yaml:"collection,omitempty"`
	Params     map[string]any `yaml:"params,omitempty"`

	// Response is the decoded body. Ignored when Status is set.
	Response any `yaml:"response,omitempty"`

	// Status, when non-zero, fails the request with that HTTP status.
	Status int `yaml:"status,omitempty"`
}

// Name returns the fixture's type name.
func (f Fixture) Name() string {
	if f.Model != "" {
		return f.Model
	}
	return f.Collection
}

// Step is a single fetch or hydrate.
type Step struct {
	// Advance moves the clock forward before the step runs.
	Advance string `yaml:"advance,omitempty"`

	// Fixtures replace remote responses before the step runs.
	Fixtures []Fixture `yaml:"fixtures,omitempty"`

	// Fetch is a batch of specs to fetch.
	Fetch spec.Map `yaml:"fetch,omitempty"`

	// ReadFromCache and WriteToCache override the environment defaults.
	ReadFromCache *bool `yaml:"read_from_cache,omitempty"`
	WriteToCache  *bool `yaml:"write_to_cache,omitempty"`

	// Hydrate is a batch of summaries to rebuild from the store.
	Hydrate map[string]spec.Summary `yaml:"hydrate,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies what a step must produce.
type Expect struct {
	// Summaries must match the step's results for each key given.
	Summaries map[string]spec.Summary `yaml:"summaries,omitempty"`

	// Attributes is a subset match against each model result's JSON.
	Attributes map[string]map[string]any `yaml:"attributes,omitempty"`

	// RemoteCalls is the exact number of source requests, background
	// freshness checks included.
	RemoteCalls *int `yaml:"remote_calls,omitempty"`

	// Refreshed lists the keys that must emit a refresh event.
	Refreshed []string `yaml:"refreshed,omitempty"`

	// Error is a substring the step's error must contain. Empty means the
	// step must succeed.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Types == "" {
		return fmt.Errorf("types is required")
	}
	switch s.Environment {
	case "", "server", "client":
	default:
		return fmt.Errorf("environment must be server or client, got %q", s.Environment)
	}
	if s.CheckedFreshRate != "" {
		if d, err := time.ParseDuration(s.CheckedFreshRate); err != nil || d <= 0 {
			return fmt.Errorf("checked_fresh_rate: invalid duration %q", s.CheckedFreshRate)
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if err := validateFixtures("fixtures", s.Fixtures); err != nil {
		return err
	}

	for i, step := range s.Steps {
		if (len(step.Fetch) == 0) == (len(step.Hydrate) == 0) {
			return fmt.Errorf("steps[%d]: exactly one of fetch or hydrate is required", i)
		}
		if step.Advance != "" {
			if _, err := time.ParseDuration(step.Advance); err != nil {
				return fmt.Errorf("steps[%d].advance: %w", i, err)
			}
		}
		if err := validateFixtures(fmt.Sprintf("steps[%d].fixtures", i), step.Fixtures); err != nil {
			return err
		}
		if len(step.Hydrate) > 0 && (step.ReadFromCache != nil || step.WriteToCache != nil) {
			return fmt.Errorf("steps[%d]: cache flags apply to fetch steps only", i)
		}
	}
	return nil
}

func validateFixtures(path string, fixtures []Fixture) error {
	for i, f := range fixtures {
		if (f.Model == "") == (f.Collection == "") {
			return fmt.Errorf("%s[%d]: exactly one of model or collection is required", path, i)
		}
		if f.Status == 0 && f.Response == nil {
			return fmt.Errorf("%s[%d]: response or status is required", path, i)
		}
	}
	return nil
}

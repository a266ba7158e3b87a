package harness

// StepTrace records what one step did. Lists are sorted so traces are
// identical across runs even though keys resolve concurrently.
type StepTrace struct {
	Step    int    `json:"step"`
	Op      string `json:"op"` // "fetch" or "hydrate"
	FetchID string `json:"fetch_id,omitempty"`

	CacheHits   []string `json:"cache_hits,omitempty"`
	CacheMisses []string `json:"cache_misses,omitempty"`
	Refreshed   []string `json:"refreshed,omitempty"`

	// Remote holds one entry per source request.
	Remote []RemoteCall `json:"remote,omitempty"`

	// Results maps keys to summary JSON values.
	Results map[string]any `json:"results,omitempty"`

	Error string `json:"error,omitempty"`
}

// RemoteCall is a source request as seen by the fake source.
type RemoteCall struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation matched.
	Pass bool `json:"pass"`

	// Trace has one entry per step.
	Trace []StepTrace `json:"trace"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []StepTrace{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

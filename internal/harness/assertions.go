package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/fetchr/internal/canonical"
	"github.com/roach88/fetchr/internal/entity"
	"github.com/roach88/fetchr/internal/fetcher"
	"github.com/roach88/fetchr/internal/spec"
)

// checkExpect returns one message per unmet expectation of a step.
func checkExpect(index int, exp *Expect, trace StepTrace, results fetcher.Results, summaries map[string]spec.Summary) []string {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf("steps[%d]: ", index)+fmt.Sprintf(format, args...))
	}

	switch {
	case exp.Error != "" && trace.Error == "":
		fail("expected error containing %q, step succeeded", exp.Error)
	case exp.Error != "" && !strings.Contains(trace.Error, exp.Error):
		fail("expected error containing %q, got %q", exp.Error, trace.Error)
	case exp.Error == "" && trace.Error != "":
		fail("unexpected error: %s", trace.Error)
	}

	if exp.RemoteCalls != nil && len(trace.Remote) != *exp.RemoteCalls {
		fail("expected %d remote calls, got %d", *exp.RemoteCalls, len(trace.Remote))
	}

	if exp.Refreshed != nil {
		want := slices.Clone(exp.Refreshed)
		slices.Sort(want)
		if !slices.Equal(want, trace.Refreshed) {
			fail("expected refreshed %v, got %v", want, trace.Refreshed)
		}
	}

	for _, key := range canonical.SortedKeys(exp.Summaries) {
		want := exp.Summaries[key]
		got, ok := summaries[key]
		if !ok {
			fail("result %q missing", key)
			continue
		}
		if !want.Equal(got) {
			fail("result %q: expected summary %s, got %s", key, summaryString(want), summaryString(got))
		}
	}

	for _, key := range canonical.SortedKeys(exp.Attributes) {
		m, ok := results[key].(entity.Model)
		if !ok {
			fail("result %q is not a model", key)
			continue
		}
		attrs := m.ToJSON()
		for _, attr := range canonical.SortedKeys(exp.Attributes[key]) {
			want := exp.Attributes[key][attr]
			got, present := attrs[attr]
			if !present {
				fail("result %q: attribute %q missing", key, attr)
				continue
			}
			if !valuesEqual(got, want) {
				fail("result %q: attribute %q: expected %v, got %v", key, attr, want, got)
			}
		}
	}
	return errs
}

// valuesEqual compares through canonical JSON so 1, int64(1) and 1.0 match.
func valuesEqual(actual, expected any) bool {
	a, err := canonical.MarshalString(actual)
	if err != nil {
		return false
	}
	e, err := canonical.MarshalString(expected)
	if err != nil {
		return false
	}
	return a == e
}

func summaryString(s spec.Summary) string {
	data, err := s.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}

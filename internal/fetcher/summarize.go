package fetcher

import (
	"fmt"
	"slices"

	"github.com/roach88/fetchr/internal/entity"
	"github.com/roach88/fetchr/internal/registry"
	"github.com/roach88/fetchr/internal/spec"
)

// Summarize reduces a live entity to its summary. Model ids come from the
// type's id attribute. Collection ids follow member order, duplicates
// included; params and meta are passed through as held.
func Summarize(e entity.Entity) (spec.Summary, error) {
	switch v := e.(type) {
	case entity.Model:
		id, _ := v.ID()
		return spec.ModelSummary(registry.ModelName(v), id), nil
	case entity.Collection:
		models := v.Models()
		ids := make([]any, len(models))
		for i, m := range models {
			ids[i], _ = m.ID()
		}
		return spec.CollectionSummary(registry.ModelName(v), ids, v.Params(), v.Meta()), nil
	default:
		return spec.Summary{}, fmt.Errorf("summarize: unsupported entity %T", e)
	}
}

// SummarizeAll summarizes every result under its key.
func SummarizeAll(results Results) (map[string]spec.Summary, error) {
	out := make(map[string]spec.Summary, len(results))
	for k, e := range results {
		s, err := Summarize(e)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = s
	}
	return out, nil
}

func sortedResultKeys(results Results) []string {
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

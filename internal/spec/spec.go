// Package spec defines fetch specs, the declarative requests callers hand to
// the fetcher, and summaries, the compact references the fetcher hands back.
//
// A spec is a tagged union: it names either a model type or a collection
// type, never both.
package spec

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fetchr/internal/canonical"
	"github.com/roach88/fetchr/internal/entity"
)

// Kind tags a spec or summary as a model or a collection.
type Kind string

const (
	KindModel      Kind = "model"
	KindCollection Kind = "collection"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindModel || k == KindCollection
}

// Spec is a declarative request for one model or one collection.
type Spec struct {
	Kind Kind

	// Name is the type identifier as written by the caller. It is kept raw;
	// normalization happens at registry lookup.
	Name string

	// Params identify the entity (models) or filter the listing (collections).
	Params entity.Attributes

	// EnsureKeys are attribute names that must be present on cached data for
	// it to be usable.
	EnsureKeys []string

	// NeedsFetch overrides stale-detection. The zero Policy means unset.
	NeedsFetch Policy
}

// Model returns a model spec for name.
func Model(name string, params entity.Attributes) Spec {
	return Spec{Kind: KindModel, Name: name, Params: params}
}

// Collection returns a collection spec for name.
func Collection(name string, params entity.Attributes) Spec {
	return Spec{Kind: KindCollection, Name: name, Params: params}
}

// WithEnsureKeys returns a copy of s requiring keys on cached data.
func (s Spec) WithEnsureKeys(keys ...string) Spec {
	s.EnsureKeys = append([]string(nil), keys...)
	return s
}

// WithNeedsFetch returns a copy of s with the given policy.
func (s Spec) WithNeedsFetch(p Policy) Spec {
	s.NeedsFetch = p
	return s
}

// ParamsOrEmpty returns the params, substituting an empty bag for nil.
func (s Spec) ParamsOrEmpty() entity.Attributes {
	if s.Params == nil {
		return entity.Attributes{}
	}
	return s.Params
}

// Validate reports structural problems.
func (s Spec) Validate() error {
	if !s.Kind.Valid() {
		return &InvalidSpecError{Message: fmt.Sprintf("unknown kind %q", s.Kind)}
	}
	if s.Name == "" {
		return &InvalidSpecError{Message: fmt.Sprintf("%s name is required", s.Kind)}
	}
	return nil
}

// Map is a keyed batch of specs. Keys are caller-chosen and mirrored in
// fetch results.
type Map map[string]Spec

// Validate validates every spec, reporting the first failing key.
func (m Map) Validate() error {
	if len(m) == 0 {
		return &InvalidSpecError{Message: "no specs given"}
	}
	for _, k := range canonical.SortedKeys(m) {
		if err := m[k].Validate(); err != nil {
			var ie *InvalidSpecError
			if errors.As(err, &ie) {
				ie.Key = k
			}
			return err
		}
	}
	return nil
}

// Keys returns the batch keys, sorted.
func (m Map) Keys() []string {
	return canonical.SortedKeys(m)
}

// wireSpec is the serialized form: `{"model": "Listing", "params": {...}}`.
type wireSpec struct {
	Model      string            `json:"model,omitempty" yaml:"model,omitempty"`
	Collection string            `json:"collection,omitempty" yaml:"collection,omitempty"`
	Params     entity.Attributes `json:"params,omitempty" yaml:"params,omitempty"`
	EnsureKeys []string          `json:"ensureKeys,omitempty" yaml:"ensureKeys,omitempty"`
	NeedsFetch *bool             `json:"needsFetch,omitempty" yaml:"needsFetch,omitempty"`
}

func (w wireSpec) toSpec() (Spec, error) {
	var s Spec
	params, err := normalizeParams(w.Params)
	if err != nil {
		return s, &InvalidSpecError{Message: fmt.Sprintf("params: %v", err)}
	}
	w.Params = params

	switch {
	case w.Model != "" && w.Collection != "":
		return s, &InvalidSpecError{Message: "spec names both a model and a collection"}
	case w.Model != "":
		s = Model(w.Model, w.Params)
	case w.Collection != "":
		s = Collection(w.Collection, w.Params)
	default:
		return s, &InvalidSpecError{Message: "spec names neither a model nor a collection"}
	}
	s.EnsureKeys = w.EnsureKeys
	if w.NeedsFetch != nil {
		s.NeedsFetch = Always(*w.NeedsFetch)
	}
	return s, nil
}

func (s Spec) toWire() wireSpec {
	w := wireSpec{Params: s.Params, EnsureKeys: s.EnsureKeys}
	switch s.Kind {
	case KindModel:
		w.Model = s.Name
	case KindCollection:
		w.Collection = s.Name
	}
	if b, ok := s.NeedsFetch.Fixed(); ok {
		w.NeedsFetch = &b
	}
	return w
}

// MarshalJSON encodes the spec. A function policy is not serializable and
// is omitted.
func (s Spec) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.toWire())
}

func (s *Spec) UnmarshalJSON(data []byte) error {
	var w wireSpec
	if err := json.Unmarshal(data, &w); err != nil {
		return &InvalidSpecError{Message: err.Error()}
	}
	parsed, err := w.toSpec()
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Spec) MarshalYAML() (any, error) {
	return s.toWire(), nil
}

func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	var w wireSpec
	if err := node.Decode(&w); err != nil {
		return &InvalidSpecError{Message: err.Error()}
	}
	parsed, err := w.toSpec()
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Clone returns a deep-enough copy: the params bag and ensure keys are copied.
func (s Spec) Clone() Spec {
	out := s
	if s.Params != nil {
		out.Params = maps.Clone(s.Params)
	}
	out.EnsureKeys = append([]string(nil), s.EnsureKeys...)
	return out
}

// normalizeParams brings decoded numbers to the int64/float64 form used by
// the stores, so params read from a file match params built in code.
func normalizeParams(p entity.Attributes) (entity.Attributes, error) {
	if p == nil {
		return nil, nil
	}
	v, err := canonical.Normalize(map[string]any(p))
	if err != nil {
		return nil, err
	}
	return entity.Attributes(v.(map[string]any)), nil
}

package spec

import (
	"encoding/json"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fetchr/internal/canonical"
	"github.com/roach88/fetchr/internal/entity"
)

// Summary is the compact reference to a fetched entity, enough to
// rehydrate it from the stores.
//
// Model summaries carry a single ID; collection summaries carry member IDs
// in member order (duplicates included) plus the collection's params and
// meta.
type Summary struct {
	Kind Kind

	// Name is the normalized type name, e.g. "custom_listing".
	Name string

	ID     any
	IDs    []any
	Params entity.Attributes
	Meta   entity.Attributes
}

// ModelSummary returns the summary of a model.
func ModelSummary(name string, id any) Summary {
	return Summary{Kind: KindModel, Name: name, ID: id}
}

// CollectionSummary returns the summary of a collection.
func CollectionSummary(name string, ids []any, params, meta entity.Attributes) Summary {
	return Summary{Kind: KindCollection, Name: name, IDs: ids, Params: params, Meta: meta}
}

type modelWire struct {
	Model string `json:"model"`
	ID    any    `json:"id"`
}

type collectionWire struct {
	Collection string            `json:"collection"`
	IDs        []any             `json:"ids"`
	Params     entity.Attributes `json:"params"`
	Meta       entity.Attributes `json:"meta"`
}

type summaryProbe struct {
	Model      *string           `json:"model" yaml:"model"`
	ID         any               `json:"id" yaml:"id"`
	Collection *string           `json:"collection" yaml:"collection"`
	IDs        []any             `json:"ids" yaml:"ids"`
	Params     entity.Attributes `json:"params" yaml:"params"`
	Meta       entity.Attributes `json:"meta" yaml:"meta"`
}

// MarshalJSON produces {"model":..,"id":..} or
// {"collection":..,"ids":[..],"params":{..},"meta":{..}}.
func (s Summary) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case KindModel:
		return json.Marshal(modelWire{Model: s.Name, ID: s.ID})
	case KindCollection:
		w := collectionWire{Collection: s.Name, IDs: s.IDs, Params: s.Params, Meta: s.Meta}
		if w.IDs == nil {
			w.IDs = []any{}
		}
		if w.Params == nil {
			w.Params = entity.Attributes{}
		}
		if w.Meta == nil {
			w.Meta = entity.Attributes{}
		}
		return json.Marshal(w)
	default:
		return nil, &InvalidSpecError{Message: "summary has no kind"}
	}
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	var p summaryProbe
	if err := json.Unmarshal(data, &p); err != nil {
		return &InvalidSpecError{Message: err.Error()}
	}
	out, err := p.toSummary()
	if err != nil {
		return err
	}
	*s = out
	return nil
}

func (s *Summary) UnmarshalYAML(node *yaml.Node) error {
	var p summaryProbe
	if err := node.Decode(&p); err != nil {
		return &InvalidSpecError{Message: err.Error()}
	}
	out, err := p.toSummary()
	if err != nil {
		return err
	}
	*s = out
	return nil
}

func (p summaryProbe) toSummary() (Summary, error) {
	switch {
	case p.Model != nil && p.Collection != nil:
		return Summary{}, &InvalidSpecError{Message: "summary names both a model and a collection"}
	case p.Model != nil:
		id, err := canonical.Normalize(p.ID)
		if err != nil {
			return Summary{}, &InvalidSpecError{Message: err.Error()}
		}
		return ModelSummary(*p.Model, id), nil
	case p.Collection != nil:
		ids, err := canonical.Normalize(p.IDs)
		if err != nil {
			return Summary{}, &InvalidSpecError{Message: err.Error()}
		}
		params, err := normalizeParams(p.Params)
		if err != nil {
			return Summary{}, &InvalidSpecError{Message: err.Error()}
		}
		meta, err := normalizeParams(p.Meta)
		if err != nil {
			return Summary{}, &InvalidSpecError{Message: err.Error()}
		}
		idList, _ := ids.([]any)
		return CollectionSummary(*p.Collection, idList, params, meta), nil
	default:
		return Summary{}, &InvalidSpecError{Message: "summary names neither a model nor a collection"}
	}
}

// Equal compares two summaries by their canonical JSON.
func (s Summary) Equal(other Summary) bool {
	a, err := s.MarshalJSON()
	if err != nil {
		return false
	}
	b, err := other.MarshalJSON()
	if err != nil {
		return false
	}
	return slices.Equal(a, b)
}

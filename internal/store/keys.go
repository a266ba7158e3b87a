package store

import (
	"errors"
	"fmt"

	"github.com/roach88/fetchr/internal/canonical"
	"github.com/roach88/fetchr/internal/entity"
	"github.com/roach88/fetchr/internal/registry"
)

// ErrMissingID is returned when a model without an identifier is stored
// or looked up.
var ErrMissingID = errors.New("model has no id")

// ModelKey returns the slot key for a model of typeName with id.
// String ids are used verbatim; any other id uses its canonical JSON form.
func ModelKey(typeName string, id any) (string, error) {
	if id == nil {
		return "", ErrMissingID
	}
	name := registry.Underscorize(typeName)
	if s, ok := id.(string); ok {
		return name + ":" + s, nil
	}
	enc, err := canonical.MarshalString(id)
	if err != nil {
		return "", fmt.Errorf("model key %s: %w", name, err)
	}
	return name + ":" + enc, nil
}

// CollectionKey returns the record key for a collection of typeName with
// params. Nil params are the same as empty params.
func CollectionKey(typeName string, params entity.Attributes) (string, error) {
	name := registry.Underscorize(typeName)
	if params == nil {
		params = entity.Attributes{}
	}
	enc, err := canonical.MarshalString(map[string]any(params))
	if err != nil {
		return "", fmt.Errorf("collection key %s: %w", name, err)
	}
	return name + ":" + enc, nil
}

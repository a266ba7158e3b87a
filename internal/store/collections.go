package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/fetchr/internal/canonical"
	"github.com/roach88/fetchr/internal/entity"
)

// CollectionRecord is what the collection store keeps per (type, params):
// member ids in member order, plus the collection's meta and params.
// Member attributes live in the model store.
type CollectionRecord struct {
	IDs    []any             `json:"ids"`
	Meta   entity.Attributes `json:"meta"`
	Params entity.Attributes `json:"params"`
}

// CollectionStore holds collection records.
type CollectionStore struct {
	backend Backend
	logger  *slog.Logger
}

// NewCollectionStore creates a collection store on backend.
func NewCollectionStore(backend Backend, opts ...Option) *CollectionStore {
	o := buildOptions(opts)
	return &CollectionStore{backend: backend, logger: o.logger}
}

// Set replaces the record for the collection's type and params.
func (s *CollectionStore) Set(ctx context.Context, c entity.Collection) error {
	key, err := CollectionKey(c.TypeName(), c.Params())
	if err != nil {
		return fmt.Errorf("set %s: %w", c.TypeName(), err)
	}

	models := c.Models()
	rec := map[string]any{
		"ids":    idsOf(models),
		"meta":   orEmpty(c.Meta()),
		"params": orEmpty(c.Params()),
	}
	data, err := canonical.Marshal(rec)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	if err := s.backend.Put(ctx, BucketCollections, key, data); err != nil {
		return err
	}
	s.logger.Debug("collection stored", "key", key, "members", len(models))
	return nil
}

// Get returns the record for (typeName, params), or nil, nil on a miss.
func (s *CollectionStore) Get(ctx context.Context, typeName string, params entity.Attributes) (*CollectionRecord, error) {
	key, err := CollectionKey(typeName, params)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", typeName, err)
	}
	data, ok, err := s.backend.Get(ctx, BucketCollections, key)
	if err != nil || !ok {
		return nil, err
	}
	return decodeRecord(key, data)
}

// Keys lists every collection record key, sorted.
func (s *CollectionStore) Keys(ctx context.Context) ([]string, error) {
	return s.backend.Keys(ctx, BucketCollections)
}

// Clear drops every collection record.
func (s *CollectionStore) Clear(ctx context.Context) error {
	return s.backend.Clear(ctx, BucketCollections)
}

// MarshalJSON produces {"ids":[..],"meta":{..},"params":{..}}.
func (r CollectionRecord) MarshalJSON() ([]byte, error) {
	return canonical.Marshal(map[string]any{
		"ids":    orEmptyList(r.IDs),
		"meta":   orEmpty(r.Meta),
		"params": orEmpty(r.Params),
	})
}

func decodeRecord(key string, data []byte) (*CollectionRecord, error) {
	obj, err := canonical.DecodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	ids, ok := obj["ids"].([]any)
	if !ok {
		return nil, fmt.Errorf("decode %s: ids is %T, not an array", key, obj["ids"])
	}
	return &CollectionRecord{
		IDs:    ids,
		Meta:   asBag(obj["meta"]),
		Params: asBag(obj["params"]),
	}, nil
}

func idsOf(models []entity.Model) []any {
	ids := make([]any, len(models))
	for i, m := range models {
		ids[i], _ = m.ID()
	}
	return ids
}

func orEmpty(a entity.Attributes) map[string]any {
	if a == nil {
		return map[string]any{}
	}
	return map[string]any(a)
}

func orEmptyList(l []any) []any {
	if l == nil {
		return []any{}
	}
	return l
}

func asBag(v any) entity.Attributes {
	m, _ := v.(map[string]any)
	if m == nil {
		return entity.Attributes{}
	}
	return entity.Attributes(m)
}

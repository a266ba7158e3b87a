package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/fetchr/internal/canonical"
	"github.com/roach88/fetchr/internal/entity"
	"github.com/roach88/fetchr/internal/registry"
)

// ModelStore holds the latest known attributes of every model, one slot per
// (type, id).
type ModelStore struct {
	backend  Backend
	registry *registry.Registry
	logger   *slog.Logger

	// writeMu serializes read-merge-write cycles.
	writeMu sync.Mutex
}

// Option configures a store.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewModelStore creates a model store on backend. reg resolves the type
// parse step used by Get with deserialize set.
func NewModelStore(backend Backend, reg *registry.Registry, opts ...Option) *ModelStore {
	o := buildOptions(opts)
	return &ModelStore{backend: backend, registry: reg, logger: o.logger}
}

// Set merges the model's attributes into its slot. Keys already stored but
// absent from the model are kept; keys present in both take the model's
// value.
func (s *ModelStore) Set(ctx context.Context, m entity.Model) error {
	id, _ := m.ID()
	key, err := ModelKey(m.TypeName(), id)
	if err != nil {
		return fmt.Errorf("set %s: %w", m.TypeName(), err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	merged, err := s.read(ctx, key)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	if merged == nil {
		merged = entity.Attributes{}
	}
	for k, v := range m.Attributes() {
		merged[k] = v
	}

	data, err := canonical.Marshal(map[string]any(merged))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	if err := s.backend.Put(ctx, BucketModels, key, data); err != nil {
		return err
	}
	s.logger.Debug("model stored", "key", key)
	return nil
}

// Get returns the stored bag for (typeName, id), or nil, nil on a miss.
// With deserialize set the bag is passed through the type's Parse.
func (s *ModelStore) Get(ctx context.Context, typeName string, id any, deserialize bool) (entity.Attributes, error) {
	key, err := ModelKey(typeName, id)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", typeName, err)
	}
	attrs, err := s.read(ctx, key)
	if err != nil || attrs == nil || !deserialize {
		return attrs, err
	}

	m, err := s.registry.NewModel(typeName, nil)
	if err != nil {
		return nil, err
	}
	parsed, err := m.Parse(attrs)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return parsed, nil
}

// GetMany resolves ids in order. Misses are nil entries.
func (s *ModelStore) GetMany(ctx context.Context, typeName string, ids []any, deserialize bool) ([]entity.Attributes, error) {
	out := make([]entity.Attributes, len(ids))
	for i, id := range ids {
		attrs, err := s.Get(ctx, typeName, id, deserialize)
		if err != nil {
			return nil, err
		}
		out[i] = attrs
	}
	return out, nil
}

// Keys lists every model slot key, sorted.
func (s *ModelStore) Keys(ctx context.Context) ([]string, error) {
	return s.backend.Keys(ctx, BucketModels)
}

// Clear drops every model slot.
func (s *ModelStore) Clear(ctx context.Context) error {
	return s.backend.Clear(ctx, BucketModels)
}

func (s *ModelStore) read(ctx context.Context, key string) (entity.Attributes, error) {
	data, ok, err := s.backend.Get(ctx, BucketModels, key)
	if err != nil || !ok {
		return nil, err
	}
	obj, err := canonical.DecodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return entity.Attributes(obj), nil
}

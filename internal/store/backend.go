package store

import (
	"context"
	"fmt"
)

// Buckets used by the entity stores.
const (
	BucketModels      = "models"
	BucketCollections = "collections"
)

// Backend is a flat key/value table partitioned into buckets.
// Values are opaque JSON bytes.
type Backend interface {
	// Get returns the value at bucket/key. ok is false on a miss.
	Get(ctx context.Context, bucket, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, bucket, key string, value []byte) error

	// Keys returns every key in bucket, sorted.
	Keys(ctx context.Context, bucket string) ([]string, error)

	// Clear removes every entry in bucket.
	Clear(ctx context.Context, bucket string) error
	Close() error
}

// Backend kinds accepted by OpenBackend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// OpenBackend opens the named backend kind. dsn is used by sqlite only and
// defaults to ":memory:".
func OpenBackend(kind, dsn string) (Backend, error) {
	switch kind {
	case "", BackendMemory:
		return NewMemoryBackend(), nil
	case BackendSQLite:
		if dsn == "" {
			dsn = MemoryDSN
		}
		return OpenSQLite(dsn)
	default:
		return nil, fmt.Errorf("unknown store backend %q", kind)
	}
}

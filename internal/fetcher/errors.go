package fetcher

import (
	"errors"
	"fmt"
)

// ErrNoSource is returned by the default retriever when a fetch needs the
// remote side and no Source is configured.
var ErrNoSource = errors.New("NO_SOURCE: no remote source configured")

// ErrorCode categorizes fetcher errors.
type ErrorCode string

const (
	// ErrCodeCollectionNotFound indicates hydration of a collection that was
	// never stored.
	ErrCodeCollectionNotFound ErrorCode = "COLLECTION_NOT_FOUND"

	// ErrCodeHydrationFailed indicates one key of a hydration batch failed.
	ErrCodeHydrationFailed ErrorCode = "HYDRATION_FAILED"
)

// CollectionNotFoundError reports a hydration request for a collection
// whose (type, params) slot is absent from the collection store.
//
// It signals a programming error: hydration should only follow a fetch
// that stored the collection.
type CollectionNotFoundError struct {
	// Type is the collection type name as given in the summary.
	Type string

	// Params is the canonical JSON of the summary params.
	Params string
}

func (e *CollectionNotFoundError) Error() string {
	return fmt.Sprintf("%s: collection %s not found in store for params %s", ErrCodeCollectionNotFound, e.Type, e.Params)
}

// HydrationError reports the first key whose hydration failed. No partial
// results accompany it.
type HydrationError struct {
	Key string
	Err error
}

func (e *HydrationError) Error() string {
	return fmt.Sprintf("%s: key %q: %v", ErrCodeHydrationFailed, e.Key, e.Err)
}

func (e *HydrationError) Unwrap() error {
	return e.Err
}

// IsCollectionNotFound returns true if err is (or wraps) a
// *CollectionNotFoundError.
func IsCollectionNotFound(err error) bool {
	var ce *CollectionNotFoundError
	return errors.As(err, &ce)
}

// IsHydrationError returns true if err is (or wraps) a *HydrationError.
func IsHydrationError(err error) bool {
	var he *HydrationError
	return errors.As(err, &he)
}

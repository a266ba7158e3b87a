package registry

import (
	"errors"
	"fmt"
)

// Kind names which table a lookup went to.
type Kind string

const (
	KindModel      Kind = "model"
	KindCollection Kind = "collection"
)

// UnknownTypeError reports a lookup for a type that is not registered.
type UnknownTypeError struct {
	Kind Kind
	Name string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("UNKNOWN_TYPE: no %s registered as %q", e.Kind, e.Name)
}

// ConstructError reports a registered factory that failed to build an instance.
type ConstructError struct {
	Name string
	Err  error
}

func (e *ConstructError) Error() string {
	return fmt.Sprintf("CONSTRUCT_FAILED: %s: %v", e.Name, e.Err)
}

func (e *ConstructError) Unwrap() error {
	return e.Err
}

// IsUnknownType returns true if err is (or wraps) an *UnknownTypeError.
func IsUnknownType(err error) bool {
	var ue *UnknownTypeError
	return errors.As(err, &ue)
}

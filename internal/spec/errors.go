package spec

import (
	"errors"
	"fmt"
)

// InvalidSpecError reports a malformed spec or summary.
type InvalidSpecError struct {
	// Key is the batch key of the offending spec, when known.
	Key     string
	Message string
}

func (e *InvalidSpecError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("INVALID_SPEC: %s: %s", e.Key, e.Message)
	}
	return fmt.Sprintf("INVALID_SPEC: %s", e.Message)
}

// IsInvalidSpec returns true if err is (or wraps) an *InvalidSpecError.
func IsInvalidSpec(err error) bool {
	var ie *InvalidSpecError
	return errors.As(err, &ie)
}

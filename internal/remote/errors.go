package remote

import (
	"errors"
	"fmt"
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("REMOTE_STATUS: GET %s: %d", e.URL, e.Code)
}

// IsNotFound returns true if err is (or wraps) a 404 *StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == 404
}

package vapid

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig = errors.New("vapid: invalid configuration")
	ErrMissingKeys   = errors.New("vapid: public and private keys are required")
)

// StatusError is a non-2xx answer from a push service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("push service responded with status %d", e.StatusCode)
	}
	return fmt.Sprintf("push service responded with status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	switch e.StatusCode {
	case 408, 425, 429:
		return true
	}
	return e.StatusCode >= 500
}

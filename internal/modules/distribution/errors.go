package distribution

import (
	"errors"
	"strings"
)

var (
	// ErrNoSubmitter is returned by Execute when the service has no submission boundary
	ErrNoSubmitter = errors.New("no submitter configured")
	// ErrInvalidAllocation is wrapped by every ValidationError
	ErrInvalidAllocation = errors.New("allocation is invalid")
)

// ValidationError blocks a submission. It carries every violation found.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return ErrInvalidAllocation.Error() + ": " + strings.Join(e.Violations, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidAllocation
}

// IsValidationError reports whether err is or wraps a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

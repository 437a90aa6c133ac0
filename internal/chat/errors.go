package chat

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a conversation does not exist or belongs to
// another user. Callers cannot tell the two apart.
var ErrNotFound = errors.New("conversation not found")

// ErrPersistence marks store failures. They abort the turn.
var ErrPersistence = errors.New("persistence failure")

// ValidationError reports malformed input. It is raised before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

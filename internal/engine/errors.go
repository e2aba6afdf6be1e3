package engine

import (
	"errors"
	"fmt"
)

// ErrInvalid matches every *InputError.
var ErrInvalid = errors.New("invalid input")

// ErrChatUnavailable means no chat client was configured.
var ErrChatUnavailable = errors.New("chat client not configured")

// InputError is a request the engine refused before touching storage.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Is(target error) bool { return target == ErrInvalid }

func invalid(field, format string, args ...any) error {
	return &InputError{Field: field, Message: fmt.Sprintf(format, args...)}
}

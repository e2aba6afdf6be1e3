package intent

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInput is returned for absent, non-string, or blank prompts.
	ErrMissingInput = errors.New("missing input")

	// ErrInputTooLong is returned when the trimmed prompt exceeds the length cap.
	ErrInputTooLong = errors.New("input too long")

	// ErrMalformedUpstreamResponse marks a 2xx completion that carried nothing
	// usable. Interpret absorbs it; it is exported for logging and tests.
	ErrMalformedUpstreamResponse = errors.New("malformed upstream response")

	// ErrUpstreamUnavailable is returned when the chat completion could not be
	// obtained at all (transport failure, timeout, non-2xx status).
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// UpstreamError carries the upstream status code (0 for transport failures)
// and a bounded diagnostic message.
type UpstreamError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream unavailable (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream unavailable: %s", e.Message)
}

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }

func (e *UpstreamError) Unwrap() error { return e.Err }

// TooLongError reports the measured and allowed lengths.
type TooLongError struct {
	Length int
	Max    int
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("input too long (max %d characters, got %d)", e.Max, e.Length)
}

func (e *TooLongError) Is(target error) bool { return target == ErrInputTooLong }

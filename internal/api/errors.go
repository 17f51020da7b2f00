package api

import (
	"errors"

	"github.com/lockstepml/lockstep/internal/diverge"
	"github.com/lockstepml/lockstep/internal/validation"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// isConfigError reports whether err comes from bad request parameters rather
// than the service itself.
func isConfigError(err error) bool {
	return errors.Is(err, validation.ErrNoValidationFiles) ||
		errors.Is(err, validation.ErrNotEnoughValidationFiles) ||
		errors.Is(err, validation.ErrTokenizerRequired) ||
		errors.Is(err, validation.ErrMissingLogits) ||
		errors.Is(err, diverge.ErrBadTopK) ||
		errors.Is(err, diverge.ErrRowMismatch) ||
		errors.Is(err, diverge.ErrNoLogits)
}

package output

import (
	"errors"

	"github.com/benjaminschreck/go-letterstencil/pkg/stencil"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess     = 0
	ExitUserError   = 1
	ExitSystemError = 2
	ExitConflict    = 3
)

// ExitError is an error that carries an exit code for the CLI.
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewUserError creates an error for bad arguments or input (exit code 1).
func NewUserError(message string) *ExitError {
	return &ExitError{Code: ExitUserError, Message: message}
}

// NewSystemErrorWithCause creates a system error wrapping cause (exit code 2).
func NewSystemErrorWithCause(message string, cause error) *ExitError {
	return &ExitError{Code: ExitSystemError, Message: message, Cause: cause}
}

// NewConflictError creates an error for state conflicts (exit code 3).
func NewConflictError(message string) *ExitError {
	return &ExitError{Code: ExitConflict, Message: message}
}

// Classify wraps err in an ExitError whose code reflects the kind of
// failure. Errors that already carry a code are returned unchanged; other
// untyped errors count as user errors.
func Classify(err error) *ExitError {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}

	code := ExitUserError
	switch {
	case errors.Is(err, stencil.ErrTemplateFinalized), errors.Is(err, stencil.ErrStaleTemplateVersion):
		code = ExitConflict
	case errors.Is(err, stencil.ErrSerializationFailure):
		code = ExitSystemError
	}
	return &ExitError{Code: code, Message: err.Error(), Cause: err}
}

// GetExitCode extracts the exit code from an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return Classify(err).Code
}

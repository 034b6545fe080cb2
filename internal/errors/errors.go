package errors

import (
	"fmt"

	crdberrors "github.com/cockroachdb/errors"
)

// Exit codes follow the convention used by monitoring plugins: the code
// reports the worst health status found, and 3 is reserved for the tool
// itself failing before a verdict was possible.
const (
	// ExitOK indicates all checks passed.
	ExitOK = 0

	// ExitWarning indicates at least one WARNING finding and no CRITICAL ones.
	ExitWarning = 1

	// ExitCritical indicates at least one CRITICAL finding.
	ExitCritical = 2

	// ExitFailure indicates the tool itself failed (bad config, storage I/O).
	ExitFailure = 3
)

// Sentinel errors for common failure conditions.
var (
	// ErrNotFound indicates the requested snapshot or resource was not found.
	ErrNotFound = crdberrors.New("not found")

	// ErrInvalidConfig indicates configuration validation failed.
	ErrInvalidConfig = crdberrors.New("invalid configuration")

	// ErrNoCheckers indicates the enabled-checks configuration selected nothing.
	ErrNoCheckers = crdberrors.New("no checkers selected")
)

// New returns an error with the supplied message.
func New(msg string) error {
	return crdberrors.New(msg)
}

// Newf formats an error according to a format specifier.
func Newf(format string, args ...any) error {
	return crdberrors.Newf(format, args...)
}

// Wrap annotates err with a message, preserving the chain for errors.Is.
func Wrap(err error, msg string) error {
	return crdberrors.Wrap(err, msg)
}

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	return crdberrors.Wrapf(err, format, args...)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return crdberrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return crdberrors.As(err, target)
}

// ExitError wraps an error with an exit code and optional suggestion for the CLI.
// It implements the error interface and supports unwrapping via errors.Unwrap.
type ExitError struct {
	// Err is the underlying error that caused the exit.
	Err error

	// Code is the exit code to return to the operating system.
	Code int

	// Suggestion is an optional actionable suggestion for the user.
	Suggestion string
}

// NewExitError creates an ExitError with the given underlying error and exit code.
// If err is nil, the returned ExitError will have a nil Err field.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{
		Err:  err,
		Code: code,
	}
}

// NewExitErrorWithSuggestion creates an ExitError with a suggestion.
func NewExitErrorWithSuggestion(err error, code int, suggestion string) *ExitError {
	return &ExitError{
		Err:        err,
		Code:       code,
		Suggestion: suggestion,
	}
}

// NewToolError creates an ExitError with ExitFailure code and a suggestion.
// Tool errors are failures of medic itself, distinct from bad health findings.
func NewToolError(err error, suggestion string) *ExitError {
	return &ExitError{
		Err:        err,
		Code:       ExitFailure,
		Suggestion: suggestion,
	}
}

// NewConfigError creates an ExitError with ExitFailure code and a standard suggestion.
func NewConfigError(err error) *ExitError {
	return &ExitError{
		Err:        err,
		Code:       ExitFailure,
		Suggestion: "Run: medic config show",
	}
}

// Error returns the error message from the underlying error.
// If the underlying error is nil, it returns a generic message with the exit code.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error, enabling errors.Is and errors.As
// to examine the error chain.
func (e *ExitError) Unwrap() error {
	return e.Err
}

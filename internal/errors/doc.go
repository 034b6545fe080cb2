// Package errors provides error handling conventions for the medic CLI.
//
// This package defines sentinel errors for common failure conditions,
// an ExitError type for CLI exit code handling, exit code constants
// following monitoring-plugin conventions, and thin delegates to the
// cockroachdb/errors wrapping functions so callers need one import.
//
// # Sentinel Errors
//
// Sentinel errors allow callers to check for specific error conditions
// using [Is]:
//
//	if errors.Is(err, medicerrors.ErrNotFound) {
//	    // handle not found case
//	}
//
// # Exit Codes
//
// The exit code reports the worst health status found during a run:
//
//   - ExitOK (0): All checks passed
//   - ExitWarning (1): At least one WARNING finding
//   - ExitCritical (2): At least one CRITICAL finding
//   - ExitFailure (3): The tool itself failed before producing a verdict
//
// # ExitError
//
// [ExitError] wraps an underlying error with an exit code and optional suggestion
// for the CLI. It supports error unwrapping via [errors.Unwrap] and [errors.As]:
//
//	err := medicerrors.NewConfigError(medicerrors.ErrInvalidConfig)
//	var exitErr *medicerrors.ExitError
//	if errors.As(err, &exitErr) {
//	    if exitErr.Suggestion != "" {
//	        fmt.Println("Suggestion:", exitErr.Suggestion)
//	    }
//	    os.Exit(exitErr.Code)
//	}
package errors

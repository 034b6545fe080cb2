package check

import "context"

// Checker is one category of diagnostics. Implementations live under
// internal/checks, one package per category.
type Checker interface {
	// Category returns the report key the checker's findings group under.
	Category() string

	// Run executes every sub-check and returns the findings. A sub-check
	// whose probe is unavailable on the host records UNKNOWN or is
	// skipped; it never aborts the run. A non-nil error alongside
	// findings marks a run cut short (typically by the per-checker
	// deadline) with partial results worth keeping.
	Run(ctx context.Context) ([]Result, error)
}

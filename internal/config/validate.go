package config

import (
	"errors"
	"path/filepath"
	"strings"
)

// Validation errors for configuration fields.
var (
	// ErrNonPositive indicates a value that must be at least 1.
	ErrNonPositive = errors.New("must be >= 1")

	// ErrNegative indicates a value that must not be below zero.
	ErrNegative = errors.New("must be >= 0")

	// ErrInvalidPath indicates a path value is malformed.
	ErrInvalidPath = errors.New("invalid path")

	// ErrUnknownCategory indicates a checks key that matches no checker.
	ErrUnknownCategory = errors.New("unknown checker category")
)

// Validate checks a Config for validity.
// Returns nil if valid, or a slice of validation errors.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{errors.New("config is nil")}
	}

	var errs []error

	known := make(map[string]bool, len(Categories))
	for _, category := range Categories {
		known[category] = true
	}
	for name := range cfg.Checks {
		if !known[name] {
			errs = append(errs, &FieldError{
				Field: "checks." + name,
				Err:   ErrUnknownCategory,
			})
		}
	}

	if cfg.Run.Concurrency < 1 {
		errs = append(errs, &FieldError{Field: "run.concurrency", Err: ErrNonPositive})
	}
	if cfg.Run.CheckerTimeout <= 0 {
		errs = append(errs, &FieldError{Field: "run.checker_timeout", Err: ErrNonPositive})
	}
	if cfg.Run.ProbeTimeout <= 0 {
		errs = append(errs, &FieldError{Field: "run.probe_timeout", Err: ErrNonPositive})
	}

	if cfg.Baseline.Retention < 1 {
		errs = append(errs, &FieldError{Field: "baseline.retention", Err: ErrNonPositive})
	}
	if cfg.Baseline.Hysteresis < 0 {
		errs = append(errs, &FieldError{Field: "baseline.hysteresis", Err: ErrNegative})
	}
	if cfg.Baseline.Dir != "" {
		if err := validatePath(cfg.Baseline.Dir); err != nil {
			errs = append(errs, &PathError{
				Field: "baseline.dir",
				Path:  cfg.Baseline.Dir,
				Err:   err,
			})
		}
	}

	for _, root := range cfg.Paths.BackupRoots {
		if err := validatePath(root); err != nil {
			errs = append(errs, &PathError{
				Field: "paths.backup_roots",
				Path:  root,
				Err:   err,
			})
		}
	}

	return errs
}

// validatePath checks if a path string is well-formed.
// It does not check if the path exists, only that it's syntactically valid.
func validatePath(path string) error {
	// Empty paths are valid (they mean "use default")
	if path == "" {
		return nil
	}

	// Check for null bytes which are never valid in paths
	if strings.ContainsRune(path, '\x00') {
		return ErrInvalidPath
	}

	// Clean the path and check it's not empty after cleaning
	cleaned := filepath.Clean(path)
	if cleaned == "" || cleaned == "." {
		return ErrInvalidPath
	}

	return nil
}

// FieldError represents a validation error for a specific config field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// PathError represents an error for a specific path field.
type PathError struct {
	Field string
	Path  string
	Err   error
}

func (e *PathError) Error() string {
	return e.Field + ": " + e.Err.Error() + ": " + e.Path
}

func (e *PathError) Unwrap() error {
	return e.Err
}

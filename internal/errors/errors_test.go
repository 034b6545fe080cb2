package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ExitError
		want string
	}{
		{
			name: "with underlying error",
			err:  NewExitError(ErrNotFound, ExitFailure),
			want: "not found",
		},
		{
			name: "with wrapped error",
			err:  NewExitError(fmt.Errorf("loading config: %w", ErrInvalidConfig), ExitFailure),
			want: "loading config: invalid configuration",
		},
		{
			name: "nil underlying error",
			err:  NewExitError(nil, ExitWarning),
			want: "exit code 1",
		},
		{
			name: "ok code with error",
			err:  NewExitError(errors.New("unexpected"), ExitOK),
			want: "unexpected",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("ExitError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExitError_Unwrap(t *testing.T) {
	tests := []struct {
		name       string
		err        *ExitError
		wantTarget error
		wantIs     bool
	}{
		{
			name:       "unwrap to sentinel error",
			err:        NewExitError(ErrNotFound, ExitFailure),
			wantTarget: ErrNotFound,
			wantIs:     true,
		},
		{
			name:       "unwrap through wrapped error",
			err:        NewExitError(fmt.Errorf("loading baseline: %w", ErrNotFound), ExitFailure),
			wantTarget: ErrNotFound,
			wantIs:     true,
		},
		{
			name:       "no match for different sentinel",
			err:        NewExitError(ErrNotFound, ExitFailure),
			wantTarget: ErrInvalidConfig,
			wantIs:     false,
		},
		{
			name:       "nil underlying error",
			err:        NewExitError(nil, ExitFailure),
			wantTarget: ErrNotFound,
			wantIs:     false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.wantTarget); got != tt.wantIs {
				t.Errorf("errors.Is() = %v, want %v", got, tt.wantIs)
			}
		})
	}
}

func TestExitError_As(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantAs   bool
	}{
		{
			name:     "direct ExitError",
			err:      NewExitError(ErrNotFound, ExitFailure),
			wantCode: ExitFailure,
			wantAs:   true,
		},
		{
			name:     "wrapped ExitError",
			err:      fmt.Errorf("command failed: %w", NewExitError(ErrInvalidConfig, ExitFailure)),
			wantCode: ExitFailure,
			wantAs:   true,
		},
		{
			name:     "critical health code",
			err:      NewExitError(errors.New("critical findings"), ExitCritical),
			wantCode: ExitCritical,
			wantAs:   true,
		},
		{
			name:     "non-ExitError",
			err:      ErrNotFound,
			wantCode: 0,
			wantAs:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var exitErr *ExitError
			gotAs := errors.As(tt.err, &exitErr)
			if gotAs != tt.wantAs {
				t.Errorf("errors.As() = %v, want %v", gotAs, tt.wantAs)
			}
			if gotAs && exitErr.Code != tt.wantCode {
				t.Errorf("ExitError.Code = %d, want %d", exitErr.Code, tt.wantCode)
			}
		})
	}
}

func TestExitCodeConstants(t *testing.T) {
	tests := []struct {
		name string
		code int
		want int
	}{
		{"ExitOK", ExitOK, 0},
		{"ExitWarning", ExitWarning, 1},
		{"ExitCritical", ExitCritical, 2},
		{"ExitFailure", ExitFailure, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.code, tt.want)
			}
		})
	}
}

func TestDelegates(t *testing.T) {
	base := New("base failure")

	wrapped := Wrap(base, "outer context")
	if !Is(wrapped, base) {
		t.Error("Is() should find base through Wrap")
	}
	if want := "outer context: base failure"; wrapped.Error() != want {
		t.Errorf("Wrap().Error() = %q, want %q", wrapped.Error(), want)
	}

	formatted := Wrapf(base, "checker %q", "system")
	if !Is(formatted, base) {
		t.Error("Is() should find base through Wrapf")
	}

	if got := Newf("count %d", 7).Error(); got != "count 7" {
		t.Errorf("Newf().Error() = %q, want %q", got, "count 7")
	}
}

func TestErrorWrappingChain(t *testing.T) {
	// Test a realistic error wrapping scenario
	baseErr := ErrInvalidConfig
	wrappedOnce := fmt.Errorf("parsing config file: %w", baseErr)
	wrappedTwice := fmt.Errorf("loading config: %w", wrappedOnce)
	exitErr := NewConfigError(wrappedTwice)

	// errors.Is should find the sentinel through the chain
	if !errors.Is(exitErr, ErrInvalidConfig) {
		t.Error("errors.Is() should find ErrInvalidConfig through wrapping chain")
	}

	// errors.As should find ExitError
	var target *ExitError
	if !errors.As(exitErr, &target) {
		t.Error("errors.As() should find ExitError")
	}
	if target.Code != ExitFailure {
		t.Errorf("ExitError.Code = %d, want %d", target.Code, ExitFailure)
	}

	// Error message should contain the full chain
	want := "loading config: parsing config file: invalid configuration"
	if got := exitErr.Error(); got != want {
		t.Errorf("ExitError.Error() = %q, want %q", got, want)
	}
}

func TestNewConstructors(t *testing.T) {
	t.Run("NewExitErrorWithSuggestion", func(t *testing.T) {
		err := errors.New("oops")
		e := NewExitErrorWithSuggestion(err, 123, "try this")
		if e.Err != err {
			t.Errorf("Err = %v, want %v", e.Err, err)
		}
		if e.Code != 123 {
			t.Errorf("Code = %d, want 123", e.Code)
		}
		if e.Suggestion != "try this" {
			t.Errorf("Suggestion = %q, want 'try this'", e.Suggestion)
		}
	})

	t.Run("NewToolError", func(t *testing.T) {
		err := errors.New("storage failed")
		e := NewToolError(err, "check disk space")
		if e.Code != ExitFailure {
			t.Errorf("Code = %d, want %d", e.Code, ExitFailure)
		}
		if e.Suggestion != "check disk space" {
			t.Errorf("Suggestion = %q, want 'check disk space'", e.Suggestion)
		}
	})

	t.Run("NewConfigError", func(t *testing.T) {
		err := errors.New("config error")
		e := NewConfigError(err)
		if e.Code != ExitFailure {
			t.Errorf("Code = %d, want %d", e.Code, ExitFailure)
		}
		if e.Suggestion != "Run: medic config show" {
			t.Errorf("Suggestion = %q, want 'Run: medic config show'", e.Suggestion)
		}
	})
}

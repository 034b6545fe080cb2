package config

import (
	"errors"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Run: RunSettings{
			Concurrency:    1,
			CheckerTimeout: 2 * time.Minute,
			ProbeTimeout:   30 * time.Second,
		},
		Baseline: BaselineSettings{
			Retention:  30,
			Hysteresis: 10,
		},
	}
}

func TestValidate_OK(t *testing.T) {
	if errs := Validate(validConfig()); len(errs) != 0 {
		t.Errorf("Validate() on valid config returned errors: %v", errs)
	}
}

func TestValidate_Nil(t *testing.T) {
	if errs := Validate(nil); len(errs) != 1 {
		t.Errorf("Validate(nil) returned %d errors, want 1", len(errs))
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		sentinel error
	}{
		{
			name:     "zero concurrency",
			mutate:   func(c *Config) { c.Run.Concurrency = 0 },
			sentinel: ErrNonPositive,
		},
		{
			name:     "zero checker timeout",
			mutate:   func(c *Config) { c.Run.CheckerTimeout = 0 },
			sentinel: ErrNonPositive,
		},
		{
			name:     "negative hysteresis",
			mutate:   func(c *Config) { c.Baseline.Hysteresis = -1 },
			sentinel: ErrNegative,
		},
		{
			name:     "zero retention",
			mutate:   func(c *Config) { c.Baseline.Retention = 0 },
			sentinel: ErrNonPositive,
		},
		{
			name:     "unknown category",
			mutate:   func(c *Config) { c.Checks = map[string]bool{"bogus": true} },
			sentinel: ErrUnknownCategory,
		},
		{
			name:     "null byte in baseline dir",
			mutate:   func(c *Config) { c.Baseline.Dir = "/var/\x00lib" },
			sentinel: ErrInvalidPath,
		},
		{
			name:     "null byte in backup root",
			mutate:   func(c *Config) { c.Paths.BackupRoots = []string{"/bad\x00path"} },
			sentinel: ErrInvalidPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			errs := Validate(cfg)
			if len(errs) == 0 {
				t.Fatal("Validate() returned no errors, want at least one")
			}

			found := false
			for _, err := range errs {
				if errors.Is(err, tt.sentinel) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("Validate() errors %v missing sentinel %v", errs, tt.sentinel)
			}
		})
	}
}

func TestValidate_KnownCategoriesPass(t *testing.T) {
	cfg := validConfig()
	cfg.Checks = map[string]bool{}
	for _, category := range Categories {
		cfg.Checks[category] = true
	}

	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("Validate() with all known categories returned errors: %v", errs)
	}
}

// Package config provides configuration management for the medic CLI.
//
// # Configuration File
//
// The config file is searched as medic.yaml (or medic.toml) in the current
// directory, ~/.config/medic/, and /etc/medic/, in that order. Every key is
// optional; built-in defaults cover a stock Debian-family host.
//
//	checks:
//	  system: true
//	  panel: false
//	run:
//	  concurrency: 4
//	  checker_timeout: 120s
//	baseline:
//	  retention: 30
//	  hysteresis: 10
//
// # Environment Variables
//
// Any key can be overridden with a MEDIC_ environment variable, e.g.
// MEDIC_RUN_CONCURRENCY=4 or MEDIC_BASELINE_DIR=/var/lib/medic.
//
// # Loading Configuration
//
// Call [Init] once at startup, then [Load]:
//
//	config.Init()
//	cfg, err := config.Load(flagPath)
//	if err != nil {
//	    return fmt.Errorf("loading config: %w", err)
//	}
//
// With an empty path, Load falls back to defaults when no file exists;
// an explicit path that does not exist is an error.
//
// # Validation
//
// Use [Validate] to check a loaded configuration:
//
//	errs := config.Validate(cfg)
//	for _, e := range errs {
//	    fmt.Println(e)
//	}
package config

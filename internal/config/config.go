// Package config provides configuration management for medic using Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/servermedic/medic/internal/paths"
)

// AppName is the application name used for config file naming.
const AppName = "medic"

// Categories lists every checker category in report order. The checks
// registry builds checkers in this order, and the enabled map and viper
// defaults are keyed by these names.
var Categories = []string{
	"system",
	"security",
	"network",
	"processes",
	"logs",
	"backup",
	"tls",
	"email",
	"database",
	"packages",
	"cron",
	"webapp",
	"panel",
	"antivirus",
}

// Config represents the top-level configuration structure.
type Config struct {
	Checks    map[string]bool  `mapstructure:"checks" yaml:"checks"`
	Run       RunSettings      `mapstructure:"run" yaml:"run"`
	Baseline  BaselineSettings `mapstructure:"baseline" yaml:"baseline"`
	Paths     PathSettings     `mapstructure:"paths" yaml:"paths"`
	Security  SecuritySettings `mapstructure:"security" yaml:"security"`
	Network   NetworkSettings  `mapstructure:"network" yaml:"network"`
	Processes ProcessSettings  `mapstructure:"processes" yaml:"processes"`
	Webapp    WebappSettings   `mapstructure:"webapp" yaml:"webapp"`
	Email     EmailSettings    `mapstructure:"email" yaml:"email"`
}

// RunSettings controls checker execution.
type RunSettings struct {
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`
	CheckerTimeout time.Duration `mapstructure:"checker_timeout" yaml:"checker_timeout"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
}

// BaselineSettings controls snapshot persistence and comparison.
type BaselineSettings struct {
	// Dir overrides the default snapshot directory when non-empty.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// Retention is the number of timestamped snapshots prune keeps.
	Retention int `mapstructure:"retention" yaml:"retention"`
	// Hysteresis is the score dead band for degraded/improved detection.
	Hysteresis int `mapstructure:"hysteresis" yaml:"hysteresis"`
}

// PathSettings points checkers at host-specific file locations.
type PathSettings struct {
	AuthLog      string   `mapstructure:"auth_log" yaml:"auth_log"`
	MailLog      string   `mapstructure:"mail_log" yaml:"mail_log"`
	WebErrorLogs []string `mapstructure:"web_error_logs" yaml:"web_error_logs"`
	PanelLog     string   `mapstructure:"panel_log" yaml:"panel_log"`
	BackupRoots  []string `mapstructure:"backup_roots" yaml:"backup_roots"`
	CertPaths    []string `mapstructure:"cert_paths" yaml:"cert_paths"`
	LogDirs      []string `mapstructure:"log_dirs" yaml:"log_dirs"`
}

// SecuritySettings configures the security checker.
type SecuritySettings struct {
	AllowedPorts []int    `mapstructure:"allowed_ports" yaml:"allowed_ports"`
	ScanDirs     []string `mapstructure:"scan_dirs" yaml:"scan_dirs"`
	// Exclude holds gitignore-style patterns applied to the
	// world-writable file scan.
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
}

// NetworkSettings configures the network checker.
type NetworkSettings struct {
	ResolveNames  []string `mapstructure:"resolve_names" yaml:"resolve_names"`
	ConnectProbes []string `mapstructure:"connect_probes" yaml:"connect_probes"`
}

// ProcessSettings configures the processes checker.
type ProcessSettings struct {
	RequiredServices []string `mapstructure:"required_services" yaml:"required_services"`
}

// WebappSettings configures the webapp checker.
type WebappSettings struct {
	Endpoints []string `mapstructure:"endpoints" yaml:"endpoints"`
}

// EmailSettings configures SMTP delivery of reports.
type EmailSettings struct {
	SMTPHost     string   `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort     int      `mapstructure:"smtp_port" yaml:"smtp_port"`
	SMTPUser     string   `mapstructure:"smtp_user" yaml:"smtp_user"`
	SMTPPassword string   `mapstructure:"smtp_password" yaml:"smtp_password"`
	From         string   `mapstructure:"from" yaml:"from"`
	To           []string `mapstructure:"to" yaml:"to"`
}

// CheckEnabled reports whether the named checker category is enabled.
// Categories absent from the checks map default to enabled.
func (c *Config) CheckEnabled(name string) bool {
	if c == nil || c.Checks == nil {
		return true
	}
	enabled, ok := c.Checks[name]
	if !ok {
		return true
	}
	return enabled
}

// BaselineDir returns the configured snapshot directory, falling back to
// the XDG state location.
func (c *Config) BaselineDir() string {
	if c != nil && c.Baseline.Dir != "" {
		return c.Baseline.Dir
	}
	return paths.BaselineDir()
}

// Default returns the built-in configuration. It mirrors the viper defaults
// registered by Init so code paths that never touch viper (tests, config
// rendering) see the same values.
func Default() *Config {
	checks := make(map[string]bool, len(Categories))
	for _, category := range Categories {
		checks[category] = true
	}
	return &Config{
		Checks: checks,
		Run: RunSettings{
			Concurrency:    1,
			CheckerTimeout: 120 * time.Second,
			ProbeTimeout:   30 * time.Second,
		},
		Baseline: BaselineSettings{
			Retention:  30,
			Hysteresis: 10,
		},
		Paths: PathSettings{
			AuthLog:      "/var/log/auth.log",
			MailLog:      "/var/log/mail.log",
			WebErrorLogs: []string{"/var/log/nginx/error.log"},
			PanelLog:     "/var/log/plesk/panel.log",
			BackupRoots:  []string{"/var/backups"},
			CertPaths:    []string{},
			LogDirs:      []string{"/var/log"},
		},
		Security: SecuritySettings{
			AllowedPorts: []int{22, 25, 80, 443},
			ScanDirs:     []string{"/etc", "/var/www"},
			Exclude:      []string{},
		},
		Network: NetworkSettings{
			ResolveNames:  []string{"example.com"},
			ConnectProbes: []string{},
		},
		Processes: ProcessSettings{
			RequiredServices: []string{"sshd", "cron"},
		},
		Webapp: WebappSettings{
			Endpoints: []string{},
		},
		Email: EmailSettings{
			SMTPPort: 587,
			To:       []string{},
		},
	}
}

// Init initializes Viper with default configuration.
// Call this once at application startup before accessing config values.
func Init() {
	// Config file settings. No explicit type: viper detects yaml or toml
	// from the file extension.
	viper.SetConfigName(AppName)

	// Search paths (in order of precedence)
	viper.AddConfigPath(".") // Current directory
	viper.AddConfigPath(paths.ConfigDir())
	viper.AddConfigPath(paths.SystemConfigDir)

	// Environment variable support
	viper.SetEnvPrefix("MEDIC")
	viper.AutomaticEnv()

	// Defaults
	for _, category := range Categories {
		viper.SetDefault("checks."+category, true)
	}

	viper.SetDefault("run.concurrency", 1)
	viper.SetDefault("run.checker_timeout", "120s")
	viper.SetDefault("run.probe_timeout", "30s")

	viper.SetDefault("baseline.dir", "")
	viper.SetDefault("baseline.retention", 30)
	viper.SetDefault("baseline.hysteresis", 10)

	viper.SetDefault("paths.auth_log", "/var/log/auth.log")
	viper.SetDefault("paths.mail_log", "/var/log/mail.log")
	viper.SetDefault("paths.web_error_logs", []string{"/var/log/nginx/error.log"})
	viper.SetDefault("paths.panel_log", "/var/log/plesk/panel.log")
	viper.SetDefault("paths.backup_roots", []string{"/var/backups"})
	viper.SetDefault("paths.cert_paths", []string{})
	viper.SetDefault("paths.log_dirs", []string{"/var/log"})

	viper.SetDefault("security.allowed_ports", []int{22, 25, 80, 443})
	viper.SetDefault("security.scan_dirs", []string{"/etc", "/var/www"})
	viper.SetDefault("security.exclude", []string{})

	viper.SetDefault("network.resolve_names", []string{"example.com"})
	viper.SetDefault("network.connect_probes", []string{})

	viper.SetDefault("processes.required_services", []string{"sshd", "cron"})

	viper.SetDefault("webapp.endpoints", []string{})

	viper.SetDefault("email.smtp_host", "")
	viper.SetDefault("email.smtp_port", 587)
	viper.SetDefault("email.smtp_user", "")
	viper.SetDefault("email.smtp_password", "")
	viper.SetDefault("email.from", "")
	viper.SetDefault("email.to", []string{})
}

// Load reads the configuration file.
// If path is provided, it reads from that specific file.
// If path is empty, it searches in the default locations.
// Returns the loaded configuration or default values if no file is found (when path is empty).
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		// If config file not found...
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// If user specified a path, this is an error
			if path != "" {
				return nil, fmt.Errorf("config file not found at %s: %w", path, err)
			}
			// Otherwise (implicit load), it's fine to use defaults
		} else {
			// Real read error (parsing, permissions, etc)
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

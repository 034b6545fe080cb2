// Package checks assembles the checker fleet. The registry is the only
// place that knows every concrete checker; everything downstream works
// against the check.Checker interface.
package checks

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/checks/antivirus"
	"github.com/servermedic/medic/internal/checks/backup"
	"github.com/servermedic/medic/internal/checks/cron"
	"github.com/servermedic/medic/internal/checks/database"
	"github.com/servermedic/medic/internal/checks/logs"
	"github.com/servermedic/medic/internal/checks/mail"
	"github.com/servermedic/medic/internal/checks/network"
	"github.com/servermedic/medic/internal/checks/packages"
	"github.com/servermedic/medic/internal/checks/panel"
	"github.com/servermedic/medic/internal/checks/processes"
	"github.com/servermedic/medic/internal/checks/security"
	"github.com/servermedic/medic/internal/checks/system"
	"github.com/servermedic/medic/internal/checks/tls"
	"github.com/servermedic/medic/internal/checks/webapp"
	"github.com/servermedic/medic/internal/config"
	"github.com/servermedic/medic/internal/errors"
	"github.com/servermedic/medic/internal/probe"
)

// Build constructs every checker enabled in cfg, in fixed report order.
func Build(cfg *config.Config, log *slog.Logger, runner probe.Runner) []check.Checker {
	all := []check.Checker{
		system.New(log, runner),
		security.New(log, runner, cfg.Security, cfg.Paths.AuthLog),
		network.New(log, runner, cfg.Network),
		processes.New(log, runner, cfg.Processes),
		logs.New(log, runner, cfg.Paths.LogDirs),
		backup.New(log, runner, cfg.Paths.BackupRoots),
		tls.New(log, runner, cfg.Paths.CertPaths, cfg.Webapp.Endpoints),
		mail.New(log, runner, cfg.Paths.MailLog),
		database.New(log, runner),
		packages.New(log, runner),
		cron.New(log, runner),
		webapp.New(log, runner, cfg.Webapp.Endpoints, cfg.Paths.WebErrorLogs),
		panel.New(log, runner, cfg.Paths.PanelLog),
		antivirus.New(log, runner),
	}

	enabled := make([]check.Checker, 0, len(all))
	for _, c := range all {
		if cfg.CheckEnabled(c.Category()) {
			enabled = append(enabled, c)
		}
	}
	return enabled
}

// Only filters checkers down to the named categories, preserving fleet
// order. An empty list keeps everything. Unknown names are an error so a
// typo in --only does not silently skip a check.
func Only(checkers []check.Checker, categories []string) ([]check.Checker, error) {
	if len(categories) == 0 {
		return checkers, nil
	}

	want := make(map[string]bool, len(categories))
	for _, name := range categories {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			want[name] = true
		}
	}

	out := make([]check.Checker, 0, len(want))
	for _, c := range checkers {
		if want[c.Category()] {
			out = append(out, c)
			delete(want, c.Category())
		}
	}
	if len(want) > 0 {
		unknown := make([]string, 0, len(want))
		for name := range want {
			unknown = append(unknown, name)
		}
		sort.Strings(unknown)
		return nil, errors.Newf("unknown check category %q (valid: %s)",
			strings.Join(unknown, ", "), strings.Join(config.Categories, ", "))
	}
	return out, nil
}

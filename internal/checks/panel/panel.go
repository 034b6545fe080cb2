// Package panel checks hosting control panel health: license state, panel
// services, panel log errors, scheduled task failures, and extension state.
//
// The whole checker gates on the panel CLI being installed. Hosts without a
// control panel record a single UNKNOWN result and move on.
package panel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/probe"
)

// Category is the report key for this checker.
const Category = "panel"

const (
	panelErrorWarn    = 50
	panelCriticalCrit = 10

	failedTaskWarn = 0
	failedTaskCrit = 5

	panelLogTailBytes = 256 * 1024
)

// panelServices are the units the panel needs to serve its UI and API.
var panelServices = []string{"sw-engine", "sw-cp-server"}

// criticalExtensions must stay active; an inactive one usually means broken
// certificate renewal or site management.
var criticalExtensions = []string{"letsencrypt", "wp-toolkit", "advisor", "security-advisor"}

// Checker inspects control panel health.
type Checker struct {
	*check.Collector
	probe probe.Runner
	log   *slog.Logger

	panelLog string
}

// New returns the panel checker. panelLog is the panel's own log file.
func New(log *slog.Logger, runner probe.Runner, panelLog string) *Checker {
	return &Checker{
		Collector: check.NewCollector(Category, log),
		probe:     runner,
		log:       log,
		panelLog:  panelLog,
	}
}

// Run executes all panel sub-checks.
func (c *Checker) Run(ctx context.Context) ([]check.Result, error) {
	c.Reset()

	if err := ctx.Err(); err != nil {
		return c.Results(), err
	}

	if _, err := c.probe.LookPath("plesk"); err != nil {
		c.AddUnknown("panel_cli", "Control panel CLI not found")
		return c.Results(), nil
	}

	subs := []func(context.Context){
		c.checkLicense,
		c.checkServices,
		c.checkPanelLog,
		c.checkScheduler,
		c.checkExtensions,
	}
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return c.Results(), err
		}
		sub(ctx)
	}

	return c.Results(), nil
}

func (c *Checker) checkLicense(ctx context.Context) {
	out, err := c.probe.Run(ctx, "plesk", "bin", "license", "--info")
	if err != nil || out.ExitCode != 0 {
		c.AddUnknown("panel_license", "Could not check license status")
		return
	}

	lower := strings.ToLower(out.Text())
	switch {
	case strings.Contains(lower, "expired"):
		c.AddCritical("panel_license", "Panel license has expired", nil, 95)
	case strings.Contains(lower, "invalid"):
		c.AddCritical("panel_license", "Panel license is invalid", nil, 90)
	case strings.Contains(lower, "status: active") || strings.Contains(lower, "valid"):
		c.AddOK("panel_license", "Panel license is active", nil)
	default:
		snippet := lower
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		c.AddWarning("panel_license", "Panel license status unclear",
			check.Details{"output": snippet}, 60)
	}
}

func (c *Checker) checkServices(ctx context.Context) {
	var down []string
	probed := false
	for _, svc := range panelServices {
		out, err := c.probe.Run(ctx, "systemctl", "is-active", svc)
		if err != nil {
			continue
		}
		probed = true
		if strings.TrimSpace(out.Text()) != "active" {
			down = append(down, svc)
		}
	}
	if !probed {
		return
	}

	if len(down) == 0 {
		c.AddOK("panel_services", "Panel services are running",
			check.Details{"services": panelServices})
		return
	}
	c.AddCritical("panel_services",
		fmt.Sprintf("Panel service(s) down: %s", strings.Join(down, ", ")),
		check.Details{"down": down}, 85)
}

func (c *Checker) checkPanelLog(_ context.Context) {
	data, err := probe.TailFileString(c.panelLog, panelLogTailBytes)
	if err != nil {
		return
	}

	var errors, criticals []string
	for _, line := range strings.Split(data, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "[error]") || strings.Contains(lower, "error:") {
			errors = append(errors, strings.TrimSpace(line))
		}
		if strings.Contains(lower, "[critical]") || strings.Contains(lower, "[crit]") {
			criticals = append(criticals, strings.TrimSpace(line))
		}
	}

	switch {
	case len(criticals) > panelCriticalCrit:
		c.AddCritical("panel_log_errors",
			fmt.Sprintf("Found %d critical errors in panel log", len(criticals)),
			check.Details{"critical_count": len(criticals), "sample": firstN(criticals, 5)}, 80)
	case len(errors) > panelErrorWarn:
		c.AddWarning("panel_log_errors",
			fmt.Sprintf("Found %d errors in panel log", len(errors)),
			check.Details{"error_count": len(errors), "sample": firstN(errors, 5)}, 55)
	default:
		c.AddOK("panel_log_errors",
			fmt.Sprintf("Panel log errors within normal range (%d)", len(errors)),
			check.Details{"error_count": len(errors)})
	}
}

func (c *Checker) checkScheduler(ctx context.Context) {
	out, err := c.probe.Run(ctx, "plesk", "bin", "scheduler", "--list")
	if err != nil || out.ExitCode != 0 {
		return
	}

	var failed []string
	taskID := ""
	for _, raw := range out.Lines() {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "Task ID:"):
			taskID = strings.TrimSpace(strings.TrimPrefix(line, "Task ID:"))
		case strings.HasPrefix(line, "Status:") && taskID != "":
			status := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "Status:")))
			if status == "failed" || status == "error" || status == "suspended" {
				failed = append(failed, taskID)
			}
			taskID = ""
		}
	}

	details := check.Details{"failed_tasks": failed}
	switch {
	case len(failed) > failedTaskCrit:
		c.AddCritical("panel_scheduler",
			fmt.Sprintf("%d scheduled tasks have failures", len(failed)), details, 75)
	case len(failed) > failedTaskWarn:
		c.AddWarning("panel_scheduler",
			fmt.Sprintf("%d scheduled task(s) have failures", len(failed)), details, 50)
	default:
		c.AddOK("panel_scheduler", "All scheduled tasks running normally", nil)
	}
}

func (c *Checker) checkExtensions(ctx context.Context) {
	out, err := c.probe.Run(ctx, "plesk", "bin", "extension", "--list")
	if err != nil || out.ExitCode != 0 {
		return
	}

	total, active := 0, 0
	var inactiveCritical []string
	for _, line := range out.Lines() {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "-") {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 2 {
			continue
		}
		total++
		id := fields[0]
		lower := strings.ToLower(trimmed)
		if strings.Contains(lower, "inactive") {
			for _, crit := range criticalExtensions {
				if id == crit {
					inactiveCritical = append(inactiveCritical, id)
					break
				}
			}
		} else if strings.Contains(lower, "active") {
			active++
		}
	}
	if total == 0 {
		return
	}

	if len(inactiveCritical) > 0 {
		c.AddCritical("critical_extensions",
			fmt.Sprintf("%d critical extension(s) are inactive", len(inactiveCritical)),
			check.Details{"extensions": inactiveCritical}, 85)
	}
	c.AddOK("extensions_overview",
		fmt.Sprintf("%d/%d extensions active", active, total),
		check.Details{"total": total, "active": active})
}

func firstN(lines []string, n int) []string {
	if len(lines) > n {
		return lines[:n]
	}
	return lines
}

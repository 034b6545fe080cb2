// Package processes checks the process table: required services, runaway
// CPU consumers, table size, zombie parentage, and failed systemd units.
package processes

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/config"
	"github.com/servermedic/medic/internal/probe"
)

// Category is the report key for this checker.
const Category = "processes"

const (
	processCountWarn = 600
	processCountCrit = 2000

	failedUnitWarn = 1
	failedUnitCrit = 5

	// A process above this CPU share counts as a runaway.
	cpuHogPct = 90.0

	topConsumers = 10
)

// Checker inspects the process table and service state.
type Checker struct {
	*check.Collector
	probe probe.Runner
	log   *slog.Logger

	settings config.ProcessSettings
}

// New returns the processes checker.
func New(log *slog.Logger, runner probe.Runner, settings config.ProcessSettings) *Checker {
	return &Checker{
		Collector: check.NewCollector(Category, log),
		probe:     runner,
		log:       log,
		settings:  settings,
	}
}

// Run executes all process sub-checks.
func (c *Checker) Run(ctx context.Context) ([]check.Result, error) {
	c.Reset()

	subs := []func(context.Context){
		c.checkRequiredServices,
		c.checkTopCPU,
		c.checkProcessCount,
		c.checkZombieParents,
		c.checkFailedUnits,
	}
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return c.Results(), err
		}
		sub(ctx)
	}
	return c.Results(), nil
}

func (c *Checker) checkRequiredServices(ctx context.Context) {
	if len(c.settings.RequiredServices) == 0 {
		return
	}
	if _, err := c.probe.LookPath("systemctl"); err != nil {
		c.AddUnknown("required_services", "systemctl not available")
		return
	}

	active := 0
	for _, svc := range c.settings.RequiredServices {
		out, err := c.probe.Run(ctx, "systemctl", "is-active", svc)
		if err != nil {
			c.AddUnknown("service_"+svc, "Could not query service "+svc)
			continue
		}
		state := out.Text()
		if state == "active" {
			active++
			continue
		}
		c.AddCritical("service_"+svc,
			fmt.Sprintf("Required service %s is %s", svc, state),
			check.Details{"service": svc, "state": state}, 85)
	}
	if active == len(c.settings.RequiredServices) {
		c.AddOK("required_services",
			fmt.Sprintf("All %d required services are active", active),
			check.Details{"services": c.settings.RequiredServices})
	}
}

func (c *Checker) checkTopCPU(ctx context.Context) {
	out, err := c.probe.Run(ctx, "ps", "aux", "--sort=-%cpu")
	if err != nil || out.ExitCode != 0 {
		c.AddUnknown("top_cpu", "Could not list processes by CPU")
		return
	}

	lines := skipHeader(out.Lines())
	if len(lines) > topConsumers {
		lines = lines[:topConsumers]
	}

	var hogs, top []string
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 11 {
			continue
		}
		pct, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			continue
		}
		comm := fields[10]
		top = append(top, fmt.Sprintf("%s (%.1f%%)", comm, pct))
		if pct > cpuHogPct {
			hogs = append(hogs, fmt.Sprintf("%s (pid %s, %.1f%%)", comm, fields[1], pct))
		}
	}

	details := check.Details{"top": top, "runaway": hogs}
	switch {
	case len(hogs) > 3:
		c.AddCritical("top_cpu",
			fmt.Sprintf("%d processes above %.0f%% CPU", len(hogs), cpuHogPct), details, 75)
	case len(hogs) > 0:
		c.AddWarning("top_cpu",
			fmt.Sprintf("%d process(es) above %.0f%% CPU", len(hogs), cpuHogPct), details, 60)
	default:
		c.AddOK("top_cpu", "No runaway CPU consumers", details)
	}
}

func (c *Checker) checkProcessCount(ctx context.Context) {
	out, err := c.probe.Run(ctx, "ps", "-e", "--no-headers")
	if err != nil || out.ExitCode != 0 {
		c.AddUnknown("process_count", "Could not count processes")
		return
	}

	count := len(out.Lines())
	details := check.Details{"count": count}
	score := check.ScoreFromCount(count, processCountWarn, processCountCrit)
	switch {
	case count >= processCountCrit:
		c.AddCritical("process_count",
			fmt.Sprintf("Process table is very large: %d processes", count), details, score)
	case count >= processCountWarn:
		c.AddWarning("process_count",
			fmt.Sprintf("High process count: %d", count), details, score)
	default:
		c.AddOK("process_count", fmt.Sprintf("Process count: %d", count), details)
	}
}

func (c *Checker) checkZombieParents(ctx context.Context) {
	out, err := c.probe.Run(ctx, "ps", "axo", "pid,ppid,stat,comm")
	if err != nil || out.ExitCode != 0 {
		return
	}

	var zombies []string
	parents := make(map[string]bool)
	for _, line := range skipHeader(out.Lines()) {
		fields := strings.Fields(line)
		if len(fields) < 4 || !strings.HasPrefix(fields[2], "Z") {
			continue
		}
		zombies = append(zombies, fmt.Sprintf("%s (pid %s, ppid %s)", fields[3], fields[0], fields[1]))
		parents[fields[1]] = true
	}

	if len(zombies) == 0 {
		c.AddOK("zombie_parents", "No zombies awaiting reaping", nil)
		return
	}
	sample := zombies
	if len(sample) > 10 {
		sample = sample[:10]
	}
	// Scoring lives with the system checker's zombie count; this result
	// names the parents that are not reaping.
	c.AddOK("zombie_parents",
		fmt.Sprintf("%d zombies awaiting reaping by %d parent(s)", len(zombies), len(parents)),
		check.Details{"count": len(zombies), "zombies": sample})
}

func (c *Checker) checkFailedUnits(ctx context.Context) {
	if _, err := c.probe.LookPath("systemctl"); err != nil {
		return
	}
	out, err := c.probe.Run(ctx, "systemctl", "--failed", "--no-legend", "--plain")
	if err != nil || out.ExitCode != 0 {
		c.AddUnknown("failed_units", "Could not list failed units")
		return
	}

	var units []string
	for _, line := range out.Lines() {
		fields := strings.Fields(line)
		if len(fields) > 0 {
			units = append(units, fields[0])
		}
	}

	count := len(units)
	details := check.Details{"count": count, "units": units}
	score := check.ScoreFromCount(count, failedUnitWarn, failedUnitCrit)
	switch {
	case count >= failedUnitCrit:
		c.AddCritical("failed_units",
			fmt.Sprintf("%d systemd units have failed", count), details, score)
	case count >= failedUnitWarn:
		c.AddWarning("failed_units",
			fmt.Sprintf("%d systemd unit(s) failed: %s", count, strings.Join(units, ", ")), details, score)
	default:
		c.AddOK("failed_units", "No failed systemd units", details)
	}
}

func skipHeader(lines []string) []string {
	if len(lines) <= 1 {
		return nil
	}
	return lines[1:]
}

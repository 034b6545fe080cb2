// Package packages checks the package manager state: pending and security
// updates, broken installs, held packages, recent activity, and repository
// refresh errors.
package packages

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/probe"
)

// Category is the report key for this checker.
const Category = "packages"

const (
	updatesWarn = 10
	updatesCrit = 50

	securityWarn = 1
	securityCrit = 10

	termLogTailBytes = 256 * 1024
)

// Checker inspects package manager health.
type Checker struct {
	*check.Collector
	probe probe.Runner
	log   *slog.Logger

	aptHistoryPath string
	aptTermLogPath string
	dnfLogPath     string
}

// New returns the packages checker.
func New(log *slog.Logger, runner probe.Runner) *Checker {
	return &Checker{
		Collector:      check.NewCollector(Category, log),
		probe:          runner,
		log:            log,
		aptHistoryPath: "/var/log/apt/history.log",
		aptTermLogPath: "/var/log/apt/term.log",
		dnfLogPath:     "/var/log/dnf.log",
	}
}

// Run executes all package sub-checks for the host's package manager.
func (c *Checker) Run(ctx context.Context) ([]check.Result, error) {
	c.Reset()

	if err := ctx.Err(); err != nil {
		return c.Results(), err
	}

	if _, err := c.probe.LookPath("apt"); err == nil {
		c.runApt(ctx)
		return c.Results(), nil
	}
	if _, err := c.probe.LookPath("dnf"); err == nil {
		c.runDnf(ctx)
		return c.Results(), nil
	}

	c.AddUnknown("pending_updates", "No supported package manager found")
	return c.Results(), nil
}

func (c *Checker) runApt(ctx context.Context) {
	subs := []func(context.Context){
		c.checkAptUpdates,
		c.checkBrokenPackages,
		c.checkHeldPackages,
		c.checkRepoErrors,
	}
	for _, sub := range subs {
		if ctx.Err() != nil {
			return
		}
		sub(ctx)
	}
	c.checkActivity(c.aptHistoryPath)
}

func (c *Checker) runDnf(ctx context.Context) {
	c.checkDnfUpdates(ctx)
	c.checkActivity(c.dnfLogPath)
}

func (c *Checker) checkAptUpdates(ctx context.Context) {
	out, err := c.probe.Run(ctx, "apt", "list", "--upgradable")
	if err != nil || out.ExitCode != 0 {
		c.AddUnknown("pending_updates", "Could not list upgradable packages")
		return
	}

	var total, security int
	var sample []string
	for _, line := range out.Lines() {
		if strings.HasPrefix(line, "Listing") || !strings.Contains(line, "/") {
			continue
		}
		total++
		if strings.Contains(line, "-security") {
			security++
		}
		if len(sample) < 10 {
			sample = append(sample, strings.SplitN(line, "/", 2)[0])
		}
	}

	c.scoreUpdates(total, security, sample)
}

func (c *Checker) checkDnfUpdates(ctx context.Context) {
	out, err := c.probe.Run(ctx, "dnf", "-q", "check-update")
	if err != nil {
		c.AddUnknown("pending_updates", "Could not list pending updates")
		return
	}
	// Exit 100 means updates are available, 0 means none.
	if out.ExitCode != 0 && out.ExitCode != 100 {
		c.AddUnknown("pending_updates", "Could not list pending updates")
		return
	}

	var total int
	var sample []string
	for _, line := range out.Lines() {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		total++
		if len(sample) < 10 {
			sample = append(sample, fields[0])
		}
	}

	security := 0
	if sec, err := c.probe.Run(ctx, "dnf", "-q", "updateinfo", "list", "security"); err == nil && sec.ExitCode == 0 {
		security = len(sec.Lines())
	}

	c.scoreUpdates(total, security, sample)
}

func (c *Checker) scoreUpdates(total, security int, sample []string) {
	details := check.Details{"total": total, "security": security, "sample": sample}

	score := check.ScoreFromCount(total, updatesWarn, updatesCrit)
	switch {
	case total >= updatesCrit:
		c.AddCritical("pending_updates",
			fmt.Sprintf("%d packages can be upgraded", total), details, score)
	case total >= updatesWarn:
		c.AddWarning("pending_updates",
			fmt.Sprintf("%d packages can be upgraded", total), details, score)
	default:
		c.AddOK("pending_updates",
			fmt.Sprintf("Pending updates: %d", total), details)
	}

	secDetails := check.Details{"security": security}
	secScore := check.ScoreFromCount(security, securityWarn, securityCrit)
	switch {
	case security >= securityCrit:
		c.AddCritical("security_updates",
			fmt.Sprintf("%d security updates are pending", security), secDetails, secScore)
	case security >= securityWarn:
		c.AddWarning("security_updates",
			fmt.Sprintf("%d security update(s) pending", security), secDetails, secScore)
	default:
		c.AddOK("security_updates", "No pending security updates", secDetails)
	}
}

func (c *Checker) checkBrokenPackages(ctx context.Context) {
	out, err := c.probe.Run(ctx, "dpkg", "--audit")
	if err != nil {
		return
	}

	lines := out.Lines()
	if len(lines) == 0 {
		c.AddOK("broken_packages", "No partially installed or broken packages", nil)
		return
	}
	sample := lines
	if len(sample) > 10 {
		sample = sample[:10]
	}
	c.AddWarning("broken_packages",
		"dpkg reports partially installed or broken packages",
		check.Details{"lines": len(lines), "sample": sample}, 55)
}

func (c *Checker) checkHeldPackages(ctx context.Context) {
	out, err := c.probe.Run(ctx, "apt-mark", "showhold")
	if err != nil || out.ExitCode != 0 {
		return
	}

	held := out.Lines()
	if len(held) == 0 {
		c.AddOK("held_packages", "No packages on hold", nil)
		return
	}
	// Holds are usually deliberate; report them without raising severity.
	c.AddOK("held_packages",
		fmt.Sprintf("%d package(s) on hold: %s", len(held), strings.Join(held, ", ")),
		check.Details{"held": held})
}

func (c *Checker) checkRepoErrors(_ context.Context) {
	data, err := probe.TailFileString(c.aptTermLogPath, termLogTailBytes)
	if err != nil {
		return
	}

	var errLines []string
	for _, line := range strings.Split(data, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "E: ") {
			errLines = append(errLines, trimmed)
		}
	}
	if len(errLines) == 0 {
		c.AddOK("repo_errors", "No recent package manager errors", nil)
		return
	}

	sample := errLines
	if len(sample) > 5 {
		sample = sample[:5]
	}
	c.AddWarning("repo_errors",
		fmt.Sprintf("Recent package manager errors: %d", len(errLines)),
		check.Details{"count": len(errLines), "recent": sample}, 60)
}

func (c *Checker) checkActivity(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	days := int(time.Since(info.ModTime()).Hours() / 24)
	c.AddOK("package_activity",
		fmt.Sprintf("Last package activity %d day(s) ago", days),
		check.Details{"log": path, "days_ago": days})
}

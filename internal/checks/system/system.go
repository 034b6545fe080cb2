// Package system checks host fundamentals: uptime, load, memory, swap,
// disk and inode usage, zombie processes, RAID state, and kernel errors.
package system

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/probe"
)

// Category is the report key for this checker.
const Category = "system"

// Warning/critical thresholds.
const (
	loadPerCPUWarn = 2.0
	loadPerCPUCrit = 5.0

	memoryWarnPct = 80.0
	memoryCritPct = 95.0

	swapWarnPct = 60.0
	swapCritPct = 90.0

	diskWarnPct = 80
	diskCritPct = 90

	inodeWarnPct = 80
	inodeCritPct = 90

	zombieWarn = 5
	zombieCrit = 20

	dmesgWarn = 1
	dmesgCrit = 10

	recentBootWindow = time.Hour

	// Filesystems below this size are snap mounts and boot partitions,
	// not worth alerting on.
	minFilesystemBytes = 100 * 1024 * 1024
)

// Checker inspects core system health.
type Checker struct {
	*check.Collector
	probe probe.Runner
	log   *slog.Logger

	rebootMarker string
	mdstatPath   string
}

// New returns the system checker.
func New(log *slog.Logger, runner probe.Runner) *Checker {
	return &Checker{
		Collector:    check.NewCollector(Category, log),
		probe:        runner,
		log:          log,
		rebootMarker: "/var/run/reboot-required",
		mdstatPath:   "/proc/mdstat",
	}
}

// Run executes all system sub-checks.
func (c *Checker) Run(ctx context.Context) ([]check.Result, error) {
	c.Reset()

	subs := []func(context.Context){
		c.checkUptime,
		c.checkLoadAverage,
		c.checkMemory,
		c.checkSwap,
		c.checkDiskSpace,
		c.checkInodeUsage,
		c.checkZombies,
		c.checkRebootRequired,
		c.checkRAID,
		c.checkDmesgErrors,
	}
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return c.Results(), err
		}
		sub(ctx)
	}
	return c.Results(), nil
}

func (c *Checker) checkUptime(ctx context.Context) {
	out, err := c.probe.Run(ctx, "uptime", "-s")
	if err != nil || out.ExitCode != 0 {
		c.AddUnknown("uptime", "Could not determine uptime")
		return
	}

	bootTime, err := time.ParseInLocation("2006-01-02 15:04:05", out.Text(), time.Local)
	if err != nil {
		c.AddUnknown("uptime", "Could not parse boot time")
		return
	}

	up := time.Since(bootTime)
	details := check.Details{
		"boot_time":   out.Text(),
		"uptime_days": int(up.Hours() / 24),
	}

	if up < recentBootWindow {
		c.AddWarning("uptime",
			fmt.Sprintf("System rebooted recently: up %d minutes", int(up.Minutes())),
			details, 40)
		return
	}
	c.AddOK("uptime", fmt.Sprintf("System uptime: %d days", int(up.Hours()/24)), details)
}

func (c *Checker) checkLoadAverage(ctx context.Context) {
	out, err := c.probe.Run(ctx, "cat", "/proc/loadavg")
	if err != nil || out.ExitCode != 0 {
		c.AddUnknown("load_average", "Could not read load average")
		return
	}

	fields := strings.Fields(out.Text())
	if len(fields) < 3 {
		c.AddUnknown("load_average", "Could not parse load average")
		return
	}
	load1, err1 := strconv.ParseFloat(fields[0], 64)
	load5, err5 := strconv.ParseFloat(fields[1], 64)
	load15, err15 := strconv.ParseFloat(fields[2], 64)
	if err1 != nil || err5 != nil || err15 != nil {
		c.AddUnknown("load_average", "Could not parse load average")
		return
	}

	cpus := 1
	if nproc, err := c.probe.Run(ctx, "nproc"); err == nil && nproc.ExitCode == 0 {
		if n, err := strconv.Atoi(nproc.Text()); err == nil && n > 0 {
			cpus = n
		}
	}

	loadPerCPU := load5 / float64(cpus)
	details := check.Details{
		"load_1min":    load1,
		"load_5min":    load5,
		"load_15min":   load15,
		"cpu_count":    cpus,
		"load_per_cpu": loadPerCPU,
	}

	switch {
	case loadPerCPU >= loadPerCPUCrit:
		c.AddCritical("load_average",
			fmt.Sprintf("High load: %.2f (load per CPU: %.2f)", load5, loadPerCPU), details, 85)
	case loadPerCPU >= loadPerCPUWarn:
		c.AddWarning("load_average",
			fmt.Sprintf("Elevated load: %.2f (load per CPU: %.2f)", load5, loadPerCPU), details, 50)
	default:
		c.AddOK("load_average",
			fmt.Sprintf("Load normal: %.2f (load per CPU: %.2f)", load5, loadPerCPU), details)
	}
}

func (c *Checker) checkMemory(ctx context.Context) {
	out, err := c.probe.Run(ctx, "free", "-b")
	if err != nil || out.ExitCode != 0 {
		c.AddUnknown("memory", "Could not read memory info")
		return
	}

	lines := out.Lines()
	if len(lines) < 2 {
		c.AddUnknown("memory", "Could not parse memory info")
		return
	}
	fields := strings.Fields(lines[1])
	if len(fields) < 4 {
		c.AddUnknown("memory", "Could not parse memory info")
		return
	}

	total, errT := strconv.ParseInt(fields[1], 10, 64)
	used, errU := strconv.ParseInt(fields[2], 10, 64)
	if errT != nil || errU != nil || total <= 0 {
		c.AddUnknown("memory", "Could not parse memory info")
		return
	}
	available := total - used
	if len(fields) > 6 {
		if a, err := strconv.ParseInt(fields[6], 10, 64); err == nil {
			available = a
		}
	}

	usedPct := float64(used) / float64(total) * 100
	details := check.Details{
		"total_bytes":     total,
		"used_bytes":      used,
		"available_bytes": available,
		"used_percent":    usedPct,
		"total_human":     humanize.IBytes(uint64(total)),
		"used_human":      humanize.IBytes(uint64(used)),
		"available_human": humanize.IBytes(uint64(available)),
	}

	score := check.ScoreFromPercentage(usedPct, memoryWarnPct, memoryCritPct)
	msg := fmt.Sprintf("%.1f%% (%s/%s)", usedPct, humanize.IBytes(uint64(used)), humanize.IBytes(uint64(total)))

	switch {
	case usedPct >= memoryCritPct:
		c.AddCritical("memory_usage", "Critical memory usage: "+msg, details, score)
	case usedPct >= memoryWarnPct:
		c.AddWarning("memory_usage", "High memory usage: "+msg, details, score)
	default:
		c.AddOK("memory_usage", "Memory usage normal: "+msg, details)
	}
}

func (c *Checker) checkSwap(ctx context.Context) {
	out, err := c.probe.Run(ctx, "free", "-b")
	if err != nil || out.ExitCode != 0 {
		c.AddUnknown("swap", "Could not read swap info")
		return
	}

	lines := out.Lines()
	if len(lines) < 3 {
		c.AddOK("swap", "No swap configured", check.Details{"swap_enabled": false})
		return
	}
	fields := strings.Fields(lines[2])
	if len(fields) < 3 {
		c.AddUnknown("swap", "Could not parse swap info")
		return
	}

	total, errT := strconv.ParseInt(fields[1], 10, 64)
	used, errU := strconv.ParseInt(fields[2], 10, 64)
	if errT != nil || errU != nil {
		c.AddUnknown("swap", "Could not parse swap info")
		return
	}
	if total == 0 {
		c.AddOK("swap", "No swap configured", check.Details{"swap_enabled": false})
		return
	}

	usedPct := float64(used) / float64(total) * 100
	details := check.Details{
		"total_bytes":  total,
		"used_bytes":   used,
		"used_percent": usedPct,
		"total_human":  humanize.IBytes(uint64(total)),
		"used_human":   humanize.IBytes(uint64(used)),
	}

	score := check.ScoreFromPercentage(usedPct, swapWarnPct, swapCritPct)
	switch {
	case usedPct >= swapCritPct:
		c.AddCritical("swap_usage", fmt.Sprintf("Critical swap usage: %.1f%%", usedPct), details, score)
	case usedPct >= swapWarnPct:
		c.AddWarning("swap_usage", fmt.Sprintf("High swap usage: %.1f%%", usedPct), details, score)
	case usedPct > 0:
		c.AddOK("swap_usage", fmt.Sprintf("Swap usage: %.1f%%", usedPct), details)
	default:
		c.AddOK("swap", "Swap not in use", details)
	}
}

func (c *Checker) checkDiskSpace(ctx context.Context) {
	out, err := c.probe.Run(ctx, "df", "-B1")
	if err != nil || out.ExitCode != 0 {
		c.AddUnknown("disk_space", "Could not read disk info")
		return
	}

	issues := false
	for _, line := range skipHeader(out.Lines()) {
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		filesystem := fields[0]
		if isVirtualFilesystem(filesystem) {
			continue
		}

		size, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || size < minFilesystemBytes {
			continue
		}
		used, _ := strconv.ParseInt(fields[2], 10, 64)
		available, _ := strconv.ParseInt(fields[3], 10, 64)
		usePct, err := strconv.Atoi(strings.TrimSuffix(fields[4], "%"))
		if err != nil {
			continue
		}
		mount := fields[5]

		details := check.Details{
			"filesystem":      filesystem,
			"mount":           mount,
			"size_bytes":      size,
			"used_bytes":      used,
			"available_bytes": available,
			"use_percent":     usePct,
			"size_human":      humanize.IBytes(uint64(size)),
			"used_human":      humanize.IBytes(uint64(used)),
			"available_human": humanize.IBytes(uint64(available)),
		}

		name := "disk_space_" + strings.ReplaceAll(mount, "/", "_")
		score := check.ScoreFromPercentage(float64(usePct), diskWarnPct, diskCritPct)

		switch {
		case usePct >= diskCritPct:
			issues = true
			c.AddCritical(name, fmt.Sprintf("Critical disk space on %s: %d%% used", mount, usePct), details, score)
		case usePct >= diskWarnPct:
			issues = true
			c.AddWarning(name, fmt.Sprintf("Low disk space on %s: %d%% used", mount, usePct), details, score)
		}
	}

	if !issues {
		c.AddOK("disk_space", "All filesystems have adequate space", nil)
	}
}

func (c *Checker) checkInodeUsage(ctx context.Context) {
	out, err := c.probe.Run(ctx, "df", "-i")
	if err != nil || out.ExitCode != 0 {
		c.AddUnknown("inodes", "Could not read inode info")
		return
	}

	issues := false
	for _, line := range skipHeader(out.Lines()) {
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		filesystem := fields[0]
		if isVirtualFilesystem(filesystem) || fields[4] == "-" {
			continue
		}
		usePct, err := strconv.Atoi(strings.TrimSuffix(fields[4], "%"))
		if err != nil {
			continue
		}
		mount := fields[5]

		details := check.Details{
			"filesystem":  filesystem,
			"mount":       mount,
			"use_percent": usePct,
		}

		name := "inodes_" + strings.ReplaceAll(mount, "/", "_")
		score := check.ScoreFromPercentage(float64(usePct), inodeWarnPct, inodeCritPct)

		switch {
		case usePct >= inodeCritPct:
			issues = true
			c.AddCritical(name, fmt.Sprintf("Critical inode usage on %s: %d%%", mount, usePct), details, score)
		case usePct >= inodeWarnPct:
			issues = true
			c.AddWarning(name, fmt.Sprintf("High inode usage on %s: %d%%", mount, usePct), details, score)
		}
	}

	if !issues {
		c.AddOK("inodes", "Inode usage is normal on all filesystems", nil)
	}
}

func (c *Checker) checkZombies(ctx context.Context) {
	out, err := c.probe.Run(ctx, "ps", "-eo", "stat=")
	if err != nil || out.ExitCode != 0 {
		c.AddUnknown("zombie_processes", "Could not list processes")
		return
	}

	zombies := 0
	for _, line := range out.Lines() {
		if strings.HasPrefix(strings.TrimSpace(line), "Z") {
			zombies++
		}
	}

	details := check.Details{"zombie_count": zombies}
	score := check.ScoreFromCount(zombies, zombieWarn, zombieCrit)

	switch {
	case zombies >= zombieCrit:
		c.AddCritical("zombie_processes", fmt.Sprintf("Found %d zombie processes", zombies), details, score)
	case zombies >= zombieWarn:
		c.AddWarning("zombie_processes", fmt.Sprintf("Found %d zombie processes", zombies), details, score)
	default:
		c.AddOK("zombie_processes", "No zombie process buildup", details)
	}
}

func (c *Checker) checkRebootRequired(_ context.Context) {
	if _, err := os.Stat(c.rebootMarker); err != nil {
		c.AddOK("reboot_required", "No reboot required", nil)
		return
	}

	var packages []string
	if data, err := probe.ReadFileString(c.rebootMarker + ".pkgs"); err == nil {
		for _, line := range strings.Split(data, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				packages = append(packages, line)
			}
		}
	}

	c.AddWarning("reboot_required", "System reboot required", check.Details{"packages": packages}, 60)
}

func (c *Checker) checkRAID(_ context.Context) {
	mdstat, err := probe.ReadFileString(c.mdstatPath)
	if err != nil {
		return
	}

	// An underscore inside the status brackets marks a failed member,
	// e.g. [U_] for a two-disk mirror with one disk gone.
	if strings.Contains(mdstat, "FAILED") || strings.Contains(mdstat, "_]") {
		snippet := mdstat
		if len(snippet) > 500 {
			snippet = snippet[:500]
		}
		c.AddCritical("raid_mdadm", "RAID degraded or failed (mdadm)", check.Details{"mdstat": snippet}, 95)
		return
	}
	if strings.Contains(mdstat, "active") {
		c.AddOK("raid_mdadm", "RAID arrays are healthy (mdadm)", nil)
	}
}

func (c *Checker) checkDmesgErrors(ctx context.Context) {
	out, err := c.probe.Run(ctx, "dmesg", "-l", "err,crit,alert,emerg", "-T")
	if err != nil || out.ExitCode != 0 {
		return
	}

	errorLines := out.Lines()
	count := len(errorLines)
	if count == 0 {
		c.AddOK("dmesg_errors", "No recent kernel errors", nil)
		return
	}

	sample := errorLines
	if len(sample) > 10 {
		sample = sample[:10]
	}
	details := check.Details{"error_count": count, "recent_errors": sample}

	score := check.ScoreFromCount(count, dmesgWarn, dmesgCrit)
	switch {
	case count >= dmesgCrit:
		c.AddCritical("dmesg_errors", fmt.Sprintf("Kernel logging errors: %d recent entries", count), details, score)
	default:
		c.AddWarning("dmesg_errors", fmt.Sprintf("Found %d recent kernel errors", count), details, score)
	}
}

// skipHeader drops the first line of a command table.
func skipHeader(lines []string) []string {
	if len(lines) <= 1 {
		return nil
	}
	return lines[1:]
}

func isVirtualFilesystem(filesystem string) bool {
	for _, prefix := range []string{"tmpfs", "devtmpfs", "none", "udev", "overlay"} {
		if strings.HasPrefix(filesystem, prefix) {
			return true
		}
	}
	return false
}

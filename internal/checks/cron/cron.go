// Package cron checks the cron daemon, recent job failures, orphaned
// crontabs, and schedules that look like runaway or suspicious jobs.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"

	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/probe"
)

// Category is the report key for this checker.
const Category = "cron"

const (
	cronErrorWarn = 1
	cronErrorCrit = 10

	logTailBytes = 512 * 1024
)

// daemonNames lists the service names cron runs under across distros.
var daemonNames = []string{"cron", "crond"}

// Checker inspects cron health.
type Checker struct {
	*check.Collector
	probe probe.Runner
	log   *slog.Logger

	spoolDirs     []string
	systemCrontab string
	logPaths      []string
}

// New returns the cron checker.
func New(log *slog.Logger, runner probe.Runner) *Checker {
	return &Checker{
		Collector:     check.NewCollector(Category, log),
		probe:         runner,
		log:           log,
		spoolDirs:     []string{"/var/spool/cron/crontabs", "/var/spool/cron"},
		systemCrontab: "/etc/crontab",
		logPaths:      []string{"/var/log/syslog", "/var/log/cron"},
	}
}

// Run executes all cron sub-checks.
func (c *Checker) Run(ctx context.Context) ([]check.Result, error) {
	c.Reset()

	subs := []func(context.Context){
		c.checkDaemon,
		c.checkCronErrors,
		c.checkOrphanedCrontabs,
		c.checkSuspiciousSchedules,
	}
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return c.Results(), err
		}
		sub(ctx)
	}

	return c.Results(), nil
}

func (c *Checker) checkDaemon(ctx context.Context) {
	probed := false
	for _, svc := range daemonNames {
		out, err := c.probe.Run(ctx, "systemctl", "is-active", svc)
		if err != nil {
			continue
		}
		probed = true
		if strings.TrimSpace(out.Text()) == "active" {
			c.AddOK("cron_daemon", fmt.Sprintf("Cron daemon %s is active", svc),
				check.Details{"service": svc})
			return
		}
	}

	if !probed {
		c.AddUnknown("cron_daemon", "Could not query cron daemon state")
		return
	}
	c.AddCritical("cron_daemon", "Cron daemon is not running",
		check.Details{"tried": daemonNames}, 85)
}

func (c *Checker) checkCronErrors(_ context.Context) {
	var data string
	for _, path := range c.logPaths {
		tail, err := probe.TailFileString(path, logTailBytes)
		if err != nil {
			continue
		}
		data = tail
		break
	}
	if data == "" {
		return
	}

	var failures []string
	for _, line := range strings.Split(data, "\n") {
		if !strings.Contains(line, "CRON") && !strings.Contains(line, "cron") {
			continue
		}
		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") || strings.Contains(lower, "failed") ||
			strings.Contains(lower, "can't") {
			failures = append(failures, strings.TrimSpace(line))
		}
	}

	if len(failures) == 0 {
		c.AddOK("cron_errors", "No recent cron job failures", nil)
		return
	}

	sample := failures
	if len(sample) > 5 {
		sample = sample[len(sample)-5:]
	}
	count := len(failures)
	details := check.Details{"count": count, "recent": sample}
	score := check.ScoreFromCount(count, cronErrorWarn, cronErrorCrit)
	msg := fmt.Sprintf("%d cron job failure(s) in recent logs", count)
	if count >= cronErrorCrit {
		c.AddCritical("cron_errors", msg, details, score)
	} else {
		c.AddWarning("cron_errors", msg, details, score)
	}
}

// checkOrphanedCrontabs flags crontab files owned by users that no longer
// exist. Leftover crontabs keep running jobs for deleted accounts.
func (c *Checker) checkOrphanedCrontabs(_ context.Context) {
	var orphans []string
	scanned := false
	for _, dir := range c.spoolDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		scanned = true
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if _, err := user.Lookup(name); err != nil {
				orphans = append(orphans, name)
			}
		}
		break
	}
	if !scanned {
		return
	}

	if len(orphans) == 0 {
		c.AddOK("orphaned_crontabs", "All crontabs belong to existing users", nil)
		return
	}
	sort.Strings(orphans)
	c.AddWarning("orphaned_crontabs",
		fmt.Sprintf("%d crontab(s) for nonexistent users: %s",
			len(orphans), strings.Join(orphans, ", ")),
		check.Details{"users": orphans}, 50)
}

// checkSuspiciousSchedules flags root jobs scheduled every minute. Those are
// a common foothold for cryptominers and beaconing malware.
func (c *Checker) checkSuspiciousSchedules(_ context.Context) {
	var suspicious []string

	if data, err := probe.ReadFileString(c.systemCrontab); err == nil {
		suspicious = append(suspicious, everyMinuteJobs(data)...)
	}
	for _, dir := range c.spoolDirs {
		data, err := probe.ReadFileString(filepath.Join(dir, "root"))
		if err != nil {
			continue
		}
		suspicious = append(suspicious, everyMinuteJobs(data)...)
		break
	}

	if len(suspicious) == 0 {
		c.AddOK("suspicious_schedules", "No every-minute root jobs found", nil)
		return
	}

	sample := suspicious
	if len(sample) > 5 {
		sample = sample[:5]
	}
	c.AddWarning("suspicious_schedules",
		fmt.Sprintf("%d root job(s) scheduled every minute", len(suspicious)),
		check.Details{"jobs": sample}, 45)
}

// everyMinuteJobs returns crontab lines whose first five schedule fields are
// all "*".
func everyMinuteJobs(crontab string) []string {
	var jobs []string
	for _, line := range strings.Split(crontab, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 6 {
			continue
		}
		every := true
		for _, f := range fields[:5] {
			if f != "*" {
				every = false
				break
			}
		}
		if every {
			jobs = append(jobs, trimmed)
		}
	}
	return jobs
}

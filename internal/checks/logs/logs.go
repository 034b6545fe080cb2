// Package logs checks the logging subsystem: recent error volume, OOM
// killer events, log directory growth, and whether logs are still being
// written at all.
package logs

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/probe"
)

// Category is the report key for this checker.
const Category = "logs"

const (
	recentErrorWarn = 50
	recentErrorCrit = 500

	oomWarn = 1
	oomCrit = 5

	staleHoursWarn = 24
	staleHoursCrit = 72

	// Log directories are scored against this soft quota.
	logQuotaBytes = 10 * 1024 * 1024 * 1024

	logQuotaWarnPct = 80
	logQuotaCritPct = 95

	syslogTailBytes = 512 * 1024
)

// Checker inspects log health.
type Checker struct {
	*check.Collector
	probe probe.Runner
	log   *slog.Logger

	logDirs     []string
	syslogPaths []string
}

// New returns the logs checker scanning the given log directories.
func New(log *slog.Logger, runner probe.Runner, logDirs []string) *Checker {
	return &Checker{
		Collector:   check.NewCollector(Category, log),
		probe:       runner,
		log:         log,
		logDirs:     logDirs,
		syslogPaths: []string{"/var/log/syslog", "/var/log/messages"},
	}
}

// Run executes all log sub-checks.
func (c *Checker) Run(ctx context.Context) ([]check.Result, error) {
	c.Reset()

	subs := []func(context.Context){
		c.checkRecentErrors,
		c.checkOOM,
		c.checkLogVolume,
		c.checkStaleLogs,
	}
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return c.Results(), err
		}
		sub(ctx)
	}
	return c.Results(), nil
}

// syslogTail returns the tail of the first readable syslog file, falling
// back to the journal.
func (c *Checker) syslogTail(ctx context.Context) (string, string, bool) {
	for _, path := range c.syslogPaths {
		if data, err := probe.TailFileString(path, syslogTailBytes); err == nil {
			return data, path, true
		}
	}
	out, err := c.probe.Run(ctx, "journalctl", "-p", "err", "-n", "500", "--no-pager", "-q")
	if err != nil || out.ExitCode != 0 {
		return "", "", false
	}
	return out.Stdout, "journal", true
}

func (c *Checker) checkRecentErrors(ctx context.Context) {
	data, source, ok := c.syslogTail(ctx)
	if !ok {
		c.AddUnknown("recent_errors", "No readable syslog or journal")
		return
	}

	count := 0
	patterns := make(map[string]int)
	for _, line := range strings.Split(data, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "error") && !strings.Contains(lower, "critical") {
			continue
		}
		count++
		patterns[normalizeLogLine(line)]++
	}

	details := check.Details{
		"error_count":  count,
		"source":       source,
		"top_patterns": topPatterns(patterns, 3),
	}
	score := check.ScoreFromCount(count, recentErrorWarn, recentErrorCrit)
	switch {
	case count >= recentErrorCrit:
		c.AddCritical("recent_errors",
			fmt.Sprintf("Log error flood: %d recent errors", count), details, score)
	case count >= recentErrorWarn:
		c.AddWarning("recent_errors",
			fmt.Sprintf("Elevated log errors: %d recent", count), details, score)
	default:
		c.AddOK("recent_errors", fmt.Sprintf("Recent log errors: %d", count), details)
	}
}

func (c *Checker) checkOOM(ctx context.Context) {
	data, source, ok := c.syslogTail(ctx)
	if !ok {
		return
	}

	count := 0
	for _, line := range strings.Split(data, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "out of memory") || strings.Contains(lower, "oom-kill") {
			count++
		}
	}

	details := check.Details{"oom_events": count, "source": source}
	score := check.ScoreFromCount(count, oomWarn, oomCrit)
	switch {
	case count >= oomCrit:
		c.AddCritical("oom_events",
			fmt.Sprintf("OOM killer fired %d times recently", count), details, score)
	case count >= oomWarn:
		c.AddWarning("oom_events",
			fmt.Sprintf("OOM killer activity: %d event(s)", count), details, score)
	default:
		c.AddOK("oom_events", "No recent OOM killer activity", details)
	}
}

func (c *Checker) checkLogVolume(ctx context.Context) {
	for _, dir := range c.logDirs {
		out, err := c.probe.Run(ctx, "du", "-sb", dir)
		if err != nil || out.ExitCode != 0 {
			c.AddUnknown("log_volume_"+sanitize(dir), "Could not measure "+dir)
			continue
		}
		fields := strings.Fields(out.Text())
		if len(fields) < 1 {
			continue
		}
		size, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			continue
		}

		pct := float64(size) / float64(logQuotaBytes) * 100
		details := check.Details{
			"dir":           dir,
			"size_bytes":    size,
			"size_human":    humanize.IBytes(uint64(size)),
			"quota_percent": pct,
		}
		name := "log_volume_" + sanitize(dir)
		score := check.ScoreFromPercentage(pct, logQuotaWarnPct, logQuotaCritPct)
		switch {
		case pct >= logQuotaCritPct:
			c.AddCritical(name,
				fmt.Sprintf("Log directory %s is very large: %s", dir, humanize.IBytes(uint64(size))), details, score)
		case pct >= logQuotaWarnPct:
			c.AddWarning(name,
				fmt.Sprintf("Log directory %s is growing: %s", dir, humanize.IBytes(uint64(size))), details, score)
		default:
			c.AddOK(name,
				fmt.Sprintf("Log directory %s: %s", dir, humanize.IBytes(uint64(size))), details)
		}
	}
}

func (c *Checker) checkStaleLogs(_ context.Context) {
	for _, dir := range c.logDirs {
		newest, err := newestModTime(dir)
		if err != nil {
			c.AddUnknown("stale_logs_"+sanitize(dir), "Could not inspect "+dir)
			continue
		}

		age := time.Since(newest).Hours()
		details := check.Details{
			"dir":          dir,
			"newest_write": newest.Format(time.RFC3339),
			"age_hours":    age,
		}
		name := "stale_logs_" + sanitize(dir)
		score := check.ScoreFromAge(age, staleHoursWarn, staleHoursCrit)
		switch {
		case age >= staleHoursCrit:
			c.AddCritical(name,
				fmt.Sprintf("No log written under %s for %.0f hours", dir, age), details, score)
		case age >= staleHoursWarn:
			c.AddWarning(name,
				fmt.Sprintf("Logs under %s are going stale: last write %.0f hours ago", dir, age), details, score)
		default:
			c.AddOK(name, fmt.Sprintf("Logs under %s are current", dir), details)
		}
	}
}

// newestModTime walks dir and returns the most recent file modification.
func newestModTime(dir string) (time.Time, error) {
	var newest time.Time
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees should not fail the whole scan.
			if path == dir {
				return err
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	if newest.IsZero() {
		return time.Time{}, os.ErrNotExist
	}
	return newest, nil
}

// normalizeLogLine strips the syslog timestamp and collapses digit runs so
// repeated messages group into one pattern.
func normalizeLogLine(line string) string {
	fields := strings.Fields(line)
	if len(fields) > 3 {
		fields = fields[3:]
	}
	var b strings.Builder
	inDigits := false
	for _, r := range strings.Join(fields, " ") {
		if r >= '0' && r <= '9' {
			if !inDigits {
				b.WriteByte('#')
				inDigits = true
			}
			continue
		}
		inDigits = false
		b.WriteRune(r)
	}
	s := b.String()
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}

// topPatterns returns the n most frequent patterns as "count x pattern".
func topPatterns(patterns map[string]int, n int) []string {
	type entry struct {
		pattern string
		count   int
	}
	entries := make([]entry, 0, len(patterns))
	for p, count := range patterns {
		entries = append(entries, entry{p, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].pattern < entries[j].pattern
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = fmt.Sprintf("%dx %s", e.count, e.pattern)
	}
	return out
}

func sanitize(path string) string {
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", "_")
}

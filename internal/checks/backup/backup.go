// Package backup checks that backups are fresh: newest snapshot age per
// configured root, size regression against the previous snapshot, failure
// markers, database dump staleness, and logrotate state.
package backup

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/probe"
)

// Category is the report key for this checker.
const Category = "backup"

const (
	// A daily backup gets a two-hour grace window before warning and
	// roughly two missed runs before critical.
	ageHoursWarn = 26
	ageHoursCrit = 50

	// The newest backup shrinking below this share of its predecessor is
	// suspicious.
	sizeRegressionPct = 50

	failureMarkerCrit = 3

	logrotateStaleHours = 48
)

var dumpSuffixes = []string{".sql", ".sql.gz", ".dump", ".pgdump"}

// Checker inspects backup freshness.
type Checker struct {
	*check.Collector
	probe probe.Runner
	log   *slog.Logger

	roots               []string
	fstabPath           string
	logrotateStatusPath string
}

// New returns the backup checker watching the given backup roots.
func New(log *slog.Logger, runner probe.Runner, roots []string) *Checker {
	return &Checker{
		Collector:           check.NewCollector(Category, log),
		probe:               runner,
		log:                 log,
		roots:               roots,
		fstabPath:           "/etc/fstab",
		logrotateStatusPath: "/var/lib/logrotate/status",
	}
}

// Run executes all backup sub-checks.
func (c *Checker) Run(ctx context.Context) ([]check.Result, error) {
	c.Reset()

	subs := []func(context.Context){
		c.checkRoots,
		c.checkDumpStaleness,
		c.checkRemoteMounts,
		c.checkLogrotate,
	}
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return c.Results(), err
		}
		sub(ctx)
	}
	return c.Results(), nil
}

type backupFile struct {
	path string
	mod  time.Time
	size int64
}

func (c *Checker) checkRoots(_ context.Context) {
	for _, root := range c.roots {
		files, err := scanRoot(root)
		if err != nil {
			c.AddWarning("backup_age_"+sanitize(root),
				fmt.Sprintf("Backup directory %s is not accessible", root),
				check.Details{"root": root}, 70)
			continue
		}
		c.checkAge(root, files)
		c.checkSizeRegression(root, files)
		c.checkFailureMarkers(root, files)
	}
}

func (c *Checker) checkAge(root string, files []backupFile) {
	name := "backup_age_" + sanitize(root)
	if len(files) == 0 {
		c.AddCritical(name,
			fmt.Sprintf("No backups found under %s", root),
			check.Details{"root": root}, 90)
		return
	}

	newest := files[0]
	age := time.Since(newest.mod).Hours()
	details := check.Details{
		"root":       root,
		"newest":     newest.path,
		"age_hours":  age,
		"size_human": humanize.IBytes(uint64(newest.size)),
	}
	score := check.ScoreFromAge(age, ageHoursWarn, ageHoursCrit)
	switch {
	case age >= ageHoursCrit:
		c.AddCritical(name,
			fmt.Sprintf("Newest backup under %s is %.0f hours old", root, age), details, score)
	case age >= ageHoursWarn:
		c.AddWarning(name,
			fmt.Sprintf("Newest backup under %s is %.0f hours old", root, age), details, score)
	default:
		c.AddOK(name,
			fmt.Sprintf("Backups under %s are current (%.0fh old)", root, age), details)
	}
}

func (c *Checker) checkSizeRegression(root string, files []backupFile) {
	if len(files) < 2 {
		return
	}
	newest, previous := files[0], files[1]
	if previous.size == 0 {
		return
	}

	pct := float64(newest.size) / float64(previous.size) * 100
	if pct >= sizeRegressionPct {
		return
	}
	c.AddWarning("backup_size_"+sanitize(root),
		fmt.Sprintf("Latest backup is %.0f%% the size of the previous one", pct),
		check.Details{
			"root":           root,
			"newest":         newest.path,
			"newest_size":    humanize.IBytes(uint64(newest.size)),
			"previous_size":  humanize.IBytes(uint64(previous.size)),
			"size_share_pct": pct,
		}, 60)
}

func (c *Checker) checkFailureMarkers(root string, files []backupFile) {
	var markers []string
	for _, f := range files {
		base := strings.ToLower(filepath.Base(f.path))
		if strings.Contains(base, "failed") || strings.HasSuffix(base, ".err") {
			markers = append(markers, f.path)
		}
	}
	if len(markers) == 0 {
		return
	}

	name := "backup_failures_" + sanitize(root)
	details := check.Details{"root": root, "markers": markers}
	if len(markers) >= failureMarkerCrit {
		c.AddCritical(name,
			fmt.Sprintf("%d backup failure markers under %s", len(markers), root), details, 85)
		return
	}
	c.AddWarning(name,
		fmt.Sprintf("%d backup failure marker(s) under %s", len(markers), root), details, 55)
}

func (c *Checker) checkDumpStaleness(_ context.Context) {
	var newest *backupFile
	total := 0
	for _, root := range c.roots {
		files, err := scanRoot(root)
		if err != nil {
			continue
		}
		for i, f := range files {
			if !isDump(f.path) {
				continue
			}
			total++
			if newest == nil || f.mod.After(newest.mod) {
				newest = &files[i]
			}
		}
	}
	if newest == nil {
		// No database dumps under any root; nothing to age.
		return
	}

	age := time.Since(newest.mod).Hours()
	details := check.Details{
		"newest":     newest.path,
		"age_hours":  age,
		"dump_count": total,
	}
	score := check.ScoreFromAge(age, ageHoursWarn, ageHoursCrit)
	switch {
	case age >= ageHoursCrit:
		c.AddCritical("db_dumps",
			fmt.Sprintf("Newest database dump is %.0f hours old", age), details, score)
	case age >= ageHoursWarn:
		c.AddWarning("db_dumps",
			fmt.Sprintf("Newest database dump is %.0f hours old", age), details, score)
	default:
		c.AddOK("db_dumps", "Database dumps are current", details)
	}
}

// checkRemoteMounts verifies that remote filesystems listed in fstab are
// actually mounted. An unmounted backup target means backups silently land
// on the local disk.
func (c *Checker) checkRemoteMounts(ctx context.Context) {
	data, err := probe.ReadFileString(c.fstabPath)
	if err != nil {
		return
	}

	var unmounted, mounted []string
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 || !isRemoteFilesystem(fields[2]) {
			continue
		}
		target := fields[1]
		out, err := c.probe.Run(ctx, "findmnt", "-n", target)
		if err != nil {
			continue
		}
		if out.ExitCode == 0 && out.Text() != "" {
			mounted = append(mounted, target)
		} else {
			unmounted = append(unmounted, target)
		}
	}
	if len(mounted) == 0 && len(unmounted) == 0 {
		return
	}

	details := check.Details{"mounted": mounted, "unmounted": unmounted}
	if len(unmounted) > 0 {
		c.AddCritical("remote_mounts",
			fmt.Sprintf("Remote filesystems not mounted: %s", strings.Join(unmounted, ", ")),
			details, 90)
		return
	}
	c.AddOK("remote_mounts",
		fmt.Sprintf("All %d remote filesystems mounted", len(mounted)), details)
}

func (c *Checker) checkLogrotate(_ context.Context) {
	info, err := os.Stat(c.logrotateStatusPath)
	if err != nil {
		return
	}

	age := time.Since(info.ModTime()).Hours()
	details := check.Details{"status_file": c.logrotateStatusPath, "age_hours": age}
	if age > logrotateStaleHours {
		c.AddWarning("logrotate_state",
			fmt.Sprintf("logrotate has not run for %.0f hours", age), details, 65)
		return
	}
	c.AddOK("logrotate_state", "logrotate ran recently", details)
}

// scanRoot lists all regular files under root, newest first.
func scanRoot(root string) ([]backupFile, error) {
	var files []backupFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
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
		files = append(files, backupFile{path: path, mod: info.ModTime(), size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.After(files[j].mod) })
	return files, nil
}

func isRemoteFilesystem(fsType string) bool {
	switch fsType {
	case "nfs", "nfs4", "cifs", "smbfs", "sshfs", "fuse.sshfs":
		return true
	}
	return false
}

func isDump(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range dumpSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func sanitize(path string) string {
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", "_")
}

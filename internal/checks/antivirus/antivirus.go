// Package antivirus checks ClamAV: daemon state, signature freshness, and
// the outcome of the last scan.
//
// The whole checker gates on clamd being installed. Hosts without ClamAV
// record a single UNKNOWN result and move on.
package antivirus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/probe"
)

// Category is the report key for this checker.
const Category = "antivirus"

const (
	signatureStaleHours = 48

	scanLogTailBytes = 256 * 1024
)

// daemonServices are the unit names clamd runs under across distros.
var daemonServices = []string{"clamav-daemon", "clamd"}

var infectedRe = regexp.MustCompile(`Infected files:\s*(\d+)`)

// Checker inspects ClamAV health.
type Checker struct {
	*check.Collector
	probe probe.Runner
	log   *slog.Logger

	dbPaths      []string
	scanLogPaths []string
}

// New returns the antivirus checker.
func New(log *slog.Logger, runner probe.Runner) *Checker {
	return &Checker{
		Collector: check.NewCollector(Category, log),
		probe:     runner,
		log:       log,
		dbPaths: []string{
			"/var/lib/clamav/daily.cvd",
			"/var/lib/clamav/daily.cld",
			"/var/lib/clamav/main.cvd",
		},
		scanLogPaths: []string{
			"/var/log/clamav/clamav.log",
			"/var/log/clamav.log",
		},
	}
}

// Run executes all antivirus sub-checks.
func (c *Checker) Run(ctx context.Context) ([]check.Result, error) {
	c.Reset()

	if err := ctx.Err(); err != nil {
		return c.Results(), err
	}

	if _, err := c.probe.LookPath("clamd"); err != nil {
		c.AddUnknown("antivirus", "ClamAV is not installed")
		return c.Results(), nil
	}

	c.checkDaemon(ctx)
	c.checkSignatures()
	c.checkScanLog()

	return c.Results(), nil
}

func (c *Checker) checkDaemon(ctx context.Context) {
	for _, svc := range daemonServices {
		out, err := c.probe.Run(ctx, "systemctl", "is-active", svc)
		if err != nil {
			continue
		}
		if strings.TrimSpace(out.Text()) == "active" {
			c.AddOK("clamd", "ClamAV daemon is active", check.Details{"service": svc})
			return
		}
	}
	c.AddWarning("clamd", "ClamAV daemon is not active (no real-time protection)", nil, 45)
}

func (c *Checker) checkSignatures() {
	var newest time.Time
	found := false
	for _, path := range c.dbPaths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		found = true
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	if !found {
		return
	}

	ageHours := int(time.Since(newest).Hours())
	if ageHours > signatureStaleHours {
		c.AddWarning("clamav_definitions",
			fmt.Sprintf("Virus definitions are %d hours old (run freshclam)", ageHours),
			check.Details{"age_hours": ageHours}, 55)
		return
	}
	c.AddOK("clamav_definitions", "Virus definitions are up to date",
		check.Details{"age_hours": ageHours})
}

func (c *Checker) checkScanLog() {
	var data string
	for _, path := range c.scanLogPaths {
		tail, err := probe.TailFileString(path, scanLogTailBytes)
		if err != nil {
			continue
		}
		data = tail
		break
	}
	if data == "" {
		return
	}

	var infectedFiles []string
	for _, line := range strings.Split(data, "\n") {
		if strings.Contains(line, "FOUND") && !strings.Contains(line, "Infected files:") {
			infectedFiles = append(infectedFiles, strings.TrimSpace(line))
		}
	}
	infected := len(infectedFiles)
	if m := infectedRe.FindStringSubmatch(data); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > infected {
			infected = n
		}
	}

	if infected > 0 {
		sample := infectedFiles
		if len(sample) > 5 {
			sample = sample[:5]
		}
		c.AddCritical("clamav_scan",
			fmt.Sprintf("ClamAV detected %d infected file(s)", infected),
			check.Details{"infected": infected, "sample": sample}, 90)
		return
	}
	c.AddOK("clamav_scan", "No infections in the last scan", check.Details{"infected": 0})
}

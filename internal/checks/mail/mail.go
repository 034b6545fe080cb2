// Package mail checks the mail subsystem: queue depth, MTA service state,
// SASL auth failures, blacklist indicators, and spool disk usage.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/probe"
)

// Category is the report key for this checker.
const Category = "email"

const (
	queueWarn = 100
	queueCrit = 1000

	authFailWarn = 20
	authFailCrit = 100

	spoolWarnPct = 80
	spoolCritPct = 95

	mailLogTailBytes = 1024 * 1024
)

// mtaServices maps queue tools to the systemd unit they belong to.
var mtaServices = []struct {
	binary  string
	service string
}{
	{"postqueue", "postfix"},
	{"exim", "exim4"},
}

// Checker inspects mail subsystem health.
type Checker struct {
	*check.Collector
	probe probe.Runner
	log   *slog.Logger

	mailLog   string
	spoolPath string
}

// New returns the mail checker.
func New(log *slog.Logger, runner probe.Runner, mailLog string) *Checker {
	return &Checker{
		Collector: check.NewCollector(Category, log),
		probe:     runner,
		log:       log,
		mailLog:   mailLog,
		spoolPath: "/var/spool/mail",
	}
}

// Run executes all mail sub-checks.
func (c *Checker) Run(ctx context.Context) ([]check.Result, error) {
	c.Reset()

	subs := []func(context.Context){
		c.checkQueueAndService,
		c.checkMailLog,
		c.checkSpoolUsage,
	}
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return c.Results(), err
		}
		sub(ctx)
	}
	return c.Results(), nil
}

// detectMTA returns the first installed queue tool and its service name.
func (c *Checker) detectMTA() (string, string, bool) {
	for _, mta := range mtaServices {
		if _, err := c.probe.LookPath(mta.binary); err == nil {
			return mta.binary, mta.service, true
		}
	}
	return "", "", false
}

func (c *Checker) checkQueueAndService(ctx context.Context) {
	binary, service, found := c.detectMTA()
	if !found {
		c.AddUnknown("mail_queue", "No mail transfer agent found")
		return
	}

	c.checkQueueDepth(ctx, binary)
	c.checkService(ctx, service)
}

func (c *Checker) checkQueueDepth(ctx context.Context, binary string) {
	var depth int
	var ok bool
	switch binary {
	case "postqueue":
		out, err := c.probe.Run(ctx, "postqueue", "-p")
		if err != nil {
			c.AddUnknown("mail_queue", "Could not read mail queue")
			return
		}
		depth, ok = parsePostqueue(out.Text())
	case "exim":
		out, err := c.probe.Run(ctx, "exim", "-bpc")
		if err != nil {
			c.AddUnknown("mail_queue", "Could not read mail queue")
			return
		}
		depth, err = strconv.Atoi(out.Text())
		ok = err == nil
	}
	if !ok {
		c.AddUnknown("mail_queue", "Could not parse mail queue output")
		return
	}

	details := check.Details{"depth": depth, "mta": binary}
	score := check.ScoreFromCount(depth, queueWarn, queueCrit)
	switch {
	case depth >= queueCrit:
		c.AddCritical("mail_queue",
			fmt.Sprintf("Mail queue is backed up: %d messages", depth), details, score)
	case depth >= queueWarn:
		c.AddWarning("mail_queue",
			fmt.Sprintf("Mail queue is growing: %d messages", depth), details, score)
	default:
		c.AddOK("mail_queue", fmt.Sprintf("Mail queue depth: %d", depth), details)
	}
}

func (c *Checker) checkService(ctx context.Context, service string) {
	out, err := c.probe.Run(ctx, "systemctl", "is-active", service)
	if err != nil {
		c.AddUnknown("mta_service", "Could not query MTA service state")
		return
	}
	state := out.Text()
	details := check.Details{"service": service, "state": state}
	if state == "active" {
		c.AddOK("mta_service", fmt.Sprintf("MTA service %s is active", service), details)
		return
	}
	c.AddCritical("mta_service",
		fmt.Sprintf("MTA service %s is %s", service, state), details, 85)
}

func (c *Checker) checkMailLog(_ context.Context) {
	data, err := probe.TailFileString(c.mailLog, mailLogTailBytes)
	if err != nil {
		c.AddUnknown("mail_auth_failures", "Could not read mail log: "+c.mailLog)
		return
	}

	authFailures := 0
	var blacklistHits []string
	for _, line := range strings.Split(data, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "authentication failed") {
			authFailures++
		}
		if strings.Contains(lower, "blocked using") || strings.Contains(lower, "blacklisted") {
			blacklistHits = append(blacklistHits, strings.TrimSpace(line))
		}
	}

	details := check.Details{"count": authFailures, "log": c.mailLog}
	score := check.ScoreFromCount(authFailures, authFailWarn, authFailCrit)
	switch {
	case authFailures >= authFailCrit:
		c.AddCritical("mail_auth_failures",
			fmt.Sprintf("Heavy SASL auth failure activity: %d attempts", authFailures), details, score)
	case authFailures >= authFailWarn:
		c.AddWarning("mail_auth_failures",
			fmt.Sprintf("Elevated SASL auth failures: %d", authFailures), details, score)
	default:
		c.AddOK("mail_auth_failures",
			fmt.Sprintf("SASL auth failures: %d", authFailures), details)
	}

	if len(blacklistHits) > 0 {
		sample := blacklistHits
		if len(sample) > 5 {
			sample = sample[:5]
		}
		c.AddWarning("blacklist_status",
			fmt.Sprintf("Outbound mail rejected by blacklists: %d hit(s)", len(blacklistHits)),
			check.Details{"count": len(blacklistHits), "recent": sample}, 70)
	} else {
		c.AddOK("blacklist_status", "No blacklist rejections in the mail log", nil)
	}
}

func (c *Checker) checkSpoolUsage(ctx context.Context) {
	out, err := c.probe.Run(ctx, "df", "-B1", c.spoolPath)
	if err != nil || out.ExitCode != 0 {
		return
	}

	lines := out.Lines()
	if len(lines) < 2 {
		return
	}
	fields := strings.Fields(lines[1])
	if len(fields) < 6 {
		return
	}
	usePct, err := strconv.Atoi(strings.TrimSuffix(fields[4], "%"))
	if err != nil {
		return
	}

	details := check.Details{"spool": c.spoolPath, "use_percent": usePct, "mount": fields[5]}
	score := check.ScoreFromPercentage(float64(usePct), spoolWarnPct, spoolCritPct)
	switch {
	case usePct >= spoolCritPct:
		c.AddCritical("mail_spool",
			fmt.Sprintf("Mail spool filesystem nearly full: %d%%", usePct), details, score)
	case usePct >= spoolWarnPct:
		c.AddWarning("mail_spool",
			fmt.Sprintf("Mail spool filesystem filling up: %d%%", usePct), details, score)
	default:
		c.AddOK("mail_spool", fmt.Sprintf("Mail spool filesystem: %d%% used", usePct), details)
	}
}

// parsePostqueue extracts the request count from postqueue -p output, whose
// last line reads "-- 168 Kbytes in 42 Requests." An empty queue prints
// "Mail queue is empty".
func parsePostqueue(text string) (int, bool) {
	if text == "" || strings.Contains(text, "Mail queue is empty") {
		return 0, true
	}
	lines := strings.Split(text, "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if !strings.HasPrefix(last, "--") {
		return 0, false
	}
	fields := strings.Fields(last)
	for i, f := range fields {
		if strings.HasPrefix(f, "Request") && i > 0 {
			n, err := strconv.Atoi(fields[i-1])
			if err != nil {
				return 0, false
			}
			return n, true
		}
	}
	return 0, false
}

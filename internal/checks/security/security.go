// Package security checks intrusion indicators: SSH brute force attempts,
// root logins, unexpected listening ports, world-writable files, and the
// firewall and unattended-upgrades posture.
package security

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/config"
	"github.com/servermedic/medic/internal/probe"
)

// Category is the report key for this checker.
const Category = "security"

const (
	failedLoginWarn = 20
	failedLoginCrit = 100

	worldWritableWarn = 5
	worldWritableCrit = 50

	// How much of the auth log tail to scan.
	authLogTailBytes = 512 * 1024

	// Directory depth limit for the world-writable scan.
	scanDepth = "5"
)

// Checker inspects the host's security posture.
type Checker struct {
	*check.Collector
	probe probe.Runner
	log   *slog.Logger

	authLog  string
	settings config.SecuritySettings
	excludes *ignore.GitIgnore
}

// New returns the security checker. Exclude patterns that fail to compile
// are dropped; the scan then runs unfiltered.
func New(log *slog.Logger, runner probe.Runner, settings config.SecuritySettings, authLog string) *Checker {
	c := &Checker{
		Collector: check.NewCollector(Category, log),
		probe:     runner,
		log:       log,
		authLog:   authLog,
		settings:  settings,
	}
	if len(settings.Exclude) > 0 {
		c.excludes = ignore.CompileIgnoreLines(settings.Exclude...)
	}
	return c
}

// Run executes all security sub-checks.
func (c *Checker) Run(ctx context.Context) ([]check.Result, error) {
	c.Reset()

	subs := []func(context.Context){
		c.checkAuthLog,
		c.checkListeningPorts,
		c.checkWorldWritable,
		c.checkFirewall,
		c.checkUnattendedUpgrades,
	}
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return c.Results(), err
		}
		sub(ctx)
	}
	return c.Results(), nil
}

func (c *Checker) checkAuthLog(_ context.Context) {
	data, err := probe.TailFileString(c.authLog, authLogTailBytes)
	if err != nil {
		c.AddUnknown("failed_logins", "Could not read auth log: "+c.authLog)
		return
	}

	failed := 0
	var rootLogins []string
	for _, line := range strings.Split(data, "\n") {
		switch {
		case strings.Contains(line, "Failed password"):
			failed++
		case strings.Contains(line, "Accepted") && strings.Contains(line, "for root"):
			rootLogins = append(rootLogins, strings.TrimSpace(line))
		}
	}

	details := check.Details{"failed_count": failed, "log": c.authLog}
	score := check.ScoreFromCount(failed, failedLoginWarn, failedLoginCrit)
	switch {
	case failed >= failedLoginCrit:
		c.AddCritical("failed_logins",
			fmt.Sprintf("Heavy SSH brute force activity: %d failed logins", failed), details, score)
	case failed >= failedLoginWarn:
		c.AddWarning("failed_logins",
			fmt.Sprintf("Elevated failed SSH logins: %d", failed), details, score)
	default:
		c.AddOK("failed_logins", fmt.Sprintf("Failed SSH logins: %d", failed), details)
	}

	if len(rootLogins) > 0 {
		sample := rootLogins
		if len(sample) > 5 {
			sample = sample[:5]
		}
		c.AddWarning("root_logins",
			fmt.Sprintf("Direct root logins accepted: %d", len(rootLogins)),
			check.Details{"count": len(rootLogins), "recent": sample}, 45)
	} else {
		c.AddOK("root_logins", "No direct root logins", nil)
	}
}

func (c *Checker) checkListeningPorts(ctx context.Context) {
	out, err := c.probe.Run(ctx, "ss", "-tlnp")
	if err != nil || out.ExitCode != 0 {
		c.AddUnknown("listening_ports", "Could not list listening sockets")
		return
	}

	allowed := make(map[int]bool, len(c.settings.AllowedPorts))
	for _, p := range c.settings.AllowedPorts {
		allowed[p] = true
	}

	// port -> owning process, deduplicated across v4/v6 listeners.
	listeners := make(map[int]string)
	for _, line := range skipHeader(out.Lines()) {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		local := fields[3]
		if isLoopback(local) {
			continue
		}
		port, ok := listeningPort(local)
		if !ok {
			continue
		}
		if _, seen := listeners[port]; !seen {
			listeners[port] = processName(line)
		}
	}

	var unexpected []string
	for port, proc := range listeners {
		if allowed[port] {
			continue
		}
		entry := strconv.Itoa(port)
		if proc != "" {
			entry += " (" + proc + ")"
		}
		unexpected = append(unexpected, entry)
	}
	sort.Strings(unexpected)

	details := check.Details{
		"listening_count": len(listeners),
		"unexpected":      unexpected,
	}
	if len(unexpected) > 0 {
		c.AddWarning("listening_ports",
			fmt.Sprintf("%d listening ports outside the allowlist", len(unexpected)), details, 55)
		return
	}
	c.AddOK("listening_ports",
		fmt.Sprintf("All %d listening ports are allowlisted", len(listeners)), details)
}

func (c *Checker) checkWorldWritable(ctx context.Context) {
	var files []string
	scanned := 0
	for _, dir := range c.settings.ScanDirs {
		out, err := c.probe.Run(ctx, "find", dir, "-maxdepth", scanDepth, "-type", "f", "-perm", "-002")
		if err != nil {
			continue
		}
		scanned++
		for _, path := range out.Lines() {
			if c.excludes != nil && c.excludes.MatchesPath(path) {
				continue
			}
			files = append(files, path)
		}
	}
	if scanned == 0 {
		c.AddUnknown("world_writable_files", "Could not scan for world-writable files")
		return
	}

	sample := files
	if len(sample) > 10 {
		sample = sample[:10]
	}
	details := check.Details{
		"count":        len(files),
		"sample":       sample,
		"scanned_dirs": c.settings.ScanDirs,
	}

	count := len(files)
	score := check.ScoreFromCount(count, worldWritableWarn, worldWritableCrit)
	switch {
	case count >= worldWritableCrit:
		c.AddCritical("world_writable_files",
			fmt.Sprintf("Found %d world-writable files", count), details, score)
	case count >= worldWritableWarn:
		c.AddWarning("world_writable_files",
			fmt.Sprintf("Found %d world-writable files", count), details, score)
	default:
		c.AddOK("world_writable_files",
			fmt.Sprintf("World-writable files: %d", count), details)
	}
}

func (c *Checker) checkFirewall(ctx context.Context) {
	if _, err := c.probe.LookPath("iptables"); err == nil {
		out, err := c.probe.Run(ctx, "iptables", "-S")
		if err == nil && out.ExitCode == 0 {
			rules := 0
			for _, line := range out.Lines() {
				if strings.HasPrefix(line, "-A") {
					rules++
				}
			}
			if rules > 0 {
				c.AddOK("firewall",
					fmt.Sprintf("iptables active with %d rules", rules),
					check.Details{"backend": "iptables", "rule_count": rules})
				return
			}
		}
	}

	if _, err := c.probe.LookPath("nft"); err == nil {
		out, err := c.probe.Run(ctx, "nft", "list", "ruleset")
		if err == nil && out.ExitCode == 0 && strings.Contains(out.Stdout, "chain") {
			c.AddOK("firewall", "nftables ruleset loaded", check.Details{"backend": "nftables"})
			return
		}
	}

	c.AddWarning("firewall", "No active firewall detected", nil, 60)
}

func (c *Checker) checkUnattendedUpgrades(ctx context.Context) {
	if _, err := c.probe.LookPath("unattended-upgrade"); err != nil {
		// Not a Debian-style host, or the package is missing. Only flag
		// hosts that use apt at all.
		if _, aptErr := c.probe.LookPath("apt-get"); aptErr != nil {
			return
		}
		c.AddWarning("unattended_upgrades", "unattended-upgrades is not installed", nil, 40)
		return
	}

	out, err := c.probe.Run(ctx, "apt-config", "dump", "APT::Periodic::Unattended-Upgrade")
	if err != nil || out.ExitCode != 0 {
		c.AddUnknown("unattended_upgrades", "Could not read unattended-upgrades configuration")
		return
	}
	if strings.Contains(out.Text(), `"1"`) {
		c.AddOK("unattended_upgrades", "Automatic security updates are enabled", nil)
		return
	}
	c.AddWarning("unattended_upgrades", "unattended-upgrades is installed but not enabled", nil, 50)
}

func skipHeader(lines []string) []string {
	if len(lines) <= 1 {
		return nil
	}
	return lines[1:]
}

func isLoopback(local string) bool {
	return strings.HasPrefix(local, "127.") || strings.HasPrefix(local, "[::1]")
}

// listeningPort extracts the port from an ss local address like
// "0.0.0.0:22" or "[::]:80".
func listeningPort(local string) (int, bool) {
	i := strings.LastIndex(local, ":")
	if i < 0 || i == len(local)-1 {
		return 0, false
	}
	port, err := strconv.Atoi(local[i+1:])
	if err != nil {
		return 0, false
	}
	return port, true
}

// processName extracts the first process name from an ss process column
// like `users:(("sshd",pid=700,fd=3))`.
func processName(line string) string {
	const marker = `users:(("`
	i := strings.Index(line, marker)
	if i < 0 {
		return ""
	}
	rest := line[i+len(marker):]
	if j := strings.Index(rest, `"`); j >= 0 {
		return rest[:j]
	}
	return ""
}

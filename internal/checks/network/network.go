// Package network checks connectivity fundamentals: default route, DNS,
// socket pressure, interface errors, configured reachability probes, and
// clock synchronization.
package network

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/config"
	"github.com/servermedic/medic/internal/probe"
)

// Category is the report key for this checker.
const Category = "network"

const (
	timeWaitWarn = 5000
	timeWaitCrit = 20000

	ifaceErrWarn = 100
	ifaceErrCrit = 1000

	dialTimeout = 5 * time.Second
)

// Checker inspects network health.
type Checker struct {
	*check.Collector
	probe probe.Runner
	log   *slog.Logger

	settings   config.NetworkSettings
	netDevPath string
}

// New returns the network checker.
func New(log *slog.Logger, runner probe.Runner, settings config.NetworkSettings) *Checker {
	return &Checker{
		Collector:  check.NewCollector(Category, log),
		probe:      runner,
		log:        log,
		settings:   settings,
		netDevPath: "/proc/net/dev",
	}
}

// Run executes all network sub-checks.
func (c *Checker) Run(ctx context.Context) ([]check.Result, error) {
	c.Reset()

	subs := []func(context.Context){
		c.checkDefaultRoute,
		c.checkDNS,
		c.checkSocketStats,
		c.checkInterfaceErrors,
		c.checkConnectivity,
		c.checkTimeSync,
	}
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return c.Results(), err
		}
		sub(ctx)
	}
	return c.Results(), nil
}

func (c *Checker) checkDefaultRoute(ctx context.Context) {
	out, err := c.probe.Run(ctx, "ip", "route", "show", "default")
	if err != nil || out.ExitCode != 0 {
		c.AddUnknown("default_route", "Could not read routing table")
		return
	}

	routes := out.Lines()
	if len(routes) == 0 {
		c.AddCritical("default_route", "No default route configured", nil, 90)
		return
	}
	c.AddOK("default_route", "Default route present", check.Details{"route": routes[0]})
}

func (c *Checker) checkDNS(ctx context.Context) {
	if len(c.settings.ResolveNames) == 0 {
		return
	}

	var failed []string
	probed := 0
	for _, name := range c.settings.ResolveNames {
		out, err := c.probe.Run(ctx, "getent", "hosts", name)
		if err != nil {
			continue
		}
		probed++
		if out.ExitCode != 0 || out.Text() == "" {
			failed = append(failed, name)
		}
	}
	if probed == 0 {
		c.AddUnknown("dns_resolution", "Could not resolve test names")
		return
	}

	details := check.Details{"names": c.settings.ResolveNames, "failed": failed}
	if len(failed) > 0 {
		c.AddWarning("dns_resolution",
			fmt.Sprintf("DNS resolution failed for %s", strings.Join(failed, ", ")), details, 65)
		return
	}
	c.AddOK("dns_resolution",
		fmt.Sprintf("All %d test names resolve", probed), details)
}

func (c *Checker) checkSocketStats(ctx context.Context) {
	out, err := c.probe.Run(ctx, "ss", "-s")
	if err != nil || out.ExitCode != 0 {
		c.AddUnknown("sockets", "Could not read socket statistics")
		return
	}

	var tcpLine string
	for _, line := range out.Lines() {
		if strings.HasPrefix(strings.TrimSpace(line), "TCP:") {
			tcpLine = line
			break
		}
	}
	if tcpLine == "" {
		c.AddUnknown("sockets", "Could not parse socket statistics")
		return
	}

	total, okT := numberAfter(tcpLine, "TCP:")
	estab, _ := numberAfter(tcpLine, "estab")
	timeWait, okW := numberAfter(tcpLine, "timewait")
	if !okT {
		c.AddUnknown("sockets", "Could not parse socket statistics")
		return
	}

	c.AddOK("sockets",
		fmt.Sprintf("TCP sockets: %d total, %d established", total, estab),
		check.Details{"tcp_total": total, "established": estab, "time_wait": timeWait})

	if !okW {
		return
	}
	details := check.Details{"time_wait": timeWait}
	score := check.ScoreFromCount(timeWait, timeWaitWarn, timeWaitCrit)
	switch {
	case timeWait >= timeWaitCrit:
		c.AddCritical("time_wait",
			fmt.Sprintf("TIME_WAIT flood: %d sockets", timeWait), details, score)
	case timeWait >= timeWaitWarn:
		c.AddWarning("time_wait",
			fmt.Sprintf("High TIME_WAIT count: %d sockets", timeWait), details, score)
	default:
		c.AddOK("time_wait", fmt.Sprintf("TIME_WAIT sockets: %d", timeWait), details)
	}
}

func (c *Checker) checkInterfaceErrors(_ context.Context) {
	data, err := probe.ReadFileString(c.netDevPath)
	if err != nil {
		c.AddUnknown("interface_errors", "Could not read interface statistics")
		return
	}

	perInterface := make(map[string]int64)
	var total int64
	for name, errs := range parseNetDev(data) {
		if name == "lo" {
			continue
		}
		sum := errs[0] + errs[1]
		if sum > 0 {
			perInterface[name] = sum
		}
		total += sum
	}

	details := check.Details{"total_errors": total, "interfaces": perInterface}
	score := check.ScoreFromCount(int(total), ifaceErrWarn, ifaceErrCrit)
	switch {
	case total >= ifaceErrCrit:
		c.AddCritical("interface_errors",
			fmt.Sprintf("Interface errors: %d across %d interfaces", total, len(perInterface)), details, score)
	case total >= ifaceErrWarn:
		c.AddWarning("interface_errors",
			fmt.Sprintf("Interface errors: %d", total), details, score)
	default:
		c.AddOK("interface_errors", "No significant interface errors", details)
	}
}

func (c *Checker) checkConnectivity(ctx context.Context) {
	if len(c.settings.ConnectProbes) == 0 {
		return
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	failed := 0
	for _, endpoint := range c.settings.ConnectProbes {
		start := time.Now()
		conn, err := dialer.DialContext(ctx, "tcp", endpoint)
		if err != nil {
			failed++
			c.AddCritical("connect_"+endpoint,
				fmt.Sprintf("Cannot reach %s: %v", endpoint, err),
				check.Details{"endpoint": endpoint}, 80)
			continue
		}
		conn.Close()
		c.AddOK("connect_"+endpoint,
			fmt.Sprintf("Reached %s in %s", endpoint, time.Since(start).Round(time.Millisecond)),
			check.Details{"endpoint": endpoint, "latency_ms": time.Since(start).Milliseconds()})
	}
	c.log.Debug("connectivity probes finished",
		"total", len(c.settings.ConnectProbes), "failed", failed)
}

func (c *Checker) checkTimeSync(ctx context.Context) {
	if _, err := c.probe.LookPath("timedatectl"); err == nil {
		out, err := c.probe.Run(ctx, "timedatectl", "show", "--property=NTPSynchronized", "--value")
		if err == nil && out.ExitCode == 0 {
			switch out.Text() {
			case "yes":
				c.AddOK("time_sync", "Clock is NTP synchronized", nil)
			case "no":
				c.AddWarning("time_sync", "Clock is not NTP synchronized", nil, 55)
			default:
				c.AddWarning("time_sync", "Time synchronization state unclear", nil, 45)
			}
			return
		}
	}

	if _, err := c.probe.LookPath("chronyc"); err == nil {
		out, err := c.probe.Run(ctx, "chronyc", "tracking")
		if err == nil && out.ExitCode == 0 {
			if strings.Contains(out.Stdout, "Normal") {
				c.AddOK("time_sync", "Clock is synchronized (chrony)", nil)
			} else {
				c.AddWarning("time_sync", "chrony is running but not synchronized", nil, 50)
			}
			return
		}
	}

	c.AddWarning("time_sync", "No time synchronization daemon detected", nil, 65)
}

// numberAfter extracts the first integer following key in s.
func numberAfter(s, key string) (int, bool) {
	i := strings.Index(s, key)
	if i < 0 {
		return 0, false
	}
	rest := strings.TrimLeft(s[i+len(key):], " ")
	j := 0
	for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
		j++
	}
	if j == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(rest[:j])
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseNetDev maps interface names to their receive and transmit error
// counters from /proc/net/dev.
func parseNetDev(data string) map[string][2]int64 {
	out := make(map[string][2]int64)
	for _, line := range strings.Split(data, "\n") {
		name, rest, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" || strings.Contains(name, "|") {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) < 12 {
			continue
		}
		rx, errRx := strconv.ParseInt(fields[2], 10, 64)
		tx, errTx := strconv.ParseInt(fields[10], 10, 64)
		if errRx != nil || errTx != nil {
			continue
		}
		out[name] = [2]int64{rx, tx}
	}
	return out
}

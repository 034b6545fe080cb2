// Package webapp checks hosted web application health: endpoint probes,
// gateway errors, 404 floods, PHP-FPM pools, and document root permissions.
package webapp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/probe"
)

// Category is the report key for this checker.
const Category = "webapp"

const (
	gatewayErrWarn = 10
	gatewayErrCrit = 50

	notFoundWarn = 200
	notFoundCrit = 1000

	inactivePoolWarn = 3

	probeTimeout      = 10 * time.Second
	errorLogTailBytes = 256 * 1024
	accessLogTailBytes = 1024 * 1024
)

var requestPathRe = regexp.MustCompile(`"(?:GET|POST|HEAD)\s+(\S+)\s+HTTP`)

// Checker inspects web application health.
type Checker struct {
	*check.Collector
	probe  probe.Runner
	log    *slog.Logger
	client *http.Client

	endpoints     []string
	errorLogs     []string
	accessLogPath string
	docroots      []string
}

// New returns the webapp checker. endpoints are URLs to probe, errorLogs the
// web server error logs to scan for gateway errors.
func New(log *slog.Logger, runner probe.Runner, endpoints, errorLogs []string) *Checker {
	return &Checker{
		Collector: check.NewCollector(Category, log),
		probe:     runner,
		log:       log,
		client: &http.Client{
			Timeout: probeTimeout,
			// Judge the status an endpoint actually returns. Redirects
			// count as healthy on their own.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		endpoints:     endpoints,
		errorLogs:     errorLogs,
		accessLogPath: "/var/log/nginx/access.log",
		docroots:      []string{"/var/www/html", "/var/www"},
	}
}

// Run executes all webapp sub-checks.
func (c *Checker) Run(ctx context.Context) ([]check.Result, error) {
	c.Reset()

	subs := []func(context.Context){
		c.checkEndpoints,
		c.checkGatewayErrors,
		c.checkNotFoundFlood,
		c.checkFPMPools,
		c.checkDocroots,
	}
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return c.Results(), err
		}
		sub(ctx)
	}

	return c.Results(), nil
}

func (c *Checker) checkEndpoints(ctx context.Context) {
	for _, endpoint := range c.endpoints {
		if ctx.Err() != nil {
			return
		}
		c.probeEndpoint(ctx, endpoint)
	}
}

func (c *Checker) probeEndpoint(ctx context.Context, endpoint string) {
	name := "probe_" + endpointName(endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.AddUnknown(name, fmt.Sprintf("Invalid endpoint URL %q", endpoint))
		return
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.AddCritical(name, fmt.Sprintf("Endpoint %s is unreachable", endpoint),
			check.Details{"endpoint": endpoint, "error": err.Error()}, 90)
		return
	}
	defer resp.Body.Close()

	latency := time.Since(start)
	details := check.Details{
		"endpoint":   endpoint,
		"status":     resp.StatusCode,
		"latency_ms": latency.Milliseconds(),
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		c.AddOK(name, fmt.Sprintf("Endpoint healthy (HTTP %d, %dms)",
			resp.StatusCode, latency.Milliseconds()), details)
		return
	}
	c.AddCritical(name, fmt.Sprintf("Endpoint %s returned HTTP %d", endpoint, resp.StatusCode),
		details, 80)
}

func (c *Checker) checkGatewayErrors(_ context.Context) {
	var errors502, errors504 int
	scanned := false
	for _, path := range c.errorLogs {
		data, err := probe.TailFileString(path, errorLogTailBytes)
		if err != nil {
			continue
		}
		scanned = true
		errors502 += strings.Count(data, "502")
		errors504 += strings.Count(data, "504")
	}
	if !scanned {
		return
	}

	total := errors502 + errors504
	details := check.Details{"errors_502": errors502, "errors_504": errors504}
	switch {
	case total > gatewayErrCrit:
		c.AddCritical("gateway_errors",
			fmt.Sprintf("High rate of 502/504 errors (%d 502s, %d 504s)", errors502, errors504),
			details, 75)
	case total > gatewayErrWarn:
		c.AddWarning("gateway_errors",
			fmt.Sprintf("Gateway errors detected (%d 502s, %d 504s)", errors502, errors504),
			details, 50)
	default:
		c.AddOK("gateway_errors", "No significant gateway errors", details)
	}
}

func (c *Checker) checkNotFoundFlood(_ context.Context) {
	data, err := probe.TailFileString(c.accessLogPath, accessLogTailBytes)
	if err != nil {
		return
	}

	urls := make(map[string]int)
	total := 0
	for _, line := range strings.Split(data, "\n") {
		if !strings.Contains(line, " 404 ") {
			continue
		}
		total++
		if m := requestPathRe.FindStringSubmatch(line); m != nil {
			urls[m[1]]++
		}
	}

	details := check.Details{"total_404": total, "top_urls": topURLs(urls, 10)}
	switch {
	case total > notFoundCrit:
		c.AddCritical("404_flood", fmt.Sprintf("%d 404 errors detected", total), details, 75)
	case total > notFoundWarn:
		c.AddWarning("404_flood", fmt.Sprintf("%d 404 errors detected", total), details, 50)
	default:
		c.AddOK("404_flood", fmt.Sprintf("404 volume normal (%d)", total), details)
	}
}

func (c *Checker) checkFPMPools(ctx context.Context) {
	out, err := c.probe.Run(ctx, "systemctl", "list-units",
		"--type=service", "--all", "--plain", "--no-legend", "php*fpm*")
	if err != nil || out.ExitCode != 0 {
		return
	}

	var inactive []string
	active := 0
	for _, line := range out.Lines() {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		unit, state := fields[0], fields[2]
		if state == "active" {
			active++
		} else {
			inactive = append(inactive, unit)
		}
	}
	if active == 0 && len(inactive) == 0 {
		return
	}

	if len(inactive) > inactivePoolWarn {
		c.AddWarning("php_fpm_pools",
			fmt.Sprintf("%d PHP-FPM pools not running", len(inactive)),
			check.Details{"inactive_pools": inactive, "active_pools": active}, 55)
		return
	}
	c.AddOK("php_fpm_pools", fmt.Sprintf("%d PHP-FPM pools active", active),
		check.Details{"active_pools": active, "inactive_pools": len(inactive)})
}

// checkDocroots flags world-writable document roots. A writable docroot lets
// any local process plant web shells.
func (c *Checker) checkDocroots(_ context.Context) {
	var writable []string
	scanned := false
	for _, root := range c.docroots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}
		scanned = true
		if info.Mode().Perm()&0o002 != 0 {
			writable = append(writable, root)
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			sub, err := entry.Info()
			if err != nil {
				continue
			}
			if sub.Mode().Perm()&0o002 != 0 {
				writable = append(writable, filepath.Join(root, entry.Name()))
			}
		}
	}
	if !scanned {
		return
	}

	if len(writable) == 0 {
		c.AddOK("docroot_permissions", "Document root permissions look sane", nil)
		return
	}
	sort.Strings(writable)
	sample := writable
	if len(sample) > 10 {
		sample = sample[:10]
	}
	c.AddWarning("docroot_permissions",
		fmt.Sprintf("%d world-writable document root(s)", len(writable)),
		check.Details{"paths": sample}, 60)
}

// topURLs returns the n most frequent URLs as "count URL" strings.
func topURLs(urls map[string]int, n int) []string {
	type urlCount struct {
		url   string
		count int
	}
	counts := make([]urlCount, 0, len(urls))
	for u, c := range urls {
		counts = append(counts, urlCount{u, c})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].url < counts[j].url
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	out := make([]string, len(counts))
	for i, uc := range counts {
		out[i] = fmt.Sprintf("%dx %s", uc.count, uc.url)
	}
	return out
}

// endpointName derives a stable result name from an endpoint URL.
func endpointName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.NewReplacer("/", "_", ":", "_").Replace(raw)
	}
	name := u.Host
	if p := strings.Trim(u.Path, "/"); p != "" {
		name += "_" + p
	}
	return strings.NewReplacer("/", "_", ":", "_").Replace(name)
}

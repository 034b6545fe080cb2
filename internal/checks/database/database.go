// Package database checks the local database server: reachability,
// connection pressure, slow queries, crashed tables, and replication lag.
package database

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
const Category = "database"

const (
	connWarnPct = 70
	connCritPct = 90

	slowQueryWarn = 10
	slowQueryCrit = 100

	lagSecondsWarn = 60
	lagSecondsCrit = 600

	errorLogTailBytes = 512 * 1024
)

// Checker inspects database server health.
type Checker struct {
	*check.Collector
	probe probe.Runner
	log   *slog.Logger

	mysqlErrorLog string
}

// New returns the database checker.
func New(log *slog.Logger, runner probe.Runner) *Checker {
	return &Checker{
		Collector:     check.NewCollector(Category, log),
		probe:         runner,
		log:           log,
		mysqlErrorLog: "/var/log/mysql/error.log",
	}
}

// Run executes all database sub-checks. MySQL-family servers get the full
// set; PostgreSQL gets a reachability check via pg_isready.
func (c *Checker) Run(ctx context.Context) ([]check.Result, error) {
	c.Reset()

	if err := ctx.Err(); err != nil {
		return c.Results(), err
	}

	if _, err := c.probe.LookPath("mysqladmin"); err == nil {
		c.runMySQL(ctx)
		return c.Results(), nil
	}
	if _, err := c.probe.LookPath("pg_isready"); err == nil {
		c.checkPostgres(ctx)
		return c.Results(), nil
	}

	c.AddUnknown("database_ping", "No database server tools found")
	return c.Results(), nil
}

func (c *Checker) runMySQL(ctx context.Context) {
	if !c.checkMySQLPing(ctx) {
		return
	}
	subs := []func(context.Context){
		c.checkConnections,
		c.checkSlowQueries,
		c.checkCrashedTables,
		c.checkReplication,
	}
	for _, sub := range subs {
		if ctx.Err() != nil {
			return
		}
		sub(ctx)
	}
}

// checkMySQLPing reports server reachability and returns false when the
// deeper checks would be pointless.
func (c *Checker) checkMySQLPing(ctx context.Context) bool {
	out, err := c.probe.Run(ctx, "mysqladmin", "ping")
	if err != nil {
		c.AddUnknown("database_ping", "Could not run mysqladmin ping")
		return false
	}
	if out.ExitCode == 0 && strings.Contains(out.Stdout, "alive") {
		c.AddOK("database_ping", "MySQL server is responding", check.Details{"engine": "mysql"})
		return true
	}
	c.AddCritical("database_ping", "MySQL server is not responding",
		check.Details{"engine": "mysql", "output": out.Text()}, 95)
	return false
}

// statusValue runs a SHOW GLOBAL query and returns the numeric value of
// the named variable. Output is the -N -B two-column form "name\tvalue".
func (c *Checker) statusValue(ctx context.Context, kind, name string) (int64, bool) {
	query := fmt.Sprintf("show global %s like '%s'", kind, name)
	out, err := c.probe.Run(ctx, "mysql", "-N", "-B", "-e", query)
	if err != nil || out.ExitCode != 0 {
		return 0, false
	}
	fields := strings.Fields(out.Text())
	if len(fields) < 2 {
		return 0, false
	}
	v, err := strconv.ParseInt(fields[len(fields)-1], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (c *Checker) checkConnections(ctx context.Context) {
	connected, okC := c.statusValue(ctx, "status", "Threads_connected")
	maxConn, okM := c.statusValue(ctx, "variables", "max_connections")
	if !okC || !okM || maxConn == 0 {
		c.AddUnknown("database_connections", "Could not read connection counters")
		return
	}

	pct := float64(connected) / float64(maxConn) * 100
	details := check.Details{
		"connected":       connected,
		"max_connections": maxConn,
		"used_percent":    pct,
	}
	score := check.ScoreFromPercentage(pct, connWarnPct, connCritPct)
	switch {
	case pct >= connCritPct:
		c.AddCritical("database_connections",
			fmt.Sprintf("Connection pool nearly exhausted: %d/%d (%.0f%%)", connected, maxConn, pct), details, score)
	case pct >= connWarnPct:
		c.AddWarning("database_connections",
			fmt.Sprintf("High connection usage: %d/%d (%.0f%%)", connected, maxConn, pct), details, score)
	default:
		c.AddOK("database_connections",
			fmt.Sprintf("Connections: %d/%d", connected, maxConn), details)
	}
}

func (c *Checker) checkSlowQueries(ctx context.Context) {
	slow, ok := c.statusValue(ctx, "status", "Slow_queries")
	if !ok {
		return
	}

	details := check.Details{"slow_queries": slow}
	score := check.ScoreFromCount(int(slow), slowQueryWarn, slowQueryCrit)
	switch {
	case slow >= slowQueryCrit:
		c.AddCritical("slow_queries",
			fmt.Sprintf("Slow query counter is high: %d", slow), details, score)
	case slow >= slowQueryWarn:
		c.AddWarning("slow_queries",
			fmt.Sprintf("Slow queries recorded: %d", slow), details, score)
	default:
		c.AddOK("slow_queries", fmt.Sprintf("Slow queries: %d", slow), details)
	}
}

func (c *Checker) checkCrashedTables(_ context.Context) {
	data, err := probe.TailFileString(c.mysqlErrorLog, errorLogTailBytes)
	if err != nil {
		return
	}

	var crashed []string
	for _, line := range strings.Split(data, "\n") {
		if strings.Contains(line, "is marked as crashed") {
			crashed = append(crashed, strings.TrimSpace(line))
		}
	}
	if len(crashed) == 0 {
		c.AddOK("crashed_tables", "No crashed tables in the error log", nil)
		return
	}

	sample := crashed
	if len(sample) > 5 {
		sample = sample[:5]
	}
	c.AddCritical("crashed_tables",
		fmt.Sprintf("Crashed tables in the error log: %d mention(s)", len(crashed)),
		check.Details{"count": len(crashed), "recent": sample}, 85)
}

func (c *Checker) checkReplication(ctx context.Context) {
	out, err := c.probe.Run(ctx, "mysql", "-N", "-B", "-e", `show replica status\G`)
	if err != nil || out.ExitCode != 0 || out.Text() == "" {
		// Not a replica, or replication status is unavailable.
		return
	}

	lag, ok := verticalValue(out.Text(), "Seconds_Behind_Source")
	if !ok {
		lag, ok = verticalValue(out.Text(), "Seconds_Behind_Master")
	}
	if !ok {
		c.AddWarning("replication_lag", "Replica is running but lag is unknown",
			check.Details{"raw": firstLines(out.Text(), 3)}, 55)
		return
	}

	details := check.Details{"lag_seconds": lag}
	score := check.ScoreFromAge(float64(lag), lagSecondsWarn, lagSecondsCrit)
	switch {
	case lag >= lagSecondsCrit:
		c.AddCritical("replication_lag",
			fmt.Sprintf("Replica is %d seconds behind", lag), details, score)
	case lag >= lagSecondsWarn:
		c.AddWarning("replication_lag",
			fmt.Sprintf("Replica is %d seconds behind", lag), details, score)
	default:
		c.AddOK("replication_lag", fmt.Sprintf("Replication lag: %ds", lag), details)
	}
}

func (c *Checker) checkPostgres(ctx context.Context) {
	out, err := c.probe.Run(ctx, "pg_isready")
	if err != nil {
		c.AddUnknown("database_ping", "Could not run pg_isready")
		return
	}
	if out.ExitCode == 0 {
		c.AddOK("database_ping", "PostgreSQL server is accepting connections",
			check.Details{"engine": "postgres"})
		return
	}
	c.AddCritical("database_ping", "PostgreSQL server is not accepting connections",
		check.Details{"engine": "postgres", "output": out.Text()}, 95)
}

// verticalValue extracts an integer field from \G-style "Name: value" rows.
func verticalValue(text, name string) (int, bool) {
	for _, line := range strings.Split(text, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), ":")
		if !found || strings.TrimSpace(key) != name {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func firstLines(text string, n int) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}

package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/logging"
	"github.com/servermedic/medic/internal/probe/probetest"
)

func healthyProbe() *probetest.Runner {
	return probetest.New().
		Respond("mysqladmin ping", "mysqld is alive").
		Respond("mysql -N -B -e show global status like 'Threads_connected'", "Threads_connected\t42").
		Respond("mysql -N -B -e show global variables like 'max_connections'", "max_connections\t151").
		Respond("mysql -N -B -e show global status like 'Slow_queries'", "Slow_queries\t2").
		RespondExit(`mysql -N -B -e show replica status\G`, "", 0)
}

func newTestChecker(t *testing.T, p *probetest.Runner) *Checker {
	t.Helper()
	c := New(logging.ForTest(t), p)
	c.mysqlErrorLog = filepath.Join(t.TempDir(), "error.log")
	if err := os.WriteFile(c.mysqlErrorLog, []byte("2026-08-25T09:00:00Z 0 [Note] mysqld: ready for connections.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return c
}

func findResult(t *testing.T, results []check.Result, name string) check.Result {
	t.Helper()
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	var names []string
	for _, r := range results {
		names = append(names, r.Name)
	}
	t.Fatalf("no result named %q, have %v", name, names)
	return check.Result{}
}

func TestChecker_Run_Healthy(t *testing.T) {
	c := newTestChecker(t, healthyProbe())

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, name := range []string{
		"database_ping", "database_connections", "slow_queries", "crashed_tables",
	} {
		if r := findResult(t, results, name); r.Status != check.StatusOK {
			t.Errorf("%s = %v (%q), want OK", name, r.Status, r.Message)
		}
	}
	// Not a replica: no replication result at all.
	for _, r := range results {
		if r.Name == "replication_lag" {
			t.Errorf("replication_lag present for a non-replica: %q", r.Message)
		}
	}
}

func TestChecker_ServerDown(t *testing.T) {
	p := healthyProbe().
		RespondExit("mysqladmin ping", "mysqladmin: connect to server at 'localhost' failed", 1)
	c := newTestChecker(t, p)

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	r := findResult(t, results, "database_ping")
	if r.Status != check.StatusCritical || r.Score != 95 {
		t.Errorf("database_ping = %v score %d, want CRITICAL 95", r.Status, r.Score)
	}
	// Deeper checks are skipped when the server is down.
	if len(results) != 1 {
		t.Errorf("got %d results, want only the ping result", len(results))
	}
}

func TestChecker_ConnectionPressure(t *testing.T) {
	tests := []struct {
		name       string
		connected  string
		wantStatus check.Status
	}{
		{"normal", "Threads_connected\t42", check.StatusOK},
		{"high", "Threads_connected\t110", check.StatusWarning},
		{"exhausted", "Threads_connected\t149", check.StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := healthyProbe().
				Respond("mysql -N -B -e show global status like 'Threads_connected'", tt.connected)
			c := newTestChecker(t, p)

			results, err := c.Run(context.Background())
			if err != nil {
				t.Fatal(err)
			}

			r := findResult(t, results, "database_connections")
			if r.Status != tt.wantStatus {
				t.Errorf("database_connections = %v (%q), want %v", r.Status, r.Message, tt.wantStatus)
			}
		})
	}
}

func TestChecker_SlowQueries(t *testing.T) {
	p := healthyProbe().
		Respond("mysql -N -B -e show global status like 'Slow_queries'", "Slow_queries\t250")
	c := newTestChecker(t, p)

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	r := findResult(t, results, "slow_queries")
	if r.Status != check.StatusCritical {
		t.Errorf("slow_queries = %v (%q), want CRITICAL at 250", r.Status, r.Message)
	}
}

func TestChecker_CrashedTables(t *testing.T) {
	c := newTestChecker(t, healthyProbe())
	content := "2026-08-25T09:00:00Z 0 [ERROR] mysqld: Table './shop/orders' is marked as crashed and should be repaired\n"
	if err := os.WriteFile(c.mysqlErrorLog, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	r := findResult(t, results, "crashed_tables")
	if r.Status != check.StatusCritical || r.Score != 85 {
		t.Errorf("crashed_tables = %v score %d, want CRITICAL 85", r.Status, r.Score)
	}
}

func TestChecker_ReplicationLag(t *testing.T) {
	tests := []struct {
		name       string
		output     string
		wantStatus check.Status
	}{
		{
			"in sync",
			"Replica_IO_Running: Yes\nSeconds_Behind_Source: 3",
			check.StatusOK,
		},
		{
			"lagging",
			"Replica_IO_Running: Yes\nSeconds_Behind_Source: 120",
			check.StatusWarning,
		},
		{
			"far behind",
			"Replica_IO_Running: Yes\nSeconds_Behind_Source: 4000",
			check.StatusCritical,
		},
		{
			"legacy column name",
			"Slave_IO_Running: Yes\nSeconds_Behind_Master: 90",
			check.StatusWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := healthyProbe().Respond(`mysql -N -B -e show replica status\G`, tt.output)
			c := newTestChecker(t, p)

			results, err := c.Run(context.Background())
			if err != nil {
				t.Fatal(err)
			}

			r := findResult(t, results, "replication_lag")
			if r.Status != tt.wantStatus {
				t.Errorf("replication_lag = %v (%q), want %v", r.Status, r.Message, tt.wantStatus)
			}
		})
	}
}

func TestChecker_PostgresFallback(t *testing.T) {
	t.Run("up", func(t *testing.T) {
		p := probetest.New().
			MarkMissing("mysqladmin").
			Respond("pg_isready", "/var/run/postgresql:5432 - accepting connections")
		c := newTestChecker(t, p)

		results, err := c.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}

		r := findResult(t, results, "database_ping")
		if r.Status != check.StatusOK || r.Details["engine"] != "postgres" {
			t.Errorf("database_ping = %v engine %v, want OK postgres", r.Status, r.Details["engine"])
		}
	})

	t.Run("down", func(t *testing.T) {
		p := probetest.New().
			MarkMissing("mysqladmin").
			RespondExit("pg_isready", "/var/run/postgresql:5432 - no response", 2)
		c := newTestChecker(t, p)

		results, err := c.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}

		r := findResult(t, results, "database_ping")
		if r.Status != check.StatusCritical || r.Score != 95 {
			t.Errorf("database_ping = %v score %d, want CRITICAL 95", r.Status, r.Score)
		}
	})
}

func TestChecker_NoDatabase(t *testing.T) {
	p := probetest.New().MarkMissing("mysqladmin").MarkMissing("pg_isready")
	c := newTestChecker(t, p)

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(results) != 1 || results[0].Status != check.StatusUnknown {
		t.Errorf("results = %+v, want a single UNKNOWN", results)
	}
}

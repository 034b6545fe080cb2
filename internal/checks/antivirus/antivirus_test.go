package antivirus

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/logging"
	"github.com/servermedic/medic/internal/probe/probetest"
)

const cleanScanLog = `Scan started: Mon Aug 24 03:00:01 2026

----------- SCAN SUMMARY -----------
Known viruses: 8701283
Scanned directories: 412
Scanned files: 20931
Infected files: 0
Time: 312.441 sec (5 m 12 s)
`

func healthyProbe() *probetest.Runner {
	return probetest.New().Respond("systemctl is-active clamav-daemon", "active")
}

func newTestChecker(t *testing.T, p *probetest.Runner) *Checker {
	t.Helper()

	dir := t.TempDir()
	db := filepath.Join(dir, "daily.cvd")
	if err := os.WriteFile(db, []byte("ClamAV-VDB\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	scanLog := filepath.Join(dir, "clamav.log")
	if err := os.WriteFile(scanLog, []byte(cleanScanLog), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(logging.ForTest(t), p)
	c.dbPaths = []string{db}
	c.scanLogPaths = []string{scanLog}
	return c
}

func findResult(t *testing.T, results []check.Result, name string) check.Result {
	t.Helper()
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no result named %q in %+v", name, results)
	return check.Result{}
}

func TestChecker_Category(t *testing.T) {
	c := New(logging.ForTest(t), probetest.New())
	if c.Category() != "antivirus" {
		t.Fatalf("Category() = %q", c.Category())
	}
}

func TestChecker_NotInstalled(t *testing.T) {
	c := newTestChecker(t, probetest.New().MarkMissing("clamd"))

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Name != "antivirus" || results[0].Status != check.StatusUnknown {
		t.Errorf("result = %+v, want antivirus UNKNOWN", results[0])
	}
}

func TestChecker_Run_Healthy(t *testing.T) {
	c := newTestChecker(t, healthyProbe())

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, name := range []string{"clamd", "clamav_definitions", "clamav_scan"} {
		r := findResult(t, results, name)
		if r.Status != check.StatusOK {
			t.Errorf("%s severity = %v, want OK (%s)", name, r.Status, r.Message)
		}
	}
}

func TestChecker_DaemonInactive(t *testing.T) {
	p := probetest.New().
		RespondExit("systemctl is-active clamav-daemon", "inactive", 3).
		RespondExit("systemctl is-active clamd", "inactive", 3)
	c := newTestChecker(t, p)

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	r := findResult(t, results, "clamd")
	if r.Status != check.StatusWarning {
		t.Fatalf("clamd severity = %v, want WARNING", r.Status)
	}
	if r.Score != 45 {
		t.Errorf("clamd score = %d, want 45", r.Score)
	}
}

func TestChecker_StaleSignatures(t *testing.T) {
	c := newTestChecker(t, healthyProbe())
	old := time.Now().Add(-72 * time.Hour)
	if err := os.Chtimes(c.dbPaths[0], old, old); err != nil {
		t.Fatal(err)
	}

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	r := findResult(t, results, "clamav_definitions")
	if r.Status != check.StatusWarning {
		t.Fatalf("clamav_definitions severity = %v, want WARNING (%s)", r.Status, r.Message)
	}
	if r.Score != 55 {
		t.Errorf("clamav_definitions score = %d, want 55", r.Score)
	}
	if got := r.Details["age_hours"]; got != 72 {
		t.Errorf("age_hours detail = %v, want 72", got)
	}
}

func TestChecker_InfectedFiles(t *testing.T) {
	c := newTestChecker(t, healthyProbe())
	infectedLog := `/var/www/html/uploads/x.php: Eicar-Test-Signature FOUND
/var/www/html/uploads/y.php: Win.Trojan.Generic FOUND

----------- SCAN SUMMARY -----------
Scanned files: 20931
Infected files: 2
`
	if err := os.WriteFile(c.scanLogPaths[0], []byte(infectedLog), 0o644); err != nil {
		t.Fatal(err)
	}

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	r := findResult(t, results, "clamav_scan")
	if r.Status != check.StatusCritical {
		t.Fatalf("clamav_scan severity = %v, want CRITICAL", r.Status)
	}
	if r.Score != 90 {
		t.Errorf("clamav_scan score = %d, want 90", r.Score)
	}
	if got := r.Details["infected"]; got != 2 {
		t.Errorf("infected detail = %v, want 2", got)
	}
	sample, ok := r.Details["sample"].([]string)
	if !ok || len(sample) != 2 {
		t.Fatalf("sample detail = %v, want 2 lines", r.Details["sample"])
	}
}

func TestChecker_NoSignatureDatabase(t *testing.T) {
	c := newTestChecker(t, healthyProbe())
	c.dbPaths = []string{filepath.Join(t.TempDir(), "missing.cvd")}

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, r := range results {
		if r.Name == "clamav_definitions" {
			t.Fatal("clamav_definitions reported without a signature database")
		}
	}
}

func TestChecker_NoScanLog(t *testing.T) {
	c := newTestChecker(t, healthyProbe())
	c.scanLogPaths = []string{filepath.Join(t.TempDir(), "missing.log")}

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, r := range results {
		if r.Name == "clamav_scan" {
			t.Fatal("clamav_scan reported without a scan log")
		}
	}
}

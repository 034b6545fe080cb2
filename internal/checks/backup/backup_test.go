package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/logging"
	"github.com/servermedic/medic/internal/probe/probetest"
)

func writeFileAged(t *testing.T, path string, size int, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	mod := time.Now().Add(-age)
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatal(err)
	}
}

func newTestChecker(t *testing.T, roots []string) *Checker {
	t.Helper()
	c := New(logging.ForTest(t), probetest.New(), roots)
	dir := t.TempDir()
	c.fstabPath = filepath.Join(dir, "fstab")
	c.logrotateStatusPath = filepath.Join(dir, "logrotate-status")
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

func TestChecker_BackupAge(t *testing.T) {
	tests := []struct {
		name       string
		age        time.Duration
		wantStatus check.Status
	}{
		{"fresh", 2 * time.Hour, check.StatusOK},
		{"one missed run", 30 * time.Hour, check.StatusWarning},
		{"two missed runs", 60 * time.Hour, check.StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFileAged(t, filepath.Join(root, "backup_1.tar.gz"), 2048, tt.age)
			c := newTestChecker(t, []string{root})

			results, err := c.Run(context.Background())
			if err != nil {
				t.Fatal(err)
			}

			r := findResult(t, results, "backup_age_"+sanitize(root))
			if r.Status != tt.wantStatus {
				t.Errorf("backup_age = %v (%q), want %v", r.Status, r.Message, tt.wantStatus)
			}
		})
	}
}

func TestChecker_EmptyRoot(t *testing.T) {
	root := t.TempDir()
	c := newTestChecker(t, []string{root})

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	r := findResult(t, results, "backup_age_"+sanitize(root))
	if r.Status != check.StatusCritical || r.Score != 90 {
		t.Errorf("empty root = %v score %d, want CRITICAL 90", r.Status, r.Score)
	}
}

func TestChecker_MissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "does-not-exist")
	c := newTestChecker(t, []string{root})

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	r := findResult(t, results, "backup_age_"+sanitize(root))
	if r.Status != check.StatusWarning || r.Score != 70 {
		t.Errorf("missing root = %v score %d, want WARNING 70", r.Status, r.Score)
	}
}

func TestChecker_SizeRegression(t *testing.T) {
	root := t.TempDir()
	writeFileAged(t, filepath.Join(root, "backup_old.tar.gz"), 100*1024, 26*time.Hour)
	writeFileAged(t, filepath.Join(root, "backup_new.tar.gz"), 10*1024, 1*time.Hour)
	c := newTestChecker(t, []string{root})

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	r := findResult(t, results, "backup_size_"+sanitize(root))
	if r.Status != check.StatusWarning || r.Score != 60 {
		t.Errorf("backup_size = %v score %d, want WARNING 60", r.Status, r.Score)
	}
	if !strings.Contains(r.Message, "10%") {
		t.Errorf("message = %q, want the size share", r.Message)
	}
}

func TestChecker_NoRegressionForSimilarSizes(t *testing.T) {
	root := t.TempDir()
	writeFileAged(t, filepath.Join(root, "backup_old.tar.gz"), 100*1024, 26*time.Hour)
	writeFileAged(t, filepath.Join(root, "backup_new.tar.gz"), 95*1024, 1*time.Hour)
	c := newTestChecker(t, []string{root})

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	for _, r := range results {
		if r.Name == "backup_size_"+sanitize(root) {
			t.Errorf("unexpected size regression result: %q", r.Message)
		}
	}
}

func TestChecker_FailureMarkers(t *testing.T) {
	t.Run("single marker warns", func(t *testing.T) {
		root := t.TempDir()
		writeFileAged(t, filepath.Join(root, "backup_1.tar.gz"), 2048, time.Hour)
		writeFileAged(t, filepath.Join(root, "nightly-failed.marker"), 10, time.Hour)
		c := newTestChecker(t, []string{root})

		results, err := c.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}

		r := findResult(t, results, "backup_failures_"+sanitize(root))
		if r.Status != check.StatusWarning || r.Score != 55 {
			t.Errorf("backup_failures = %v score %d, want WARNING 55", r.Status, r.Score)
		}
	})

	t.Run("repeated markers go critical", func(t *testing.T) {
		root := t.TempDir()
		writeFileAged(t, filepath.Join(root, "backup_1.tar.gz"), 2048, time.Hour)
		for _, name := range []string{"mon.err", "tue.err", "wed.err"} {
			writeFileAged(t, filepath.Join(root, name), 10, time.Hour)
		}
		c := newTestChecker(t, []string{root})

		results, err := c.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}

		r := findResult(t, results, "backup_failures_"+sanitize(root))
		if r.Status != check.StatusCritical || r.Score != 85 {
			t.Errorf("backup_failures = %v score %d, want CRITICAL 85", r.Status, r.Score)
		}
	})
}

func TestChecker_DumpStaleness(t *testing.T) {
	tests := []struct {
		name       string
		age        time.Duration
		wantStatus check.Status
	}{
		{"fresh dump", time.Hour, check.StatusOK},
		{"stale dump", 60 * time.Hour, check.StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFileAged(t, filepath.Join(root, "backup_1.tar.gz"), 2048, time.Hour)
			writeFileAged(t, filepath.Join(root, "site_db.sql.gz"), 4096, tt.age)
			c := newTestChecker(t, []string{root})

			results, err := c.Run(context.Background())
			if err != nil {
				t.Fatal(err)
			}

			r := findResult(t, results, "db_dumps")
			if r.Status != tt.wantStatus {
				t.Errorf("db_dumps = %v (%q), want %v", r.Status, r.Message, tt.wantStatus)
			}
		})
	}
}

func TestChecker_NoDumpsNoResult(t *testing.T) {
	root := t.TempDir()
	writeFileAged(t, filepath.Join(root, "backup_1.tar.gz"), 2048, time.Hour)
	c := newTestChecker(t, []string{root})

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	for _, r := range results {
		if r.Name == "db_dumps" {
			t.Errorf("db_dumps present without any dump files: %q", r.Message)
		}
	}
}

func TestChecker_RemoteMounts(t *testing.T) {
	fstab := `# /etc/fstab
UUID=abcd / ext4 defaults 0 1
backupsrv:/export/backups /mnt/backup nfs defaults 0 0
`

	t.Run("mounted", func(t *testing.T) {
		root := t.TempDir()
		writeFileAged(t, filepath.Join(root, "backup_1.tar.gz"), 2048, time.Hour)
		c := newTestChecker(t, []string{root})
		if err := os.WriteFile(c.fstabPath, []byte(fstab), 0o644); err != nil {
			t.Fatal(err)
		}
		c.probe.(*probetest.Runner).
			Respond("findmnt -n /mnt/backup", "/mnt/backup backupsrv:/export/backups nfs rw")

		results, err := c.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if r := findResult(t, results, "remote_mounts"); r.Status != check.StatusOK {
			t.Errorf("remote_mounts = %v (%q), want OK", r.Status, r.Message)
		}
	})

	t.Run("unmounted", func(t *testing.T) {
		root := t.TempDir()
		writeFileAged(t, filepath.Join(root, "backup_1.tar.gz"), 2048, time.Hour)
		c := newTestChecker(t, []string{root})
		if err := os.WriteFile(c.fstabPath, []byte(fstab), 0o644); err != nil {
			t.Fatal(err)
		}
		c.probe.(*probetest.Runner).RespondExit("findmnt -n /mnt/backup", "", 1)

		results, err := c.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		r := findResult(t, results, "remote_mounts")
		if r.Status != check.StatusCritical || r.Score != 90 {
			t.Errorf("remote_mounts = %v score %d, want CRITICAL 90", r.Status, r.Score)
		}
	})
}

func TestChecker_Logrotate(t *testing.T) {
	root := t.TempDir()
	writeFileAged(t, filepath.Join(root, "backup_1.tar.gz"), 2048, time.Hour)
	c := newTestChecker(t, []string{root})
	writeFileAged(t, c.logrotateStatusPath, 100, 60*time.Hour)

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	r := findResult(t, results, "logrotate_state")
	if r.Status != check.StatusWarning || r.Score != 65 {
		t.Errorf("logrotate_state = %v score %d, want WARNING 65", r.Status, r.Score)
	}
}

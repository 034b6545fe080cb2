package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/servermedic/medic/internal/baseline"
)

func TestBaselineListCommand_Metadata(t *testing.T) {
	if baselineListCmd.Use != "list" {
		t.Errorf("Use = %q, want %q", baselineListCmd.Use, "list")
	}
	if baselineListCmd.Flags().Lookup("json") == nil {
		t.Error("--json flag should be defined")
	}
}

func TestRunBaselineListWithWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := runBaselineListWithWriter(&buf, baseline.NewStore(t.TempDir())); err != nil {
		t.Fatalf("runBaselineListWithWriter() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "No baseline snapshots stored") {
		t.Errorf("empty store should say so, got:\n%s", out)
	}
	if !strings.Contains(out, "--save-baseline") {
		t.Error("empty state should point at medic run --save-baseline")
	}
}

func TestRunBaselineListWithWriter_NewestFirst(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "baseline_20260301_020000.json", testReport(0))
	writeSnapshot(t, dir, "baseline_20260302_020000.json", testReport(2))

	var buf bytes.Buffer
	if err := runBaselineListWithWriter(&buf, baseline.NewStore(dir)); err != nil {
		t.Fatalf("runBaselineListWithWriter() error = %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "FILE") {
		t.Error("output should contain the table header")
	}

	newer := strings.Index(out, "baseline_20260302_020000.json")
	older := strings.Index(out, "baseline_20260301_020000.json")
	if newer == -1 || older == -1 {
		t.Fatalf("both snapshots should be listed:\n%s", out)
	}
	if newer > older {
		t.Error("newest snapshot should come first")
	}
}

func TestRunBaselineListWithWriter_JSON(t *testing.T) {
	orig := baselineListJSON
	baselineListJSON = true
	defer func() { baselineListJSON = orig }()

	dir := t.TempDir()
	writeSnapshot(t, dir, "baseline_20260301_020000.json", testReport(1))

	var buf bytes.Buffer
	if err := runBaselineListWithWriter(&buf, baseline.NewStore(dir)); err != nil {
		t.Fatalf("runBaselineListWithWriter() error = %v", err)
	}

	var infos []baseline.Info
	if err := json.Unmarshal(buf.Bytes(), &infos); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("entries = %d, want 1", len(infos))
	}
	if infos[0].Name != "baseline_20260301_020000.json" {
		t.Errorf("Name = %q", infos[0].Name)
	}
	if infos[0].Summary.Critical != 1 {
		t.Errorf("Summary.Critical = %d, want 1", infos[0].Summary.Critical)
	}
}

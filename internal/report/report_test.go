package report

import (
	"strings"
	"testing"
	"time"

	"github.com/servermedic/medic/internal/baseline"
	"github.com/servermedic/medic/internal/check"
)

func sampleReport() *check.Report {
	now := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)
	return &check.Report{
		Timestamp: now,
		Hostname:  "web01",
		Checks: map[string]check.CategoryResult{
			"system": {Results: []check.Result{
				{Name: "memory_usage", Status: check.StatusOK, Message: "Memory usage at 41.2%",
					Details: check.Details{"used_percent": 41.2}, Category: "system", Timestamp: now},
				{Name: "disk_space__", Status: check.StatusWarning, Message: "Filesystem / at 82% capacity",
					Details: check.Details{"use_percent": 82.0, "mount": "/"}, Score: 55, Category: "system", Timestamp: now},
				{Name: "load_average", Status: check.StatusOK, Message: "Load per CPU 0.42",
					Details: check.Details{"load_per_cpu": 0.42}, Category: "system", Timestamp: now},
			}},
			"mail": {Results: []check.Result{
				{Name: "mail_queue", Status: check.StatusCritical, Message: "3500 messages stuck in the mail queue",
					Details: check.Details{"queue_size": 3500}, Score: 95, Category: "mail", Timestamp: now},
			}},
			"panel": {Err: "checker timed out"},
		},
		Summary: check.Summary{TotalChecks: 4, Critical: 1, Warning: 1, OK: 2, HasIssues: true},
	}
}

func cleanReport() *check.Report {
	now := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)
	return &check.Report{
		Timestamp: now,
		Hostname:  "web01",
		Checks: map[string]check.CategoryResult{
			"system": {Results: []check.Result{
				{Name: "memory_usage", Status: check.StatusOK, Message: "Memory usage at 41.2%", Category: "system", Timestamp: now},
			}},
		},
		Summary: check.Summary{TotalChecks: 1, OK: 1},
	}
}

func sampleDiff() *baseline.Diff {
	return &baseline.Diff{
		HasBaseline:       true,
		BaselineTimestamp: time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC),
		CurrentTimestamp:  time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC),
		NewIssues: []baseline.NewIssue{
			{Category: "mail", Name: "mail_queue", Status: check.StatusCritical, Message: "3500 messages stuck in the mail queue"},
		},
		ResolvedIssues: []baseline.ResolvedIssue{
			{Category: "system", Name: "swap_usage", WasStatus: check.StatusWarning},
		},
		DegradedChecks: []baseline.ScoreChange{
			{Category: "system", Name: "disk_space__", BaselineScore: 20, CurrentScore: 55, Message: "Filesystem / at 82% capacity"},
		},
		ImprovedChecks: []baseline.ScoreChange{},
		Changes:        []string{"Critical issues increased from 0 to 1"},
	}
}

func TestCollectIssues(t *testing.T) {
	critical, warnings := CollectIssues(sampleReport())

	if len(critical) != 1 {
		t.Fatalf("critical count = %d, want 1", len(critical))
	}
	if critical[0].Category != "mail" || critical[0].Result.Name != "mail_queue" {
		t.Errorf("critical[0] = %s/%s, want mail/mail_queue", critical[0].Category, critical[0].Result.Name)
	}
	if len(warnings) != 1 {
		t.Fatalf("warning count = %d, want 1", len(warnings))
	}
	if warnings[0].Result.Name != "disk_space__" {
		t.Errorf("warnings[0].Name = %s, want disk_space__", warnings[0].Result.Name)
	}
}

func TestCollectIssues_SortsByScore(t *testing.T) {
	r := &check.Report{
		Checks: map[string]check.CategoryResult{
			"a": {Results: []check.Result{
				{Name: "low", Status: check.StatusCritical, Score: 80},
			}},
			"b": {Results: []check.Result{
				{Name: "high", Status: check.StatusCritical, Score: 95},
			}},
		},
	}

	critical, _ := CollectIssues(r)
	if len(critical) != 2 {
		t.Fatalf("critical count = %d, want 2", len(critical))
	}
	if critical[0].Result.Name != "high" {
		t.Errorf("first critical = %s, want high (score-ordered)", critical[0].Result.Name)
	}
}

func TestCollectIssues_SkipsFailedCategories(t *testing.T) {
	r := &check.Report{
		Checks: map[string]check.CategoryResult{
			"panel": {Err: "boom"},
		},
	}
	critical, warnings := CollectIssues(r)
	if len(critical) != 0 || len(warnings) != 0 {
		t.Errorf("issues from failed category: %d critical, %d warnings, want none", len(critical), len(warnings))
	}
}

func TestTopActions(t *testing.T) {
	critical, warnings := CollectIssues(sampleReport())
	actions := TopActions(critical, warnings)

	if len(actions) != 2 {
		t.Fatalf("action count = %d, want 2", len(actions))
	}
	if !strings.Contains(actions[0], "Drain the mail queue") {
		t.Errorf("actions[0] = %q, want mail queue action first", actions[0])
	}
	if !strings.Contains(actions[1], "Clean up disk space") {
		t.Errorf("actions[1] = %q, want disk space action", actions[1])
	}
}

func TestTopActions_CapsAtFive(t *testing.T) {
	var critical, warnings []Issue
	for i := 0; i < 4; i++ {
		critical = append(critical, Issue{Category: "system", Result: check.Result{
			Name: "memory_usage", Status: check.StatusCritical, Message: "high", Score: 90,
		}})
	}
	for i := 0; i < 4; i++ {
		warnings = append(warnings, Issue{Category: "system", Result: check.Result{
			Name: "swap_usage", Status: check.StatusWarning, Message: "rising", Score: 60,
		}})
	}

	actions := TopActions(critical, warnings)
	if len(actions) != 5 {
		t.Fatalf("action count = %d, want 5", len(actions))
	}
	criticalActions := 0
	for _, a := range actions {
		if strings.Contains(a, "memory usage") {
			criticalActions++
		}
	}
	if criticalActions != 3 {
		t.Errorf("critical-derived actions = %d, want 3", criticalActions)
	}
}

func TestTopActions_FallbackText(t *testing.T) {
	critical := []Issue{{Category: "network", Result: check.Result{
		Name: "something_odd", Status: check.StatusCritical, Message: "strange state", Score: 90,
	}}}

	actions := TopActions(critical, nil)
	if len(actions) != 1 {
		t.Fatalf("action count = %d, want 1", len(actions))
	}
	if actions[0] != "Address network: strange state" {
		t.Errorf("fallback action = %q", actions[0])
	}
}

func TestDetailLines(t *testing.T) {
	details := check.Details{
		"zeta":  1,
		"alpha": "first",
		"list":  []string{"a", "b"},
	}

	lines := detailLines(details, 5)
	if len(lines) != 3 {
		t.Fatalf("line count = %d, want 3", len(lines))
	}
	if lines[0] != "alpha: first" {
		t.Errorf("lines[0] = %q, want sorted keys", lines[0])
	}
	if !strings.Contains(lines[1], "[a b]") {
		t.Errorf("lines[1] = %q, want compact slice", lines[1])
	}
}

func TestDetailLines_Limit(t *testing.T) {
	details := check.Details{"a": 1, "b": 2, "c": 3}
	lines := detailLines(details, 2)
	if len(lines) != 2 {
		t.Errorf("line count = %d, want 2", len(lines))
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 150)
	got := truncate(long, 100)
	if len([]rune(got)) != 100 {
		t.Errorf("truncated length = %d, want 100", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated value %q does not end with ellipsis", got)
	}
	if truncate("short", 100) != "short" {
		t.Error("short value should pass through unchanged")
	}
}

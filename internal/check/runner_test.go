package check_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/mock"

	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/check/mocks"
	"github.com/servermedic/medic/internal/logging"
)

func okResult(category, name string) check.Result {
	return check.Result{
		Name:      name,
		Status:    check.StatusOK,
		Message:   "fine",
		Details:   check.Details{},
		Category:  category,
		Timestamp: time.Now(),
	}
}

func scoredResult(category, name string, status check.Status, score int) check.Result {
	r := okResult(category, name)
	r.Status = status
	r.Score = score
	return r
}

func newChecker(t *testing.T, category string, results []check.Result, err error) *mocks.MockChecker {
	t.Helper()
	m := mocks.NewMockChecker(t)
	m.EXPECT().Category().Return(category)
	m.EXPECT().Run(mock.Anything).Return(results, err)
	return m
}

func TestRunner_Run_AssemblesReport(t *testing.T) {
	system := newChecker(t, "system", []check.Result{
		okResult("system", "load"),
		scoredResult("system", "disk_usage_/", check.StatusWarning, 50),
	}, nil)
	network := newChecker(t, "network", []check.Result{
		scoredResult("network", "default_route", check.StatusCritical, 90),
	}, nil)

	r := check.NewRunner([]check.Checker{system, network}, logging.ForTest(t))
	report := r.Run(context.Background())

	if report.Timestamp.IsZero() {
		t.Error("Timestamp is zero, want run start time")
	}
	if len(report.Checks) != 2 {
		t.Fatalf("Checks has %d categories, want 2", len(report.Checks))
	}
	if got := len(report.Checks["system"].Results); got != 2 {
		t.Errorf("system results = %d, want 2", got)
	}

	s := report.Summary
	if s.TotalChecks != 3 || s.Critical != 1 || s.Warning != 1 || s.OK != 1 {
		t.Errorf("Summary = %+v, want total 3, critical 1, warning 1, ok 1", s)
	}
	if !s.HasIssues {
		t.Error("Summary.HasIssues = false, want true")
	}
	if !report.HasCritical() || !report.HasWarnings() {
		t.Error("HasCritical/HasWarnings = false, want true")
	}
}

func TestRunner_Run_AllOK(t *testing.T) {
	c := newChecker(t, "system", []check.Result{okResult("system", "load")}, nil)

	report := check.NewRunner([]check.Checker{c}, logging.ForTest(t)).Run(context.Background())

	if report.Summary.HasIssues {
		t.Error("Summary.HasIssues = true, want false")
	}
	if report.HasCritical() || report.HasWarnings() {
		t.Error("HasCritical/HasWarnings = true, want false")
	}
}

func TestRunner_Run_ErrorBecomesMarker(t *testing.T) {
	failing := newChecker(t, "database", nil, errors.New("mysqladmin exploded"))
	healthy := newChecker(t, "system", []check.Result{okResult("system", "load")}, nil)

	report := check.NewRunner([]check.Checker{failing, healthy}, logging.ForTest(t)).Run(context.Background())

	marker := report.Checks["database"]
	if !marker.Failed() {
		t.Fatal("database category not marked failed")
	}
	if !strings.Contains(marker.Err, "mysqladmin exploded") {
		t.Errorf("marker = %q, want the checker error", marker.Err)
	}

	// The healthy checker still completed and is the only one counted.
	if got := len(report.Checks["system"].Results); got != 1 {
		t.Errorf("system results = %d, want 1", got)
	}
	if report.Summary.TotalChecks != 1 || report.Summary.OK != 1 {
		t.Errorf("Summary = %+v, want only the completed checker counted", report.Summary)
	}
}

func TestRunner_Run_PanicIsolated(t *testing.T) {
	panicking := mocks.NewMockChecker(t)
	panicking.EXPECT().Category().Return("logs")
	panicking.EXPECT().Run(mock.Anything).RunAndReturn(func(context.Context) ([]check.Result, error) {
		panic("index out of range")
	})
	healthy := newChecker(t, "system", []check.Result{okResult("system", "load")}, nil)

	report := check.NewRunner([]check.Checker{panicking, healthy}, logging.ForTest(t)).Run(context.Background())

	marker := report.Checks["logs"]
	if !marker.Failed() {
		t.Fatal("panicking category not marked failed")
	}
	if !strings.Contains(marker.Err, "panic") || !strings.Contains(marker.Err, "index out of range") {
		t.Errorf("marker = %q, want panic message", marker.Err)
	}
	if got := len(report.Checks["system"].Results); got != 1 {
		t.Errorf("system results = %d, want 1 despite sibling panic", got)
	}
}

func TestRunner_Run_TimeoutBecomesMarker(t *testing.T) {
	slow := mocks.NewMockChecker(t)
	slow.EXPECT().Category().Return("backup")
	slow.EXPECT().Run(mock.Anything).RunAndReturn(func(ctx context.Context) ([]check.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	r := check.NewRunner([]check.Checker{slow}, logging.ForTest(t), check.WithTimeout(50*time.Millisecond))
	report := r.Run(context.Background())

	marker := report.Checks["backup"]
	if !marker.Failed() {
		t.Fatal("timed-out category not marked failed")
	}
	if !strings.Contains(marker.Err, "deadline") {
		t.Errorf("marker = %q, want deadline error", marker.Err)
	}
}

func TestRunner_Run_KeepsPartialResultsOnTimeout(t *testing.T) {
	partial := mocks.NewMockChecker(t)
	partial.EXPECT().Category().Return("tls")
	partial.EXPECT().Run(mock.Anything).RunAndReturn(func(ctx context.Context) ([]check.Result, error) {
		// Two sub-checks completed before the deadline fired.
		return []check.Result{
			okResult("tls", "cert_a"),
			scoredResult("tls", "cert_b", check.StatusWarning, 55),
		}, context.DeadlineExceeded
	})

	r := check.NewRunner([]check.Checker{partial}, logging.ForTest(t), check.WithTimeout(50*time.Millisecond))
	report := r.Run(context.Background())

	cr := report.Checks["tls"]
	if cr.Failed() {
		t.Fatalf("category with partial results marked failed: %q", cr.Err)
	}
	if got := len(cr.Results); got != 2 {
		t.Errorf("partial results = %d, want 2", got)
	}
	if report.Summary.TotalChecks != 2 {
		t.Errorf("Summary.TotalChecks = %d, want partial results counted", report.Summary.TotalChecks)
	}
}

func TestRunner_Run_ProgressHook(t *testing.T) {
	var categories []string
	var counts []int

	checkers := []check.Checker{
		newChecker(t, "system", nil, nil),
		newChecker(t, "network", nil, nil),
		newChecker(t, "logs", nil, nil),
	}

	r := check.NewRunner(checkers, logging.ForTest(t),
		check.WithProgress(func(category string, completed, total int) {
			categories = append(categories, category)
			counts = append(counts, completed)
			if total != 3 {
				t.Errorf("total = %d, want 3", total)
			}
		}))
	r.Run(context.Background())

	// Sequential by default, so completion order is registration order.
	wantCategories := []string{"system", "network", "logs"}
	for i, want := range wantCategories {
		if categories[i] != want {
			t.Errorf("progress[%d] category = %q, want %q", i, categories[i], want)
		}
		if counts[i] != i+1 {
			t.Errorf("progress[%d] completed = %d, want %d", i, counts[i], i+1)
		}
	}
}

func TestRunner_Run_Concurrent(t *testing.T) {
	started := make(chan string, 2)
	release := make(chan struct{})

	blocking := func(category string) *mocks.MockChecker {
		m := mocks.NewMockChecker(t)
		m.EXPECT().Category().Return(category)
		m.EXPECT().Run(mock.Anything).RunAndReturn(func(context.Context) ([]check.Result, error) {
			started <- category
			<-release
			return []check.Result{okResult(category, "probe")}, nil
		})
		return m
	}

	r := check.NewRunner(
		[]check.Checker{blocking("system"), blocking("network")},
		logging.ForTest(t),
		check.WithConcurrency(2),
	)

	done := make(chan *check.Report, 1)
	go func() { done <- r.Run(context.Background()) }()

	// Both checkers must be in flight at once before either is released.
	for range 2 {
		select {
		case <-started:
		case <-time.After(5 * time.Second):
			t.Fatal("checkers did not run concurrently")
		}
	}
	close(release)

	var report *check.Report
	select {
	case report = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}

	if len(report.Checks) != 2 || report.Summary.OK != 2 {
		t.Errorf("report = %+v, want both categories completed", report.Summary)
	}
}

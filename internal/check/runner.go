package check

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/servermedic/medic/internal/logging"
)

// DefaultCheckerTimeout bounds a single checker run when the runner has no
// explicit timeout configured.
const DefaultCheckerTimeout = 120 * time.Second

// CategoryResult holds one category's outcome: either the findings of a
// completed checker or the failure that stopped it.
type CategoryResult struct {
	// Results is the category's findings when the checker completed.
	Results []Result

	// Err is the checker-level failure message when it did not.
	Err string
}

// Failed reports whether the category carries an error marker.
func (cr CategoryResult) Failed() bool {
	return cr.Err != ""
}

// MarshalJSON writes the findings as an array, or the error marker object
// {"error": "..."} when the checker failed. Both shapes are part of the
// persisted snapshot contract.
func (cr CategoryResult) MarshalJSON() ([]byte, error) {
	if cr.Err != "" {
		return json.Marshal(map[string]string{"error": cr.Err})
	}
	if cr.Results == nil {
		return json.Marshal([]Result{})
	}
	return json.Marshal(cr.Results)
}

// UnmarshalJSON reads either persisted shape back.
func (cr *CategoryResult) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var marker struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(data, &marker); err != nil {
			return err
		}
		cr.Results = nil
		cr.Err = marker.Error
		return nil
	}

	var results []Result
	if err := json.Unmarshal(data, &results); err != nil {
		return err
	}
	cr.Results = results
	cr.Err = ""
	return nil
}

// Report is the assembled outcome of one inspection run. Its JSON form is
// the persisted snapshot contract shared with the baseline store.
type Report struct {
	// Timestamp is when the run started.
	Timestamp time.Time `json:"timestamp"`

	// Hostname identifies the inspected host, empty when undeterminable.
	Hostname string `json:"hostname,omitempty"`

	// Checks maps category names to their outcomes.
	Checks map[string]CategoryResult `json:"checks"`

	// Summary holds counts across all completed checkers.
	Summary Summary `json:"summary"`
}

// Summary aggregates finding counts by status. UNKNOWN findings are not
// counted: they carry no signal about host health either way.
type Summary struct {
	// TotalChecks is the count of OK, warning, and critical findings.
	TotalChecks int `json:"total_checks"`

	// Critical is the count of critical findings.
	Critical int `json:"critical"`

	// Warning is the count of warning findings.
	Warning int `json:"warning"`

	// OK is the count of OK findings.
	OK int `json:"ok"`

	// HasIssues is true when any warning or critical finding exists.
	HasIssues bool `json:"has_issues"`
}

// HasCritical reports whether any completed checker recorded a critical
// finding.
func (r *Report) HasCritical() bool {
	return r.Summary.Critical > 0
}

// HasWarnings reports whether any completed checker recorded a warning.
func (r *Report) HasWarnings() bool {
	return r.Summary.Warning > 0
}

// Categories returns the report's category names in sorted order so
// renderers and diffs walk the map deterministically.
func (r *Report) Categories() []string {
	keys := make([]string, 0, len(r.Checks))
	for k := range r.Checks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ProgressFunc observes checker completion: category is the checker that
// just finished, completed and total count checkers.
type ProgressFunc func(category string, completed, total int)

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout bounds each checker run. Non-positive values keep
// DefaultCheckerTimeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithConcurrency sets how many checkers may run at once. Values below 1
// mean sequential.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithProgress registers a hook invoked after each checker finishes.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) {
		r.progress = fn
	}
}

// Runner executes an ordered list of checkers and assembles a Report.
// Each checker records into its own collector; a failing or panicking
// checker becomes its category's error marker and never stops the rest.
type Runner struct {
	checkers []Checker
	log      *slog.Logger
	timeout  time.Duration
	limit    int
	progress ProgressFunc
}

// NewRunner returns a Runner over checkers. A nil logger discards run
// diagnostics.
func NewRunner(checkers []Checker, log *slog.Logger, opts ...Option) *Runner {
	if log == nil {
		log = logging.NewDiscard()
	}
	r := &Runner{
		checkers: checkers,
		log:      log,
		timeout:  DefaultCheckerTimeout,
		limit:    1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes all checkers and assembles the report. Checker failures are
// recorded as error markers, so Run itself never fails; summary counts only
// reflect categories that completed.
func (r *Runner) Run(ctx context.Context) *Report {
	report := &Report{
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]CategoryResult, len(r.checkers)),
	}
	if host, err := os.Hostname(); err == nil {
		report.Hostname = host
	}

	total := len(r.checkers)
	outcomes := make([]CategoryResult, total)

	// Workers never return errors; failures live in outcomes. The group
	// exists for its limit and its context plumbing.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)

	var mu sync.Mutex
	completed := 0

	for i, c := range r.checkers {
		g.Go(func() error {
			outcomes[i] = r.runOne(gctx, c)

			mu.Lock()
			completed++
			if r.progress != nil {
				r.progress(c.Category(), completed, total)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Single-writer assembly after all checkers finished.
	for i, c := range r.checkers {
		outcome := outcomes[i]
		report.Checks[c.Category()] = outcome
		if outcome.Failed() {
			continue
		}
		for _, res := range outcome.Results {
			switch res.Status {
			case StatusCritical:
				report.Summary.Critical++
			case StatusWarning:
				report.Summary.Warning++
			case StatusOK:
				report.Summary.OK++
			}
		}
	}
	report.Summary.TotalChecks = report.Summary.Critical + report.Summary.Warning + report.Summary.OK
	report.Summary.HasIssues = report.Summary.Critical > 0 || report.Summary.Warning > 0

	return report
}

// runOne executes a single checker inside its failure boundary: the
// per-checker deadline, panic recovery, and the partial-result rule.
func (r *Runner) runOne(ctx context.Context, c Checker) (out CategoryResult) {
	category := c.Category()
	log := r.log.With("category", category)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("checker panicked", "panic", rec)
			out = CategoryResult{Err: fmt.Sprintf("panic: %v", rec)}
		}
	}()

	start := time.Now()
	results, err := c.Run(ctx)
	elapsed := time.Since(start).Round(time.Millisecond)

	switch {
	case err != nil && len(results) > 0:
		// A deadline that fires mid-run still leaves the completed
		// sub-checks worth reporting.
		log.Warn("checker cut short, keeping partial results",
			"error", err, "results", len(results), "elapsed", elapsed)
		return CategoryResult{Results: results}
	case err != nil:
		log.Error("checker failed", "error", err, "elapsed", elapsed)
		return CategoryResult{Err: err.Error()}
	default:
		log.Debug("checker completed", "results", len(results), "elapsed", elapsed)
		return CategoryResult{Results: results}
	}
}

package check

import (
	"log/slog"
	"time"

	"github.com/servermedic/medic/internal/logging"
)

// Default scores applied when a finding is recorded without an explicit
// score.
const (
	defaultWarningScore  = 50
	defaultCriticalScore = 85
)

// Collector accumulates findings for one category. Checker packages embed
// a *Collector so their sub-checks share the record helpers and the
// Category accessor that satisfies half the Checker interface.
type Collector struct {
	category string
	log      *slog.Logger
	results  []Result
}

// NewCollector returns an empty collector recording under category.
// A nil logger discards reconciliation diagnostics.
func NewCollector(category string, log *slog.Logger) *Collector {
	if log == nil {
		log = logging.NewDiscard()
	}
	return &Collector{category: category, log: log}
}

// Add records a finding. When a nonzero score disagrees with the supplied
// status, the score-derived classification wins; the mismatch is a caller
// bug surfaced at debug level.
func (c *Collector) Add(name string, status Status, message string, details Details, score int) Result {
	if details == nil {
		details = Details{}
	}
	if score > 0 {
		if derived := Classify(score); derived != status {
			c.log.Debug("status reconciled from score",
				"category", c.category, "check", name,
				"status", status, "derived", derived, "score", score)
			status = derived
		}
	}

	r := Result{
		Name:      name,
		Status:    status,
		Message:   message,
		Details:   details,
		Score:     score,
		Category:  c.category,
		Timestamp: time.Now(),
	}
	c.results = append(c.results, r)
	return r
}

// AddOK records an OK finding with score 0.
func (c *Collector) AddOK(name, message string, details Details) Result {
	return c.Add(name, StatusOK, message, details, 0)
}

// AddWarning records a warning finding. A zero score means the default of 50.
func (c *Collector) AddWarning(name, message string, details Details, score int) Result {
	if score == 0 {
		score = defaultWarningScore
	}
	return c.Add(name, StatusWarning, message, details, score)
}

// AddCritical records a critical finding. A zero score means the default of 85.
func (c *Collector) AddCritical(name, message string, details Details, score int) Result {
	if score == 0 {
		score = defaultCriticalScore
	}
	return c.Add(name, StatusCritical, message, details, score)
}

// AddUnknown records an indeterminate finding with score 0.
func (c *Collector) AddUnknown(name, message string) Result {
	return c.Add(name, StatusUnknown, message, nil, 0)
}

// Category returns the category findings are recorded under.
func (c *Collector) Category() string {
	return c.category
}

// Results returns all findings in record order.
func (c *Collector) Results() []Result {
	return c.results
}

// CriticalResults returns only the critical findings.
func (c *Collector) CriticalResults() []Result {
	return c.filter(StatusCritical)
}

// WarningResults returns only the warning findings.
func (c *Collector) WarningResults() []Result {
	return c.filter(StatusWarning)
}

// OKResults returns only the OK findings.
func (c *Collector) OKResults() []Result {
	return c.filter(StatusOK)
}

func (c *Collector) filter(status Status) []Result {
	var out []Result
	for _, r := range c.results {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// HasIssues reports whether any finding is not OK.
func (c *Collector) HasIssues() bool {
	for _, r := range c.results {
		if !r.IsOK() {
			return true
		}
	}
	return false
}

// MaxScore returns the highest recorded score, 0 when empty.
func (c *Collector) MaxScore() int {
	maxScore := 0
	for _, r := range c.results {
		maxScore = max(maxScore, r.Score)
	}
	return maxScore
}

// Reset clears recorded findings so the collector can be reused. Checkers
// call it at the top of Run to stay re-runnable.
func (c *Collector) Reset() {
	c.results = nil
}

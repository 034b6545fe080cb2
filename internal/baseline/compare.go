package baseline

import (
	"fmt"
	"sort"
	"time"

	"github.com/servermedic/medic/internal/check"
)

// DefaultHysteresis is the score dead band for degraded/improved detection.
// Scores drift a few points between runs (load averages, queue depths), so
// movement inside the band is treated as noise.
const DefaultHysteresis = 10

// NewIssue is a finding present now but absent from the baseline.
type NewIssue struct {
	Category string       `json:"category"`
	Name     string       `json:"name"`
	Status   check.Status `json:"status"`
	Message  string       `json:"message"`
}

// ResolvedIssue is a baseline finding that no longer appears.
type ResolvedIssue struct {
	Category  string       `json:"category"`
	Name      string       `json:"name"`
	WasStatus check.Status `json:"was_status"`
}

// ScoreChange records a finding whose score moved beyond the hysteresis
// band between baseline and current run.
type ScoreChange struct {
	Category      string `json:"category"`
	Name          string `json:"name"`
	BaselineScore int    `json:"baseline_score"`
	CurrentScore  int    `json:"current_score"`
	Message       string `json:"message,omitempty"`
}

// Diff is the outcome of comparing a current report against a baseline.
// When no baseline exists only HasBaseline and Message are populated; the
// omitzero tags drop the nil slices while a populated diff still serializes
// its empty lists as [].
type Diff struct {
	HasBaseline       bool            `json:"has_baseline"`
	Message           string          `json:"message,omitempty"`
	BaselineTimestamp time.Time       `json:"baseline_timestamp,omitzero"`
	CurrentTimestamp  time.Time       `json:"current_timestamp,omitzero"`
	NewIssues         []NewIssue      `json:"new_issues,omitzero"`
	ResolvedIssues    []ResolvedIssue `json:"resolved_issues,omitzero"`
	DegradedChecks    []ScoreChange   `json:"degraded_checks,omitzero"`
	ImprovedChecks    []ScoreChange   `json:"improved_checks,omitzero"`
	Changes           []string        `json:"changes,omitzero"`
}

// HasChanges reports whether the diff contains any movement worth showing.
func (d *Diff) HasChanges() bool {
	return len(d.NewIssues) > 0 || len(d.ResolvedIssues) > 0 ||
		len(d.DegradedChecks) > 0 || len(d.ImprovedChecks) > 0 ||
		len(d.Changes) > 0
}

// Option configures Compare.
type Option func(*compareConfig)

type compareConfig struct {
	hysteresis int
}

// WithHysteresis overrides the score dead band. Negative values keep the
// default.
func WithHysteresis(points int) Option {
	return func(c *compareConfig) {
		if points >= 0 {
			c.hysteresis = points
		}
	}
}

// Compare diffs current against prior, keyed by (category, name). A nil
// prior yields the no-baseline marker diff. Categories that failed on
// either side carry no comparable findings and are skipped.
func Compare(current, prior *check.Report, opts ...Option) *Diff {
	cfg := compareConfig{hysteresis: DefaultHysteresis}
	for _, opt := range opts {
		opt(&cfg)
	}

	if prior == nil {
		return &Diff{Message: "No baseline available for comparison"}
	}

	diff := &Diff{
		HasBaseline:       true,
		BaselineTimestamp: prior.Timestamp,
		CurrentTimestamp:  current.Timestamp,
		NewIssues:         []NewIssue{},
		ResolvedIssues:    []ResolvedIssue{},
		DegradedChecks:    []ScoreChange{},
		ImprovedChecks:    []ScoreChange{},
		Changes:           []string{},
	}

	if prior.Summary.Critical != current.Summary.Critical {
		verb := "increased"
		if current.Summary.Critical < prior.Summary.Critical {
			verb = "decreased"
		}
		diff.Changes = append(diff.Changes, fmt.Sprintf("Critical issues %s from %d to %d",
			verb, prior.Summary.Critical, current.Summary.Critical))
	}

	for _, category := range sortedUnion(prior.Checks, current.Checks) {
		priorCat := prior.Checks[category]
		currentCat := current.Checks[category]
		if priorCat.Failed() || currentCat.Failed() {
			continue
		}

		priorByName := resultsByName(priorCat.Results)
		currentByName := resultsByName(currentCat.Results)

		for _, name := range sortedUnion(priorByName, currentByName) {
			priorRes, inPrior := priorByName[name]
			currentRes, inCurrent := currentByName[name]

			switch {
			case !inPrior && inCurrent:
				if currentRes.IsCritical() || currentRes.IsWarning() {
					diff.NewIssues = append(diff.NewIssues, NewIssue{
						Category: category,
						Name:     name,
						Status:   currentRes.Status,
						Message:  currentRes.Message,
					})
				}

			case inPrior && !inCurrent:
				if priorRes.IsCritical() || priorRes.IsWarning() {
					diff.ResolvedIssues = append(diff.ResolvedIssues, ResolvedIssue{
						Category:  category,
						Name:      name,
						WasStatus: priorRes.Status,
					})
				}

			default:
				switch {
				case currentRes.Score > priorRes.Score+cfg.hysteresis:
					diff.DegradedChecks = append(diff.DegradedChecks, ScoreChange{
						Category:      category,
						Name:          name,
						BaselineScore: priorRes.Score,
						CurrentScore:  currentRes.Score,
						Message:       currentRes.Message,
					})
				case currentRes.Score < priorRes.Score-cfg.hysteresis:
					diff.ImprovedChecks = append(diff.ImprovedChecks, ScoreChange{
						Category:      category,
						Name:          name,
						BaselineScore: priorRes.Score,
						CurrentScore:  currentRes.Score,
					})
				}
			}
		}
	}

	return diff
}

func resultsByName(results []check.Result) map[string]check.Result {
	byName := make(map[string]check.Result, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}
	return byName
}

// sortedUnion returns the sorted union of both maps' keys so the diff walks
// categories and findings deterministically.
func sortedUnion[A, B any](a map[string]A, b map[string]B) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

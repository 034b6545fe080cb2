package check

import "time"

// Details carries open key-value context for a finding. The core never
// interprets it; renderers display it verbatim.
type Details map[string]any

// Result is a single finding produced by a checker. The JSON field names
// are a persisted contract: baselines written by earlier runs must keep
// loading, so they never change.
type Result struct {
	// Name identifies the finding within its category.
	Name string `json:"name"`

	// Status is the severity classification.
	Status Status `json:"status"`

	// Message is the human-readable summary.
	Message string `json:"message"`

	// Details holds extra context keyed by measurement name.
	Details Details `json:"details"`

	// Score is the 0-100 severity score behind Status.
	Score int `json:"severity_score"`

	// Category names the checker that produced the finding.
	Category string `json:"category"`

	// Timestamp records when the finding was made.
	Timestamp time.Time `json:"timestamp"`
}

// IsOK reports whether the finding is in the OK band.
func (r Result) IsOK() bool {
	return r.Status == StatusOK
}

// IsWarning reports whether the finding is in the warning band.
func (r Result) IsWarning() bool {
	return r.Status == StatusWarning
}

// IsCritical reports whether the finding is in the critical band.
func (r Result) IsCritical() bool {
	return r.Status == StatusCritical
}

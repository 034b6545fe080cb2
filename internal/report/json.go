package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/servermedic/medic/internal/baseline"
	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/errors"
)

// jsonReport is the machine-readable envelope: the snapshot fields plus the
// baseline comparison when one was computed.
type jsonReport struct {
	Timestamp time.Time                       `json:"timestamp"`
	Hostname  string                          `json:"hostname,omitempty"`
	Checks    map[string]check.CategoryResult `json:"checks"`
	Summary   check.Summary                   `json:"summary"`
	Baseline  *baseline.Diff                  `json:"baseline_comparison,omitempty"`
}

// WriteJSON writes the report as indented JSON. A nil diff omits the
// baseline_comparison field entirely.
func WriteJSON(w io.Writer, r *check.Report, diff *baseline.Diff) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(jsonReport{
		Timestamp: r.Timestamp,
		Hostname:  r.Hostname,
		Checks:    r.Checks,
		Summary:   r.Summary,
		Baseline:  diff,
	}), "encoding report")
}

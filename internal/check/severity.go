package check

// Status classifies a finding on the shared severity scale.
type Status string

const (
	// StatusOK means the measurement is inside its normal range.
	StatusOK Status = "OK"

	// StatusWarning means the measurement crossed its warning threshold.
	StatusWarning Status = "WARNING"

	// StatusCritical means the measurement crossed its critical threshold.
	StatusCritical Status = "CRITICAL"

	// StatusUnknown means the checker could not determine the truth,
	// typically because a probe was unavailable on the host.
	StatusUnknown Status = "UNKNOWN"
)

// Classification boundaries. Every scoring function targets these bands, so
// scores computed from disk usage, certificate age, and error counts stay
// mutually comparable.
const (
	okMax      = 30
	warningMax = 70
)

// Classify maps a severity score to its status band. Scores outside [0,100]
// classify as UNKNOWN.
func Classify(score int) Status {
	if score < 0 || score > 100 {
		return StatusUnknown
	}
	switch {
	case score <= okMax:
		return StatusOK
	case score <= warningMax:
		return StatusWarning
	default:
		return StatusCritical
	}
}

// ScoreFromPercentage maps a usage percentage onto the severity scale.
// Below warn the value spans the OK band, between warn and crit the warning
// band, and at or above crit the critical band up to 100. The score is
// non-decreasing in value. Callers must keep warn < crit < 100.
func ScoreFromPercentage(value, warn, crit float64) int {
	switch {
	case value >= crit:
		return int(71 + (value-crit)/(100-crit)*29)
	case value >= warn:
		return int(31 + (value-warn)/(crit-warn)*39)
	default:
		return int(value / warn * 30)
	}
}

// ScoreFromAge maps an age in hours onto the severity scale. Ages have no
// natural ceiling, so the excess beyond crit is capped at one
// critical-threshold width before being stretched across the critical band.
func ScoreFromAge(ageHours, warnHours, critHours float64) int {
	switch {
	case ageHours >= critHours:
		excess := min(ageHours-critHours, critHours)
		return int(71 + excess/critHours*29)
	case ageHours >= warnHours:
		return int(31 + (ageHours-warnHours)/(critHours-warnHours)*39)
	default:
		return int(ageHours / warnHours * 30)
	}
}

// ScoreFromCount maps an occurrence count onto the severity scale with the
// same capped-excess shape as ScoreFromAge. A warn threshold of zero means
// any occurrence goes straight onto the critical ramp; a zero count scores
// zero.
func ScoreFromCount(count, warn, crit int) int {
	if count >= crit || (warn == 0 && count != 0) {
		excess := min(count-crit, crit)
		return int(71 + float64(excess)/float64(crit)*29)
	}
	if warn == 0 {
		return 0
	}
	if count >= warn {
		return int(31 + float64(count-warn)/float64(crit-warn)*39)
	}
	return int(float64(count) / float64(warn) * 30)
}

// Aggregate reduces findings to a worst-case view: the classification of
// the highest score plus critical and warning counts. Empty input yields
// (StatusUnknown, 0, 0, 0).
func Aggregate(results []Result) (Status, int, int, int) {
	if len(results) == 0 {
		return StatusUnknown, 0, 0, 0
	}

	maxScore := 0
	criticalCount := 0
	warningCount := 0
	for _, r := range results {
		maxScore = max(maxScore, r.Score)
		switch r.Status {
		case StatusCritical:
			criticalCount++
		case StatusWarning:
			warningCount++
		}
	}

	return Classify(maxScore), maxScore, criticalCount, warningCount
}

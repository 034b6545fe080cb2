// Package check defines the core health inspection model: the severity
// scale, the finding format, the checker contract, and the runner that
// executes a fleet of checkers into a single report.
//
// # Severity Scale
//
// Every finding carries an integer score in [0,100], classified into bands
// by [Classify]: 0-30 is OK, 31-70 is WARNING, above 70 is CRITICAL, and
// anything outside [0,100] is UNKNOWN. The scoring helpers
// [ScoreFromPercentage], [ScoreFromAge], and [ScoreFromCount] map raw
// measurements onto this scale piecewise-linearly, so a disk at 95% usage
// and a certificate three days from expiry land on comparable scores.
//
// # Recording Findings
//
// Checker packages embed a [Collector] and record through its helpers:
//
//	c.AddOK("disk_usage_/", "Disk usage normal: 42%", check.Details{"percent": 42})
//	c.AddCritical("cert_expiry", "Certificate expires in 2 days", nil, 92)
//
// When a supplied score and status disagree, the score wins; the score is
// ground truth and the status a convenience.
//
// # Running Checkers
//
// [Runner.Run] executes every registered [Checker] inside a failure
// boundary. A checker that returns an error or panics becomes an error
// marker for its category; the remaining checkers still run. The assembled
// [Report] serializes to the persisted snapshot format consumed by the
// baseline store and the report renderers.
package check

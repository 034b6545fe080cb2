// Package baseline persists inspection reports as snapshots and diffs
// consecutive runs for drift.
//
// # Snapshot Layout
//
// Snapshots are flat JSON files in a single directory, one report each:
//
//	$XDG_STATE_HOME/medic/baselines/
//	├── baseline_20260301_020000.json
//	├── baseline_20260302_020000.json
//	└── baseline_latest.json
//
// [Store.Save] writes a timestamped snapshot and mirrors it to
// baseline_latest.json. Both writes go through an atomic temp-and-rename,
// so a run reading the latest baseline while another run saves one never
// sees a torn file.
//
// # Comparing Runs
//
// [Compare] performs a keyed diff between two reports over (category,
// finding name):
//
//   - findings only in the current report that are WARNING or CRITICAL
//     become new issues
//   - WARNING or CRITICAL findings only in the baseline become resolved
//     issues
//   - findings in both whose score moved more than the hysteresis band
//     (default 10 points) become degraded or improved checks
//
// Scores wobble a little between runs, so the hysteresis band keeps the
// diff quiet on noise; tune it with [WithHysteresis] or the
// baseline.hysteresis config key.
//
// # Retention
//
// [Store.Prune] keeps the newest N timestamped snapshots and never touches
// the latest marker.
package baseline

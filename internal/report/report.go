// Package report renders inspection reports for terminals, JSON consumers,
// HTML documents, and email delivery. All renderers consume the same
// check.Report plus an optional baseline diff and walk it deterministically.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/servermedic/medic/internal/check"
)

// Issue pairs a finding with the category it came from, the unit the
// renderers work in.
type Issue struct {
	Category string
	Result   check.Result
}

// CollectIssues splits a report into critical and warning findings, each
// sorted by severity score descending. Categories that failed carry no
// findings and are skipped.
func CollectIssues(r *check.Report) (critical, warnings []Issue) {
	for _, category := range r.Categories() {
		cat := r.Checks[category]
		if cat.Failed() {
			continue
		}
		for _, res := range cat.Results {
			issue := Issue{Category: category, Result: res}
			switch {
			case res.IsCritical():
				critical = append(critical, issue)
			case res.IsWarning():
				warnings = append(warnings, issue)
			}
		}
	}

	sortByScore(critical)
	sortByScore(warnings)
	return critical, warnings
}

// sortByScore orders issues by score descending. The stable sort keeps the
// category walk order for ties so output does not jitter between runs.
func sortByScore(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Result.Score > issues[j].Result.Score
	})
}

// actionTexts maps finding-name substrings to a recommended operator action.
// Order matters: the first matching entry wins, so more specific keys sit
// above broader ones.
var actionTexts = []struct {
	match  string
	action string
}{
	{"disk_space", "Clean up disk space or expand storage"},
	{"inodes", "Remove small-file hoards or grow the filesystem"},
	{"memory_usage", "Investigate high memory usage and restart offending services"},
	{"swap_usage", "Add RAM or track down the memory leak"},
	{"load_average", "Find the runaway processes driving system load"},
	{"oom_events", "Raise memory limits or move workloads off this host"},
	{"blacklist", "Request delisting from the blocklist and find the spam source"},
	{"panel_license", "Renew the control panel license"},
	{"mail_queue", "Drain the mail queue and check for delivery failures"},
	{"cert_", "Renew TLS certificates before they expire"},
	{"backup_", "Verify backups and run a fresh one now"},
	{"db_dumps", "Verify database dumps and run a fresh export"},
	{"world_writable", "Fix file and directory permissions"},
	{"security_updates", "Apply the pending security updates"},
	{"pending_updates", "Apply the pending package updates"},
	{"failed_logins", "Review auth logs and tighten SSH exposure"},
	{"top_cpu", "Investigate the processes burning CPU"},
	{"zombie", "Restart the parent of the zombie processes"},
	{"clamav_scan", "Quarantine the infected files and rescan"},
	{"404_flood", "Block the scanner addresses hammering the web server"},
	{"raid_mdadm", "Replace the failed disk and rebuild the array"},
}

// TopActions returns up to five recommended actions, critical findings first
// (at most three), then warnings to fill the remainder. Both inputs are
// expected sorted by score descending, as CollectIssues returns them.
func TopActions(critical, warnings []Issue) []string {
	var actions []string
	for _, issue := range critical {
		if len(actions) >= 3 {
			break
		}
		actions = append(actions, actionFor(issue))
	}
	for _, issue := range warnings {
		if len(actions) >= 5 {
			break
		}
		actions = append(actions, actionFor(issue))
	}
	return actions
}

// actionFor maps a finding to its recommended action, falling back to a
// generic "address this" line when no mapping matches.
func actionFor(issue Issue) string {
	name := strings.ToLower(issue.Result.Name)
	for _, entry := range actionTexts {
		if strings.Contains(name, entry.match) {
			return fmt.Sprintf("%s (%s: %s)", entry.action, issue.Category, issue.Result.Message)
		}
	}
	return fmt.Sprintf("Address %s: %s", issue.Category, issue.Result.Message)
}

// detailLines flattens a finding's details into sorted "key: value" pairs,
// keeping at most limit entries. Slice and map values are printed compactly
// and truncated so one chatty checker cannot flood the report.
func detailLines(details check.Details, limit int) []string {
	if len(details) == 0 {
		return nil
	}

	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > limit {
		keys = keys[:limit]
	}

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, truncate(fmt.Sprint(details[k]), 100)))
	}
	return lines
}

// truncate shortens s to max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

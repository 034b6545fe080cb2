package report

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/servermedic/medic/internal/baseline"
	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/errors"
)

// htmlIssue is one finding prepared for the HTML template.
type htmlIssue struct {
	Category string
	Message  string
	Score    int
	Warning  bool
	Details  []htmlDetail
}

type htmlDetail struct {
	Key   string
	Value string
}

// htmlScoreChange is a degraded or improved finding with its delta
// preformatted.
type htmlScoreChange struct {
	Category string
	Name     string
	From     int
	To       int
	Delta    string
	Message  string
}

type htmlNewIssue struct {
	Category string
	Name     string
	Status   string
	Badge    string
	Message  string
}

type htmlResolved struct {
	Category string
	Name     string
	Was      string
}

// htmlDiff is the baseline comparison prepared for the template.
type htmlDiff struct {
	Baseline  string
	Current   string
	New       []htmlNewIssue
	Resolved  []htmlResolved
	Degraded  []htmlScoreChange
	Improved  []htmlScoreChange
	Changes   []string
	NoChanges bool
}

// htmlData is the full template payload.
type htmlData struct {
	Hostname  string
	Timestamp string
	Total     int
	Critical  int
	Warning   int
	OK        int
	Donut     template.HTML
	Metrics   template.HTML
	Timeline  template.HTML
	Actions   []string
	Criticals []htmlIssue
	Warnings  []htmlIssue
	Diff      *htmlDiff
	AllClear  bool
	Generated string
}

// WriteHTML renders the report as a self-contained HTML document with inline
// SVG charts. No external assets are referenced, so the output works as an
// email body or a saved file.
func WriteHTML(w io.Writer, r *check.Report, diff *baseline.Diff) error {
	critical, warnings := CollectIssues(r)

	top := make([]Issue, 0, 5)
	top = append(top, critical...)
	top = append(top, warnings...)

	hostname := r.Hostname
	if hostname == "" {
		hostname = "unknown"
	}

	data := htmlData{
		Hostname:  hostname,
		Timestamp: r.Timestamp.Format(timeLayout),
		Total:     r.Summary.TotalChecks,
		Critical:  r.Summary.Critical,
		Warning:   r.Summary.Warning,
		OK:        r.Summary.OK,
		Donut:     severityDonut(r.Summary.Critical, r.Summary.Warning, r.Summary.OK),
		Metrics:   metricsChart(MetricsFromReport(r)),
		Timeline:  issueTimeline(top),
		Actions:   TopActions(critical, warnings),
		Criticals: htmlIssues(critical, false),
		Warnings:  htmlIssues(warnings, true),
		Diff:      htmlDiffData(diff),
		AllClear:  len(critical) == 0 && len(warnings) == 0,
		Generated: time.Now().Format(timeLayout),
	}

	return errors.Wrap(htmlTemplate.Execute(w, data), "rendering HTML report")
}

func htmlIssues(issues []Issue, warning bool) []htmlIssue {
	out := make([]htmlIssue, 0, len(issues))
	for _, issue := range issues {
		h := htmlIssue{
			Category: issue.Category,
			Message:  issue.Result.Message,
			Score:    issue.Result.Score,
			Warning:  warning,
		}
		for _, line := range detailLines(issue.Result.Details, 3) {
			key, value, found := strings.Cut(line, ": ")
			if !found {
				continue
			}
			h.Details = append(h.Details, htmlDetail{Key: key, Value: value})
		}
		out = append(out, h)
	}
	return out
}

func htmlDiffData(diff *baseline.Diff) *htmlDiff {
	if diff == nil || !diff.HasBaseline {
		return nil
	}

	d := &htmlDiff{
		Baseline:  diff.BaselineTimestamp.Format(timeLayout),
		Current:   diff.CurrentTimestamp.Format(timeLayout),
		Changes:   diff.Changes,
		NoChanges: !diff.HasChanges(),
	}
	for _, issue := range capNew(diff.NewIssues) {
		d.New = append(d.New, htmlNewIssue{
			Category: issue.Category,
			Name:     issue.Name,
			Status:   string(issue.Status),
			Badge:    strings.ToLower(string(issue.Status)),
			Message:  truncate(issue.Message, 150),
		})
	}
	for _, issue := range capResolved(diff.ResolvedIssues) {
		d.Resolved = append(d.Resolved, htmlResolved{
			Category: issue.Category,
			Name:     issue.Name,
			Was:      string(issue.WasStatus),
		})
	}
	d.Degraded = htmlScoreChanges(diff.DegradedChecks)
	d.Improved = htmlScoreChanges(diff.ImprovedChecks)
	return d
}

func capNew(issues []baseline.NewIssue) []baseline.NewIssue {
	if len(issues) > maxDiffItems {
		return issues[:maxDiffItems]
	}
	return issues
}

func capResolved(issues []baseline.ResolvedIssue) []baseline.ResolvedIssue {
	if len(issues) > maxDiffItems {
		return issues[:maxDiffItems]
	}
	return issues
}

func htmlScoreChanges(changes []baseline.ScoreChange) []htmlScoreChange {
	if len(changes) > maxDiffItems {
		changes = changes[:maxDiffItems]
	}
	out := make([]htmlScoreChange, 0, len(changes))
	for _, change := range changes {
		out = append(out, htmlScoreChange{
			Category: change.Category,
			Name:     change.Name,
			From:     change.BaselineScore,
			To:       change.CurrentScore,
			Delta:    fmt.Sprintf("%+d", change.CurrentScore-change.BaselineScore),
			Message:  truncate(change.Message, 150),
		})
	}
	return out
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"addOne": func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Server Health Report</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Arial, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; background-color: #f5f5f5; }
.container { background: white; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); padding: 30px; }
h1 { color: #2c3e50; border-bottom: 3px solid #3498db; padding-bottom: 10px; margin-top: 0; }
h2 { color: #34495e; margin-top: 30px; border-left: 4px solid #3498db; padding-left: 15px; }
.summary { display: table; width: 100%; margin: 20px 0; }
.summary-card { display: table-cell; padding: 20px; text-align: center; border-radius: 6px; }
.critical-card { background: #fee; border: 2px solid #e74c3c; }
.warning-card { background: #fff3cd; border: 2px solid #f39c12; }
.ok-card { background: #d4edda; border: 2px solid #27ae60; }
.card-number { font-size: 48px; font-weight: bold; margin: 10px 0; }
.card-label { font-size: 14px; text-transform: uppercase; font-weight: 600; }
.issue { background: #f8f9fa; border-left: 4px solid #e74c3c; padding: 15px; margin: 15px 0; border-radius: 4px; }
.issue.warning { border-left-color: #f39c12; }
.issue-title { font-weight: 600; color: #2c3e50; margin-bottom: 8px; }
.issue-category { display: inline-block; background: #3498db; color: white; padding: 3px 10px; border-radius: 3px; font-size: 12px; text-transform: uppercase; font-weight: 600; }
.severity-score { display: inline-block; background: #95a5a6; color: white; padding: 3px 10px; border-radius: 3px; font-size: 12px; margin-left: 10px; }
.actions { background: #e8f4f8; border: 2px solid #3498db; border-radius: 6px; padding: 20px; margin: 20px 0; }
.actions h3 { margin-top: 0; color: #2980b9; }
.action-item { padding: 10px 0; border-bottom: 1px solid #bdc3c7; }
.action-item:last-child { border-bottom: none; }
.action-number { display: inline-block; background: #3498db; color: white; width: 24px; height: 24px; border-radius: 50%; text-align: center; line-height: 24px; font-weight: bold; margin-right: 10px; }
.diff-entry { background: #f8f9fa; border-left: 4px solid #95a5a6; padding: 10px; margin: 10px 0; border-radius: 4px; }
.diff-entry.new-critical { border-left-color: #e74c3c; }
.diff-entry.new-warning { border-left-color: #f39c12; }
.diff-entry.resolved { background: #d4edda; border-left-color: #27ae60; }
.diff-entry.degraded { background: #fff3cd; border-left-color: #f39c12; }
.diff-entry.improved { background: #d4edda; border-left-color: #27ae60; }
.status-badge { display: inline-block; padding: 4px 12px; border-radius: 4px; font-weight: 600; font-size: 12px; }
.badge-critical { background: #e74c3c; color: white; }
.badge-warning { background: #f39c12; color: white; }
.footer { text-align: center; margin-top: 40px; padding-top: 20px; border-top: 1px solid #ddd; color: #7f8c8d; font-size: 14px; }
</style>
</head>
<body>
<div class="container">
<h1>Server Health Report</h1>

<p><strong>Server:</strong> {{.Hostname}}</p>
<p><strong>Scan time:</strong> {{.Timestamp}}</p>
<p><strong>Total checks:</strong> {{.Total}}</p>

<div class="summary">
<div class="summary-card critical-card"><div class="card-label">Critical</div><div class="card-number" style="color: #e74c3c;">{{.Critical}}</div></div>
<div class="summary-card warning-card"><div class="card-label">Warning</div><div class="card-number" style="color: #f39c12;">{{.Warning}}</div></div>
<div class="summary-card ok-card"><div class="card-label">OK</div><div class="card-number" style="color: #27ae60;">{{.OK}}</div></div>
</div>
{{if .Diff}}
<h2>Baseline Comparison</h2>
<div style="background: #f8f9fa; padding: 15px; border-radius: 6px; margin: 15px 0;">
<p><strong>Baseline:</strong> {{.Diff.Baseline}}</p>
<p><strong>Current:</strong> {{.Diff.Current}}</p>
</div>
{{if .Diff.New}}
<h3 style="color: #e74c3c;">New Issues ({{len .Diff.New}})</h3>
{{range .Diff.New}}<div class="diff-entry new-{{.Badge}}"><div style="font-weight: 600;"><span class="status-badge badge-{{.Badge}}">{{.Status}}</span> {{.Category}}: {{.Name}}</div><div style="color: #555; margin-top: 5px;">{{.Message}}</div></div>
{{end}}{{end}}
{{if .Diff.Resolved}}
<h3 style="color: #27ae60;">Resolved Issues ({{len .Diff.Resolved}})</h3>
{{range .Diff.Resolved}}<div class="diff-entry resolved"><div style="font-weight: 600;">{{.Category}}: {{.Name}}</div><div style="color: #555; margin-top: 5px;">Was: {{.Was}}</div></div>
{{end}}{{end}}
{{if .Diff.Degraded}}
<h3 style="color: #f39c12;">Degraded Checks ({{len .Diff.Degraded}})</h3>
{{range .Diff.Degraded}}<div class="diff-entry degraded"><div style="font-weight: 600;">{{.Category}}: {{.Name}}</div><div style="color: #555; margin-top: 5px;">Score: {{.From}} &rarr; {{.To}} ({{.Delta}})</div>{{if .Message}}<div style="color: #777; font-size: 14px;">{{.Message}}</div>{{end}}</div>
{{end}}{{end}}
{{if .Diff.Improved}}
<h3 style="color: #27ae60;">Improved Checks ({{len .Diff.Improved}})</h3>
{{range .Diff.Improved}}<div class="diff-entry improved"><div style="font-weight: 600;">{{.Category}}: {{.Name}}</div><div style="color: #555; margin-top: 5px;">Score: {{.From}} &rarr; {{.To}} ({{.Delta}})</div></div>
{{end}}{{end}}
{{if .Diff.Changes}}
<h3>Summary Changes</h3>
<ul>{{range .Diff.Changes}}<li>{{.}}</li>{{end}}</ul>
{{end}}
{{if .Diff.NoChanges}}
<div style="background: #d4edda; padding: 15px; border-radius: 6px; margin: 15px 0; text-align: center;"><strong style="color: #27ae60;">No significant changes since baseline</strong></div>
{{end}}
{{end}}
<div style="margin: 30px 0; text-align: center;">
<h2>Visual Overview</h2>
<div style="margin: 20px 0;">
<h3 style="font-size: 16px; color: #555;">Check Status Distribution</h3>
{{.Donut}}
<h3 style="font-size: 16px; color: #555;">System Metrics</h3>
{{.Metrics}}
</div>
</div>
{{if .Timeline}}
<div style="margin: 30px 0; text-align: center;">{{.Timeline}}</div>
{{end}}
{{if .Actions}}
<div class="actions">
<h3>Top 5 Actions Required</h3>
{{range $i, $action := .Actions}}<div class="action-item"><span class="action-number">{{addOne $i}}</span>{{$action}}</div>
{{end}}</div>
{{end}}
{{if .Criticals}}
<h2>Critical Issues</h2>
{{range .Criticals}}{{template "issue" .}}{{end}}
{{end}}
{{if .Warnings}}
<h2>Warnings</h2>
{{range .Warnings}}{{template "issue" .}}{{end}}
{{end}}
{{if .AllClear}}
<h2 style="color: #27ae60;">All Systems Operational</h2>
<p>No issues detected. The server is running smoothly.</p>
{{end}}
<div class="footer">
<p>Report generated by medic</p>
<p>{{.Generated}}</p>
</div>
</div>
</body>
</html>
{{define "issue"}}<div class="issue{{if .Warning}} warning{{end}}">
<div class="issue-title">{{.Message}}</div>
<div><span class="issue-category">{{.Category}}</span><span class="severity-score">Score: {{.Score}}/100</span></div>
{{if .Details}}<ul style="margin: 10px 0; padding-left: 20px;">
{{range .Details}}<li><strong>{{.Key}}:</strong> {{.Value}}</li>
{{end}}</ul>{{end}}
</div>
{{end}}`))

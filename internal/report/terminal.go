package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/servermedic/medic/internal/baseline"
	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/logging"
)

const (
	reportWidth  = 80
	maxDiffItems = 10
	maxDetails   = 5
	timeLayout   = "2006-01-02 15:04:05"
)

var (
	headerColor   = color.New(color.FgCyan, color.Bold)
	sectionColor  = color.New(color.FgYellow, color.Bold)
	criticalColor = color.New(color.FgRed, color.Bold)
	warningColor  = color.New(color.FgYellow)
	okColor       = color.New(color.FgGreen)
	labelColor    = color.New(color.FgCyan)
	dimColor      = color.New(color.FgHiBlack)
)

// Terminal renders a report as colored console output.
type Terminal struct {
	out          io.Writer
	color        bool
	snapshotPath string
	now          func() time.Time
}

// TerminalOption configures a Terminal renderer.
type TerminalOption func(*Terminal)

// WithColor forces color on or off, overriding writer detection.
func WithColor(enabled bool) TerminalOption {
	return func(t *Terminal) {
		t.color = enabled
	}
}

// WithSnapshotPath sets the saved snapshot path shown in the footer.
func WithSnapshotPath(path string) TerminalOption {
	return func(t *Terminal) {
		t.snapshotPath = path
	}
}

// NewTerminal creates a terminal renderer writing to out. Color defaults to
// whatever the writer supports.
func NewTerminal(out io.Writer, opts ...TerminalOption) *Terminal {
	t := &Terminal{
		out:   out,
		color: logging.SupportsColor(out),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Render writes the full report: header, summary, baseline comparison,
// critical findings with details, warnings, recommended actions, footer.
func (t *Terminal) Render(r *check.Report, diff *baseline.Diff) error {
	critical, warnings := CollectIssues(r)

	fmt.Fprintln(t.out)
	t.header("SERVER HEALTH CHECK REPORT")
	fmt.Fprintln(t.out)

	t.section("EXECUTIVE SUMMARY")
	t.summary(r)
	fmt.Fprintln(t.out)

	if diff != nil && diff.HasBaseline {
		t.section("BASELINE COMPARISON")
		t.baselineBlock(diff)
		fmt.Fprintln(t.out)
	}

	if len(critical) > 0 {
		t.section("CRITICAL ISSUES")
		for _, issue := range critical {
			t.issue(issue, true)
		}
		fmt.Fprintln(t.out)
	}

	if len(warnings) > 0 {
		t.section("WARNINGS")
		for _, issue := range warnings {
			t.issue(issue, false)
		}
		fmt.Fprintln(t.out)
	}

	if len(critical) > 0 || len(warnings) > 0 {
		t.section("TOP 5 RECOMMENDED ACTIONS")
		for i, action := range TopActions(critical, warnings) {
			fmt.Fprintf(t.out, "  %s %s\n", t.paint(labelColor, "%d.", i+1), action)
		}
		fmt.Fprintln(t.out)
	}

	t.footer()
	fmt.Fprintln(t.out)
	return nil
}

func (t *Terminal) header(title string) {
	rule := strings.Repeat("=", reportWidth)
	pad := (reportWidth - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintln(t.out, t.paint(headerColor, "%s", rule))
	fmt.Fprintln(t.out, t.paint(headerColor, "%s%s", strings.Repeat(" ", pad), title))
	fmt.Fprintln(t.out, t.paint(headerColor, "%s", rule))
}

func (t *Terminal) section(title string) {
	fmt.Fprintln(t.out, t.paint(sectionColor, "%s", title))
	fmt.Fprintln(t.out, t.paint(sectionColor, "%s", strings.Repeat("-", len(title))))
}

func (t *Terminal) summary(r *check.Report) {
	hostname := r.Hostname
	if hostname == "" {
		hostname = "unknown"
	}
	fmt.Fprintf(t.out, "  %s %s\n", t.paint(labelColor, "Server:"), hostname)
	fmt.Fprintf(t.out, "  %s %s\n", t.paint(labelColor, "Scan time:"), r.Timestamp.Format(timeLayout))
	fmt.Fprintf(t.out, "  %s %d\n", t.paint(labelColor, "Total checks:"), r.Summary.TotalChecks)
	fmt.Fprintln(t.out)

	if r.Summary.Critical > 0 {
		fmt.Fprintf(t.out, "  %s\n", t.paint(criticalColor, "✗ CRITICAL: %d", r.Summary.Critical))
	}
	if r.Summary.Warning > 0 {
		fmt.Fprintf(t.out, "  %s\n", t.paint(warningColor, "⚠ WARNING: %d", r.Summary.Warning))
	}
	if r.Summary.OK > 0 {
		fmt.Fprintf(t.out, "  %s\n", t.paint(okColor, "✓ OK: %d", r.Summary.OK))
	}
	if !r.Summary.HasIssues {
		fmt.Fprintf(t.out, "\n  %s\n", t.paint(okColor, "✓ All systems operational"))
	}

	for _, category := range r.Categories() {
		if cat := r.Checks[category]; cat.Failed() {
			fmt.Fprintf(t.out, "  %s\n", t.paint(dimColor, "? Checker failed: %s: %s", category, cat.Err))
		}
	}
}

func (t *Terminal) issue(issue Issue, showDetails bool) {
	icon := "⚠"
	tint := warningColor
	if issue.Result.IsCritical() {
		icon = "✗"
		tint = criticalColor
	}
	fmt.Fprintf(t.out, "  %s %s %s\n", icon,
		t.paint(tint, "[%s]", strings.ToUpper(issue.Category)), issue.Result.Message)

	if showDetails {
		if lines := detailLines(issue.Result.Details, maxDetails); len(lines) > 0 {
			fmt.Fprintf(t.out, "     %s\n", t.paint(labelColor, "Details:"))
			for _, line := range lines {
				fmt.Fprintf(t.out, "       • %s\n", line)
			}
		}
	}
	fmt.Fprintf(t.out, "     %s\n", t.paint(dimColor, "Score: %d/100", issue.Result.Score))
	fmt.Fprintln(t.out)
}

func (t *Terminal) baselineBlock(diff *baseline.Diff) {
	fmt.Fprintf(t.out, "  Baseline: %s %s\n",
		t.paint(labelColor, "%s", diff.BaselineTimestamp.Format(timeLayout)),
		t.paint(dimColor, "(%s)", humanize.Time(diff.BaselineTimestamp)))
	fmt.Fprintf(t.out, "  Current:  %s\n",
		t.paint(labelColor, "%s", diff.CurrentTimestamp.Format(timeLayout)))
	fmt.Fprintln(t.out)

	if len(diff.NewIssues) > 0 {
		fmt.Fprintf(t.out, "  %s\n", t.paint(criticalColor, "New issues (%d):", len(diff.NewIssues)))
		for i, issue := range diff.NewIssues {
			if i >= maxDiffItems {
				fmt.Fprintf(t.out, "    ... and %d more\n", len(diff.NewIssues)-maxDiffItems)
				break
			}
			tint := warningColor
			if issue.Status == check.StatusCritical {
				tint = criticalColor
			}
			fmt.Fprintf(t.out, "    %s %s: %s\n", t.paint(tint, "• [%s]", issue.Status), issue.Category, issue.Name)
			if issue.Message != "" {
				fmt.Fprintf(t.out, "      → %s\n", truncate(issue.Message, 100))
			}
		}
		fmt.Fprintln(t.out)
	}

	if len(diff.ResolvedIssues) > 0 {
		fmt.Fprintf(t.out, "  %s\n", t.paint(okColor, "Resolved issues (%d):", len(diff.ResolvedIssues)))
		for i, issue := range diff.ResolvedIssues {
			if i >= maxDiffItems {
				fmt.Fprintf(t.out, "    ... and %d more\n", len(diff.ResolvedIssues)-maxDiffItems)
				break
			}
			fmt.Fprintf(t.out, "    %s\n", t.paint(okColor, "• %s: %s", issue.Category, issue.Name))
		}
		fmt.Fprintln(t.out)
	}

	t.scoreChanges("Degraded checks", diff.DegradedChecks, warningColor)
	t.scoreChanges("Improved checks", diff.ImprovedChecks, okColor)

	if len(diff.Changes) > 0 {
		fmt.Fprintf(t.out, "  %s\n", t.paint(labelColor, "Summary changes:"))
		for _, change := range diff.Changes {
			fmt.Fprintf(t.out, "    • %s\n", change)
		}
		fmt.Fprintln(t.out)
	}

	if !diff.HasChanges() {
		fmt.Fprintf(t.out, "  %s\n", t.paint(okColor, "✓ No significant changes since baseline"))
	}
}

func (t *Terminal) scoreChanges(title string, changes []baseline.ScoreChange, tint *color.Color) {
	if len(changes) == 0 {
		return
	}
	fmt.Fprintf(t.out, "  %s\n", t.paint(tint, "%s (%d):", title, len(changes)))
	for i, change := range changes {
		if i >= maxDiffItems {
			fmt.Fprintf(t.out, "    ... and %d more\n", len(changes)-maxDiffItems)
			break
		}
		fmt.Fprintf(t.out, "    %s\n", t.paint(tint, "• %s: %s", change.Category, change.Name))
		fmt.Fprintf(t.out, "      Score: %d → %d (%+d)\n",
			change.BaselineScore, change.CurrentScore, change.CurrentScore-change.BaselineScore)
	}
	fmt.Fprintln(t.out)
}

func (t *Terminal) footer() {
	rule := strings.Repeat("-", reportWidth)
	fmt.Fprintln(t.out, t.paint(dimColor, "%s", rule))
	fmt.Fprintf(t.out, "  %s\n", t.paint(dimColor, "Report generated: %s", t.now().Format(timeLayout)))
	if t.snapshotPath != "" {
		fmt.Fprintf(t.out, "  %s\n", t.paint(dimColor, "Snapshot: %s", t.snapshotPath))
	}
	fmt.Fprintln(t.out, t.paint(dimColor, "%s", rule))
}

// paint renders format with the given color when color is enabled, plain
// otherwise.
func (t *Terminal) paint(c *color.Color, format string, args ...any) string {
	if !t.color {
		return fmt.Sprintf(format, args...)
	}
	return c.Sprintf(format, args...)
}

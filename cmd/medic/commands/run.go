package commands

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/servermedic/medic/internal/baseline"
	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/checks"
	"github.com/servermedic/medic/internal/config"
	"github.com/servermedic/medic/internal/errors"
	"github.com/servermedic/medic/internal/logging"
	"github.com/servermedic/medic/internal/probe"
	"github.com/servermedic/medic/internal/report"
	"github.com/servermedic/medic/pkg/fileutil"
)

// runJSON holds the value of the --json flag.
var runJSON bool

// runOutput holds the value of the --output flag.
var runOutput string

// runOnly holds the values of the --only flag.
var runOnly []string

// runSaveBaseline holds the value of the --save-baseline flag.
var runSaveBaseline bool

// runNoCompare holds the value of the --no-compare flag.
var runNoCompare bool

// runEmail holds the value of the --email flag.
var runEmail bool

// runConcurrency holds the value of the --concurrency flag.
var runConcurrency int

// errRunWarnings is the sentinel for exit code 1. The report is already
// rendered by the time it is returned, so it carries no message.
var errRunWarnings = errors.NewExitError(nil, errors.ExitWarning)

// errRunCritical is the sentinel for exit code 2.
var errRunCritical = errors.NewExitError(nil, errors.ExitCritical)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run health checks and render the report",
	Long: `Run every enabled checker against this host and render the findings.

The exit code reflects the worst finding: 0 when everything is OK, 1 when
warnings are present, 2 when critical issues are present, and 3 when medic
itself failed (bad configuration, storage errors).

Unless --no-compare is given, the report is compared against the most
recent saved baseline and the differences are included.`,
	Example: `  # Full report on the terminal
  medic run

  # Machine-readable report for cron, quiet on stdout
  medic run --quiet --output /var/lib/medic/report.json

  # Standalone HTML page
  medic run --output /var/www/html/health.html

  # Two categories only, four checkers at a time
  medic run --only system --only security --concurrency 4`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runJSON, "json", false,
		"print the report as JSON instead of the terminal layout")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "",
		"also write the report to a file (.html renders HTML, anything else JSON)")
	runCmd.Flags().StringSliceVar(&runOnly, "only", nil,
		"run only the named categories (repeatable)")
	runCmd.Flags().BoolVar(&runSaveBaseline, "save-baseline", false,
		"save this report as the new baseline snapshot")
	runCmd.Flags().BoolVar(&runNoCompare, "no-compare", false,
		"skip comparison against the stored baseline")
	runCmd.Flags().BoolVar(&runEmail, "email", false,
		"send the HTML report by email using the configured SMTP settings")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0,
		"how many checkers run at once (overrides run.concurrency)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)
	conf := loadedConfig()

	execRunner := probe.ExecRunner{Timeout: conf.Run.ProbeTimeout, Log: log}
	checkers, err := checks.Only(checks.Build(conf, log, execRunner), runOnly)
	if err != nil {
		return errors.NewExitError(err, errors.ExitFailure)
	}
	if len(checkers) == 0 {
		return errors.NewToolError(errors.ErrNoCheckers,
			"Enable at least one category under checks: in the configuration")
	}
	log.Info("starting health check", "checkers", len(checkers))

	opts := []check.Option{
		check.WithTimeout(conf.Run.CheckerTimeout),
	}
	concurrency := conf.Run.Concurrency
	if runConcurrency > 0 {
		concurrency = runConcurrency
	}
	opts = append(opts, check.WithConcurrency(concurrency))

	var bar *progressbar.ProgressBar
	if showProgress(cmd.ErrOrStderr()) {
		bar = newProgressBar(cmd.ErrOrStderr(), len(checkers))
		opts = append(opts, check.WithProgress(func(category string, _, _ int) {
			bar.Describe("checked " + category)
			_ = bar.Add(1)
		}))
	}

	rep := check.NewRunner(checkers, log, opts...).Run(ctx)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(cmd.ErrOrStderr())
	}

	store := baseline.NewStore(conf.BaselineDir())

	var diff *baseline.Diff
	if !runNoCompare {
		diff, err = compareAgainstLatest(store, rep, conf, log)
		if err != nil {
			return errors.NewToolError(err, "Check the baseline directory: "+store.Dir())
		}
	}

	// Saving happens after the comparison so the diff is against the
	// previous baseline, not the report we just took.
	var snapshotPath string
	if runSaveBaseline {
		snapshotPath, err = store.Save(rep)
		if err != nil {
			return errors.NewToolError(err, "Check the baseline directory: "+store.Dir())
		}
		log.Info("baseline saved", "path", snapshotPath)
	}

	if err := renderReport(cmd, rep, diff, snapshotPath); err != nil {
		return errors.NewExitError(err, errors.ExitFailure)
	}

	if runEmail {
		if err := report.NewMailer(conf.Email, log).Send(ctx, rep, diff); err != nil {
			return errors.NewToolError(err, "Check the email settings: medic config show")
		}
	}

	if rep.HasCritical() {
		return errRunCritical
	}
	if rep.HasWarnings() {
		return errRunWarnings
	}
	return nil
}

// compareAgainstLatest diffs the report against the newest stored baseline.
// A missing baseline is not an error; the returned diff just carries the
// has_baseline=false marker the renderers know how to skip.
func compareAgainstLatest(store *baseline.Store, rep *check.Report, conf *config.Config, log *slog.Logger) (*baseline.Diff, error) {
	prior, err := store.LoadLatest()
	if err != nil {
		return nil, errors.Wrap(err, "loading latest baseline")
	}

	diff := baseline.Compare(rep, prior, baseline.WithHysteresis(conf.Baseline.Hysteresis))
	if !diff.HasBaseline {
		log.Info("no baseline available for comparison", "hint", "run with --save-baseline to create one")
		return diff, nil
	}

	if n := len(diff.NewIssues); n > 0 {
		log.Warn("new issues since baseline", "count", n)
	}
	if n := len(diff.ResolvedIssues); n > 0 {
		log.Info("resolved issues since baseline", "count", n)
	}
	if n := len(diff.DegradedChecks); n > 0 {
		log.Warn("degraded checks since baseline", "count", n)
	}
	if n := len(diff.ImprovedChecks); n > 0 {
		log.Info("improved checks since baseline", "count", n)
	}
	return diff, nil
}

// renderReport writes the report to the requested destinations. The
// --output file is written regardless of --quiet; stdout rendering obeys
// quiet first, then the --json switch.
func renderReport(cmd *cobra.Command, rep *check.Report, diff *baseline.Diff, snapshotPath string) error {
	if runOutput != "" {
		if err := writeReportFile(runOutput, rep, diff); err != nil {
			return err
		}
	}

	if quiet {
		return nil
	}
	if runJSON {
		return report.WriteJSON(cmd.OutOrStdout(), rep, diff)
	}

	var opts []report.TerminalOption
	if snapshotPath != "" {
		opts = append(opts, report.WithSnapshotPath(snapshotPath))
	}
	return report.NewTerminal(cmd.OutOrStdout(), opts...).Render(rep, diff)
}

// writeReportFile renders the report into path, picking the format from
// the file extension.
func writeReportFile(path string, rep *check.Report, diff *baseline.Diff) error {
	var buf bytes.Buffer
	var err error
	if strings.EqualFold(filepath.Ext(path), ".html") {
		err = report.WriteHTML(&buf, rep, diff)
	} else {
		err = report.WriteJSON(&buf, rep, diff)
	}
	if err != nil {
		return err
	}
	return errors.Wrapf(fileutil.AtomicWriteFile(path, buf.Bytes(), 0o644), "writing report to %s", path)
}

// showProgress reports whether the category progress bar should render.
func showProgress(errOut io.Writer) bool {
	return !quiet && !runJSON && logging.IsTTY(errOut)
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(18),
		progressbar.OptionSetDescription("running checks"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
	)
}

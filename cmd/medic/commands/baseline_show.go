package commands

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/servermedic/medic/internal/baseline"
	"github.com/servermedic/medic/internal/errors"
	"github.com/servermedic/medic/internal/logging"
	"github.com/servermedic/medic/internal/report"
)

var baselineShowJSON bool

func init() {
	baselineShowCmd.Flags().BoolVar(&baselineShowJSON, "json", false, "Output the snapshot as JSON")
	baselineCmd.AddCommand(baselineShowCmd)
}

var baselineShowCmd = &cobra.Command{
	Use:   "show [NAME]",
	Short: "Render a stored snapshot as a report",
	Long: `Render one stored snapshot in the usual report layout.

Without a NAME on an interactive terminal, a fuzzy picker lists the
stored snapshots.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBaselineShow,
}

func runBaselineShow(cmd *cobra.Command, args []string) error {
	store := baselineStore()

	var name string
	if len(args) > 0 {
		name = args[0]
	} else {
		picked, err := pickSnapshot(store)
		if err != nil {
			return err
		}
		if picked == "" {
			return nil
		}
		name = picked
	}

	return runBaselineShowWithWriter(cmd.OutOrStdout(), store, name)
}

// runBaselineShowWithWriter allows injecting a writer and store for testing.
func runBaselineShowWithWriter(w io.Writer, store *baseline.Store, name string) error {
	rep, err := store.Load(name)
	if err != nil {
		return err
	}

	if baselineShowJSON {
		return report.WriteJSON(w, rep, nil)
	}
	return report.NewTerminal(w).Render(rep, nil)
}

// pickSnapshot lets the user choose a stored snapshot interactively.
// Returns "" when the picker was aborted.
func pickSnapshot(store *baseline.Store) (string, error) {
	infos, err := store.List()
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", errors.New("no baseline snapshots stored (create one with: medic run --save-baseline)")
	}
	if !logging.IsInteractive() {
		return "", errors.New("snapshot name required when not running interactively (see: medic baseline list)")
	}

	idx, err := fuzzyfinder.Find(
		infos,
		func(i int) string {
			return fmt.Sprintf("%s (%s)", infos[i].Name, humanize.Time(infos[i].Timestamp))
		},
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i == -1 {
				return ""
			}
			info := infos[i]
			return fmt.Sprintf("Taken: %s\n\nChecks: %d\nCritical: %d\nWarning: %d\nOK: %d",
				info.Timestamp.Format("2006-01-02 15:04:05"),
				info.Summary.TotalChecks,
				info.Summary.Critical,
				info.Summary.Warning,
				info.Summary.OK,
			)
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return "", nil
		}
		return "", errors.Wrap(err, "snapshot picker failed")
	}
	return infos[idx].Name, nil
}

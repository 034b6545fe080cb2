package commands

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/servermedic/medic/internal/baseline"
	"github.com/servermedic/medic/internal/errors"
	"github.com/servermedic/medic/internal/report"
)

var baselineCompareJSON bool

func init() {
	baselineCompareCmd.Flags().BoolVar(&baselineCompareJSON, "json", false, "Output the comparison as JSON")
	baselineCmd.AddCommand(baselineCompareCmd)
}

var baselineCompareCmd = &cobra.Command{
	Use:   "compare [NAME]",
	Short: "Compare the latest snapshot against an older one",
	Long: `Compare the newest stored snapshot against an older one and show what
drifted between the two runs.

NAME selects the older snapshot. Without it, a fuzzy picker lists the
stored snapshots on an interactive terminal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBaselineCompare,
}

func runBaselineCompare(cmd *cobra.Command, args []string) error {
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

	return runBaselineCompareWithWriter(cmd.OutOrStdout(), store, name,
		loadedConfig().Baseline.Hysteresis)
}

// runBaselineCompareWithWriter allows injecting a writer and store for testing.
func runBaselineCompareWithWriter(w io.Writer, store *baseline.Store, name string, hysteresis int) error {
	current, err := store.LoadLatest()
	if err != nil {
		return err
	}
	if current == nil {
		return errors.New("no baseline snapshots stored (create one with: medic run --save-baseline)")
	}

	prior, err := store.Load(name)
	if err != nil {
		return err
	}

	diff := baseline.Compare(current, prior, baseline.WithHysteresis(hysteresis))

	if baselineCompareJSON {
		return report.WriteJSON(w, current, diff)
	}
	return report.NewTerminal(w).Render(current, diff)
}

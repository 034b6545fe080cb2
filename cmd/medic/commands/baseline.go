package commands

import (
	"github.com/spf13/cobra"

	"github.com/servermedic/medic/internal/baseline"
)

func init() {
	rootCmd.AddCommand(baselineCmd)
}

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Manage baseline snapshots",
	Long: `Manage the report snapshots medic compares against to detect drift.

Snapshots are flat JSON files written by medic run --save-baseline. The
newest one is the comparison baseline for subsequent runs; older ones
stay around for manual inspection until pruned.`,
}

// baselineStore opens the snapshot store at the configured directory.
func baselineStore() *baseline.Store {
	return baseline.NewStore(loadedConfig().BaselineDir())
}

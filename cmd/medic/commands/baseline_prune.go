package commands

import (
	"fmt"
	"io"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/servermedic/medic/internal/baseline"
	"github.com/servermedic/medic/internal/errors"
)

// pruneKeep holds the value of the --keep flag.
var pruneKeep int

// pruneYes holds the value of the --yes flag.
var pruneYes bool

func init() {
	baselinePruneCmd.Flags().IntVar(&pruneKeep, "keep", 0,
		"how many snapshots to keep (default: baseline.retention)")
	baselinePruneCmd.Flags().BoolVarP(&pruneYes, "yes", "y", false,
		"do not ask for confirmation")
	baselineCmd.AddCommand(baselinePruneCmd)
}

var baselinePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old baseline snapshots",
	Long: `Remove timestamped snapshots beyond the newest --keep.

The latest marker file is never removed, so comparison keeps working
after a prune.`,
	RunE: runBaselinePrune,
}

func runBaselinePrune(cmd *cobra.Command, _ []string) error {
	keep := pruneKeep
	if keep <= 0 {
		keep = loadedConfig().Baseline.Retention
	}
	return runBaselinePruneWithWriter(cmd.OutOrStdout(), baselineStore(), keep, pruneYes)
}

// runBaselinePruneWithWriter allows injecting a writer and store for testing.
func runBaselinePruneWithWriter(w io.Writer, store *baseline.Store, keep int, yes bool) error {
	if keep < 1 {
		return errors.New("keep must be at least 1")
	}

	infos, err := store.List()
	if err != nil {
		return err
	}
	doomed := len(infos) - keep
	if doomed <= 0 {
		fmt.Fprintf(w, "Nothing to prune: %d snapshots stored, keeping %d\n", len(infos), keep)
		return nil
	}

	if !yes && !confirmPrune(doomed, keep) {
		fmt.Fprintln(w, "Aborted")
		return nil
	}

	removed, err := store.Prune(keep)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Removed %d snapshots, kept %d\n", removed, keep)
	return nil
}

// confirmPrune asks before deleting. promptui reports a decline as an
// error, so anything but a clean confirm reads as no. That includes
// running without a terminal, which keeps unattended prunes behind --yes.
func confirmPrune(doomed, keep int) bool {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Remove %d snapshots, keeping the newest %d", doomed, keep),
		IsConfirm: true,
	}
	_, err := prompt.Run()
	return err == nil
}

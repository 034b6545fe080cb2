package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/servermedic/medic/internal/baseline"
)

var baselineListJSON bool

func init() {
	baselineListCmd.Flags().BoolVar(&baselineListJSON, "json", false, "Output in JSON format")
	baselineCmd.AddCommand(baselineListCmd)
}

var baselineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored baseline snapshots",
	Long:  `List stored baseline snapshots, newest first, with their finding counts.`,
	RunE:  runBaselineList,
}

func runBaselineList(_ *cobra.Command, _ []string) error {
	return runBaselineListWithWriter(os.Stdout, baselineStore())
}

// runBaselineListWithWriter allows injecting a writer and store for testing.
func runBaselineListWithWriter(w io.Writer, store *baseline.Store) error {
	infos, err := store.List()
	if err != nil {
		return err
	}

	if baselineListJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	if len(infos) == 0 {
		fmt.Fprintln(w, "No baseline snapshots stored")
		fmt.Fprintln(w, "Create one with: medic run --save-baseline")
		return nil
	}

	bold := color.New(color.Bold).SprintFunc()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
		bold("FILE"), bold("TAKEN"), bold("CHECKS"), bold("CRITICAL"), bold("WARNING"), bold("OK"))

	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n",
			info.Name,
			humanize.Time(info.Timestamp),
			info.Summary.TotalChecks,
			info.Summary.Critical,
			info.Summary.Warning,
			info.Summary.OK,
		)
	}
	return tw.Flush()
}

package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/servermedic/medic/internal/config"
)

var checksJSON bool

func init() {
	checksCmd.Flags().BoolVar(&checksJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(checksCmd)
}

var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "List checker categories and their enabled state",
	Long: `List every checker category medic knows about, in report order,
together with whether the configuration enables it.

Categories are toggled under the checks: map in medic.yaml, for example:

  checks:
    antivirus: false`,
	RunE: runChecks,
}

// categoryDescriptions summarizes what each checker inspects. Keep in
// sync with the package docs under internal/checks.
var categoryDescriptions = map[string]string{
	"system":    "uptime, load, memory and swap pressure, disk space, inodes",
	"security":  "SSH brute force, open ports, world-writable files, rootkit hints",
	"network":   "default route, DNS resolution, TCP connect probes",
	"processes": "required services, runaway CPU and memory use, zombies",
	"logs":      "recent error volume, OOM kills, log directory growth",
	"backup":    "freshness of newest snapshot per backup root, dump ages",
	"tls":       "certificate expiry on disk and on live endpoints",
	"email":     "mail queue depth, MTA service state, DNSBL listings",
	"database":  "server reachability, connection counts, slow queries",
	"packages":  "pending and security updates, reboot-required marker",
	"cron":      "cron daemon state, recent job failures, orphaned locks",
	"webapp":    "endpoint probes, error log floods, PHP-FPM pool state",
	"panel":     "control panel service, license state, panel log errors",
	"antivirus": "ClamAV daemon, signature freshness, last scan results",
}

// checkInfoJSON is one category in the --json listing.
type checkInfoJSON struct {
	Category    string `json:"category"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

func runChecks(_ *cobra.Command, _ []string) error {
	return runChecksWithWriter(os.Stdout, loadedConfig())
}

// runChecksWithWriter allows injecting a writer for testing.
func runChecksWithWriter(w io.Writer, conf *config.Config) error {
	if checksJSON {
		return outputChecksJSON(w, conf)
	}
	return outputChecksTabular(w, conf)
}

func outputChecksJSON(w io.Writer, conf *config.Config) error {
	infos := make([]checkInfoJSON, 0, len(config.Categories))
	for _, category := range config.Categories {
		infos = append(infos, checkInfoJSON{
			Category:    category,
			Enabled:     conf.CheckEnabled(category),
			Description: categoryDescriptions[category],
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(infos)
}

func outputChecksTabular(w io.Writer, conf *config.Config) error {
	bold := color.New(color.Bold).SprintFunc()
	enabledText := color.New(color.FgGreen).Sprint("yes")
	disabledText := color.New(color.FgHiBlack).Sprint("no")

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\n", bold("CATEGORY"), bold("ENABLED"), bold("DESCRIPTION"))

	for _, category := range config.Categories {
		state := enabledText
		if !conf.CheckEnabled(category) {
			state = disabledText
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", category, state, categoryDescriptions[category])
	}
	return tw.Flush()
}

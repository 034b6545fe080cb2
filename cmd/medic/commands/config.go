package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/servermedic/medic/internal/config"
	"github.com/servermedic/medic/internal/editor"
	"github.com/servermedic/medic/internal/errors"
	"github.com/servermedic/medic/internal/paths"
	"github.com/servermedic/medic/pkg/fileutil"
)

// configInitFormat holds the value of the --format flag.
var configInitFormat string

// configInitForce holds the value of the --force flag.
var configInitForce bool

func init() {
	configInitCmd.Flags().StringVar(&configInitFormat, "format", "yaml",
		"config file format: yaml, toml")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false,
		"overwrite an existing config file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage medic configuration",
	Long: `Manage the medic configuration file.

Without a subcommand, shows the effective configuration.`,
	Example: `  # Show the effective configuration and where it came from
  medic config show

  # Write a starter config file
  medic config init

See Also: medic checks`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the effective configuration in YAML after merging defaults, the
config file, and MEDIC_* environment variables.

Validation problems are listed and make the command fail, so this is the
place to look when medic refuses to start.`,
	RunE: runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the configuration file in an editor",
	Long: `Open the configuration file in your preferred editor.

Uses $EDITOR, falling back to $VISUAL, then nano, then vi. The file is
opened even when it fails validation, so a broken config can be fixed
in place.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a starter configuration file with every key at its default.

The file goes to the user config directory unless --config names another
destination; a .yaml/.yml or .toml extension on that path overrides
--format.`,
	Example: `  # Starter file under ~/.config/medic/
  medic config init

  # TOML variant at a chosen path
  medic config init --config /etc/medic/medic.toml --format toml`,
	RunE: runConfigInit,
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	return runConfigShowWithWriter(cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// runConfigShowWithWriter allows injecting writers for testing. YAML goes
// to out; validation problems go to errOut so out stays parseable.
func runConfigShowWithWriter(out, errOut io.Writer) error {
	if configLoadErr != nil {
		return errors.Wrap(configLoadErr, "loading configuration")
	}

	source := viper.ConfigFileUsed()
	if source == "" {
		source = "built-in defaults (no config file found)"
	}
	fmt.Fprintf(out, "# source: %s\n", source)

	data, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}
	fmt.Fprint(out, string(data))

	if errs := config.Validate(loadedConfig()); len(errs) > 0 {
		fmt.Fprintln(errOut, "Problems:")
		for _, e := range errs {
			fmt.Fprintf(errOut, "  - %v\n", e)
		}
		return errors.Newf("found %d configuration problems", len(errs))
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	format := strings.ToLower(configInitFormat)
	switch format {
	case "yaml", "toml":
	default:
		return errors.Newf("unsupported format %q (valid: yaml, toml)", configInitFormat)
	}

	dest := cfgFile
	if dest == "" {
		dest = filepath.Join(paths.ConfigDir(), config.AppName+"."+format)
	}
	switch strings.ToLower(filepath.Ext(dest)) {
	case ".toml":
		format = "toml"
	case ".yaml", ".yml":
		format = "yaml"
	}

	if !configInitForce {
		if _, err := os.Stat(dest); err == nil {
			return errors.Newf("config file already exists at %s (use --force to overwrite)", dest)
		}
	}

	if err := paths.EnsureDir(filepath.Dir(dest), 0); err != nil {
		return errors.Wrap(err, "creating config directory")
	}

	// 0600 because the file may grow an SMTP password once edited.
	var err error
	if format == "toml" {
		err = fileutil.AtomicWriteTOMLWithPerm(dest, config.DefaultConfigMap(), 0o600)
	} else {
		err = fileutil.AtomicWriteFile(dest, []byte(config.DefaultConfigYAML), 0o600)
	}
	if err != nil {
		return errors.Wrap(err, "writing config file")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", dest)
	return nil
}

func runConfigEdit(cmd *cobra.Command, _ []string) error {
	path := findConfigFile()
	if path == "" {
		return errors.New("no config file found (create one with: medic config init)")
	}
	if _, err := os.Stat(path); err != nil {
		return errors.Newf("config file not found at %s (create it with: medic config init)", path)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Editing %s\n", path)
	return editor.Open(path)
}

// findConfigFile returns the config file medic loads, or "" when none
// exists. Walks the same locations Init registers with viper, so edit
// and load always agree on the file.
func findConfigFile() string {
	if cfgFile != "" {
		return cfgFile
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	for _, dir := range []string{".", paths.ConfigDir(), paths.SystemConfigDir} {
		for _, ext := range []string{".yaml", ".yml", ".toml"} {
			path := filepath.Join(dir, config.AppName+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

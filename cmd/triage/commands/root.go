package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Triage - Reactive support ticket enrichment pipeline",
	Long: `Triage runs support tickets through a reactive enrichment pipeline:
language detection, sentiment analysis, category classification and
priority derivation execute concurrently, coordinated purely by
completion events on a shared broadcast bus.

Results are tri-state per field (pending, success or error), so a failed
enrichment never hides the results that did succeed.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

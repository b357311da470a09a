// Package cli implements the corpora command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/corpora-labs/corpora-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "corpora",
	Short: "Index documents and ask grounded questions about them",
	Long: `Corpora ingests heterogeneous documents (text, HTML, PDF, images,
audio, email) into a local vector index and answers natural-language
questions with citations into the indexed sources.

Typical workflow:
  corpora build          index the data directory
  corpora ask "..."      ask a one-off question
  corpora chat           interactive question session`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.corpora/config.toml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

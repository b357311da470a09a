package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var buildReset bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Ingest the data directory into the chunk index",
	Long: `Walks the data directory, normalises every supported artifact and
loads the resulting chunks into the local vector index.

A non-empty collection is left untouched so repeated builds are cheap;
use --reset to destroy and rebuild it from scratch.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildReset, "reset", false, "destroy the collection and rebuild it")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if builderService == nil {
		return errors.New("build service not configured")
	}

	report, err := builderService.BuildOrRefresh(context.Background(), buildReset)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	cmd.Printf("Chunks before: %d\n", report.CountBefore)
	if report.Skipped {
		cmd.Println("Collection already populated, skipping ingestion (use --reset to rebuild).")
	} else {
		cmd.Printf("Documents ingested: %d\n", report.Documents)
		cmd.Printf("Chunks produced: %d\n", report.Chunks)
	}
	cmd.Printf("Chunks after: %d\n", report.CountAfter)
	return nil
}

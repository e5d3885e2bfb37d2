package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var indexForce bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the knowledge index",
	Long: `Rebuilds the local knowledge index from the configured documents
directory. Without --force the rebuild only runs when a source document
is newer than the current snapshot.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexForce, "force", "f", false, "rebuild even when up to date")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if indexerService == nil {
		return errors.New("indexer not configured")
	}

	ctx := cmd.Context()

	if !indexForce {
		stale, err := indexerService.ShouldReindex(ctx)
		if err != nil {
			return fmt.Errorf("staleness check failed: %w", err)
		}
		if !stale {
			cmd.Println("Index is up to date.")
			return nil
		}
	}

	if err := indexerService.BuildIfStale(ctx, indexForce); err != nil {
		return fmt.Errorf("index rebuild failed: %w", err)
	}

	if indexStore != nil {
		count, err := indexStore.Count(ctx)
		if err == nil {
			cmd.Printf("Index rebuilt: %d chunks.\n", count)
			return nil
		}
	}
	cmd.Println("Index rebuilt.")
	return nil
}

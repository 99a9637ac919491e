package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var purgeYes bool

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop the vector collection and reset all embedded flags",
	Long: `Deletes the whole collection from the index and clears every
embedded flag, returning the pipeline to a clean slate. Refuses to run
without --yes.`,
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().BoolVar(&purgeYes, "yes", false, "confirm the purge")
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	if !purgeYes {
		return fmt.Errorf("purge deletes the collection and resets every flag; re-run with --yes to confirm")
	}
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := newIndex(cfg).DeleteCollection(ctx); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	n, err := store.ResetAll(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Dropped collection %q and reset %d chunks.\n", cfg.Qdrant.Collection, n)
	return nil
}

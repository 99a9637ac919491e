package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var (
	resetAll     bool
	resetPartial bool
	resetWorkID  string
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Re-queue chunks for embedding",
	Long: `Re-queues chunks by clearing their embedded flags. For --partial
and --work-id the affected works' points are deleted from the index
first, so a later embed run rebuilds them from scratch. The running
pipeline tolerates resets at any time: the next cycle simply picks the
rows back up.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "reset every embedded chunk (flags only, index untouched)")
	resetCmd.Flags().BoolVar(&resetPartial, "partial", false, "reset works with some but not all chunks embedded")
	resetCmd.Flags().StringVar(&resetWorkID, "work-id", "", "reset a single work")
	resetCmd.MarkFlagsOneRequired("all", "partial", "work-id")
	resetCmd.MarkFlagsMutuallyExclusive("all", "partial", "work-id")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
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

	if resetAll {
		n, err := store.ResetAll(ctx)
		if err != nil {
			return err
		}
		cmd.Printf("Reset %d chunks.\n", n)
		return nil
	}

	workIDs := []string{resetWorkID}
	if resetPartial {
		workIDs, err = store.PartialWorkIDs(ctx)
		if err != nil {
			return err
		}
		if len(workIDs) == 0 {
			cmd.Println("No partially embedded works found.")
			return nil
		}
	}

	index := newIndex(cfg)
	for _, id := range workIDs {
		if err := index.DeleteByWorkID(ctx, id); err != nil {
			return fmt.Errorf("delete points for work %s: %w", id, err)
		}
		slog.Info("deleted points", "work_id", id)
	}
	n, err := store.ResetEmbedded(ctx, workIDs)
	if err != nil {
		return err
	}
	cmd.Printf("Reset %d chunks across %d works.\n", n, len(workIDs))
	return nil
}

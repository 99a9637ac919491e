package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Audit the embedded flags against the vector index",
	Long: `Checks the exactly-once invariant from the outside: every chunk
flagged embedded should have a point in the index. Points may exist
for unflagged chunks (a crash between upsert and commit leaves those
behind harmlessly), so the audit only fails when flagged chunks
outnumber index points or works are partially embedded.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
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

	counts, err := store.Counts(ctx)
	if err != nil {
		return err
	}
	points, err := newIndex(cfg).CountPoints(ctx)
	if err != nil {
		return err
	}
	partials, err := store.PartialWorkIDs(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("chunks: %d total, %d embedded, %d pending\n", counts.Total, counts.Embedded, counts.Pending)
	cmd.Printf("index points: %d\n", points)
	cmd.Printf("partially embedded works: %d\n", len(partials))
	for _, id := range partials {
		cmd.Printf("  %s\n", id)
	}

	if points < counts.Embedded {
		return fmt.Errorf("index is missing vectors: %d chunks flagged embedded but only %d points present", counts.Embedded, points)
	}
	if len(partials) > 0 {
		return fmt.Errorf("%d works are partially embedded; run 'raglab reset --partial' to re-queue them", len(partials))
	}
	cmd.Println("ok: every embedded chunk is covered by the index")
	return nil
}

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/GallTech/rag-lab/internal/chunkstore"
	"github.com/GallTech/rag-lab/internal/config"
	"github.com/GallTech/rag-lab/internal/pipeline"
	"github.com/GallTech/rag-lab/internal/tui"
)

var embedTUI bool

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed all pending chunks and upsert them into the vector index",
	Long: `Repeats fetch -> embed -> upsert -> commit cycles until no chunk
with embedded = false remains. Safe to interrupt and re-run: chunk
flags are only flipped after the index write is durably acknowledged.`,
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().BoolVar(&embedTUI, "tui", false, "show a live progress dashboard")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	pcfg := pipeline.Config{
		FetchBatch:   cfg.Pipeline.FetchBatch,
		EmbedBatch:   cfg.Embedding.BatchSize,
		UpsertBatch:  cfg.Qdrant.UpsertBatch,
		EmbedWorkers: cfg.Pipeline.EmbedWorkers,
		SourceTag:    cfg.Pipeline.SourceTag,
	}

	if embedTUI {
		return runEmbedTUI(ctx, cfg, store, pcfg)
	}

	coord := pipeline.New(store, newEmbedder(cfg), newIndex(cfg), pcfg, slog.Default())
	total, err := coord.RunToCompletion(ctx)
	if err != nil {
		return fmt.Errorf("embedding run aborted after %d chunks: %w", total, err)
	}
	cmd.Printf("Done: %d chunks embedded.\n", total)
	return nil
}

// runEmbedTUI drives the same coordinator under a live dashboard.
// Coordinator logs are discarded so they cannot tear the display.
func runEmbedTUI(ctx context.Context, cfg *config.AppConfig, store *chunkstore.Store, pcfg pipeline.Config) error {
	counts, err := store.Counts(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord := pipeline.New(store, newEmbedder(cfg), newIndex(cfg), pcfg, quiet)

	program := tea.NewProgram(tui.New(counts.Pending, cancel))
	coord.OnProgress(func(s pipeline.CycleStats) {
		program.Send(tui.CycleMsg(s))
	})
	go func() {
		total, runErr := coord.RunToCompletion(ctx)
		program.Send(tui.DoneMsg{Total: total, Err: runErr})
	}()

	final, err := program.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(tui.Model); ok {
		if runErr := m.Err(); runErr != nil && ctx.Err() == nil {
			return runErr
		}
	}
	return nil
}

package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/GallTech/rag-lab/internal/domain"
	"github.com/GallTech/rag-lab/internal/extract"
	"github.com/GallTech/rag-lab/internal/splitter"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk <pdf-dir>",
	Short: "Split downloaded PDFs into chunks and insert them as pending",
	Long: `Walks a directory of <work_id>.pdf files, extracts their text,
splits it into overlapping character windows and inserts the chunks
with embedded = false. Works that already have chunks are skipped, so
the command can be re-run after adding new PDFs.`,
	Args: cobra.ExactArgs(1),
	RunE: runChunk,
}

func init() {
	rootCmd.AddCommand(chunkCmd)
}

func runChunk(cmd *cobra.Command, args []string) error {
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

	entries, err := os.ReadDir(args[0])
	if err != nil {
		return fmt.Errorf("read pdf directory: %w", err)
	}

	split := splitter.New(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap)
	works, chunksInserted, skipped, failed := 0, 0, 0, 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		workID := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		path := filepath.Join(args[0], entry.Name())

		exists, err := store.HasChunks(ctx, workID)
		if err != nil {
			return err
		}
		if exists {
			skipped++
			continue
		}

		text, err := extract.PDFFile(path)
		if err != nil {
			slog.Warn("skipping pdf", "work_id", workID, "error", err)
			failed++
			continue
		}

		spans := split.Split(text)
		if len(spans) == 0 {
			slog.Warn("no chunks produced", "work_id", workID)
			failed++
			continue
		}

		now := time.Now().UTC()
		chunks := make([]domain.Chunk, len(spans))
		for i, sp := range spans {
			chunks[i] = domain.Chunk{
				ID:         uuid.NewString(),
				WorkID:     workID,
				Index:      i,
				Text:       sp.Text,
				CharStart:  sp.Start,
				CharEnd:    sp.End,
				TokenCount: sp.Tokens,
				Embedded:   false,
				CreatedAt:  now,
			}
		}
		if err := store.InsertChunks(ctx, chunks); err != nil {
			return fmt.Errorf("insert chunks for %s: %w", workID, err)
		}
		works++
		chunksInserted += len(chunks)
		slog.Info("chunked work", "work_id", workID, "chunks", len(chunks))
	}

	cmd.Printf("Chunked %d works (%d chunks); skipped %d already chunked, %d failed.\n",
		works, chunksInserted, skipped, failed)
	return nil
}

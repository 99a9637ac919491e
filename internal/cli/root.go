// Package cli wires configuration, the Postgres chunk store, the
// embedding client and the Qdrant index into the raglab command tree.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/GallTech/rag-lab/internal/chunkstore"
	"github.com/GallTech/rag-lab/internal/config"
	"github.com/GallTech/rag-lab/internal/domain"
	"github.com/GallTech/rag-lab/internal/embedding"
	"github.com/GallTech/rag-lab/internal/retry"
	"github.com/GallTech/rag-lab/internal/vectorindex/qdrant"
)

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "raglab",
	Short: "Batch pipeline that embeds paper chunks into a vector index",
	Long: `raglab drives open-access paper chunks from Postgres through a
remote embedding service into a Qdrant collection, with exactly-once
completion flags and safe resumption after a crash at any point.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		slog.SetDefault(slog.New(handler))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default ./raglab.yaml, then ~/.config/raglab/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// Execute loads .env if present and runs the command tree.
func Execute() error {
	_ = godotenv.Load()
	return rootCmd.Execute()
}

func loadConfig() (*config.AppConfig, error) {
	if cfgPath != "" {
		return config.Load(cfgPath)
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}

func openStore(ctx context.Context, cfg *config.AppConfig) (*chunkstore.Store, error) {
	password := os.Getenv(cfg.Postgres.PasswordEnv)
	if password == "" {
		return nil, fmt.Errorf("postgres password missing: set %s", cfg.Postgres.PasswordEnv)
	}
	return chunkstore.Connect(ctx, chunkstore.Config{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: password,
		MaxConns: cfg.Postgres.MaxConns,
	})
}

func retryPolicy(cfg *config.AppConfig) retry.Policy {
	r := cfg.Pipeline.Retry
	return retry.Policy{
		MaxAttempts: r.MaxAttempts,
		BaseDelay:   time.Duration(r.BaseDelayMS) * time.Millisecond,
		Multiplier:  r.Multiplier,
		MaxDelay:    time.Duration(r.MaxDelayMS) * time.Millisecond,
		Classify:    domain.Transient,
	}
}

func newEmbedder(cfg *config.AppConfig) *embedding.Client {
	return embedding.NewClient(embedding.Config{
		Endpoint: cfg.Embedding.Endpoint,
		Timeout:  time.Duration(cfg.Embedding.TimeoutSecs) * time.Second,
	}, retryPolicy(cfg))
}

func newIndex(cfg *config.AppConfig) *qdrant.Client {
	return qdrant.NewClient(qdrant.Config{
		URL:                cfg.Qdrant.URL,
		APIKey:             os.Getenv(cfg.Qdrant.APIKeyEnv),
		Collection:         cfg.Qdrant.Collection,
		Timeout:            time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		RecreateOnMismatch: cfg.Qdrant.RecreateOnMismatch,
	}, retryPolicy(cfg))
}

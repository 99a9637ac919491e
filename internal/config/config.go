package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PostgresConfig holds connection details for the chunk store.
// The password never lives in the file; PasswordEnv names the
// environment variable that carries it.
type PostgresConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Database    string `yaml:"database"`
	User        string `yaml:"user"`
	PasswordEnv string `yaml:"password_env"`
	MaxConns    int    `yaml:"max_conns"`
}

// EmbeddingConfig configures the remote embedding service client.
type EmbeddingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// QdrantConfig contains connection details for the vector index.
type QdrantConfig struct {
	URL                string `yaml:"url"`
	APIKeyEnv          string `yaml:"api_key_env"`
	Collection         string `yaml:"collection"`
	TimeoutSecs        int    `yaml:"timeout_secs"`
	UpsertBatch        int    `yaml:"upsert_batch"`
	RecreateOnMismatch bool   `yaml:"recreate_on_mismatch"`
}

// RetryConfig shapes the retry policy injected into external clients.
type RetryConfig struct {
	MaxAttempts int     `yaml:"max_attempts"`
	BaseDelayMS int     `yaml:"base_delay_ms"`
	Multiplier  float64 `yaml:"multiplier"`
	MaxDelayMS  int     `yaml:"max_delay_ms"`
}

// PipelineConfig tunes the embedding batch cycle.
type PipelineConfig struct {
	FetchBatch   int         `yaml:"fetch_batch"`
	EmbedWorkers int         `yaml:"embed_workers"`
	SourceTag    string      `yaml:"source_tag"`
	Retry        RetryConfig `yaml:"retry"`
}

// ChunkingConfig configures the PDF chunking front end.
type ChunkingConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Postgres  PostgresConfig  `yaml:"postgres"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./raglab.yaml first, then ~/.config/raglab/config.yaml.
// If neither exists, it writes defaults to ~/.config/raglab/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "raglab.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "raglab", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = "localhost"
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = 5432
	}
	if cfg.Postgres.Database == "" {
		cfg.Postgres.Database = "raglab"
	}
	if cfg.Postgres.User == "" {
		cfg.Postgres.User = "raglab"
	}
	if cfg.Postgres.PasswordEnv == "" {
		cfg.Postgres.PasswordEnv = "PG_PASSWORD"
	}
	if cfg.Postgres.MaxConns == 0 {
		cfg.Postgres.MaxConns = 4
	}
	if cfg.Embedding.Endpoint == "" {
		cfg.Embedding.Endpoint = "http://localhost:8000/embed"
	}
	if cfg.Embedding.TimeoutSecs == 0 {
		cfg.Embedding.TimeoutSecs = 600
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 256
	}
	if cfg.Qdrant.URL == "" {
		cfg.Qdrant.URL = "http://localhost:6333"
	}
	if cfg.Qdrant.APIKeyEnv == "" {
		cfg.Qdrant.APIKeyEnv = "QDRANT_API_KEY"
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = "openalex"
	}
	if cfg.Qdrant.TimeoutSecs == 0 {
		cfg.Qdrant.TimeoutSecs = 120
	}
	if cfg.Qdrant.UpsertBatch == 0 {
		cfg.Qdrant.UpsertBatch = 512
	}
	if cfg.Pipeline.FetchBatch == 0 {
		cfg.Pipeline.FetchBatch = 1000
	}
	if cfg.Pipeline.EmbedWorkers == 0 {
		cfg.Pipeline.EmbedWorkers = 4
	}
	if cfg.Pipeline.SourceTag == "" {
		cfg.Pipeline.SourceTag = "openalex"
	}
	if cfg.Pipeline.Retry.MaxAttempts == 0 {
		cfg.Pipeline.Retry.MaxAttempts = 5
	}
	if cfg.Pipeline.Retry.BaseDelayMS == 0 {
		cfg.Pipeline.Retry.BaseDelayMS = 200
	}
	if cfg.Pipeline.Retry.Multiplier == 0 {
		cfg.Pipeline.Retry.Multiplier = 2
	}
	if cfg.Pipeline.Retry.MaxDelayMS == 0 {
		cfg.Pipeline.Retry.MaxDelayMS = 5000
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 2048
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 512
	}
}

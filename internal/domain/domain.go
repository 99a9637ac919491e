package domain

import (
	"context"
	"time"
)

// Chunk is a retrieval-sized span of a work's extracted text as stored
// in the chunks table. The ID doubles as the vector point ID in the
// index; it must never change once the chunk is written.
type Chunk struct {
	ID         string
	WorkID     string
	Index      int
	Text       string
	CharStart  int
	CharEnd    int
	TokenCount int
	Embedded   bool
	CreatedAt  time.Time
}

// PendingChunk is the slice of a chunk row the embedding cycle needs.
type PendingChunk struct {
	ID     string
	WorkID string
	Text   string
}

// Payload travels with each vector into the index and carries enough
// provenance to join back to the relational store.
type Payload struct {
	WorkID  string `json:"work_id"`
	ChunkID string `json:"chunk_id"`
	Source  string `json:"source"`
}

// Point is one upsert unit for the vector index. ID equals the chunk ID.
type Point struct {
	ID      string    `json:"id"`
	Vector  []float64 `json:"vector"`
	Payload Payload   `json:"payload"`
}

// Span is an ordered slice of a document produced by the splitter,
// with character offsets into the source text.
type Span struct {
	Text   string
	Start  int
	End    int
	Tokens int
}

// ChunkCounts summarises embedding progress across the chunks table.
type ChunkCounts struct {
	Total    int64
	Embedded int64
	Pending  int64
}

// Embedder converts a batch of texts into fixed-length vectors,
// one per input, in input order. Empty strings still get a vector.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// VectorIndex is the collection-scoped surface of the vector store.
// Upsert is idempotent by point ID and must not return before the
// write is acknowledged as durable.
type VectorIndex interface {
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, points []Point) error
	DeleteByWorkID(ctx context.Context, workID string) error
	DeleteCollection(ctx context.Context) error
	CountPoints(ctx context.Context) (int64, error)
}

// ChunkStore is the relational store of chunks. The embedded flag is
// the single source of truth for remaining work; MarkEmbedded is the
// pipeline's sole mutation and covers a whole batch in one statement.
type ChunkStore interface {
	FetchUnembedded(ctx context.Context, limit int) ([]PendingChunk, error)
	MarkEmbedded(ctx context.Context, ids []string) error
	InsertChunks(ctx context.Context, chunks []Chunk) error
	HasChunks(ctx context.Context, workID string) (bool, error)
	PartialWorkIDs(ctx context.Context) ([]string, error)
	ResetEmbedded(ctx context.Context, workIDs []string) (int64, error)
	ResetAll(ctx context.Context) (int64, error)
	Counts(ctx context.Context) (ChunkCounts, error)
}

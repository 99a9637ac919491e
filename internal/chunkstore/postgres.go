// Package chunkstore is the Postgres access layer for the chunks
// table. The embedded flag on each row is the pipeline's only source
// of truth for remaining work.
package chunkstore

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GallTech/rag-lab/internal/domain"
)

// Config holds Postgres connection parameters.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	MaxConns int
}

// Store implements domain.ChunkStore over a pgx connection pool.
// Connections are acquired per operation and released on every path.
type Store struct {
	pool *pgxpool.Pool
}

var _ domain.ChunkStore = (*Store)(nil)

// connString builds the DSN through url.URL so credentials with
// spaces or punctuation survive userinfo encoding intact.
func connString(cfg Config) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   cfg.Database,
	}
	return u.String()
}

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// FetchUnembedded returns up to limit pending chunks, oldest first.
func (s *Store) FetchUnembedded(ctx context.Context, limit int) ([]domain.PendingChunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, work_id, text
		FROM chunks
		WHERE embedded = FALSE
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unembedded chunks: %w", err)
	}
	defer rows.Close()

	var out []domain.PendingChunk
	for rows.Next() {
		var c domain.PendingChunk
		if err := rows.Scan(&c.ID, &c.WorkID, &c.Text); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read chunk rows: %w", err)
	}
	return out, nil
}

// MarkEmbedded flips the flag for the whole batch in one statement,
// the pipeline's single commit point.
func (s *Store) MarkEmbedded(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE chunks SET embedded = TRUE
		WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return fmt.Errorf("mark chunks embedded: %w", err)
	}
	return nil
}

// InsertChunks bulk-loads freshly split chunks with embedded = FALSE.
func (s *Store) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"chunks"},
		[]string{"id", "work_id", "chunk_index", "text", "char_start", "char_end", "token_count", "embedded", "created_at"},
		pgx.CopyFromSlice(len(chunks), func(i int) ([]any, error) {
			c := chunks[i]
			return []any{c.ID, c.WorkID, c.Index, c.Text, c.CharStart, c.CharEnd, c.TokenCount, c.Embedded, c.CreatedAt}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}
	return nil
}

// HasChunks reports whether a work has already been chunked.
func (s *Store) HasChunks(ctx context.Context, workID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chunks WHERE work_id = $1)`, workID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check chunks for work %s: %w", workID, err)
	}
	return exists, nil
}

// PartialWorkIDs returns works with some but not all chunks embedded,
// the fingerprint of a crash between upsert and commit.
func (s *Store) PartialWorkIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT work_id
		FROM chunks
		GROUP BY work_id
		HAVING SUM(CASE WHEN embedded THEN 1 ELSE 0 END) > 0
		   AND SUM(CASE WHEN embedded THEN 1 ELSE 0 END) < COUNT(*)`)
	if err != nil {
		return nil, fmt.Errorf("find partial works: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan work id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read work ids: %w", err)
	}
	return out, nil
}

// ResetEmbedded re-queues every chunk of the given works and returns
// the number of rows reset.
func (s *Store) ResetEmbedded(ctx context.Context, workIDs []string) (int64, error) {
	if len(workIDs) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE chunks SET embedded = FALSE
		WHERE work_id = ANY($1) AND embedded`, workIDs)
	if err != nil {
		return 0, fmt.Errorf("reset embedded flags: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ResetAll re-queues every embedded chunk in the table.
func (s *Store) ResetAll(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE chunks SET embedded = FALSE WHERE embedded`)
	if err != nil {
		return 0, fmt.Errorf("reset all embedded flags: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Counts summarises table-wide embedding progress.
func (s *Store) Counts(ctx context.Context) (domain.ChunkCounts, error) {
	var c domain.ChunkCounts
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE embedded)
		FROM chunks`).Scan(&c.Total, &c.Embedded)
	if err != nil {
		return domain.ChunkCounts{}, fmt.Errorf("count chunks: %w", err)
	}
	c.Pending = c.Total - c.Embedded
	return c, nil
}

// Package pipeline drives the embedding batch cycle: fetch pending
// chunks from Postgres, embed them, upsert vectors into the index,
// and only then mark the chunks embedded. The flag update is the sole
// commit point, so a crash anywhere before it re-does work instead of
// losing it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GallTech/rag-lab/internal/domain"
)

// probeText is embedded once at startup to learn the live dimension
// before any real work is fetched.
const probeText = "probe"

// Config tunes batch sizes and concurrency for the coordinator.
type Config struct {
	FetchBatch   int    // chunks per cycle
	EmbedBatch   int    // texts per embedding request
	UpsertBatch  int    // points per index upsert
	EmbedWorkers int    // concurrent embedding requests per cycle
	SourceTag    string // provenance tag stored in every payload
}

func (c *Config) applyDefaults() {
	if c.FetchBatch <= 0 {
		c.FetchBatch = 1000
	}
	if c.EmbedBatch <= 0 {
		c.EmbedBatch = 256
	}
	if c.UpsertBatch <= 0 {
		c.UpsertBatch = 512
	}
	if c.EmbedWorkers <= 0 {
		c.EmbedWorkers = 4
	}
	if c.SourceTag == "" {
		c.SourceTag = "openalex"
	}
}

// CycleStats reports the outcome of one batch cycle.
type CycleStats struct {
	Fetched        int
	Vectors        int
	Upserted       int
	Elapsed        time.Duration
	TotalProcessed int
}

// Rate returns chunks per second for the cycle.
func (s CycleStats) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Fetched) / s.Elapsed.Seconds()
}

// ProgressFunc receives per-cycle stats. Optional.
type ProgressFunc func(CycleStats)

// Coordinator owns the run-to-completion loop. One instance at a time
// per table/collection pair; there is no claim mechanism, sequencing
// is a deployment invariant.
type Coordinator struct {
	store    domain.ChunkStore
	embedder domain.Embedder
	index    domain.VectorIndex
	cfg      Config
	log      *slog.Logger
	progress ProgressFunc
}

// New creates a coordinator. logger may be nil for the default.
func New(store domain.ChunkStore, embedder domain.Embedder, index domain.VectorIndex, cfg Config, logger *slog.Logger) *Coordinator {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:    store,
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		log:      logger,
	}
}

// OnProgress registers a per-cycle stats sink.
func (c *Coordinator) OnProgress(fn ProgressFunc) { c.progress = fn }

// Probe embeds a fixed text to learn the live embedding dimension and
// eagerly ensures the collection exists with it. Run before the loop
// so a dimension misconfiguration fails at startup, not hours into a
// run.
func (c *Coordinator) Probe(ctx context.Context) (int, error) {
	vectors, err := c.embedder.EmbedBatch(ctx, []string{probeText})
	if err != nil {
		return 0, fmt.Errorf("startup embedding probe: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return 0, &domain.ProtocolError{Detail: "startup probe returned no vector"}
	}
	dim := len(vectors[0])
	if err := c.index.EnsureCollection(ctx, dim); err != nil {
		return 0, fmt.Errorf("startup collection check: %w", err)
	}
	c.log.Info("startup probe ok", "dimension", dim)
	return dim, nil
}

// RunToCompletion repeats batch cycles until a fetch returns zero
// rows, returning the number of chunks processed. Any cycle error
// aborts the run with nothing half-committed; the next invocation
// picks up the same pending rows.
func (c *Coordinator) RunToCompletion(ctx context.Context) (int, error) {
	if _, err := c.Probe(ctx); err != nil {
		return 0, err
	}
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		processed, err := c.runCycle(ctx, total)
		if err != nil {
			return total, err
		}
		if processed == 0 {
			c.log.Info("all chunks embedded", "total", total)
			return total, nil
		}
		total += processed
	}
}

// runCycle executes one fetch -> embed -> verify -> ensure -> upsert
// -> commit pass. total is the running count before this cycle, used
// only for reporting.
func (c *Coordinator) runCycle(ctx context.Context, total int) (int, error) {
	chunks, err := c.store.FetchUnembedded(ctx, c.cfg.FetchBatch)
	if err != nil {
		return 0, fmt.Errorf("fetch pending chunks: %w", err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	start := time.Now()
	c.log.Info("cycle start", "fetched", len(chunks))

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	vectors, err := c.embedAll(ctx, texts)
	if err != nil {
		return 0, err
	}
	// A count mismatch would silently mis-align vectors and chunk IDs
	// from here on; abort before any mutation so the cycle is
	// retryable wholesale.
	if len(vectors) != len(texts) {
		return 0, &domain.CountMismatchError{Texts: len(texts), Vectors: len(vectors)}
	}

	if err := c.index.EnsureCollection(ctx, len(vectors[0])); err != nil {
		return 0, err
	}

	points := make([]domain.Point, len(chunks))
	for i, ch := range chunks {
		points[i] = domain.Point{
			ID:     ch.ID,
			Vector: vectors[i],
			Payload: domain.Payload{
				WorkID:  ch.WorkID,
				ChunkID: ch.ID,
				Source:  c.cfg.SourceTag,
			},
		}
	}

	upserted := 0
	for len(points) > upserted {
		end := upserted + c.cfg.UpsertBatch
		if end > len(points) {
			end = len(points)
		}
		if err := c.index.Upsert(ctx, points[upserted:end]); err != nil {
			return 0, fmt.Errorf("upsert points %d..%d: %w", upserted, end, err)
		}
		upserted = end
		c.log.Debug("upserted points", "sent", upserted, "of", len(points))
	}

	// Sole mutation of the chunk store: everything above either
	// succeeded durably or aborted the cycle.
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}
	if err := c.store.MarkEmbedded(ctx, ids); err != nil {
		return 0, fmt.Errorf("mark chunks embedded: %w", err)
	}

	stats := CycleStats{
		Fetched:        len(chunks),
		Vectors:        len(vectors),
		Upserted:       upserted,
		Elapsed:        time.Since(start),
		TotalProcessed: total + len(chunks),
	}
	c.log.Info("cycle done",
		"fetched", stats.Fetched,
		"upserted", stats.Upserted,
		"elapsed", stats.Elapsed.Round(time.Millisecond),
		"rate", fmt.Sprintf("%.1f/s", stats.Rate()),
		"total", stats.TotalProcessed)
	if c.progress != nil {
		c.progress(stats)
	}
	return len(chunks), nil
}

// embedAll embeds texts in sub-batches on a bounded worker pool.
// Results land in positional slots so concatenation preserves the
// fetch order that payload construction depends on.
func (c *Coordinator) embedAll(ctx context.Context, texts []string) ([][]float64, error) {
	type job struct {
		offset int
		texts  []string
	}
	var jobs []job
	for off := 0; off < len(texts); off += c.cfg.EmbedBatch {
		end := off + c.cfg.EmbedBatch
		if end > len(texts) {
			end = len(texts)
		}
		jobs = append(jobs, job{offset: off, texts: texts[off:end]})
	}

	results := make([][][]float64, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.EmbedWorkers)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			vectors, err := c.embedder.EmbedBatch(gctx, j.texts)
			if err != nil {
				return fmt.Errorf("embed texts %d..%d: %w", j.offset, j.offset+len(j.texts), err)
			}
			results[i] = vectors
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([][]float64, 0, len(texts))
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// Package memory is an in-process vector index keyed by point ID.
// It mirrors the collection semantics of the Qdrant adapter (lazy
// creation, fixed dimension, idempotent upsert) and backs tests and
// dry runs where no index server is available.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/GallTech/rag-lab/internal/domain"
)

// Index stores points in a map, so upserting the same ID twice
// overwrites rather than duplicates, matching the real index.
type Index struct {
	mu         sync.RWMutex
	collection string
	recreate   bool
	dimension  int
	points     map[string]domain.Point
}

// New creates an empty index for the named collection.
func New(collection string, recreateOnMismatch bool) *Index {
	return &Index{collection: collection, recreate: recreateOnMismatch}
}

// EnsureCollection lazily fixes the dimension. A differing dimension
// on an existing collection is a DimensionMismatchError unless
// recreation was opted into, which clears all stored points.
func (x *Index) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.points == nil {
		x.points = make(map[string]domain.Point)
		x.dimension = dimension
		return nil
	}
	if x.dimension == dimension {
		return nil
	}
	if !x.recreate {
		return &domain.DimensionMismatchError{Collection: x.collection, Have: x.dimension, Want: dimension}
	}
	x.points = make(map[string]domain.Point)
	x.dimension = dimension
	return nil
}

// Upsert overwrites by point ID. Vectors of the wrong length indicate
// a caller bug and are rejected.
func (x *Index) Upsert(ctx context.Context, points []domain.Point) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.points == nil {
		return &domain.ConsistencyViolationError{Collection: x.collection, Detail: "upsert before collection creation"}
	}
	for _, p := range points {
		if len(p.Vector) != x.dimension {
			return fmt.Errorf("point %s has dimension %d, collection is %d", p.ID, len(p.Vector), x.dimension)
		}
	}
	for _, p := range points {
		x.points[p.ID] = p
	}
	return nil
}

// DeleteByWorkID removes all points tagged with the given work.
func (x *Index) DeleteByWorkID(ctx context.Context, workID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for id, p := range x.points {
		if p.Payload.WorkID == workID {
			delete(x.points, id)
		}
	}
	return nil
}

// DeleteCollection drops everything, including the dimension.
func (x *Index) DeleteCollection(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.points = nil
	x.dimension = 0
	return nil
}

// CountPoints returns the number of stored points.
func (x *Index) CountPoints(ctx context.Context) (int64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return int64(len(x.points)), nil
}

// Point returns a stored point and whether it exists. Test hook.
func (x *Index) Point(id string) (domain.Point, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	p, ok := x.points[id]
	return p, ok
}

// Dimension returns the collection's vector size, 0 if absent. Test hook.
func (x *Index) Dimension() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dimension
}

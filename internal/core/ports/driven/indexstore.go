package driven

import (
	"context"
	"time"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
)

// IndexStore persists a complete index snapshot (chunks plus embeddings)
// and serves similarity search over it.
//
// A snapshot is all-or-nothing: Rebuild replaces it atomically, and a
// concurrent Search sees either the old snapshot or the new one in full,
// never a mixture. Readers never write except through Rebuild.
type IndexStore interface {
	// Search returns up to k chunks ordered by descending cosine similarity
	// to the query vector, ties broken by insertion order. A missing or
	// empty snapshot yields an empty result and no error so callers can
	// degrade to no-retrieval mode.
	Search(ctx context.Context, query []float32, k int) ([]domain.ScoredChunk, error)

	// Rebuild atomically replaces the whole snapshot with the given chunks
	// and freshness marker. An unwritable target wraps
	// domain.ErrStorageFault.
	Rebuild(ctx context.Context, chunks []domain.Chunk, freshness time.Time) error

	// Exists reports whether a snapshot has been built.
	Exists() bool

	// FreshnessMarker returns the max source modification time recorded at
	// build time, zero when no snapshot exists.
	FreshnessMarker(ctx context.Context) (time.Time, error)

	// Count returns the number of chunks in the snapshot.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

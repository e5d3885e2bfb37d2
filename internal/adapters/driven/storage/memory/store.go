// Package memory implements the index store in process memory. It backs
// tests and ephemeral sessions where persisting the snapshot has no value.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

// Store is an in-memory index snapshot.
type Store struct {
	mu        sync.RWMutex
	chunks    []domain.Chunk
	freshness time.Time
	built     bool
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

// Rebuild replaces the whole snapshot.
func (s *Store) Rebuild(_ context.Context, chunks []domain.Chunk, freshness time.Time) error {
	copied := make([]domain.Chunk, len(chunks))
	copy(copied, chunks)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = copied
	s.freshness = freshness
	s.built = true
	return nil
}

// Search returns up to k chunks by descending cosine similarity, ties
// broken by insertion order.
func (s *Store) Search(_ context.Context, query []float32, k int) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.built || len(query) == 0 || k <= 0 {
		return nil, nil
	}

	type scored struct {
		chunk domain.ScoredChunk
		order int
	}
	all := make([]scored, 0, len(s.chunks))
	for i, c := range s.chunks {
		all = append(all, scored{
			chunk: domain.ScoredChunk{
				Content:    c.Content,
				DocumentID: c.DocumentID,
				Score:      cosineSimilarity(query, c.Embedding),
			},
			order: i,
		})
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].chunk.Score != all[j].chunk.Score {
			return all[i].chunk.Score > all[j].chunk.Score
		}
		return all[i].order < all[j].order
	})

	if k > len(all) {
		k = len(all)
	}
	results := make([]domain.ScoredChunk, k)
	for i := range results {
		results[i] = all[i].chunk
	}
	return results, nil
}

// Exists reports whether a snapshot has been built.
func (s *Store) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.built
}

// FreshnessMarker returns the freshness recorded by the last Rebuild.
func (s *Store) FreshnessMarker(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.freshness, nil
}

// Count returns the number of chunks in the snapshot.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

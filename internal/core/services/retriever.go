package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driven"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driving"
	"github.com/psimdev/atlas-assistant/internal/logger"
)

// Ensure RetrieverService implements the interface.
var _ driving.Retriever = (*RetrieverService)(nil)

// RetrieverService answers "what does the local knowledge say about this"
// by embedding the query and searching the index snapshot.
type RetrieverService struct {
	store    driven.IndexStore
	embedder driven.EmbeddingService
}

// NewRetrieverService creates a retriever over the given store and embedder.
// The embedder must be the same instance (or model) used at index time.
func NewRetrieverService(store driven.IndexStore, embedder driven.EmbeddingService) *RetrieverService {
	return &RetrieverService{store: store, embedder: embedder}
}

// Retrieve returns up to k chunks most similar to the query, best first.
// An absent or empty snapshot yields an empty result so callers degrade to
// answering without local context.
func (r *RetrieverService) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" || k <= 0 {
		return nil, nil
	}
	if !r.store.Exists() {
		logger.Debug("No index snapshot, retrieval returns empty")
		return nil, nil
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", domain.ErrEmbeddingUnavailable, err)
	}

	results, err := r.store.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	logger.Debug("Retrieved %d chunks for %q", len(results), query)
	return results, nil
}

// ContextBlock renders retrieved chunks as a prompt context block. Empty
// input yields an empty string.
func ContextBlock(chunks []domain.ScoredChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Contexto de la base de conocimiento local:\n")
	for _, c := range chunks {
		b.WriteString("---\n")
		b.WriteString(strings.TrimSpace(c.Content))
		b.WriteString("\n")
	}
	b.WriteString("---\n")
	return b.String()
}

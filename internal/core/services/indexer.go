package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driven"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driving"
	"github.com/psimdev/atlas-assistant/internal/logger"
	"github.com/psimdev/atlas-assistant/internal/postprocessors/chunker"
	"github.com/psimdev/atlas-assistant/internal/postprocessors/markdown"
)

// Ensure IndexerService implements the interface.
var _ driving.Indexer = (*IndexerService)(nil)

// embedBatchSize is how many chunks are embedded per provider call.
const embedBatchSize = 32

// IndexerService maintains the knowledge index snapshot: it decides when the
// snapshot is stale and rebuilds it from the knowledge source.
//
// Rebuilds are coalesced: concurrent BuildIfStale callers share one build.
type IndexerService struct {
	source   driven.KnowledgeSource
	store    driven.IndexStore
	embedder driven.EmbeddingService
	splitter *chunker.Splitter
	timeout  time.Duration

	group singleflight.Group
}

// NewIndexerService creates an indexer over the given source and store.
func NewIndexerService(
	source driven.KnowledgeSource,
	store driven.IndexStore,
	embedder driven.EmbeddingService,
	splitter *chunker.Splitter,
	buildTimeout time.Duration,
) *IndexerService {
	return &IndexerService{
		source:   source,
		store:    store,
		embedder: embedder,
		splitter: splitter,
		timeout:  buildTimeout,
	}
}

// ShouldReindex is the cheap staleness precondition: true when no snapshot
// exists or any source document is newer than the snapshot's freshness
// marker. It never triggers a build by itself.
func (s *IndexerService) ShouldReindex(ctx context.Context) (bool, error) {
	if !s.store.Exists() {
		logger.Debug("No index snapshot, reindex needed")
		return true, nil
	}

	marker, err := s.store.FreshnessMarker(ctx)
	if err != nil {
		return false, fmt.Errorf("read freshness marker: %w", err)
	}

	// A watching source answers without walking the tree.
	if !s.source.ChangedSince(marker) {
		return false, nil
	}

	last, err := s.source.LastModified(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSourceUnavailable) {
			// No knowledge directory means nothing newer than the snapshot.
			logger.Debug("Knowledge source unavailable, keeping snapshot")
			return false, nil
		}
		return false, fmt.Errorf("check source modification time: %w", err)
	}

	stale := last.After(marker)
	logger.Debug("Staleness check: source=%s snapshot=%s stale=%t",
		last.Format(time.RFC3339), marker.Format(time.RFC3339), stale)
	return stale, nil
}

// BuildIfStale rebuilds the snapshot when stale, or unconditionally when
// force is set. Concurrent callers coalesce into a single build and all
// receive its result. The cache-hit path returns immediately.
func (s *IndexerService) BuildIfStale(ctx context.Context, force bool) error {
	if !force {
		stale, err := s.ShouldReindex(ctx)
		if err != nil {
			return err
		}
		if !stale {
			return nil
		}
	}

	_, err, _ := s.group.Do("rebuild", func() (any, error) {
		return nil, s.rebuild(ctx)
	})
	return err
}

// rebuild runs the full pipeline: load, split, embed, swap the snapshot.
func (s *IndexerService) rebuild(ctx context.Context) error {
	logger.Section("Index Rebuild")
	start := time.Now()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	docs, err := s.source.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSourceUnavailable) {
			// No knowledge directory: leave whatever snapshot exists in
			// place and let retrieval answer empty.
			logger.Warn("Knowledge source unavailable, skipping rebuild")
			return nil
		}
		return fmt.Errorf("load knowledge source: %w", err)
	}
	logger.Info("Loaded %d documents", len(docs))

	var chunks []domain.Chunk
	var freshness time.Time
	for _, doc := range docs {
		if doc.ModifiedAt.After(freshness) {
			freshness = doc.ModifiedAt
		}
		if strings.HasSuffix(doc.ID, ".md") {
			doc.Content = markdown.Strip(doc.Content)
		}
		for c := range s.splitter.Split(doc) {
			chunks = append(chunks, c)
		}
	}
	logger.Info("Split into %d chunks", len(chunks))

	if err := s.embedChunks(ctx, chunks); err != nil {
		return err
	}

	if err := s.store.Rebuild(ctx, chunks, freshness); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: rebuild exceeded %s", domain.ErrIndexingTimeout, s.timeout)
		}
		return fmt.Errorf("swap index snapshot: %w", err)
	}

	logger.Info("Index rebuilt: %d chunks in %s", len(chunks), time.Since(start).Round(time.Millisecond))
	return nil
}

// embedChunks fills Embedding on every chunk, in batches.
func (s *IndexerService) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	for lo := 0; lo < len(chunks); lo += embedBatchSize {
		hi := lo + embedBatchSize
		if hi > len(chunks) {
			hi = len(chunks)
		}

		texts := make([]string, hi-lo)
		for i := lo; i < hi; i++ {
			texts[i-lo] = chunks[i].Content
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: embedding exceeded %s", domain.ErrIndexingTimeout, s.timeout)
			}
			return fmt.Errorf("embed chunks %d-%d: %w", lo, hi, err)
		}
		if len(vectors) != hi-lo {
			return fmt.Errorf("embed chunks %d-%d: got %d vectors for %d texts",
				lo, hi, len(vectors), hi-lo)
		}
		for i := lo; i < hi; i++ {
			chunks[i].Embedding = vectors[i-lo]
		}
	}
	return nil
}

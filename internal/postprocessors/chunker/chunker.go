// Package chunker splits document content into fixed-size overlapping
// chunks, the unit of retrieval.
package chunker

import (
	"fmt"
	"iter"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
)

// Splitter produces chunks from documents. Chunk size and overlap are in
// bytes; overlap must be smaller than size (enforced at configuration
// time, clamped here as a last line of defence).
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in bytes.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between neighbouring chunks in bytes.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: domain.DefaultChunkSize,
		overlap:   domain.DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// Split returns a lazy, restartable sequence of chunks covering the whole
// document with the configured overlap. Ranging over it again re-produces
// the same chunks; IDs are derived from the document ID and position so
// re-iteration is stable.
func (s *Splitter) Split(doc domain.Document) iter.Seq[domain.Chunk] {
	return func(yield func(domain.Chunk) bool) {
		content := doc.Content
		if content == "" {
			return
		}

		step := s.chunkSize - s.overlap
		position := 0
		for start := 0; start < len(content); start += step {
			end := start + s.chunkSize
			if end > len(content) {
				end = len(content)
			}

			chunk := domain.Chunk{
				ID:         fmt.Sprintf("%s#%d", doc.ID, position),
				DocumentID: doc.ID,
				Offset:     start,
				Position:   position,
				Content:    content[start:end],
			}
			if !yield(chunk) {
				return
			}
			position++

			if end == len(content) {
				return
			}
		}
	}
}

// ChunkSize returns the configured chunk size.
func (s *Splitter) ChunkSize() int {
	return s.chunkSize
}

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int {
	return s.overlap
}

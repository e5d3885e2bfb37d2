package domain

import "time"

// Document is a raw text unit loaded from the knowledge source.
// Documents are immutable once loaded; a reindex replaces them wholesale.
type Document struct {
	// ID is a stable identifier, the path relative to the knowledge root.
	ID string

	// Path is the absolute location on disk.
	Path string

	// Content is the full text content.
	Content string

	// ModifiedAt is the source file's last-modification time. The indexer
	// compares it against the snapshot freshness marker.
	ModifiedAt time.Time
}

// Chunk is a bounded slice of a document's content, the unit of retrieval.
// Chunks are created during indexing and never mutated; a rebuild deletes
// and regenerates all of them.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the source Document.
	DocumentID string

	// Offset is the byte offset of this chunk within the document content.
	Offset int

	// Position is the ordinal position within the document.
	Position int

	// Content is the chunk text.
	Content string

	// Embedding is the vector representation for similarity search.
	// Its width is fixed by the embedding model.
	Embedding []float32
}

// ScoredChunk pairs a chunk's text with its relevance to a query.
// Scored chunks are ephemeral: they live only for one handler invocation.
type ScoredChunk struct {
	// Content is the matched chunk text.
	Content string

	// DocumentID identifies the source document, for attribution.
	DocumentID string

	// Score is the cosine similarity to the query (higher is better).
	Score float64
}

// Snapshot describes a persisted index snapshot.
type Snapshot struct {
	// Chunks is the number of chunks in the snapshot.
	Chunks int

	// Freshness is the maximum source modification time observed when the
	// snapshot was built.
	Freshness time.Time

	// BuiltAt is when the snapshot was created.
	BuiltAt time.Time
}

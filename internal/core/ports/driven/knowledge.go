package driven

import (
	"context"
	"time"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
)

// KnowledgeSource abstracts the directory of text files the index is built
// from. The core reads file content and modification times only.
type KnowledgeSource interface {
	// Load enumerates all recognised text documents. Returns
	// domain.ErrSourceUnavailable when the directory does not exist;
	// callers treat that as "no knowledge available", not fatal.
	Load(ctx context.Context) ([]domain.Document, error)

	// LastModified returns the newest modification time across all
	// recognised files, zero when there are none.
	LastModified(ctx context.Context) (time.Time, error)

	// Add writes a new document with the given text into the source,
	// returning its identifier.
	Add(ctx context.Context, text string) (string, error)

	// ChangedSince reports whether the source saw changes after t. A
	// watching implementation answers from change notifications without
	// walking the tree.
	ChangedSince(t time.Time) bool

	// Close releases resources (file watchers).
	Close() error
}

package driving

import (
	"context"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
)

// Assistant is the session entry point: a free-text message plus a session
// identifier in, a free-text reply out. No other contract is part of the
// core.
//
// Messages within one session are processed strictly sequentially; separate
// sessions are independent and may run concurrently.
type Assistant interface {
	// HandleMessage processes one user message and returns the reply. It
	// never returns a raw upstream fault; failures surface as apologetic,
	// actionable reply text. The error is reserved for programming errors
	// (nil session ID and the like).
	HandleMessage(ctx context.Context, sessionID, message string) (string, error)

	// Session returns the shared context for a session, creating it on
	// first use.
	Session(sessionID string) *domain.Session

	// EndSession drops a session's shared context.
	EndSession(sessionID string)
}

// Indexer maintains the knowledge index snapshot.
type Indexer interface {
	// ShouldReindex is the cheap staleness precondition: true when no
	// snapshot exists or any source document is newer than the snapshot's
	// freshness marker.
	ShouldReindex(ctx context.Context) (bool, error)

	// BuildIfStale rebuilds the snapshot when stale (or force is set).
	// Safe to call once per session start: concurrent callers coalesce
	// into a single build. Returns without error on the cache-hit path.
	BuildIfStale(ctx context.Context, force bool) error
}

// Retriever returns local context for a query.
type Retriever interface {
	// Retrieve embeds the query and returns up to k similar chunks. An
	// absent or empty index yields an empty result, not an error.
	Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}

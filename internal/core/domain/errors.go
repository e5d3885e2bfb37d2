package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration indicates invalid settings (bad chunking parameters,
	// missing required values). Fatal at startup, never retried.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrSourceUnavailable indicates the knowledge directory is missing or
	// unreadable. Callers proceed with an empty or unchanged index.
	ErrSourceUnavailable = errors.New("knowledge source unavailable")

	// ErrStorageFault indicates the index snapshot cannot be written or read.
	// Sessions fall back to no-retrieval mode rather than failing.
	ErrStorageFault = errors.New("index storage fault")

	// ErrIndexingTimeout indicates an index build exceeded its deadline.
	// Same degrade-gracefully policy as ErrStorageFault.
	ErrIndexingTimeout = errors.New("indexing timed out")

	// ErrUpstreamService indicates the issue tracker, wiki or model provider
	// was unreachable or rejected a request. Handlers turn this into an
	// apologetic user-facing reply, never a raw fault.
	ErrUpstreamService = errors.New("upstream service failure")

	// ErrLLMUnavailable indicates no language model service is configured.
	// Classification falls back to keyword rules.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates no embedding service is configured.
	// Retrieval is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): embeddings, language models, the index
// snapshot store, the knowledge source, and the upstream tracker and wiki
// services.
package driven

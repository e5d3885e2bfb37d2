// Package services contains the application core: the indexing pipeline,
// retrieval, intent classification, the orchestrator and the domain
// handlers. Services depend only on domain types and ports; adapters are
// injected at startup.
package services

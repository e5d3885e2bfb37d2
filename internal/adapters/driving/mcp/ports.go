package mcp

import (
	"github.com/psimdev/atlas-assistant/internal/core/ports/driven"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driving"
)

// Ports aggregates the ports the MCP server exposes. A single injection
// point keeps wiring in one place.
type Ports struct {
	// Assistant handles conversational messages.
	Assistant driving.Assistant

	// Retriever serves raw knowledge base lookups.
	Retriever driving.Retriever

	// Indexer rebuilds the knowledge index.
	Indexer driving.Indexer

	// Store describes the current snapshot for the index resource.
	Store driven.IndexStore
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Assistant == nil {
		return ErrMissingAssistant
	}
	// Retriever, Indexer and Store are optional; the matching tools and
	// resources answer empty when absent.
	return nil
}

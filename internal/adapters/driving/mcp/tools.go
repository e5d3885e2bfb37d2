package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Message   string `json:"message" jsonschema:"the message for the assistant, in natural language"`
	SessionID string `json:"session_id,omitempty" jsonschema:"conversation to continue; omit to use the server's shared session"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
}

// SearchKnowledgeInput is the input schema for the knowledge search tool.
type SearchKnowledgeInput struct {
	Query string `json:"query" jsonschema:"the text to find similar knowledge base passages for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of passages to return (default 5)"`
}

// SearchKnowledgeOutput is the output schema for the knowledge search tool.
type SearchKnowledgeOutput struct {
	Passages []PassageOutput `json:"passages"`
	Count    int             `json:"count"`
}

// PassageOutput is a single retrieved passage.
type PassageOutput struct {
	DocumentID string  `json:"document_id"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// RebuildIndexInput is the input schema for the index rebuild tool.
type RebuildIndexInput struct {
	Force bool `json:"force,omitempty" jsonschema:"rebuild even when the snapshot is up to date"`
}

// RebuildIndexOutput is the output schema for the index rebuild tool.
type RebuildIndexOutput struct {
	Rebuilt bool   `json:"rebuilt"`
	Detail  string `json:"detail,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Send a message to the assistant and get its reply. The assistant answers in Spanish and can consult the issue tracker, the wiki and the local knowledge base.",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Retrieve passages from the local knowledge base by semantic similarity",
	}, s.handleSearchKnowledge)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rebuild_index",
		Description: "Rebuild the knowledge index when source documents changed",
	}, s.handleRebuildIndex)
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = s.defaultSession
	}

	reply, err := s.ports.Assistant.HandleMessage(ctx, sessionID, input.Message)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{Reply: reply, SessionID: sessionID}, nil
}

func (s *Server) handleSearchKnowledge(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchKnowledgeInput,
) (*mcp.CallToolResult, SearchKnowledgeOutput, error) {
	if s.ports.Retriever == nil {
		return nil, SearchKnowledgeOutput{}, errors.New("knowledge retrieval is not configured")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = domain.DefaultTopK
	}

	chunks, err := s.ports.Retriever.Retrieve(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchKnowledgeOutput{}, err
	}

	output := SearchKnowledgeOutput{
		Passages: make([]PassageOutput, len(chunks)),
		Count:    len(chunks),
	}
	for i := range chunks {
		output.Passages[i] = PassageOutput{
			DocumentID: chunks[i].DocumentID,
			Content:    chunks[i].Content,
			Score:      chunks[i].Score,
		}
	}
	return nil, output, nil
}

func (s *Server) handleRebuildIndex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RebuildIndexInput,
) (*mcp.CallToolResult, RebuildIndexOutput, error) {
	if s.ports.Indexer == nil {
		return nil, RebuildIndexOutput{}, errors.New("indexing is not configured")
	}

	if err := s.ports.Indexer.BuildIfStale(ctx, input.Force); err != nil {
		return nil, RebuildIndexOutput{}, err
	}
	return nil, RebuildIndexOutput{Rebuilt: true}, nil
}

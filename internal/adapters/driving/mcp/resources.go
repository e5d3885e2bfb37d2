package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "atlas://"

// indexResource describes the current knowledge snapshot.
type indexResource struct {
	Exists    bool   `json:"exists"`
	Chunks    int    `json:"chunks,omitempty"`
	Freshness string `json:"freshness,omitempty"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "index",
		Name:        "index",
		Description: "State of the local knowledge index snapshot",
		MIMEType:    "application/json",
	}, s.handleIndexResource)
}

func (s *Server) handleIndexResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	state := indexResource{}

	if s.ports.Store != nil && s.ports.Store.Exists() {
		state.Exists = true
		if count, err := s.ports.Store.Count(ctx); err == nil {
			state.Chunks = count
		}
		if freshness, err := s.ports.Store.FreshnessMarker(ctx); err == nil && !freshness.IsZero() {
			state.Freshness = freshness.Format(time.RFC3339)
		}
	}

	data, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

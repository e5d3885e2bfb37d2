// Package mcp provides a Model Context Protocol server adapter so other AI
// assistants can talk to the local knowledge base and the conversational
// assistant.
package mcp

import "errors"

// ErrMissingAssistant is returned when the assistant port is not provided.
var ErrMissingAssistant = errors.New("mcp: assistant is required")

// Package domain contains the core business entities and rules for the
// assistant: knowledge documents and chunks, conversation sessions, intent
// routing types, tracker and wiki entities, and date resolution.
//
// The domain layer has no dependencies on adapters or external services.
package domain

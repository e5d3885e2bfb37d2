// Package driving provides interfaces for the application's entry points
// (primary/inbound ports): the conversational assistant, the indexer, and
// the retriever.
package driving

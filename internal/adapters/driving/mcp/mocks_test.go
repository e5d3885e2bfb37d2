package mcp

import (
	"context"
	"time"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
)

// mockAssistant is a mock implementation of driving.Assistant.
type mockAssistant struct {
	reply    string
	err      error
	sessions []string
	messages []string
}

func (m *mockAssistant) HandleMessage(_ context.Context, sessionID, message string) (string, error) {
	m.sessions = append(m.sessions, sessionID)
	m.messages = append(m.messages, message)
	return m.reply, m.err
}

func (m *mockAssistant) Session(sessionID string) *domain.Session {
	return domain.NewSession(sessionID)
}

func (m *mockAssistant) EndSession(_ string) {}

// mockRetriever is a mock implementation of driving.Retriever.
type mockRetriever struct {
	chunks []domain.ScoredChunk
	err    error
	lastK  int
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, k int) ([]domain.ScoredChunk, error) {
	m.lastK = k
	return m.chunks, m.err
}

// mockIndexer is a mock implementation of driving.Indexer.
type mockIndexer struct {
	err    error
	forced bool
	calls  int
}

func (m *mockIndexer) ShouldReindex(_ context.Context) (bool, error) {
	return false, nil
}

func (m *mockIndexer) BuildIfStale(_ context.Context, force bool) error {
	m.calls++
	m.forced = force
	return m.err
}

// mockStore implements the snapshot-describing subset of driven.IndexStore.
type mockStore struct {
	exists    bool
	count     int
	freshness time.Time
}

func (m *mockStore) Search(_ context.Context, _ []float32, _ int) ([]domain.ScoredChunk, error) {
	return nil, nil
}

func (m *mockStore) Rebuild(_ context.Context, _ []domain.Chunk, _ time.Time) error {
	return nil
}

func (m *mockStore) Exists() bool { return m.exists }

func (m *mockStore) FreshnessMarker(_ context.Context) (time.Time, error) {
	return m.freshness, nil
}

func (m *mockStore) Count(_ context.Context) (int, error) { return m.count, nil }

func (m *mockStore) Close() error { return nil }

package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
)

// executeCommand runs the root command with args and returns its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

// setupTestServices wires mock services and returns a cleanup func.
func setupTestServices(assistant *cliMockAssistant, indexer *cliMockIndexer, store *cliMockStore) func() {
	SetServices(Services{
		Assistant:  assistant,
		Indexer:    indexer,
		IndexStore: store,
	})
	return func() { SetServices(Services{}) }
}

type cliMockAssistant struct {
	reply    string
	err      error
	sessions []string
	messages []string
}

func (m *cliMockAssistant) HandleMessage(_ context.Context, sessionID, message string) (string, error) {
	m.sessions = append(m.sessions, sessionID)
	m.messages = append(m.messages, message)
	return m.reply, m.err
}

func (m *cliMockAssistant) Session(sessionID string) *domain.Session {
	return domain.NewSession(sessionID)
}

func (m *cliMockAssistant) EndSession(_ string) {}

type cliMockIndexer struct {
	stale     bool
	staleErr  error
	buildErr  error
	buildRuns int
	forced    bool
}

func (m *cliMockIndexer) ShouldReindex(_ context.Context) (bool, error) {
	return m.stale, m.staleErr
}

func (m *cliMockIndexer) BuildIfStale(_ context.Context, force bool) error {
	m.buildRuns++
	m.forced = force
	return m.buildErr
}

type cliMockStore struct {
	count int
}

func (m *cliMockStore) Search(_ context.Context, _ []float32, _ int) ([]domain.ScoredChunk, error) {
	return nil, nil
}

func (m *cliMockStore) Rebuild(_ context.Context, _ []domain.Chunk, _ time.Time) error {
	return nil
}

func (m *cliMockStore) Exists() bool { return m.count > 0 }

func (m *cliMockStore) FreshnessMarker(_ context.Context) (time.Time, error) {
	return time.Time{}, nil
}

func (m *cliMockStore) Count(_ context.Context) (int, error) { return m.count, nil }

func (m *cliMockStore) Close() error { return nil }

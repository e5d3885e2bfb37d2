package services

import (
	"context"
	"fmt"
	"time"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

// mockKnowledgeSource implements driven.KnowledgeSource.
type mockKnowledgeSource struct {
	docs    []domain.Document
	loadErr error
	lastMod time.Time
	modErr  error
	changed bool
	added   []string
	addErr  error
}

func (m *mockKnowledgeSource) Load(_ context.Context) ([]domain.Document, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.docs, nil
}

func (m *mockKnowledgeSource) LastModified(_ context.Context) (time.Time, error) {
	if m.modErr != nil {
		return time.Time{}, m.modErr
	}
	return m.lastMod, nil
}

func (m *mockKnowledgeSource) Add(_ context.Context, text string) (string, error) {
	if m.addErr != nil {
		return "", m.addErr
	}
	m.added = append(m.added, text)
	return fmt.Sprintf("note-%d.md", len(m.added)), nil
}

func (m *mockKnowledgeSource) ChangedSince(_ time.Time) bool { return m.changed }

func (m *mockKnowledgeSource) Close() error { return nil }

// mockIndexStore implements driven.IndexStore.
type mockIndexStore struct {
	exists       bool
	freshness    time.Time
	freshnessErr error
	results      []domain.ScoredChunk
	searchErr    error
	rebuildErr   error

	rebuilt      [][]domain.Chunk
	rebuiltFresh []time.Time
}

func (m *mockIndexStore) Search(_ context.Context, _ []float32, k int) ([]domain.ScoredChunk, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k < len(m.results) {
		return m.results[:k], nil
	}
	return m.results, nil
}

func (m *mockIndexStore) Rebuild(_ context.Context, chunks []domain.Chunk, freshness time.Time) error {
	if m.rebuildErr != nil {
		return m.rebuildErr
	}
	m.rebuilt = append(m.rebuilt, chunks)
	m.rebuiltFresh = append(m.rebuiltFresh, freshness)
	m.exists = true
	m.freshness = freshness
	return nil
}

func (m *mockIndexStore) Exists() bool { return m.exists }

func (m *mockIndexStore) FreshnessMarker(_ context.Context) (time.Time, error) {
	if m.freshnessErr != nil {
		return time.Time{}, m.freshnessErr
	}
	return m.freshness, nil
}

func (m *mockIndexStore) Count(_ context.Context) (int, error) {
	if len(m.rebuilt) == 0 {
		return 0, nil
	}
	return len(m.rebuilt[len(m.rebuilt)-1]), nil
}

func (m *mockIndexStore) Close() error { return nil }

// mockEmbedding implements driven.EmbeddingService with a fixed vector.
type mockEmbedding struct {
	vector   []float32
	embedErr error
}

func (m *mockEmbedding) Embed(_ context.Context, _ string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector, nil
}

func (m *mockEmbedding) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.vector
	}
	return out, nil
}

func (m *mockEmbedding) Dimensions() int { return len(m.vector) }

func (m *mockEmbedding) ModelName() string { return "mock-embed" }

func (m *mockEmbedding) Close() error { return nil }

// mockLLM implements driven.LLMService with a canned reply.
type mockLLM struct {
	reply   string
	err     error
	prompts []string
	chats   [][]driven.ChatMessage
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.prompts = append(m.prompts, prompt)
	return m.reply, nil
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.GenerateOptions) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.chats = append(m.chats, messages)
	if len(messages) > 0 {
		m.prompts = append(m.prompts, messages[len(messages)-1].Content)
	}
	return m.reply, nil
}

func (m *mockLLM) ModelName() string { return "mock-llm" }

func (m *mockLLM) Close() error { return nil }

// mockTracker implements driven.IssueTracker.
type mockTracker struct {
	issues      []domain.Issue
	issueErr    error
	worklogs    map[string][]domain.Worklog
	worklogErr  error
	transitions map[string][]domain.Transition

	addedWorklogs []addedWorklog
	applied       []string
}

type addedWorklog struct {
	key       string
	timeSpent string
	comment   string
	started   time.Time
}

func (m *mockTracker) MyIssues(_ context.Context) ([]domain.Issue, error) {
	if m.issueErr != nil {
		return nil, m.issueErr
	}
	return m.issues, nil
}

func (m *mockTracker) Issue(_ context.Context, key string) (*domain.Issue, error) {
	if m.issueErr != nil {
		return nil, m.issueErr
	}
	for i := range m.issues {
		if m.issues[i].Key == key {
			return &m.issues[i], nil
		}
	}
	return nil, fmt.Errorf("%w: issue %s", domain.ErrNotFound, key)
}

func (m *mockTracker) Worklogs(_ context.Context, key string) ([]domain.Worklog, error) {
	if m.worklogErr != nil {
		return nil, m.worklogErr
	}
	return m.worklogs[key], nil
}

func (m *mockTracker) AddWorklog(_ context.Context, key, timeSpent, comment string, started time.Time) error {
	m.addedWorklogs = append(m.addedWorklogs, addedWorklog{key, timeSpent, comment, started})
	return nil
}

func (m *mockTracker) Transitions(_ context.Context, key string) ([]domain.Transition, error) {
	return m.transitions[key], nil
}

func (m *mockTracker) ApplyTransition(_ context.Context, key, transitionID string) error {
	m.applied = append(m.applied, key+":"+transitionID)
	return nil
}

func (m *mockTracker) Close() error { return nil }

// mockWiki implements driven.WikiService.
type mockWiki struct {
	spaces     []domain.Space
	pages      map[string]*domain.Page
	spacePages map[string][]domain.Page
	searchHits []domain.Page
	searchErr  error
	createErr  error

	created   []createdPage
	spaceKeys []string
}

type createdPage struct {
	space string
	title string
	body  string
}

func (m *mockWiki) Spaces(_ context.Context) ([]domain.Space, error) {
	return m.spaces, nil
}

func (m *mockWiki) SpaceContent(_ context.Context, key string) ([]domain.Page, error) {
	m.spaceKeys = append(m.spaceKeys, key)
	if m.spacePages != nil {
		pages, ok := m.spacePages[key]
		if !ok {
			return nil, fmt.Errorf("%w: space %s", domain.ErrNotFound, key)
		}
		return pages, nil
	}
	return m.searchHits, nil
}

func (m *mockWiki) Search(_ context.Context, _ string, _ []string) ([]domain.Page, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchHits, nil
}

func (m *mockWiki) Page(_ context.Context, id string) (*domain.Page, error) {
	if p, ok := m.pages[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: page %s", domain.ErrNotFound, id)
}

func (m *mockWiki) PageByTitle(_ context.Context, _, title string) (*domain.Page, error) {
	for _, p := range m.pages {
		if p.Title == title {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: page %q", domain.ErrNotFound, title)
}

func (m *mockWiki) CreatePage(_ context.Context, spaceKey, title, body string) (*domain.Page, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, createdPage{spaceKey, title, body})
	return &domain.Page{
		ID:       fmt.Sprintf("page-%d", len(m.created)),
		SpaceKey: spaceKey,
		Title:    title,
		Content:  body,
		URL:      "https://wiki.example.com/pages/" + title,
	}, nil
}

func (m *mockWiki) Close() error { return nil }

// mockHandler implements Handler, recording what it was asked.
type mockHandler struct {
	domain   domain.Domain
	reply    string
	err      error
	messages []string
	dates    [][]domain.DateMention
}

func (m *mockHandler) Domain() domain.Domain { return m.domain }

func (m *mockHandler) Handle(
	_ context.Context, _ *domain.Session, message string, dates []domain.DateMention,
) (string, error) {
	m.messages = append(m.messages, message)
	m.dates = append(m.dates, dates)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

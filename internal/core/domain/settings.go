package domain

import (
	"fmt"
	"time"
)

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderLocal is the built-in deterministic embedder; it needs no
	// external service and is the fallback when nothing is configured.
	AIProviderLocal AIProvider = "local"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderLocal:
		return true
	default:
		return false
	}
}

// Default chunking parameters, matching the knowledge base the assistant
// was tuned on.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultTopK         = 5
)

// IndexSettings configures the knowledge index pipeline.
type IndexSettings struct {
	// KnowledgeDir is the directory of .md/.txt source documents.
	KnowledgeDir string `toml:"knowledge_dir"`

	// DataDir is where the index snapshot lives. Empty means ~/.atlas/data.
	DataDir string `toml:"data_dir"`

	// ChunkSize is the chunk length in bytes.
	ChunkSize int `toml:"chunk_size"`

	// ChunkOverlap is the overlap between neighbouring chunks in bytes.
	// Must be smaller than ChunkSize.
	ChunkOverlap int `toml:"chunk_overlap"`

	// TopK is how many chunks retrieval returns.
	TopK int `toml:"top_k"`

	// BuildTimeout bounds a full rebuild; past it the session starts in
	// no-retrieval mode. Zero means no limit.
	BuildTimeout time.Duration `toml:"build_timeout"`
}

// ApplyDefaults fills zero values.
func (s *IndexSettings) ApplyDefaults() {
	if s.ChunkSize == 0 {
		s.ChunkSize = DefaultChunkSize
	}
	if s.ChunkOverlap == 0 {
		s.ChunkOverlap = DefaultChunkOverlap
	}
	if s.TopK == 0 {
		s.TopK = DefaultTopK
	}
}

// Validate enforces the chunking invariants at configuration time.
func (s *IndexSettings) Validate() error {
	if s.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrConfiguration, s.ChunkSize)
	}
	if s.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_overlap must not be negative, got %d", ErrConfiguration, s.ChunkOverlap)
	}
	if s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			ErrConfiguration, s.ChunkOverlap, s.ChunkSize)
	}
	if s.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrConfiguration, s.TopK)
	}
	return nil
}

// AISettings configures the embedding and LLM services.
type AISettings struct {
	// EmbeddingProvider selects the embedder ("local", "ollama", "openai").
	EmbeddingProvider AIProvider `toml:"embedding_provider"`

	// EmbeddingModel is the provider-specific model name.
	EmbeddingModel string `toml:"embedding_model"`

	// EmbeddingBaseURL overrides the provider endpoint.
	EmbeddingBaseURL string `toml:"embedding_base_url"`

	// LLMProvider selects the language model ("ollama", "openai").
	// Empty disables LLM features; classification uses keyword rules.
	LLMProvider AIProvider `toml:"llm_provider"`

	// LLMModel is the provider-specific model name.
	LLMModel string `toml:"llm_model"`

	// LLMBaseURL overrides the provider endpoint.
	LLMBaseURL string `toml:"llm_base_url"`

	// APIKeyEnv names the environment variable holding the cloud API key.
	APIKeyEnv string `toml:"api_key_env"`
}

// ApplyDefaults fills zero values.
func (s *AISettings) ApplyDefaults() {
	if s.EmbeddingProvider == "" {
		s.EmbeddingProvider = AIProviderLocal
	}
	if s.APIKeyEnv == "" {
		s.APIKeyEnv = "OPENAI_API_KEY"
	}
}

// Validate checks provider names.
func (s *AISettings) Validate() error {
	if !s.EmbeddingProvider.IsValid() {
		return fmt.Errorf("%w: unknown embedding_provider %q", ErrConfiguration, s.EmbeddingProvider)
	}
	if s.LLMProvider != "" && !s.LLMProvider.IsValid() {
		return fmt.Errorf("%w: unknown llm_provider %q", ErrConfiguration, s.LLMProvider)
	}
	return nil
}

// TrackerSettings configures the issue tracker connection.
type TrackerSettings struct {
	// URL is the tracker base URL.
	URL string `toml:"url"`

	// Username is the account email or login.
	Username string `toml:"username"`

	// TokenEnv names the environment variable holding the API token.
	TokenEnv string `toml:"token_env"`
}

// ApplyDefaults fills zero values.
func (s *TrackerSettings) ApplyDefaults() {
	if s.TokenEnv == "" {
		s.TokenEnv = "JIRA_API_TOKEN"
	}
}

// IsConfigured reports whether the tracker can be reached at all.
func (s *TrackerSettings) IsConfigured() bool {
	return s.URL != "" && s.Username != ""
}

// WikiSettings configures the documentation wiki connection.
type WikiSettings struct {
	// URL is the wiki base URL.
	URL string `toml:"url"`

	// Username is the account email or login.
	Username string `toml:"username"`

	// TokenEnv names the environment variable holding the API token.
	TokenEnv string `toml:"token_env"`

	// Spaces restricts searches to these space keys. Empty means all.
	Spaces []string `toml:"spaces"`

	// IncidentSpace is where incident pages are created.
	IncidentSpace string `toml:"incident_space"`
}

// ApplyDefaults fills zero values.
func (s *WikiSettings) ApplyDefaults() {
	if s.TokenEnv == "" {
		s.TokenEnv = "CONFLUENCE_API_TOKEN"
	}
}

// IsConfigured reports whether the wiki can be reached at all.
func (s *WikiSettings) IsConfigured() bool {
	return s.URL != "" && s.Username != ""
}

// RoutingSettings configures the intent classifier's keyword fallback.
// Defaults live in the classifier; entries here extend them.
type RoutingSettings struct {
	// IssueWords route to the issues handler.
	IssueWords []string `toml:"issue_words"`

	// DocWords route to the documentation handler.
	DocWords []string `toml:"doc_words"`

	// IncidentWords start the guided incident capture.
	IncidentWords []string `toml:"incident_words"`
}

// DateSettings extends the built-in date phrasing rules.
type DateSettings struct {
	// RelativeDays maps extra relative words to day offsets.
	RelativeDays map[string]int `toml:"relative_days"`
}

// Rules merges the defaults with the configured extensions.
func (s *DateSettings) Rules() DateRules {
	rules := DefaultDateRules()
	for word, offset := range s.RelativeDays {
		rules.RelativeDays[word] = offset
	}
	return rules
}

// Settings is the root configuration.
type Settings struct {
	Index   IndexSettings   `toml:"index"`
	AI      AISettings      `toml:"ai"`
	Tracker TrackerSettings `toml:"tracker"`
	Wiki    WikiSettings    `toml:"wiki"`
	Routing RoutingSettings `toml:"routing"`
	Dates   DateSettings    `toml:"dates"`
}

// ApplyDefaults fills zero values on all sections.
func (s *Settings) ApplyDefaults() {
	s.Index.ApplyDefaults()
	s.AI.ApplyDefaults()
	s.Tracker.ApplyDefaults()
	s.Wiki.ApplyDefaults()
}

// Validate checks all sections. Failures are fatal at startup.
func (s *Settings) Validate() error {
	if err := s.Index.Validate(); err != nil {
		return err
	}
	return s.AI.Validate()
}

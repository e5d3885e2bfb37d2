// Command atlas is the conversational assistant binary.
package main

import (
	"fmt"
	"os"

	"github.com/psimdev/atlas-assistant/internal/adapters/driven/ai"
	"github.com/psimdev/atlas-assistant/internal/adapters/driven/config/file"
	"github.com/psimdev/atlas-assistant/internal/adapters/driven/knowledge/filesystem"
	"github.com/psimdev/atlas-assistant/internal/adapters/driven/storage/memory"
	"github.com/psimdev/atlas-assistant/internal/adapters/driven/storage/sqlite"
	"github.com/psimdev/atlas-assistant/internal/adapters/driven/tracker/jira"
	"github.com/psimdev/atlas-assistant/internal/adapters/driven/wiki/confluence"
	"github.com/psimdev/atlas-assistant/internal/adapters/driving/cli"
	"github.com/psimdev/atlas-assistant/internal/core/domain"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driven"
	"github.com/psimdev/atlas-assistant/internal/core/services"
	"github.com/psimdev/atlas-assistant/internal/logger"
	"github.com/psimdev/atlas-assistant/internal/postprocessors/chunker"
)

// version is injected at build time via ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "atlas: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("config store: %w", err)
	}

	settings, err := configStore.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	store := openIndexStore(settings.Index.DataDir)
	defer store.Close()

	embedder, err := ai.CreateEmbeddingService(&settings.AI)
	if err != nil {
		logger.Warn("Embedding provider unavailable, using the built-in embedder: %v", err)
		fallback := domain.AISettings{EmbeddingProvider: domain.AIProviderLocal}
		embedder, _ = ai.CreateEmbeddingService(&fallback)
	}
	defer embedder.Close()

	llm, err := ai.CreateLLMService(&settings.AI)
	if err != nil {
		logger.Warn("LLM provider unavailable, falling back to keyword routing: %v", err)
		llm = nil
	}
	if llm != nil {
		defer llm.Close()
	}

	source := filesystem.NewSource(settings.Index.KnowledgeDir)
	defer source.Close()

	splitter := chunker.New(
		chunker.WithChunkSize(settings.Index.ChunkSize),
		chunker.WithOverlap(settings.Index.ChunkOverlap),
	)

	indexer := services.NewIndexerService(source, store, embedder, splitter, settings.Index.BuildTimeout)
	retriever := services.NewRetrieverService(store, embedder)

	var tracker driven.IssueTracker
	if settings.Tracker.IsConfigured() {
		client, err := jira.NewClient(jira.Config{
			BaseURL:  settings.Tracker.URL,
			Username: settings.Tracker.Username,
			Token:    os.Getenv(settings.Tracker.TokenEnv),
		})
		if err != nil {
			logger.Warn("Tracker unavailable: %v", err)
		} else {
			tracker = client
			defer client.Close()
		}
	}

	var wiki driven.WikiService
	if settings.Wiki.IsConfigured() {
		client, err := confluence.NewClient(confluence.Config{
			BaseURL:  settings.Wiki.URL,
			Username: settings.Wiki.Username,
			Token:    os.Getenv(settings.Wiki.TokenEnv),
		})
		if err != nil {
			logger.Warn("Wiki unavailable: %v", err)
		} else {
			wiki = client
			defer client.Close()
		}
	}

	handlers := []services.Handler{
		services.NewIssuesHandler(tracker, retriever, llm, settings.Index.TopK),
		services.NewDocsHandler(wiki, retriever, llm, settings.Wiki.Spaces, settings.Index.TopK),
		services.NewIncidentHandler(wiki, settings.Wiki.IncidentSpace),
	}

	classifier := services.NewClassifier(llm, settings.Routing)
	assistant := services.NewAssistantService(classifier, indexer, handlers,
		services.WithKnowledgeSource(source),
		services.WithDateRules(settings.Dates.Rules()),
	)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Assistant:   assistant,
		Indexer:     indexer,
		Retriever:   retriever,
		ConfigStore: configStore,
		IndexStore:  store,
	})

	return cli.Execute()
}

// openIndexStore opens the persistent snapshot store, degrading to an
// in-memory snapshot when the data directory is unusable. A storage fault
// costs persistence across runs, never the session.
func openIndexStore(dataDir string) driven.IndexStore {
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		logger.Warn("Index storage unavailable, keeping the snapshot in memory: %v", err)
		return memory.NewStore()
	}
	return store
}

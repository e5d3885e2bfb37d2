// Package ai provides factory functions for creating AI service adapters
// from settings.
package ai

import (
	"fmt"
	"os"

	localembed "github.com/psimdev/atlas-assistant/internal/adapters/driven/embedding/local"
	ollamaembed "github.com/psimdev/atlas-assistant/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/psimdev/atlas-assistant/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/psimdev/atlas-assistant/internal/adapters/driven/llm/ollama"
	openaillm "github.com/psimdev/atlas-assistant/internal/adapters/driven/llm/openai"
	"github.com/psimdev/atlas-assistant/internal/core/domain"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driven"
)

// CreateEmbeddingService creates the embedding service the settings select.
// The local provider always succeeds and needs no external service.
func CreateEmbeddingService(settings *domain.AISettings) (driven.EmbeddingService, error) {
	switch settings.EmbeddingProvider {
	case domain.AIProviderLocal, "":
		return localembed.NewEmbeddingService(0), nil

	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: settings.EmbeddingBaseURL,
			Model:   settings.EmbeddingModel,
		}), nil

	case domain.AIProviderOpenAI:
		key, err := apiKey(settings)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
		}
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  key,
			BaseURL: settings.EmbeddingBaseURL,
			Model:   settings.EmbeddingModel,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q",
			domain.ErrConfiguration, settings.EmbeddingProvider)
	}
}

// CreateLLMService creates the language model service the settings select.
// Returns nil when no LLM provider is configured; the assistant then runs
// with keyword classification and structured replies only.
func CreateLLMService(settings *domain.AISettings) (driven.LLMService, error) {
	switch settings.LLMProvider {
	case "":
		return nil, nil

	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.Config{
			BaseURL: settings.LLMBaseURL,
			Model:   settings.LLMModel,
		}), nil

	case domain.AIProviderOpenAI:
		key, err := apiKey(settings)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
		}
		svc, err := openaillm.NewLLMService(openaillm.Config{
			APIKey:  key,
			BaseURL: settings.LLMBaseURL,
			Model:   settings.LLMModel,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q",
			domain.ErrConfiguration, settings.LLMProvider)
	}
}

func apiKey(settings *domain.AISettings) (string, error) {
	key := os.Getenv(settings.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("environment variable %s is not set", settings.APIKeyEnv)
	}
	return key, nil
}

package factory

import (
	"fmt"

	"chatgpt-clone-be/pkg/llm"
	"chatgpt-clone-be/pkg/llm/ollama"
	"chatgpt-clone-be/pkg/llm/openai"
	"chatgpt-clone-be/pkg/llm/openrouter"
)

// NewGateway builds a configured gateway for the given provider config.
// Provider switches produce a new gateway; nothing here is shared or mutable.
func NewGateway(cfg llm.Config) (*llm.Gateway, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	return llm.NewGateway(cfg, provider), nil
}

func newProvider(cfg llm.Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case llm.ProviderOpenRouter:
		return openrouter.NewOpenRouterProvider(cfg.OpenRouterAPIKey, cfg.Model), nil
	case llm.ProviderOpenAI:
		return openai.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.Model), nil
	case llm.ProviderOllama:
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

package openrouter

import (
	"chatgpt-clone-be/pkg/llm"
	"chatgpt-clone-be/pkg/llm/openai"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

// NewOpenRouterProvider returns a provider for OpenRouter, which exposes an
// OpenAI-compatible chat-completions API.
func NewOpenRouterProvider(apiKey, modelName string) llm.LLMProvider {
	return openai.NewProviderWithBaseURL(DefaultBaseURL, apiKey, modelName)
}

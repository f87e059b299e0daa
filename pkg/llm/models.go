package llm

const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderOllama     = "ollama"
)

// ModelInfo describes a selectable model.
type ModelInfo struct {
	Id            string
	Name          string
	Provider      string
	Description   string
	ContextLength int
}

// AvailableModels is the registry of known model ids per provider. Switching
// to a model id outside this table is rejected.
var AvailableModels = map[string][]ModelInfo{
	ProviderOpenRouter: {
		{Id: "anthropic/claude-3.5-sonnet", Name: "Claude 3.5 Sonnet", Provider: ProviderOpenRouter, Description: "Anthropic's most powerful model with excellent reasoning", ContextLength: 200000},
		{Id: "meta-llama/llama-3.1-405b-instruct", Name: "Llama 3.1 405B Instruct", Provider: ProviderOpenRouter, Description: "Meta's largest and most capable open source model", ContextLength: 128000},
		{Id: "meta-llama/llama-3.1-70b-instruct", Name: "Llama 3.1 70B Instruct", Provider: ProviderOpenRouter, Description: "High-performance open source model", ContextLength: 128000},
		{Id: "google/gemini-pro-1.5", Name: "Gemini Pro 1.5", Provider: ProviderOpenRouter, Description: "Google's advanced multimodal model", ContextLength: 1000000},
		{Id: "mistralai/mistral-large", Name: "Mistral Large", Provider: ProviderOpenRouter, Description: "Mistral's flagship model for complex tasks", ContextLength: 128000},
	},
	ProviderOpenAI: {
		{Id: "gpt-4o", Name: "GPT-4o", Provider: ProviderOpenAI, Description: "OpenAI's most advanced model", ContextLength: 128000},
		{Id: "gpt-4o-mini", Name: "GPT-4o Mini", Provider: ProviderOpenAI, Description: "Fast and cost-effective model", ContextLength: 128000},
		{Id: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", Provider: ProviderOpenAI, Description: "Reliable and fast general-purpose model", ContextLength: 16385},
	},
	ProviderOllama: {
		{Id: "llama3", Name: "Llama 3", Provider: ProviderOllama, Description: "Locally hosted Llama 3", ContextLength: 8192},
		{Id: "qwen2.5", Name: "Qwen 2.5", Provider: ProviderOllama, Description: "Locally hosted Qwen 2.5", ContextLength: 32768},
	},
}

// FindModel looks a model id up across all providers.
func FindModel(id string) (ModelInfo, bool) {
	for _, models := range AvailableModels {
		for _, m := range models {
			if m.Id == id {
				return m, true
			}
		}
	}
	return ModelInfo{}, false
}

// ModelsForProvider returns the registry entries for one provider.
func ModelsForProvider(provider string) []ModelInfo {
	return AvailableModels[provider]
}

// AllModels flattens the registry in a stable provider order.
func AllModels() []ModelInfo {
	var out []ModelInfo
	for _, p := range []string{ProviderOpenRouter, ProviderOpenAI, ProviderOllama} {
		out = append(out, AvailableModels[p]...)
	}
	return out
}

// Config is an explicit, immutable provider configuration. Switching provider
// or model builds a new Config (and a new Gateway) instead of mutating shared
// state, so concurrent requests never observe a half-applied switch.
type Config struct {
	Provider string
	Model    string

	OpenRouterAPIKey string
	OpenAIAPIKey     string
	OllamaBaseURL    string
}

// Validate reports whether the configured provider has the credentials it
// needs. It does not open any connection.
func (c Config) Validate() (bool, string) {
	switch c.Provider {
	case ProviderOpenRouter:
		if c.OpenRouterAPIKey == "" {
			return false, "OPENROUTER_API_KEY not found"
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return false, "OPENAI_API_KEY not found"
		}
	case ProviderOllama:
		if c.OllamaBaseURL == "" {
			return false, "OLLAMA_BASE_URL not found"
		}
	default:
		return false, "unsupported LLM provider: " + c.Provider
	}
	return true, ""
}

package dto

type LLMSettingsResponse struct {
	Settings        LLMSettingsDTO  `json:"settings"`
	AvailableModels []LLMModelDTO   `json:"available_models"`
	AllModels       []LLMModelDTO   `json:"all_models"`
	Validation      LLMValidationDTO `json:"validation"`
}

type LLMSettingsDTO struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type LLMModelDTO struct {
	Id            string `json:"id"`
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	Description   string `json:"description,omitempty"`
	ContextLength int    `json:"context_length,omitempty"`
}

type LLMValidationDTO struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

type UpdateLLMSettingsRequest struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

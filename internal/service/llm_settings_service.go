package service

import (
	"context"
	"sync"
	"time"

	"chatgpt-clone-be/internal/apperror"
	"chatgpt-clone-be/internal/dto"
	"chatgpt-clone-be/internal/pkg/logger"
	"chatgpt-clone-be/pkg/llm"
	"chatgpt-clone-be/pkg/llm/factory"

	"github.com/patrickmn/go-cache"
)

// ILLMSettingsService owns the active provider configuration. A switch builds
// a whole new gateway and swaps it atomically; in-flight turns keep the
// gateway they started with, so a concurrent switch never mutates a running
// stream's configuration.
type ILLMSettingsService interface {
	Gateway() *llm.Gateway
	GetSettings(ctx context.Context) (*dto.LLMSettingsResponse, error)
	UpdateSettings(ctx context.Context, req *dto.UpdateLLMSettingsRequest) (*dto.LLMSettingsResponse, error)
}

type llmSettingsService struct {
	mu      sync.RWMutex
	gateway *llm.Gateway

	// Switch attempts validate candidate configs; results are memoized
	// briefly so a UI polling the settings endpoint doesn't recompute them.
	validations *cache.Cache
	logger      logger.ILogger
}

func NewLLMSettingsService(cfg llm.Config, log logger.ILogger) (ILLMSettingsService, error) {
	gateway, err := factory.NewGateway(cfg)
	if err != nil {
		return nil, err
	}
	return &llmSettingsService{
		gateway:     gateway,
		validations: cache.New(1*time.Minute, 5*time.Minute),
		logger:      log,
	}, nil
}

func (s *llmSettingsService) Gateway() *llm.Gateway {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gateway
}

func (s *llmSettingsService) GetSettings(ctx context.Context) (*dto.LLMSettingsResponse, error) {
	cfg := s.Gateway().Config()
	return s.buildResponse(cfg), nil
}

func (s *llmSettingsService) UpdateSettings(ctx context.Context, req *dto.UpdateLLMSettingsRequest) (*dto.LLMSettingsResponse, error) {
	current := s.Gateway().Config()
	candidate := current

	if req.Model != "" {
		info, ok := llm.FindModel(req.Model)
		if !ok {
			return nil, apperror.InvalidArgument("unknown model id: " + req.Model)
		}
		candidate.Provider = info.Provider
		candidate.Model = info.Id
	} else if req.Provider != "" {
		models := llm.ModelsForProvider(req.Provider)
		if len(models) == 0 {
			return nil, apperror.InvalidArgument("unsupported LLM provider: " + req.Provider)
		}
		candidate.Provider = req.Provider
		candidate.Model = models[0].Id
	}

	if valid, reason := s.validateCached(candidate); !valid {
		return nil, apperror.InvalidArgument("provider validation failed: " + reason)
	}

	gateway, err := factory.NewGateway(candidate)
	if err != nil {
		return nil, apperror.InvalidArgument(err.Error())
	}

	s.mu.Lock()
	s.gateway = gateway
	s.mu.Unlock()

	s.logger.Info("LLMSettings", "Provider configuration switched", map[string]interface{}{
		"provider": candidate.Provider,
		"model":    candidate.Model,
	})

	return s.buildResponse(candidate), nil
}

func (s *llmSettingsService) buildResponse(cfg llm.Config) *dto.LLMSettingsResponse {
	valid, reason := s.validateCached(cfg)

	return &dto.LLMSettingsResponse{
		Settings: dto.LLMSettingsDTO{
			Provider: cfg.Provider,
			Model:    cfg.Model,
		},
		AvailableModels: toModelDTOs(llm.ModelsForProvider(cfg.Provider)),
		AllModels:       toModelDTOs(llm.AllModels()),
		Validation: dto.LLMValidationDTO{
			Valid: valid,
			Error: reason,
		},
	}
}

func (s *llmSettingsService) validateCached(cfg llm.Config) (bool, string) {
	key := cfg.Provider + "/" + cfg.Model
	if v, found := s.validations.Get(key); found {
		cached := v.(dto.LLMValidationDTO)
		return cached.Valid, cached.Error
	}
	valid, reason := cfg.Validate()
	s.validations.Set(key, dto.LLMValidationDTO{Valid: valid, Error: reason}, cache.DefaultExpiration)
	return valid, reason
}

func toModelDTOs(models []llm.ModelInfo) []dto.LLMModelDTO {
	out := make([]dto.LLMModelDTO, 0, len(models))
	for _, m := range models {
		out = append(out, dto.LLMModelDTO{
			Id:            m.Id,
			Name:          m.Name,
			Provider:      m.Provider,
			Description:   m.Description,
			ContextLength: m.ContextLength,
		})
	}
	return out
}

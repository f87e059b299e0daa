package controller

import (
	"chatgpt-clone-be/internal/apperror"
	"chatgpt-clone-be/internal/dto"
	"chatgpt-clone-be/internal/pkg/serverutils"
	"chatgpt-clone-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ILLMSettingsController interface {
	RegisterRoutes(r fiber.Router)
	GetSettings(ctx *fiber.Ctx) error
	UpdateSettings(ctx *fiber.Ctx) error
}

type llmSettingsController struct {
	llmSettingsService service.ILLMSettingsService
}

func NewLLMSettingsController(llmSettingsService service.ILLMSettingsService) ILLMSettingsController {
	return &llmSettingsController{
		llmSettingsService: llmSettingsService,
	}
}

func (c *llmSettingsController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/llm/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("settings", c.GetSettings)
	h.Put("settings", c.UpdateSettings)
}

func (c *llmSettingsController) GetSettings(ctx *fiber.Ctx) error {
	res, err := c.llmSettingsService.GetSettings(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get llm settings", res))
}

func (c *llmSettingsController) UpdateSettings(ctx *fiber.Ctx) error {
	var req dto.UpdateLLMSettingsRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}

	if req.Provider == "" && req.Model == "" {
		return apperror.InvalidArgument("provider or model is required")
	}

	res, err := c.llmSettingsService.UpdateSettings(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update llm settings", res))
}

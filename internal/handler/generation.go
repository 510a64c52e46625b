package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/adforge/api/internal/model"
	"github.com/adforge/api/internal/service"
	"github.com/adforge/api/pkg/response"
)

type GenerationHandler struct {
	service   *service.GenerationService
	validator *validator.Validate
}

func NewGenerationHandler(svc *service.GenerationService, v *validator.Validate) *GenerationHandler {
	return &GenerationHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /api/generate
func (h *GenerationHandler) Generate(c *fiber.Ctx) error {
	var req model.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if !req.Stream.IsValid() {
		return response.ValidationError(c, "Unknown stream", fiber.Map{"stream": req.Stream})
	}

	result, err := h.service.StartGeneration(c.Context(), &req)
	if err != nil {
		return engineError(c, err)
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/generate/status/:jobId
func (h *GenerationHandler) Status(c *fiber.Ctx) error {
	status, err := h.service.GetStatus(c.Context(), c.Params("jobId"))
	if err != nil {
		return engineError(c, err)
	}

	return response.OK(c, status)
}

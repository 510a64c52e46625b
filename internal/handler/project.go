package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/adforge/api/internal/engine"
	"github.com/adforge/api/internal/model"
	"github.com/adforge/api/pkg/response"
)

type ProjectHandler struct {
	engine    *engine.Engine
	validator *validator.Validate
}

func NewProjectHandler(eng *engine.Engine, v *validator.Validate) *ProjectHandler {
	return &ProjectHandler{
		engine:    eng,
		validator: v,
	}
}

// Create handles POST /api/projects
func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	var req model.CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	project, err := h.engine.CreateProject(c.Context(), req.Brief)
	if err != nil {
		return engineError(c, err)
	}

	return response.Created(c, project)
}

// Get handles GET /api/projects/:projectId
func (h *ProjectHandler) Get(c *fiber.Ctx) error {
	project, err := h.engine.GetProject(c.Context(), c.Params("projectId"))
	if err != nil {
		return engineError(c, err)
	}

	return response.OK(c, project)
}

// Timeline handles GET /api/projects/:projectId/timeline
func (h *ProjectHandler) Timeline(c *fiber.Ctx) error {
	timeline, err := h.engine.ComposeTimeline(c.Context(), c.Params("projectId"))
	if err != nil {
		return engineError(c, err)
	}

	return response.OK(c, timeline)
}

// History handles GET /api/projects/:projectId/:stream/versions
func (h *ProjectHandler) History(c *fiber.Ctx) error {
	stream, ok := parseStream(c)
	if !ok {
		return response.ValidationError(c, "Unknown stream", fiber.Map{"stream": c.Params("stream")})
	}

	history, err := h.engine.StreamHistory(c.Context(), c.Params("projectId"), stream)
	if err != nil {
		return engineError(c, err)
	}

	return response.OK(c, history)
}

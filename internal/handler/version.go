package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/adforge/api/internal/engine"
	"github.com/adforge/api/internal/model"
	"github.com/adforge/api/pkg/response"
)

type VersionHandler struct {
	engine    *engine.Engine
	validator *validator.Validate
}

func NewVersionHandler(eng *engine.Engine, v *validator.Validate) *VersionHandler {
	return &VersionHandler{
		engine:    eng,
		validator: v,
	}
}

// Get handles GET /api/projects/:projectId/:stream/versions/:versionId
func (h *VersionHandler) Get(c *fiber.Ctx) error {
	version, err := h.engine.GetVersion(c.Context(), c.Params("projectId"), c.Params("versionId"))
	if err != nil {
		return engineError(c, err)
	}

	return response.OK(c, version)
}

// Freeze handles POST /api/projects/:projectId/:stream/versions/:versionId/freeze
func (h *VersionHandler) Freeze(c *fiber.Ctx) error {
	stream, ok := parseStream(c)
	if !ok {
		return response.ValidationError(c, "Unknown stream", fiber.Map{"stream": c.Params("stream")})
	}

	var req model.FreezeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body", nil)
		}
	}

	spawnChild := true
	if req.SpawnChild != nil {
		spawnChild = *req.SpawnChild
	}

	frozen, child, err := h.engine.Freeze(c.Context(), c.Params("projectId"), stream, c.Params("versionId"), spawnChild)
	if err != nil {
		return engineError(c, err)
	}

	return response.OK(c, fiber.Map{
		"frozen": frozen,
		"child":  child,
	})
}

// Activate handles POST /api/projects/:projectId/:stream/versions/:versionId/activate
func (h *VersionHandler) Activate(c *fiber.Ctx) error {
	stream, ok := parseStream(c)
	if !ok {
		return response.ValidationError(c, "Unknown stream", fiber.Map{"stream": c.Params("stream")})
	}

	project, timeline, err := h.engine.Activate(c.Context(), c.Params("projectId"), stream, c.Params("versionId"))
	if err != nil {
		return engineError(c, err)
	}

	return response.OK(c, model.ActivateResponse{
		Project:  project,
		Timeline: timeline,
	})
}

// Iterate handles POST /api/projects/:projectId/:stream/versions/:versionId/iterate
func (h *VersionHandler) Iterate(c *fiber.Ctx) error {
	stream, ok := parseStream(c)
	if !ok {
		return response.ValidationError(c, "Unknown stream", fiber.Map{"stream": c.Params("stream")})
	}

	var req model.IterateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	draft, err := h.engine.Iterate(c.Context(), c.Params("projectId"), stream, c.Params("versionId"), req.ChangeRequest)
	if err != nil {
		return engineError(c, err)
	}

	return response.Created(c, draft)
}

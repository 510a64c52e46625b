package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/adforge/api/internal/engine"
	"github.com/adforge/api/internal/model"
	"github.com/adforge/api/pkg/response"
)

type DraftHandler struct {
	engine    *engine.Engine
	validator *validator.Validate
}

func NewDraftHandler(eng *engine.Engine, v *validator.Validate) *DraftHandler {
	return &DraftHandler{
		engine:    eng,
		validator: v,
	}
}

// Create handles POST /api/projects/:projectId/:stream/drafts
func (h *DraftHandler) Create(c *fiber.Ctx) error {
	stream, ok := parseStream(c)
	if !ok {
		return response.ValidationError(c, "Unknown stream", fiber.Map{"stream": c.Params("stream")})
	}

	var req model.CreateDraftRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body", nil)
		}
	}

	draft, err := h.engine.CreateDraft(c.Context(), c.Params("projectId"), stream, req, model.CreatorUser)
	if err != nil {
		return engineError(c, err)
	}

	return response.Created(c, draft)
}

// Update handles PATCH /api/projects/:projectId/:stream/drafts/:versionId
func (h *DraftHandler) Update(c *fiber.Ctx) error {
	stream, ok := parseStream(c)
	if !ok {
		return response.ValidationError(c, "Unknown stream", fiber.Map{"stream": c.Params("stream")})
	}

	var req model.UpdateDraftRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	draft, err := h.engine.UpdateDraft(c.Context(), c.Params("projectId"), stream, c.Params("versionId"), req.Patch)
	if err != nil {
		return engineError(c, err)
	}

	return response.OK(c, draft)
}

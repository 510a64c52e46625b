package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/adforge/api/internal/model"
	"github.com/adforge/api/pkg/response"
)

// engineError maps the engine's typed errors to response codes. Anything
// untyped falls through as a 500.
func engineError(c *fiber.Ctx, err error) error {
	var nf *model.NotFoundError
	if errors.As(err, &nf) {
		return response.NotFound(c, nf.Error())
	}
	var de *model.DraftExistsError
	if errors.As(err, &de) {
		return response.Conflict(c, response.CodeDraftExists, de.Error(), fiber.Map{
			"draftId": de.DraftID,
		})
	}
	var nd *model.NotDraftError
	if errors.As(err, &nd) {
		return response.Conflict(c, response.CodeNotDraft, nd.Error(), nil)
	}
	var nfr *model.NotFrozenError
	if errors.As(err, &nfr) {
		return response.Conflict(c, response.CodeNotFrozen, nfr.Error(), nil)
	}
	var ic *model.IncompleteContentError
	if errors.As(err, &ic) {
		return response.Conflict(c, response.CodeIncompleteContent, ic.Error(), fiber.Map{
			"missing": ic.Missing,
		})
	}
	var ua *model.UnresolvedAnchorError
	if errors.As(err, &ua) {
		return response.Error(c, fiber.StatusUnprocessableEntity, response.CodeUnresolvedAnchor, ua.Error(), fiber.Map{
			"trackId": ua.TrackID,
			"anchor":  ua.Anchor,
		})
	}
	var conflict *model.ConflictError
	if errors.As(err, &conflict) {
		return response.Conflict(c, response.CodeConflict, conflict.Error(), nil)
	}
	var pf *model.ProviderFailureError
	if errors.As(err, &pf) {
		return response.AIError(c, pf.Error())
	}
	return response.ServiceError(c, err.Error())
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}

// parseStream validates the :stream path parameter.
func parseStream(c *fiber.Ctx) (model.Stream, bool) {
	s := model.Stream(c.Params("stream"))
	return s, s.IsValid()
}

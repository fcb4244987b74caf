package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/insightdelivered/bookkeeper/internal/ledger"
	"github.com/insightdelivered/bookkeeper/internal/logger"
	"github.com/insightdelivered/bookkeeper/internal/reconcile"
	"github.com/insightdelivered/bookkeeper/internal/statements"
	"github.com/insightdelivered/bookkeeper/internal/store"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, reconcile.ErrNotEligible):
		return fiber.StatusConflict
	case errors.Is(err, statements.ErrExtraction):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, store.ErrInvalid),
		errors.Is(err, statements.ErrInvalidInput),
		errors.Is(err, reconcile.ErrInvalidType),
		errors.Is(err, reconcile.ErrInvalidCategory),
		errors.Is(err, ledger.ErrInvalidFilter):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *Handler) handleError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	msg := err.Error()
	if status >= fiber.StatusInternalServerError {
		log := logger.FromContext(c.UserContext())
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		msg = "internal server error"
	}
	return c.Status(status).JSON(ErrorResponse{Success: false, Error: msg})
}

func badRequest(msg string) error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}

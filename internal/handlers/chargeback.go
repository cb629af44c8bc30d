package handlers

import (
	"errors"
	"time"

	"recoup/internal/services/chargeback"
	"recoup/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type ChargebackHandler struct {
	chargebacks chargeback.Service
}

func NewChargebackHandler(chargebacks chargeback.Service) *ChargebackHandler {
	return &ChargebackHandler{chargebacks: chargebacks}
}

// Sync runs a chargeback import for a date range. With dry_run set it
// reports what would change without mutating anything.
func (h *ChargebackHandler) Sync(c *fiber.Ctx) error {
	var input struct {
		From   string `json:"from"`
		To     string `json:"to"`
		DryRun bool   `json:"dry_run"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	from, err := time.Parse("2006-01-02", input.From)
	if err != nil {
		return response.BadRequest(c, "Invalid from date, expected YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", input.To)
	if err != nil {
		return response.BadRequest(c, "Invalid to date, expected YYYY-MM-DD")
	}

	summary, err := h.chargebacks.Sync(c.Context(), from, to, input.DryRun)
	if err != nil {
		switch {
		case errors.Is(err, chargeback.ErrInvalidRange):
			return response.BadRequest(c, "From date must be before to date")
		case errors.Is(err, chargeback.ErrSyncInProgress):
			return response.Conflict(c, "A sync is already running")
		default:
			return response.ServerError(c, "Sync failed")
		}
	}
	return response.Success(c, "Sync completed", summary)
}

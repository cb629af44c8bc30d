package handlers

import (
	"time"

	"recoup/internal/repositories"
	"recoup/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type CreditHandler struct {
	credits repositories.CreditRepository
}

func NewCreditHandler(credits repositories.CreditRepository) *CreditHandler {
	return &CreditHandler{credits: credits}
}

func (h *CreditHandler) Balance(c *fiber.Ctx) error {
	remaining, err := h.credits.Remaining()
	if err != nil {
		return response.ServerError(c, "Failed to read balance")
	}
	return response.Success(c, "Balance retrieved", fiber.Map{"remaining": remaining})
}

func (h *CreditHandler) TopUp(c *fiber.Ctx) error {
	var input struct {
		Total     int64  `json:"total"`
		ExpiresAt string `json:"expires_at"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if input.Total <= 0 {
		return response.BadRequest(c, "Total must be positive")
	}

	var expiresAt *time.Time
	if input.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, input.ExpiresAt)
		if err != nil {
			return response.BadRequest(c, "Invalid expires_at, expected RFC3339")
		}
		expiresAt = &t
	}

	balance, err := h.credits.AddBalance(input.Total, expiresAt)
	if err != nil {
		return response.ServerError(c, "Failed to add balance")
	}
	return response.Success(c, "Balance added", balance)
}

package handlers

import (
	"strconv"

	"recoup/internal/models"
	"recoup/internal/repositories"
	"recoup/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type BlacklistHandler struct {
	blacklist repositories.BlacklistRepository
}

func NewBlacklistHandler(blacklist repositories.BlacklistRepository) *BlacklistHandler {
	return &BlacklistHandler{blacklist: blacklist}
}

func (h *BlacklistHandler) Create(c *fiber.Ctx) error {
	var input struct {
		AccountNumber string `json:"account_number"`
		RoutingCode   string `json:"routing_code"`
		MatchType     string `json:"match_type"`
		Reason        string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if input.AccountNumber == "" && input.RoutingCode == "" {
		return response.BadRequest(c, "Account number or routing code is required")
	}

	matchType := input.MatchType
	switch matchType {
	case "":
		matchType = models.RoutingMatchExact
	case models.RoutingMatchExact, models.RoutingMatchPrefix:
	default:
		return response.BadRequest(c, "Match type must be exact or prefix")
	}

	entry := &models.BlacklistEntry{
		RoutingCode: input.RoutingCode,
		MatchType:   matchType,
		Reason:      input.Reason,
		Source:      models.BlacklistSourceManual,
	}
	// Raw account numbers are never stored; only the hash.
	if input.AccountNumber != "" {
		entry.AccountHash = models.HashAccountNumber(input.AccountNumber)
	}

	if err := h.blacklist.Create(entry); err != nil {
		return response.ServerError(c, "Failed to create entry")
	}
	return response.Success(c, "Entry created", entry)
}

func (h *BlacklistHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	entries, err := h.blacklist.List(limit, offset)
	if err != nil {
		return response.ServerError(c, "Failed to list entries")
	}
	return response.Success(c, "Entries retrieved", entries)
}

func (h *BlacklistHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid entry ID")
	}
	if err := h.blacklist.Delete(uint(id)); err != nil {
		return response.ServerError(c, "Failed to delete entry")
	}
	return response.Success(c, "Entry deleted", nil)
}

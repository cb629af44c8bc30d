package handlers

import (
	"errors"
	"log"
	"strings"

	"recoup/internal/services/webhookingest"
	"recoup/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// WebhookHandler receives gateway callbacks. Authentication happens before
// any business logic and the acknowledgment stays cheap: the heavy work
// runs on a queue worker.
type WebhookHandler struct {
	ingest       webhookingest.Service
	maxBodyBytes int
}

func NewWebhookHandler(ingest webhookingest.Service, maxBodyBytes int) *WebhookHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 64 * 1024
	}
	return &WebhookHandler{ingest: ingest, maxBodyBytes: maxBodyBytes}
}

type webhookPayload struct {
	Provider      string                 `json:"provider"`
	CorrelationID string                 `json:"correlation_id"`
	EventType     string                 `json:"event_type"`
	Status        string                 `json:"status"`
	Code          string                 `json:"code"`
	Message       string                 `json:"message"`
	Digest        string                 `json:"digest"`
	Extra         map[string]interface{} `json:"extra"`
}

// Receive handles POST /webhooks/payment/:token.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	if !h.ingest.VerifyToken(c.Params("token")) {
		// Rejected before any parsing or persistence.
		return response.Unauthorized(c)
	}
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		return response.Error(c, fiber.StatusUnsupportedMediaType, "Expected application/json")
	}
	if len(c.Body()) > h.maxBodyBytes {
		return response.Error(c, fiber.StatusRequestEntityTooLarge, "Payload too large")
	}

	var payload webhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return response.BadRequest(c, "Malformed payload")
	}

	digest := payload.Digest
	if digest == "" {
		digest = c.Get("X-Callback-Digest")
	}

	body := map[string]interface{}{
		"status":  payload.Status,
		"code":    payload.Code,
		"message": payload.Message,
	}
	for k, v := range payload.Extra {
		body[k] = v
	}

	event, err := h.ingest.Ingest(c.Context(), webhookingest.Delivery{
		Provider:      payload.Provider,
		CorrelationID: payload.CorrelationID,
		EventType:     payload.EventType,
		Status:        payload.Status,
		Code:          payload.Code,
		Message:       payload.Message,
		Digest:        digest,
		SourceIP:      c.IP(),
		Payload:       body,
	})
	if err != nil {
		switch {
		case errors.Is(err, webhookingest.ErrDuplicate):
			// Acknowledged so the gateway stops redelivering; nothing was
			// mutated.
			return c.JSON(fiber.Map{"status": "duplicate"})
		case errors.Is(err, webhookingest.ErrInvalidDigest):
			return response.Unauthorized(c)
		case errors.Is(err, webhookingest.ErrMalformedEvent):
			return response.BadRequest(c, "Malformed payload")
		default:
			log.Printf("[webhook] ingest failed: %v", err)
			return response.ServerError(c, "Failed to accept event")
		}
	}

	return c.JSON(fiber.Map{"status": "accepted", "event_id": event.ID})
}

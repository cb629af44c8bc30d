// Package webhookingest accepts asynchronous gateway callbacks,
// deduplicates them, and defers the attempt mutation to a queue worker so
// the HTTP acknowledgment stays cheap.
package webhookingest

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"time"

	"recoup/internal/gateway"
	"recoup/internal/models"
	"recoup/internal/repositories"
	"recoup/internal/services/billing"
)

// DedupCache is the fast-path claim store in front of the database unique
// index. The redis cache service implements it.
type DedupCache interface {
	ClaimOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Delivery is one parsed inbound callback.
type Delivery struct {
	Provider      string
	CorrelationID string
	EventType     string
	Status        string
	Code          string
	Message       string
	Digest        string
	SourceIP      string
	Payload       map[string]interface{}
}

// Config tunes ingestion.
type Config struct {
	// Token authenticates the webhook path; compared in constant time.
	Token string
	// SharedSecret verifies the per-callback digest over the correlation
	// id.
	SharedSecret string
	// DedupTTL bounds the fast-path cache claim.
	DedupTTL time.Duration
}

// Enqueuer defers processing to the webhook lane. The job queue implements
// it.
type Enqueuer interface {
	EnqueueWebhook(ctx context.Context, eventID uint) error
}

type Service interface {
	// VerifyToken authenticates the path token in constant time.
	VerifyToken(token string) bool
	// Ingest authenticates, records, and deduplicates a delivery, then
	// queues the state-mutating work. It returns the stored event; a
	// duplicate returns ErrDuplicate and mutates nothing.
	Ingest(ctx context.Context, delivery Delivery) (*models.WebhookEvent, error)
	// Process applies the delivery's outcome to the referenced attempt.
	// It runs on a queue worker, never in the request path.
	Process(ctx context.Context, eventID uint) error
}

type service struct {
	events   repositories.WebhookEventRepository
	attempts repositories.BillingAttemptRepository
	billing  billing.Service
	cache    DedupCache
	queue    Enqueuer
	config   Config
}

func NewService(
	events repositories.WebhookEventRepository,
	attempts repositories.BillingAttemptRepository,
	billingService billing.Service,
	cacheService DedupCache,
	queue Enqueuer,
	config Config,
) Service {
	if events == nil || attempts == nil {
		panic("repositories are required")
	}
	if billingService == nil {
		panic("billing service is required")
	}
	if cacheService == nil {
		panic("cache service is required")
	}
	if config.DedupTTL == 0 {
		config.DedupTTL = 10 * time.Minute
	}
	return &service{
		events:   events,
		attempts: attempts,
		billing:  billingService,
		cache:    cacheService,
		queue:    queue,
		config:   config,
	}
}

func (s *service) VerifyToken(token string) bool {
	if s.config.Token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.config.Token)) == 1
}

func dedupCacheKey(d Delivery) string {
	return "webhook:dedup:" + d.Provider + ":" + d.CorrelationID + ":" + d.EventType
}

func (s *service) Ingest(ctx context.Context, delivery Delivery) (*models.WebhookEvent, error) {
	if delivery.CorrelationID == "" || delivery.EventType == "" {
		return nil, ErrMalformedEvent
	}
	if !gateway.VerifyCallbackDigest(delivery.CorrelationID, delivery.Digest, s.config.SharedSecret) {
		return nil, ErrInvalidDigest
	}

	// Layer 1: short-TTL cache claim. Losing it means a concurrent or
	// recent delivery of the same event already holds the key.
	claimed, err := s.cache.ClaimOnce(ctx, dedupCacheKey(delivery), s.config.DedupTTL)
	if err != nil {
		// The cache being down must not drop deliveries; the unique index
		// below still guards correctness.
		log.Printf("[webhook] dedup cache claim failed: %v", err)
	} else if !claimed {
		s.recordDuplicate(delivery)
		return nil, ErrDuplicate
	}

	event := &models.WebhookEvent{
		Provider:      delivery.Provider,
		CorrelationID: delivery.CorrelationID,
		EventType:     delivery.EventType,
		Payload:       models.JSON(delivery.Payload),
		Status:        models.WebhookStatusReceived,
		SourceIP:      delivery.SourceIP,
		ReceivedAt:    time.Now(),
	}

	// Layer 2: the unique (provider, correlation id, event type) index is
	// the authoritative guard against races between deliveries.
	if err := s.events.Create(event); err != nil {
		if errors.Is(err, repositories.ErrDuplicateWebhookEvent) {
			s.recordDuplicate(delivery)
			return nil, ErrDuplicate
		}
		return nil, err
	}

	event.Status = models.WebhookStatusQueued
	if err := s.events.Update(event); err != nil {
		return nil, err
	}
	if s.queue != nil {
		if err := s.queue.EnqueueWebhook(ctx, event.ID); err != nil {
			// Leave the event queued in the database; reconciliation
			// resolves the attempt if the job never runs.
			log.Printf("[webhook] failed to enqueue event %d: %v", event.ID, err)
		}
	}
	return event, nil
}

// recordDuplicate counts the redelivery on the event that won the dedup
// race. Best effort: the delivery was already acknowledged as a duplicate.
func (s *service) recordDuplicate(delivery Delivery) {
	if err := s.events.IncrementDuplicate(delivery.Provider, delivery.CorrelationID, delivery.EventType); err != nil {
		log.Printf("[webhook] failed to count duplicate delivery %s: %v", delivery.CorrelationID, err)
	}
}

func (s *service) Process(ctx context.Context, eventID uint) error {
	event, err := s.events.GetByID(eventID)
	if err != nil {
		return err
	}
	if event.Status == models.WebhookStatusCompleted {
		return nil
	}

	event.Status = models.WebhookStatusProcessing
	if err := s.events.Update(event); err != nil {
		return err
	}

	if err := s.apply(ctx, event); err != nil {
		if markErr := s.events.MarkFailed(event.ID, err.Error()); markErr != nil {
			log.Printf("[webhook] event %d: failed to record failure: %v", event.ID, markErr)
		}
		// Clear the cache claim so a legitimate retry delivery is not
		// blocked by the failed one.
		if cacheErr := s.cache.Delete(ctx, dedupCacheKey(Delivery{
			Provider:      event.Provider,
			CorrelationID: event.CorrelationID,
			EventType:     event.EventType,
		})); cacheErr != nil {
			log.Printf("[webhook] event %d: failed to clear dedup key: %v", event.ID, cacheErr)
		}
		return err
	}

	return s.events.MarkCompleted(event.ID, time.Now())
}

func (s *service) apply(ctx context.Context, event *models.WebhookEvent) error {
	attempt, err := s.attempts.GetByCorrelationID(event.CorrelationID)
	if err != nil {
		if errors.Is(err, repositories.ErrAttemptNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownAttempt, event.CorrelationID)
		}
		return err
	}

	status, _ := event.Payload["status"].(string)
	code, _ := event.Payload["code"].(string)
	message, _ := event.Payload["message"].(string)
	if status == "" {
		return ErrMalformedEvent
	}

	changed, err := s.billing.ApplyOutcome(ctx, attempt, status, code, message)
	if err != nil {
		return err
	}
	if !changed {
		log.Printf("[webhook] event %d: attempt %d already settled, no-op", event.ID, attempt.ID)
	}
	return nil
}

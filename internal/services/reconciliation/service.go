// Package reconciliation polls the gateway for attempts whose outcome was
// never confirmed by callback.
package reconciliation

import (
	"context"
	"errors"
	"log"
	"time"

	"recoup/internal/gateway"
	"recoup/internal/locks"
	"recoup/internal/models"
	"recoup/internal/repositories"
	"recoup/internal/services/billing"
)

var ErrBulkRunInProgress = errors.New("bulk reconciliation already running")

// Config tunes eligibility and the bulk run.
type Config struct {
	// MinAge keeps freshly created attempts out of reconciliation; their
	// callback is usually still in flight.
	MinAge time.Duration
	// MaxAttempts bounds polls per attempt. Exhausted attempts stay
	// pending and are surfaced for manual review.
	MaxAttempts int
	BulkLimit   int
	LockTTL     time.Duration
}

// Result reports one reconciled attempt.
type Result struct {
	AttemptID uint
	Changed   bool
	Status    string
}

// BulkSummary aggregates a bulk run.
type BulkSummary struct {
	Examined int
	Changed  int
	Deferred int
}

type Service interface {
	// ReconcileAttempt polls the gateway for one pending attempt and
	// applies the outcome with the dispatcher's mapping rules. The
	// reconciliation counter advances on every poll, change or not.
	ReconcileAttempt(ctx context.Context, attempt *models.BillingAttempt) (*Result, error)
	// RunBulk reconciles a bounded batch of eligible attempts across all
	// uploads under a global lock.
	RunBulk(ctx context.Context, limit int) (*BulkSummary, error)
}

type service struct {
	attempts repositories.BillingAttemptRepository
	billing  billing.Service
	gateway  gateway.Client
	locker   *locks.Manager
	config   Config
}

func NewService(
	attempts repositories.BillingAttemptRepository,
	billingService billing.Service,
	gatewayClient gateway.Client,
	locker *locks.Manager,
	config Config,
) Service {
	if attempts == nil {
		panic("attempt repository is required")
	}
	if billingService == nil {
		panic("billing service is required")
	}
	if gatewayClient == nil {
		panic("gateway client is required")
	}
	if locker == nil {
		panic("lock manager is required")
	}
	if config.MinAge == 0 {
		config.MinAge = 2 * time.Hour
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 10
	}
	if config.BulkLimit <= 0 {
		config.BulkLimit = 200
	}
	if config.LockTTL == 0 {
		config.LockTTL = 10 * time.Minute
	}
	return &service{
		attempts: attempts,
		billing:  billingService,
		gateway:  gatewayClient,
		locker:   locker,
		config:   config,
	}
}

func (s *service) ReconcileAttempt(ctx context.Context, attempt *models.BillingAttempt) (*Result, error) {
	if attempt.IsSettled() || attempt.Status != models.AttemptStatusPending {
		// Terminal states are never exited by reconciliation.
		return &Result{AttemptID: attempt.ID, Changed: false, Status: attempt.Status}, nil
	}
	if attempt.CorrelationID == nil {
		return &Result{AttemptID: attempt.ID, Changed: false, Status: attempt.Status}, nil
	}

	resp, err := s.gateway.Reconcile(ctx, *attempt.CorrelationID)
	if err != nil {
		if errors.Is(err, gateway.ErrUnavailable) {
			// Leave the attempt untouched; the next scheduled run retries
			// within the attempt budget.
			return nil, err
		}
		return nil, err
	}

	changed := false
	mapped, mapErr := billing.MapGatewayStatus(resp.Status)
	if mapErr != nil {
		log.Printf("[reconciliation] attempt %d: unmapped gateway status %q", attempt.ID, resp.Status)
	} else if mapped != attempt.Status {
		changed, err = s.billing.ApplyOutcome(ctx, attempt, resp.Status, resp.Code, resp.Message)
		if err != nil {
			return nil, err
		}
	}

	// The counter advances even on a no-op poll so repeated polls exhaust
	// the budget and stop.
	now := time.Now()
	attempt.LastReconciledAt = &now
	attempt.ReconciliationAttempts++
	if err := s.attempts.Update(attempt); err != nil {
		return nil, err
	}

	return &Result{AttemptID: attempt.ID, Changed: changed, Status: attempt.Status}, nil
}

func (s *service) RunBulk(ctx context.Context, limit int) (*BulkSummary, error) {
	if limit <= 0 || limit > s.config.BulkLimit {
		limit = s.config.BulkLimit
	}

	lock, err := s.locker.Acquire(ctx, locks.BulkReconcileKey, s.config.LockTTL)
	if err != nil {
		if errors.Is(err, locks.ErrAlreadyLocked) {
			return nil, ErrBulkRunInProgress
		}
		return nil, err
	}
	defer lock.Release(ctx)

	attempts, err := s.attempts.ListReconcilable(s.config.MinAge, s.config.MaxAttempts, limit)
	if err != nil {
		return nil, err
	}

	summary := &BulkSummary{Examined: len(attempts)}
	for i := range attempts {
		result, err := s.ReconcileAttempt(ctx, &attempts[i])
		if err != nil {
			if errors.Is(err, gateway.ErrUnavailable) {
				summary.Deferred++
				continue
			}
			log.Printf("[reconciliation] attempt %d: %v", attempts[i].ID, err)
			summary.Deferred++
			continue
		}
		if result.Changed {
			summary.Changed++
		}
	}
	return summary, nil
}

package reconciliation

import (
	"context"
	"errors"
	"testing"
	"time"

	"recoup/internal/gateway"
	"recoup/internal/locks"
	"recoup/internal/models"
	"recoup/internal/repositories"
	"recoup/internal/services/billing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAttempts struct {
	updated []uint
}

func (f *fakeAttempts) Create(a *models.BillingAttempt) error { return nil }

func (f *fakeAttempts) Update(a *models.BillingAttempt) error {
	f.updated = append(f.updated, a.ID)
	return nil
}

func (f *fakeAttempts) GetByID(id uint) (*models.BillingAttempt, error) {
	return nil, repositories.ErrAttemptNotFound
}

func (f *fakeAttempts) GetByCorrelationID(correlationID string) (*models.BillingAttempt, error) {
	return nil, repositories.ErrAttemptNotFound
}

func (f *fakeAttempts) GetOpenByDebtor(debtorID uint) (*models.BillingAttempt, error) {
	return nil, repositories.ErrAttemptNotFound
}

func (f *fakeAttempts) GetLatestByDebtor(debtorID uint) (*models.BillingAttempt, error) {
	return nil, repositories.ErrAttemptNotFound
}

func (f *fakeAttempts) NextAttemptNumber(debtorID uint) (int, error) { return 1, nil }

func (f *fakeAttempts) ListReconcilable(minAge time.Duration, maxAttempts, limit int) ([]models.BillingAttempt, error) {
	return nil, nil
}

type fakeBilling struct {
	applied []string
}

func (f *fakeBilling) Dispatch(ctx context.Context, debtorID uint) (*models.BillingAttempt, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBilling) RunUpload(ctx context.Context, uploadID uint) (*billing.RunSummary, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBilling) ApplyOutcome(ctx context.Context, attempt *models.BillingAttempt, gatewayStatus, code, message string) (bool, error) {
	f.applied = append(f.applied, gatewayStatus)
	next, err := billing.MapGatewayStatus(gatewayStatus)
	if err != nil {
		return false, err
	}
	if !attempt.CanTransitionTo(next) {
		return false, nil
	}
	attempt.Status = next
	return true, nil
}

type fakeGateway struct {
	reconcileFn func(correlationID string) (*gateway.ReconcileResponse, error)
	polls       int
}

func (f *fakeGateway) Sale(ctx context.Context, req gateway.SaleRequest) (*gateway.SaleResponse, error) {
	return nil, gateway.ErrUnavailable
}

func (f *fakeGateway) Reconcile(ctx context.Context, correlationID string) (*gateway.ReconcileResponse, error) {
	f.polls++
	return f.reconcileFn(correlationID)
}

func (f *fakeGateway) Chargebacks(ctx context.Context, from, to time.Time, page int) (*gateway.ChargebackPage, error) {
	return nil, gateway.ErrUnavailable
}

func newService(attempts *fakeAttempts, b *fakeBilling, gw *fakeGateway) Service {
	return NewService(attempts, b, gw, &locks.Manager{}, Config{})
}

func pendingAttempt(id uint, correlationID string) *models.BillingAttempt {
	return &models.BillingAttempt{
		ID:            id,
		Status:        models.AttemptStatusPending,
		CorrelationID: &correlationID,
	}
}

func TestReconcileAttempt(t *testing.T) {
	t.Run("settled attempts are never polled", func(t *testing.T) {
		attempts := &fakeAttempts{}
		gw := &fakeGateway{}
		svc := newService(attempts, &fakeBilling{}, gw)

		corr := "corr-1"
		attempt := &models.BillingAttempt{ID: 1, Status: models.AttemptStatusApproved, CorrelationID: &corr}
		result, err := svc.ReconcileAttempt(context.Background(), attempt)
		require.NoError(t, err)
		assert.False(t, result.Changed)
		assert.Equal(t, 0, gw.polls)
		assert.Empty(t, attempts.updated)
	})

	t.Run("attempts without a correlation id are skipped", func(t *testing.T) {
		gw := &fakeGateway{}
		svc := newService(&fakeAttempts{}, &fakeBilling{}, gw)

		attempt := &models.BillingAttempt{ID: 1, Status: models.AttemptStatusPending}
		result, err := svc.ReconcileAttempt(context.Background(), attempt)
		require.NoError(t, err)
		assert.False(t, result.Changed)
		assert.Equal(t, 0, gw.polls)
	})

	t.Run("pending to approved applies the outcome", func(t *testing.T) {
		attempts := &fakeAttempts{}
		b := &fakeBilling{}
		gw := &fakeGateway{reconcileFn: func(correlationID string) (*gateway.ReconcileResponse, error) {
			return &gateway.ReconcileResponse{Status: "approved", Code: "00"}, nil
		}}
		svc := newService(attempts, b, gw)

		attempt := pendingAttempt(1, "corr-1")
		result, err := svc.ReconcileAttempt(context.Background(), attempt)
		require.NoError(t, err)

		assert.True(t, result.Changed)
		assert.Equal(t, models.AttemptStatusApproved, result.Status)
		assert.Equal(t, []string{"approved"}, b.applied)
		assert.Equal(t, 1, attempt.ReconciliationAttempts)
		assert.NotNil(t, attempt.LastReconciledAt)
		assert.Equal(t, []uint{1}, attempts.updated)
	})

	t.Run("still pending advances the poll counter without an outcome", func(t *testing.T) {
		attempts := &fakeAttempts{}
		b := &fakeBilling{}
		gw := &fakeGateway{reconcileFn: func(correlationID string) (*gateway.ReconcileResponse, error) {
			return &gateway.ReconcileResponse{Status: "pending_async"}, nil
		}}
		svc := newService(attempts, b, gw)

		attempt := pendingAttempt(1, "corr-1")
		result, err := svc.ReconcileAttempt(context.Background(), attempt)
		require.NoError(t, err)

		assert.False(t, result.Changed)
		assert.Empty(t, b.applied)
		assert.Equal(t, 1, attempt.ReconciliationAttempts)
	})

	t.Run("unmapped gateway status still burns the poll budget", func(t *testing.T) {
		attempts := &fakeAttempts{}
		gw := &fakeGateway{reconcileFn: func(correlationID string) (*gateway.ReconcileResponse, error) {
			return &gateway.ReconcileResponse{Status: "in_review"}, nil
		}}
		svc := newService(attempts, &fakeBilling{}, gw)

		attempt := pendingAttempt(1, "corr-1")
		result, err := svc.ReconcileAttempt(context.Background(), attempt)
		require.NoError(t, err)
		assert.False(t, result.Changed)
		assert.Equal(t, 1, attempt.ReconciliationAttempts)
	})

	t.Run("gateway outage leaves the attempt untouched", func(t *testing.T) {
		attempts := &fakeAttempts{}
		gw := &fakeGateway{reconcileFn: func(correlationID string) (*gateway.ReconcileResponse, error) {
			return nil, gateway.ErrUnavailable
		}}
		svc := newService(attempts, &fakeBilling{}, gw)

		attempt := pendingAttempt(1, "corr-1")
		_, err := svc.ReconcileAttempt(context.Background(), attempt)
		assert.ErrorIs(t, err, gateway.ErrUnavailable)
		assert.Equal(t, 0, attempt.ReconciliationAttempts)
		assert.Empty(t, attempts.updated)
	})
}

package chargeback

import (
	"context"
	"testing"
	"time"

	"recoup/internal/gateway"
	"recoup/internal/locks"
	"recoup/internal/models"
	"recoup/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvents struct {
	nextID uint
	items  map[string]*models.ChargebackEvent
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{items: make(map[string]*models.ChargebackEvent)}
}

func (f *fakeEvents) Create(e *models.ChargebackEvent) error {
	if _, ok := f.items[e.CorrelationID]; ok {
		return repositories.ErrDuplicateChargeback
	}
	f.nextID++
	e.ID = f.nextID
	f.items[e.CorrelationID] = e
	return nil
}

func (f *fakeEvents) ExistsByCorrelationID(correlationID string) (bool, error) {
	_, ok := f.items[correlationID]
	return ok, nil
}

func (f *fakeEvents) ListByDateRange(from, to string) ([]models.ChargebackEvent, error) {
	return nil, nil
}

type fakeAttempts struct {
	byCorrelation map[string]*models.BillingAttempt
}

func (f *fakeAttempts) Create(a *models.BillingAttempt) error { return nil }
func (f *fakeAttempts) Update(a *models.BillingAttempt) error { return nil }

func (f *fakeAttempts) GetByID(id uint) (*models.BillingAttempt, error) {
	return nil, repositories.ErrAttemptNotFound
}

func (f *fakeAttempts) GetByCorrelationID(correlationID string) (*models.BillingAttempt, error) {
	a, ok := f.byCorrelation[correlationID]
	if !ok {
		return nil, repositories.ErrAttemptNotFound
	}
	return a, nil
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

type fakeDebtors struct {
	items map[uint]*models.Debtor
}

func (f *fakeDebtors) Create(d *models.Debtor) error { return nil }

func (f *fakeDebtors) GetByID(id uint) (*models.Debtor, error) {
	d, ok := f.items[id]
	if !ok {
		return nil, repositories.ErrDebtorNotFound
	}
	return d, nil
}

func (f *fakeDebtors) Update(d *models.Debtor) error { return nil }

func (f *fakeDebtors) UpdateStatus(debtorID uint, next string) error {
	d, err := f.GetByID(debtorID)
	if err != nil {
		return err
	}
	if !d.CanTransitionTo(next) {
		return repositories.ErrInvalidTransition
	}
	d.Status = next
	return nil
}

func (f *fakeDebtors) ListByUpload(uploadID uint) ([]models.Debtor, error)           { return nil, nil }
func (f *fakeDebtors) ListForVerification(uploadID uint) ([]models.Debtor, error)    { return nil, nil }
func (f *fakeDebtors) ListBillable(uploadID uint) ([]models.Debtor, error)           { return nil, nil }
func (f *fakeDebtors) ListBillableByProfile(profileID uint) ([]models.Debtor, error) { return nil, nil }
func (f *fakeDebtors) CountVerificationEligible(uploadID uint) (int64, error)        { return 0, nil }
func (f *fakeDebtors) CountVerificationSettled(uploadID uint) (int64, error)         { return 0, nil }
func (f *fakeDebtors) HasVerifiedDebtor(profileID uint) (bool, error)                { return false, nil }

type fakeProfiles struct {
	items map[uint]*models.BankAccountProfile
}

func (f *fakeProfiles) GetByID(id uint) (*models.BankAccountProfile, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, repositories.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeProfiles) GetByHash(accountHash string) (*models.BankAccountProfile, error) {
	return nil, repositories.ErrProfileNotFound
}

func (f *fakeProfiles) GetOrCreate(accountHash, routingCode string) (*models.BankAccountProfile, error) {
	return nil, repositories.ErrProfileNotFound
}

func (f *fakeProfiles) Update(p *models.BankAccountProfile) error {
	f.items[p.ID] = p
	return nil
}

func (f *fakeProfiles) AddCharged(profileID uint, amount, cap float64, at time.Time) error {
	return nil
}

func (f *fakeProfiles) DeductCharged(profileID uint, amount float64) error {
	p, err := f.GetByID(profileID)
	if err != nil {
		return err
	}
	p.LifetimeChargedAmount -= amount
	if p.LifetimeChargedAmount < 0 {
		p.LifetimeChargedAmount = 0
	}
	return nil
}

func (f *fakeProfiles) ListDue(now time.Time, limit int) ([]models.BankAccountProfile, error) {
	return nil, nil
}

func (f *fakeProfiles) SwitchCadence(profileID uint, cadence string) error { return nil }

type fakeBlacklist struct {
	entries []models.BlacklistEntry
}

func (f *fakeBlacklist) Create(e *models.BlacklistEntry) error {
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeBlacklist) Delete(id uint) error                                    { return nil }
func (f *fakeBlacklist) List(limit, offset int) ([]models.BlacklistEntry, error) { return f.entries, nil }
func (f *fakeBlacklist) IsBlocked(accountHash, routingCode string) (bool, error) { return false, nil }

func (f *fakeBlacklist) ExistsForHash(accountHash string) (bool, error) {
	for i := range f.entries {
		if f.entries[i].AccountHash == accountHash {
			return true, nil
		}
	}
	return false, nil
}

type stubGateway struct{}

func (stubGateway) Sale(ctx context.Context, req gateway.SaleRequest) (*gateway.SaleResponse, error) {
	return nil, gateway.ErrUnavailable
}

func (stubGateway) Reconcile(ctx context.Context, correlationID string) (*gateway.ReconcileResponse, error) {
	return nil, gateway.ErrUnavailable
}

func (stubGateway) Chargebacks(ctx context.Context, from, to time.Time, page int) (*gateway.ChargebackPage, error) {
	return nil, gateway.ErrUnavailable
}

type fixture struct {
	events    *fakeEvents
	attempts  *fakeAttempts
	debtors   *fakeDebtors
	profiles  *fakeProfiles
	blacklist *fakeBlacklist
	svc       *service
}

func newFixture() *fixture {
	f := &fixture{
		events:    newFakeEvents(),
		attempts:  &fakeAttempts{byCorrelation: make(map[string]*models.BillingAttempt)},
		debtors:   &fakeDebtors{items: make(map[uint]*models.Debtor)},
		profiles:  &fakeProfiles{items: make(map[uint]*models.BankAccountProfile)},
		blacklist: &fakeBlacklist{},
	}
	svc := NewService(
		f.events, f.attempts, f.debtors, f.profiles, f.blacklist,
		stubGateway{}, nil, &locks.Manager{},
		Config{AutoBlacklistReasonCodes: []string{"MD06"}},
	)
	f.svc = svc.(*service)
	return f
}

// seedApproved wires an approved attempt, its debtor, and its profile under
// one correlation id.
func (f *fixture) seedApproved(correlationID string) *models.BillingAttempt {
	profileID := uint(3)
	f.profiles.items[profileID] = &models.BankAccountProfile{
		ID:                    profileID,
		AccountHash:           models.HashAccountNumber("DE89370400440532013000"),
		Active:                true,
		LifetimeChargedAmount: 120.00,
	}
	f.debtors.items[5] = &models.Debtor{ID: 5, Status: models.DebtorStatusRecovered}
	attempt := &models.BillingAttempt{
		ID: 11, DebtorID: 5, ProfileID: &profileID,
		Status: models.AttemptStatusApproved, Amount: 120.00, CorrelationID: &correlationID,
	}
	f.attempts.byCorrelation[correlationID] = attempt
	return attempt
}

func record(correlationID, reasonCode string) *gateway.ChargebackRecord {
	return &gateway.ChargebackRecord{
		CorrelationID: correlationID,
		ReasonCode:    reasonCode,
		ReasonText:    "debtor disputes the debit",
		Amount:        120.00,
		Currency:      "EUR",
		OccurredAt:    "2026-08-20T09:30:00Z",
	}
}

func TestImportRecord(t *testing.T) {
	t.Run("reverses the attempt and undoes the lifetime total", func(t *testing.T) {
		f := newFixture()
		attempt := f.seedApproved("corr-1")
		summary := &SyncSummary{}

		f.svc.importRecord(context.Background(), record("corr-1", "AC04"), false, summary)

		assert.Equal(t, 1, summary.Imported)
		assert.Equal(t, 1, summary.Reversed)
		assert.Equal(t, 0, summary.Blacklisted)

		assert.Equal(t, models.AttemptStatusChargebacked, attempt.Status)
		assert.Equal(t, "AC04", attempt.ChargebackReason)
		require.NotNil(t, attempt.ChargebackAt)
		assert.Equal(t, 2026, attempt.ChargebackAt.Year())

		assert.Equal(t, models.DebtorStatusChargebacked, f.debtors.items[5].Status)
		assert.Equal(t, 0.00, f.profiles.items[3].LifetimeChargedAmount)
	})

	t.Run("re-import of the same correlation id is a duplicate", func(t *testing.T) {
		f := newFixture()
		f.seedApproved("corr-1")
		summary := &SyncSummary{}

		f.svc.importRecord(context.Background(), record("corr-1", "AC04"), false, summary)
		f.svc.importRecord(context.Background(), record("corr-1", "AC04"), false, summary)

		assert.Equal(t, 1, summary.Imported)
		assert.Equal(t, 1, summary.Duplicates)
		assert.Equal(t, 1, summary.Reversed)
	})

	t.Run("unknown correlation id is kept for audit", func(t *testing.T) {
		f := newFixture()
		summary := &SyncSummary{}

		f.svc.importRecord(context.Background(), record("corr-unknown", "AC04"), false, summary)

		assert.Equal(t, 1, summary.Imported)
		assert.Equal(t, 1, summary.Unmatched)
		assert.Equal(t, 0, summary.Reversed)

		event := f.events.items["corr-unknown"]
		require.NotNil(t, event)
		assert.Nil(t, event.AttemptID)
	})

	t.Run("auto blacklist reason code deactivates the profile", func(t *testing.T) {
		f := newFixture()
		f.seedApproved("corr-1")
		summary := &SyncSummary{}

		f.svc.importRecord(context.Background(), record("corr-1", "MD06"), false, summary)

		assert.Equal(t, 1, summary.Blacklisted)
		require.Len(t, f.blacklist.entries, 1)
		entry := f.blacklist.entries[0]
		assert.Equal(t, f.profiles.items[3].AccountHash, entry.AccountHash)
		assert.Equal(t, models.BlacklistSourceChargeback, entry.Source)
		assert.Contains(t, entry.Reason, "MD06")
		assert.False(t, f.profiles.items[3].Active)
	})

	t.Run("already blacklisted account is not added twice", func(t *testing.T) {
		f := newFixture()
		f.seedApproved("corr-1")
		f.blacklist.Create(&models.BlacklistEntry{
			AccountHash: f.profiles.items[3].AccountHash,
		})
		summary := &SyncSummary{}

		f.svc.importRecord(context.Background(), record("corr-1", "MD06"), false, summary)

		assert.Equal(t, 0, summary.Blacklisted)
		assert.Len(t, f.blacklist.entries, 1)
	})

	t.Run("dry run classifies without persisting", func(t *testing.T) {
		f := newFixture()
		attempt := f.seedApproved("corr-1")
		summary := &SyncSummary{}

		f.svc.importRecord(context.Background(), record("corr-1", "MD06"), true, summary)

		assert.Equal(t, 1, summary.Imported)
		assert.Equal(t, 1, summary.Reversed)
		assert.Equal(t, 1, summary.Blacklisted)

		assert.Empty(t, f.events.items)
		assert.Empty(t, f.blacklist.entries)
		assert.Equal(t, models.AttemptStatusApproved, attempt.Status)
		assert.True(t, f.profiles.items[3].Active)
	})
}

type pagingGateway struct {
	stubGateway
	fn    func(page int) (*gateway.ChargebackPage, error)
	calls int
}

func (g *pagingGateway) Chargebacks(ctx context.Context, from, to time.Time, page int) (*gateway.ChargebackPage, error) {
	g.calls++
	return g.fn(page)
}

func TestPullPages(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	t.Run("walks advancing pages to the end", func(t *testing.T) {
		f := newFixture()
		gw := &pagingGateway{fn: func(page int) (*gateway.ChargebackPage, error) {
			if page == 0 {
				return &gateway.ChargebackPage{
					Records: []gateway.ChargebackRecord{*record("corr-a", "AC04")},
					HasMore: true,
					Next:    1,
				}, nil
			}
			return &gateway.ChargebackPage{
				Records: []gateway.ChargebackRecord{*record("corr-b", "AC04")},
			}, nil
		}}
		f.svc.gateway = gw

		summary := &SyncSummary{}
		require.NoError(t, f.svc.pullPages(context.Background(), from, to, false, summary))

		assert.Equal(t, 2, gw.calls)
		assert.Equal(t, 2, summary.Fetched)
		assert.Equal(t, 2, summary.Imported)
	})

	t.Run("a non-advancing next page stops the pull", func(t *testing.T) {
		f := newFixture()
		gw := &pagingGateway{fn: func(page int) (*gateway.ChargebackPage, error) {
			return &gateway.ChargebackPage{
				Records: []gateway.ChargebackRecord{*record("corr-a", "AC04")},
				HasMore: true,
				Next:    page,
			}, nil
		}}
		f.svc.gateway = gw

		summary := &SyncSummary{}
		require.NoError(t, f.svc.pullPages(context.Background(), from, to, false, summary))

		assert.Equal(t, 1, gw.calls)
		assert.Equal(t, 1, summary.Fetched)
	})

	t.Run("a failing page surfaces the error", func(t *testing.T) {
		f := newFixture()
		f.svc.gateway = &pagingGateway{fn: func(page int) (*gateway.ChargebackPage, error) {
			return nil, gateway.ErrUnavailable
		}}

		summary := &SyncSummary{}
		err := f.svc.pullPages(context.Background(), from, to, false, summary)
		assert.ErrorIs(t, err, gateway.ErrUnavailable)
	})
}

func TestReverse(t *testing.T) {
	t.Run("a pending attempt cannot be chargebacked", func(t *testing.T) {
		f := newFixture()
		attempt := f.seedApproved("corr-1")
		attempt.Status = models.AttemptStatusPending

		reversed := f.svc.reverse(attempt, record("corr-1", "AC04"), time.Now())
		assert.False(t, reversed)
		assert.Equal(t, models.AttemptStatusPending, attempt.Status)
		assert.Equal(t, 120.00, f.profiles.items[3].LifetimeChargedAmount)
	})

	t.Run("reversal survives a debtor already chargebacked", func(t *testing.T) {
		f := newFixture()
		attempt := f.seedApproved("corr-1")
		f.debtors.items[5].Status = models.DebtorStatusChargebacked

		reversed := f.svc.reverse(attempt, record("corr-1", "AC04"), time.Now())
		assert.True(t, reversed)
		assert.Equal(t, models.AttemptStatusChargebacked, attempt.Status)
	})
}

package validation

import (
	"context"
	"testing"

	"recoup/internal/locks"
	"recoup/internal/models"
	"recoup/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func (f *fakeDebtors) Update(d *models.Debtor) error {
	f.items[d.ID] = d
	return nil
}

func (f *fakeDebtors) UpdateStatus(debtorID uint, next string) error { return nil }

func (f *fakeDebtors) ListByUpload(uploadID uint) ([]models.Debtor, error) {
	var out []models.Debtor
	for _, d := range f.items {
		if d.UploadID == uploadID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDebtors) ListForVerification(uploadID uint) ([]models.Debtor, error) { return nil, nil }
func (f *fakeDebtors) ListBillable(uploadID uint) ([]models.Debtor, error)        { return nil, nil }
func (f *fakeDebtors) ListBillableByProfile(profileID uint) ([]models.Debtor, error) {
	return nil, nil
}
func (f *fakeDebtors) CountVerificationEligible(uploadID uint) (int64, error) { return 0, nil }
func (f *fakeDebtors) CountVerificationSettled(uploadID uint) (int64, error)  { return 0, nil }
func (f *fakeDebtors) HasVerifiedDebtor(profileID uint) (bool, error)         { return false, nil }

type fakeUploads struct{}

func (fakeUploads) Create(u *models.Upload) error           { return nil }
func (fakeUploads) GetByID(id uint) (*models.Upload, error) { return &models.Upload{ID: id}, nil }
func (fakeUploads) Update(u *models.Upload) error           { return nil }
func (fakeUploads) SetStageStatus(uploadID uint, stage, status, jobID string) error {
	return nil
}
func (fakeUploads) SoftDeleteIfNoAttempts(uploadID uint) (bool, error) { return false, nil }

func newTestService(debtors *fakeDebtors) Service {
	return NewService(debtors, fakeUploads{}, &locks.Manager{}, Config{})
}

func validDebtor() *models.Debtor {
	return &models.Debtor{
		ID:        1,
		UploadID:  10,
		FirstName: "Anna",
		LastName:  "Becker",
		Email:     "anna@example.com",
		IBAN:      "DE89 3704 0044 0532 0130 00",
		Amount:    99.99,
		Currency:  "EUR",
		Status:    models.DebtorStatusUploaded,
	}
}

func TestValidateDebtor(t *testing.T) {
	t.Run("a clean record passes and moves to pending", func(t *testing.T) {
		debtors := &fakeDebtors{items: map[uint]*models.Debtor{1: validDebtor()}}
		svc := newTestService(debtors)

		debtor, err := svc.ValidateDebtor(context.Background(), 1)
		require.NoError(t, err)

		assert.Equal(t, models.ValidationStatusPassed, debtor.ValidationStatus)
		assert.Nil(t, debtor.ValidationErrors)
		assert.True(t, debtor.IBANValid)
		assert.Equal(t, models.DebtorStatusPending, debtor.Status)
	})

	t.Run("bank code is backfilled from the account number", func(t *testing.T) {
		debtors := &fakeDebtors{items: map[uint]*models.Debtor{1: validDebtor()}}
		svc := newTestService(debtors)

		debtor, err := svc.ValidateDebtor(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, "37040044", debtor.BankCode)
	})

	t.Run("field failures are recorded per field", func(t *testing.T) {
		bad := validDebtor()
		bad.LastName = ""
		bad.Email = "not-an-email"
		bad.Amount = 0
		bad.Currency = "EURO"
		debtors := &fakeDebtors{items: map[uint]*models.Debtor{1: bad}}
		svc := newTestService(debtors)

		debtor, err := svc.ValidateDebtor(context.Background(), 1)
		require.NoError(t, err)

		assert.Equal(t, models.ValidationStatusFailed, debtor.ValidationStatus)
		require.NotNil(t, debtor.ValidationErrors)
		assert.Equal(t, "required", debtor.ValidationErrors["LastName"])
		assert.Equal(t, "email", debtor.ValidationErrors["Email"])
		assert.Equal(t, "required", debtor.ValidationErrors["Amount"])
		assert.Equal(t, "len", debtor.ValidationErrors["Currency"])
		assert.Equal(t, models.DebtorStatusUploaded, debtor.Status)
	})

	t.Run("a malformed account number fails even when fields pass", func(t *testing.T) {
		bad := validDebtor()
		bad.IBAN = "DE89-INVALID"
		debtors := &fakeDebtors{items: map[uint]*models.Debtor{1: bad}}
		svc := newTestService(debtors)

		debtor, err := svc.ValidateDebtor(context.Background(), 1)
		require.NoError(t, err)

		assert.Equal(t, models.ValidationStatusFailed, debtor.ValidationStatus)
		assert.False(t, debtor.IBANValid)
		assert.Equal(t, "format", debtor.ValidationErrors["IBAN"])
	})

	t.Run("revalidation clears old failures", func(t *testing.T) {
		fixed := validDebtor()
		fixed.ValidationStatus = models.ValidationStatusFailed
		fixed.ValidationErrors = models.JSON{"Email": "email"}
		debtors := &fakeDebtors{items: map[uint]*models.Debtor{1: fixed}}
		svc := newTestService(debtors)

		debtor, err := svc.ValidateDebtor(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, models.ValidationStatusPassed, debtor.ValidationStatus)
		assert.Nil(t, debtor.ValidationErrors)
	})
}

// Package validation runs the first pipeline stage: structural checks on
// uploaded debtor records. It gates which debtors move on to verification.
package validation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"recoup/internal/locks"
	"recoup/internal/models"
	"recoup/internal/repositories"
	"recoup/internal/services/verification"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var ErrRunInProgress = errors.New("validation already running for this upload")

// Config tunes a validation run.
type Config struct {
	LockTTL time.Duration
}

// RunSummary aggregates one validation run over an upload.
type RunSummary struct {
	RunID  string
	Total  int
	Passed int
	Failed int
}

// debtorInput mirrors the fields a debtor record must carry to enter the
// pipeline. Validation rules live in the tags.
type debtorInput struct {
	FirstName string  `validate:"omitempty,max=100"`
	LastName  string  `validate:"required,max=100"`
	Email     string  `validate:"omitempty,email"`
	IBAN      string  `validate:"required"`
	Amount    float64 `validate:"required,gt=0"`
	Currency  string  `validate:"required,len=3,alpha"`
}

type Service interface {
	// RunUpload validates every debtor of the upload and records per-field
	// failures on the debtor itself.
	RunUpload(ctx context.Context, uploadID uint) (*RunSummary, error)
	// ValidateDebtor re-checks a single debtor, for corrections after an
	// upload-level run.
	ValidateDebtor(ctx context.Context, debtorID uint) (*models.Debtor, error)
}

type service struct {
	debtors  repositories.DebtorRepository
	uploads  repositories.UploadRepository
	validate *validator.Validate
	locker   *locks.Manager
	config   Config
}

func NewService(
	debtors repositories.DebtorRepository,
	uploads repositories.UploadRepository,
	locker *locks.Manager,
	config Config,
) Service {
	if debtors == nil || uploads == nil {
		panic("repositories are required")
	}
	if locker == nil {
		panic("lock manager is required")
	}
	if config.LockTTL == 0 {
		config.LockTTL = 15 * time.Minute
	}
	return &service{
		debtors:  debtors,
		uploads:  uploads,
		validate: validator.New(),
		locker:   locker,
		config:   config,
	}
}

func (s *service) RunUpload(ctx context.Context, uploadID uint) (*RunSummary, error) {
	lock, err := s.locker.Acquire(ctx, locks.StageKey(models.StageValidation, uploadID), s.config.LockTTL)
	if err != nil {
		if errors.Is(err, locks.ErrAlreadyLocked) {
			return nil, ErrRunInProgress
		}
		return nil, err
	}
	defer lock.Release(ctx)

	runID := uuid.New().String()
	if err := s.uploads.SetStageStatus(uploadID, models.StageValidation, models.StageStatusProcessing, runID); err != nil {
		return nil, err
	}

	debtors, err := s.debtors.ListByUpload(uploadID)
	if err != nil {
		s.uploads.SetStageStatus(uploadID, models.StageValidation, models.StageStatusFailed, runID)
		return nil, fmt.Errorf("failed to list debtors: %w", err)
	}

	summary := &RunSummary{RunID: runID, Total: len(debtors)}
	for i := range debtors {
		debtor := &debtors[i]
		s.check(debtor)
		if err := s.debtors.Update(debtor); err != nil {
			log.Printf("[validation] debtor %d: update failed: %v", debtor.ID, err)
			summary.Failed++
			continue
		}
		if debtor.ValidationStatus == models.ValidationStatusPassed {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	if err := s.uploads.SetStageStatus(uploadID, models.StageValidation, models.StageStatusCompleted, runID); err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *service) ValidateDebtor(ctx context.Context, debtorID uint) (*models.Debtor, error) {
	debtor, err := s.debtors.GetByID(debtorID)
	if err != nil {
		return nil, err
	}
	s.check(debtor)
	if err := s.debtors.Update(debtor); err != nil {
		return nil, err
	}
	return debtor, nil
}

// check sets the debtor's validation outcome in place.
func (s *service) check(debtor *models.Debtor) {
	fieldErrors := map[string]interface{}{}

	input := debtorInput{
		FirstName: debtor.FirstName,
		LastName:  debtor.LastName,
		Email:     debtor.Email,
		IBAN:      debtor.IBAN,
		Amount:    debtor.Amount,
		Currency:  debtor.Currency,
	}
	if err := s.validate.Struct(input); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			for _, fieldErr := range invalid {
				fieldErrors[fieldErr.Field()] = fieldErr.Tag()
			}
		} else {
			fieldErrors["record"] = err.Error()
		}
	}

	iban := verification.NormalizeIBAN(debtor.IBAN)
	debtor.IBANValid = verification.ValidFormat(iban)
	if !debtor.IBANValid {
		fieldErrors["IBAN"] = "format"
	}
	if debtor.BankCode == "" {
		debtor.BankCode = verification.BankCodeFromIBAN(iban)
	}

	if len(fieldErrors) == 0 {
		debtor.ValidationStatus = models.ValidationStatusPassed
		debtor.ValidationErrors = nil
		if debtor.Status == models.DebtorStatusUploaded {
			debtor.Status = models.DebtorStatusPending
		}
	} else {
		debtor.ValidationStatus = models.ValidationStatusFailed
		debtor.ValidationErrors = models.JSON(fieldErrors)
	}
}

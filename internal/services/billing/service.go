// Package billing dispatches payment attempts to the gateway and owns the
// status-mapping rules every asynchronous outcome path reuses.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"recoup/internal/gateway"
	"recoup/internal/locks"
	"recoup/internal/models"
	"recoup/internal/repositories"

	"github.com/google/uuid"
)

type Service interface {
	// Dispatch submits one payment attempt for the debtor or fails with
	// ErrNotEligible.
	Dispatch(ctx context.Context, debtorID uint) (*models.BillingAttempt, error)
	// RunUpload dispatches every billable debtor of an upload under the
	// upload's billing lock.
	RunUpload(ctx context.Context, uploadID uint) (*RunSummary, error)
	// ApplyOutcome applies a gateway-reported status to an attempt using
	// the same mapping as Dispatch. It is idempotent: re-applying the
	// current status or touching a settled attempt is a no-op and reports
	// changed=false.
	ApplyOutcome(ctx context.Context, attempt *models.BillingAttempt, gatewayStatus, code, message string) (bool, error)
}

type service struct {
	attempts  repositories.BillingAttemptRepository
	debtors   repositories.DebtorRepository
	profiles  repositories.ProfileRepository
	blacklist repositories.BlacklistRepository
	uploads   repositories.UploadRepository
	gate      VerificationGate
	gateway   gateway.Client
	locker    *locks.Manager
	config    Config
}

func NewService(
	attempts repositories.BillingAttemptRepository,
	debtors repositories.DebtorRepository,
	profiles repositories.ProfileRepository,
	blacklist repositories.BlacklistRepository,
	uploads repositories.UploadRepository,
	gate VerificationGate,
	gatewayClient gateway.Client,
	locker *locks.Manager,
	config Config,
) Service {
	if attempts == nil || debtors == nil || profiles == nil || blacklist == nil || uploads == nil {
		panic("repositories are required")
	}
	if gate == nil {
		panic("verification gate is required")
	}
	if gatewayClient == nil {
		panic("gateway client is required")
	}
	if locker == nil {
		panic("lock manager is required")
	}
	if config.MinimumAmount <= 0 {
		config.MinimumAmount = 1.00
	}
	if config.Currency == "" {
		config.Currency = "EUR"
	}
	if config.LifetimeCap <= 0 {
		config.LifetimeCap = 5000.00
	}
	if config.LockTTL == 0 {
		config.LockTTL = 30 * time.Minute
	}
	return &service{
		attempts:  attempts,
		debtors:   debtors,
		profiles:  profiles,
		blacklist: blacklist,
		uploads:   uploads,
		gate:      gate,
		gateway:   gatewayClient,
		locker:    locker,
		config:    config,
	}
}

func (s *service) Dispatch(ctx context.Context, debtorID uint) (*models.BillingAttempt, error) {
	debtor, err := s.debtors.GetByID(debtorID)
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, debtor)
}

func (s *service) dispatch(ctx context.Context, debtor *models.Debtor) (*models.BillingAttempt, error) {
	if err := s.checkEligibility(debtor); err != nil {
		return nil, err
	}

	iban := normalizedIBAN(debtor)
	profile, err := s.profiles.GetOrCreate(models.HashAccountNumber(iban), debtor.BankCode)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account profile: %w", err)
	}
	if !profile.Active {
		return nil, fmt.Errorf("%w: %v", ErrNotEligible, ErrAccountBlacklisted)
	}

	// Cadence runs look up billable debtors by profile, so the link has to
	// be persisted on the debtor as well, not just on the attempt.
	if debtor.ProfileID == nil || *debtor.ProfileID != profile.ID {
		debtor.ProfileID = &profile.ID
		if err := s.debtors.Update(debtor); err != nil {
			return nil, fmt.Errorf("failed to link account profile: %w", err)
		}
	}

	attemptNumber, err := s.attempts.NextAttemptNumber(debtor.ID)
	if err != nil {
		return nil, err
	}
	if attemptNumber > 1 {
		// A retry must originate from a declined or errored attempt; the
		// open-attempt check already excluded pending/approved.
		last, err := s.attempts.GetLatestByDebtor(debtor.ID)
		if err != nil {
			return nil, err
		}
		if !last.IsRetryable() {
			return nil, fmt.Errorf("%w: %v", ErrNotEligible, ErrRetryNotAllowed)
		}
	}

	// The external id exists before the network call, so a timeout can be
	// resolved by reconciliation instead of a blind resubmission.
	attempt := &models.BillingAttempt{
		DebtorID:              debtor.ID,
		ProfileID:             &profile.ID,
		ExternalTransactionID: uuid.New().String(),
		Amount:                debtor.Amount,
		Currency:              debtor.Currency,
		Status:                models.AttemptStatusPending,
		AttemptNumber:         attemptNumber,
	}
	if err := s.attempts.Create(attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	if debtor.Status == models.DebtorStatusUploaded || debtor.Status == models.DebtorStatusPending {
		if err := s.debtors.UpdateStatus(debtor.ID, models.DebtorStatusProcessing); err != nil {
			log.Printf("[billing] debtor %d: status update failed: %v", debtor.ID, err)
		}
	}

	resp, err := s.gateway.Sale(ctx, gateway.SaleRequest{
		TransactionID: attempt.ExternalTransactionID,
		IBAN:          iban,
		BIC:           debtor.BIC,
		HolderName:    debtor.FullName(),
		Amount:        attempt.Amount,
		Currency:      attempt.Currency,
		Descriptor:    s.config.Descriptor,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrUnavailable) {
			// Outcome unknown: leave the attempt pending for
			// reconciliation to resolve.
			log.Printf("[billing] attempt %s: gateway unavailable, left pending", attempt.ExternalTransactionID)
			return attempt, nil
		}
		attempt.Status = models.AttemptStatusError
		attempt.ResponseMessage = err.Error()
		if updateErr := s.attempts.Update(attempt); updateErr != nil {
			return attempt, updateErr
		}
		return attempt, nil
	}

	if resp.CorrelationID != "" {
		attempt.CorrelationID = &resp.CorrelationID
	}
	attempt.RedirectURL = resp.RedirectURL
	attempt.ResponseCode = resp.Code
	attempt.ResponseMessage = resp.Message

	status, err := MapGatewayStatus(resp.Status)
	if err != nil {
		attempt.Status = models.AttemptStatusError
		attempt.ResponseMessage = fmt.Sprintf("unmapped gateway status %q", resp.Status)
	} else {
		attempt.Status = status
	}
	if err := s.attempts.Update(attempt); err != nil {
		return attempt, err
	}

	if attempt.Status == models.AttemptStatusApproved {
		s.settleApproval(attempt)
	} else if attempt.Status == models.AttemptStatusDeclined || attempt.Status == models.AttemptStatusError {
		if err := s.debtors.UpdateStatus(debtor.ID, models.DebtorStatusFailed); err != nil && !errors.Is(err, repositories.ErrInvalidTransition) {
			log.Printf("[billing] debtor %d: status update failed: %v", debtor.ID, err)
		}
	}
	return attempt, nil
}

func (s *service) checkEligibility(debtor *models.Debtor) error {
	if debtor.ValidationStatus != models.ValidationStatusPassed {
		return fmt.Errorf("%w: %v", ErrNotEligible, ErrValidationNotPassed)
	}
	ok, err := s.gate.UploadGateSatisfied(debtor.UploadID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %v", ErrNotEligible, ErrVerificationGate)
	}
	if !debtor.VerificationPassed() {
		return fmt.Errorf("%w: %v", ErrNotEligible, ErrVerificationFailed)
	}
	if debtor.Amount < s.config.MinimumAmount {
		return fmt.Errorf("%w: %v", ErrNotEligible, ErrAmountBelowMinimum)
	}

	if _, err := s.attempts.GetOpenByDebtor(debtor.ID); err == nil {
		return fmt.Errorf("%w: %v", ErrNotEligible, ErrAttemptAlreadyOpen)
	} else if !errors.Is(err, repositories.ErrAttemptNotFound) {
		return err
	}

	blocked, err := s.blacklist.IsBlocked(models.HashAccountNumber(normalizedIBAN(debtor)), debtor.BankCode)
	if err != nil {
		return err
	}
	if blocked {
		return fmt.Errorf("%w: %v", ErrNotEligible, ErrAccountBlacklisted)
	}
	return nil
}

func (s *service) RunUpload(ctx context.Context, uploadID uint) (*RunSummary, error) {
	lock, err := s.locker.Acquire(ctx, locks.StageKey(models.StageBilling, uploadID), s.config.LockTTL)
	if err != nil {
		if errors.Is(err, locks.ErrAlreadyLocked) {
			return nil, ErrRunInProgress
		}
		return nil, err
	}
	defer lock.Release(ctx)

	ok, err := s.gate.UploadGateSatisfied(uploadID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrVerificationGate
	}

	runID := uuid.New().String()
	if err := s.uploads.SetStageStatus(uploadID, models.StageBilling, models.StageStatusProcessing, runID); err != nil {
		return nil, err
	}

	debtors, err := s.debtors.ListBillable(uploadID)
	if err != nil {
		s.uploads.SetStageStatus(uploadID, models.StageBilling, models.StageStatusFailed, runID)
		return nil, err
	}

	summary := &RunSummary{Total: len(debtors)}
	for i := range debtors {
		attempt, err := s.dispatch(ctx, &debtors[i])
		switch {
		case errors.Is(err, ErrNotEligible):
			summary.Skipped++
		case err != nil:
			log.Printf("[billing] debtor %d: dispatch failed: %v", debtors[i].ID, err)
			summary.Errored++
		default:
			switch attempt.Status {
			case models.AttemptStatusApproved:
				summary.Approved++
			case models.AttemptStatusPending:
				summary.Pending++
			case models.AttemptStatusDeclined:
				summary.Declined++
			default:
				summary.Errored++
			}
		}
	}

	if err := s.uploads.SetStageStatus(uploadID, models.StageBilling, models.StageStatusCompleted, runID); err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *service) ApplyOutcome(ctx context.Context, attempt *models.BillingAttempt, gatewayStatus, code, message string) (bool, error) {
	next, err := MapGatewayStatus(gatewayStatus)
	if err != nil {
		return false, err
	}
	if !attempt.CanTransitionTo(next) {
		// Same status or a settled attempt: idempotent no-op.
		return false, nil
	}

	attempt.Status = next
	if code != "" {
		attempt.ResponseCode = code
	}
	if message != "" {
		attempt.ResponseMessage = message
	}
	if err := s.attempts.Update(attempt); err != nil {
		return false, err
	}

	switch next {
	case models.AttemptStatusApproved:
		s.settleApproval(attempt)
	case models.AttemptStatusDeclined, models.AttemptStatusError:
		if err := s.debtors.UpdateStatus(attempt.DebtorID, models.DebtorStatusFailed); err != nil && !errors.Is(err, repositories.ErrInvalidTransition) {
			log.Printf("[billing] debtor %d: status update failed: %v", attempt.DebtorID, err)
		}
	}
	return true, nil
}

// settleApproval records the successful charge on the debtor and the
// owning account profile.
func (s *service) settleApproval(attempt *models.BillingAttempt) {
	if err := s.debtors.UpdateStatus(attempt.DebtorID, models.DebtorStatusRecovered); err != nil && !errors.Is(err, repositories.ErrInvalidTransition) {
		log.Printf("[billing] debtor %d: status update failed: %v", attempt.DebtorID, err)
	}
	if attempt.ProfileID != nil {
		err := s.profiles.AddCharged(*attempt.ProfileID, attempt.Amount, s.config.LifetimeCap, time.Now())
		if err != nil && !errors.Is(err, repositories.ErrCapExceeded) {
			log.Printf("[billing] profile %d: lifetime total update failed: %v", *attempt.ProfileID, err)
		}
	}
}

// normalizedIBAN matches the normalization the account hash uses so the
// profile key is stable across stages.
func normalizedIBAN(debtor *models.Debtor) string {
	return strings.ToUpper(strings.ReplaceAll(debtor.IBAN, " ", ""))
}

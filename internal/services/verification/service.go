// Package verification scores debtor bank-identity confidence (VOP/BAV).
// The local step validates the account number and resolves the bank in the
// local registry; a bounded sample is escalated to the credit-metered
// identity API.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"recoup/internal/bankregistry"
	"recoup/internal/identity"
	"recoup/internal/locks"
	"recoup/internal/models"
	"recoup/internal/repositories"

	"github.com/google/uuid"
)

// Config tunes a verification run.
type Config struct {
	// EscalationSampleSize caps the number of debtors per run that get a
	// paid identity check.
	EscalationSampleSize int
	LockTTL              time.Duration
}

// RunSummary aggregates one verification run over an upload.
type RunSummary struct {
	RunID     string
	Total     int
	Verified  int
	Likely    int
	Rejected  int
	Errored   int
	Escalated int
}

type Service interface {
	// RunUpload verifies every pending debtor of the upload with a valid
	// account format. Per-debtor failures are isolated; the run reports
	// aggregate counts.
	RunUpload(ctx context.Context, uploadID uint) (*RunSummary, error)
	// UploadGateSatisfied reports whether billing may start: every debtor
	// with a valid account format has a settled verification outcome.
	UploadGateSatisfied(uploadID uint) (bool, error)
}

type service struct {
	debtors  repositories.DebtorRepository
	logs     repositories.VerificationLogRepository
	uploads  repositories.UploadRepository
	credits  repositories.CreditRepository
	registry *bankregistry.Registry
	identity identity.Client
	locker   *locks.Manager
	config   Config
}

func NewService(
	debtors repositories.DebtorRepository,
	logs repositories.VerificationLogRepository,
	uploads repositories.UploadRepository,
	credits repositories.CreditRepository,
	registry *bankregistry.Registry,
	identityClient identity.Client,
	locker *locks.Manager,
	config Config,
) Service {
	if debtors == nil || logs == nil || uploads == nil || credits == nil {
		panic("repositories are required")
	}
	if registry == nil {
		panic("bank registry is required")
	}
	if locker == nil {
		panic("lock manager is required")
	}
	if config.EscalationSampleSize <= 0 {
		config.EscalationSampleSize = 25
	}
	if config.LockTTL == 0 {
		config.LockTTL = 15 * time.Minute
	}
	return &service{
		debtors:  debtors,
		logs:     logs,
		uploads:  uploads,
		credits:  credits,
		registry: registry,
		identity: identityClient,
		locker:   locker,
		config:   config,
	}
}

func (s *service) RunUpload(ctx context.Context, uploadID uint) (*RunSummary, error) {
	lock, err := s.locker.Acquire(ctx, locks.StageKey(models.StageVerification, uploadID), s.config.LockTTL)
	if err != nil {
		if errors.Is(err, locks.ErrAlreadyLocked) {
			return nil, ErrRunInProgress
		}
		return nil, err
	}
	defer lock.Release(ctx)

	runID := uuid.New().String()
	if err := s.uploads.SetStageStatus(uploadID, models.StageVerification, models.StageStatusProcessing, runID); err != nil {
		return nil, err
	}

	debtors, err := s.debtors.ListForVerification(uploadID)
	if err != nil {
		s.uploads.SetStageStatus(uploadID, models.StageVerification, models.StageStatusFailed, runID)
		return nil, fmt.Errorf("failed to list debtors: %w", err)
	}

	summary := &RunSummary{RunID: runID, Total: len(debtors)}
	for i := range debtors {
		debtor := &debtors[i]
		escalate := summary.Escalated < s.config.EscalationSampleSize
		if err := s.verifyDebtor(ctx, debtor, runID, escalate, summary); err != nil {
			// A per-debtor failure never fails the run.
			log.Printf("[verification] debtor %d: %v", debtor.ID, err)
			summary.Errored++
			debtor.VOPStatus = models.VOPStatusError
			if updateErr := s.debtors.Update(debtor); updateErr != nil {
				log.Printf("[verification] debtor %d: status update failed: %v", debtor.ID, updateErr)
			}
		}
	}

	if err := s.uploads.SetStageStatus(uploadID, models.StageVerification, models.StageStatusCompleted, runID); err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *service) verifyDebtor(ctx context.Context, debtor *models.Debtor, runID string, escalate bool, summary *RunSummary) error {
	iban := NormalizeIBAN(debtor.IBAN)
	signals := Signals{ChecksumValid: ValidChecksum(iban)}

	bankCode := debtor.BankCode
	if bankCode == "" {
		bankCode = BankCodeFromIBAN(iban)
	}

	var bank *bankregistry.Bank
	if bankCode != "" {
		bank, _ = s.registry.LookupByCode(bankCode)
	}
	if bank == nil && debtor.BIC != "" {
		bank, _ = s.registry.LookupByBIC(debtor.BIC)
	}
	signals.BankResolved = bank != nil

	escalated := false
	if escalate && signals.ChecksumValid && s.identity != nil {
		match, err := s.escalate(ctx, iban, debtor.FullName())
		if err != nil {
			if errors.Is(err, ErrInsufficientCredits) {
				// Fail closed: no silent skip of the paid check.
				return err
			}
			return fmt.Errorf("identity escalation: %w", err)
		}
		signals.NameMatch = match
		escalated = true
		summary.Escalated++
	}

	outcome := Evaluate(signals)

	entry := &models.VerificationLog{
		DebtorID:       debtor.ID,
		UploadID:       debtor.UploadID,
		RunID:          runID,
		Score:          outcome.Score,
		Classification: outcome.Classification,
		NameMatch:      signals.NameMatch,
		Escalated:      escalated,
	}
	if bank != nil {
		entry.BankName = bank.Name
		entry.BankCode = bank.Code
		entry.BIC = bank.BIC
	}
	if err := s.logs.Create(entry); err != nil {
		return fmt.Errorf("failed to record verification log: %w", err)
	}

	debtor.VOPStatus = outcome.Classification
	if err := s.debtors.Update(debtor); err != nil {
		return fmt.Errorf("failed to update debtor: %w", err)
	}

	switch outcome.Classification {
	case models.VOPStatusVerified:
		summary.Verified++
	case models.VOPStatusLikelyVerified:
		summary.Likely++
	case models.VOPStatusRejected, models.VOPStatusMismatch:
		summary.Rejected++
	}
	return nil
}

// escalate consumes one credit and runs the paid name-match check. The
// credit decrement happens first and atomically, so concurrent runs can
// never overdraw the balance.
func (s *service) escalate(ctx context.Context, iban, holderName string) (string, error) {
	if err := s.credits.Consume(1); err != nil {
		if errors.Is(err, repositories.ErrInsufficientCredits) {
			return "", ErrInsufficientCredits
		}
		return "", err
	}

	result, err := s.identity.Verify(ctx, identity.Request{IBAN: iban, HolderName: holderName})
	if err != nil {
		return "", err
	}
	return result.Match, nil
}

func (s *service) UploadGateSatisfied(uploadID uint) (bool, error) {
	eligible, err := s.debtors.CountVerificationEligible(uploadID)
	if err != nil {
		return false, err
	}
	settled, err := s.debtors.CountVerificationSettled(uploadID)
	if err != nil {
		return false, err
	}
	return settled == eligible, nil
}

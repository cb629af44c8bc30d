// Package chargeback imports gateway-reported chargebacks, reverses the
// affected attempts, and feeds the blacklist.
package chargeback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"recoup/internal/gateway"
	"recoup/internal/locks"
	"recoup/internal/models"
	"recoup/internal/repositories"
	"recoup/internal/storage"
)

const syncLockKey = "lock:chargeback:sync"

// Config tunes the sync run.
type Config struct {
	// AutoBlacklistReasonCodes lists scheme reason codes that blacklist the
	// account on import. Codes outside the set only reverse the attempt.
	AutoBlacklistReasonCodes []string
	LockTTL                  time.Duration
	// ReportPrefix is the object key prefix for exported sync reports.
	ReportPrefix string
}

// SyncSummary reports one import run.
type SyncSummary struct {
	From        string `json:"from"`
	To          string `json:"to"`
	DryRun      bool   `json:"dry_run"`
	Fetched     int    `json:"fetched"`
	Imported    int    `json:"imported"`
	Duplicates  int    `json:"duplicates"`
	Unmatched   int    `json:"unmatched"`
	Reversed    int    `json:"reversed"`
	Blacklisted int    `json:"blacklisted"`
	ReportKey   string `json:"report_key,omitempty"`
}

type Service interface {
	// Sync imports all chargebacks the gateway reports for the date range.
	// Re-running the same range is a no-op for already imported records.
	// With dryRun set it fetches and classifies but persists nothing.
	Sync(ctx context.Context, from, to time.Time, dryRun bool) (*SyncSummary, error)
}

type service struct {
	events    repositories.ChargebackEventRepository
	attempts  repositories.BillingAttemptRepository
	debtors   repositories.DebtorRepository
	profiles  repositories.ProfileRepository
	blacklist repositories.BlacklistRepository
	gateway   gateway.Client
	storage   storage.ObjectStorage
	locker    *locks.Manager
	config    Config

	autoBlacklist map[string]bool
}

func NewService(
	events repositories.ChargebackEventRepository,
	attempts repositories.BillingAttemptRepository,
	debtors repositories.DebtorRepository,
	profiles repositories.ProfileRepository,
	blacklist repositories.BlacklistRepository,
	gatewayClient gateway.Client,
	objectStorage storage.ObjectStorage,
	locker *locks.Manager,
	config Config,
) Service {
	if events == nil || attempts == nil || debtors == nil || profiles == nil || blacklist == nil {
		panic("repositories are required")
	}
	if gatewayClient == nil {
		panic("gateway client is required")
	}
	if locker == nil {
		panic("lock manager is required")
	}
	if config.LockTTL == 0 {
		config.LockTTL = 15 * time.Minute
	}
	if config.ReportPrefix == "" {
		config.ReportPrefix = "reports/chargebacks"
	}
	auto := make(map[string]bool, len(config.AutoBlacklistReasonCodes))
	for _, code := range config.AutoBlacklistReasonCodes {
		auto[code] = true
	}
	return &service{
		events:        events,
		attempts:      attempts,
		debtors:       debtors,
		profiles:      profiles,
		blacklist:     blacklist,
		gateway:       gatewayClient,
		storage:       objectStorage,
		locker:        locker,
		config:        config,
		autoBlacklist: auto,
	}
}

func (s *service) Sync(ctx context.Context, from, to time.Time, dryRun bool) (*SyncSummary, error) {
	if !from.Before(to) {
		return nil, ErrInvalidRange
	}

	lock, err := s.locker.Acquire(ctx, syncLockKey, s.config.LockTTL)
	if err != nil {
		if errors.Is(err, locks.ErrAlreadyLocked) {
			return nil, ErrSyncInProgress
		}
		return nil, err
	}
	defer lock.Release(ctx)

	summary := &SyncSummary{
		From:   from.Format("2006-01-02"),
		To:     to.Format("2006-01-02"),
		DryRun: dryRun,
	}

	if err := s.pullPages(ctx, from, to, dryRun, summary); err != nil {
		return summary, err
	}

	if !dryRun && s.storage != nil {
		if key, err := s.exportReport(ctx, summary); err != nil {
			log.Printf("[chargeback] report export failed: %v", err)
		} else {
			summary.ReportKey = key
		}
	}
	return summary, nil
}

func (s *service) pullPages(ctx context.Context, from, to time.Time, dryRun bool, summary *SyncSummary) error {
	page := 0
	for {
		result, err := s.gateway.Chargebacks(ctx, from, to, page)
		if err != nil {
			return fmt.Errorf("failed to fetch chargeback page %d: %w", page, err)
		}
		summary.Fetched += len(result.Records)
		for i := range result.Records {
			s.importRecord(ctx, &result.Records[i], dryRun, summary)
		}
		if !result.HasMore {
			return nil
		}
		// A gateway that reports a non-advancing next page would otherwise
		// spin forever under the sync lock.
		if result.Next <= page {
			log.Printf("[chargeback] page %d reported next page %d, stopping", page, result.Next)
			return nil
		}
		page = result.Next
	}
}

func (s *service) importRecord(ctx context.Context, record *gateway.ChargebackRecord, dryRun bool, summary *SyncSummary) {
	exists, err := s.events.ExistsByCorrelationID(record.CorrelationID)
	if err != nil {
		log.Printf("[chargeback] %s: duplicate check failed: %v", record.CorrelationID, err)
		return
	}
	if exists {
		summary.Duplicates++
		return
	}

	attempt, err := s.attempts.GetByCorrelationID(record.CorrelationID)
	if err != nil {
		if !errors.Is(err, repositories.ErrAttemptNotFound) {
			log.Printf("[chargeback] %s: attempt lookup failed: %v", record.CorrelationID, err)
			return
		}
		// Kept for audit even without a matching attempt; the gateway can
		// report chargebacks for transactions outside this system.
		attempt = nil
		summary.Unmatched++
	}

	if dryRun {
		summary.Imported++
		if attempt != nil && attempt.CanTransitionTo(models.AttemptStatusChargebacked) {
			summary.Reversed++
		}
		if s.autoBlacklist[record.ReasonCode] {
			summary.Blacklisted++
		}
		return
	}

	occurredAt, err := time.Parse(time.RFC3339, record.OccurredAt)
	if err != nil {
		occurredAt = time.Now()
	}
	event := &models.ChargebackEvent{
		CorrelationID: record.CorrelationID,
		ReasonCode:    record.ReasonCode,
		ReasonText:    record.ReasonText,
		Amount:        record.Amount,
		Currency:      record.Currency,
		OccurredAt:    occurredAt,
		ImportedAt:    time.Now(),
	}
	if attempt != nil {
		event.AttemptID = &attempt.ID
	}
	if err := s.events.Create(event); err != nil {
		if errors.Is(err, repositories.ErrDuplicateChargeback) {
			// Lost a race with a concurrent sync; the winner handled it.
			summary.Duplicates++
			return
		}
		log.Printf("[chargeback] %s: import failed: %v", record.CorrelationID, err)
		return
	}
	summary.Imported++

	if attempt != nil {
		if s.reverse(attempt, record, occurredAt) {
			summary.Reversed++
		}
		if s.autoBlacklist[record.ReasonCode] {
			if s.blacklistAccount(attempt, record) {
				summary.Blacklisted++
			}
		}
	}
}

// reverse moves an approved attempt to chargebacked and undoes its effect
// on the debtor and the account's lifetime total.
func (s *service) reverse(attempt *models.BillingAttempt, record *gateway.ChargebackRecord, occurredAt time.Time) bool {
	if !attempt.CanTransitionTo(models.AttemptStatusChargebacked) {
		log.Printf("[chargeback] attempt %d: status %s cannot be chargebacked", attempt.ID, attempt.Status)
		return false
	}

	attempt.Status = models.AttemptStatusChargebacked
	attempt.ChargebackAt = &occurredAt
	attempt.ChargebackReason = record.ReasonCode
	if err := s.attempts.Update(attempt); err != nil {
		log.Printf("[chargeback] attempt %d: update failed: %v", attempt.ID, err)
		return false
	}

	if err := s.debtors.UpdateStatus(attempt.DebtorID, models.DebtorStatusChargebacked); err != nil && !errors.Is(err, repositories.ErrInvalidTransition) {
		log.Printf("[chargeback] debtor %d: status update failed: %v", attempt.DebtorID, err)
	}
	if attempt.ProfileID != nil {
		if err := s.profiles.DeductCharged(*attempt.ProfileID, attempt.Amount); err != nil {
			log.Printf("[chargeback] profile %d: lifetime total deduct failed: %v", *attempt.ProfileID, err)
		}
	}
	return true
}

func (s *service) blacklistAccount(attempt *models.BillingAttempt, record *gateway.ChargebackRecord) bool {
	if attempt.ProfileID == nil {
		return false
	}
	profile, err := s.profiles.GetByID(*attempt.ProfileID)
	if err != nil {
		log.Printf("[chargeback] profile %d: lookup failed: %v", *attempt.ProfileID, err)
		return false
	}

	exists, err := s.blacklist.ExistsForHash(profile.AccountHash)
	if err != nil {
		log.Printf("[chargeback] profile %d: blacklist check failed: %v", profile.ID, err)
		return false
	}
	if exists {
		return false
	}

	entry := &models.BlacklistEntry{
		AccountHash: profile.AccountHash,
		Reason:      fmt.Sprintf("chargeback %s: %s", record.ReasonCode, record.ReasonText),
		Source:      models.BlacklistSourceChargeback,
		MatchType:   models.RoutingMatchExact,
	}
	if err := s.blacklist.Create(entry); err != nil {
		log.Printf("[chargeback] profile %d: blacklist insert failed: %v", profile.ID, err)
		return false
	}

	profile.Active = false
	if err := s.profiles.Update(profile); err != nil {
		log.Printf("[chargeback] profile %d: deactivate failed: %v", profile.ID, err)
	}
	return true
}

func (s *service) exportReport(ctx context.Context, summary *SyncSummary) (string, error) {
	body, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/%s_%s_%d.json", s.config.ReportPrefix, summary.From, summary.To, time.Now().Unix())
	if err := s.storage.Put(ctx, key, body, "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

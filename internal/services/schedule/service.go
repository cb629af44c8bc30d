// Package schedule drives cadence-based billing for recurring bank account
// profiles. Immediate accounts bill as soon as a debtor is billable;
// quarterly and semiannual accounts bill on a schedule anchored at the last
// successful charge.
package schedule

import (
	"context"
	"errors"
	"log"
	"time"

	"recoup/internal/locks"
	"recoup/internal/models"
	"recoup/internal/repositories"
	"recoup/internal/services/billing"
)

const cycleLockKey = "lock:schedule:cycle"

var (
	ErrCycleInProgress = errors.New("billing cycle already running")
	ErrUnknownCadence  = errors.New("unknown cadence model")
)

// Config tunes the cycle run.
type Config struct {
	BatchLimit int
	// LifetimeCap mirrors the dispatcher's cap so a maxed-out account is
	// skipped before the gateway is called.
	LifetimeCap float64
	LockTTL     time.Duration
}

// CycleSummary reports one scheduled billing run.
type CycleSummary struct {
	Due        int
	Dispatched int
	Skipped    int
	Errored    int
}

type Service interface {
	// RunDue bills every due profile once and advances its schedule.
	RunDue(ctx context.Context) (*CycleSummary, error)
	// SwitchCadence moves a profile to a new cadence model and clears its
	// schedule; the next successful charge re-anchors it.
	SwitchCadence(ctx context.Context, profileID uint, cadence string) error
	// NextBillTime computes the next scheduled charge after a success at
	// anchor. Immediate accounts have no schedule and get nil.
	NextBillTime(cadence string, anchor time.Time) *time.Time
}

type service struct {
	profiles repositories.ProfileRepository
	debtors  repositories.DebtorRepository
	billing  billing.Service
	locker   *locks.Manager
	config   Config
}

func NewService(
	profiles repositories.ProfileRepository,
	debtors repositories.DebtorRepository,
	billingService billing.Service,
	locker *locks.Manager,
	config Config,
) Service {
	if profiles == nil || debtors == nil {
		panic("repositories are required")
	}
	if billingService == nil {
		panic("billing service is required")
	}
	if locker == nil {
		panic("lock manager is required")
	}
	if config.BatchLimit <= 0 {
		config.BatchLimit = 500
	}
	if config.LifetimeCap <= 0 {
		config.LifetimeCap = 5000.00
	}
	if config.LockTTL == 0 {
		config.LockTTL = 30 * time.Minute
	}
	return &service{
		profiles: profiles,
		debtors:  debtors,
		billing:  billingService,
		locker:   locker,
		config:   config,
	}
}

func (s *service) NextBillTime(cadence string, anchor time.Time) *time.Time {
	switch cadence {
	case models.CadenceQuarterly:
		next := anchor.AddDate(0, 0, 90)
		return &next
	case models.CadenceSemiannual:
		next := anchor.AddDate(0, 6, 0)
		return &next
	}
	return nil
}

func (s *service) RunDue(ctx context.Context) (*CycleSummary, error) {
	lock, err := s.locker.Acquire(ctx, cycleLockKey, s.config.LockTTL)
	if err != nil {
		if errors.Is(err, locks.ErrAlreadyLocked) {
			return nil, ErrCycleInProgress
		}
		return nil, err
	}
	defer lock.Release(ctx)

	// A schedule in the past means the account is simply due now; no
	// catch-up charges are issued for missed periods.
	profiles, err := s.profiles.ListDue(time.Now(), s.config.BatchLimit)
	if err != nil {
		return nil, err
	}

	summary := &CycleSummary{Due: len(profiles)}
	for i := range profiles {
		s.billProfile(ctx, &profiles[i], summary)
	}
	return summary, nil
}

func (s *service) billProfile(ctx context.Context, profile *models.BankAccountProfile, summary *CycleSummary) {
	debtors, err := s.debtors.ListBillableByProfile(profile.ID)
	if err != nil {
		log.Printf("[schedule] profile %d: debtor lookup failed: %v", profile.ID, err)
		summary.Errored++
		return
	}
	if len(debtors) == 0 {
		s.reanchor(profile)
		summary.Skipped++
		return
	}

	if !profile.UnderCap(debtors[0].Amount, s.config.LifetimeCap) {
		summary.Skipped++
		return
	}

	// One debtor per cycle; the rest wait for the next due date. The
	// open-attempt guard in dispatch keeps a retry of this cycle from
	// double-charging.
	attempt, err := s.billing.Dispatch(ctx, debtors[0].ID)
	switch {
	case errors.Is(err, billing.ErrNotEligible):
		s.reanchor(profile)
		summary.Skipped++
		return
	case err != nil:
		log.Printf("[schedule] profile %d: dispatch failed: %v", profile.ID, err)
		summary.Errored++
		return
	}
	summary.Dispatched++

	if attempt.Status == models.AttemptStatusApproved {
		s.advance(profile, time.Now())
	}
}

// advance re-anchors the schedule at the successful charge.
func (s *service) advance(profile *models.BankAccountProfile, successAt time.Time) {
	next := s.NextBillTime(profile.CadenceModel, successAt)
	if next == nil {
		return
	}
	profile.NextBillAt = next
	if err := s.profiles.Update(profile); err != nil {
		log.Printf("[schedule] profile %d: schedule update failed: %v", profile.ID, err)
	}
}

// reanchor repairs the schedule when a success landed through the webhook
// or reconciliation path, which does not touch next_bill_at. Without it a
// profile whose charge settled asynchronously would stay due forever.
func (s *service) reanchor(profile *models.BankAccountProfile) {
	if profile.LastSuccessAt == nil {
		return
	}
	next := s.NextBillTime(profile.CadenceModel, *profile.LastSuccessAt)
	if next == nil || !next.After(time.Now()) {
		return
	}
	if profile.NextBillAt != nil && !profile.NextBillAt.Before(*next) {
		return
	}
	profile.NextBillAt = next
	if err := s.profiles.Update(profile); err != nil {
		log.Printf("[schedule] profile %d: schedule update failed: %v", profile.ID, err)
	}
}

func (s *service) SwitchCadence(ctx context.Context, profileID uint, cadence string) error {
	switch cadence {
	case models.CadenceImmediate, models.CadenceQuarterly, models.CadenceSemiannual:
	default:
		return ErrUnknownCadence
	}
	return s.profiles.SwitchCadence(profileID, cadence)
}

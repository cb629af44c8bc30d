package models

import (
	"time"

	"gorm.io/gorm"
)

// Pipeline stage statuses. Each stage on an upload moves through these
// independently of the others.
const (
	StageStatusIdle       = "idle"
	StageStatusProcessing = "processing"
	StageStatusCompleted  = "completed"
	StageStatusFailed     = "failed"
)

// Upload stage names used by lock keys and stage-status updates.
const (
	StageValidation     = "validation"
	StageVerification   = "verification"
	StageBilling        = "billing"
	StageReconciliation = "reconciliation"
)

// Upload is one imported batch of debtor records. Each pipeline stage
// carries its own status plus the id of the batch job currently running it,
// so "is this still running" is answerable without re-deriving from row
// counts.
type Upload struct {
	ID         uint   `gorm:"primarykey"`
	FileName   string `gorm:"not null"`
	StorageKey string
	TotalRows  int

	ValidationStatus     string `gorm:"default:'idle'"`
	ValidationJobID      string
	VerificationStatus   string `gorm:"default:'idle'"`
	VerificationJobID    string
	BillingStatus        string `gorm:"default:'idle'"`
	BillingJobID         string
	ReconciliationStatus string `gorm:"default:'idle'"`
	ReconciliationJobID  string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// StageStatus returns the status of the named stage.
func (u *Upload) StageStatus(stage string) string {
	switch stage {
	case StageValidation:
		return u.ValidationStatus
	case StageVerification:
		return u.VerificationStatus
	case StageBilling:
		return u.BillingStatus
	case StageReconciliation:
		return u.ReconciliationStatus
	}
	return ""
}

// SetStageStatus updates the named stage status and batch job reference.
func (u *Upload) SetStageStatus(stage, status, jobID string) {
	switch stage {
	case StageValidation:
		u.ValidationStatus = status
		u.ValidationJobID = jobID
	case StageVerification:
		u.VerificationStatus = status
		u.VerificationJobID = jobID
	case StageBilling:
		u.BillingStatus = status
		u.BillingJobID = jobID
	case StageReconciliation:
		u.ReconciliationStatus = status
		u.ReconciliationJobID = jobID
	}
}

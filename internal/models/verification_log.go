package models

import "time"

// VerificationLog is one verification result for one debtor in one run.
type VerificationLog struct {
	ID       uint   `gorm:"primarykey"`
	DebtorID uint   `gorm:"index;not null"`
	UploadID uint   `gorm:"index"`
	RunID    string `gorm:"index"`

	Score          int
	Classification string
	BankName       string
	BankCode       string
	BIC            string
	NameMatch      string
	Escalated      bool `gorm:"default:false"`

	CreatedAt time.Time
}

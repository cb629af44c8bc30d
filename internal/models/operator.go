package models

import (
	"time"

	"gorm.io/gorm"
)

// Operator is a back-office account for the operator API.
type Operator struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null"`
	Password     string `gorm:"not null"`
	Name         string
	Role         string `gorm:"default:'operator'"`
	TokenVersion int    `gorm:"default:1"`
	LastLoginAt  time.Time
}

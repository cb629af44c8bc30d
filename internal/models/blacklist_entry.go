package models

import (
	"strings"
	"time"
)

// Blacklist entry sources.
const (
	BlacklistSourceManual     = "manual"
	BlacklistSourceImport     = "import"
	BlacklistSourceChargeback = "chargeback"
)

// Routing code match modes.
const (
	RoutingMatchExact  = "exact"
	RoutingMatchPrefix = "prefix"
)

// BlacklistEntry excludes a bank account (by hash) or a routing code from
// future billing.
type BlacklistEntry struct {
	ID          uint   `gorm:"primarykey"`
	AccountHash string `gorm:"index"`
	RoutingCode string `gorm:"index"`
	MatchType   string `gorm:"default:'exact'"`
	Reason      string
	Source      string `gorm:"default:'manual'"`
	CreatedAt   time.Time
}

// MatchesRouting reports whether the entry blocks the given routing code.
func (e *BlacklistEntry) MatchesRouting(code string) bool {
	if e.RoutingCode == "" || code == "" {
		return false
	}
	if e.MatchType == RoutingMatchPrefix {
		return strings.HasPrefix(code, e.RoutingCode)
	}
	return e.RoutingCode == code
}

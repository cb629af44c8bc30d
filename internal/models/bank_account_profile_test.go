package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHashAccountNumber(t *testing.T) {
	base := HashAccountNumber("DE89370400440532013000")

	// Spacing and case never change the profile key.
	assert.Equal(t, base, HashAccountNumber("de89 3704 0044 0532 0130 00"))
	assert.Equal(t, base, HashAccountNumber(" DE89370400440532013000 "))

	assert.NotEqual(t, base, HashAccountNumber("DE89370400440532013001"))
	assert.Len(t, base, 64)
}

func TestUnderCap(t *testing.T) {
	p := &BankAccountProfile{LifetimeChargedAmount: 4900}
	assert.True(t, p.UnderCap(100, 5000))
	assert.False(t, p.UnderCap(100.01, 5000))
}

func TestDueAt(t *testing.T) {
	now := time.Now()

	unscheduled := &BankAccountProfile{}
	assert.True(t, unscheduled.DueAt(now))

	past := now.Add(-time.Hour)
	assert.True(t, (&BankAccountProfile{NextBillAt: &past}).DueAt(now))

	future := now.Add(time.Hour)
	assert.False(t, (&BankAccountProfile{NextBillAt: &future}).DueAt(now))
}

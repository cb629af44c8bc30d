package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttemptCanTransitionTo(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{AttemptStatusPending, AttemptStatusApproved, true},
		{AttemptStatusPending, AttemptStatusDeclined, true},
		{AttemptStatusPending, AttemptStatusError, true},
		{AttemptStatusPending, AttemptStatusVoided, true},
		{AttemptStatusPending, AttemptStatusChargebacked, false},

		// A settled attempt ignores late gateway updates.
		{AttemptStatusApproved, AttemptStatusDeclined, false},
		{AttemptStatusApproved, AttemptStatusVoided, false},
		{AttemptStatusApproved, AttemptStatusChargebacked, true},
		{AttemptStatusVoided, AttemptStatusApproved, false},
		{AttemptStatusChargebacked, AttemptStatusApproved, false},

		// Declined and errored attempts are replaced by a retry, never
		// mutated in place.
		{AttemptStatusDeclined, AttemptStatusApproved, false},
		{AttemptStatusError, AttemptStatusApproved, false},

		// Replaying the current status is a no-op.
		{AttemptStatusPending, AttemptStatusPending, false},
		{AttemptStatusApproved, AttemptStatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			a := &BillingAttempt{Status: tt.from}
			assert.Equal(t, tt.want, a.CanTransitionTo(tt.to))
		})
	}
}

func TestAttemptStateHelpers(t *testing.T) {
	assert.True(t, (&BillingAttempt{Status: AttemptStatusPending}).IsOpen())
	assert.True(t, (&BillingAttempt{Status: AttemptStatusApproved}).IsOpen())
	assert.False(t, (&BillingAttempt{Status: AttemptStatusDeclined}).IsOpen())

	assert.True(t, (&BillingAttempt{Status: AttemptStatusDeclined}).IsRetryable())
	assert.True(t, (&BillingAttempt{Status: AttemptStatusError}).IsRetryable())
	assert.False(t, (&BillingAttempt{Status: AttemptStatusVoided}).IsRetryable())
	assert.False(t, (&BillingAttempt{Status: AttemptStatusApproved}).IsRetryable())

	assert.True(t, (&BillingAttempt{Status: AttemptStatusApproved}).IsSettled())
	assert.True(t, (&BillingAttempt{Status: AttemptStatusVoided}).IsSettled())
	assert.True(t, (&BillingAttempt{Status: AttemptStatusChargebacked}).IsSettled())
	assert.False(t, (&BillingAttempt{Status: AttemptStatusPending}).IsSettled())
	assert.False(t, (&BillingAttempt{Status: AttemptStatusDeclined}).IsSettled())
}

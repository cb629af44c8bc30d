package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycle(t *testing.T) {
	job := &Job{ID: "j-1", Status: JobStatusPending, MaxRetries: 3}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("gateway timeout")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "gateway timeout", job.ErrorMsg)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
}

func TestIsRetryable(t *testing.T) {
	job := &Job{MaxRetries: 2}
	assert.True(t, job.IsRetryable())

	job.RetryCount = 2
	assert.False(t, job.IsRetryable())
}

func TestUintPayload(t *testing.T) {
	// Payloads that went through JSON carry numbers as float64.
	job := &Job{Payload: map[string]interface{}{
		"upload_id": float64(42),
		"debtor_id": 7,
		"name":      "batch.csv",
	}}

	id, ok := job.UintPayload("upload_id")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	id, ok = job.UintPayload("debtor_id")
	assert.True(t, ok)
	assert.Equal(t, uint(7), id)

	_, ok = job.UintPayload("name")
	assert.False(t, ok)
	_, ok = job.UintPayload("missing")
	assert.False(t, ok)
}

func TestStringPayload(t *testing.T) {
	job := &Job{Payload: map[string]interface{}{
		"from":  "2026-08-01",
		"count": float64(3),
	}}

	s, ok := job.StringPayload("from")
	assert.True(t, ok)
	assert.Equal(t, "2026-08-01", s)

	_, ok = job.StringPayload("count")
	assert.False(t, ok)
	_, ok = job.StringPayload("missing")
	assert.False(t, ok)
}

package jobqueue

import (
	"context"
	"time"
)

// Lane names the priority queues. Critical payment operations drain first
// in their own worker pool; webhook processing never shares workers with
// heavy pipeline runs.
type Lane string

const (
	LaneCritical   Lane = "critical"
	LaneWebhooks   Lane = "webhooks"
	LaneOperations Lane = "operations"
	LaneDefault    Lane = "default"
)

// Lanes lists every lane in drain order.
var Lanes = []Lane{LaneCritical, LaneWebhooks, LaneOperations, LaneDefault}

// JobType identifies the registered handler for a job.
type JobType string

const (
	JobTypeWebhookProcess  JobType = "webhook_process"
	JobTypeValidationRun   JobType = "validation_run"
	JobTypeVerificationRun JobType = "verification_run"
	JobTypeBillingRun      JobType = "billing_run"
	JobTypeReconcileBulk   JobType = "reconcile_bulk"
	JobTypeChargebackSync  JobType = "chargeback_sync"
	JobTypeCycleRun        JobType = "cycle_run"
)

// JobStatus is the lifecycle state of a queued job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Job is one unit of asynchronous work. Batch runs enqueue sub-unit jobs
// that share a BatchID so partial failure stays isolated per sub-unit and
// cancellation can target the whole batch.
type Job struct {
	ID         string                 `json:"id"`
	Type       JobType                `json:"type"`
	Lane       Lane                   `json:"lane"`
	BatchID    string                 `json:"batch_id,omitempty"`
	Status     JobStatus              `json:"status"`
	Payload    map[string]interface{} `json:"payload"`
	RetryCount int                    `json:"retry_count"`
	MaxRetries int                    `json:"max_retries"`
	ErrorMsg   string                 `json:"error_msg,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// Handler processes one dequeued job.
type Handler func(ctx context.Context, job *Job) error

func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.ProcessedAt = &now
	j.UpdatedAt = now
}

func (j *Job) MarkAsCompleted() {
	j.Status = JobStatusCompleted
	j.UpdatedAt = time.Now()
}

func (j *Job) MarkAsFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMsg = errMsg
	j.RetryCount++
	j.UpdatedAt = time.Now()
}

func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}

// IsRetryable reports whether the job still has retry budget. Retries are
// bounded by this counter, never by wall-clock.
func (j *Job) IsRetryable() bool {
	return j.RetryCount < j.MaxRetries
}

// UintPayload reads an unsigned id out of the JSON payload, which decodes
// numbers as float64.
func (j *Job) UintPayload(key string) (uint, bool) {
	v, ok := j.Payload[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return uint(n), true
	case int:
		return uint(n), true
	case uint:
		return n, true
	}
	return 0, false
}

// StringPayload reads a string field out of the payload.
func (j *Job) StringPayload(key string) (string, bool) {
	v, ok := j.Payload[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

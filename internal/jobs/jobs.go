// Package jobs binds the pipeline services to the job queue: it owns the
// payload shapes and the handler registrations for every job type.
package jobs

import (
	"context"
	"errors"
	"time"

	"recoup/internal/jobqueue"
	"recoup/internal/services/billing"
	"recoup/internal/services/chargeback"
	"recoup/internal/services/reconciliation"
	"recoup/internal/services/schedule"
	"recoup/internal/services/validation"
	"recoup/internal/services/verification"
	"recoup/internal/services/webhookingest"
)

// Enqueuer adapts the queue to the webhook ingest service so ingestion
// does not depend on the queue package directly.
type Enqueuer struct {
	queue *jobqueue.Queue
}

func NewEnqueuer(queue *jobqueue.Queue) *Enqueuer {
	return &Enqueuer{queue: queue}
}

func (e *Enqueuer) EnqueueWebhook(ctx context.Context, eventID uint) error {
	_, err := e.queue.Enqueue(ctx, jobqueue.LaneWebhooks, jobqueue.JobTypeWebhookProcess, "",
		map[string]interface{}{"event_id": eventID})
	return err
}

// Services collects everything the queue handlers dispatch to.
type Services struct {
	Validation     validation.Service
	Verification   verification.Service
	Billing        billing.Service
	Reconciliation reconciliation.Service
	Chargeback     chargeback.Service
	Schedule       schedule.Service
	Webhooks       webhookingest.Service
}

// Register wires every job type to its service. Stage runs that find their
// stage lock held return nil: another run already owns the work and a
// retry would only fight the lock.
func Register(queue *jobqueue.Queue, s Services) {
	queue.Register(jobqueue.JobTypeWebhookProcess, func(ctx context.Context, job *jobqueue.Job) error {
		eventID, ok := job.UintPayload("event_id")
		if !ok {
			return errors.New("webhook job missing event_id")
		}
		return s.Webhooks.Process(ctx, eventID)
	})

	queue.Register(jobqueue.JobTypeValidationRun, func(ctx context.Context, job *jobqueue.Job) error {
		uploadID, ok := job.UintPayload("upload_id")
		if !ok {
			return errors.New("validation job missing upload_id")
		}
		_, err := s.Validation.RunUpload(ctx, uploadID)
		if errors.Is(err, validation.ErrRunInProgress) {
			return nil
		}
		return err
	})

	queue.Register(jobqueue.JobTypeVerificationRun, func(ctx context.Context, job *jobqueue.Job) error {
		uploadID, ok := job.UintPayload("upload_id")
		if !ok {
			return errors.New("verification job missing upload_id")
		}
		_, err := s.Verification.RunUpload(ctx, uploadID)
		if errors.Is(err, verification.ErrRunInProgress) {
			return nil
		}
		return err
	})

	queue.Register(jobqueue.JobTypeBillingRun, func(ctx context.Context, job *jobqueue.Job) error {
		uploadID, ok := job.UintPayload("upload_id")
		if !ok {
			return errors.New("billing job missing upload_id")
		}
		_, err := s.Billing.RunUpload(ctx, uploadID)
		if errors.Is(err, billing.ErrRunInProgress) {
			return nil
		}
		return err
	})

	queue.Register(jobqueue.JobTypeReconcileBulk, func(ctx context.Context, job *jobqueue.Job) error {
		limit, _ := job.UintPayload("limit")
		_, err := s.Reconciliation.RunBulk(ctx, int(limit))
		if errors.Is(err, reconciliation.ErrBulkRunInProgress) {
			return nil
		}
		return err
	})

	queue.Register(jobqueue.JobTypeChargebackSync, func(ctx context.Context, job *jobqueue.Job) error {
		fromStr, ok := job.StringPayload("from")
		if !ok {
			return errors.New("chargeback job missing from date")
		}
		toStr, ok := job.StringPayload("to")
		if !ok {
			return errors.New("chargeback job missing to date")
		}
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return err
		}
		to, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return err
		}
		dryRun, _ := job.Payload["dry_run"].(bool)
		_, err = s.Chargeback.Sync(ctx, from, to, dryRun)
		if errors.Is(err, chargeback.ErrSyncInProgress) {
			return nil
		}
		return err
	})

	queue.Register(jobqueue.JobTypeCycleRun, func(ctx context.Context, job *jobqueue.Job) error {
		_, err := s.Schedule.RunDue(ctx)
		if errors.Is(err, schedule.ErrCycleInProgress) {
			return nil
		}
		return err
	})
}

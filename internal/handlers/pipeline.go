package handlers

import (
	"errors"
	"strconv"

	"recoup/internal/jobqueue"
	"recoup/internal/repositories"
	"recoup/internal/services/billing"
	"recoup/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// PipelineHandler exposes the per-upload stage triggers. Each trigger
// enqueues a background job and returns the job reference; progress is read
// back off the upload's stage statuses.
type PipelineHandler struct {
	queue    *jobqueue.Queue
	uploads  repositories.UploadRepository
	billing  billing.Service
}

func NewPipelineHandler(queue *jobqueue.Queue, uploads repositories.UploadRepository, billingService billing.Service) *PipelineHandler {
	return &PipelineHandler{queue: queue, uploads: uploads, billing: billingService}
}

func (h *PipelineHandler) uploadID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func (h *PipelineHandler) trigger(c *fiber.Ctx, jobType jobqueue.JobType, lane jobqueue.Lane) error {
	uploadID, err := h.uploadID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid upload ID")
	}
	if _, err := h.uploads.GetByID(uploadID); err != nil {
		if errors.Is(err, repositories.ErrUploadNotFound) {
			return response.NotFound(c, "Upload not found")
		}
		return response.ServerError(c, "Failed to load upload")
	}

	job, err := h.queue.Enqueue(c.Context(), lane, jobType, "",
		map[string]interface{}{"upload_id": uploadID})
	if err != nil {
		return response.ServerError(c, "Failed to enqueue run")
	}
	return response.Success(c, "Run queued", fiber.Map{"job_id": job.ID})
}

func (h *PipelineHandler) RunValidation(c *fiber.Ctx) error {
	return h.trigger(c, jobqueue.JobTypeValidationRun, jobqueue.LaneOperations)
}

func (h *PipelineHandler) RunVerification(c *fiber.Ctx) error {
	return h.trigger(c, jobqueue.JobTypeVerificationRun, jobqueue.LaneOperations)
}

func (h *PipelineHandler) RunBilling(c *fiber.Ctx) error {
	return h.trigger(c, jobqueue.JobTypeBillingRun, jobqueue.LaneCritical)
}

// RunBulkReconcile queues a bulk reconciliation across all uploads.
func (h *PipelineHandler) RunBulkReconcile(c *fiber.Ctx) error {
	var input struct {
		Limit int `json:"limit"`
	}
	if err := c.BodyParser(&input); err != nil && len(c.Body()) > 0 {
		return response.BadRequest(c, "Invalid request format")
	}

	job, err := h.queue.Enqueue(c.Context(), jobqueue.LaneOperations, jobqueue.JobTypeReconcileBulk, "",
		map[string]interface{}{"limit": input.Limit})
	if err != nil {
		return response.ServerError(c, "Failed to enqueue run")
	}
	return response.Success(c, "Reconciliation queued", fiber.Map{"job_id": job.ID})
}

// DispatchDebtor submits a single billing attempt synchronously.
func (h *PipelineHandler) DispatchDebtor(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid debtor ID")
	}

	attempt, err := h.billing.Dispatch(c.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrNotEligible):
			return response.Conflict(c, err.Error())
		case errors.Is(err, repositories.ErrDebtorNotFound):
			return response.NotFound(c, "Debtor not found")
		default:
			return response.ServerError(c, "Dispatch failed")
		}
	}
	return response.Success(c, "Attempt dispatched", attempt)
}

// GetUpload returns the upload with its per-stage statuses.
func (h *PipelineHandler) GetUpload(c *fiber.Ctx) error {
	uploadID, err := h.uploadID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid upload ID")
	}
	upload, err := h.uploads.GetByID(uploadID)
	if err != nil {
		if errors.Is(err, repositories.ErrUploadNotFound) {
			return response.NotFound(c, "Upload not found")
		}
		return response.ServerError(c, "Failed to load upload")
	}
	return response.Success(c, "Upload retrieved", upload)
}

// GetJob returns a queued job's current state.
func (h *PipelineHandler) GetJob(c *fiber.Ctx) error {
	job, err := h.queue.GetJob(c.Context(), c.Params("jobId"))
	if err != nil {
		return response.NotFound(c, "Job not found")
	}
	return response.Success(c, "Job retrieved", job)
}

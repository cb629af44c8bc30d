package handlers

import (
	"errors"
	"strconv"

	"recoup/internal/jobqueue"
	"recoup/internal/repositories"
	"recoup/internal/services/schedule"
	"recoup/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type ProfileHandler struct {
	profiles repositories.ProfileRepository
	schedule schedule.Service
	queue    *jobqueue.Queue
}

func NewProfileHandler(profiles repositories.ProfileRepository, scheduleService schedule.Service, queue *jobqueue.Queue) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, schedule: scheduleService, queue: queue}
}

func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid profile ID")
	}
	profile, err := h.profiles.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			return response.NotFound(c, "Profile not found")
		}
		return response.ServerError(c, "Failed to load profile")
	}
	return response.Success(c, "Profile retrieved", profile)
}

// SwitchCadence moves the profile to a new billing cadence.
func (h *ProfileHandler) SwitchCadence(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid profile ID")
	}

	var input struct {
		Cadence string `json:"cadence"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	err = h.schedule.SwitchCadence(c.Context(), uint(id), input.Cadence)
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrUnknownCadence):
			return response.BadRequest(c, "Cadence must be immediate, quarterly, or semiannual")
		case errors.Is(err, repositories.ErrProfileNotFound):
			return response.NotFound(c, "Profile not found")
		default:
			return response.ServerError(c, "Failed to switch cadence")
		}
	}
	return response.Success(c, "Cadence switched", nil)
}

// RunCycle queues a scheduled billing run over all due profiles.
func (h *ProfileHandler) RunCycle(c *fiber.Ctx) error {
	job, err := h.queue.Enqueue(c.Context(), jobqueue.LaneOperations, jobqueue.JobTypeCycleRun, "", nil)
	if err != nil {
		return response.ServerError(c, "Failed to enqueue run")
	}
	return response.Success(c, "Cycle run queued", fiber.Map{"job_id": job.ID})
}

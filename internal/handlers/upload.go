package handlers

import (
	"errors"
	"io"
	"strconv"

	"recoup/internal/repositories"
	"recoup/internal/services/uploads"
	"recoup/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type UploadHandler struct {
	uploads uploads.Service
}

func NewUploadHandler(uploadService uploads.Service) *UploadHandler {
	return &UploadHandler{uploads: uploadService}
}

// Create imports a debtor batch file (multipart field "file").
func (h *UploadHandler) Create(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "A file field is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.BadRequest(c, "Failed to open uploaded file")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return response.ServerError(c, "Failed to read uploaded file")
	}

	upload, skipped, err := h.uploads.CreateFromCSV(c.Context(), fileHeader.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, uploads.ErrEmptyFile), errors.Is(err, uploads.ErrMissingColumn):
			return response.BadRequest(c, err.Error())
		default:
			return response.ServerError(c, "Import failed")
		}
	}

	return response.Success(c, "Upload imported", fiber.Map{
		"upload":       upload,
		"skipped_rows": skipped,
	})
}

// Delete removes an upload that has not produced billing attempts.
func (h *UploadHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid upload ID")
	}

	if err := h.uploads.Delete(c.Context(), uint(id)); err != nil {
		switch {
		case errors.Is(err, uploads.ErrHasAttempts):
			return response.Conflict(c, "Upload has billing attempts and cannot be deleted")
		case errors.Is(err, repositories.ErrUploadNotFound):
			return response.NotFound(c, "Upload not found")
		default:
			return response.ServerError(c, "Failed to delete upload")
		}
	}
	return response.Success(c, "Upload deleted", nil)
}

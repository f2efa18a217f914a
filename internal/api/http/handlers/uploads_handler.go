package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mesadeayuda/helpdesk/internal/storage"
)

// UploadsHandler serves stored ticket images.
type UploadsHandler struct {
	uploads *storage.UploadStore
}

// NewUploadsHandler constructs handler.
func NewUploadsHandler(uploads *storage.UploadStore) *UploadsHandler {
	return &UploadsHandler{uploads: uploads}
}

// Serve GET /uploads/:filename.
func (h *UploadsHandler) Serve(c *fiber.Ctx) error {
	path, err := h.uploads.Path(c.Params("filename"))
	if err != nil {
		return err
	}
	return c.SendFile(path)
}

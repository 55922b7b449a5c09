package server

import (
	"errors"

	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
)

var errUploadsDisabled = errors.New("uploads are disabled")

// UploadImages handles POST /api/upload with one or more multipart "images"
// files. The response value can be sent as a post's images field.
func (s *Server) UploadImages(c *fiber.Ctx) error {
	if s.uploadService == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable, errUploadsDisabled)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Expected a multipart form"))
	}

	images, err := s.uploadService.SaveImages(c.UserContext(), form.File["images"])
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"images": images})
}

package server

import (
	"blogme/internal/models"
	"blogme/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadMedia handles POST /api/media with a multipart "file" field. Progress is
// pushed to the uploader's websocket topic as upload_progress events.
func (s *Server) UploadMedia(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("A file is required"))
	}
	file, err := header.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read the uploaded file"))
	}
	defer func() { _ = file.Close() }()

	ctx := c.UserContext()
	id := identity(c)
	result, err := s.mediaService.Upload(ctx, id, service.UploadInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
		OnProgress: func(read, total int64, pct int) {
			s.publishUserEvent(ctx, id.UserID, EventUploadProgress, map[string]any{
				"filename": header.Filename,
				"read":     read,
				"total":    total,
				"percent":  pct,
			})
		},
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

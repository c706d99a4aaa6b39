package server

import (
	"blogme/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetDashboard handles GET /api/dashboard?range=7d|30d|90d for the signed-in author.
func (s *Server) GetDashboard(c *fiber.Ctx) error {
	rng, err := service.ParseTrendRange(c.Query("range"))
	if err != nil {
		return s.respondError(c, err)
	}

	dash, err := s.dashService.Dashboard(c.UserContext(), identity(c), rng)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(dash)
}

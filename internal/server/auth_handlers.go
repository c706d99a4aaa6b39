package server

import (
	"blogme/internal/middleware"
	"blogme/internal/models"
	"blogme/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Signup handles POST /api/auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req service.SignupInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	out, err := s.authService.Signup(c.UserContext(), req)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	out, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(out)
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, _ := c.Locals(localClaims).(*middleware.TokenClaims)
	if err := s.authService.Logout(c.UserContext(), claims); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Refresh handles POST /api/auth/refresh. The old token stops working.
func (s *Server) Refresh(c *fiber.Ctx) error {
	token, ok := middleware.BearerToken(c)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthenticatedError("Authorization required"))
	}
	out, err := s.authService.Refresh(c.UserContext(), token)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(out)
}

// Session handles GET /api/auth/session and returns the signed-in user.
func (s *Server) Session(c *fiber.Ctx) error {
	user, err := s.authService.Session(c.UserContext(), identity(c).UserID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

// RequestPasswordReset handles POST /api/auth/password-reset. The response is the
// same whether or not the address belongs to an account.
func (s *Server) RequestPasswordReset(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email is required"))
	}

	if _, err := s.authService.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "If the address is registered, a reset link has been sent",
	})
}

// ConfirmPasswordReset handles POST /api/auth/password-reset/confirm
func (s *Server) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Token and password are required"))
	}

	if err := s.authService.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password updated"})
}

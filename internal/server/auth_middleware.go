package server

import (
	"context"
	"errors"
	"strconv"

	"blogme/internal/cache"
	"blogme/internal/middleware"
	"blogme/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
)

const (
	localUserID   = "userID"
	localIdentity = "identity"
	localClaims   = "tokenClaims"
)

// AuthRequired validates the bearer token, rejects revoked tokens and loads the
// caller's identity into locals.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := middleware.BearerToken(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Authorization required"))
		}
		if err := s.authenticate(c, token); err != nil {
			return s.respondError(c, err)
		}
		return c.Next()
	}
}

// OptionalAuth attaches the caller's identity when a valid token is present and
// otherwise lets the request through anonymously.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token, ok := middleware.BearerToken(c); ok {
			_ = s.authenticate(c, token)
		}
		return c.Next()
	}
}

func (s *Server) authenticate(c *fiber.Ctx, token string) error {
	claims, err := s.authService.Authenticate(c.UserContext(), token)
	if err != nil {
		return err
	}
	user, err := s.authService.Session(c.UserContext(), claims.UserID)
	if err != nil {
		return err
	}
	s.setIdentity(c, models.NewIdentity(user.ID, user.IsAdmin))
	c.Locals(localClaims, claims)
	return nil
}

func (s *Server) setIdentity(c *fiber.Ctx, id *models.Identity) {
	c.Locals(localUserID, id.UserID)
	c.Locals(localIdentity, id)
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, id.UserID)
	c.SetUserContext(ctx)
}

// AdminRequired rejects non-admin users with 403. It must follow AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := identity(c)
		if id == nil || !id.IsAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// WebSocketTicketRequired authenticates a websocket upgrade with a single-use
// ticket from POST /api/ws/ticket. Tokens are never accepted in the query string.
func (s *Server) WebSocketTicketRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		ticket := c.Query("ticket")
		if ticket == "" || s.redis == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("WebSocket ticket required"))
		}

		raw, err := s.redis.GetDel(c.UserContext(), cache.WebSocketTicketKey(ticket)).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				return s.respondError(c, models.NewRemoteOperationError(err))
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Invalid or expired WebSocket ticket"))
		}
		userID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || userID == 0 {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Invalid or expired WebSocket ticket"))
		}

		c.Locals(localUserID, uint(userID))
		return c.Next()
	}
}

// identity returns the authenticated caller, or nil for anonymous requests.
func identity(c *fiber.Ctx) *models.Identity {
	id, _ := c.Locals(localIdentity).(*models.Identity)
	return id
}

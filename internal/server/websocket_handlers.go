package server

import (
	"errors"
	"log/slog"
	"strconv"

	"blogme/internal/cache"
	"blogme/internal/middleware"
	"blogme/internal/models"
	"blogme/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

var errNoTicketStore = errors.New("websocket tickets need redis")

// IssueWSTicket handles POST /api/ws/ticket. The ticket is single-use and short-lived
// so the long-lived token never appears in a websocket URL.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return s.respondError(c, models.NewRemoteOperationError(errNoTicketStore))
	}

	ticket := uuid.NewString()
	userID := identity(c).UserID
	err := s.redis.Set(c.UserContext(), cache.WebSocketTicketKey(ticket),
		strconv.FormatUint(uint64(userID), 10), cache.WebSocketTicketTTL).Err()
	if err != nil {
		return s.respondError(c, models.NewRemoteOperationError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(cache.WebSocketTicketTTL.Seconds()),
	})
}

// WebsocketHandler registers the connection with the hub on the user's topic.
// Clients then send {"type":"subscribe","post_id":N} to follow a post.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		uid, ok := conn.Locals(localUserID).(uint)
		if !ok || uid == 0 {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration refused",
				slog.Uint64("user_id", uint64(uid)), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":{"message":"`+err.Error()+`"}}`))
			_ = conn.Close()
			return
		}
		client.IncomingHandler = s.hub.HandleMessage

		if hello, err := (notifications.Event{
			Type:    "connected",
			Payload: map[string]uint{"user_id": uid},
		}).Encode(); err == nil {
			client.TrySend(hello)
		}

		go client.WritePump()
		client.ReadPump()
	})
}

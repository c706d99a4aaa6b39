package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"blogme/internal/cache"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueWSTicket(t *testing.T) {
	env := newTestEnv(t, true)
	token, userID := env.signup(t, "socketeer")

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/ws/ticket", "", nil).StatusCode)

	resp := env.do(t, http.MethodPost, "/api/ws/ticket", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Ticket    string `json:"ticket"`
		ExpiresIn int    `json:"expires_in"`
	}
	decode(t, resp, &out)
	require.NotEmpty(t, out.Ticket)
	assert.Equal(t, int(cache.WebSocketTicketTTL.Seconds()), out.ExpiresIn)

	stored, err := env.mr.Get(cache.WebSocketTicketKey(out.Ticket))
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatUint(uint64(userID), 10), stored)
	assert.Equal(t, cache.WebSocketTicketTTL, env.mr.TTL(cache.WebSocketTicketKey(out.Ticket)))
}

func TestIssueWSTicket_NoRedis(t *testing.T) {
	env := newTestEnv(t, false)
	token, _ := env.signup(t, "offline")

	resp := env.do(t, http.MethodPost, "/api/ws/ticket", token, nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestWebSocketTicketRequired_SingleUse(t *testing.T) {
	env := newTestEnv(t, true)

	app := fiber.New()
	app.Get("/ws-probe", env.srv.WebSocketTicketRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals(localUserID)})
	})
	probe := func(ticket string, upgrade bool) int {
		req := httptest.NewRequest(http.MethodGet, "/ws-probe?ticket="+ticket, nil)
		if upgrade {
			req.Header.Set("Connection", "Upgrade")
			req.Header.Set("Upgrade", "websocket")
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	require.NoError(t, env.srv.redis.Set(context.Background(),
		cache.WebSocketTicketKey("t-1"), "42", cache.WebSocketTicketTTL).Err())

	assert.Equal(t, http.StatusUpgradeRequired, probe("t-1", false))
	assert.Equal(t, http.StatusOK, probe("t-1", true))
	assert.Equal(t, http.StatusUnauthorized, probe("t-1", true), "ticket must not be reusable")
	assert.Equal(t, http.StatusUnauthorized, probe("", true))
	assert.False(t, env.mr.Exists(cache.WebSocketTicketKey("t-1")))

	require.NoError(t, env.srv.redis.Set(context.Background(),
		cache.WebSocketTicketKey("t-bad"), "nope", cache.WebSocketTicketTTL).Err())
	assert.Equal(t, http.StatusUnauthorized, probe("t-bad", true))
}

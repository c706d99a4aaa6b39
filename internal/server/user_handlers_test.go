package server

import (
	"fmt"
	"net/http"
	"testing"

	"blogme/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileRoutes(t *testing.T) {
	env := newTestEnv(t, false)
	token, userID := env.signup(t, "profiler")
	env.signup(t, "takenname")

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/users/me", "", nil).StatusCode)

	resp := env.do(t, http.MethodPut, "/api/users/me", token, map[string]any{"bio": "Writes about Go"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d", userID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var profile struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
		Bio      string `json:"bio"`
	}
	decode(t, resp, &profile)
	assert.Equal(t, "profiler", profile.Username)
	assert.Equal(t, "Writes about Go", profile.Bio)

	resp = env.do(t, http.MethodPut, "/api/users/me", token, map[string]any{"username": "takenname"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/users/9999", "", nil).StatusCode)
}

func TestGetDashboard(t *testing.T) {
	env := newTestEnv(t, false)
	token, userID := env.signup(t, "dashboarder")
	cat := testutil.SeedCategory(t, env.db, "Go")

	env.createPost(t, token, map[string]any{"title": "One", "content": "<p>1</p>", "category": cat.ID})
	env.createPost(t, token, map[string]any{"title": "Two", "content": "<p>2</p>", "category": "Go"})
	other := testutil.SeedUser(t, env.db, "notme")
	testutil.SeedPost(t, env.db, other, cat, "Not counted")

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/dashboard", "", nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/dashboard?range=1y", token, nil).StatusCode)

	resp := env.do(t, http.MethodGet, "/api/dashboard?range=30d", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var dash struct {
		Totals struct {
			Posts int `json:"posts"`
		} `json:"totals"`
		Categories map[string]int `json:"categories"`
		Range      string         `json:"range"`
		Trend      []struct {
			Date string `json:"date"`
		} `json:"trend"`
		RecentPosts []struct {
			UserID uint `json:"user_id"`
		} `json:"recent_posts"`
	}
	decode(t, resp, &dash)
	assert.Equal(t, 2, dash.Totals.Posts)
	assert.Equal(t, 2, dash.Categories["Go"])
	assert.Equal(t, "30d", dash.Range)
	assert.Len(t, dash.Trend, 30)
	for _, p := range dash.RecentPosts {
		assert.Equal(t, userID, p.UserID)
	}
}

package server

import (
	"fmt"
	"net/http"
	"testing"

	"blogme/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikePost_TogglesAndPublishes(t *testing.T) {
	env := newTestEnv(t, false)
	token, userID := env.signup(t, "fan")
	author := testutil.SeedUser(t, env.db, "liked")
	post := testutil.SeedPost(t, env.db, author, nil, "likeable")

	watcher, err := env.srv.hub.Register(userID, nil)
	require.NoError(t, err)
	require.NoError(t, env.srv.hub.Subscribe(watcher, post.ID))

	path := fmt.Sprintf("/api/posts/%d/like", post.ID)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, path, "", nil).StatusCode)

	type likeBody struct {
		Liked      bool `json:"liked"`
		LikesCount int  `json:"likes_count"`
	}

	resp := env.do(t, http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var first likeBody
	decode(t, resp, &first)
	assert.True(t, first.Liked)
	assert.Equal(t, 1, first.LikesCount)

	event := nextEvent(t, watcher)
	assert.Equal(t, EventPostReactionUpdated, event.Type)
	payload, ok := event.Payload.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, payload["likes_count"])

	resp = env.do(t, http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second likeBody
	decode(t, resp, &second)
	assert.False(t, second.Liked)
	assert.Equal(t, 0, second.LikesCount)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/posts/9999/like", token, nil).StatusCode)
}

func TestBookmarkPost_DoesNotPublish(t *testing.T) {
	env := newTestEnv(t, false)
	token, userID := env.signup(t, "saver")
	author := testutil.SeedUser(t, env.db, "saved")
	post := testutil.SeedPost(t, env.db, author, nil, "keeper")

	watcher, err := env.srv.hub.Register(userID, nil)
	require.NoError(t, err)
	require.NoError(t, env.srv.hub.Subscribe(watcher, post.ID))

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/bookmark", post.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Bookmarked     bool `json:"bookmarked"`
		BookmarksCount int  `json:"bookmarks_count"`
	}
	decode(t, resp, &out)
	assert.True(t, out.Bookmarked)
	assert.Equal(t, 1, out.BookmarksCount)
	assert.Empty(t, watcher.Send)
}

func TestSetReaction_CountsAndState(t *testing.T) {
	env := newTestEnv(t, false)
	alice, _ := env.signup(t, "alicer")
	bob, _ := env.signup(t, "bobber")
	author := testutil.SeedUser(t, env.db, "reacted")
	post := testutil.SeedPost(t, env.db, author, nil, "feelings")
	path := fmt.Sprintf("/api/posts/%d/reaction", post.ID)

	assert.Equal(t, http.StatusBadRequest,
		env.do(t, http.MethodPut, path, alice, map[string]string{"tag": "angry"}).StatusCode)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, path, alice, map[string]string{"tag": "love"}).StatusCode)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, path, bob, map[string]string{"tag": "LOVE"}).StatusCode)

	resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d/reactions", post.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var counts struct {
		PostID uint           `json:"post_id"`
		Counts map[string]int `json:"counts"`
	}
	decode(t, resp, &counts)
	assert.Equal(t, post.ID, counts.PostID)
	assert.Equal(t, 2, counts.Counts["love"])
	assert.Equal(t, 0, counts.Counts["clap"])

	// Same tag again clears it.
	resp = env.do(t, http.MethodPut, path, alice, map[string]string{"tag": "love"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var state struct {
		Liked    bool    `json:"liked"`
		Reaction *string `json:"reaction"`
	}
	decode(t, resp, &state)
	assert.Nil(t, state.Reaction)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d/reactions/me", post.ID), bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &state)
	require.NotNil(t, state.Reaction)
	assert.Equal(t, "love", *state.Reaction)
}

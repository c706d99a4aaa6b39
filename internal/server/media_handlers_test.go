package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"blogme/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartUpload(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, token, filename, contentType string, data []byte) *http.Response {
	t.Helper()
	body, ct := multipartUpload(t, filename, contentType, data)
	req := httptest.NewRequest(http.MethodPost, "/api/media", body)
	req.Header.Set("Content-Type", ct)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestUploadMedia(t *testing.T) {
	env := newTestEnv(t, false)
	token, userID := env.signup(t, "uploader")
	png := testutil.TinyPNG(t, 8, 8)

	assert.Equal(t, http.StatusUnauthorized, env.upload(t, "", "a.png", "image/png", png).StatusCode)

	watcher, err := env.srv.hub.Register(userID, nil)
	require.NoError(t, err)

	resp := env.upload(t, token, "My Photo.png", "image/png", png)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out struct {
		URL          string `json:"url"`
		ThumbnailURL string `json:"thumbnail_url"`
		Kind         string `json:"kind"`
		Name         string `json:"name"`
		Size         int64  `json:"size"`
	}
	decode(t, resp, &out)
	assert.Equal(t, "image", out.Kind)
	assert.EqualValues(t, len(png), out.Size)
	assert.Empty(t, out.ThumbnailURL)

	stored, ok := env.store.Get(out.Name)
	require.True(t, ok)
	assert.Equal(t, png, stored.Data)

	event := nextEvent(t, watcher)
	assert.Equal(t, EventUploadProgress, event.Type)
}

func TestUploadMedia_Rejections(t *testing.T) {
	env := newTestEnv(t, false)
	token, _ := env.signup(t, "rejected")

	resp := env.upload(t, token, "run.sh", "application/x-sh", []byte("#!/bin/sh"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.upload(t, token, "x.png", "image/png", []byte("<html><script>alert(document.cookie)</script></html>"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/api/media", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	raw, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = raw.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
	assert.Empty(t, env.store.Names())
}

package storage

import (
	"bytes"
	"image"
	"io"
	"strings"
	"testing"

	"blogme/internal/config"
	"blogme/internal/testutil"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"photo.jpg":             "photo.jpg",
		"my holiday (1).png":    "my_holiday__1_.png",
		"../../etc/passwd":      "passwd",
		`C:\Users\me\café.webp`: "caf_.webp",
		"":                      "file",
		".hidden":               "hidden",
		"clip-01_final.MP4":     "clip-01_final.MP4",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), "input %q", in)
	}

	long := strings.Repeat("a", 150) + ".png"
	got := SanitizeFilename(long)
	assert.Len(t, got, maxNameLen)
	assert.True(t, strings.HasSuffix(got, ".png"))
}

func TestValidateUpload(t *testing.T) {
	const limit = 10 * 1024 * 1024

	kind, err := ValidateUpload("image/JPG", 1024, limit)
	require.NoError(t, err)
	assert.Equal(t, KindImage, kind)

	kind, err = ValidateUpload("video/mp4; codecs=avc1", 1024, limit)
	require.NoError(t, err)
	assert.Equal(t, KindVideo, kind)

	_, err = ValidateUpload("application/pdf", 1024, limit)
	assert.Error(t, err)

	_, err = ValidateUpload("image/png", limit+1, limit)
	assert.ErrorContains(t, err, "10 MB")

	_, err = ValidateUpload("image/png", 0, limit)
	assert.Error(t, err)
}

func TestVerifyContent(t *testing.T) {
	png := testutil.TinyPNG(t, 3, 3)
	tests := []struct {
		name        string
		contentType string
		data        []byte
		wantErr     bool
	}{
		{"png", "image/png", png, false},
		{"png with params", "image/png; charset=binary", png, false},
		{"png declared as gif", "image/gif", png, true},
		{"html declared as png", "image/png", []byte("<html><body>hi</body></html>"), true},
		{"mp4", "video/mp4", testutil.MP4Clip(SniffLen), false},
		{"webm", "video/webm", testutil.WebMClip(SniffLen), false},
		{"ogg", "video/ogg", append([]byte("OggS\x00"), make([]byte, 64)...), false},
		{"webm declared as mp4", "video/mp4", testutil.WebMClip(SniffLen), true},
		{"empty video", "video/webm", nil, true},
		{"unsupported type", "application/pdf", []byte("%PDF-1.7"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyContent(tt.contentType, tt.data)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProgressReader_ReportsWholePercents(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 1000)
	var pcts []int
	pr := NewProgressReader(bytes.NewReader(data), int64(len(data)), func(_, _ int64, pct int) {
		pcts = append(pcts, pct)
	})

	buf := make([]byte, 3)
	for {
		_, err := pr.Read(buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1000), pr.BytesRead())
	require.NotEmpty(t, pcts)
	assert.Equal(t, 100, pcts[len(pcts)-1])
	for i := 1; i < len(pcts); i++ {
		assert.Greater(t, pcts[i], pcts[i-1])
	}
	assert.LessOrEqual(t, len(pcts), 101)
}

func TestThumbnail(t *testing.T) {
	big, err := Thumbnail(testutil.TinyPNG(t, 960, 540), ThumbnailWidth)
	require.NoError(t, err)
	cfg, err := webp.DecodeConfig(bytes.NewReader(big))
	require.NoError(t, err)
	assert.Equal(t, 480, cfg.Width)
	assert.Equal(t, 270, cfg.Height)

	small, err := Thumbnail(testutil.TinyPNG(t, 100, 50), ThumbnailWidth)
	require.NoError(t, err)
	img, _, err := image.Decode(bytes.NewReader(small))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())

	_, err = Thumbnail([]byte("not an image"), ThumbnailWidth)
	assert.Error(t, err)
}

func TestMinioStore_URL(t *testing.T) {
	store, err := NewMinioStore(&config.Config{
		MinioEndpoint: "localhost:9000",
		MinioBucket:   "blogme",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/blogme/7/a.png", store.URL("7/a.png"))

	store, err = NewMinioStore(&config.Config{
		MinioEndpoint:  "minio:9000",
		MinioBucket:    "blogme",
		MinioPublicURL: "https://cdn.example.com/blogme",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/blogme/x.webp", store.URL("/x.webp"))
}

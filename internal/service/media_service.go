package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"blogme/internal/featureflags"
	"blogme/internal/middleware"
	"blogme/internal/models"
	"blogme/internal/observability"
	"blogme/internal/storage"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const defaultMaxUploadBytes = 10 * 1024 * 1024

type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	// OnProgress receives whole-percent progress of the main object upload.
	OnProgress func(read, total int64, pct int)
}

// MediaResult describes a stored upload.
type MediaResult struct {
	URL          string       `json:"url"`
	ThumbnailURL string       `json:"thumbnail_url,omitempty"`
	ContentType  string       `json:"content_type"`
	Kind         storage.Kind `json:"kind"`
	Size         int64        `json:"size"`
	Name         string       `json:"name"`
}

type MediaService struct {
	store    storage.ObjectStore
	maxBytes int64
	flags    *featureflags.Manager
}

func NewMediaService(store storage.ObjectStore, maxBytes int64, flags *featureflags.Manager) *MediaService {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &MediaService{store: store, maxBytes: maxBytes, flags: flags}
}

// Upload stores a file under <user>/<uuid>-<name>. Images also get a WebP thumbnail
// when the media_thumbnails flag is on for the user.
func (s *MediaService) Upload(ctx context.Context, id *models.Identity, in UploadInput) (*MediaResult, error) {
	if id == nil {
		return nil, models.NewUnauthenticatedError("You must be logged in to upload")
	}
	contentType := storage.NormalizeContentType(in.ContentType)
	kind, err := storage.ValidateUpload(contentType, in.Size, s.maxBytes)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.Body == nil {
		return nil, models.NewValidationError("file is empty")
	}

	name := fmt.Sprintf("%d/%s-%s", id.UserID, uuid.NewString(), storage.SanitizeFilename(in.Filename))
	ctx, end := observability.StartSpan(ctx, "media", "upload",
		attribute.String("media.kind", string(kind)), attribute.Int64("media.size", in.Size))

	var data []byte
	body := in.Body
	if kind == storage.KindImage {
		// images are buffered so the thumbnail can be cut from the same bytes
		data, err = io.ReadAll(io.LimitReader(in.Body, s.maxBytes+1))
		if err != nil {
			end(err)
			return nil, models.NewValidationError("could not read upload")
		}
		if int64(len(data)) != in.Size {
			end(nil)
			return nil, models.NewValidationError("upload size does not match its declared length")
		}
		if err := storage.VerifyContent(contentType, data); err != nil {
			end(nil)
			return nil, models.NewValidationError(err.Error())
		}
		body = bytes.NewReader(data)
	} else {
		head := make([]byte, storage.SniffLen)
		n, err := io.ReadFull(in.Body, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			end(err)
			return nil, models.NewValidationError("could not read upload")
		}
		head = head[:n]
		if err := storage.VerifyContent(contentType, head); err != nil {
			end(nil)
			return nil, models.NewValidationError(err.Error())
		}
		body = io.MultiReader(bytes.NewReader(head), in.Body)
	}

	progress := storage.NewProgressReader(body, in.Size, in.OnProgress)
	url, err := s.store.Put(ctx, name, progress, in.Size, contentType)
	if err != nil {
		end(err)
		return nil, models.NewRemoteOperationError(err)
	}
	observability.UploadBytes.WithLabelValues(string(kind)).Add(float64(progress.BytesRead()))

	out := &MediaResult{
		URL:         url,
		ContentType: contentType,
		Kind:        kind,
		Size:        in.Size,
		Name:        name,
	}
	if kind == storage.KindImage && s.flags.Enabled(featureflags.MediaThumbnails, id.UserID) {
		out.ThumbnailURL = s.storeThumbnail(ctx, name, data)
	}
	end(nil)
	return out, nil
}

// storeThumbnail writes a WebP preview next to the original. Failures leave the
// upload without a thumbnail.
func (s *MediaService) storeThumbnail(ctx context.Context, name string, data []byte) string {
	thumb, err := storage.Thumbnail(data, storage.ThumbnailWidth)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "thumbnail generation failed",
			slog.String("object", name), slog.String("error", err.Error()))
		return ""
	}
	thumbName := strings.TrimSuffix(name, path.Ext(name)) + "_thumb.webp"
	url, err := s.store.Put(ctx, thumbName, bytes.NewReader(thumb), int64(len(thumb)), "image/webp")
	if err != nil {
		middleware.Logger.WarnContext(ctx, "thumbnail upload failed",
			slog.String("object", thumbName), slog.String("error", err.Error()))
		return ""
	}
	observability.UploadBytes.WithLabelValues("thumbnail").Add(float64(len(thumb)))
	return url
}

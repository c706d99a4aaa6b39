package storage

import (
	"bytes"
	"fmt"
	"image"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"
)

// Kind is the broad class of an uploaded file.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

var allowedTypes = map[string]Kind{
	"image/jpeg": KindImage,
	"image/png":  KindImage,
	"image/gif":  KindImage,
	"image/webp": KindImage,
	"video/mp4":  KindVideo,
	"video/webm": KindVideo,
	"video/ogg":  KindVideo,
}

// SniffLen is how many leading bytes content detection looks at.
const SniffLen = 512

// sniffedTypes maps http.DetectContentType results onto allowlisted types.
var sniffedTypes = map[string]string{
	"image/jpeg":      "image/jpeg",
	"image/png":       "image/png",
	"image/gif":       "image/gif",
	"image/webp":      "image/webp",
	"video/mp4":       "video/mp4",
	"video/webm":      "video/webm",
	"application/ogg": "video/ogg",
}

var decodedFormats = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

const maxNameLen = 100

// NormalizeContentType lowercases a MIME type and drops its parameters.
func NormalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	mediaType = strings.ToLower(mediaType)
	if mediaType == "image/jpg" {
		return "image/jpeg"
	}
	return mediaType
}

// KindOf reports the kind of an allowed content type.
func KindOf(contentType string) (Kind, bool) {
	kind, ok := allowedTypes[NormalizeContentType(contentType)]
	return kind, ok
}

// ValidateUpload checks the type against the allowlist and the size against maxBytes.
func ValidateUpload(contentType string, size, maxBytes int64) (Kind, error) {
	kind, ok := KindOf(contentType)
	if !ok {
		return "", fmt.Errorf("unsupported file type %q", contentType)
	}
	if size <= 0 {
		return "", fmt.Errorf("file is empty")
	}
	if maxBytes > 0 && size > maxBytes {
		return "", fmt.Errorf("file exceeds the %d MB limit", maxBytes/(1024*1024))
	}
	return kind, nil
}

// SanitizeFilename keeps only the base name and replaces anything outside
// letters, digits, dot, underscore and hyphen with an underscore.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "file"
	}
	if len(name) > maxNameLen {
		ext := path.Ext(name)
		if len(ext) > 10 {
			ext = ""
		}
		name = name[:maxNameLen-len(ext)] + ext
	}
	return name
}

// VerifyContent checks the file bytes against the declared type. Video needs only
// its first SniffLen bytes; images need the whole file and must also decode.
func VerifyContent(contentType string, data []byte) error {
	declared := NormalizeContentType(contentType)
	kind, ok := allowedTypes[declared]
	if !ok {
		return fmt.Errorf("unsupported file type %q", contentType)
	}
	detected := sniffedTypes[http.DetectContentType(data)]
	if detected == "" {
		return fmt.Errorf("file content is not a supported %s", kind)
	}
	if detected != declared {
		return fmt.Errorf("file content is %s, not %s", detected, declared)
	}
	if kind != KindImage {
		return nil
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid image file")
	}
	if decodedFormats[format] != declared {
		return fmt.Errorf("image content type mismatch")
	}
	return nil
}

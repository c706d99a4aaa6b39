package server

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"blogme/internal/middleware"
	"blogme/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// statusForError maps an AppError code to its HTTP status.
func statusForError(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeUnauthenticated:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeConflict:
		return fiber.StatusConflict
	case models.CodeRemoteOperationFailed, models.CodeReactionUpdateFailed:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes err with the status its code maps to. Errors that are not
// AppErrors are logged and hidden behind a generic internal error.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	if models.ErrorCode(err) == "" {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
		err = models.NewInternalError(err)
	}
	return models.RespondWithError(c, status, err)
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// parseCategoryQuery reads ?category= as an id when numeric and a name otherwise.
func parseCategoryQuery(raw string) models.CategoryRef {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.CategoryRef{}
	}
	if n, err := strconv.ParseUint(raw, 10, 64); err == nil && n > 0 {
		return models.CategoryByID(uint(n))
	}
	return models.NamedCategory(raw)
}

// parseExpanded reads a comma-separated list of comment ids, ignoring junk entries.
func parseExpanded(raw string) map[uint]bool {
	out := make(map[uint]bool)
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err == nil && n > 0 {
			out[uint(n)] = true
		}
	}
	return out
}

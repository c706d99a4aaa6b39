package server

import (
	"blogme/internal/models"
	"blogme/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetReactionCounts handles GET /api/posts/:id/reactions
func (s *Server) GetReactionCounts(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	counts, err := s.reactionService.GetAggregateCounts(c.UserContext(), postID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"post_id": postID, "counts": counts})
}

// GetMyReactions handles GET /api/posts/:id/reactions/me
func (s *Server) GetMyReactions(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	state, err := s.reactionService.GetUserReactionState(c.UserContext(), postID, identity(c).UserID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(state)
}

// LikePost handles POST /api/posts/:id/like. Calling it again removes the like.
func (s *Server) LikePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	out, err := s.reactionService.ToggleLike(c.UserContext(), identity(c), postID)
	if err != nil {
		return s.respondError(c, err)
	}

	s.publishPostEvent(c.UserContext(), postID, EventPostReactionUpdated, map[string]any{
		"post_id":     postID,
		"kind":        service.ReactionKindLike,
		"likes_count": out.Count,
	})
	return c.JSON(fiber.Map{"liked": out.Active, "likes_count": out.Count})
}

// BookmarkPost handles POST /api/posts/:id/bookmark. Calling it again removes the bookmark.
func (s *Server) BookmarkPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	out, err := s.reactionService.ToggleBookmark(c.UserContext(), identity(c), postID)
	if err != nil {
		return s.respondError(c, err)
	}
	// Bookmarks are private, so no event goes out.
	return c.JSON(fiber.Map{"bookmarked": out.Active, "bookmarks_count": out.Count})
}

// SetReaction handles PUT /api/posts/:id/reaction {tag}. Sending the current tag
// clears it.
func (s *Server) SetReaction(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Tag string `json:"tag"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	ctx := c.UserContext()
	state, err := s.reactionService.SetReaction(ctx, identity(c), postID, req.Tag)
	if err != nil {
		return s.respondError(c, err)
	}

	if counts, err := s.reactionService.GetAggregateCounts(ctx, postID); err == nil {
		s.publishPostEvent(ctx, postID, EventPostReactionUpdated, map[string]any{
			"post_id": postID,
			"kind":    service.ReactionKindEmoji,
			"counts":  counts,
		})
	}
	return c.JSON(state)
}

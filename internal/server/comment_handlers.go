package server

import (
	"blogme/internal/models"
	"blogme/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/posts/:id/comments?page=&page_size=
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	page, err := s.commentService.LoadTopLevel(c.UserContext(), postID,
		c.QueryInt("page", 1), c.QueryInt("page_size", s.config.CommentPageSize))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(page)
}

// GetCommentThread handles GET /api/posts/:id/comments/thread?expand=1,2 and returns
// a page of top-level comments with reply subtrees loaded to the auto-expand depth
// plus any explicitly expanded comments.
func (s *Server) GetCommentThread(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	thread, err := s.commentService.BuildThread(c.UserContext(), postID,
		c.QueryInt("page", 1), c.QueryInt("page_size", s.config.CommentPageSize),
		parseExpanded(c.Query("expand")))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(thread)
}

// GetReplies handles GET /api/comments/:id/replies
func (s *Server) GetReplies(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	replies, err := s.commentService.LoadReplies(c.UserContext(), commentID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(replies)
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content  string `json:"content"`
		ParentID *uint  `json:"parent_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	created, err := s.commentService.PostComment(c.UserContext(), identity(c), service.PostCommentInput{
		PostID:   postID,
		Content:  req.Content,
		ParentID: req.ParentID,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	s.publishPostEvent(c.UserContext(), postID, EventCommentCreated, map[string]any{
		"post_id":   postID,
		"parent_id": created.ParentID,
		"comment":   created,
	})
	return c.Status(fiber.StatusCreated).JSON(created)
}

// DeleteComment handles DELETE /api/comments/:id. Authors and admins only.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	deleted, err := s.commentService.DeleteComment(c.UserContext(), identity(c), commentID)
	if err != nil {
		return s.respondError(c, err)
	}

	s.publishPostEvent(c.UserContext(), deleted.PostID, EventCommentDeleted, map[string]any{
		"post_id":    deleted.PostID,
		"comment_id": deleted.ID,
		"parent_id":  deleted.ParentID,
	})
	return c.SendStatus(fiber.StatusNoContent)
}

package server

import (
	"blogme/internal/models"
	"blogme/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetCategories handles GET /api/categories
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.categoryService.List(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(categories)
}

// GetPosts handles GET /api/posts?category=&tag=&search=&sort=&page=&page_size=
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Category: parseCategoryQuery(c.Query("category")),
		Tag:      c.Query("tag"),
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 0),
		Viewer:   identity(c),
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(page)
}

// GetUserPosts handles GET /api/users/:id/posts. Authors see their own drafts.
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	authorID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	page, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		AuthorID: authorID,
		Sort:     c.Query("sort"),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 0),
		Viewer:   identity(c),
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(page)
}

// GetPost handles GET /api/posts/:id and counts the view.
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.ViewPost(c.UserContext(), postID, identity(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(post)
}

// GetRelatedPosts handles GET /api/posts/:id/related
func (s *Server) GetRelatedPosts(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	posts, err := s.postService.RelatedPosts(c.UserContext(), postID, c.QueryInt("limit", 0))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req service.CreatePostInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), identity(c), req)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id. Absent fields are left unchanged.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req service.UpdatePostInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.UpdatePost(c.UserContext(), identity(c), postID, req)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), identity(c), postID); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

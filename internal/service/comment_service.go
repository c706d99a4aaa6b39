package service

import (
	"context"
	"html"
	"strings"
	"unicode/utf8"

	"blogme/internal/cache"
	"blogme/internal/models"
	"blogme/internal/observability"
	"blogme/internal/repository"

	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// MaxThreadDepth is the first depth without a reply action. Deeper
	// replies are still shown, at this visual indent.
	MaxThreadDepth = 3
	// autoExpandDepth levels above it load their replies without a user action.
	autoExpandDepth    = 2
	maxCommentLen      = 10000
	maxCommentPageSize = 100
)

// CommentPage is one page of top-level comments.
type CommentPage struct {
	Items      []models.Comment `json:"items"`
	TotalCount int64            `json:"total_count"`
	TotalPages int              `json:"total_pages"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
}

// ThreadNode is one comment in a rendered thread.
type ThreadNode struct {
	Comment     models.Comment `json:"comment"`
	Depth       int            `json:"depth"`
	VisualDepth int            `json:"visual_depth"`
	CanReply    bool           `json:"can_reply"`
	State       NodeState      `json:"state"`
	Replies     []*ThreadNode  `json:"replies"`
}

// Thread is a page of top-level comments with their loaded reply subtrees.
type Thread struct {
	Nodes      []*ThreadNode `json:"nodes"`
	TotalCount int64         `json:"total_count"`
	TotalPages int           `json:"total_pages"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
}

type PostCommentInput struct {
	PostID   uint
	Content  string
	ParentID *uint
}

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	policy      *bluemonday.Policy
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		policy:      bluemonday.StrictPolicy(),
	}
}

// LoadTopLevel returns page (1-indexed) of the post's parentless comments, newest first.
func (s *CommentService) LoadTopLevel(ctx context.Context, postID uint, page, pageSize int) (*CommentPage, error) {
	if page < 1 {
		return nil, models.NewValidationError("page must be at least 1")
	}
	if pageSize < 1 {
		return nil, models.NewValidationError("page_size must be at least 1")
	}
	if pageSize > maxCommentPageSize {
		pageSize = maxCommentPageSize
	}

	ctx, end := observability.StartSpan(ctx, "comments", "load_top_level",
		attribute.Int("post.id", int(postID)), attribute.Int("page", page))

	out := &CommentPage{Page: page, PageSize: pageSize}
	gen := cache.Generation(ctx, cache.CommentPagesGenKey(postID))
	err := cache.Aside(ctx, cache.CommentPageKey(postID, gen, page, pageSize), out, cache.CommentPageTTL, func() error {
		items, total, err := s.commentRepo.ListTopLevel(ctx, postID, pageSize, (page-1)*pageSize)
		if err != nil {
			return err
		}
		if err := s.attachReplyCounts(ctx, items); err != nil {
			return err
		}
		out.Items = items
		out.TotalCount = total
		out.TotalPages = totalPages(total, pageSize)
		return nil
	})
	end(err)
	if err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []models.Comment{}
	}
	return out, nil
}

// LoadReplies returns the direct replies of a comment, oldest first. It works for
// deleted parents too.
func (s *CommentService) LoadReplies(ctx context.Context, commentID uint) ([]models.Comment, error) {
	var replies []models.Comment
	err := cache.Aside(ctx, cache.RepliesKey(commentID), &replies, cache.RepliesTTL, func() error {
		items, err := s.commentRepo.ListReplies(ctx, commentID)
		if err != nil {
			return err
		}
		if err := s.attachReplyCounts(ctx, items); err != nil {
			return err
		}
		replies = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	if replies == nil {
		replies = []models.Comment{}
	}
	return replies, nil
}

func (s *CommentService) attachReplyCounts(ctx context.Context, items []models.Comment) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]uint, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	counts, err := s.commentRepo.CountReplies(ctx, ids)
	if err != nil {
		return err
	}
	for i := range items {
		items[i].ReplyCount = counts[items[i].ID]
	}
	return nil
}

// BuildThread renders a page of top-level comments as a tree. The first levels load
// their replies automatically; deeper nodes only when their id is in expanded.
func (s *CommentService) BuildThread(ctx context.Context, postID uint, page, pageSize int, expanded map[uint]bool) (*Thread, error) {
	top, err := s.LoadTopLevel(ctx, postID, page, pageSize)
	if err != nil {
		return nil, err
	}

	thread := &Thread{
		Nodes:      make([]*ThreadNode, 0, len(top.Items)),
		TotalCount: top.TotalCount,
		TotalPages: top.TotalPages,
		Page:       top.Page,
		PageSize:   top.PageSize,
	}
	for _, c := range top.Items {
		node, err := s.buildNode(ctx, c, 0, expanded)
		if err != nil {
			return nil, err
		}
		thread.Nodes = append(thread.Nodes, node)
	}
	return thread, nil
}

func (s *CommentService) buildNode(ctx context.Context, c models.Comment, depth int, expanded map[uint]bool) (*ThreadNode, error) {
	node := &ThreadNode{
		Comment:     c,
		Depth:       depth,
		VisualDepth: min(depth, MaxThreadDepth),
		CanReply:    depth < MaxThreadDepth,
		State:       NodeCollapsed,
		Replies:     []*ThreadNode{},
	}
	if depth >= autoExpandDepth && !expanded[c.ID] {
		return node, nil
	}

	node.State = node.State.Expand(false)
	replies, err := s.LoadReplies(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	for _, r := range replies {
		child, err := s.buildNode(ctx, r, depth+1, expanded)
		if err != nil {
			return nil, err
		}
		node.Replies = append(node.Replies, child)
	}
	node.State = node.State.Loaded()
	return node, nil
}

// PostComment adds a top-level comment or a reply for the acting user.
func (s *CommentService) PostComment(ctx context.Context, id *models.Identity, in PostCommentInput) (*models.Comment, error) {
	if id == nil {
		return nil, models.NewUnauthenticatedError("You must be logged in to comment")
	}

	content := s.sanitize(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}

	if _, err := visiblePost(ctx, s.postRepo, in.PostID, id); err != nil {
		return nil, err
	}

	var parent *models.Comment
	if in.ParentID != nil {
		p, err := s.commentRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, models.NewValidationError("Parent comment not found")
			}
			return nil, err
		}
		if p.PostID != in.PostID {
			return nil, models.NewValidationError("Parent comment belongs to a different post")
		}
		parent = p
	}

	ctx, end := observability.StartSpan(ctx, "comments", "post", attribute.Int("post.id", int(in.PostID)))
	comment := &models.Comment{
		Content:  content,
		UserID:   id.UserID,
		PostID:   in.PostID,
		ParentID: in.ParentID,
	}
	err := s.commentRepo.Create(ctx, comment)
	end(err)
	if err != nil {
		return nil, err
	}
	observability.CommentOps.WithLabelValues("create").Inc()

	s.invalidate(ctx, in.PostID, parent)
	return s.commentRepo.GetByID(ctx, comment.ID)
}

// DeleteComment removes a comment. The comment's author, the post's author and admins
// may delete; replies stay in place.
func (s *CommentService) DeleteComment(ctx context.Context, id *models.Identity, commentID uint) (*models.Comment, error) {
	if id == nil {
		return nil, models.NewUnauthenticatedError("You must be logged in to delete comments")
	}

	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}

	allowed := id.IsAdmin || comment.UserID == id.UserID
	if !allowed {
		post, err := s.postRepo.GetByID(ctx, comment.PostID)
		if err != nil && !repository.IsNotFound(err) {
			return nil, err
		}
		allowed = post != nil && post.UserID == id.UserID
	}
	if !allowed {
		return nil, models.NewForbiddenError("You can only delete your own comments or comments on your posts")
	}

	if err := s.commentRepo.Delete(ctx, comment); err != nil {
		return nil, err
	}
	observability.CommentOps.WithLabelValues("delete").Inc()

	var parent *models.Comment
	if comment.ParentID != nil {
		parent = &models.Comment{ID: *comment.ParentID, PostID: comment.PostID}
		if p, err := s.commentRepo.GetByID(ctx, *comment.ParentID); err == nil {
			parent = p
		}
	}
	s.invalidate(ctx, comment.PostID, parent)
	return comment, nil
}

// invalidate drops every cached view that shows the changed comment or its counts.
func (s *CommentService) invalidate(ctx context.Context, postID uint, parent *models.Comment) {
	cache.InvalidateCommentPages(ctx, postID)
	cache.InvalidatePost(ctx, postID)
	if parent == nil {
		return
	}
	cache.InvalidateReplies(ctx, parent.ID)
	if parent.ParentID != nil {
		cache.InvalidateReplies(ctx, *parent.ParentID)
	}
}

// sanitize strips all markup; comments are plain text.
func (s *CommentService) sanitize(content string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(content)))
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

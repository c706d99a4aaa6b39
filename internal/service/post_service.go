package service

import (
	"context"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"blogme/internal/cache"
	"blogme/internal/models"
	"blogme/internal/observability"
	"blogme/internal/repository"
	"blogme/internal/validation"

	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel/attribute"
)

const (
	maxPostContentLen   = 100000
	excerptLen          = 150
	defaultPostPageSize = 9
	maxPostPageSize     = 50
	defaultRelatedLimit = 2
)

type CreatePostInput struct {
	Title      string             `json:"title"`
	Content    string             `json:"content"`
	Excerpt    string             `json:"excerpt"`
	CoverImage string             `json:"cover_image"`
	Category   models.CategoryRef `json:"category"`
	Tags       []string           `json:"tags"`
	Status     models.PostStatus  `json:"status"`
}

// UpdatePostInput changes only the fields that are set.
type UpdatePostInput struct {
	Title      *string             `json:"title"`
	Content    *string             `json:"content"`
	Excerpt    *string             `json:"excerpt"`
	CoverImage *string             `json:"cover_image"`
	Category   *models.CategoryRef `json:"category"`
	Tags       *[]string           `json:"tags"`
	Status     *models.PostStatus  `json:"status"`
}

type ListPostsInput struct {
	Category models.CategoryRef
	Tag      string
	Search   string
	Sort     string
	AuthorID uint
	Page     int
	PageSize int
	Viewer   *models.Identity
}

// PostPage is one page of a post listing.
type PostPage struct {
	Items      []models.Post `json:"items"`
	TotalCount int64         `json:"total_count"`
	TotalPages int           `json:"total_pages"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
}

type PostService struct {
	postRepo   repository.PostRepository
	categories *CategoryService
	policy     *bluemonday.Policy
	textPolicy *bluemonday.Policy
	pageSize   int
}

func NewPostService(postRepo repository.PostRepository, categories *CategoryService, pageSize int) *PostService {
	if pageSize <= 0 {
		pageSize = defaultPostPageSize
	}
	return &PostService{
		postRepo:   postRepo,
		categories: categories,
		policy:     bluemonday.UGCPolicy(),
		textPolicy: bluemonday.StrictPolicy(),
		pageSize:   min(pageSize, maxPostPageSize),
	}
}

func (s *PostService) CreatePost(ctx context.Context, id *models.Identity, in CreatePostInput) (*models.Post, error) {
	if id == nil {
		return nil, models.NewUnauthenticatedError("You must be logged in to publish")
	}

	post := &models.Post{UserID: id.UserID, Status: models.PostStatusPublished}
	if err := s.applyTitle(post, in.Title); err != nil {
		return nil, err
	}
	if err := s.applyContent(post, in.Content); err != nil {
		return nil, err
	}
	if err := s.applyTags(post, in.Tags); err != nil {
		return nil, err
	}
	if in.Status != "" {
		if !in.Status.Valid() {
			return nil, models.NewValidationError("status must be draft or published")
		}
		post.Status = in.Status
	}
	post.CoverImage = strings.TrimSpace(in.CoverImage)
	post.Excerpt = s.excerpt(in.Excerpt, post.Content)

	categoryID, err := s.categories.Resolve(ctx, in.Category)
	if err != nil {
		return nil, err
	}
	post.CategoryID = categoryID

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

func (s *PostService) UpdatePost(ctx context.Context, id *models.Identity, postID uint, in UpdatePostInput) (*models.Post, error) {
	post, err := s.ownedPost(ctx, id, postID, "update")
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if err := s.applyTitle(post, *in.Title); err != nil {
			return nil, err
		}
	}
	if in.Content != nil {
		if err := s.applyContent(post, *in.Content); err != nil {
			return nil, err
		}
	}
	if in.Tags != nil {
		if err := s.applyTags(post, *in.Tags); err != nil {
			return nil, err
		}
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, models.NewValidationError("status must be draft or published")
		}
		post.Status = *in.Status
	}
	if in.CoverImage != nil {
		post.CoverImage = strings.TrimSpace(*in.CoverImage)
	}
	if in.Excerpt != nil {
		post.Excerpt = s.excerpt(*in.Excerpt, post.Content)
	} else if in.Content != nil {
		post.Excerpt = s.excerpt("", post.Content)
	}
	if in.Category != nil {
		categoryID, err := s.categories.Resolve(ctx, *in.Category)
		if err != nil {
			return nil, err
		}
		post.CategoryID = categoryID
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

func (s *PostService) DeletePost(ctx context.Context, id *models.Identity, postID uint) error {
	if _, err := s.ownedPost(ctx, id, postID, "delete"); err != nil {
		return err
	}
	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return err
	}
	cache.InvalidateCommentPages(ctx, postID)
	return nil
}

// ownedPost loads a post the acting user may change: its author or an admin.
func (s *PostService) ownedPost(ctx context.Context, id *models.Identity, postID uint, action string) (*models.Post, error) {
	if id == nil {
		return nil, models.NewUnauthenticatedError("You must be logged in to " + action + " posts")
	}
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != id.UserID && !id.IsAdmin {
		return nil, models.NewForbiddenError("You can only " + action + " your own posts")
	}
	return post, nil
}

// GetPost returns a post. Drafts are only visible to their author and admins.
func (s *PostService) GetPost(ctx context.Context, postID uint, viewer *models.Identity) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(postID), &post, cache.PostTTL, func() error {
		p, err := s.postRepo.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		post = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if post.Status == models.PostStatusDraft && !canSeeDraft(&post, viewer) {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return &post, nil
}

func canSeeDraft(post *models.Post, viewer *models.Identity) bool {
	return viewer != nil && (viewer.IsAdmin || viewer.UserID == post.UserID)
}

// visiblePost loads a post for a write by viewer. Drafts of other users report
// NotFound, the same as GetPost.
func visiblePost(ctx context.Context, posts repository.PostRepository, postID uint, viewer *models.Identity) (*models.Post, error) {
	post, err := posts.GetAccess(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Status == models.PostStatusDraft && !canSeeDraft(post, viewer) {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return post, nil
}

// ViewPost returns a post and counts the view when it is published.
func (s *PostService) ViewPost(ctx context.Context, postID uint, viewer *models.Identity) (*models.Post, error) {
	post, err := s.GetPost(ctx, postID, viewer)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostStatusPublished {
		return post, nil
	}
	if err := s.RecordView(ctx, postID); err != nil {
		return nil, err
	}
	post.ViewsCount++
	return post, nil
}

// RecordView bumps the persisted view counter and today's bucket for the dashboard trend.
// The cached post keeps its older view count until it expires.
func (s *PostService) RecordView(ctx context.Context, postID uint) error {
	if err := s.postRepo.IncrementCounter(ctx, postID, models.CounterViews, 1); err != nil {
		return err
	}
	cache.IncrDaily(ctx, cache.DailyViewsKey(postID, time.Now()), cache.DailyViewsTTL)
	return nil
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) (*PostPage, error) {
	page := max(in.Page, 1)
	pageSize := in.PageSize
	if pageSize <= 0 {
		pageSize = s.pageSize
	}
	pageSize = min(pageSize, maxPostPageSize)

	switch in.Sort {
	case "":
		in.Sort = repository.SortNewest
	case repository.SortNewest, repository.SortOldest, repository.SortPopular:
	default:
		return nil, models.NewValidationError("sort must be newest, oldest or popular")
	}

	out := &PostPage{Items: []models.Post{}, Page: page, PageSize: pageSize}
	categoryID, err := s.categories.Resolve(ctx, in.Category)
	if err != nil {
		if models.ErrorCode(err) == models.CodeValidation {
			return out, nil
		}
		return nil, err
	}

	filter := repository.PostFilter{
		AuthorID:      in.AuthorID,
		CategoryID:    categoryID,
		Tag:           in.Tag,
		Search:        in.Search,
		Sort:          in.Sort,
		PublishedOnly: in.Viewer == nil || in.AuthorID == 0 || in.AuthorID != in.Viewer.UserID,
		Limit:         pageSize,
		Offset:        (page - 1) * pageSize,
	}

	ctx, end := observability.StartSpan(ctx, "posts", "list",
		attribute.Int("page", page), attribute.String("sort", in.Sort))
	items, total, err := s.postRepo.List(ctx, filter)
	end(err)
	if err != nil {
		return nil, err
	}
	if items != nil {
		out.Items = items
	}
	out.TotalCount = total
	out.TotalPages = totalPages(total, pageSize)
	return out, nil
}

// RelatedPosts returns other published posts from the same category.
func (s *PostService) RelatedPosts(ctx context.Context, postID uint, limit int) ([]models.Post, error) {
	if limit <= 0 {
		limit = defaultRelatedLimit
	}
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	related, err := s.postRepo.Related(ctx, post, limit)
	if err != nil {
		return nil, err
	}
	if related == nil {
		related = []models.Post{}
	}
	return related, nil
}

func (s *PostService) applyTitle(post *models.Post, title string) error {
	title = strings.TrimSpace(title)
	if err := validation.ValidateTitle(title); err != nil {
		return models.NewValidationError(err.Error())
	}
	post.Title = title
	return nil
}

func (s *PostService) applyContent(post *models.Post, content string) error {
	content = strings.TrimSpace(s.policy.Sanitize(content))
	if s.plainText(content) == "" {
		return models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > maxPostContentLen {
		return models.NewValidationError("Content too long (max 100000 characters)")
	}
	post.Content = content
	return nil
}

func (s *PostService) applyTags(post *models.Post, tags []string) error {
	normalized, err := validation.NormalizeTags(tags)
	if err != nil {
		return models.NewValidationError(err.Error())
	}
	post.Tags = normalized
	return nil
}

// excerpt keeps an explicit excerpt, or derives one from the first characters of
// the content's text.
func (s *PostService) excerpt(explicit, content string) string {
	if e := s.plainText(explicit); e != "" {
		return e
	}
	return Excerpt(s.plainText(content))
}

// blockBreaks keeps words of adjacent blocks apart once tags are stripped.
var blockBreaks = strings.NewReplacer(
	"</p>", "</p> ", "<br", " <br", "</li>", "</li> ", "</div>", "</div> ",
	"</h1>", "</h1> ", "</h2>", "</h2> ", "</h3>", "</h3> ", "</blockquote>", "</blockquote> ",
)

func (s *PostService) plainText(content string) string {
	text := html.UnescapeString(s.textPolicy.Sanitize(blockBreaks.Replace(content)))
	return strings.Join(strings.Fields(text), " ")
}

// Excerpt shortens text to its first 150 characters, marking a cut with "...".
func Excerpt(text string) string {
	if utf8.RuneCountInString(text) <= excerptLen {
		return text
	}
	return string([]rune(text)[:excerptLen]) + "..."
}

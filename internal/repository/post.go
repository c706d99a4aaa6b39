package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"blogme/internal/cache"
	"blogme/internal/models"
	"blogme/internal/observability"

	"gorm.io/gorm"
)

// Post list sort orders.
const (
	SortNewest  = "newest"
	SortOldest  = "oldest"
	SortPopular = "popular"
)

// PostFilter selects posts for a listing. Zero values mean "no constraint".
type PostFilter struct {
	AuthorID      uint
	CategoryID    *uint
	Tag           string
	Search        string
	Sort          string
	PublishedOnly bool
	Limit         int
	Offset        int
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, filter PostFilter) ([]models.Post, int64, error)
	ListByAuthor(ctx context.Context, authorID uint) ([]models.Post, error)
	Related(ctx context.Context, post *models.Post, limit int) ([]models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	IncrementCounter(ctx context.Context, id uint, counter models.Counter, delta int) error
	GetAccess(ctx context.Context, id uint) (*models.Post, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()
	if err := r.db.WithContext(ctx).Omit("User", "Category").Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewRemoteOperationError(err)
	}
	r.log.LogCreate(ctx, map[string]any{"post_id": post.ID, "user_id": post.UserID})
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	defer observability.TrackQuery("get", "posts")()
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Category").
		First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewRemoteOperationError(err)
	}
	return &post, nil
}

// GetAccess loads only the columns needed to decide who may see or react to a post.
func (r *postRepository) GetAccess(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Select("id", "user_id", "status").First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewRemoteOperationError(err)
	}
	return &post, nil
}

// filterScope is the WHERE clause shared by the page query and its count query.
func filterScope(f PostFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.PublishedOnly {
			db = db.Where("posts.status = ?", models.PostStatusPublished)
		}
		if f.AuthorID != 0 {
			db = db.Where("posts.user_id = ?", f.AuthorID)
		}
		if f.CategoryID != nil {
			db = db.Where("posts.category_id = ?", *f.CategoryID)
		}
		if tag := strings.ToLower(strings.TrimSpace(f.Tag)); tag != "" {
			db = tagScope(db, tag)
		}
		if q := strings.TrimSpace(f.Search); q != "" {
			like := "%" + escapeLike(strings.ToLower(q)) + "%"
			db = db.Where(`LOWER(posts.title) LIKE ? ESCAPE '\' OR LOWER(posts.content) LIKE ? ESCAPE '\'`, like, like)
		}
		return db
	}
}

// tagScope matches one element of the JSON tag array exactly. Postgres uses jsonb
// containment; other dialects match the quoted element as an escaped LIKE pattern.
func tagScope(db *gorm.DB, tag string) *gorm.DB {
	if db.Dialector != nil && db.Dialector.Name() == "postgres" {
		arr, _ := json.Marshal([]string{tag})
		return db.Where("posts.tags::jsonb @> ?::jsonb", string(arr))
	}
	quoted, _ := json.Marshal(tag)
	return db.Where(`posts.tags LIKE ? ESCAPE '\'`, "%"+escapeLike(string(quoted))+"%")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern using '\' as the escape.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func applySort(db *gorm.DB, sort string) *gorm.DB {
	switch sort {
	case SortOldest:
		return db.Order("posts.created_at ASC").Order("posts.id ASC")
	case SortPopular:
		return db.Order("posts.likes_count DESC").Order("posts.views_count DESC").
			Order("posts.created_at DESC").Order("posts.id DESC")
	default:
		return db.Order("posts.created_at DESC").Order("posts.id DESC")
	}
}

// List returns one page of posts and the total number matching the same filter.
func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]models.Post, int64, error) {
	defer observability.TrackQuery("list", "posts")()
	scope := filterScope(filter)

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, models.NewRemoteOperationError(err)
	}

	var posts []models.Post
	q := r.db.WithContext(ctx).Scopes(scope).Preload("User").Preload("Category")
	q = applySort(q, filter.Sort)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := q.Find(&posts).Error; err != nil {
		return nil, 0, models.NewRemoteOperationError(err)
	}
	return posts, total, nil
}

// ListByAuthor returns every post of an author, drafts included.
func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint) ([]models.Post, error) {
	defer observability.TrackQuery("list_by_author", "posts")()
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("user_id = ?", authorID).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewRemoteOperationError(err)
	}
	return posts, nil
}

// Related returns other published posts in the same category, newest first.
func (r *postRepository) Related(ctx context.Context, post *models.Post, limit int) ([]models.Post, error) {
	var posts []models.Post
	if post.CategoryID == nil {
		return posts, nil
	}
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Category").
		Where("category_id = ? AND id <> ? AND status = ?", *post.CategoryID, post.ID, models.PostStatusPublished).
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewRemoteOperationError(err)
	}
	return posts, nil
}

// Update writes the editable fields only; counters are never overwritten here.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("update", "posts")()
	err := r.db.WithContext(ctx).Model(post).
		Select("title", "content", "excerpt", "cover_image", "tags", "status", "category_id").
		Updates(post).Error
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return models.NewRemoteOperationError(err)
	}
	cache.InvalidatePost(ctx, post.ID)
	r.log.LogUpdate(ctx, map[string]any{"post_id": post.ID})
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "posts")()
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "delete")
		return models.NewRemoteOperationError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	cache.InvalidatePost(ctx, id)
	r.log.LogDelete(ctx, map[string]any{"post_id": id})
	return nil
}

func (r *postRepository) IncrementCounter(ctx context.Context, id uint, counter models.Counter, delta int) error {
	if err := incrementCounter(r.db.WithContext(ctx), id, counter, delta); err != nil {
		return models.NewRemoteOperationError(err)
	}
	return nil
}

// incrementCounter applies an add-N update to a post counter, clamped at zero.
func incrementCounter(tx *gorm.DB, postID uint, counter models.Counter, delta int) error {
	if !counter.Valid() {
		return fmt.Errorf("unknown post counter %q", counter)
	}
	col := string(counter)
	expr := gorm.Expr(fmt.Sprintf("CASE WHEN %s + ? < 0 THEN 0 ELSE %s + ? END", col, col), delta, delta)
	return tx.Model(&models.Post{}).Where("id = ?", postID).UpdateColumn(col, expr).Error
}

// readCounter returns the current value of a post counter inside tx.
func readCounter(tx *gorm.DB, postID uint, counter models.Counter) (int, error) {
	if !counter.Valid() {
		return 0, fmt.Errorf("unknown post counter %q", counter)
	}
	var n int
	err := tx.Model(&models.Post{}).Select(string(counter)).Where("id = ?", postID).Scan(&n).Error
	return n, err
}

package repository

import (
	"context"
	"errors"
	"time"

	"blogme/internal/models"
	"blogme/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListTopLevel(ctx context.Context, postID uint, limit, offset int) ([]models.Comment, int64, error)
	ListReplies(ctx context.Context, parentID uint) ([]models.Comment, error)
	CountReplies(ctx context.Context, parentIDs []uint) (map[uint]int, error)
	Delete(ctx context.Context, comment *models.Comment) error
	CreatedAtForPosts(ctx context.Context, postIDs []uint, since time.Time) ([]time.Time, error)
}

type commentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: observability.NewRepoLogger("comments")}
}

// topLevelScope is shared by the page query and its count so the two never disagree.
func topLevelScope(postID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("comments.post_id = ? AND comments.parent_id IS NULL", postID)
	}
}

// Create inserts the comment and bumps the post's comment counter in one transaction.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("create", "comments")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User").Create(comment).Error; err != nil {
			return err
		}
		return incrementCounter(tx, comment.PostID, models.CounterComments, 1)
	})
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewRemoteOperationError(err)
	}
	r.log.LogCreate(ctx, map[string]any{
		"comment_id": comment.ID,
		"post_id":    comment.PostID,
		"parent_id":  comment.ParentID,
	})
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewRemoteOperationError(err)
	}
	return &comment, nil
}

// ListTopLevel returns one page of parentless comments, newest first, and the total count.
func (r *commentRepository) ListTopLevel(ctx context.Context, postID uint, limit, offset int) ([]models.Comment, int64, error) {
	defer observability.TrackQuery("list_top_level", "comments")()
	scope := topLevelScope(postID)

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, models.NewRemoteOperationError(err)
	}

	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Scopes(scope).
		Preload("User").
		Order("comments.created_at DESC").
		Order("comments.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	if err != nil {
		return nil, 0, models.NewRemoteOperationError(err)
	}
	return comments, total, nil
}

// ListReplies returns the direct replies of parentID, oldest first. The parent
// itself may be deleted; its replies are still returned.
func (r *commentRepository) ListReplies(ctx context.Context, parentID uint) ([]models.Comment, error) {
	defer observability.TrackQuery("list_replies", "comments")()
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("parent_id = ?", parentID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewRemoteOperationError(err)
	}
	return comments, nil
}

// CountReplies returns the number of live direct replies per parent id.
func (r *commentRepository) CountReplies(ctx context.Context, parentIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(parentIDs))
	if len(parentIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ParentID uint
		Total    int
	}
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Select("parent_id, COUNT(*) AS total").
		Where("parent_id IN ?", parentIDs).
		Group("parent_id").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewRemoteOperationError(err)
	}
	for _, row := range rows {
		counts[row.ParentID] = row.Total
	}
	return counts, nil
}

// Delete soft-deletes the comment and decrements the post's comment counter in one
// transaction. Replies are left untouched.
func (r *commentRepository) Delete(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("delete", "comments")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Comment{}, comment.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return incrementCounter(tx, comment.PostID, models.CounterComments, -1)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Comment", comment.ID)
		}
		r.log.LogError(ctx, err, "delete")
		return models.NewRemoteOperationError(err)
	}
	r.log.LogDelete(ctx, map[string]any{"comment_id": comment.ID, "post_id": comment.PostID})
	return nil
}

// CreatedAtForPosts returns creation times of live comments on the given posts since a moment.
func (r *commentRepository) CreatedAtForPosts(ctx context.Context, postIDs []uint, since time.Time) ([]time.Time, error) {
	var times []time.Time
	if len(postIDs) == 0 {
		return times, nil
	}
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("post_id IN ? AND created_at >= ?", postIDs, since).
		Pluck("created_at", &times).Error
	if err != nil {
		return nil, models.NewRemoteOperationError(err)
	}
	return times, nil
}

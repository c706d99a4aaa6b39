package repository

import (
	"context"
	"errors"
	"time"

	"blogme/internal/models"
	"blogme/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ToggleOutcome is the state after a like or bookmark toggle.
type ToggleOutcome struct {
	Active bool `json:"active"`
	Count  int  `json:"count"`
}

// ReactionRepository stores likes, bookmarks and emoji reactions.
type ReactionRepository interface {
	GetState(ctx context.Context, postID, userID uint) (models.ReactionState, error)
	ToggleLike(ctx context.Context, postID, userID uint) (ToggleOutcome, error)
	ToggleBookmark(ctx context.Context, postID, userID uint) (ToggleOutcome, error)
	SetReaction(ctx context.Context, postID, userID uint, tag models.ReactionTag) (*models.ReactionTag, error)
	ListTags(ctx context.Context, postID uint) ([]models.ReactionTag, error)
	LikedAtForPosts(ctx context.Context, postIDs []uint, since time.Time) ([]time.Time, error)
}

type reactionRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewReactionRepository creates a new ReactionRepository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db, log: observability.NewRepoLogger("reactions")}
}

var userPostConflict = []clause.Column{{Name: "user_id"}, {Name: "post_id"}}

// GetState reports the user's reactions on a post. Missing rows read as false/nil.
func (r *reactionRepository) GetState(ctx context.Context, postID, userID uint) (models.ReactionState, error) {
	var state models.ReactionState
	db := r.db.WithContext(ctx)

	var n int64
	if err := db.Model(&models.UserLike{}).Where("user_id = ? AND post_id = ?", userID, postID).Count(&n).Error; err != nil {
		return state, models.NewRemoteOperationError(err)
	}
	state.Liked = n > 0

	if err := db.Model(&models.UserBookmark{}).Where("user_id = ? AND post_id = ?", userID, postID).Count(&n).Error; err != nil {
		return state, models.NewRemoteOperationError(err)
	}
	state.Bookmarked = n > 0

	var reactions []models.UserReaction
	if err := db.Where("user_id = ? AND post_id = ?", userID, postID).Limit(1).Find(&reactions).Error; err != nil {
		return state, models.NewRemoteOperationError(err)
	}
	if len(reactions) > 0 {
		tag := reactions[0].Tag
		state.Reaction = &tag
	}
	return state, nil
}

func (r *reactionRepository) ToggleLike(ctx context.Context, postID, userID uint) (ToggleOutcome, error) {
	return r.toggle(ctx, &models.UserLike{UserID: userID, PostID: postID}, &models.UserLike{}, postID, userID, models.CounterLikes)
}

func (r *reactionRepository) ToggleBookmark(ctx context.Context, postID, userID uint) (ToggleOutcome, error) {
	return r.toggle(ctx, &models.UserBookmark{UserID: userID, PostID: postID}, &models.UserBookmark{}, postID, userID, models.CounterBookmarks)
}

// toggle removes the (user, post) row if present, otherwise inserts it. The counter only
// moves when a row was actually deleted or inserted, so racing toggles cannot double count.
func (r *reactionRepository) toggle(ctx context.Context, row any, model any, postID, userID uint, counter models.Counter) (ToggleOutcome, error) {
	defer observability.TrackQuery("toggle", string(counter))()
	var out ToggleOutcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(model)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			if err := incrementCounter(tx, postID, counter, -1); err != nil {
				return err
			}
			out.Active = false
		} else {
			res = tx.Clauses(clause.OnConflict{Columns: userPostConflict, DoNothing: true}).Create(row)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				if err := incrementCounter(tx, postID, counter, 1); err != nil {
					return err
				}
			}
			out.Active = true
		}

		n, err := readCounter(tx, postID, counter)
		out.Count = n
		return err
	})
	if err != nil {
		r.log.LogError(ctx, err, "toggle")
		return ToggleOutcome{}, err
	}
	r.log.LogUpdate(ctx, map[string]any{"post_id": postID, "user_id": userID, "counter": string(counter), "active": out.Active})
	return out, nil
}

// SetReaction applies the tag-toggle rules and returns the resulting tag, nil when cleared:
// the same tag clears it, a different tag replaces it in place, no reaction creates one.
func (r *reactionRepository) SetReaction(ctx context.Context, postID, userID uint, tag models.ReactionTag) (*models.ReactionTag, error) {
	defer observability.TrackQuery("set_reaction", "user_reactions")()
	var result *models.ReactionTag
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND post_id = ? AND tag = ?", userID, postID, tag).Delete(&models.UserReaction{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			result = nil
			return nil
		}

		res = tx.Model(&models.UserReaction{}).
			Where("user_id = ? AND post_id = ?", userID, postID).
			Updates(map[string]any{"tag": tag, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			res = tx.Clauses(clause.OnConflict{
				Columns:   userPostConflict,
				DoUpdates: clause.AssignmentColumns([]string{"tag", "updated_at"}),
			}).Create(&models.UserReaction{UserID: userID, PostID: postID, Tag: tag})
			if res.Error != nil {
				return res.Error
			}
		}
		set := tag
		result = &set
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "set_reaction")
		return nil, err
	}
	r.log.LogUpdate(ctx, map[string]any{"post_id": postID, "user_id": userID, "tag": result})
	return result, nil
}

// ListTags returns the tag of every reaction on a post.
func (r *reactionRepository) ListTags(ctx context.Context, postID uint) ([]models.ReactionTag, error) {
	var tags []models.ReactionTag
	err := r.db.WithContext(ctx).Model(&models.UserReaction{}).
		Where("post_id = ?", postID).
		Pluck("tag", &tags).Error
	if err != nil {
		return nil, models.NewRemoteOperationError(err)
	}
	return tags, nil
}

// LikedAtForPosts returns creation times of likes on the given posts since a moment.
func (r *reactionRepository) LikedAtForPosts(ctx context.Context, postIDs []uint, since time.Time) ([]time.Time, error) {
	var times []time.Time
	if len(postIDs) == 0 {
		return times, nil
	}
	err := r.db.WithContext(ctx).Model(&models.UserLike{}).
		Where("post_id IN ? AND created_at >= ?", postIDs, since).
		Pluck("created_at", &times).Error
	if err != nil {
		return nil, models.NewRemoteOperationError(err)
	}
	return times, nil
}

// IsNotFound reports whether err is a NotFound AppError.
func IsNotFound(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeNotFound
}

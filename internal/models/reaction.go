package models

import (
	"strings"
	"time"
)

// ReactionTag is one of the emoji-coded sentiment labels a reader can attach to a post.
type ReactionTag string

const (
	ReactionLike  ReactionTag = "like"
	ReactionLove  ReactionTag = "love"
	ReactionLaugh ReactionTag = "laugh"
	ReactionWow   ReactionTag = "wow"
	ReactionSad   ReactionTag = "sad"
	ReactionClap  ReactionTag = "clap"
)

// ReactionTags lists every known tag in display order.
var ReactionTags = []ReactionTag{
	ReactionLike,
	ReactionLove,
	ReactionLaugh,
	ReactionWow,
	ReactionSad,
	ReactionClap,
}

// ParseReactionTag normalizes s and reports whether it is a known tag.
func ParseReactionTag(s string) (ReactionTag, bool) {
	tag := ReactionTag(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ReactionTags {
		if tag == known {
			return tag, true
		}
	}
	return "", false
}

// UserLike records that a user liked a post.
// The combination of UserID and PostID must be unique.
type UserLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_likes_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_user_likes_user_post;index" json:"post_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// UserBookmark records that a user bookmarked a post.
type UserBookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_bookmarks_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_user_bookmarks_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UserReaction is the single active reaction tag a user has on a post.
type UserReaction struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	UserID    uint        `gorm:"not null;uniqueIndex:idx_user_reactions_user_post" json:"user_id"`
	PostID    uint        `gorm:"not null;uniqueIndex:idx_user_reactions_user_post;index" json:"post_id"`
	Tag       ReactionTag `gorm:"type:varchar(16);not null" json:"tag"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ReactionState is one user's reaction state on one post.
type ReactionState struct {
	Liked      bool         `json:"liked"`
	Bookmarked bool         `json:"bookmarked"`
	Reaction   *ReactionTag `json:"reaction"`
}

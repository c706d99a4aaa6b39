package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is a comment on a post. Top-level comments have no parent.
// Comments are never edited; deleting one leaves its replies in place.
type Comment struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	PostID    uint           `gorm:"not null;index:idx_comments_post_parent_created,priority:1" json:"post_id"`
	ParentID  *uint          `gorm:"index:idx_comments_post_parent_created,priority:2" json:"parent_id"`
	User      User           `gorm:"foreignKey:UserID" json:"author"`
	CreatedAt time.Time      `gorm:"index:idx_comments_post_parent_created,priority:3" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// ReplyCount is filled in by the loader; not persisted.
	ReplyCount int `gorm:"-" json:"reply_count"`
}

// IsTopLevel reports whether the comment has no parent.
func (c *Comment) IsTopLevel() bool {
	return c.ParentID == nil
}

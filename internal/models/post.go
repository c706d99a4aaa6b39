package models

import (
	"time"

	"gorm.io/gorm"
)

// PostStatus is the publication state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	return s == PostStatusDraft || s == PostStatusPublished
}

// Counter names a denormalized engagement counter column on posts.
type Counter string

const (
	CounterLikes     Counter = "likes_count"
	CounterComments  Counter = "comments_count"
	CounterBookmarks Counter = "bookmarks_count"
	CounterViews     Counter = "views_count"
)

// Valid reports whether c names a known counter column.
func (c Counter) Valid() bool {
	switch c {
	case CounterLikes, CounterComments, CounterBookmarks, CounterViews:
		return true
	}
	return false
}

// Post represents a blog post.
type Post struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Title      string     `gorm:"not null" json:"title"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	Excerpt    string     `gorm:"type:text" json:"excerpt"`
	CoverImage string     `json:"cover_image"`
	Tags       []string   `gorm:"type:text;serializer:json" json:"tags"`
	Status     PostStatus `gorm:"type:varchar(16);not null;default:published;index" json:"status"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	User       User       `gorm:"foreignKey:UserID" json:"author"`
	CategoryID *uint      `gorm:"index" json:"category_id,omitempty"`
	Category   *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`

	// Aggregate counters, changed only by atomic add-N updates.
	LikesCount     int `gorm:"not null;default:0" json:"likes_count"`
	CommentsCount  int `gorm:"not null;default:0" json:"comments_count"`
	BookmarksCount int `gorm:"not null;default:0" json:"bookmarks_count"`
	ViewsCount     int `gorm:"not null;default:0" json:"views_count"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CategoryLabel returns the display label of the post's category.
func (p *Post) CategoryLabel() string {
	return CategoryLabel(p.Category)
}

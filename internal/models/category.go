package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UncategorizedLabel is the display label for posts without a category.
const UncategorizedLabel = "Uncategorized"

// DefaultCategories are seeded on first start.
var DefaultCategories = []string{
	"Technology",
	"Health",
	"Travel",
	"Food",
	"Lifestyle",
	"Business",
	"Sports",
	"Education",
	"Entertainment",
	"Science",
}

// Category is an immutable display label referenced by posts.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryRefKind tells which variant a CategoryRef holds.
type CategoryRefKind int

const (
	CategoryUnset CategoryRefKind = iota
	CategoryNamed
	CategoryReference
)

// CategoryRef is how clients name a category: not at all, by display name, or by id.
// It is resolved to a category id once, when a post is written.
type CategoryRef struct {
	Kind CategoryRefKind
	Name string
	ID   uint
}

// NamedCategory returns a CategoryRef that refers to a category by name.
func NamedCategory(name string) CategoryRef {
	return CategoryRef{Kind: CategoryNamed, Name: name}
}

// CategoryByID returns a CategoryRef that refers to a category by id.
func CategoryByID(id uint) CategoryRef {
	return CategoryRef{Kind: CategoryReference, ID: id}
}

// IsSet reports whether the ref names a category.
func (r CategoryRef) IsSet() bool {
	return r.Kind != CategoryUnset
}

// UnmarshalJSON accepts null, a category name or a numeric id.
// A numeric string such as "3" is treated as an id.
func (r *CategoryRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = CategoryRef{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*r = CategoryRef{}
			return nil
		}
		if id, err := strconv.ParseUint(s, 10, 32); err == nil && id > 0 {
			*r = CategoryByID(uint(id))
			return nil
		}
		*r = NamedCategory(s)
		return nil
	}

	var id uint64
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("category must be a name or an id: %w", err)
	}
	if id == 0 {
		*r = CategoryRef{}
		return nil
	}
	*r = CategoryByID(uint(id))
	return nil
}

// MarshalJSON writes the ref back in the form it was given.
func (r CategoryRef) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case CategoryNamed:
		return json.Marshal(r.Name)
	case CategoryReference:
		return json.Marshal(r.ID)
	default:
		return []byte("null"), nil
	}
}

// CategoryLabel returns the histogram label for a possibly missing category.
func CategoryLabel(c *Category) string {
	if c == nil || strings.TrimSpace(c.Name) == "" {
		return UncategorizedLabel
	}
	return c.Name
}

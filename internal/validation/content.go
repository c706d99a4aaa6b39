package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength = 200
	MaxTags        = 10
	MaxTagLength   = 32
)

var tagRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9 _-]*$`)

// ValidateTitle checks that a post title is present and not too long.
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("title must not exceed %d characters", MaxTitleLength)
	}
	return nil
}

// NormalizeTags trims, lowercases and de-duplicates tags, keeping first-seen order.
// Empty entries are dropped.
func NormalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, raw := range tags {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return nil, fmt.Errorf("tag %q must not exceed %d characters", tag, MaxTagLength)
		}
		if !tagRegex.MatchString(tag) {
			return nil, fmt.Errorf("tag %q may only contain letters, numbers, spaces, underscores and hyphens", tag)
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > MaxTags {
		return nil, fmt.Errorf("a post can have at most %d tags", MaxTags)
	}
	return out, nil
}

package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix            = "user:%d"
	PostKeyPrefix            = "post:%d"
	CommentPagesGenPrefix    = "post:%d:comments:gen"
	CommentPageKeyPrefix     = "post:%d:comments:g%d:p%d:s%d"
	RepliesKeyPrefix         = "comment:%d:replies"
	ReactionCountsKeyPrefix  = "post:%d:reactions"
	ReactionStateKeyPrefix   = "post:%d:reactions:user:%d"
	DailyViewsKeyPrefix      = "views:%d:%s"
	CategoriesKey            = "categories"
	PasswordResetKeyPrefix   = "password_reset:%s"
	TokenBlacklistKeyPrefix  = "blacklist:%s"
	WebSocketTicketKeyPrefix = "ws_ticket:%s"
)

const (
	UserTTL            = 5 * time.Minute
	PostTTL            = 30 * time.Minute
	CommentPageTTL     = 2 * time.Minute
	RepliesTTL         = 5 * time.Minute
	ReactionCountsTTL  = 10 * time.Minute
	ReactionStateTTL   = 5 * time.Minute
	CategoriesTTL      = time.Hour
	DailyViewsTTL      = 100 * 24 * time.Hour
	PasswordResetTTL   = time.Hour
	WebSocketTicketTTL = 30 * time.Second
)

// DayLayout formats the per-day suffix of time-series keys.
const DayLayout = "2006-01-02"

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

// CommentPagesGenKey holds the generation counter for a post's top-level comment pages.
func CommentPagesGenKey(postID uint) string {
	return fmt.Sprintf(CommentPagesGenPrefix, postID)
}

// CommentPageKey addresses one cached page of top-level comments at a generation.
func CommentPageKey(postID uint, gen int64, page, pageSize int) string {
	return fmt.Sprintf(CommentPageKeyPrefix, postID, gen, page, pageSize)
}

func RepliesKey(commentID uint) string {
	return fmt.Sprintf(RepliesKeyPrefix, commentID)
}

func ReactionCountsKey(postID uint) string {
	return fmt.Sprintf(ReactionCountsKeyPrefix, postID)
}

func ReactionStateKey(postID, userID uint) string {
	return fmt.Sprintf(ReactionStateKeyPrefix, postID, userID)
}

func DailyViewsKey(postID uint, day time.Time) string {
	return fmt.Sprintf(DailyViewsKeyPrefix, postID, day.UTC().Format(DayLayout))
}

func PasswordResetKey(token string) string {
	return fmt.Sprintf(PasswordResetKeyPrefix, token)
}

func TokenBlacklistKey(jti string) string {
	return fmt.Sprintf(TokenBlacklistKeyPrefix, jti)
}

func WebSocketTicketKey(ticket string) string {
	return fmt.Sprintf(WebSocketTicketKeyPrefix, ticket)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

// InvalidateCommentPages retires every cached top-level page of a post by bumping its generation.
func InvalidateCommentPages(ctx context.Context, postID uint) {
	if client != nil {
		client.Incr(ctx, CommentPagesGenKey(postID))
	}
}

func InvalidateReplies(ctx context.Context, commentID uint) {
	Invalidate(ctx, RepliesKey(commentID))
}

func InvalidateReactions(ctx context.Context, postID, userID uint) {
	Invalidate(ctx, ReactionCountsKey(postID), ReactionStateKey(postID, userID), PostKey(postID))
}

package service

import (
	"context"
	"time"

	"blogme/internal/cache"
	"blogme/internal/featureflags"
	"blogme/internal/models"
	"blogme/internal/observability"
	"blogme/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const recentPostsLimit = 5

// TrendRange is the length of the engagement series on the dashboard.
type TrendRange string

const (
	Range7d  TrendRange = "7d"
	Range30d TrendRange = "30d"
	Range90d TrendRange = "90d"
)

// ParseTrendRange accepts 7d, 30d or 90d; an empty value means 7d.
func ParseTrendRange(s string) (TrendRange, error) {
	switch TrendRange(s) {
	case "":
		return Range7d, nil
	case Range7d, Range30d, Range90d:
		return TrendRange(s), nil
	}
	return "", models.NewValidationError("range must be one of 7d, 30d, 90d")
}

// Days returns the number of daily buckets in the range.
func (r TrendRange) Days() int {
	switch r {
	case Range30d:
		return 30
	case Range90d:
		return 90
	default:
		return 7
	}
}

// Totals sums engagement over an author's posts.
type Totals struct {
	Posts     int `json:"posts"`
	Views     int `json:"views"`
	Likes     int `json:"likes"`
	Comments  int `json:"comments"`
	Bookmarks int `json:"bookmarks"`
}

// TrendPoint is one UTC day of engagement.
type TrendPoint struct {
	Date     string `json:"date"`
	Comments int    `json:"comments"`
	Likes    int    `json:"likes"`
	Views    int    `json:"views"`
}

type Dashboard struct {
	Totals      Totals         `json:"totals"`
	Categories  map[string]int `json:"categories"`
	Range       TrendRange     `json:"range"`
	Trend       []TrendPoint   `json:"trend"`
	RecentPosts []models.Post  `json:"recent_posts"`
}

type DashboardService struct {
	postRepo     repository.PostRepository
	commentRepo  repository.CommentRepository
	reactionRepo repository.ReactionRepository
	flags        *featureflags.Manager
	now          func() time.Time
}

func NewDashboardService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	reactionRepo repository.ReactionRepository,
	flags *featureflags.Manager,
) *DashboardService {
	return &DashboardService{
		postRepo:     postRepo,
		commentRepo:  commentRepo,
		reactionRepo: reactionRepo,
		flags:        flags,
		now:          time.Now,
	}
}

// ComputeTotals sums the post counters in one pass.
func ComputeTotals(posts []models.Post) Totals {
	var t Totals
	for i := range posts {
		p := &posts[i]
		t.Posts++
		t.Views += p.ViewsCount
		t.Likes += p.LikesCount
		t.Comments += p.CommentsCount
		t.Bookmarks += p.BookmarksCount
	}
	return t
}

// ComputeCategoryHistogram counts posts per category label.
func ComputeCategoryHistogram(posts []models.Post) map[string]int {
	out := make(map[string]int)
	for i := range posts {
		out[posts[i].CategoryLabel()]++
	}
	return out
}

// Dashboard loads the acting author's posts once and derives every panel from them.
func (s *DashboardService) Dashboard(ctx context.Context, id *models.Identity, rng TrendRange) (*Dashboard, error) {
	if id == nil {
		return nil, models.NewUnauthenticatedError("You must be logged in to view the dashboard")
	}
	if rng == "" {
		rng = Range7d
	}

	ctx, end := observability.StartSpan(ctx, "dashboard", "compute",
		attribute.Int("user.id", int(id.UserID)), attribute.String("range", string(rng)))
	posts, err := s.postRepo.ListByAuthor(ctx, id.UserID)
	if err != nil {
		end(err)
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}

	out := &Dashboard{
		Totals:      ComputeTotals(posts),
		Categories:  ComputeCategoryHistogram(posts),
		Range:       rng,
		Trend:       []TrendPoint{},
		RecentPosts: posts[:min(len(posts), recentPostsLimit)],
	}
	if s.flags.Enabled(featureflags.DashboardTrend, id.UserID) {
		out.Trend, err = s.trend(ctx, posts, rng)
	}
	end(err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ComputeEngagementTrend returns one zero-filled point per UTC day of the range, oldest
// first, for the author's posts.
func (s *DashboardService) ComputeEngagementTrend(ctx context.Context, authorID uint, rng TrendRange) ([]TrendPoint, error) {
	posts, err := s.postRepo.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	return s.trend(ctx, posts, rng)
}

func (s *DashboardService) trend(ctx context.Context, posts []models.Post, rng TrendRange) ([]TrendPoint, error) {
	days := rng.Days()
	start := s.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))

	points := make([]TrendPoint, days)
	for i := range points {
		points[i].Date = start.AddDate(0, 0, i).Format(cache.DayLayout)
	}
	if len(posts) == 0 {
		return points, nil
	}

	ids := make([]uint, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}

	commented, err := s.commentRepo.CreatedAtForPosts(ctx, ids, start)
	if err != nil {
		return nil, err
	}
	for _, t := range commented {
		if i := dayIndex(start, t, days); i >= 0 {
			points[i].Comments++
		}
	}

	liked, err := s.reactionRepo.LikedAtForPosts(ctx, ids, start)
	if err != nil {
		return nil, err
	}
	for _, t := range liked {
		if i := dayIndex(start, t, days); i >= 0 {
			points[i].Likes++
		}
	}

	keys := make([]string, 0, days*len(ids))
	for d := 0; d < days; d++ {
		day := start.AddDate(0, 0, d)
		for _, postID := range ids {
			keys = append(keys, cache.DailyViewsKey(postID, day))
		}
	}
	for k, n := range cache.GetInts(ctx, keys) {
		points[k/len(ids)].Views += n
	}
	return points, nil
}

// dayIndex returns the bucket of t in a series starting at start, or -1 outside it.
func dayIndex(start, t time.Time, days int) int {
	d := t.UTC().Sub(start)
	if d < 0 {
		return -1
	}
	i := int(d / (24 * time.Hour))
	if i >= days {
		return -1
	}
	return i
}

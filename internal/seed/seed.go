package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"blogme/internal/middleware"
	"blogme/internal/models"
	"blogme/internal/repository"

	"gorm.io/gorm"
)

// Options configures a demo seeding run.
type Options struct {
	NumUsers        int
	NumPosts        int
	CommentsPerPost int
	// ShouldClean truncates content tables first. Postgres only.
	ShouldClean bool
	SkipBcrypt  bool
	MaxDays     int
	RandSeed    int64
}

// Result summarizes what a seeding run created.
type Result struct {
	Categories int64
	Users      int
	Posts      int
	Comments   int
	Likes      int
	Bookmarks  int
	Reactions  int
}

// Categories makes sure the default categories exist.
func Categories(ctx context.Context, db *gorm.DB) (int64, error) {
	return repository.NewCategoryRepository(db).EnsureDefaults(ctx, models.DefaultCategories)
}

// Seed creates demo users, posts, threaded comments and reactions. Post counters are
// recomputed from the rows at the end so they match what the API would have produced.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Result, error) {
	if opts.NumUsers <= 0 {
		return nil, errors.New("seed needs at least one user")
	}
	middleware.Logger.InfoContext(ctx, "seeding demo data",
		slog.Int("users", opts.NumUsers), slog.Int("posts", opts.NumPosts))

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			middleware.Logger.WarnContext(ctx, "could not clear existing data", slog.String("error", err.Error()))
		}
	}

	res := &Result{}
	created, err := Categories(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("seed categories: %w", err)
	}
	res.Categories = created

	var categories []models.Category
	if err := db.WithContext(ctx).Order("id").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	f := NewFactory(db.WithContext(ctx), opts)
	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	res.Users = len(users)

	for i := 0; i < opts.NumPosts; i++ {
		var category *models.Category
		if len(categories) > 0 && f.chance(85) {
			category = &categories[f.pick(len(categories))]
		}
		post, err := f.CreatePost(users[f.pick(len(users))], category)
		if err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		res.Posts++

		n, err := seedThread(f, users, post, opts.CommentsPerPost)
		if err != nil {
			return nil, fmt.Errorf("create comments: %w", err)
		}
		res.Comments += n

		if err := seedReactions(db.WithContext(ctx), f, users, post, res); err != nil {
			return nil, fmt.Errorf("create reactions: %w", err)
		}
	}

	if err := RecountPosts(db.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("recount posts: %w", err)
	}

	middleware.Logger.InfoContext(ctx, "seeding complete",
		slog.Int("users", res.Users), slog.Int("posts", res.Posts),
		slog.Int("comments", res.Comments), slog.Int("likes", res.Likes))
	return res, nil
}

// seedThread adds up to perPost top-level comments, some with reply chains deeper
// than the auto-expand depth so the thread view has something to expand.
func seedThread(f *Factory, users []*models.User, post *models.Post, perPost int) (int, error) {
	if perPost <= 0 {
		return 0, nil
	}
	count := 0
	for i := f.fake.Number(0, perPost); i > 0; i-- {
		parent, err := f.CreateComment(users[f.pick(len(users))], post, nil)
		if err != nil {
			return count, err
		}
		count++
		for depth := 0; depth < 5 && f.chance(45); depth++ {
			reply, err := f.CreateComment(users[f.pick(len(users))], post, parent)
			if err != nil {
				return count, err
			}
			count++
			parent = reply
		}
	}
	return count, nil
}

func seedReactions(db *gorm.DB, f *Factory, users []*models.User, post *models.Post, res *Result) error {
	if post.Status != models.PostStatusPublished {
		return nil
	}
	for _, u := range users {
		if f.chance(40) {
			if err := db.Create(&models.UserLike{UserID: u.ID, PostID: post.ID}).Error; err != nil {
				return err
			}
			res.Likes++
		}
		if f.chance(15) {
			if err := db.Create(&models.UserBookmark{UserID: u.ID, PostID: post.ID}).Error; err != nil {
				return err
			}
			res.Bookmarks++
		}
		if f.chance(30) {
			tag := models.ReactionTags[f.pick(len(models.ReactionTags))]
			if err := db.Create(&models.UserReaction{UserID: u.ID, PostID: post.ID, Tag: tag}).Error; err != nil {
				return err
			}
			res.Reactions++
		}
	}
	return nil
}

// RecountPosts rewrites the like, bookmark and comment counters from their source rows.
func RecountPosts(db *gorm.DB) error {
	return db.Exec(`
		UPDATE posts SET
			likes_count = (SELECT COUNT(*) FROM user_likes WHERE user_likes.post_id = posts.id),
			bookmarks_count = (SELECT COUNT(*) FROM user_bookmarks WHERE user_bookmarks.post_id = posts.id),
			comments_count = (SELECT COUNT(*) FROM comments
				WHERE comments.post_id = posts.id AND comments.deleted_at IS NULL)
	`).Error
}

func clearData(db *gorm.DB) error {
	middleware.Logger.Info("clearing existing content")
	return db.Exec(`TRUNCATE TABLE user_reactions, user_bookmarks, user_likes, comments, posts, users RESTART IDENTITY CASCADE`).Error
}

package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"blogme/internal/database"
	"blogme/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewSQLiteDB returns a private in-memory database with every persistent model migrated.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// SeedUser inserts a user with a unique username and email.
func SeedUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// SeedCategory inserts a category.
func SeedCategory(t testing.TB, db *gorm.DB, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name}
	require.NoError(t, db.Create(c).Error)
	return c
}

// SeedPost inserts a published post by author, optionally in a category.
func SeedPost(t testing.TB, db *gorm.DB, author *models.User, category *models.Category, title string) *models.Post {
	t.Helper()
	p := &models.Post{
		Title:   title,
		Content: "<p>" + title + "</p>",
		Status:  models.PostStatusPublished,
		UserID:  author.ID,
	}
	if category != nil {
		p.CategoryID = &category.ID
	}
	require.NoError(t, db.Omit("User", "Category").Create(p).Error)
	return p
}

// SeedComments inserts n comments on a post, each a second newer than the previous.
func SeedComments(t testing.TB, db *gorm.DB, post *models.Post, author *models.User, parentID *uint, n int) []models.Comment {
	t.Helper()
	base := time.Now().Add(-time.Duration(n) * time.Minute)
	out := make([]models.Comment, 0, n)
	for i := 0; i < n; i++ {
		c := models.Comment{
			Content:   fmt.Sprintf("comment %d", i+1),
			UserID:    author.ID,
			PostID:    post.ID,
			ParentID:  parentID,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, db.Omit("User").Create(&c).Error)
		out = append(out, c)
	}
	return out
}

// Package seed provides helpers to create demo data for development and tests.
package seed

import (
	"fmt"
	"strings"
	"time"

	"blogme/internal/models"
	"blogme/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "BlogMe!Demo2024"

var tagPool = []string{
	"go", "postgres", "redis", "cooking", "running", "travel", "books", "startups",
	"design", "history", "music", "science", "health", "family", "photography",
}

// Factory builds blog entities with gofakeit and persists them with gorm.
type Factory struct {
	db      *gorm.DB
	opts    Options
	fake    *gofakeit.Faker
	pwdHash string
}

// NewFactory creates a Factory. A zero opts.RandSeed seeds from the clock.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{db: db, opts: opts, fake: gofakeit.New(seed)}
}

func (f *Factory) passwordHash() (string, error) {
	if f.pwdHash != "" {
		return f.pwdHash, nil
	}
	if f.opts.SkipBcrypt {
		f.pwdHash = DemoPassword
		return f.pwdHash, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	f.pwdHash = string(hash)
	return f.pwdHash, nil
}

// CreateUser persists a user with a unique username. Overrides run before the insert.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.passwordHash()
	if err != nil {
		return nil, err
	}
	base := strings.ToLower(strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, f.fake.Username()))
	if len(base) < 3 {
		base = "writer"
	}
	username := fmt.Sprintf("%s%d", base[:min(len(base), 20)], f.fake.Number(100, 999999))

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hash,
		Bio:      f.fake.Sentence(10),
		Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost returns an unsaved post by author, created some time within opts.MaxDays.
func (f *Factory) BuildPost(author *models.User, category *models.Category) *models.Post {
	paragraphs := make([]string, f.fake.Number(2, 5))
	for i := range paragraphs {
		paragraphs[i] = "<p>" + f.fake.Paragraph(1, f.fake.Number(3, 6), 12, " ") + "</p>"
	}
	content := strings.Join(paragraphs, "\n")

	title := strings.TrimSuffix(f.fake.Sentence(f.fake.Number(3, 8)), ".")
	post := &models.Post{
		Title:      title,
		Content:    content,
		Excerpt:    service.Excerpt(f.fake.Paragraph(1, 2, 12, " ")),
		CoverImage: fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", f.fake.UUID()),
		Tags:       f.tags(),
		Status:     models.PostStatusPublished,
		UserID:     author.ID,
		CreatedAt:  f.pastTime(),
	}
	if f.fake.Number(1, 10) == 1 {
		post.Status = models.PostStatusDraft
	}
	if category != nil {
		post.CategoryID = &category.ID
	}
	post.UpdatedAt = post.CreatedAt
	return post
}

// CreatePost persists a post built by BuildPost.
func (f *Factory) CreatePost(author *models.User, category *models.Category, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, category)
	for _, override := range overrides {
		override(post)
	}
	if err := f.db.Omit("User", "Category").Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a comment, a reply when parent is set.
func (f *Factory) CreateComment(author *models.User, post *models.Post, parent *models.Comment) (*models.Comment, error) {
	created := post.CreatedAt.Add(time.Duration(f.fake.Number(1, 72*60)) * time.Minute)
	if parent != nil {
		created = parent.CreatedAt.Add(time.Duration(f.fake.Number(1, 24*60)) * time.Minute)
	}
	comment := &models.Comment{
		Content:   f.fake.Sentence(f.fake.Number(4, 20)),
		UserID:    author.ID,
		PostID:    post.ID,
		CreatedAt: created,
	}
	if parent != nil {
		comment.ParentID = &parent.ID
	}
	if err := f.db.Omit("User").Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

func (f *Factory) tags() []string {
	n := f.fake.Number(0, 3)
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for len(out) < n {
		tag := tagPool[f.fake.Number(0, len(tagPool)-1)]
		if !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}

func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.fake.Number(0, maxDays*24*60-1)) * time.Minute
	return time.Now().Add(-back)
}

func (f *Factory) chance(percent int) bool {
	return f.fake.Number(1, 100) <= percent
}

func (f *Factory) pick(n int) int {
	return f.fake.Number(0, n-1)
}

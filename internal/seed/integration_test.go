//go:build integration

package seed

import (
	"context"
	"net/url"
	"os"
	"strings"
	"testing"

	"blogme/internal/config"
	"blogme/internal/database"
	"blogme/internal/models"
)

func parseDatabaseURLToConfig(dsn string) (*config.Config, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}
	password := ""
	if u.User != nil {
		password, _ = u.User.Password()
	}
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	return &config.Config{
		DBHost:       u.Hostname(),
		DBPort:       port,
		DBUser:       u.User.Username(),
		DBPassword:   password,
		DBName:       strings.TrimPrefix(u.Path, "/"),
		DBSSLMode:    "disable",
		Env:          "test",
		DBSchemaMode: "auto",
	}, nil
}

func TestIntegration_SeedPostgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration seed test")
	}
	cfg, err := parseDatabaseURLToConfig(dsn)
	if err != nil {
		t.Fatalf("failed parse dsn: %v", err)
	}
	db, err := database.ConnectWithOptions(cfg, true)
	if err != nil {
		t.Fatalf("db connect failed: %v", err)
	}

	res, err := Seed(context.Background(), db, Options{
		NumUsers:        10,
		NumPosts:        20,
		CommentsPerPost: 5,
		ShouldClean:     true,
		SkipBcrypt:      true,
		MaxDays:         30,
	})
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	var cnt int64
	if err := db.Model(&models.Post{}).Count(&cnt).Error; err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if cnt != int64(res.Posts) {
		t.Fatalf("expected %d seeded posts, got %d", res.Posts, cnt)
	}
}

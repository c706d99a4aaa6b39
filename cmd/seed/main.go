// Command main runs the demo data seeder for BlogMe.
package main

import (
	"context"
	"flag"
	"log"

	"blogme/internal/bootstrap"
	"blogme/internal/config"
	"blogme/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "Number of users to create")
	numPosts := flag.Int("posts", 120, "Number of posts to create")
	comments := flag.Int("comments", 8, "Maximum top-level comments per post")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	maxDays := flag.Int("days", 90, "Spread content creation over this many past days")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Printf("Target: %d users, %d posts, clean=%v\n", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rt, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedCategories: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	res, err := seed.Seed(context.Background(), rt.DB, seed.Options{
		NumUsers:        *numUsers,
		NumPosts:        *numPosts,
		CommentsPerPost: *comments,
		ShouldClean:     *shouldClean,
		MaxDays:         *maxDays,
		RandSeed:        *randSeed,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ Created %d users, %d posts, %d comments, %d likes, %d bookmarks, %d reactions\n",
		res.Users, res.Posts, res.Comments, res.Likes, res.Bookmarks, res.Reactions)
	log.Printf("📧 All demo users have the password: %s\n", seed.DemoPassword)
}

// Package main provides admin management utilities for BlogMe.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"blogme/internal/config"
	"blogme/internal/database"
	"blogme/internal/repository"
	"blogme/internal/service"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin promote <user_id|email>   - Promote user to admin")
		fmt.Println("  go run ./cmd/admin demote <user_id|email>    - Demote user from admin")
		fmt.Println("  go run ./cmd/admin list-admins               - List all admins")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	users := service.NewUserService(repository.NewUserRepository(db))
	ctx := context.Background()

	switch command := os.Args[1]; command {
	case "promote", "demote":
		if len(os.Args) < 3 {
			fmt.Printf("Usage: go run ./cmd/admin %s <user_id|email>\n", command)
			os.Exit(1)
		}
		setAdmin(ctx, users, os.Args[2], command == "promote")

	case "list-admins":
		listAdmins(ctx, users)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func setAdmin(ctx context.Context, users *service.UserService, ref string, isAdmin bool) {
	user, err := users.FindUser(ctx, ref)
	if err != nil {
		fmt.Printf("User %s not found: %v\n", ref, err)
		os.Exit(1)
	}

	if user.IsAdmin == isAdmin {
		fmt.Printf("User %s (ID: %d) already has admin=%t\n", user.Username, user.ID, isAdmin)
		return
	}

	user, err = users.SetAdmin(ctx, user.ID, isAdmin)
	if err != nil {
		log.Fatalf("Failed to update user: %v", err)
	}

	verb := "demoted"
	if isAdmin {
		verb = "promoted"
	}
	fmt.Printf("✅ Successfully %s %s (ID: %d)\n", verb, user.Username, user.ID)
}

func listAdmins(ctx context.Context, users *service.UserService) {
	const pageSize = 200
	found := 0
	for offset := 0; ; offset += pageSize {
		page, err := users.ListUsers(ctx, pageSize, offset)
		if err != nil {
			log.Fatalf("Failed to fetch users: %v", err)
		}
		for _, u := range page {
			if !u.IsAdmin {
				continue
			}
			if found == 0 {
				fmt.Println("\n📋 Current Admins:")
			}
			found++
			fmt.Printf("ID: %d | Username: %s | Email: %s\n", u.ID, u.Username, u.Email)
		}
		if len(page) < pageSize {
			break
		}
	}

	if found == 0 {
		fmt.Println("No admins found in the system")
	}
}

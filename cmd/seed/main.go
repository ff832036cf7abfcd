// Command seed creates a user and a few sample posts in the database, for
// local development against a fresh store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"devblog/internal/auth"
	"devblog/internal/domain"
	"devblog/internal/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		dbPath   string
		name     string
		username string
		email    string
		password string
		avatar   string
		numPosts int
	)

	flag.StringVar(&dbPath, "db", envOrDefault("DATABASE_PATH", "devblog.db"), "SQLite database file")
	flag.StringVar(&name, "name", "Dev Blogger", "Display name for the seeded user")
	flag.StringVar(&username, "username", "", "Username for the seeded user")
	flag.StringVar(&email, "email", "", "Email for the seeded user")
	flag.StringVar(&password, "password", "", "Password for the seeded user (min 8 characters)")
	flag.StringVar(&avatar, "avatar", "/assets/images/global/icons/default-avatar.png", "Profile picture URL")
	flag.IntVar(&numPosts, "posts", 3, "Number of sample posts to create")
	flag.Parse()

	if username == "" || email == "" || password == "" {
		return fmt.Errorf("--username, --email and --password are required")
	}
	if len(password) < 8 {
		return fmt.Errorf("--password must be at least 8 characters")
	}

	repo, err := sqlite.NewRepository(dbPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx := context.Background()

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		ID:                domain.UserID(uuid.NewString()),
		Name:              name,
		Username:          username,
		Email:             email,
		PasswordHash:      hash,
		ProfilePictureURL: avatar,
		CreatedAt:         time.Now().UTC(),
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Printf("Created user %s (%s)\n", user.Username, user.ID)

	for i := 1; i <= numPosts; i++ {
		now := time.Now().UTC()
		post := &domain.Post{
			ID:        domain.PostID(uuid.NewString()),
			Author:    user.Ref(),
			Title:     fmt.Sprintf("Sample post %d", i),
			Content:   "This post was generated by the seed tool.",
			ImageURL:  "/assets/images/global/placeholder.png",
			Hashtags:  []string{"sample", "seed"},
			Reactions: domain.NewReactions(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.CreatePost(ctx, post); err != nil {
			return fmt.Errorf("create post %d: %w", i, err)
		}
		fmt.Printf("Created post %q (%s)\n", post.Title, post.ID)
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

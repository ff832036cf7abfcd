package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	titleMinLen = 3
	titleMaxLen = 150

	// DefaultListLimit is used when a caller does not ask for a specific
	// page size.
	DefaultListLimit = 20
	// MaxListLimit caps a caller-supplied page size.
	MaxListLimit = 100
	// AuthorPostsLimit is the number of recent posts shown on a profile.
	AuthorPostsLimit = 3
)

// PostInput carries the author-editable fields of a post.
type PostInput struct {
	Title    string
	Content  string
	ImageURL string
	Hashtags []string
}

// PostService owns post lifecycle: creation, listing, author-gated update
// and deletion.
type PostService struct {
	posts  PostStore
	users  UserStore
	logger *slog.Logger
}

// NewPostService wires the service to its stores.
func NewPostService(posts PostStore, users UserStore, logger *slog.Logger) *PostService {
	return &PostService{
		posts:  posts,
		users:  users,
		logger: logger,
	}
}

// CreatePost validates the input and persists a new post owned by userID.
func (s *PostService) CreatePost(ctx context.Context, userID UserID, in PostInput) (*Post, error) {
	if userID == "" {
		return nil, fmt.Errorf("create post: %w", ErrUnauthenticated)
	}
	if err := validatePostInput(in); err != nil {
		return nil, err
	}

	author, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load author %s: %w", userID, err)
	}

	now := time.Now().UTC()
	post := &Post{
		ID:        PostID(uuid.NewString()),
		Author:    author.Ref(),
		Title:     strings.TrimSpace(in.Title),
		Content:   in.Content,
		ImageURL:  in.ImageURL,
		Hashtags:  in.Hashtags,
		Reactions: NewReactions(),
		Comments:  []CommentID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if post.Hashtags == nil {
		post.Hashtags = []string{}
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// GetPost retrieves one post by id. Public.
func (s *PostService) GetPost(ctx context.Context, id PostID) (*Post, error) {
	if err := validateID(string(id)); err != nil {
		return nil, fmt.Errorf("post id %q: %w", id, err)
	}
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load post %s: %w", id, err)
	}
	return post, nil
}

// ListPosts retrieves the newest posts. A non-positive limit falls back to
// the default; oversized limits are capped. Public.
func (s *PostService) ListPosts(ctx context.Context, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	posts, err := s.posts.ListPosts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// ListUserPosts retrieves summaries of a user's most recent posts. Public.
func (s *PostService) ListUserPosts(ctx context.Context, author UserID) ([]PostSummary, error) {
	if err := validateID(string(author)); err != nil {
		return nil, fmt.Errorf("user id %q: %w", author, err)
	}
	posts, err := s.posts.ListPostsByAuthor(ctx, author, AuthorPostsLimit)
	if err != nil {
		return nil, fmt.Errorf("list posts of user %s: %w", author, err)
	}
	return posts, nil
}

// UpdatePost applies the editable fields to the post. Only the author may
// update; anyone else gets Forbidden.
func (s *PostService) UpdatePost(ctx context.Context, id PostID, userID UserID, in PostInput) (*Post, error) {
	if userID == "" {
		return nil, fmt.Errorf("update post: %w", ErrUnauthenticated)
	}
	if err := validateID(string(id)); err != nil {
		return nil, fmt.Errorf("post id %q: %w", id, err)
	}

	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load post %s: %w", id, err)
	}
	if post.Author.ID != userID {
		return nil, fmt.Errorf("post %s is not owned by %s: %w", id, userID, ErrForbidden)
	}

	if in.Title != "" {
		post.Title = strings.TrimSpace(in.Title)
	}
	if in.Content != "" {
		post.Content = in.Content
	}
	if in.ImageURL != "" {
		post.ImageURL = in.ImageURL
	}
	if in.Hashtags != nil {
		post.Hashtags = in.Hashtags
	}
	if err := validatePostInput(PostInput{
		Title:    post.Title,
		Content:  post.Content,
		ImageURL: post.ImageURL,
	}); err != nil {
		return nil, err
	}

	post.UpdatedAt = time.Now().UTC()
	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("update post %s: %w", id, err)
	}
	return post, nil
}

// DeletePost removes the post. Only the author may delete. The post's
// comments are left in place and collected later by the orphan sweep.
func (s *PostService) DeletePost(ctx context.Context, id PostID, userID UserID) error {
	if userID == "" {
		return fmt.Errorf("delete post: %w", ErrUnauthenticated)
	}
	if err := validateID(string(id)); err != nil {
		return fmt.Errorf("post id %q: %w", id, err)
	}

	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return fmt.Errorf("load post %s: %w", id, err)
	}
	if post.Author.ID != userID {
		return fmt.Errorf("post %s is not owned by %s: %w", id, userID, ErrForbidden)
	}
	if err := s.posts.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	return nil
}

func validatePostInput(in PostInput) error {
	title := strings.TrimSpace(in.Title)
	if title == "" || in.Content == "" || in.ImageURL == "" {
		return fmt.Errorf("title, content and image URL are required: %w", ErrInvalidArgument)
	}
	if len(title) < titleMinLen {
		return fmt.Errorf("title must be at least %d characters: %w", titleMinLen, ErrInvalidArgument)
	}
	if len(title) > titleMaxLen {
		return fmt.Errorf("title cannot exceed %d characters: %w", titleMaxLen, ErrInvalidArgument)
	}
	return nil
}

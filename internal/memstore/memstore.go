// Package memstore provides an in-memory implementation of the domain
// store interfaces, used by tests in place of SQLite.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"devblog/internal/domain"
)

// Store keeps all state in maps behind a single mutex. Values are copied
// on the way in and out so callers can't mutate stored state.
type Store struct {
	mu       sync.Mutex
	users    map[domain.UserID]*domain.User
	posts    map[domain.PostID]*domain.Post
	comments map[domain.CommentID]*domain.Comment
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:    make(map[domain.UserID]*domain.User),
		posts:    make(map[domain.PostID]*domain.Post),
		comments: make(map[domain.CommentID]*domain.Comment),
	}
}

// CreateUser inserts a user, rejecting duplicate usernames and emails.
func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return &domain.DuplicateError{Field: "email"}
		}
		if existing.Username == user.Username {
			return &domain.DuplicateError{Field: "username"}
		}
	}
	u := *user
	s.users[user.ID] = &u
	return nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(_ context.Context, id domain.UserID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	u := *user
	return &u, nil
}

// GetUserByEmail retrieves a user by email.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			u := *user
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user with email %s: %w", email, domain.ErrNotFound)
}

// CreatePost inserts a post.
func (s *Store) CreatePost(_ context.Context, post *domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.ID] = copyPost(post)
	return nil
}

// GetPost retrieves a post with its comment id list recomputed.
func (s *Store) GetPost(_ context.Context, id domain.PostID) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
	}
	out := copyPost(post)
	out.Comments = s.commentIDsLocked(id)
	return out, nil
}

// ListPosts retrieves up to limit posts, newest first.
func (s *Store) ListPosts(_ context.Context, limit int) ([]domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	if len(all) > limit {
		all = all[:limit]
	}
	posts := make([]domain.Post, len(all))
	for i, p := range all {
		out := copyPost(p)
		out.Comments = s.commentIDsLocked(p.ID)
		posts[i] = *out
	}
	return posts, nil
}

// ListPostsByAuthor retrieves summaries of the author's newest posts.
func (s *Store) ListPostsByAuthor(_ context.Context, author domain.UserID, limit int) ([]domain.PostSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var owned []*domain.Post
	for _, p := range s.posts {
		if p.Author.ID == author {
			owned = append(owned, p)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	if len(owned) > limit {
		owned = owned[:limit]
	}
	summaries := make([]domain.PostSummary, len(owned))
	for i, p := range owned {
		summaries[i] = domain.PostSummary{
			ID:       p.ID,
			Title:    p.Title,
			Hashtags: append([]string{}, p.Hashtags...),
		}
	}
	return summaries, nil
}

// UpdatePost persists editable fields.
func (s *Store) UpdatePost(_ context.Context, post *domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.posts[post.ID]
	if !ok {
		return fmt.Errorf("post %s: %w", post.ID, domain.ErrNotFound)
	}
	existing.Title = post.Title
	existing.Content = post.Content
	existing.ImageURL = post.ImageURL
	existing.Hashtags = append([]string{}, post.Hashtags...)
	existing.UpdatedAt = post.UpdatedAt
	return nil
}

// DeletePost removes a post. Its comments stay behind, as with the real
// store, until the orphan sweep runs.
func (s *Store) DeletePost(_ context.Context, id domain.PostID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.posts, id)
	return nil
}

// SetUserReaction replaces the user's reaction membership on the post.
func (s *Store) SetUserReaction(_ context.Context, postID domain.PostID, userID domain.UserID, kind domain.ReactionKind, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[postID]
	if !ok {
		return fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
	}
	for k, users := range post.Reactions {
		for i, u := range users {
			if u == userID {
				post.Reactions[k] = append(users[:i:i], users[i+1:]...)
				break
			}
		}
	}
	if active {
		post.Reactions[kind] = append(post.Reactions[kind], userID)
	}
	return nil
}

// InsertComment persists a comment.
func (s *Store) InsertComment(_ context.Context, comment *domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[comment.ID] = copyComment(comment)
	return nil
}

// DeleteComment removes a comment.
func (s *Store) DeleteComment(_ context.Context, id domain.CommentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.comments, id)
	return nil
}

// GetComment retrieves one comment of a post.
func (s *Store) GetComment(_ context.Context, postID domain.PostID, id domain.CommentID) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[id]
	if !ok || comment.PostID != postID {
		return nil, fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}
	return copyComment(comment), nil
}

// ListComments retrieves a post's comments newest-first.
func (s *Store) ListComments(_ context.Context, postID domain.PostID) ([]domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var comments []domain.Comment
	for _, c := range s.comments {
		if c.PostID == postID {
			comments = append(comments, *copyComment(c))
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		}
		return comments[i].ID > comments[j].ID
	})
	return comments, nil
}

// AttachCommentToPost bumps the post's comment counter.
func (s *Store) AttachCommentToPost(_ context.Context, postID domain.PostID, _ domain.CommentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[postID]
	if !ok {
		return fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
	}
	post.CommentCount++
	return nil
}

// SetCommentLike adds or removes the user in the comment's likes set.
func (s *Store) SetCommentLike(_ context.Context, id domain.CommentID, userID domain.UserID, liked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[id]
	if !ok {
		return fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}
	for i, u := range comment.Likes {
		if u == userID {
			if !liked {
				comment.Likes = append(comment.Likes[:i:i], comment.Likes[i+1:]...)
			}
			return nil
		}
	}
	if liked {
		comment.Likes = append(comment.Likes, userID)
	}
	return nil
}

// DeleteOrphanComments removes comments whose post no longer exists.
func (s *Store) DeleteOrphanComments(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, c := range s.comments {
		if _, ok := s.posts[c.PostID]; !ok {
			delete(s.comments, id)
			deleted++
		}
	}
	return deleted, nil
}

// CommentsReferencing returns how many stored comments reference the post.
// Test helper for checking saga rollback.
func (s *Store) CommentsReferencing(postID domain.PostID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n
}

// DeletePostNow drops a post directly, bypassing ownership checks. Test
// helper for simulating a post deleted between validation and attach.
func (s *Store) DeletePostNow(postID domain.PostID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.posts, postID)
}

func (s *Store) commentIDsLocked(postID domain.PostID) []domain.CommentID {
	var comments []*domain.Comment
	for _, c := range s.comments {
		if c.PostID == postID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].ID < comments[j].ID
	})
	ids := make([]domain.CommentID, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	return ids
}

func copyPost(p *domain.Post) *domain.Post {
	out := *p
	out.Hashtags = append([]string{}, p.Hashtags...)
	out.Comments = append([]domain.CommentID{}, p.Comments...)
	out.Reactions = domain.NewReactions()
	for k, users := range p.Reactions {
		out.Reactions[k] = append([]domain.UserID{}, users...)
	}
	return &out
}

func copyComment(c *domain.Comment) *domain.Comment {
	out := *c
	out.Likes = append([]domain.UserID{}, c.Likes...)
	return &out
}

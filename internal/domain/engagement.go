package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EngagementService owns the business logic for reacting to posts,
// commenting on them, and liking comments. It keeps no state of its own;
// every operation is derivable from its inputs and the stores.
type EngagementService struct {
	posts    PostStore
	comments CommentStore
	users    UserStore
	events   EventPublisher
	logger   *slog.Logger
}

// NewEngagementService wires the service to its stores and event publisher.
func NewEngagementService(posts PostStore, comments CommentStore, users UserStore, events EventPublisher, logger *slog.Logger) *EngagementService {
	if events == nil {
		events = NopPublisher{}
	}
	return &EngagementService{
		posts:    posts,
		comments: comments,
		users:    users,
		events:   events,
		logger:   logger,
	}
}

// ToggleReaction flips userID's membership in the post's kind bucket. A
// user holds at most one reaction per post, so selecting a new kind also
// clears any previous one; selecting the held kind clears it outright.
// Returns the post with its updated reaction state.
func (s *EngagementService) ToggleReaction(ctx context.Context, postID PostID, userID UserID, kind ReactionKind) (*Post, error) {
	if userID == "" {
		return nil, fmt.Errorf("toggle reaction: %w", ErrUnauthenticated)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("reaction kind %q: %w", kind, ErrInvalidArgument)
	}
	if err := validateID(string(postID)); err != nil {
		return nil, fmt.Errorf("post id %q: %w", postID, err)
	}

	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("load post %s: %w", postID, err)
	}

	active := post.Reactions.Toggle(userID, kind)
	if err := s.posts.SetUserReaction(ctx, postID, userID, kind, active); err != nil {
		return nil, fmt.Errorf("persist reaction on post %s: %w", postID, err)
	}

	s.events.Publish(Event{
		Type:   EventReaction,
		PostID: postID,
		Actor:  userID,
		Kind:   kind,
		Active: active,
	})
	return post, nil
}

// CreateComment persists a new comment and links it to its post. The two
// writes are a saga: if the post disappears before the link is recorded,
// the comment is deleted again so no orphan survives a failed call.
func (s *EngagementService) CreateComment(ctx context.Context, postID PostID, userID UserID, content string) (*Comment, error) {
	if userID == "" {
		return nil, fmt.Errorf("create comment: %w", ErrUnauthenticated)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("comment content is empty: %w", ErrInvalidArgument)
	}
	if err := validateID(string(postID)); err != nil {
		return nil, fmt.Errorf("post id %q: %w", postID, err)
	}

	if _, err := s.posts.GetPost(ctx, postID); err != nil {
		return nil, fmt.Errorf("load post %s: %w", postID, err)
	}
	author, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load author %s: %w", userID, err)
	}

	// A disconnecting caller must not abort the saga between its two
	// writes; that would strand step one without its compensation.
	ctx = context.WithoutCancel(ctx)

	comment := &Comment{
		ID:        CommentID(uuid.NewString()),
		PostID:    postID,
		Author:    author.Ref(),
		Content:   content,
		Likes:     []UserID{},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.comments.InsertComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	if err := s.comments.AttachCommentToPost(ctx, postID, comment.ID); err != nil {
		// The attach failed, most likely because the post was deleted while
		// we were writing. Undo step one before reporting; a failed undo
		// leaves an orphan for the sweep to collect.
		if delErr := s.comments.DeleteComment(ctx, comment.ID); delErr != nil {
			s.logger.Error("comment rollback failed, orphan left for sweep",
				"comment_id", comment.ID,
				"post_id", postID,
				"attach_error", err,
				"error", delErr,
			)
			return nil, fmt.Errorf("attach comment to post %s: %v; rollback: %w", postID, err, delErr)
		}
		return nil, fmt.Errorf("attach comment to post %s: %w", postID, err)
	}

	s.events.Publish(Event{
		Type:      EventComment,
		PostID:    postID,
		CommentID: comment.ID,
		Actor:     userID,
		Active:    true,
	})
	return comment, nil
}

// ListComments returns a post's comments newest-first. The post's
// existence is checked first so an unknown post reads as NotFound rather
// than an empty list. Public, no credential required.
func (s *EngagementService) ListComments(ctx context.Context, postID PostID) ([]Comment, error) {
	if err := validateID(string(postID)); err != nil {
		return nil, fmt.Errorf("post id %q: %w", postID, err)
	}
	if _, err := s.posts.GetPost(ctx, postID); err != nil {
		return nil, fmt.Errorf("load post %s: %w", postID, err)
	}
	comments, err := s.comments.ListComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments of post %s: %w", postID, err)
	}
	return comments, nil
}

// ToggleLike flips userID's membership in the comment's likes set and
// returns the comment with its updated state.
func (s *EngagementService) ToggleLike(ctx context.Context, postID PostID, commentID CommentID, userID UserID) (*Comment, error) {
	if userID == "" {
		return nil, fmt.Errorf("toggle like: %w", ErrUnauthenticated)
	}
	if err := validateID(string(postID)); err != nil {
		return nil, fmt.Errorf("post id %q: %w", postID, err)
	}
	if err := validateID(string(commentID)); err != nil {
		return nil, fmt.Errorf("comment id %q: %w", commentID, err)
	}

	comment, err := s.comments.GetComment(ctx, postID, commentID)
	if err != nil {
		return nil, fmt.Errorf("load comment %s: %w", commentID, err)
	}

	liked := !comment.Liked(userID)
	if err := s.comments.SetCommentLike(ctx, commentID, userID, liked); err != nil {
		return nil, fmt.Errorf("persist like on comment %s: %w", commentID, err)
	}
	if liked {
		comment.Likes = append(comment.Likes, userID)
	} else {
		for i, u := range comment.Likes {
			if u == userID {
				comment.Likes = append(comment.Likes[:i:i], comment.Likes[i+1:]...)
				break
			}
		}
	}

	s.events.Publish(Event{
		Type:      EventLike,
		PostID:    postID,
		CommentID: commentID,
		Actor:     userID,
		Active:    liked,
	})
	return comment, nil
}

// StartOrphanSweep runs a background loop that deletes comments whose post
// no longer exists, covering failed saga compensations and deleted posts.
// It runs immediately on start, then at the given interval, and blocks
// until ctx is cancelled.
func (s *EngagementService) StartOrphanSweep(ctx context.Context, interval time.Duration) {
	s.runSweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runSweep(ctx)
		}
	}
}

func (s *EngagementService) runSweep(ctx context.Context) {
	deleted, err := s.comments.DeleteOrphanComments(ctx)
	if err != nil {
		s.logger.Error("orphan comment sweep failed", "error", err)
	} else if deleted > 0 {
		s.logger.Info("orphan comment sweep complete", "deleted", deleted)
	}
}

// validateID rejects ids that are not well-formed UUIDs before they reach
// the store, so a malformed id reads as InvalidArgument rather than
// NotFound.
func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidArgument
	}
	return nil
}

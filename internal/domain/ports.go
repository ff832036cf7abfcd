package domain

import "context"

// UserStore defines persistence operations for user accounts.
type UserStore interface {
	// CreateUser inserts a new user. Returns a *DuplicateError if the
	// username or email is already taken.
	CreateUser(ctx context.Context, user *User) error

	// GetUser retrieves a user by id. Returns ErrNotFound if absent.
	GetUser(ctx context.Context, id UserID) (*User, error)

	// GetUserByEmail retrieves a user by email. Returns ErrNotFound if absent.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// PostStore defines persistence operations for posts and their reaction
// state.
type PostStore interface {
	// CreatePost inserts a new post.
	CreatePost(ctx context.Context, post *Post) error

	// GetPost retrieves a post with its author, reaction buckets, and
	// comment id list populated. Returns ErrNotFound if absent.
	GetPost(ctx context.Context, id PostID) (*Post, error)

	// ListPosts retrieves up to limit posts ordered newest-first.
	ListPosts(ctx context.Context, limit int) ([]Post, error)

	// ListPostsByAuthor retrieves up to limit of the author's most recent
	// posts as summaries.
	ListPostsByAuthor(ctx context.Context, author UserID, limit int) ([]PostSummary, error)

	// UpdatePost persists the post's editable fields. Returns ErrNotFound
	// if the post no longer exists.
	UpdatePost(ctx context.Context, post *Post) error

	// DeletePost removes a post along with its reaction rows. Comments are
	// deliberately left behind; the orphan sweep collects them.
	DeletePost(ctx context.Context, id PostID) error

	// SetUserReaction atomically replaces the user's reaction membership on
	// the post: the user is removed from every bucket and, when active,
	// re-added to kind. Only the acting user's membership is touched, so
	// concurrent calls for different users never clobber each other.
	SetUserReaction(ctx context.Context, postID PostID, userID UserID, kind ReactionKind, active bool) error
}

// CommentStore defines persistence operations for comments and their likes.
type CommentStore interface {
	// InsertComment persists a new comment. The comment is not linked to
	// its post until AttachCommentToPost succeeds.
	InsertComment(ctx context.Context, comment *Comment) error

	// DeleteComment removes a comment and its like rows. Used as the
	// compensating action of the comment-creation saga and by the orphan
	// sweep.
	DeleteComment(ctx context.Context, id CommentID) error

	// GetComment retrieves one comment of a post with author and likes
	// populated. Returns ErrNotFound if absent or owned by another post.
	GetComment(ctx context.Context, postID PostID, id CommentID) (*Comment, error)

	// ListComments retrieves a post's comments newest-first with author
	// details populated.
	ListComments(ctx context.Context, postID PostID) ([]Comment, error)

	// AttachCommentToPost records the comment on the post's side of the
	// relationship. Returns ErrNotFound if the post vanished between
	// validation and attach.
	AttachCommentToPost(ctx context.Context, postID PostID, id CommentID) error

	// SetCommentLike atomically adds or removes the user in the comment's
	// likes set. Adding an existing member or removing an absent one is a
	// no-op.
	SetCommentLike(ctx context.Context, id CommentID, userID UserID, liked bool) error

	// DeleteOrphanComments removes comments whose post no longer exists and
	// returns the number deleted.
	DeleteOrphanComments(ctx context.Context) (int64, error)
}

// EventType classifies a live engagement event.
type EventType string

const (
	EventReaction EventType = "reaction"
	EventComment  EventType = "comment"
	EventLike     EventType = "like"
)

// Event is a notification that a post's engagement state changed.
type Event struct {
	Type      EventType    `json:"type"`
	PostID    PostID       `json:"postId"`
	CommentID CommentID    `json:"commentId,omitempty"`
	Actor     UserID       `json:"actor"`
	Kind      ReactionKind `json:"kind,omitempty"`
	Active    bool         `json:"active"`
}

// EventPublisher fans engagement events out to live subscribers. Publish
// must not block the calling request.
type EventPublisher interface {
	Publish(event Event)
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

package domain

import "time"

// PostID identifies a stored post.
type PostID string

// UserID identifies a user. Users are managed by the identity layer; the
// engagement core only reads their ids for membership tests.
type UserID string

// CommentID identifies a comment.
type CommentID string

// ReactionKind is one of the fixed reaction buckets a post carries.
type ReactionKind string

const (
	ReactionHeart     ReactionKind = "heart"
	ReactionUnicorn   ReactionKind = "unicorn"
	ReactionExploding ReactionKind = "exploding"
	ReactionFire      ReactionKind = "fire"
	ReactionEyes      ReactionKind = "eyes"
)

// ReactionKinds returns the closed set of supported reaction kinds.
func ReactionKinds() []ReactionKind {
	return []ReactionKind{
		ReactionHeart,
		ReactionUnicorn,
		ReactionExploding,
		ReactionFire,
		ReactionEyes,
	}
}

// Valid reports whether k is one of the supported reaction kinds.
func (k ReactionKind) Valid() bool {
	switch k {
	case ReactionHeart, ReactionUnicorn, ReactionExploding, ReactionFire, ReactionEyes:
		return true
	}
	return false
}

// Reactions maps each reaction kind to the users who chose it. A user id
// appears in at most one bucket of a given post.
type Reactions map[ReactionKind][]UserID

// NewReactions returns a reaction map with every bucket present and empty.
func NewReactions() Reactions {
	r := make(Reactions, len(ReactionKinds()))
	for _, k := range ReactionKinds() {
		r[k] = []UserID{}
	}
	return r
}

// KindFor returns the bucket currently holding userID, if any.
func (r Reactions) KindFor(userID UserID) (ReactionKind, bool) {
	for kind, users := range r {
		for _, u := range users {
			if u == userID {
				return kind, true
			}
		}
	}
	return "", false
}

// Toggle applies toggle semantics for userID on the given bucket: the user
// is removed from every bucket, then re-added to kind unless kind was the
// bucket they already held. Reports whether the user holds the reaction
// afterwards.
func (r Reactions) Toggle(userID UserID, kind ReactionKind) bool {
	current, reacted := r.KindFor(userID)
	selected := reacted && current == kind
	r.remove(userID)
	if !selected {
		r[kind] = append(r[kind], userID)
	}
	return !selected
}

// remove deletes userID from every bucket. Removing an absent id is a no-op.
func (r Reactions) remove(userID UserID) {
	for kind, users := range r {
		for i, u := range users {
			if u == userID {
				r[kind] = append(users[:i:i], users[i+1:]...)
				break
			}
		}
	}
}

// Post is a published article with its engagement state.
type Post struct {
	ID           PostID      `json:"id"`
	Author       UserRef     `json:"author"`
	Title        string      `json:"title"`
	Content      string      `json:"content"`
	ImageURL     string      `json:"imageUrl"`
	Hashtags     []string    `json:"hashtags"`
	Reactions    Reactions   `json:"reactions"`
	Comments     []CommentID `json:"comments"`
	CommentCount int         `json:"commentCount"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// PostSummary is the trimmed shape returned for a user's recent posts.
type PostSummary struct {
	ID       PostID   `json:"id"`
	Title    string   `json:"title"`
	Hashtags []string `json:"hashtags"`
}

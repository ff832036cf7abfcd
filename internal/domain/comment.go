package domain

import "time"

// Comment is a user's comment on a post. Comments are immutable after
// creation except for their likes set.
type Comment struct {
	ID        CommentID `json:"id"`
	PostID    PostID    `json:"post"`
	Author    UserRef   `json:"author"`
	Content   string    `json:"content"`
	Likes     []UserID  `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
}

// Liked reports whether userID is in the comment's likes set.
func (c *Comment) Liked(userID UserID) bool {
	return containsUser(c.Likes, userID)
}

func containsUser(users []UserID, id UserID) bool {
	for _, u := range users {
		if u == id {
			return true
		}
	}
	return false
}

package domain

import "time"

// User is an account managed by the identity layer. The engagement core
// never mutates users; it reads them to populate author details.
type User struct {
	ID                UserID    `json:"id"`
	Name              string    `json:"name"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	ProfilePictureURL string    `json:"profilePictureUrl"`
	Bio               string    `json:"bio,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// UserRef is the display subset of a user attached to posts and comments.
type UserRef struct {
	ID                UserID `json:"id"`
	Username          string `json:"username"`
	Name              string `json:"name"`
	ProfilePictureURL string `json:"profilePictureUrl"`
}

// Ref returns the display subset of the user.
func (u *User) Ref() UserRef {
	return UserRef{
		ID:                u.ID,
		Username:          u.Username,
		Name:              u.Name,
		ProfilePictureURL: u.ProfilePictureURL,
	}
}

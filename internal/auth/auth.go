// Package auth is the identity provider: it manages accounts, hashes
// credentials, and resolves bearer tokens to stable user ids.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"devblog/internal/domain"
)

const minPasswordLen = 8

// Service issues and verifies credentials against the user store.
type Service struct {
	users  domain.UserStore
	secret []byte
	ttl    time.Duration
}

// NewService creates an identity service signing tokens with secret. Tokens
// expire after ttl.
func NewService(users domain.UserStore, secret []byte, ttl time.Duration) *Service {
	return &Service{
		users:  users,
		secret: secret,
		ttl:    ttl,
	}
}

// SignupInput carries the fields required to create an account.
type SignupInput struct {
	Name              string
	Username          string
	Email             string
	Password          string
	ProfilePictureURL string
}

// Credentials is the result of a successful signup or login.
type Credentials struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Signup creates a new account and returns a fresh bearer token for it.
// Duplicate usernames or emails surface as *domain.DuplicateError so the
// client can highlight the offending field.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Credentials, error) {
	if in.Name == "" || in.Username == "" || in.Email == "" || in.Password == "" || in.ProfilePictureURL == "" {
		return nil, fmt.Errorf("all signup fields are required: %w", domain.ErrInvalidArgument)
	}
	if len(in.Password) < minPasswordLen {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLen, domain.ErrInvalidArgument)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:                domain.UserID(uuid.NewString()),
		Name:              in.Name,
		Username:          in.Username,
		Email:             in.Email,
		PasswordHash:      hash,
		ProfilePictureURL: in.ProfilePictureURL,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.mintToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}
	return &Credentials{Token: token, User: user}, nil
}

// Login verifies the email and password and returns a fresh bearer token.
// Unknown emails and wrong passwords report the same error so neither leaks
// which one was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (*Credentials, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required: %w", domain.ErrInvalidArgument)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("load user by email: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthenticated)
	}

	token, err := s.mintToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}
	return &Credentials{Token: token, User: user}, nil
}

// VerifyToken resolves a bearer token to the user id it was minted for.
func (s *Service) VerifyToken(token string) (domain.UserID, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("verify token: %w", domain.ErrUnauthenticated)
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("token has no subject: %w", domain.ErrUnauthenticated)
	}
	return domain.UserID(claims.Subject), nil
}

// UserFromHeader resolves an "Authorization: Bearer <token>" header value
// to a user id.
func (s *Service) UserFromHeader(header string) (domain.UserID, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", fmt.Errorf("missing bearer token: %w", domain.ErrUnauthenticated)
	}
	return s.VerifyToken(strings.TrimPrefix(header, prefix))
}

func (s *Service) mintToken(userID domain.UserID) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   string(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// HashPassword produces a bcrypt hash of the plain password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

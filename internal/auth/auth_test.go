package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devblog/internal/auth"
	"devblog/internal/domain"
	"devblog/internal/memstore"
)

var secret = []byte("test-secret")

func validSignup() auth.SignupInput {
	return auth.SignupInput{
		Name:              "Alice",
		Username:          "alice",
		Email:             "alice@example.com",
		Password:          "correct horse",
		ProfilePictureURL: "/avatar.png",
	}
}

func TestSignup(t *testing.T) {
	ctx := context.Background()

	t.Run("creates account and returns a working token", func(t *testing.T) {
		svc := auth.NewService(memstore.New(), secret, time.Hour)

		creds, err := svc.Signup(ctx, validSignup())
		require.NoError(t, err)
		assert.NotEmpty(t, creds.Token)
		assert.Equal(t, "alice", creds.User.Username)

		userID, err := svc.VerifyToken(creds.Token)
		require.NoError(t, err)
		assert.Equal(t, creds.User.ID, userID)
	})

	t.Run("missing fields", func(t *testing.T) {
		svc := auth.NewService(memstore.New(), secret, time.Hour)
		in := validSignup()
		in.Email = ""
		_, err := svc.Signup(ctx, in)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("short password", func(t *testing.T) {
		svc := auth.NewService(memstore.New(), secret, time.Hour)
		in := validSignup()
		in.Password = "short"
		_, err := svc.Signup(ctx, in)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("duplicate email names the field", func(t *testing.T) {
		svc := auth.NewService(memstore.New(), secret, time.Hour)
		_, err := svc.Signup(ctx, validSignup())
		require.NoError(t, err)

		in := validSignup()
		in.Username = "alice2"
		_, err = svc.Signup(ctx, in)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)

		var dup *domain.DuplicateError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "email", dup.Field)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		svc := auth.NewService(memstore.New(), secret, time.Hour)
		signedUp, err := svc.Signup(ctx, validSignup())
		require.NoError(t, err)

		creds, err := svc.Login(ctx, "alice@example.com", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, signedUp.User.ID, creds.User.ID)

		userID, err := svc.VerifyToken(creds.Token)
		require.NoError(t, err)
		assert.Equal(t, signedUp.User.ID, userID)
	})

	t.Run("wrong password and unknown email fail identically", func(t *testing.T) {
		svc := auth.NewService(memstore.New(), secret, time.Hour)
		_, err := svc.Signup(ctx, validSignup())
		require.NoError(t, err)

		_, badPass := svc.Login(ctx, "alice@example.com", "wrong password")
		_, badEmail := svc.Login(ctx, "nobody@example.com", "correct horse")

		assert.ErrorIs(t, badPass, domain.ErrUnauthenticated)
		assert.ErrorIs(t, badEmail, domain.ErrUnauthenticated)
		assert.Equal(t, badPass.Error(), badEmail.Error())
	})
}

func TestVerifyToken(t *testing.T) {
	ctx := context.Background()

	t.Run("garbage token", func(t *testing.T) {
		svc := auth.NewService(memstore.New(), secret, time.Hour)
		_, err := svc.VerifyToken("not.a.token")
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("expired token", func(t *testing.T) {
		svc := auth.NewService(memstore.New(), secret, -time.Minute)
		creds, err := svc.Signup(ctx, validSignup())
		require.NoError(t, err)

		_, err = svc.VerifyToken(creds.Token)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		issuer := auth.NewService(memstore.New(), []byte("other-secret"), time.Hour)
		creds, err := issuer.Signup(ctx, validSignup())
		require.NoError(t, err)

		verifier := auth.NewService(memstore.New(), secret, time.Hour)
		_, err = verifier.VerifyToken(creds.Token)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})
}

func TestUserFromHeader(t *testing.T) {
	ctx := context.Background()
	svc := auth.NewService(memstore.New(), secret, time.Hour)
	creds, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		userID, err := svc.UserFromHeader("Bearer " + creds.Token)
		require.NoError(t, err)
		assert.Equal(t, creds.User.ID, userID)
	})

	t.Run("missing prefix", func(t *testing.T) {
		_, err := svc.UserFromHeader(creds.Token)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("empty header", func(t *testing.T) {
		_, err := svc.UserFromHeader("")
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})
}

package domain_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devblog/internal/domain"
	"devblog/internal/memstore"
)

func newPostFixture(t *testing.T) (*domain.PostService, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, &domain.User{
		ID: aliceID, Name: "Alice", Username: "alice", Email: "alice@example.com",
	}))
	require.NoError(t, store.CreateUser(ctx, &domain.User{
		ID: bobID, Name: "Bob", Username: "bob", Email: "bob@example.com",
	}))
	return domain.NewPostService(store, store, testLogger()), store
}

func validInput() domain.PostInput {
	return domain.PostInput{
		Title:    "My first post",
		Content:  "Some content.",
		ImageURL: "/cover.png",
		Hashtags: []string{"go"},
	}
}

func TestCreatePost(t *testing.T) {
	ctx := context.Background()

	t.Run("creates with author populated", func(t *testing.T) {
		svc, _ := newPostFixture(t)
		post, err := svc.CreatePost(ctx, aliceID, validInput())
		require.NoError(t, err)
		assert.Equal(t, "alice", post.Author.Username)
		assert.NotEmpty(t, post.ID)
		assert.Zero(t, post.CommentCount)
		for _, kind := range domain.ReactionKinds() {
			assert.Empty(t, post.Reactions[kind])
		}
	})

	t.Run("validation", func(t *testing.T) {
		svc, _ := newPostFixture(t)
		cases := map[string]domain.PostInput{
			"missing title":    {Content: "c", ImageURL: "/i.png"},
			"missing content":  {Title: "A title", ImageURL: "/i.png"},
			"missing imageUrl": {Title: "A title", Content: "c"},
			"title too short":  {Title: "ab", Content: "c", ImageURL: "/i.png"},
			"title too long":   {Title: strings.Repeat("x", 151), Content: "c", ImageURL: "/i.png"},
		}
		for name, in := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := svc.CreatePost(ctx, aliceID, in)
				assert.ErrorIs(t, err, domain.ErrInvalidArgument)
			})
		}
	})

	t.Run("unknown author", func(t *testing.T) {
		svc, _ := newPostFixture(t)
		_, err := svc.CreatePost(ctx, domain.UserID("99999999-9999-4999-8999-999999999999"), validInput())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestListPosts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newPostFixture(t)

	for i := 0; i < 5; i++ {
		in := validInput()
		in.Title = "Post number " + strings.Repeat("i", i+1)
		_, err := svc.CreatePost(ctx, aliceID, in)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	posts, err := svc.ListPosts(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, posts, 3)

	// Newest first.
	for i := 1; i < len(posts); i++ {
		assert.False(t, posts[i].CreatedAt.After(posts[i-1].CreatedAt))
	}

	all, err := svc.ListPosts(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestListUserPosts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newPostFixture(t)

	for i := 0; i < 4; i++ {
		_, err := svc.CreatePost(ctx, aliceID, validInput())
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}
	_, err := svc.CreatePost(ctx, bobID, validInput())
	require.NoError(t, err)

	summaries, err := svc.ListUserPosts(ctx, aliceID)
	require.NoError(t, err)
	assert.Len(t, summaries, domain.AuthorPostsLimit)
	for _, s := range summaries {
		assert.NotEmpty(t, s.Title)
	}
}

func TestUpdatePost(t *testing.T) {
	ctx := context.Background()

	t.Run("author can update", func(t *testing.T) {
		svc, _ := newPostFixture(t)
		post, err := svc.CreatePost(ctx, aliceID, validInput())
		require.NoError(t, err)

		updated, err := svc.UpdatePost(ctx, post.ID, aliceID, domain.PostInput{Title: "New title"})
		require.NoError(t, err)
		assert.Equal(t, "New title", updated.Title)
		assert.Equal(t, post.Content, updated.Content)
	})

	t.Run("non-author is forbidden", func(t *testing.T) {
		svc, _ := newPostFixture(t)
		post, err := svc.CreatePost(ctx, aliceID, validInput())
		require.NoError(t, err)

		_, err = svc.UpdatePost(ctx, post.ID, bobID, domain.PostInput{Title: "Hijacked"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestDeletePost(t *testing.T) {
	ctx := context.Background()

	t.Run("author can delete", func(t *testing.T) {
		svc, _ := newPostFixture(t)
		post, err := svc.CreatePost(ctx, aliceID, validInput())
		require.NoError(t, err)

		require.NoError(t, svc.DeletePost(ctx, post.ID, aliceID))
		_, err = svc.GetPost(ctx, post.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("non-author is forbidden", func(t *testing.T) {
		svc, _ := newPostFixture(t)
		post, err := svc.CreatePost(ctx, aliceID, validInput())
		require.NoError(t, err)

		err = svc.DeletePost(ctx, post.ID, bobID)
		assert.ErrorIs(t, err, domain.ErrForbidden)

		_, err = svc.GetPost(ctx, post.ID)
		assert.NoError(t, err)
	})
}

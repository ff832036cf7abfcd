package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devblog/internal/domain"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *Repository, username string) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:                domain.UserID(uuid.NewString()),
		Name:              username,
		Username:          username,
		Email:             username + "@example.com",
		PasswordHash:      "hash",
		ProfilePictureURL: "/avatar.png",
		CreatedAt:         time.Now().UTC(),
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

func seedPost(t *testing.T, repo *Repository, author *domain.User) *domain.Post {
	t.Helper()
	now := time.Now().UTC()
	post := &domain.Post{
		ID:        domain.PostID(uuid.NewString()),
		Author:    author.Ref(),
		Title:     "A post",
		Content:   "content",
		ImageURL:  "/cover.png",
		Hashtags:  []string{"go"},
		Reactions: domain.NewReactions(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.CreatePost(context.Background(), post))
	return post
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	t.Run("roundtrip", func(t *testing.T) {
		user := seedUser(t, repo, "alice")

		byID, err := repo.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Username, byID.Username)
		assert.Equal(t, user.CreatedAt.UnixMilli(), byID.CreatedAt.UnixMilli())

		byEmail, err := repo.GetUserByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := repo.GetUser(ctx, domain.UserID(uuid.NewString()))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		user := seedUser(t, repo, "carol")
		dup := *user
		dup.ID = domain.UserID(uuid.NewString())
		dup.Username = "carol2"

		err := repo.CreateUser(ctx, &dup)
		require.Error(t, err)
		var dupErr *domain.DuplicateError
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, "email", dupErr.Field)
	})
}

func TestPosts(t *testing.T) {
	ctx := context.Background()

	t.Run("roundtrip with engagement state", func(t *testing.T) {
		repo := newTestRepo(t)
		alice := seedUser(t, repo, "alice")
		post := seedPost(t, repo, alice)

		got, err := repo.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, post.Title, got.Title)
		assert.Equal(t, []string{"go"}, got.Hashtags)
		assert.Equal(t, "alice", got.Author.Username)
		assert.Empty(t, got.Comments)
		for _, kind := range domain.ReactionKinds() {
			assert.Empty(t, got.Reactions[kind])
		}
	})

	t.Run("list newest first", func(t *testing.T) {
		repo := newTestRepo(t)
		alice := seedUser(t, repo, "alice")
		for i := 0; i < 3; i++ {
			seedPost(t, repo, alice)
			time.Sleep(2 * time.Millisecond)
		}

		posts, err := repo.ListPosts(ctx, 2)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.True(t, posts[0].CreatedAt.After(posts[1].CreatedAt) ||
			posts[0].CreatedAt.Equal(posts[1].CreatedAt))
	})

	t.Run("update missing post", func(t *testing.T) {
		repo := newTestRepo(t)
		alice := seedUser(t, repo, "alice")
		post := seedPost(t, repo, alice)
		require.NoError(t, repo.DeletePost(ctx, post.ID))

		err := repo.UpdatePost(ctx, post)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("summaries by author", func(t *testing.T) {
		repo := newTestRepo(t)
		alice := seedUser(t, repo, "alice")
		bob := seedUser(t, repo, "bob")
		seedPost(t, repo, alice)
		seedPost(t, repo, alice)
		seedPost(t, repo, bob)

		summaries, err := repo.ListPostsByAuthor(ctx, alice.ID, 10)
		require.NoError(t, err)
		assert.Len(t, summaries, 2)
	})
}

func TestSetUserReaction(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	alice := seedUser(t, repo, "alice")
	bob := seedUser(t, repo, "bob")
	post := seedPost(t, repo, alice)

	require.NoError(t, repo.SetUserReaction(ctx, post.ID, alice.ID, domain.ReactionHeart, true))
	require.NoError(t, repo.SetUserReaction(ctx, post.ID, bob.ID, domain.ReactionHeart, true))

	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.UserID{alice.ID, bob.ID}, got.Reactions[domain.ReactionHeart])

	// Switching kinds clears the previous bucket for that user only.
	require.NoError(t, repo.SetUserReaction(ctx, post.ID, alice.ID, domain.ReactionFire, true))
	got, err = repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{bob.ID}, got.Reactions[domain.ReactionHeart])
	assert.Equal(t, []domain.UserID{alice.ID}, got.Reactions[domain.ReactionFire])

	// Clearing removes the user from every bucket.
	require.NoError(t, repo.SetUserReaction(ctx, post.ID, alice.ID, domain.ReactionFire, false))
	got, err = repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Reactions[domain.ReactionFire])
}

func TestComments(t *testing.T) {
	ctx := context.Background()

	newComment := func(post *domain.Post, author *domain.User, content string) *domain.Comment {
		return &domain.Comment{
			ID:        domain.CommentID(uuid.NewString()),
			PostID:    post.ID,
			Author:    author.Ref(),
			Content:   content,
			Likes:     []domain.UserID{},
			CreatedAt: time.Now().UTC(),
		}
	}

	t.Run("insert attach list", func(t *testing.T) {
		repo := newTestRepo(t)
		alice := seedUser(t, repo, "alice")
		post := seedPost(t, repo, alice)

		first := newComment(post, alice, "first")
		require.NoError(t, repo.InsertComment(ctx, first))
		require.NoError(t, repo.AttachCommentToPost(ctx, post.ID, first.ID))
		time.Sleep(2 * time.Millisecond)
		second := newComment(post, alice, "second")
		require.NoError(t, repo.InsertComment(ctx, second))
		require.NoError(t, repo.AttachCommentToPost(ctx, post.ID, second.ID))

		comments, err := repo.ListComments(ctx, post.ID)
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.Equal(t, "second", comments[0].Content)
		assert.Equal(t, "alice", comments[0].Author.Username)

		got, err := repo.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.CommentCount)
		assert.Equal(t, []domain.CommentID{first.ID, second.ID}, got.Comments)
	})

	t.Run("attach to missing post", func(t *testing.T) {
		repo := newTestRepo(t)
		err := repo.AttachCommentToPost(ctx, domain.PostID(uuid.NewString()), domain.CommentID(uuid.NewString()))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("likes are a set", func(t *testing.T) {
		repo := newTestRepo(t)
		alice := seedUser(t, repo, "alice")
		post := seedPost(t, repo, alice)
		comment := newComment(post, alice, "like me")
		require.NoError(t, repo.InsertComment(ctx, comment))

		require.NoError(t, repo.SetCommentLike(ctx, comment.ID, alice.ID, true))
		require.NoError(t, repo.SetCommentLike(ctx, comment.ID, alice.ID, true))

		got, err := repo.GetComment(ctx, post.ID, comment.ID)
		require.NoError(t, err)
		assert.Equal(t, []domain.UserID{alice.ID}, got.Likes)

		require.NoError(t, repo.SetCommentLike(ctx, comment.ID, alice.ID, false))
		got, err = repo.GetComment(ctx, post.ID, comment.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Likes)
	})

	t.Run("comment scoped to its post", func(t *testing.T) {
		repo := newTestRepo(t)
		alice := seedUser(t, repo, "alice")
		post := seedPost(t, repo, alice)
		other := seedPost(t, repo, alice)
		comment := newComment(post, alice, "scoped")
		require.NoError(t, repo.InsertComment(ctx, comment))

		_, err := repo.GetComment(ctx, other.ID, comment.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("orphan sweep", func(t *testing.T) {
		repo := newTestRepo(t)
		alice := seedUser(t, repo, "alice")
		post := seedPost(t, repo, alice)
		kept := seedPost(t, repo, alice)

		orphan := newComment(post, alice, "orphan")
		require.NoError(t, repo.InsertComment(ctx, orphan))
		require.NoError(t, repo.SetCommentLike(ctx, orphan.ID, alice.ID, true))
		keptComment := newComment(kept, alice, "kept")
		require.NoError(t, repo.InsertComment(ctx, keptComment))

		require.NoError(t, repo.DeletePost(ctx, post.ID))

		deleted, err := repo.DeleteOrphanComments(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		_, err = repo.GetComment(ctx, post.ID, orphan.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = repo.GetComment(ctx, kept.ID, keptComment.ID)
		assert.NoError(t, err)
	})
}

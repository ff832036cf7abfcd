// Package sqlite implements the domain store interfaces on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"devblog/internal/domain"
)

// Repository implements domain.UserStore, domain.PostStore and
// domain.CommentStore using SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository opens the SQLite database at path, verifies the
// connection, and ensures the schema exists. The caller should call Close
// when the repository is no longer needed.
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// on concurrent write transactions.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			profile_picture_url TEXT NOT NULL,
			bio TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			author_id TEXT NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			image_url TEXT NOT NULL,
			hashtags TEXT NOT NULL DEFAULT '[]',
			comment_count INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS post_reactions (
			post_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE (post_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id TEXT PRIMARY KEY,
			post_id TEXT NOT NULL,
			author_id TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS comment_likes (
			comment_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE (comment_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_author ON posts (author_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_post ON comments (post_id, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateUser inserts a new user, translating unique-constraint violations
// into *domain.DuplicateError.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, username, email, password_hash, profile_picture_url, bio, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Username, user.Email,
		user.PasswordHash, user.ProfilePictureURL, user.Bio,
		user.CreatedAt.UnixMilli(),
	)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "users.username"):
			return &domain.DuplicateError{Field: "username"}
		case strings.Contains(err.Error(), "users.email"):
			return &domain.DuplicateError{Field: "email"}
		}
		return err
	}
	return nil
}

// GetUser retrieves a user by id.
func (r *Repository) GetUser(ctx context.Context, id domain.UserID) (*domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, name, username, email, password_hash, profile_picture_url, bio, created_at
		FROM users WHERE id = ?`, id))
}

// GetUserByEmail retrieves a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, name, username, email, password_hash, profile_picture_url, bio, created_at
		FROM users WHERE email = ?`, email))
}

func (r *Repository) scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u       domain.User
		created int64
	)
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.PasswordHash, &u.ProfilePictureURL, &u.Bio, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = time.UnixMilli(created).UTC()
	return &u, nil
}

// CreatePost inserts a new post.
func (r *Repository) CreatePost(ctx context.Context, post *domain.Post) error {
	hashtags, err := json.Marshal(post.Hashtags)
	if err != nil {
		return fmt.Errorf("marshal hashtags: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO posts (id, author_id, title, content, image_url, hashtags, comment_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		post.ID, post.Author.ID, post.Title, post.Content, post.ImageURL,
		string(hashtags), post.CreatedAt.UnixMilli(), post.UpdatedAt.UnixMilli(),
	)
	return err
}

const postColumns = `
	p.id, p.title, p.content, p.image_url, p.hashtags, p.comment_count,
	p.created_at, p.updated_at,
	u.id, u.username, u.name, u.profile_picture_url`

// GetPost retrieves a post with author, reactions, and comment ids
// populated.
func (r *Repository) GetPost(ctx context.Context, id domain.PostID) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		INNER JOIN users u ON p.author_id = u.id
		WHERE p.id = ?`, id)

	post, err := scanPost(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}
	if err := r.loadEngagement(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// ListPosts retrieves up to limit posts, newest first.
func (r *Repository) ListPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		INNER JOIN users u ON p.author_id = u.id
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		post, err := scanPost(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	for i := range posts {
		if err := r.loadEngagement(ctx, &posts[i]); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

// ListPostsByAuthor retrieves summaries of the author's most recent posts.
func (r *Repository) ListPostsByAuthor(ctx context.Context, author domain.UserID, limit int) ([]domain.PostSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, hashtags
		FROM posts
		WHERE author_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, author, limit)
	if err != nil {
		return nil, fmt.Errorf("query posts by author: %w", err)
	}
	defer rows.Close()

	var summaries []domain.PostSummary
	for rows.Next() {
		var (
			s        domain.PostSummary
			hashtags string
		)
		if err := rows.Scan(&s.ID, &s.Title, &hashtags); err != nil {
			return nil, fmt.Errorf("scan post summary: %w", err)
		}
		if err := json.Unmarshal([]byte(hashtags), &s.Hashtags); err != nil {
			return nil, fmt.Errorf("unmarshal hashtags: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate post summaries: %w", err)
	}
	return summaries, nil
}

// UpdatePost persists the post's editable fields.
func (r *Repository) UpdatePost(ctx context.Context, post *domain.Post) error {
	hashtags, err := json.Marshal(post.Hashtags)
	if err != nil {
		return fmt.Errorf("marshal hashtags: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE posts SET title = ?, content = ?, image_url = ?, hashtags = ?, updated_at = ?
		WHERE id = ?`,
		post.Title, post.Content, post.ImageURL, string(hashtags),
		post.UpdatedAt.UnixMilli(), post.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("post %s: %w", post.ID, domain.ErrNotFound)
	}
	return nil
}

// DeletePost removes a post and its reaction rows in one transaction.
// Comments are left behind for the orphan sweep.
func (r *Repository) DeletePost(ctx context.Context, id domain.PostID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_reactions WHERE post_id = ?`, id); err != nil {
		return fmt.Errorf("delete reactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return tx.Commit()
}

// SetUserReaction replaces the user's reaction membership on the post in
// one transaction: all of the user's rows go, and when active a single row
// for kind comes back. The UNIQUE (post_id, user_id) index backs the
// one-reaction-per-user invariant at the schema level.
func (r *Repository) SetUserReaction(ctx context.Context, postID domain.PostID, userID domain.UserID, kind domain.ReactionKind, active bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM post_reactions WHERE post_id = ? AND user_id = ?`,
		postID, userID,
	); err != nil {
		return fmt.Errorf("clear reaction: %w", err)
	}
	if active {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO post_reactions (post_id, user_id, kind, created_at)
			VALUES (?, ?, ?, ?)`,
			postID, userID, kind, time.Now().UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("insert reaction: %w", err)
		}
	}
	return tx.Commit()
}

// InsertComment persists a new comment.
func (r *Repository) InsertComment(ctx context.Context, comment *domain.Comment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO comments (id, post_id, author_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		comment.ID, comment.PostID, comment.Author.ID, comment.Content,
		comment.CreatedAt.UnixMilli(),
	)
	return err
}

// DeleteComment removes a comment and its like rows in one transaction.
func (r *Repository) DeleteComment(ctx context.Context, id domain.CommentID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM comment_likes WHERE comment_id = ?`, id); err != nil {
		return fmt.Errorf("delete likes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return tx.Commit()
}

const commentColumns = `
	c.id, c.post_id, c.content, c.created_at,
	u.id, u.username, u.name, u.profile_picture_url`

// GetComment retrieves one comment of a post.
func (r *Repository) GetComment(ctx context.Context, postID domain.PostID, id domain.CommentID) (*domain.Comment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+commentColumns+`
		FROM comments c
		INNER JOIN users u ON c.author_id = u.id
		WHERE c.id = ? AND c.post_id = ?`, id, postID)

	comment, err := scanComment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan comment: %w", err)
	}
	if comment.Likes, err = r.loadLikes(ctx, id); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments retrieves a post's comments newest-first.
func (r *Repository) ListComments(ctx context.Context, postID domain.PostID) ([]domain.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+commentColumns+`
		FROM comments c
		INNER JOIN users u ON c.author_id = u.id
		WHERE c.post_id = ?
		ORDER BY c.created_at DESC, c.id DESC`, postID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		comment, err := scanComment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	for i := range comments {
		if comments[i].Likes, err = r.loadLikes(ctx, comments[i].ID); err != nil {
			return nil, err
		}
	}
	return comments, nil
}

// AttachCommentToPost bumps the post's comment counter, completing the
// post side of the relationship. Zero rows affected means the post
// vanished since validation.
func (r *Repository) AttachCommentToPost(ctx context.Context, postID domain.PostID, id domain.CommentID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE posts SET comment_count = comment_count + 1 WHERE id = ?`, postID)
	if err != nil {
		return fmt.Errorf("attach comment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
	}
	return nil
}

// SetCommentLike adds or removes the user's like row. Each branch is a
// single statement, so the membership change is atomic.
func (r *Repository) SetCommentLike(ctx context.Context, id domain.CommentID, userID domain.UserID, liked bool) error {
	if liked {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO comment_likes (comment_id, user_id, created_at)
			VALUES (?, ?, ?)
			ON CONFLICT (comment_id, user_id) DO NOTHING`,
			id, userID, time.Now().UTC().UnixMilli(),
		)
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM comment_likes WHERE comment_id = ? AND user_id = ?`, id, userID)
	return err
}

// DeleteOrphanComments removes comments whose post no longer exists.
func (r *Repository) DeleteOrphanComments(ctx context.Context) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM comment_likes WHERE comment_id IN (
			SELECT id FROM comments WHERE post_id NOT IN (SELECT id FROM posts)
		)`); err != nil {
		return 0, fmt.Errorf("delete orphan likes: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM comments WHERE post_id NOT IN (SELECT id FROM posts)`)
	if err != nil {
		return 0, fmt.Errorf("delete orphan comments: %w", err)
	}
	deleted, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return deleted, nil
}

func (r *Repository) loadEngagement(ctx context.Context, post *domain.Post) error {
	reactions := domain.NewReactions()
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, kind FROM post_reactions
		WHERE post_id = ?
		ORDER BY created_at, user_id`, post.ID)
	if err != nil {
		return fmt.Errorf("query reactions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			userID domain.UserID
			kind   domain.ReactionKind
		)
		if err := rows.Scan(&userID, &kind); err != nil {
			return fmt.Errorf("scan reaction: %w", err)
		}
		reactions[kind] = append(reactions[kind], userID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate reactions: %w", err)
	}
	post.Reactions = reactions

	ids := []domain.CommentID{}
	commentRows, err := r.db.QueryContext(ctx, `
		SELECT id FROM comments
		WHERE post_id = ?
		ORDER BY created_at, id`, post.ID)
	if err != nil {
		return fmt.Errorf("query comment ids: %w", err)
	}
	defer commentRows.Close()
	for commentRows.Next() {
		var id domain.CommentID
		if err := commentRows.Scan(&id); err != nil {
			return fmt.Errorf("scan comment id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := commentRows.Err(); err != nil {
		return fmt.Errorf("iterate comment ids: %w", err)
	}
	post.Comments = ids
	return nil
}

func (r *Repository) loadLikes(ctx context.Context, id domain.CommentID) ([]domain.UserID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM comment_likes
		WHERE comment_id = ?
		ORDER BY created_at, user_id`, id)
	if err != nil {
		return nil, fmt.Errorf("query likes: %w", err)
	}
	defer rows.Close()

	likes := []domain.UserID{}
	for rows.Next() {
		var userID domain.UserID
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan like: %w", err)
		}
		likes = append(likes, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate likes: %w", err)
	}
	return likes, nil
}

func scanPost(scan func(...any) error) (*domain.Post, error) {
	var (
		p        domain.Post
		hashtags string
		created  int64
		updated  int64
	)
	err := scan(
		&p.ID, &p.Title, &p.Content, &p.ImageURL, &hashtags, &p.CommentCount,
		&created, &updated,
		&p.Author.ID, &p.Author.Username, &p.Author.Name, &p.Author.ProfilePictureURL,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(hashtags), &p.Hashtags); err != nil {
		return nil, fmt.Errorf("unmarshal hashtags: %w", err)
	}
	p.CreatedAt = time.UnixMilli(created).UTC()
	p.UpdatedAt = time.UnixMilli(updated).UTC()
	return &p, nil
}

func scanComment(scan func(...any) error) (*domain.Comment, error) {
	var (
		c       domain.Comment
		created int64
	)
	err := scan(
		&c.ID, &c.PostID, &c.Content, &created,
		&c.Author.ID, &c.Author.Username, &c.Author.Name, &c.Author.ProfilePictureURL,
	)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = time.UnixMilli(created).UTC()
	return &c, nil
}

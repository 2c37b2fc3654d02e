package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"Inkwell/internal/core/posts"
)

// postColumns selects a post joined with its author.
// Every query that returns posts aliases the post row as p and the author as u.
const postColumns = `
	p.id, p.user_id, p.title, p.text, p.tags, p.image_url, p.views_count, p.likes,
	p.created_at, p.updated_at, u.full_name, COALESCE(u.avatar_url, '')`

// orderClauses maps a sort key to its ORDER BY. id breaks ties so pages never overlap.
var orderClauses = map[string]string{
	posts.SortNew:     "p.created_at DESC, p.id DESC",
	posts.SortPopular: "p.views_count DESC, p.created_at DESC, p.id DESC",
}

type postgresPostRepo struct {
	db *sql.DB
}

// NewPostRepository creates a new PostgreSQL post repository
func NewPostRepository(db *sql.DB) posts.Repository {
	return &postgresPostRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*posts.Post, error) {
	var (
		post     posts.Post
		author   posts.AuthorView
		tags     pq.StringArray
		likedBy  pq.StringArray
		imageURL sql.NullString
	)

	err := row.Scan(
		&post.ID, &post.UserID, &post.Title, &post.Text, &tags, &imageURL, &post.ViewsCount, &likedBy,
		&post.CreatedAt, &post.UpdatedAt, &author.FullName, &author.AvatarURL,
	)
	if err != nil {
		return nil, err
	}

	author.ID = post.UserID
	post.User = &author
	post.ImageURL = imageURL.String
	post.Tags = []string(tags)
	if post.Tags == nil {
		post.Tags = []string{}
	}
	post.Likes = posts.LikesFromUserIDs(likedBy)

	return &post, nil
}

// Create inserts a new post and returns it with its author
func (r *postgresPostRepo) Create(ctx context.Context, post *posts.Post) (*posts.Post, error) {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}

	query := `
		WITH p AS (
			INSERT INTO posts (id, user_id, title, text, tags, image_url, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
			RETURNING *
		)
		SELECT ` + postColumns + `
		FROM p
		JOIN users u ON u.id = p.user_id`

	created, err := scanPost(r.db.QueryRowContext(ctx, query,
		post.ID, post.UserID, post.Title, post.Text, pq.StringArray(nonNil(post.Tags)), post.ImageURL, post.CreatedAt,
	))
	if err != nil {
		if isConstraintViolation(err, foreignKeyViolation, "") {
			return nil, posts.NewValidationError("user", "author does not exist")
		}
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}

	return created, nil
}

// GetByID retrieves a post without touching its view count
func (r *postgresPostRepo) GetByID(ctx context.Context, id string) (*posts.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, posts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

// IncrementViews bumps the counter in the same statement that reads the post back,
// so concurrent viewers never lose an increment
func (r *postgresPostRepo) IncrementViews(ctx context.Context, id string) (*posts.Post, error) {
	query := `
		WITH p AS (
			UPDATE posts
			SET views_count = views_count + 1
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + postColumns + `
		FROM p
		JOIN users u ON u.id = p.user_id`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, posts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to increment views: %w", err)
	}
	return post, nil
}

// List reads the total and the page inside one repeatable-read transaction
// so both describe the same snapshot
func (r *postgresPostRepo) List(ctx context.Context, query posts.ListQuery) ([]*posts.Post, int, error) {
	order, ok := orderClauses[query.Sort]
	if !ok {
		order = orderClauses[posts.SortNew]
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && rollbackErr != sql.ErrTxDone {
			slog.Warn("[POSTGRES] failed to roll back list transaction", "error", rollbackErr)
		}
	}()

	var total int
	countQuery := `SELECT COUNT(*) FROM posts WHERE ($1 = '' OR $1 = ANY(tags))`
	if err := tx.QueryRowContext(ctx, countQuery, query.Tag).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	pageQuery := `
		SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE ($1 = '' OR $1 = ANY(p.tags))
		ORDER BY ` + order + `
		LIMIT $2 OFFSET $3`

	rows, err := tx.QueryContext(ctx, pageQuery, query.Tag, query.Size, query.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query posts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("[POSTGRES] failed to close rows", "error", closeErr)
		}
	}()

	result := make([]*posts.Post, 0, query.Size)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan post: %w", err)
		}
		result = append(result, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating posts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit list transaction: %w", err)
	}

	return result, total, nil
}

// Update replaces the set fields in one statement. The FOR UPDATE subselect
// locks the row and yields the image reference it held before this update.
func (r *postgresPostRepo) Update(ctx context.Context, id string, update posts.PostUpdate) (string, error) {
	query := `
		UPDATE posts p
		SET title = COALESCE($2, p.title),
			text = COALESCE($3, p.text),
			image_url = COALESCE($4, p.image_url),
			tags = CASE WHEN $5 THEN $6::text[] ELSE p.tags END,
			updated_at = NOW()
		FROM (SELECT id, image_url FROM posts WHERE id = $1 FOR UPDATE) old
		WHERE p.id = old.id
		RETURNING old.image_url`

	var previousImage string
	err := r.db.QueryRowContext(ctx, query,
		id,
		nullString(update.Title),
		nullString(update.Text),
		nullString(update.ImageURL),
		update.SetTags,
		pq.StringArray(nonNil(update.Tags)),
	).Scan(&previousImage)
	if err == sql.ErrNoRows {
		return "", posts.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to update post: %w", err)
	}

	return previousImage, nil
}

// Delete removes the post and returns the row as it was before deletion
func (r *postgresPostRepo) Delete(ctx context.Context, id string) (*posts.Post, error) {
	query := `
		WITH p AS (
			DELETE FROM posts
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + postColumns + `
		FROM p
		JOIN users u ON u.id = p.user_id`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, posts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete post: %w", err)
	}
	return post, nil
}

// Like prepends userID unless already present. The predicate is re-checked
// against the latest row version after the row lock is taken, so two
// concurrent likes by one user cannot both succeed.
func (r *postgresPostRepo) Like(ctx context.Context, id, userID string) ([]string, error) {
	query := `
		UPDATE posts
		SET likes = array_prepend($2::text, likes), updated_at = NOW()
		WHERE id = $1 AND NOT ($2::text = ANY(likes))
		RETURNING likes`

	return r.mutateLikes(ctx, query, id, userID, posts.ErrAlreadyLiked)
}

// Unlike removes userID if present, atomically per row
func (r *postgresPostRepo) Unlike(ctx context.Context, id, userID string) ([]string, error) {
	query := `
		UPDATE posts
		SET likes = array_remove(likes, $2::text), updated_at = NOW()
		WHERE id = $1 AND $2::text = ANY(likes)
		RETURNING likes`

	return r.mutateLikes(ctx, query, id, userID, posts.ErrNotLiked)
}

// mutateLikes runs a conditional ledger update. No returned row means either
// the post is missing or the condition failed; an existence check tells them apart.
func (r *postgresPostRepo) mutateLikes(ctx context.Context, query, id, userID string, conflict error) ([]string, error) {
	var likes pq.StringArray
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&likes)
	if err == nil {
		return nonNil(likes), nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to update likes: %w", err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check post existence: %w", err)
	}
	if !exists {
		return nil, posts.ErrNotFound
	}
	return nil, conflict
}

// RecentTags returns the tag lists of the most recently created posts, newest first
func (r *postgresPostRepo) RecentTags(ctx context.Context, postLimit int) ([][]string, error) {
	query := `SELECT tags FROM posts ORDER BY created_at DESC, id DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, postLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent tags: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("[POSTGRES] failed to close rows", "error", closeErr)
		}
	}()

	var lists [][]string
	for rows.Next() {
		var tags pq.StringArray
		if err := rows.Scan(&tags); err != nil {
			return nil, fmt.Errorf("failed to scan tags: %w", err)
		}
		lists = append(lists, tags)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return lists, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nonNil keeps empty arrays from being written as NULL
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

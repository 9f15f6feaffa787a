package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kerem/blogapi/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// Create は記事を作成する。
// slugの一意制約違反はUniqueViolationErrorを返す。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, title, content, slug, user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		post.ID, post.Title, post.Content, post.Slug, post.UserID, post.CreatedAt,
	)
	if err != nil {
		return wrapInsertError(err, "failed to insert post")
	}
	return nil
}

// FindBySlug はslugで記事を検索し、投稿者のユーザー名を結合して返す。
// 見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindBySlug(ctx context.Context, slug string) (*model.PostWithAuthor, error) {
	post := &model.PostWithAuthor{}
	err := r.db.QueryRowContext(ctx,
		`SELECT p.id, p.title, p.content, p.slug, p.user_id, p.created_at, u.username
		 FROM posts p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.slug = $1`,
		slug,
	).Scan(
		&post.ID, &post.Title, &post.Content, &post.Slug,
		&post.UserID, &post.CreatedAt, &post.AuthorUsername,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by slug: %w", err)
	}
	return post, nil
}

// ListAll は全記事を作成日時の降順で返す。
func (r *PostgresPostRepo) ListAll(ctx context.Context) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, content, slug, user_id, created_at
		 FROM posts
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		post := &model.Post{}
		if err := rows.Scan(
			&post.ID, &post.Title, &post.Content, &post.Slug,
			&post.UserID, &post.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	return posts, nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)

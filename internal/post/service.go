// Package post はブログ記事のドメインロジックを提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kerem/blogapi/internal/model"
	"github.com/kerem/blogapi/internal/repository"
	"github.com/kerem/blogapi/internal/security"
)

// Service は記事管理のサービス層。
// 記事は作成のみ可能で、更新・削除の操作は存在しない。
type Service struct {
	posts     repository.PostRepository
	sanitizer security.ContentSanitizerService
}

// NewService はServiceを生成する。
func NewService(posts repository.PostRepository, sanitizer security.ContentSanitizerService) *Service {
	return &Service{
		posts:     posts,
		sanitizer: sanitizer,
	}
}

// CreatePost は認証済みユーザーの記事を作成する。
// title、content、slugはすべて必須。slugは全体で一意であり、作成後は変更できない。
// コンテンツは保存前にサニタイズされる。
func (s *Service) CreatePost(ctx context.Context, userID, title, content, slug string) (*model.Post, error) {
	if title == "" || content == "" || slug == "" {
		return nil, model.NewValidationError("title、content、slugはすべて必須です")
	}

	// 存在チェックは早期リターンの最適化。同時リクエストのすり抜けは
	// DBの一意制約で弾き、CONFLICTに変換する。
	existing, err := s.posts.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if existing != nil {
		return nil, model.NewConflictError("slug")
	}

	post := &model.Post{
		ID:        uuid.New().String(),
		Title:     title,
		Content:   s.sanitizer.Sanitize(content),
		Slug:      slug,
		UserID:    userID,
		CreatedAt: time.Now(),
	}

	if err := s.posts.Create(ctx, post); err != nil {
		if _, ok := repository.AsUniqueViolation(err); ok {
			return nil, model.NewConflictError("slug")
		}
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	slog.Info("post created",
		slog.String("post_id", post.ID),
		slog.String("slug", post.Slug),
		slog.String("user_id", userID),
	)

	return post, nil
}

// GetBySlug はslugで記事を取得する。投稿者のユーザー名を含む。
func (s *Service) GetBySlug(ctx context.Context, slug string) (*model.PostWithAuthor, error) {
	post, err := s.posts.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(slug)
	}
	return post, nil
}

// ListPosts は全記事を作成日時の降順で返す。
func (s *Service) ListPosts(ctx context.Context) ([]*model.Post, error) {
	posts, err := s.posts.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

package post

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kerem/blogapi/internal/model"
	"github.com/kerem/blogapi/internal/repository"
)

// mockPostRepo は関数フィールドで挙動を差し替え可能なPostRepositoryのモック。
type mockPostRepo struct {
	createFn     func(ctx context.Context, post *model.Post) error
	findBySlugFn func(ctx context.Context, slug string) (*model.PostWithAuthor, error)
	listAllFn    func(ctx context.Context) ([]*model.Post, error)

	createdPosts []*model.Post
}

func (m *mockPostRepo) Create(ctx context.Context, post *model.Post) error {
	m.createdPosts = append(m.createdPosts, post)
	if m.createFn != nil {
		return m.createFn(ctx, post)
	}
	return nil
}

func (m *mockPostRepo) FindBySlug(ctx context.Context, slug string) (*model.PostWithAuthor, error) {
	if m.findBySlugFn != nil {
		return m.findBySlugFn(ctx, slug)
	}
	return nil, nil
}

func (m *mockPostRepo) ListAll(ctx context.Context) ([]*model.Post, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

// mockSanitizer はサニタイズの呼び出しを捕捉する。
type mockSanitizer struct {
	sanitizeFn func(rawHTML string) string
	inputs     []string
}

func (m *mockSanitizer) Sanitize(rawHTML string) string {
	m.inputs = append(m.inputs, rawHTML)
	if m.sanitizeFn != nil {
		return m.sanitizeFn(rawHTML)
	}
	return rawHTML
}

func newTestService(repo *mockPostRepo, sanitizer *mockSanitizer) *Service {
	if repo == nil {
		repo = &mockPostRepo{}
	}
	if sanitizer == nil {
		sanitizer = &mockSanitizer{}
	}
	return NewService(repo, sanitizer)
}

func assertAPIErrorCode(t *testing.T, err error, wantCode string) *model.APIError {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *model.APIError", err)
	}
	if apiErr.Code != wantCode {
		t.Fatalf("error code = %q, want %q", apiErr.Code, wantCode)
	}
	return apiErr
}

func TestService_CreatePost_Success(t *testing.T) {
	repo := &mockPostRepo{}
	service := newTestService(repo, nil)

	post, err := service.CreatePost(context.Background(), "user-123", "最初の記事", "<p>こんにちは</p>", "first-post")
	if err != nil {
		t.Fatalf("CreatePost returned error: %v", err)
	}

	if post.ID == "" {
		t.Error("post ID should be generated")
	}
	if post.Title != "最初の記事" {
		t.Errorf("Title = %q", post.Title)
	}
	if post.Slug != "first-post" {
		t.Errorf("Slug = %q, want first-post", post.Slug)
	}
	if post.UserID != "user-123" {
		t.Errorf("UserID = %q, want user-123", post.UserID)
	}
	if post.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	if time.Since(post.CreatedAt) > time.Minute {
		t.Error("CreatedAt should be recent")
	}

	if len(repo.createdPosts) != 1 {
		t.Fatalf("Create called %d times, want 1", len(repo.createdPosts))
	}
}

func TestService_CreatePost_MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		content string
		slug    string
	}{
		{name: "missing title", title: "", content: "c", slug: "s"},
		{name: "missing content", title: "t", content: "", slug: "s"},
		{name: "missing slug", title: "t", content: "c", slug: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockPostRepo{}
			service := newTestService(repo, nil)

			_, err := service.CreatePost(context.Background(), "user-123", tt.title, tt.content, tt.slug)
			assertAPIErrorCode(t, err, model.ErrCodeValidation)

			if len(repo.createdPosts) != 0 {
				t.Error("Create should not be called on validation failure")
			}
		})
	}
}

func TestService_CreatePost_ContentIsSanitizedBeforeSave(t *testing.T) {
	sanitizer := &mockSanitizer{
		sanitizeFn: func(rawHTML string) string {
			return strings.ReplaceAll(rawHTML, "<script>alert(1)</script>", "")
		},
	}
	repo := &mockPostRepo{}
	service := newTestService(repo, sanitizer)

	raw := "<p>本文</p><script>alert(1)</script>"
	post, err := service.CreatePost(context.Background(), "user-123", "t", raw, "s")
	if err != nil {
		t.Fatalf("CreatePost returned error: %v", err)
	}

	if len(sanitizer.inputs) != 1 || sanitizer.inputs[0] != raw {
		t.Errorf("sanitizer inputs = %v", sanitizer.inputs)
	}
	if post.Content != "<p>本文</p>" {
		t.Errorf("Content = %q, want sanitized content", post.Content)
	}
	// 保存されるのはサニタイズ済みコンテンツ。
	if repo.createdPosts[0].Content != "<p>本文</p>" {
		t.Errorf("stored content = %q", repo.createdPosts[0].Content)
	}
}

func TestService_CreatePost_SlugConflict(t *testing.T) {
	repo := &mockPostRepo{
		findBySlugFn: func(ctx context.Context, slug string) (*model.PostWithAuthor, error) {
			return &model.PostWithAuthor{
				Post: model.Post{ID: "existing-post", Slug: slug},
			}, nil
		},
	}
	service := newTestService(repo, nil)

	_, err := service.CreatePost(context.Background(), "user-123", "t", "c", "taken-slug")
	apiErr := assertAPIErrorCode(t, err, model.ErrCodeConflict)
	if apiErr.Message != "slug は既に使用されています。" {
		t.Errorf("message = %q", apiErr.Message)
	}

	if len(repo.createdPosts) != 0 {
		t.Error("Create should not be called when the slug is taken")
	}
}

func TestService_CreatePost_ConcurrentInsertRace(t *testing.T) {
	// 存在チェックをすり抜けた同時INSERTはDBの一意制約で弾かれる。
	repo := &mockPostRepo{
		createFn: func(ctx context.Context, post *model.Post) error {
			return &repository.UniqueViolationError{Constraint: "posts_slug_key"}
		},
	}
	service := newTestService(repo, nil)

	_, err := service.CreatePost(context.Background(), "user-123", "t", "c", "taken-slug")
	assertAPIErrorCode(t, err, model.ErrCodeConflict)
}

func TestService_CreatePost_RepositoryError(t *testing.T) {
	repo := &mockPostRepo{
		createFn: func(ctx context.Context, post *model.Post) error {
			return errors.New("connection refused")
		},
	}
	service := newTestService(repo, nil)

	_, err := service.CreatePost(context.Background(), "user-123", "t", "c", "s")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("infrastructure error should not be an APIError: %v", err)
	}
}

func TestService_GetBySlug_Success(t *testing.T) {
	repo := &mockPostRepo{
		findBySlugFn: func(ctx context.Context, slug string) (*model.PostWithAuthor, error) {
			return &model.PostWithAuthor{
				Post:           model.Post{ID: "post-123", Slug: slug},
				AuthorUsername: "taro",
			}, nil
		},
	}
	service := newTestService(repo, nil)

	detail, err := service.GetBySlug(context.Background(), "first-post")
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if detail.ID != "post-123" {
		t.Errorf("post ID = %q, want post-123", detail.ID)
	}
	if detail.AuthorUsername != "taro" {
		t.Errorf("author = %q, want taro", detail.AuthorUsername)
	}
}

func TestService_GetBySlug_NotFound(t *testing.T) {
	service := newTestService(nil, nil)

	_, err := service.GetBySlug(context.Background(), "no-such-post")
	apiErr := assertAPIErrorCode(t, err, model.ErrCodePostNotFound)
	if !strings.Contains(apiErr.Message, "no-such-post") {
		t.Errorf("message %q should name the slug", apiErr.Message)
	}
}

func TestService_ListPosts(t *testing.T) {
	repo := &mockPostRepo{
		listAllFn: func(ctx context.Context) ([]*model.Post, error) {
			return []*model.Post{
				{ID: "post-2", CreatedAt: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)},
				{ID: "post-1", CreatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
			}, nil
		},
	}
	service := newTestService(repo, nil)

	posts, err := service.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("ListPosts returned error: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("len(posts) = %d, want 2", len(posts))
	}
	// リポジトリが返した降順をそのまま透過する。
	if posts[0].ID != "post-2" {
		t.Errorf("posts[0].ID = %q, want post-2", posts[0].ID)
	}
}

func TestService_ListPosts_RepositoryError(t *testing.T) {
	repo := &mockPostRepo{
		listAllFn: func(ctx context.Context) ([]*model.Post, error) {
			return nil, errors.New("connection refused")
		},
	}
	service := newTestService(repo, nil)

	_, err := service.ListPosts(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}

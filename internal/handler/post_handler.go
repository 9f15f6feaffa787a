package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kerem/blogapi/internal/model"
)

// PostServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	CreatePost(ctx context.Context, userID, title, content, slug string) (*model.Post, error)
	GetBySlug(ctx context.Context, slug string) (*model.PostWithAuthor, error)
	ListPosts(ctx context.Context) ([]*model.Post, error)
}

// PostMetrics は記事作成の記録に必要なインターフェース。nil可。
type PostMetrics interface {
	RecordPostCreated()
}

// PostHandler は記事管理のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
	metrics PostMetrics
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface, metrics PostMetrics) *PostHandler {
	return &PostHandler{
		service: service,
		metrics: metrics,
	}
}

// createPostRequest は記事作成リクエストのボディ。
type createPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Slug    string `json:"slug"`
}

// postResponse は記事のAPIレスポンス。
type postResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Slug      string    `json:"slug"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// postDetailResponse は投稿者名付きの記事詳細レスポンス。
type postDetailResponse struct {
	postResponse
	AuthorUsername string `json:"author_username"`
}

func toPostResponse(p *model.Post) postResponse {
	return postResponse{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		Slug:      p.Slug,
		UserID:    p.UserID,
		CreatedAt: p.CreatedAt,
	}
}

// Create は記事作成を処理する。認証ミドルウェアの背後に配置する。
// POST /api/posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	created, err := h.service.CreatePost(r.Context(), user.ID, req.Title, req.Content, req.Slug)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordPostCreated()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]postResponse{"post": toPostResponse(created)})
}

// List は全記事の一覧を返す。認証不要。
// GET /api/posts
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListPosts(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		resp = append(resp, toPostResponse(p))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Get はslugで記事詳細を返す。認証不要。
// GET /api/posts/{slug}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	detail, err := h.service.GetBySlug(r.Context(), slug)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(postDetailResponse{
		postResponse:   toPostResponse(&detail.Post),
		AuthorUsername: detail.AuthorUsername,
	})
}

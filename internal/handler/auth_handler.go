// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kerem/blogapi/internal/model"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, username, email, password string) (*model.User, string, error)
	Login(ctx context.Context, email, password string) (*model.User, string, error)
	GetLoginURL(state string) string
	HandleGoogleCallback(ctx context.Context, code string) (*model.User, string, error)
}

// AuthMetrics は認証結果の記録に必要なインターフェース。
// metrics.MetricsCollectorの部分集合として定義する。nil可。
type AuthMetrics interface {
	RecordAuthSuccess(method string)
	RecordAuthFailure(method, reason string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL      string
	CookieSecure bool
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
	metrics AuthMetrics
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, metrics AuthMetrics) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
		metrics: metrics,
	}
}

// registerRequest はローカル登録リクエストのボディ。
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest はローカルログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse は認証成功時のレスポンス。
// userは公開ビューのみ。パスワードハッシュとGoogle IDは含まれない。
type authResponse struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

// Register はローカル登録を処理する。成功時は登録後の自動ログインとして
// トークンも返す。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	user, token, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.recordFailure("register", err)
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordAuthSuccess("register")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(authResponse{Token: token, User: user.Public()})
}

// Login はローカルログインを処理する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	user, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.recordFailure("login", err)
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordAuthSuccess("login")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(authResponse{Token: token, User: user.Public()})
}

// GoogleLogin はGoogle OAuthフローを開始する。
// GET /api/auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewUpstreamAuthFailureError())
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback はOAuthコールバックを処理する。
// 成功時はフロントエンドの成功ページへリダイレクトし、トークンは
// URLフラグメントで渡す（フラグメントはサーバーログに残らない）。
// GET /api/auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch", slog.String("query_state", state))
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("stateパラメータが不正です"))
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("認可コードがありません"))
		return
	}

	// 3. 認証処理
	_, token, err := h.service.HandleGoogleCallback(r.Context(), code)
	if err != nil {
		h.recordFailure("google", err)
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordAuthSuccess("google")
	}

	// 4. フロントエンドの成功ページへリダイレクト
	http.Redirect(w, r, h.config.BaseURL+"/auth-success#token="+token, http.StatusTemporaryRedirect)
}

// Profile は現在のログインユーザー情報を返す。
// 認証ミドルウェアの背後に配置する。
// GET /api/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]model.PublicUser{"user": user.Public()})
}

// recordFailure は予期された認証失敗をメトリクスに記録する。
func (h *AuthHandler) recordFailure(method string, err error) {
	if h.metrics == nil {
		return
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		h.metrics.RecordAuthFailure(method, apiErr.Code)
		return
	}
	h.metrics.RecordAuthFailure(method, "INTERNAL_ERROR")
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kerem/blogapi/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBがこれを満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	TokenVerifier     middleware.TokenVerifier
	UserFinder        middleware.UserFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// メトリクス（nil可）
	HTTPMetrics  middleware.HTTPMetrics
	TokenMetrics middleware.TokenMetrics
	AuthMetrics  AuthMetrics
	PostMetrics  PostMetrics

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 記事
	PostService PostServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成した
// chi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics
//
// 認証エンドポイント（登録・ログイン・OAuth）はIPベースのレート制限のみ、
// 保護ルートはトークン検証 → ユーザー解決 → ユーザーベースのレート制限を通る。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.AuthMetrics)
	postHandler := NewPostHandler(deps.PostService, deps.PostMetrics)

	// ヘルスチェック
	r.Get("/health", NewHealthHandler(deps.HealthChecker))

	// --- 認証不要のルート ---

	// 認証エンドポイント（IPベースのレート制限付き）
	r.Route("/api/auth", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.AuthMiddleware())
		}
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Get("/google", authHandler.GoogleLogin)
		r.Get("/google/callback", authHandler.GoogleCallback)
	})

	// 記事の公開ルート
	r.Get("/api/posts", postHandler.List)
	r.Get("/api/posts/{slug}", postHandler.Get)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: 認証（トークン検証＋ユーザー解決） → RateLimit
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier, deps.UserFinder, deps.TokenMetrics))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Post("/api/posts", postHandler.Create)
		r.Get("/api/profile", authHandler.Profile)
	})

	return r
}

// NewHealthHandler はDB接続を確認するヘルスチェックハンドラーを返す。
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}
}

// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kerem/blogapi/internal/auth"
	"github.com/kerem/blogapi/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var userContextKey = contextKey("user")

// UserFinder は認証済みユーザーの取得に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// TokenVerifier はトークン検証のインターフェース。
// auth.TokenServiceの部分集合として定義する。
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// TokenMetrics はトークン検証結果の記録に必要なインターフェース。
// metrics.MetricsCollectorの部分集合として定義する。nil可。
type TokenMetrics interface {
	RecordTokenVerification(outcome string)
}

// NewAuthMiddleware はAuthorizationヘッダーのトークンを検証し、
// 該当ユーザーをリクエストコンテキストに注入するミドルウェアを返す。
//
// リクエストごとに独立して判定し、リクエストをまたぐ状態は持たない:
//   - トークンなし → 401 TOKEN_MISSING
//   - 期限切れ → 401 TOKEN_EXPIRED
//   - 署名不正・ペイロード不正 → 401 TOKEN_INVALID
//   - トークン有効だがユーザーが存在しない → 401 USER_NOT_FOUND
func NewAuthMiddleware(verifier TokenVerifier, users UserFinder, metrics TokenMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)

			userID, err := verifier.Verify(token)
			if metrics != nil {
				metrics.RecordTokenVerification(verificationOutcome(err))
			}
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, tokenErrorToAPIError(err))
				return
			}

			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				slog.Error("failed to find user for valid token",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if user == nil {
				// トークンは有効だが参照先ユーザーが既に存在しない
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUserNotFoundError())
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken はAuthorizationヘッダーからトークンを取り出す。
// "Bearer <token>"形式と素のトークンの両方を受け付ける。
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return header
}

// verificationOutcome はトークン検証結果をメトリクス用のラベルに変換する。
func verificationOutcome(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, auth.ErrTokenMissing):
		return "missing"
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	default:
		return "invalid"
	}
}

// tokenErrorToAPIError はトークン検証エラーをAPIエラーに変換する。
func tokenErrorToAPIError(err error) *model.APIError {
	switch {
	case errors.Is(err, auth.ErrTokenMissing):
		return model.NewTokenMissingError()
	case errors.Is(err, auth.ErrTokenExpired):
		return model.NewTokenExpiredError()
	default:
		return model.NewTokenInvalidError()
	}
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, error) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok || user == nil {
		return nil, fmt.Errorf("user not found in context")
	}
	return user, nil
}

// ContextWithUser はコンテキストにユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

package middleware

import "net/http"

// securityHeaders は全レスポンスに付与する固定ヘッダー。
// 記事コンテンツはJSONで返しフレーム埋め込みは想定しないため、
// クリックジャッキングとMIMEスニッフィングを一律で拒否する。
var securityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"Referrer-Policy":        "strict-origin-when-cross-origin",
	"Permissions-Policy":     "camera=(), microphone=(), geolocation=()",
}

// NewSecurityHeadersMiddleware はセキュリティ関連のレスポンスヘッダーを
// 付与するミドルウェアを返す。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for name, value := range securityHeaders {
				w.Header().Set(name, value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

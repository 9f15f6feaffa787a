package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kerem/blogapi/internal/middleware"
	"github.com/kerem/blogapi/internal/model"
)

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// APIError以外のエラーはログに記録し、クライアントには一般的な
// 内部エラーメッセージのみを返す。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はエラーコードをHTTPステータスコードに対応付ける。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation:
		return http.StatusBadRequest
	case model.ErrCodeConflict:
		return http.StatusConflict
	case model.ErrCodeInvalidCredentials,
		model.ErrCodeTokenMissing,
		model.ErrCodeTokenExpired,
		model.ErrCodeTokenInvalid,
		model.ErrCodeUserNotFound:
		return http.StatusUnauthorized
	case model.ErrCodePostNotFound:
		return http.StatusNotFound
	case model.ErrCodeUpstreamAuthFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// userFromRequest はリクエストコンテキストから認証済みユーザーを取得する。
func userFromRequest(r *http.Request) (*model.User, error) {
	return middleware.UserFromContext(r.Context())
}

package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kerem/blogapi/internal/model"
)

func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *model.APIError
		want int
	}{
		{name: "validation", err: model.NewValidationError("reason"), want: http.StatusBadRequest},
		{name: "conflict", err: model.NewConflictError("email"), want: http.StatusConflict},
		{name: "invalid credentials", err: model.NewInvalidCredentialsError(), want: http.StatusUnauthorized},
		{name: "token missing", err: model.NewTokenMissingError(), want: http.StatusUnauthorized},
		{name: "token expired", err: model.NewTokenExpiredError(), want: http.StatusUnauthorized},
		{name: "token invalid", err: model.NewTokenInvalidError(), want: http.StatusUnauthorized},
		{name: "user not found", err: model.NewUserNotFoundError(), want: http.StatusUnauthorized},
		{name: "post not found", err: model.NewPostNotFoundError("slug"), want: http.StatusNotFound},
		{name: "upstream auth failure", err: model.NewUpstreamAuthFailureError(), want: http.StatusInternalServerError},
		{name: "unknown code", err: &model.APIError{Code: "SOMETHING_ELSE"}, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapAPIErrorToHTTPStatus(tt.err); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHandleServiceError_APIError(t *testing.T) {
	rec := httptest.NewRecorder()
	handleServiceError(rec, model.NewConflictError("slug"))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	resp := decodeErrorRecorder(t, rec)
	if resp.Code != model.ErrCodeConflict {
		t.Errorf("code = %q, want %q", resp.Code, model.ErrCodeConflict)
	}
	if resp.Action == "" {
		t.Error("action should be present")
	}
}

func TestHandleServiceError_UnknownError(t *testing.T) {
	rec := httptest.NewRecorder()
	handleServiceError(rec, errors.New("pq: connection reset by peer"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	resp := decodeErrorRecorder(t, rec)
	if resp.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", resp.Code)
	}
	// インフラ起因のエラー詳細はレスポンスに含めない。
	if resp.Message != "内部エラーが発生しました。" {
		t.Errorf("message = %q", resp.Message)
	}
}

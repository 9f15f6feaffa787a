package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, post, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeTokenMissing        = "TOKEN_MISSING"
	ErrCodeTokenExpired        = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid        = "TOKEN_INVALID"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodePostNotFound        = "POST_NOT_FOUND"
	ErrCodeUpstreamAuthFailure = "UPSTREAM_AUTH_FAILURE"
)

// NewValidationError は入力不備のエラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容に不備があります: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewConflictError は一意制約違反のエラーを生成する。
// fieldには衝突したフィールド名（username, email, slug等）を指定する。
func NewConflictError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeConflict,
		Message:  fmt.Sprintf("%s は既に使用されています。", field),
		Category: "validation",
		Action:   "別の値を指定して再度お試しください。",
	}
}

// NewInvalidCredentialsError はログイン失敗のエラーを生成する。
// メールアドレス未登録とパスワード不一致を区別しない。
// どちらが誤っていたかを応答から判別できないことがセキュリティ上の契約。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewTokenMissingError はトークン未指定のエラーを生成する。
func NewTokenMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenMissing,
		Message:  "認証トークンが指定されていません。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewTokenExpiredError はトークン期限切れのエラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "認証トークンの有効期限が切れています。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewTokenInvalidError はトークン不正のエラーを生成する。
func NewTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenInvalid,
		Message:  "認証トークンが不正です。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewPostNotFoundError は記事未検出のエラーを生成する。
func NewPostNotFoundError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %s", slug),
		Category: "post",
		Action:   "記事のURLを確認してください。",
	}
}

// NewUpstreamAuthFailureError はOAuthプロバイダーとの連携失敗のエラーを生成する。
// 失敗の詳細はログにのみ記録し、クライアントには一般的なメッセージを返す。
func NewUpstreamAuthFailureError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamAuthFailure,
		Message:  "Google認証との連携に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

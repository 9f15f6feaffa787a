// Package model はドメインモデルを定義する。
package model

import "time"

// User はブログの利用ユーザーを表す。
// PasswordHashとGoogleIDはどちらもnil可だが、少なくとも一方が
// 設定されていなければそのユーザーにログイン手段は存在しない。
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash *string // Google連携のみのアカウントではnil
	GoogleID     *string // ローカル登録のみのアカウントではnil
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser はAPIレスポンスに公開してよいユーザー情報のビュー。
// パスワードハッシュとGoogle IDは決して外部にシリアライズしない。
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Public はUserから公開ビューを生成する。
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}

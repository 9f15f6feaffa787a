// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/kerem/blogapi/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByGoogleID はGoogleのsubject IDでユーザーを検索する。見つからない場合はnilを返す。
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// Create はユーザーを作成する。
	// username、email、google_idの一意制約違反はUniqueViolationErrorとして返す。
	Create(ctx context.Context, user *model.User) error

	// LinkGoogleID は既存ユーザーにgoogle_idを紐付ける。
	// 単一のUPDATE文で実行され、部分適用された状態は観測されない。
	LinkGoogleID(ctx context.Context, userID, googleID string) error
}

// PostRepository は記事データの永続化インターフェース。
type PostRepository interface {
	// Create は記事を作成する。
	// slugの一意制約違反はErrUniqueViolationでラップして返す。
	Create(ctx context.Context, post *model.Post) error

	// FindBySlug はslugで記事を検索し、投稿者のユーザー名を結合して返す。
	// 見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.PostWithAuthor, error)

	// ListAll は全記事を作成日時の降順で返す。
	ListAll(ctx context.Context) ([]*model.Post, error)
}

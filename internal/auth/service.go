// Package auth はローカル認証、Google OAuth、セッショントークンの発行を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kerem/blogapi/internal/model"
	"github.com/kerem/blogapi/internal/repository"
)

// Service は認証に関するビジネスロジックを提供する。
// ローカル認証情報またはOAuthのアイデンティティ表明を、
// ちょうど1件のユーザーレコードに解決する。
type Service struct {
	oauth  OAuthProvider
	users  repository.UserRepository
	tokens *TokenService
	hasher *PasswordHasher
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	users repository.UserRepository,
	tokens *TokenService,
	hasher *PasswordHasher,
) *Service {
	return &Service{
		oauth:  oauth,
		users:  users,
		tokens: tokens,
		hasher: hasher,
	}
}

// Register はローカル登録を処理する。
// username、email、passwordはすべて必須。username、emailが既存の場合はCONFLICTを返す。
// 成功時はユーザーを作成し、即座にトークンを発行して返す（登録後の自動ログイン）。
func (s *Service) Register(ctx context.Context, username, email, password string) (*model.User, string, error) {
	if username == "" || email == "" || password == "" {
		return nil, "", model.NewValidationError("username、email、passwordはすべて必須です")
	}

	// 存在チェックはあくまで早期リターンの最適化。
	// 同時リクエストのすり抜けはDBの一意制約で弾き、CONFLICTに変換する。
	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, "", model.NewConflictError("username")
	}

	existing, err = s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, "", model.NewConflictError("email")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: &hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if uv, ok := repository.AsUniqueViolation(err); ok {
			return nil, "", model.NewConflictError(conflictField(uv.Constraint))
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, token, nil
}

// Login はローカルログインを処理する。
// メールアドレス未登録とパスワード不一致は同一のINVALID_CREDENTIALSを返し、
// どちらが誤っていたかを漏らさない。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil || user.PasswordHash == nil || !s.hasher.Verify(password, *user.PasswordHash) {
		return nil, "", model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	return user, token, nil
}

// GetLoginURL はGoogle OAuthの認可URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.AuthURL(state)
}

// HandleGoogleCallback はOAuthコールバックを処理し、ユーザーを解決してトークンを発行する。
//
// 解決の優先順位:
//  1. google_idがsubject IDに一致するユーザーが存在すればそれを使う。
//  2. なければ、emailが一致する既存ユーザーにgoogle_idを紐付けて使う（アカウント連携）。
//  3. どちらもなければ新規ユーザーを作成する（パスワードなし）。
//
// この順序を崩すと、連携されるべきアカウントが重複して作られる。
// コード交換の失敗時はUPSTREAM_AUTH_FAILUREを返し、ユーザーレコードは
// 一切作成・変更しない。
func (s *Service) HandleGoogleCallback(ctx context.Context, code string) (*model.User, string, error) {
	identity, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Error("google oauth exchange failed", slog.String("error", err.Error()))
		return nil, "", model.NewUpstreamAuthFailureError()
	}

	user, err := s.resolveGoogleIdentity(ctx, identity)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	return user, token, nil
}

// resolveGoogleIdentity はGoogleのアイデンティティ表明をユーザーレコードに解決する。
func (s *Service) resolveGoogleIdentity(ctx context.Context, identity *GoogleIdentity) (*model.User, error) {
	// 1. subject IDで既存の連携済みユーザーを検索
	user, err := s.users.FindByGoogleID(ctx, identity.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by google ID: %w", err)
	}
	if user != nil {
		slog.Info("existing google user logged in", slog.String("user_id", user.ID))
		return user, nil
	}

	// 2. email一致の既存ローカルアカウントにgoogle_idを紐付け
	user, err = s.users.FindByEmail(ctx, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user != nil {
		if err := s.users.LinkGoogleID(ctx, user.ID, identity.Subject); err != nil {
			return nil, fmt.Errorf("failed to link google ID: %w", err)
		}
		sub := identity.Subject
		user.GoogleID = &sub
		slog.Info("linked google account to existing user",
			slog.String("user_id", user.ID),
			slog.String("email", user.Email),
		)
		return user, nil
	}

	// 3. 新規ユーザーを作成（パスワードハッシュなし）
	sub := identity.Subject
	now := time.Now()
	user = &model.User{
		ID:        uuid.New().String(),
		Username:  identity.Name,
		Email:     identity.Email,
		GoogleID:  &sub,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if uv, ok := repository.AsUniqueViolation(err); ok {
			return nil, model.NewConflictError(conflictField(uv.Constraint))
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user created from google identity",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// conflictField は一意制約名から衝突フィールド名を導出する。
// 例: users_email_key → email
func conflictField(constraint string) string {
	name := strings.TrimSuffix(constraint, "_key")
	if i := strings.IndexByte(name, '_'); i >= 0 {
		return name[i+1:]
	}
	return name
}

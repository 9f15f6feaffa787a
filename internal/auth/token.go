package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// トークン検証の失敗理由。呼び出し側はerrors.Isで判別する。
// いずれの失敗でも部分的なユーザーIDは返らない。
var (
	// ErrTokenMissing はトークンが指定されていないことを示す。
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenExpired はトークンの有効期限が切れていることを示す。
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid は署名検証の失敗またはペイロードの不正を示す。
	ErrTokenInvalid = errors.New("token invalid")
)

// sessionClaims はセッショントークンのJWTクレーム。
// user_idと有効期限のみを必須クレームとする。
type sessionClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenConfig はTokenServiceの設定。
type TokenConfig struct {
	// Secret はHMAC-SHA256署名の共有シークレット。
	// プロセス起動時に1回読み込み、実行中のローテーションは行わない。
	Secret string
	// TTL はトークンの有効期間。ゼロ値の場合は24時間。
	TTL time.Duration
	// Now は現在時刻の取得関数。テストで期限境界を検証するために
	// 差し替え可能にしている。nilの場合はtime.Now。
	Now func() time.Time
}

// TokenService は署名付きの時限セッショントークンの発行と検証を提供する。
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService はTokenServiceを生成する。
func NewTokenService(config TokenConfig) *TokenService {
	if config.TTL <= 0 {
		config.TTL = 24 * time.Hour
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &TokenService{
		secret: []byte(config.Secret),
		ttl:    config.TTL,
		now:    config.Now,
	}
}

// Issue は指定ユーザーIDのセッショントークンを発行する。
// 有効期限は発行時刻 + TTL。
func (s *TokenService) Issue(userID string) (string, error) {
	now := s.now()
	claims := sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、埋め込まれたユーザーIDを返す。
// 失敗時はErrTokenMissing、ErrTokenExpired、ErrTokenInvalidのいずれかを返す。
func (s *TokenService) Verify(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", ErrTokenMissing
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	if claims.UserID == "" {
		return "", ErrTokenInvalid
	}

	return claims.UserID, nil
}

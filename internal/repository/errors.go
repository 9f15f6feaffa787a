package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// pqUniqueViolation はPostgreSQLのunique_violationエラーコード。
const pqUniqueViolation = "23505"

// UniqueViolationError は一意制約違反を表す。
// アプリケーション層の存在チェックをすり抜けた同時INSERTは
// DBの制約で弾かれ、このエラーに変換される。制約が最終的な砦となる。
type UniqueViolationError struct {
	// Constraint は違反した制約名（例: users_email_key）。
	Constraint string
}

// Error はerrorインターフェースを実装する。
func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("unique constraint violated: %s", e.Constraint)
}

// wrapInsertError はINSERT/UPDATEのエラーを検査し、
// unique_violationの場合はUniqueViolationErrorに変換する。
func wrapInsertError(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
		return &UniqueViolationError{Constraint: pqErr.Constraint}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// AsUniqueViolation はエラーが一意制約違反かどうかを判定する。
func AsUniqueViolation(err error) (*UniqueViolationError, bool) {
	var uv *UniqueViolationError
	if errors.As(err, &uv) {
		return uv, true
	}
	return nil, false
}

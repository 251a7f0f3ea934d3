package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

const (
	// pqUniqueViolation はPostgreSQLのユニーク制約違反のエラーコード。
	pqUniqueViolation = "23505"
	// pqInvalidTextRepresentation は入力値を列の型に変換できない場合のエラーコード。
	// UUID列に "42" のようなIDを渡すとこのエラーになる。
	pqInvalidTextRepresentation = "22P02"
)

// isUniqueViolation はエラーがユニーク制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	return hasPQCode(err, pqUniqueViolation)
}

// isInvalidTextRepresentation はエラーが入力値の型変換失敗かどうかを判定する。
func isInvalidTextRepresentation(err error) bool {
	return hasPQCode(err, pqInvalidTextRepresentation)
}

// isNoRow は該当行なしとして扱うエラーかどうかを判定する。
// UUIDとして解釈できないIDは、どの行にも一致しないIDと同じ扱いにする。
func isNoRow(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || isInvalidTextRepresentation(err)
}

func hasPQCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == code
	}
	return false
}

// likePattern は部分一致検索用のLIKEパターンを生成する。
// LIKEのメタ文字はエスケープする。
func likePattern(s string) string {
	escaped := make([]rune, 0, len(s)+2)
	escaped = append(escaped, '%')
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, r)
	}
	escaped = append(escaped, '%')
	return string(escaped)
}

// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はユーザーが入力したテキスト（メッセージ、レビュー、
// 自己紹介、通報理由）を保存前にサニタイズする。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はユーザー入力のサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// Sanitize は簡易的な装飾（br, strong, em, a）のみを残してサニタイズする。
	// aタグのhrefはhttpsスキームのみ許可し、rel="nofollow noreferrer noopener"を付与する。
	// 前後の空白は除去する。同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string

	// StripTags は全てのタグを除去したテキストを返す。
	// タイトルや通報理由など装飾を許可しない項目に使用する。
	StripTags(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type contentSanitizer struct {
	rich   *bluemonday.Policy
	strict *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	// script, iframe, style等は許可リストに含めないことで除去される
	p.AllowElements("br", "strong", "em")

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AllowURLSchemes("https")
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return &contentSanitizer{
		rich:   p,
		strict: bluemonday.StrictPolicy(),
	}
}

// Sanitize は許可タグのみを残してサニタイズする。
func (s *contentSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.rich.Sanitize(raw))
}

// StripTags は全てのタグを除去する。
func (s *contentSanitizer) StripTags(raw string) string {
	return strings.TrimSpace(s.strict.Sanitize(raw))
}

// compile-time interface check
var _ ContentSanitizerService = (*contentSanitizer)(nil)

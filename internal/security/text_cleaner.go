package security

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextCleanerService はスクレイプしたテキストフィールドの浄化機能の
// インターフェースを定義する。schema.orgのname/description/手順テキストには
// HTMLタグや実体参照がそのまま含まれることがあるため、
// 保存前にすべてプレーンテキストへ落とす。
type TextCleanerService interface {
	// Clean はHTML断片をプレーンテキストに変換する。
	// すべてのタグを除去し、実体参照をデコードし、連続する空白を1つに潰す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Clean(raw string) string
}

// textCleaner はTextCleanerServiceの実装。
// bluemondayのStrictPolicy（全タグ除去）を保持し、スレッドセーフに動作する。
type textCleaner struct {
	policy *bluemonday.Policy
}

// whitespacePattern は連続する空白文字（改行・タブ含む）にマッチする。
var whitespacePattern = regexp.MustCompile(`\s+`)

// NewTextCleaner はTextCleanerServiceの新しいインスタンスを生成する。
func NewTextCleaner() *textCleaner {
	return &textCleaner{
		policy: bluemonday.StrictPolicy(),
	}
}

// Clean はHTML断片をプレーンテキストに変換する。
// bluemondayはタグ除去後のテキストを実体参照としてエスケープするため、
// 除去後にUnescapeStringで元のテキストへ戻す。
func (c *textCleaner) Clean(raw string) string {
	if raw == "" {
		return ""
	}

	stripped := c.policy.Sanitize(raw)
	unescaped := html.UnescapeString(stripped)
	collapsed := whitespacePattern.ReplaceAllString(unescaped, " ")

	return strings.TrimSpace(collapsed)
}

// Package security はクライアント側のセキュリティ機能を提供する。
//
// ContentSanitizer はサーバーから受信したメッセージ本文を端末表示の前に
// サニタイズする。メッセージはプレーンテキストの想定のため、
// 許可リストは空でありすべてのマークアップを除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はメッセージ本文のサニタイズ機能のインターフェース。
// チャット履歴への格納前と会話プレビューの生成時に使用される。
type ContentSanitizer interface {
	// Sanitize は本文からすべてのHTMLマークアップを除去して返す。
	// 空文字列の入力には空文字列を返す。同一入力に対して常に
	// 同一出力を返す（冪等）。
	Sanitize(content string) string
}

// messageSanitizer はContentSanitizerの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフに処理する。
type messageSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerの新しいインスタンスを生成する。
// StrictPolicyはいかなるタグ・属性も通過させない。
func NewContentSanitizer() ContentSanitizer {
	return &messageSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize は本文からすべてのマークアップを除去し、前後の空白を整える。
func (s *messageSanitizer) Sanitize(content string) string {
	if content == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(content))
}

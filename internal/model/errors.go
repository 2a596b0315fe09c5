package model

import (
	"errors"
	"fmt"
)

// ErrorKind は障害の分類を表す。呼び出し側はKindに基づいて
// 「空結果として扱う」「認可エラーとして表示する」等の方針を選ぶ。
type ErrorKind string

const (
	// KindAbsence はデータ不在（404相当）。読み取り経路では空結果として扱われる。
	KindAbsence ErrorKind = "absence"
	// KindAuthorization は認可エラー（401/403相当）。不在とは区別して表示する。
	KindAuthorization ErrorKind = "authorization"
	// KindCredential は資格情報の不正・期限切れ。セッションは静かに匿名へ降格する。
	KindCredential ErrorKind = "credential"
	// KindValidation はネットワーク呼び出し前に検出された入力不正。
	KindValidation ErrorKind = "validation"
	// KindTransport は予期しない通信・サーバー障害。呼び出し側へそのまま伝搬する。
	KindTransport ErrorKind = "transport"
)

// APIError は統一エラーフォーマットを表す。
// 分類（Kind）と、UIに表示する原因・対処方法を含む。
type APIError struct {
	Kind       ErrorKind // 障害の分類
	StatusCode int       // HTTPステータスコード（ローカルエラーでは0）
	Message    string    // エラーメッセージ
	Action     string    // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] %s (status %d)", e.Kind, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// IsKind はerrが指定Kindの*APIErrorかどうかを判定する。
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}
	return false
}

// IsAbsence はデータ不在エラーかどうかを判定する。
func IsAbsence(err error) bool { return IsKind(err, KindAbsence) }

// IsAuthorization は認可エラーかどうかを判定する。
func IsAuthorization(err error) bool { return IsKind(err, KindAuthorization) }

// IsCredential は資格情報エラーかどうかを判定する。
func IsCredential(err error) bool { return IsKind(err, KindCredential) }

// IsValidation は入力検証エラーかどうかを判定する。
func IsValidation(err error) bool { return IsKind(err, KindValidation) }

// NewAbsenceError はデータ不在エラーを生成する。
func NewAbsenceError(statusCode int, message string) *APIError {
	return &APIError{
		Kind:       KindAbsence,
		StatusCode: statusCode,
		Message:    message,
		Action:     "対象が存在しないか、すでに削除されています。",
	}
}

// NewAuthorizationError は認可エラーを生成する。
func NewAuthorizationError(statusCode int, message string) *APIError {
	return &APIError{
		Kind:       KindAuthorization,
		StatusCode: statusCode,
		Message:    message,
		Action:     "この操作を行う権限がありません。ログイン状態を確認してください。",
	}
}

// NewCredentialError は資格情報エラーを生成する。
func NewCredentialError(message string) *APIError {
	return &APIError{
		Kind:    KindCredential,
		Message: message,
		Action:  "再度ログインしてください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Kind:    KindValidation,
		Message: message,
		Action:  "入力内容を確認してください。",
	}
}

// NewTransportError は予期しない通信・サーバーエラーを生成する。
func NewTransportError(statusCode int, message string) *APIError {
	return &APIError{
		Kind:       KindTransport,
		StatusCode: statusCode,
		Message:    message,
		Action:     "しばらく待ってから再度お試しください。",
	}
}

// ErrorResponse はバックエンドの統一エラーボディ。
type ErrorResponse struct {
	StatusCode int                 `json:"statusCode"`
	Message    string              `json:"message"`
	Errors     map[string][]string `json:"errors,omitempty"`
}

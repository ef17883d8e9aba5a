// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, source, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInvalidCursor      = "INVALID_CURSOR"
	ErrCodeDuplicateSource    = "DUPLICATE_SOURCE"
	ErrCodeSourceNotFound     = "SOURCE_NOT_FOUND"
	ErrCodeOAuthExchange      = "OAUTH_EXCHANGE_FAILED"
	ErrCodeIDTokenInvalid     = "ID_TOKEN_INVALID"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// メールアドレスの存在有無を漏らさないよう、メッセージは固定とする。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewInvalidCursorError は無効なページネーションカーソルエラーを生成する。
func NewInvalidCursorError(cursor string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCursor,
		Message:  fmt.Sprintf("無効なカーソル値です: %s", cursor),
		Category: "validation",
		Action:   "カーソルを指定せずに先頭から取得し直してください。",
	}
}

// NewDuplicateSourceError は接続済みアカウントの重複エラーを生成する。
func NewDuplicateSourceError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateSource,
		Message:  fmt.Sprintf("このメールアカウントは既に接続されています: %s", email),
		Category: "validation",
		Action:   "ソース一覧から既存の接続を確認してください。",
	}
}

// NewSourceNotFoundError はソースが見つからない場合のエラーを生成する。
func NewSourceNotFoundError(sourceID string) *APIError {
	return &APIError{
		Code:     ErrCodeSourceNotFound,
		Message:  fmt.Sprintf("指定されたソースが見つかりません: %s", sourceID),
		Category: "source",
		Action:   "ソースIDを確認してください。",
	}
}

// NewOAuthExchangeError はトークン交換失敗エラーを生成する。
// 認可コードは1回限りのため、リトライではなく接続のやり直しを促す。
func NewOAuthExchangeError() *APIError {
	return &APIError{
		Code:     ErrCodeOAuthExchange,
		Message:  "Googleとのトークン交換に失敗しました。",
		Category: "source",
		Action:   "アカウント接続を最初からやり直してください。",
	}
}

// NewIDTokenInvalidError はIDトークン検証失敗エラーを生成する。
func NewIDTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeIDTokenInvalid,
		Message:  "Googleから受け取ったIDトークンを検証できませんでした。",
		Category: "source",
		Action:   "アカウント接続を最初からやり直してください。",
	}
}

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

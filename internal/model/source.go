package model

import "time"

// SourceType は接続元メールアカウントの種別。
type SourceType string

const (
	// SourceTypeGmail はGmailアカウントを示す。
	SourceTypeGmail SourceType = "gmail"
)

// Source は接続済みの外部メールアカウントを表す。
// OAuth Provisioning Flowによって作成され、明示的な削除以外で変更されない。
type Source struct {
	ID           string
	UserID       string
	Name         string
	EmailAddress string
	SourceType   SourceType

	OAuth2AccessToken           string
	OAuth2RefreshToken          string
	OAuth2AccessTokenExpiresAt  time.Time
	// リフレッシュトークンが失効しないプロバイダーの場合はnil。
	OAuth2RefreshTokenExpiresAt *time.Time

	CreatedAt time.Time
}

// SourceFolder はソース内の同期対象フォルダを表す。
// ソース削除時にCASCADE削除される。
type SourceFolder struct {
	ID        string
	SourceID  string
	Name      string
	CreatedAt time.Time
}

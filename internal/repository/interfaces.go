// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/mtanaka/invoicer/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// CreateWithAccount はユーザーとパスワード認証情報を同一トランザクションで作成する。
	CreateWithAccount(ctx context.Context, user *model.User, account *model.Account) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するaccounts、sessions、sources、invoicesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// AccountRepository はパスワード認証情報の永続化インターフェース。
type AccountRepository interface {
	// FindByUserID は指定ユーザーの認証情報を取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Account, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// SourceRepository は接続済みメールアカウントの永続化インターフェース。
type SourceRepository interface {
	// Create はソースを作成する。
	// (user_id, email_address, source_type)のユニーク制約違反はmodel.APIErrorに変換して返す。
	Create(ctx context.Context, source *model.Source) error

	// FindByID は指定IDのソースを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Source, error)

	// FindByUserEmailType は(userID, emailAddress, sourceType)でソースを検索する。
	// 見つからない場合はnilを返す。重複接続の事前チェックに使用する。
	FindByUserEmailType(ctx context.Context, userID, emailAddress string, sourceType model.SourceType) (*model.Source, error)

	// ListByUserID はユーザーのソース一覧を作成日時の降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Source, error)

	// Delete は指定IDのソースを削除する。
	// 関連するsource_folders、invoicesはCASCADE削除される。
	Delete(ctx context.Context, id string) error
}

// SourceFolderRepository はソース内の同期対象フォルダの永続化インターフェース。
type SourceFolderRepository interface {
	// Create はフォルダを作成する。
	Create(ctx context.Context, folder *model.SourceFolder) error

	// ListBySourceID はソースのフォルダ一覧を名前順で返す。
	ListBySourceID(ctx context.Context, sourceID string) ([]*model.SourceFolder, error)

	// Delete は指定IDのフォルダを削除する。
	Delete(ctx context.Context, id string) error
}

// InvoiceRepository は請求書データの読み取りインターフェース。
// 請求書の作成は別プロセス（取り込みワーカー）が行うため、本システムでは読み取りのみ。
type InvoiceRepository interface {
	// ListByUser はユーザーの請求書を(created_at DESC, id DESC)順でlimit件まで返す。
	// cursorがnil以外の場合、ソート順でカーソルより厳密に後ろの行のみを返す。
	// キーセット述語は単一のOR条件として評価される:
	//   created_at < c OR (created_at = c AND id < i)
	ListByUser(ctx context.Context, userID string, cursor *model.InvoiceCursor, limit int) ([]*model.Invoice, error)
}

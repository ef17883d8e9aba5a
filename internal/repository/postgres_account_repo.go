package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mtanaka/invoicer/internal/model"
)

// PostgresAccountRepo はPostgreSQLを使用したパスワード認証情報リポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// FindByUserID は指定ユーザーの認証情報を取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByUserID(ctx context.Context, userID string) (*model.Account, error) {
	account := &model.Account{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, password_hash, created_at, updated_at
		 FROM accounts WHERE user_id = $1`,
		userID,
	).Scan(&account.ID, &account.UserID, &account.PasswordHash, &account.CreatedAt, &account.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by user ID: %w", err)
	}

	return account, nil
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)

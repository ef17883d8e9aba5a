package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mtanaka/invoicer/internal/model"
)

// uniqueViolation はPostgreSQLのunique_violationエラーコード。
const uniqueViolation = "23505"

// PostgresSourceRepo はPostgreSQLを使用したソースリポジトリ。
type PostgresSourceRepo struct {
	db *sql.DB
}

// NewPostgresSourceRepo はPostgresSourceRepoを生成する。
func NewPostgresSourceRepo(db *sql.DB) *PostgresSourceRepo {
	return &PostgresSourceRepo{db: db}
}

// Create はソースを作成する。
// (user_id, email_address, source_type)のユニーク制約違反は重複接続エラーに変換する。
func (r *PostgresSourceRepo) Create(ctx context.Context, source *model.Source) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sources (id, user_id, name, email_address, source_type,
		                      oauth2_access_token, oauth2_refresh_token,
		                      oauth2_access_token_expires_at, oauth2_refresh_token_expires_at,
		                      created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		source.ID, source.UserID, source.Name, source.EmailAddress, source.SourceType,
		source.OAuth2AccessToken, source.OAuth2RefreshToken,
		source.OAuth2AccessTokenExpiresAt, source.OAuth2RefreshTokenExpiresAt,
		source.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return model.NewDuplicateSourceError(source.EmailAddress)
		}
		return fmt.Errorf("failed to create source: %w", err)
	}
	return nil
}

// FindByID は指定IDのソースを取得する。見つからない場合はnilを返す。
func (r *PostgresSourceRepo) FindByID(ctx context.Context, id string) (*model.Source, error) {
	source := &model.Source{}
	var refreshExpiresAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, email_address, source_type,
		        oauth2_access_token, oauth2_refresh_token,
		        oauth2_access_token_expires_at, oauth2_refresh_token_expires_at,
		        created_at
		 FROM sources WHERE id = $1`,
		id,
	).Scan(
		&source.ID, &source.UserID, &source.Name, &source.EmailAddress, &source.SourceType,
		&source.OAuth2AccessToken, &source.OAuth2RefreshToken,
		&source.OAuth2AccessTokenExpiresAt, &refreshExpiresAt,
		&source.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find source by ID: %w", err)
	}

	if refreshExpiresAt.Valid {
		source.OAuth2RefreshTokenExpiresAt = &refreshExpiresAt.Time
	}

	return source, nil
}

// FindByUserEmailType は(userID, emailAddress, sourceType)でソースを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresSourceRepo) FindByUserEmailType(ctx context.Context, userID, emailAddress string, sourceType model.SourceType) (*model.Source, error) {
	source := &model.Source{}
	var refreshExpiresAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, email_address, source_type,
		        oauth2_access_token, oauth2_refresh_token,
		        oauth2_access_token_expires_at, oauth2_refresh_token_expires_at,
		        created_at
		 FROM sources
		 WHERE user_id = $1 AND email_address = $2 AND source_type = $3`,
		userID, emailAddress, sourceType,
	).Scan(
		&source.ID, &source.UserID, &source.Name, &source.EmailAddress, &source.SourceType,
		&source.OAuth2AccessToken, &source.OAuth2RefreshToken,
		&source.OAuth2AccessTokenExpiresAt, &refreshExpiresAt,
		&source.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find source by user/email/type: %w", err)
	}

	if refreshExpiresAt.Valid {
		source.OAuth2RefreshTokenExpiresAt = &refreshExpiresAt.Time
	}

	return source, nil
}

// ListByUserID はユーザーのソース一覧を作成日時の降順で返す。
func (r *PostgresSourceRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Source, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, email_address, source_type,
		        oauth2_access_token, oauth2_refresh_token,
		        oauth2_access_token_expires_at, oauth2_refresh_token_expires_at,
		        created_at
		 FROM sources
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []*model.Source
	for rows.Next() {
		source := &model.Source{}
		var refreshExpiresAt sql.NullTime

		if err := rows.Scan(
			&source.ID, &source.UserID, &source.Name, &source.EmailAddress, &source.SourceType,
			&source.OAuth2AccessToken, &source.OAuth2RefreshToken,
			&source.OAuth2AccessTokenExpiresAt, &refreshExpiresAt,
			&source.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}

		if refreshExpiresAt.Valid {
			source.OAuth2RefreshTokenExpiresAt = &refreshExpiresAt.Time
		}

		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate source rows: %w", err)
	}

	return sources, nil
}

// Delete は指定IDのソースを削除する。
// 関連するsource_folders、invoicesはCASCADE削除される。
func (r *PostgresSourceRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sources WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewSourceNotFoundError(id)
	}
	return nil
}

// compile-time interface check
var _ SourceRepository = (*PostgresSourceRepo)(nil)

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mtanaka/invoicer/internal/model"
)

// PostgresSourceFolderRepo はPostgreSQLを使用したソースフォルダリポジトリ。
type PostgresSourceFolderRepo struct {
	db *sql.DB
}

// NewPostgresSourceFolderRepo はPostgresSourceFolderRepoを生成する。
func NewPostgresSourceFolderRepo(db *sql.DB) *PostgresSourceFolderRepo {
	return &PostgresSourceFolderRepo{db: db}
}

// Create はフォルダを作成する。
func (r *PostgresSourceFolderRepo) Create(ctx context.Context, folder *model.SourceFolder) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO source_folders (id, source_id, name, created_at)
		 VALUES ($1, $2, $3, $4)`,
		folder.ID, folder.SourceID, folder.Name, folder.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create source folder: %w", err)
	}
	return nil
}

// ListBySourceID はソースのフォルダ一覧を名前順で返す。
func (r *PostgresSourceFolderRepo) ListBySourceID(ctx context.Context, sourceID string) ([]*model.SourceFolder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, source_id, name, created_at
		 FROM source_folders
		 WHERE source_id = $1
		 ORDER BY name`,
		sourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list source folders: %w", err)
	}
	defer rows.Close()

	var folders []*model.SourceFolder
	for rows.Next() {
		folder := &model.SourceFolder{}
		if err := rows.Scan(&folder.ID, &folder.SourceID, &folder.Name, &folder.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source folder row: %w", err)
		}
		folders = append(folders, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate source folder rows: %w", err)
	}

	return folders, nil
}

// Delete は指定IDのフォルダを削除する。
func (r *PostgresSourceFolderRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM source_folders WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete source folder: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SourceFolderRepository = (*PostgresSourceFolderRepo)(nil)

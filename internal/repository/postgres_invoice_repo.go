package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mtanaka/invoicer/internal/model"
)

// PostgresInvoiceRepo はPostgreSQLを使用した請求書リポジトリ。
// 請求書の書き込みは取り込みワーカーが行うため、ここでは読み取りのみを提供する。
type PostgresInvoiceRepo struct {
	db *sql.DB
}

// NewPostgresInvoiceRepo はPostgresInvoiceRepoを生成する。
func NewPostgresInvoiceRepo(db *sql.DB) *PostgresInvoiceRepo {
	return &PostgresInvoiceRepo{db: db}
}

// ListByUser はユーザーの請求書を(created_at DESC, id DESC)順でlimit件まで返す。
//
// created_atは一意ではないため、idを第2キーとして全順序を保証する。
// カーソルがある場合のキーセット述語は単一のOR条件として評価する:
//
//	created_at < c OR (created_at = c AND id < i)
//
// 2条件を独立に適用するとカーソルと同時刻の行が欠落・重複するため、
// 分解してはならない。
func (r *PostgresInvoiceRepo) ListByUser(
	ctx context.Context,
	userID string,
	cursor *model.InvoiceCursor,
	limit int,
) ([]*model.Invoice, error) {
	baseQuery := `
		SELECT id, user_id, source_id, invoice_number, vendor_name,
		       total_amount, currency, due_date, payment_status,
		       line_items, created_at
		FROM invoices
		WHERE user_id = $1`

	args := []interface{}{userID}
	argIndex := 2

	// キーセットページネーション
	if cursor != nil {
		baseQuery += fmt.Sprintf(
			" AND (created_at < $%d OR (created_at = $%d AND id < $%d))",
			argIndex, argIndex, argIndex+1,
		)
		args = append(args, cursor.CreatedAt, cursor.ID)
		argIndex += 2
	}

	baseQuery += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argIndex)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*model.Invoice
	for rows.Next() {
		invoice := &model.Invoice{}
		var lineItemsJSON []byte

		if err := rows.Scan(
			&invoice.ID, &invoice.UserID, &invoice.SourceID,
			&invoice.InvoiceNumber, &invoice.VendorName,
			&invoice.TotalAmount, &invoice.Currency,
			&invoice.DueDate, &invoice.PaymentStatus,
			&lineItemsJSON, &invoice.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice row: %w", err)
		}

		if err := json.Unmarshal(lineItemsJSON, &invoice.LineItems); err != nil {
			return nil, fmt.Errorf("failed to decode invoice line items: %w", err)
		}

		invoices = append(invoices, invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoice rows: %w", err)
	}

	return invoices, nil
}

// compile-time interface check
var _ InvoiceRepository = (*PostgresInvoiceRepo)(nil)

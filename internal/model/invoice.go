package model

import "time"

// PaymentStatus は請求書の支払い状態。
type PaymentStatus string

const (
	// PaymentStatusPaid は支払い済みを示す。
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusUnpaid は未払いを示す。
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	// PaymentStatusPending は支払い処理中を示す。
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusUnknown は支払い状態が判別できないことを示す。
	PaymentStatusUnknown PaymentStatus = "unknown"
)

// LineItem は請求書の明細行を表す。
// 数量と単価は抽出できない場合がある。
type LineItem struct {
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
}

// Invoice はメールから抽出された請求書レコードを表す。
// 本システムからは読み取り専用で、取り込み処理は別プロセスが行う。
// 金額は丸め誤差を避けるため10進文字列のまま保持する。
type Invoice struct {
	ID            string
	UserID        string
	SourceID      string
	InvoiceNumber string
	VendorName    string
	TotalAmount   string
	Currency      string
	DueDate       time.Time
	PaymentStatus PaymentStatus
	LineItems     []LineItem
	CreatedAt     time.Time
}

// InvoiceCursor はキーセットページネーションの位置を表す。
// 前ページ最終行の(created_at, id)の組で、サーバー側には保持されない。
type InvoiceCursor struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

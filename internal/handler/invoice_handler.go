package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/mtanaka/invoicer/internal/invoice"
	"github.com/mtanaka/invoicer/internal/middleware"
	"github.com/mtanaka/invoicer/internal/model"
)

// InvoiceServiceInterface は請求書ハンドラーが必要とするサービスインターフェース。
type InvoiceServiceInterface interface {
	List(ctx context.Context, userID, cursor string, limit int) (*invoice.ListResult, error)
}

// InvoiceHandler は請求書フィードのHTTPハンドラー。
type InvoiceHandler struct {
	service InvoiceServiceInterface
}

// NewInvoiceHandler はInvoiceHandlerを生成する。
func NewInvoiceHandler(service InvoiceServiceInterface) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

// invoiceResponse は請求書のAPIレスポンス。
type invoiceResponse struct {
	ID            string           `json:"id"`
	SourceID      string           `json:"source_id"`
	InvoiceNumber string           `json:"invoice_number"`
	VendorName    string           `json:"vendor_name"`
	TotalAmount   string           `json:"total_amount"`
	Currency      string           `json:"currency"`
	DueDate       time.Time        `json:"due_date"`
	PaymentStatus string           `json:"payment_status"`
	LineItems     []model.LineItem `json:"line_items"`
	CreatedAt     time.Time        `json:"created_at"`
}

// invoiceListResponse は請求書一覧のAPIレスポンス。
// NextCursorは次ページが無い場合nullになる。
type invoiceListResponse struct {
	Items      []invoiceResponse `json:"items"`
	NextCursor *string           `json:"next_cursor"`
}

// ListInvoices は請求書フィードを返す。
// GET /api/invoices?cursor=xxx&limit=N
func (h *InvoiceHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	cursor := r.URL.Query().Get("cursor")

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("limitは整数で指定してください"))
			return
		}
		if limit <= 0 {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("limitは正の整数で指定してください"))
			return
		}
	}

	result, err := h.service.List(r.Context(), userID, cursor, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]invoiceResponse, len(result.Items))
	for i, inv := range result.Items {
		lineItems := inv.LineItems
		if lineItems == nil {
			lineItems = []model.LineItem{}
		}
		items[i] = invoiceResponse{
			ID:            inv.ID,
			SourceID:      inv.SourceID,
			InvoiceNumber: inv.InvoiceNumber,
			VendorName:    inv.VendorName,
			TotalAmount:   inv.TotalAmount,
			Currency:      inv.Currency,
			DueDate:       inv.DueDate,
			PaymentStatus: string(inv.PaymentStatus),
			LineItems:     lineItems,
			CreatedAt:     inv.CreatedAt,
		}
	}

	resp := invoiceListResponse{Items: items}
	if result.NextCursor != "" {
		resp.NextCursor = &result.NextCursor
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

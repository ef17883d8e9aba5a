package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mtanaka/invoicer/internal/invoice"
	"github.com/mtanaka/invoicer/internal/model"
)

// --- モック定義 ---

type mockInvoiceService struct {
	listFn func(ctx context.Context, userID, cursor string, limit int) (*invoice.ListResult, error)
}

func (m *mockInvoiceService) List(ctx context.Context, userID, cursor string, limit int) (*invoice.ListResult, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, cursor, limit)
	}
	return &invoice.ListResult{}, nil
}

var _ InvoiceServiceInterface = (*mockInvoiceService)(nil)

// --- テスト ---

func TestListInvoicesHandler_ReturnsItemsAndNextCursor(t *testing.T) {
	createdAt := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	service := &mockInvoiceService{
		listFn: func(ctx context.Context, userID, cursor string, limit int) (*invoice.ListResult, error) {
			return &invoice.ListResult{
				Items: []*model.Invoice{
					{
						ID:            "invoice-2",
						UserID:        userID,
						SourceID:      "source-1",
						InvoiceNumber: "INV-0002",
						VendorName:    "Acme",
						TotalAmount:   "1234.56",
						Currency:      "JPY",
						PaymentStatus: model.PaymentStatusUnpaid,
						CreatedAt:     createdAt,
					},
				},
				NextCursor: "next-cursor-token",
			}, nil
		},
	}
	h := NewInvoiceHandler(service)

	req := newAuthedRequest(http.MethodGet, "/api/invoices?limit=1", "user-1", "")
	w := httptest.NewRecorder()

	h.ListInvoices(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp invoiceListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(resp.Items))
	}
	if resp.Items[0].TotalAmount != "1234.56" {
		t.Errorf("total_amount = %q, want %q", resp.Items[0].TotalAmount, "1234.56")
	}
	if resp.NextCursor == nil || *resp.NextCursor != "next-cursor-token" {
		t.Errorf("next_cursor = %v, want next-cursor-token", resp.NextCursor)
	}
}

func TestListInvoicesHandler_LastPage_NextCursorNull(t *testing.T) {
	service := &mockInvoiceService{
		listFn: func(ctx context.Context, userID, cursor string, limit int) (*invoice.ListResult, error) {
			return &invoice.ListResult{
				Items: []*model.Invoice{{ID: "invoice-1", UserID: userID}},
			}, nil
		},
	}
	h := NewInvoiceHandler(service)

	req := newAuthedRequest(http.MethodGet, "/api/invoices", "user-1", "")
	w := httptest.NewRecorder()

	h.ListInvoices(w, req)

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	// 最終ページではnext_cursorがJSON nullになること
	if string(raw["next_cursor"]) != "null" {
		t.Errorf("next_cursor = %s, want null", raw["next_cursor"])
	}
}

func TestListInvoicesHandler_PassesCursorAndLimit(t *testing.T) {
	var gotCursor string
	var gotLimit int
	service := &mockInvoiceService{
		listFn: func(ctx context.Context, userID, cursor string, limit int) (*invoice.ListResult, error) {
			gotCursor = cursor
			gotLimit = limit
			return &invoice.ListResult{}, nil
		},
	}
	h := NewInvoiceHandler(service)

	req := newAuthedRequest(http.MethodGet, "/api/invoices?cursor=abc123&limit=25", "user-1", "")
	w := httptest.NewRecorder()

	h.ListInvoices(w, req)

	if gotCursor != "abc123" {
		t.Errorf("cursor = %q, want %q", gotCursor, "abc123")
	}
	if gotLimit != 25 {
		t.Errorf("limit = %d, want 25", gotLimit)
	}
}

func TestListInvoicesHandler_NonIntegerLimit_Returns400(t *testing.T) {
	queryCalls := 0
	service := &mockInvoiceService{
		listFn: func(ctx context.Context, userID, cursor string, limit int) (*invoice.ListResult, error) {
			queryCalls++
			return &invoice.ListResult{}, nil
		},
	}
	h := NewInvoiceHandler(service)

	req := newAuthedRequest(http.MethodGet, "/api/invoices?limit=abc", "user-1", "")
	w := httptest.NewRecorder()

	h.ListInvoices(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if queryCalls != 0 {
		t.Errorf("service calls = %d, want 0", queryCalls)
	}
}

func TestListInvoicesHandler_NonPositiveLimit_Returns400(t *testing.T) {
	h := NewInvoiceHandler(&mockInvoiceService{})

	for _, limit := range []string{"0", "-1"} {
		req := newAuthedRequest(http.MethodGet, "/api/invoices?limit="+limit, "user-1", "")
		w := httptest.NewRecorder()

		h.ListInvoices(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want %d", limit, w.Code, http.StatusBadRequest)
		}
	}
}

func TestListInvoicesHandler_InvalidCursor_Returns400(t *testing.T) {
	service := &mockInvoiceService{
		listFn: func(ctx context.Context, userID, cursor string, limit int) (*invoice.ListResult, error) {
			return nil, model.NewInvalidCursorError(cursor)
		},
	}
	h := NewInvoiceHandler(service)

	req := newAuthedRequest(http.MethodGet, "/api/invoices?cursor=garbage", "user-1", "")
	w := httptest.NewRecorder()

	h.ListInvoices(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeInvalidCursor {
		t.Errorf("error code = %q, want %q", errResp["code"], model.ErrCodeInvalidCursor)
	}
}

func TestListInvoicesHandler_NoUserID_Returns401(t *testing.T) {
	queryCalls := 0
	service := &mockInvoiceService{
		listFn: func(ctx context.Context, userID, cursor string, limit int) (*invoice.ListResult, error) {
			queryCalls++
			return &invoice.ListResult{}, nil
		},
	}
	h := NewInvoiceHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	w := httptest.NewRecorder()

	h.ListInvoices(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	// 未認証リクエストはサービス層に到達しないこと
	if queryCalls != 0 {
		t.Errorf("service calls = %d, want 0", queryCalls)
	}
}

func TestListInvoicesHandler_EmptyFeed_ReturnsEmptyItems(t *testing.T) {
	h := NewInvoiceHandler(&mockInvoiceService{})

	req := newAuthedRequest(http.MethodGet, "/api/invoices", "user-1", "")
	w := httptest.NewRecorder()

	h.ListInvoices(w, req)

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	// 空フィードでもitemsは[]としてシリアライズされる
	if string(raw["items"]) != "[]" {
		t.Errorf("items = %s, want []", raw["items"])
	}
}

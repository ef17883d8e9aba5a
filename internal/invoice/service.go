package invoice

import (
	"context"
	"time"

	"github.com/mtanaka/invoicer/internal/model"
	"github.com/mtanaka/invoicer/internal/repository"
)

// MetricsRecorder はフィード取得に関するメトリクス記録のインターフェース。
// metrics.Collectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordInvoicePageLatency(duration time.Duration)
	RecordInvoicesServed(count int)
}

// ServiceConfig は請求書フィードの設定。
type ServiceConfig struct {
	DefaultPageSize int // limit未指定時のページサイズ
	MaxPageSize     int // limitの上限
}

// Service は請求書フィードのビジネスロジックを提供する。
type Service struct {
	invoiceRepo repository.InvoiceRepository
	metrics     MetricsRecorder // nilの場合は記録しない
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(invoiceRepo repository.InvoiceRepository, metrics MetricsRecorder, config ServiceConfig) *Service {
	return &Service{
		invoiceRepo: invoiceRepo,
		metrics:     metrics,
		config:      config,
	}
}

// ListResult はListの戻り値。
type ListResult struct {
	Items []*model.Invoice
	// 次ページが存在する場合のみ非空。最終ページではnullとしてシリアライズされる。
	NextCursor string
}

// List はユーザーの請求書フィードを(created_at DESC, id DESC)順で返す。
// limit+1件を取得して次ページの有無を判定し、
// 次ページがある場合のみ最終行からNextCursorを構築する。
// 不正なカーソル・limitはクエリ実行前に拒否する。
func (s *Service) List(ctx context.Context, userID, cursorStr string, limit int) (*ListResult, error) {
	if limit == 0 {
		limit = s.config.DefaultPageSize
	}
	if limit < 0 {
		return nil, model.NewInvalidRequestError("limitは正の整数で指定してください")
	}
	if limit > s.config.MaxPageSize {
		limit = s.config.MaxPageSize
	}

	var cursor *model.InvoiceCursor
	if cursorStr != "" {
		var err error
		cursor, err = DecodeCursor(cursorStr)
		if err != nil {
			return nil, err
		}
	}

	// limit+1件を取得して次ページの有無を判定する
	start := time.Now()
	invoices, err := s.invoiceRepo.ListByUser(ctx, userID, cursor, limit+1)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordInvoicePageLatency(time.Since(start))
	}

	hasMore := len(invoices) > limit
	if hasMore {
		invoices = invoices[:limit] // 余分な1件を除外
	}

	var nextCursor string
	if hasMore && len(invoices) > 0 {
		last := invoices[len(invoices)-1]
		nextCursor, err = EncodeCursor(&model.InvoiceCursor{
			ID:        last.ID,
			CreatedAt: last.CreatedAt,
		})
		if err != nil {
			return nil, err
		}
	}

	if s.metrics != nil {
		s.metrics.RecordInvoicesServed(len(invoices))
	}

	return &ListResult{
		Items:      invoices,
		NextCursor: nextCursor,
	}, nil
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mtanaka/invoicer/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger              // nilの場合はリクエストログを出力しない
	HTTPMetrics       middleware.StatusRecorder // nilの場合はステータスコードを記録しない

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ソース
	SourceService SourceServiceInterface
	SourceConfig  SourceHandlerConfig

	// 請求書
	InvoiceService InvoiceServiceInterface

	// ヘルスチェック・メトリクス
	HealthHandler  http.Handler
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → HTTPMetrics → CORS → SecurityHeaders → CSRF → Session → RateLimit(General)
//
// sign-up/sign-in/logout/meと/health、/metricsはセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewHTTPMetricsMiddleware(deps.HTTPMetrics))
	}
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	sourceHandler := NewSourceHandler(deps.SourceService, deps.SourceConfig)
	invoiceHandler := NewInvoiceHandler(deps.InvoiceService)

	// --- 認証不要のルート ---

	if deps.HealthHandler != nil {
		r.Method(http.MethodGet, "/health", deps.HealthHandler)
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/sign-up", authHandler.SignUp)
		r.Post("/sign-in", authHandler.SignIn)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ソース管理
		r.Route("/api/sources", func(r chi.Router) {
			r.Get("/", sourceHandler.ListSources)

			// OAuthプロビジョニング（接続専用レート制限を追加）
			r.With(deps.RateLimiter.SourceConnectMiddleware()).Get("/google/connect", sourceHandler.Connect)
			r.With(deps.RateLimiter.SourceConnectMiddleware()).Get("/google/callback", sourceHandler.Callback)

			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", sourceHandler.DeleteSource)

				// 同期対象フォルダ管理
				r.Route("/folders", func(r chi.Router) {
					r.Get("/", sourceHandler.ListFolders)
					r.Post("/", sourceHandler.AddFolder)
					r.Delete("/{folderID}", sourceHandler.DeleteFolder)
				})
			})
		})

		// 請求書フィード
		r.Get("/api/invoices", invoiceHandler.ListInvoices)

		// ユーザー管理
		r.Delete("/api/users/me", authHandler.Withdraw)
	})

	return r
}

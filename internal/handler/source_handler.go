package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mtanaka/invoicer/internal/middleware"
	"github.com/mtanaka/invoicer/internal/model"
)

const oauthStateCookie = "oauth_state"

// SourceServiceInterface はソースハンドラーが必要とするサービスインターフェース。
type SourceServiceInterface interface {
	GetConnectURL(state string) string
	ConnectGmail(ctx context.Context, userID, code string) (*model.Source, error)
	ListSources(ctx context.Context, userID string) ([]*model.Source, error)
	DeleteSource(ctx context.Context, userID, sourceID string) error
	ListFolders(ctx context.Context, userID, sourceID string) ([]*model.SourceFolder, error)
	AddFolder(ctx context.Context, userID, sourceID, name string) (*model.SourceFolder, error)
	DeleteFolder(ctx context.Context, userID, sourceID, folderID string) error
}

// SourceHandlerConfig はソースハンドラーの設定。
type SourceHandlerConfig struct {
	BaseURL      string // 接続完了後のリダイレクト先
	CookieDomain string
	CookieSecure bool
}

// SourceHandler はソース接続・管理のHTTPハンドラー。
type SourceHandler struct {
	service SourceServiceInterface
	config  SourceHandlerConfig
}

// NewSourceHandler はSourceHandlerを生成する。
func NewSourceHandler(service SourceServiceInterface, config SourceHandlerConfig) *SourceHandler {
	return &SourceHandler{
		service: service,
		config:  config,
	}
}

// sourceResponse はソース情報のAPIレスポンス。
// トークン類はレスポンスに含めない。
type sourceResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	EmailAddress string    `json:"email_address"`
	SourceType   string    `json:"source_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// folderResponse はフォルダ情報のAPIレスポンス。
type folderResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// addFolderRequest はフォルダ追加リクエストのボディ。
type addFolderRequest struct {
	Name string `json:"name"`
}

// Connect はGmailアカウント接続フローを開始する。
// GET /api/sources/google/connect
func (h *SourceHandler) Connect(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.service.GetConnectURL(state)
	http.Redirect(w, r, url, http.StatusFound)
}

// Callback はOAuthコールバックを処理し、ソースを作成する。
// GET /api/sources/google/callback?code=xxx&state=yyy
func (h *SourceHandler) Callback(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("user_id", userID),
		)
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("stateパラメータが不正です"))
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("認可コードがありません"))
		return
	}

	// 3. トークン交換とソース作成
	if _, err := h.service.ConnectGmail(r.Context(), userID, code); err != nil {
		handleServiceError(w, err)
		return
	}

	// 4. ダッシュボードにリダイレクト
	http.Redirect(w, r, h.config.BaseURL, http.StatusFound)
}

// ListSources はユーザーのソース一覧を返す。
// GET /api/sources
func (h *SourceHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	sources, err := h.service.ListSources(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]sourceResponse, len(sources))
	for i, s := range sources {
		resp[i] = sourceResponse{
			ID:           s.ID,
			Name:         s.Name,
			EmailAddress: s.EmailAddress,
			SourceType:   string(s.SourceType),
			CreatedAt:    s.CreatedAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"sources": resp,
	})
}

// DeleteSource はソースを削除する。
// DELETE /api/sources/{id}
func (h *SourceHandler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	sourceID := chi.URLParam(r, "id")
	if err := h.service.DeleteSource(r.Context(), userID, sourceID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListFolders はソースの同期対象フォルダ一覧を返す。
// GET /api/sources/{id}/folders
func (h *SourceHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	sourceID := chi.URLParam(r, "id")
	folders, err := h.service.ListFolders(r.Context(), userID, sourceID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]folderResponse, len(folders))
	for i, f := range folders {
		resp[i] = folderResponse{
			ID:        f.ID,
			Name:      f.Name,
			CreatedAt: f.CreatedAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"folders": resp,
	})
}

// AddFolder はソースに同期対象フォルダを追加する。
// POST /api/sources/{id}/folders
func (h *SourceHandler) AddFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req addFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	sourceID := chi.URLParam(r, "id")
	folder, err := h.service.AddFolder(r.Context(), userID, sourceID, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(folderResponse{
		ID:        folder.ID,
		Name:      folder.Name,
		CreatedAt: folder.CreatedAt,
	})
}

// DeleteFolder はソースの同期対象フォルダを削除する。
// DELETE /api/sources/{id}/folders/{folderID}
func (h *SourceHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	sourceID := chi.URLParam(r, "id")
	folderID := chi.URLParam(r, "folderID")
	if err := h.service.DeleteFolder(r.Context(), userID, sourceID, folderID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mtanaka/invoicer/internal/middleware"
	"github.com/mtanaka/invoicer/internal/model"
)

// --- モック定義 ---

type mockSourceService struct {
	getConnectURLFn func(state string) string
	connectGmailFn  func(ctx context.Context, userID, code string) (*model.Source, error)
	listSourcesFn   func(ctx context.Context, userID string) ([]*model.Source, error)
	deleteSourceFn  func(ctx context.Context, userID, sourceID string) error
	listFoldersFn   func(ctx context.Context, userID, sourceID string) ([]*model.SourceFolder, error)
	addFolderFn     func(ctx context.Context, userID, sourceID, name string) (*model.SourceFolder, error)
	deleteFolderFn  func(ctx context.Context, userID, sourceID, folderID string) error
}

func (m *mockSourceService) GetConnectURL(state string) string {
	if m.getConnectURLFn != nil {
		return m.getConnectURLFn(state)
	}
	return ""
}

func (m *mockSourceService) ConnectGmail(ctx context.Context, userID, code string) (*model.Source, error) {
	if m.connectGmailFn != nil {
		return m.connectGmailFn(ctx, userID, code)
	}
	return nil, nil
}

func (m *mockSourceService) ListSources(ctx context.Context, userID string) ([]*model.Source, error) {
	if m.listSourcesFn != nil {
		return m.listSourcesFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockSourceService) DeleteSource(ctx context.Context, userID, sourceID string) error {
	if m.deleteSourceFn != nil {
		return m.deleteSourceFn(ctx, userID, sourceID)
	}
	return nil
}

func (m *mockSourceService) ListFolders(ctx context.Context, userID, sourceID string) ([]*model.SourceFolder, error) {
	if m.listFoldersFn != nil {
		return m.listFoldersFn(ctx, userID, sourceID)
	}
	return nil, nil
}

func (m *mockSourceService) AddFolder(ctx context.Context, userID, sourceID, name string) (*model.SourceFolder, error) {
	if m.addFolderFn != nil {
		return m.addFolderFn(ctx, userID, sourceID, name)
	}
	return nil, nil
}

func (m *mockSourceService) DeleteFolder(ctx context.Context, userID, sourceID, folderID string) error {
	if m.deleteFolderFn != nil {
		return m.deleteFolderFn(ctx, userID, sourceID, folderID)
	}
	return nil
}

var _ SourceServiceInterface = (*mockSourceService)(nil)

// newAuthedRequest はユーザーIDをコンテキストに注入したリクエストを生成する。
func newAuthedRequest(method, target, userID string, body string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
}

// withURLParam はchiのURLパラメータをリクエストコンテキストに設定する。
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// --- テスト ---

func TestConnectHandler_RedirectsWithStateCookie(t *testing.T) {
	service := &mockSourceService{
		getConnectURLFn: func(state string) string {
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		},
	}
	h := NewSourceHandler(service, SourceHandlerConfig{BaseURL: "http://localhost:3000"})

	req := newAuthedRequest(http.MethodGet, "/api/sources/google/connect", "user-1", "")
	w := httptest.NewRecorder()

	h.Connect(w, req)

	if w.Code != http.StatusFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusFound)
	}

	stateCookie := findCookie(w, "oauth_state")
	if stateCookie == nil || stateCookie.Value == "" {
		t.Fatal("expected oauth_state cookie")
	}
	if !stateCookie.HttpOnly {
		t.Error("oauth_state cookie must be HttpOnly")
	}

	location := w.Header().Get("Location")
	if !strings.Contains(location, stateCookie.Value) {
		t.Errorf("redirect URL %q should contain state %q", location, stateCookie.Value)
	}
}

func TestCallbackHandler_Success_CreatesSourceAndRedirects(t *testing.T) {
	var connectedUserID, connectedCode string
	service := &mockSourceService{
		connectGmailFn: func(ctx context.Context, userID, code string) (*model.Source, error) {
			connectedUserID = userID
			connectedCode = code
			return &model.Source{ID: "source-1", UserID: userID}, nil
		},
	}
	h := NewSourceHandler(service, SourceHandlerConfig{BaseURL: "http://localhost:3000"})

	req := newAuthedRequest(http.MethodGet, "/api/sources/google/callback?code=auth-code&state=state-abc", "user-1", "")
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-abc"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
	if connectedUserID != "user-1" {
		t.Errorf("userID = %q, want %q", connectedUserID, "user-1")
	}
	if connectedCode != "auth-code" {
		t.Errorf("code = %q, want %q", connectedCode, "auth-code")
	}
	if got := w.Header().Get("Location"); got != "http://localhost:3000" {
		t.Errorf("redirect = %q, want %q", got, "http://localhost:3000")
	}
}

func TestCallbackHandler_StateMismatch_Returns400(t *testing.T) {
	connectCalls := 0
	service := &mockSourceService{
		connectGmailFn: func(ctx context.Context, userID, code string) (*model.Source, error) {
			connectCalls++
			return nil, nil
		},
	}
	h := NewSourceHandler(service, SourceHandlerConfig{})

	req := newAuthedRequest(http.MethodGet, "/api/sources/google/callback?code=auth-code&state=forged", "user-1", "")
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "expected-state"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if connectCalls != 0 {
		t.Errorf("connect calls = %d, want 0", connectCalls)
	}
}

func TestCallbackHandler_MissingCode_Returns400(t *testing.T) {
	h := NewSourceHandler(&mockSourceService{}, SourceHandlerConfig{})

	req := newAuthedRequest(http.MethodGet, "/api/sources/google/callback?state=state-abc", "user-1", "")
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-abc"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCallbackHandler_DuplicateSource_Returns409(t *testing.T) {
	service := &mockSourceService{
		connectGmailFn: func(ctx context.Context, userID, code string) (*model.Source, error) {
			return nil, model.NewDuplicateSourceError("user@gmail.com")
		},
	}
	h := NewSourceHandler(service, SourceHandlerConfig{})

	req := newAuthedRequest(http.MethodGet, "/api/sources/google/callback?code=auth-code&state=state-abc", "user-1", "")
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-abc"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}

	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeDuplicateSource {
		t.Errorf("error code = %q, want %q", errResp["code"], model.ErrCodeDuplicateSource)
	}
}

func TestCallbackHandler_ExchangeFailure_Returns502(t *testing.T) {
	service := &mockSourceService{
		connectGmailFn: func(ctx context.Context, userID, code string) (*model.Source, error) {
			return nil, model.NewOAuthExchangeError()
		},
	}
	h := NewSourceHandler(service, SourceHandlerConfig{})

	req := newAuthedRequest(http.MethodGet, "/api/sources/google/callback?code=bad-code&state=state-abc", "user-1", "")
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-abc"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
}

func TestListSourcesHandler_OmitsTokenMaterial(t *testing.T) {
	createdAt := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	service := &mockSourceService{
		listSourcesFn: func(ctx context.Context, userID string) ([]*model.Source, error) {
			return []*model.Source{
				{
					ID:                 "source-1",
					UserID:             userID,
					Name:               "tanaka/gmail/user@gmail.com",
					EmailAddress:       "user@gmail.com",
					SourceType:         model.SourceTypeGmail,
					OAuth2AccessToken:  "secret-access-token",
					OAuth2RefreshToken: "secret-refresh-token",
					CreatedAt:          createdAt,
				},
			}, nil
		},
	}
	h := NewSourceHandler(service, SourceHandlerConfig{})

	req := newAuthedRequest(http.MethodGet, "/api/sources", "user-1", "")
	w := httptest.NewRecorder()

	h.ListSources(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	body := w.Body.String()
	// トークン類がレスポンスに漏れないこと
	if strings.Contains(body, "secret-access-token") || strings.Contains(body, "secret-refresh-token") {
		t.Errorf("response must not contain token material: %s", body)
	}

	var resp struct {
		Sources []sourceResponse `json:"sources"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Sources) != 1 {
		t.Fatalf("len(sources) = %d, want 1", len(resp.Sources))
	}
	if resp.Sources[0].EmailAddress != "user@gmail.com" {
		t.Errorf("email = %q, want %q", resp.Sources[0].EmailAddress, "user@gmail.com")
	}
}

func TestDeleteSourceHandler_NotFound_Returns404(t *testing.T) {
	service := &mockSourceService{
		deleteSourceFn: func(ctx context.Context, userID, sourceID string) error {
			return model.NewSourceNotFoundError(sourceID)
		},
	}
	h := NewSourceHandler(service, SourceHandlerConfig{})

	req := newAuthedRequest(http.MethodDelete, "/api/sources/missing", "user-1", "")
	req = withURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.DeleteSource(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestDeleteSourceHandler_Success_Returns204(t *testing.T) {
	var deletedSourceID string
	service := &mockSourceService{
		deleteSourceFn: func(ctx context.Context, userID, sourceID string) error {
			deletedSourceID = sourceID
			return nil
		},
	}
	h := NewSourceHandler(service, SourceHandlerConfig{})

	req := newAuthedRequest(http.MethodDelete, "/api/sources/source-1", "user-1", "")
	req = withURLParam(req, "id", "source-1")
	w := httptest.NewRecorder()

	h.DeleteSource(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if deletedSourceID != "source-1" {
		t.Errorf("deleted source = %q, want %q", deletedSourceID, "source-1")
	}
}

func TestAddFolderHandler_Success_Returns201(t *testing.T) {
	service := &mockSourceService{
		addFolderFn: func(ctx context.Context, userID, sourceID, name string) (*model.SourceFolder, error) {
			return &model.SourceFolder{ID: "folder-1", SourceID: sourceID, Name: name}, nil
		},
	}
	h := NewSourceHandler(service, SourceHandlerConfig{})

	req := newAuthedRequest(http.MethodPost, "/api/sources/source-1/folders", "user-1", `{"name":"INBOX"}`)
	req = withURLParam(req, "id", "source-1")
	w := httptest.NewRecorder()

	h.AddFolder(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var resp folderResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Name != "INBOX" {
		t.Errorf("folder name = %q, want %q", resp.Name, "INBOX")
	}
}

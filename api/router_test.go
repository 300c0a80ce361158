package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/portsync/config"
	"github.com/use-agent/portsync/models"
)

type fakeSyncer struct {
	msg    *models.Message
	err    error
	got    *models.SyncRequest
	active int
}

func (f *fakeSyncer) Sync(_ context.Context, req *models.SyncRequest) (*models.Message, error) {
	f.got = req
	return f.msg, f.err
}

func (f *fakeSyncer) ActiveSessions() int { return f.active }

func testRouterConfig() *config.Config {
	cfg := config.Load()
	cfg.Server.Mode = "test"
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{"secret"}
	cfg.RateLimit.RequestsPerSecond = 100
	cfg.RateLimit.Burst = 100
	return cfg
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, models.SyncResponse) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp models.SyncResponse
	if strings.HasPrefix(path, "/api/v1/sync") {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, resp
}

func TestHealth_NoAuth(t *testing.T) {
	r := NewRouter(&fakeSyncer{active: 1}, testRouterConfig(), time.Now())

	w, _ := do(t, r, http.MethodGet, "/api/v1/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var h models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.Status != "busy" || h.ActiveSessions != 1 || h.Version == "" {
		t.Errorf("health: got %+v", h)
	}
}

func TestSync_RequiresAPIKey(t *testing.T) {
	svc := &fakeSyncer{}
	r := NewRouter(svc, testRouterConfig(), time.Now())

	w, resp := do(t, r, http.MethodPost, "/api/v1/sync", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d", w.Code)
	}
	if resp.Error == nil || resp.Error.Code != models.ErrCodeUnauthorized {
		t.Errorf("error: got %+v", resp.Error)
	}
	if svc.got != nil {
		t.Error("syncer must not run without a key")
	}

	w, _ = do(t, r, http.MethodPost, "/api/v1/sync", "", map[string]string{"X-API-Key": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: got %d", w.Code)
	}
}

func TestSync_Success(t *testing.T) {
	cash := "12.50"
	svc := &fakeSyncer{msg: &models.Message{Event: models.EventScrapeSucceeded, UninvestedCash: &cash}}
	r := NewRouter(svc, testRouterConfig(), time.Now())

	w, resp := do(t, r, http.MethodPost, "/api/v1/sync", `{"timeout":30}`, map[string]string{"Authorization": "Bearer secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", w.Code, w.Body.String())
	}
	if !resp.Success || resp.Message == nil || *resp.Message.UninvestedCash != "12.50" {
		t.Errorf("response: got %+v", resp)
	}
	if svc.got == nil || svc.got.Timeout != 30 {
		t.Errorf("request: got %+v", svc.got)
	}
}

func TestSync_EmptyBodyUsesDefaults(t *testing.T) {
	svc := &fakeSyncer{msg: models.LoginNeeded()}
	cfg := testRouterConfig()
	r := NewRouter(svc, cfg, time.Now())

	w, resp := do(t, r, http.MethodPost, "/api/v1/sync", "", map[string]string{"X-API-Key": "secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if resp.Success {
		t.Error("login-needed is not a successful sync")
	}
	if resp.Message == nil || resp.Message.Event != models.EventLoginNeeded {
		t.Errorf("message: got %+v", resp.Message)
	}
	if svc.got.Timeout != int(cfg.Scraper.DefaultTimeout.Seconds()) {
		t.Errorf("timeout default: got %d", svc.got.Timeout)
	}
}

func TestSync_ErrorMessageIsStill200(t *testing.T) {
	msg := &models.Message{
		Event: models.EventScrapeSucceeded,
		Error: &models.ErrorDetail{Code: models.ErrCodeFetchFailure, Message: "portfolio status 401"},
	}
	r := NewRouter(&fakeSyncer{msg: msg}, testRouterConfig(), time.Now())

	w, resp := do(t, r, http.MethodPost, "/api/v1/sync", "", map[string]string{"X-API-Key": "secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if resp.Success || resp.Message.Error == nil {
		t.Errorf("response: got %+v", resp)
	}
}

func TestSync_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"navigation", models.NewSyncError(models.ErrCodeNavigation, "navigation failed", nil), http.StatusBadGateway},
		{"browser", models.NewSyncError(models.ErrCodeBrowserCrash, "browser gone", nil), http.StatusServiceUnavailable},
		{"input", models.NewSyncError(models.ErrCodeInvalidInput, "bad url", nil), http.StatusBadRequest},
		{"cancelled", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"plain", context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(&fakeSyncer{err: tt.err}, testRouterConfig(), time.Now())
			w, resp := do(t, r, http.MethodPost, "/api/v1/sync", "", map[string]string{"X-API-Key": "secret"})
			if w.Code != tt.want {
				t.Errorf("status: got %d, want %d", w.Code, tt.want)
			}
			if resp.Success || resp.Error == nil {
				t.Errorf("response: got %+v", resp)
			}
		})
	}
}

func TestSync_InvalidBody(t *testing.T) {
	svc := &fakeSyncer{}
	r := NewRouter(svc, testRouterConfig(), time.Now())

	for _, body := range []string{`{"timeout":9999}`, `{"start_url":"not a url"}`, `{`} {
		w, resp := do(t, r, http.MethodPost, "/api/v1/sync", body, map[string]string{"X-API-Key": "secret"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d", body, w.Code)
		}
		if resp.Error == nil || resp.Error.Code != models.ErrCodeInvalidInput {
			t.Errorf("%s: error %+v", body, resp.Error)
		}
	}
	if svc.got != nil {
		t.Error("syncer must not run on invalid input")
	}
}

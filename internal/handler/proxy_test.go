package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"console-http-go/internal/client"
	"console-http-go/internal/config"
	"console-http-go/internal/service"
)

func testConfig(prefix, target string) *config.Config {
	return &config.Config{
		Proxy: config.ProxyConfig{
			Profile: config.ProfileDev,
			Profiles: map[string]config.ProfileConfig{
				config.ProfileDev: {
					Prefix:          prefix,
					Target:          target,
					TimeoutSeconds:  10,
					IdleConnections: 10,
				},
			},
		},
		Metrics: config.MetricsConfig{Path: "/metrics"},
	}
}

func newTestProxyHandler(t *testing.T, cfg *config.Config) *ProxyHandler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uc := client.NewUpstreamClient(cfg, logger, nil)
	svc, err := service.NewProxyService(uc, cfg, logger)
	if err != nil {
		t.Fatalf("NewProxyService: %v", err)
	}
	return NewProxyHandler(svc, logger)
}

func TestProxyHandler_Handle_StripsPrefix(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sys/user/info" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/sys/user/info")
		}
		if r.Header.Get("X-Access-Token") != "tok" {
			t.Errorf("X-Access-Token = %q, want %q", r.Header.Get("X-Access-Token"), "tok")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":0,"message":"ok"}`))
	}))
	defer upstream.Close()

	h := newTestProxyHandler(t, testConfig("/api", upstream.URL))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/sys/user/info?t=1", http.NoBody)
	req.Header.Set("X-Access-Token", "tok")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Handle(c); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["message"] != "ok" {
		t.Errorf("body.message = %v, want %q", body["message"], "ok")
	}
}

func TestProxyHandler_Handle_UpstreamStatusPassesThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":2,"message":"token expired"}`))
	}))
	defer upstream.Close()

	h := newTestProxyHandler(t, testConfig("/api", upstream.URL))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/sys/user/info", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Handle(c); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(rec.Body.String(), `"status":2`) {
		t.Errorf("body = %q, want upstream payload", rec.Body.String())
	}
}

func TestProxyHandler_Handle_MissingTarget(t *testing.T) {
	h := newTestProxyHandler(t, testConfig("/api", ""))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/sys/user/info", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Handle(c); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected non-empty error message in response")
	}
	if body["profile"] != config.ProfileDev {
		t.Errorf("profile = %q, want %q", body["profile"], config.ProfileDev)
	}
}

func TestProxyHandler_Handle_POST(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"received":` + string(body) + `}`))
	}))
	defer upstream.Close()

	h := newTestProxyHandler(t, testConfig("/api/console", upstream.URL))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/console/sys/login", strings.NewReader(`{"username":"admin"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Handle(c); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"username":"admin"`) {
		t.Errorf("body = %q, want echoed payload", rec.Body.String())
	}
}

func TestProxyHandler_Handle_CanceledContext(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer upstream.Close()

	h := newTestProxyHandler(t, testConfig("/api", upstream.URL))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/sys/user/info", http.NoBody)
	ctx, cancel := context.WithCancel(req.Context())
	cancel()
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Handle(c); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if rec.Code == http.StatusOK {
		t.Error("expected non-200 status for canceled context")
	}
}

type timeoutError struct{}

func (timeoutError) Error() string { return "read tcp: i/o timeout" }
func (timeoutError) Timeout() bool { return true }

func TestProxyHandler_mapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing target",
			err:        service.ErrMissingTarget,
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "no proxy target configured",
		},
		{
			name:       "deadline",
			err:        fmt.Errorf("forward to upstream: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantError:  "console back end timed out",
		},
		{
			name:       "canceled",
			err:        fmt.Errorf("forward to upstream: %w", context.Canceled),
			wantStatus: http.StatusBadGateway,
			wantError:  "client disconnected",
		},
		{
			name:       "dns",
			err:        fmt.Errorf("forward to upstream: %w", &net.DNSError{Err: "no such host", Name: "console.internal"}),
			wantStatus: http.StatusBadGateway,
			wantError:  "console back end host not found",
		},
		{
			name:       "url timeout",
			err:        &url.Error{Op: "Get", URL: "http://console.internal/sys", Err: timeoutError{}},
			wantStatus: http.StatusGatewayTimeout,
			wantError:  "console back end timed out",
		},
		{
			name:       "url error",
			err:        fmt.Errorf("forward to upstream: %w", &url.Error{Op: "Get", URL: "http://console.internal/sys", Err: fmt.Errorf("connection refused")}),
			wantStatus: http.StatusBadGateway,
			wantError:  "console back end unreachable",
		},
		{
			name:       "other",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusBadGateway,
			wantError:  "console back end request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &ProxyHandler{profile: config.ProfileConsole, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/api/sys/user/info", http.NoBody)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := h.mapError(c, tt.err); err != nil {
				t.Fatalf("mapError() returned error: %v", err)
			}

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body["error"] != tt.wantError {
				t.Errorf("error = %q, want %q", body["error"], tt.wantError)
			}
			if body["profile"] != config.ProfileConsole {
				t.Errorf("profile = %q, want %q", body["profile"], config.ProfileConsole)
			}
		})
	}
}

func TestProxyHandler_Handle_EventStreamFlushes(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("data: one\n\n"))
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("data: two\n\n"))
	}))
	defer upstream.Close()

	h := newTestProxyHandler(t, testConfig("/api", upstream.URL))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/sys/events", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Handle(c); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if !rec.Flushed {
		t.Error("event stream was not flushed")
	}
	if got, want := rec.Body.String(), "data: one\n\ndata: two\n\n"; got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestProxyHandler_Handle_PlainBodyNotFlushed(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":0}`))
	}))
	defer upstream.Close()

	h := newTestProxyHandler(t, testConfig("/api", upstream.URL))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/sys/dict", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Handle(c); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if rec.Flushed {
		t.Error("plain body was flushed")
	}
}

func TestSanitizeError(t *testing.T) {
	tests := []struct {
		name string
		err  string
		want string
	}{
		{
			name: "redacts token in URL",
			err:  `Get "http://console.internal/sys/file?token=secret123&id=4": connection refused`,
			want: `Get "http://console.internal/sys/file?token=[REDACTED]&id=4": connection refused`,
		},
		{
			name: "redacts access_token at end of URL",
			err:  `Get "http://console.internal/export?access_token=secret123": EOF`,
			want: `Get "http://console.internal/export?access_token=[REDACTED]": EOF`,
		},
		{
			name: "no token unchanged",
			err:  "connection refused",
			want: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeError(fmt.Errorf("%s", tt.err))
			if got != tt.want {
				t.Errorf("sanitizeError() = %q, want %q", got, tt.want)
			}
		})
	}
}

package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/wesm/photogrid/internal/config"
	"github.com/wesm/photogrid/internal/feed/feedtest"
	"github.com/wesm/photogrid/internal/grid"
)

// testLogger returns a logger for tests that discards output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockScheduler implements JobScheduler for tests.
type mockScheduler struct {
	running  bool
	statuses []JobStatus
}

func (m *mockScheduler) Status() []JobStatus { return m.statuses }
func (m *mockScheduler) IsRunning() bool     { return m.running }

func testConfig() *config.Config {
	return config.Defaults("")
}

// newTestServer builds a server whose grids use 300-wide columns, so a
// 1200-wide viewport has 4 columns.
func newTestServer(t *testing.T, cfg *config.Config, repo *feedtest.MockRepository, sched JobScheduler) *Server {
	t.Helper()
	sessions := NewSessionStore(repo, SessionStoreOptions{
		Grid:   grid.Config{ColumnWidth: 300, RowHeight: 470},
		Logger: testLogger(),
	})
	srv := NewServer(cfg, sessions, repo, sched, testLogger())
	t.Cleanup(func() {
		srv.rateLimiter.Close()
		sessions.Close()
	})
	return srv
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig(), &feedtest.MockRepository{}, nil)

	w := doRequest(t, srv, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody[map[string]any](t, w)
	if resp["status"] != "ok" {
		t.Errorf("health status = %v, want 'ok'", resp["status"])
	}
	if resp["sessions"] != float64(0) {
		t.Errorf("sessions = %v, want 0", resp["sessions"])
	}
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Server.APIKey = "secret-key"
	srv := newTestServer(t, cfg, &feedtest.MockRepository{}, &mockScheduler{running: true})

	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
	}{
		{"no auth", "", "", http.StatusUnauthorized},
		{"wrong key", "Authorization", "wrong-key", http.StatusUnauthorized},
		{"correct key", "Authorization", "secret-key", http.StatusOK},
		{"bearer prefix", "Authorization", "Bearer secret-key", http.StatusOK},
		{"x-api-key header", "X-API-Key", "secret-key", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/scheduler/status", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()

			srv.Router().ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestHealthSkipsAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Server.APIKey = "secret-key"
	srv := newTestServer(t, cfg, &feedtest.MockRepository{}, nil)

	if w := doRequest(t, srv, "GET", "/health", nil); w.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestSchedulerStatusEndpoint(t *testing.T) {
	sched := &mockScheduler{
		running: true,
		statuses: []JobStatus{{
			Name:     "sweep-sessions",
			Schedule: "@every 5m",
			NextRun:  time.Now().Add(5 * time.Minute),
		}},
	}
	srv := newTestServer(t, testConfig(), &feedtest.MockRepository{}, sched)

	w := doRequest(t, srv, "GET", "/api/v1/scheduler/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody[SchedulerStatusResponse](t, w)
	if !resp.Running {
		t.Error("Running = false, want true")
	}
	if len(resp.Jobs) != 1 || resp.Jobs[0].Name != "sweep-sessions" {
		t.Errorf("Jobs = %+v", resp.Jobs)
	}
}

func TestSchedulerStatusWithoutScheduler(t *testing.T) {
	srv := newTestServer(t, testConfig(), &feedtest.MockRepository{}, nil)

	w := doRequest(t, srv, "GET", "/api/v1/scheduler/status", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestStartRefusesInsecureBind(t *testing.T) {
	cfg := testConfig()
	cfg.Server.BindAddr = "0.0.0.0"
	srv := newTestServer(t, cfg, &feedtest.MockRepository{}, nil)

	if err := srv.Start(); err == nil {
		t.Error("Start() on a public address without api_key = nil, want error")
	}
}

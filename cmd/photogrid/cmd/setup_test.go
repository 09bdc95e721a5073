package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"

	"github.com/wesm/photogrid/internal/config"
)

// useFakeUnsplash points the package-level config at an httptest server
// running handler and restores the previous config when the test ends.
// Tests using it must not call t.Parallel().
func useFakeUnsplash(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	savedCfg, savedLogger := cfg, logger
	t.Cleanup(func() { cfg, logger = savedCfg, savedLogger })

	cfg = config.Defaults(t.TempDir())
	cfg.Unsplash.AccessKey = "test-key"
	cfg.Unsplash.BaseURL = srv.URL
	cfg.Unsplash.RateLimitQPS = 0
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestCommand returns a bare command whose output is captured in the
// returned buffer.
func newTestCommand() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	c := &cobra.Command{Use: "test"}
	c.SetContext(context.Background())
	c.SetOut(&buf)
	return c, &buf
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

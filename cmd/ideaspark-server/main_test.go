package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"ideaspark/internal/config"
	"ideaspark/internal/llm"

	"github.com/rs/zerolog"
)

func TestNewServiceWithoutCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.BaseDir = t.TempDir()
	cfg.Server.MetadataFile = filepath.Join(cfg.Storage.BaseDir, "meta.json")

	h := newService(cfg, func(string) string { return "" }, llm.NewHeuristicTokenizer(), zerolog.Nop()).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/get-all-subreddits", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("catalog status=%d body=%s", rec.Code, rec.Body.String())
	}
}

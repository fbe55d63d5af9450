package backend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tndg16-bot/ai-writing-automation/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_Local(t *testing.T) {
	cfg := config.Defaults()
	cfg.Backend = config.BackendLocal
	cfg.LocalOutputDir = t.TempDir()
	cfg.RateLimitCalls = 7

	b, err := New(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Local == nil || b.Google != nil {
		t.Fatalf("expected local backend, got %+v", b)
	}
	if b.Client == nil {
		t.Fatal("expected client")
	}
	if n, _ := b.Limiter.Limit(); n != 7 {
		t.Errorf("expected limiter with 7 calls, got %d", n)
	}
}

func TestNew_Google(t *testing.T) {
	token := filepath.Join(t.TempDir(), "token.json")
	data, _ := json.Marshal(map[string]any{
		"token":         "access",
		"refresh_token": "refresh",
		"expiry":        time.Now().Add(time.Hour).UTC().Format(time.RFC3339Nano),
	})
	if err := os.WriteFile(token, data, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := config.Defaults()
	cfg.GoogleTokenFile = token

	b, err := New(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Google == nil {
		t.Fatal("expected google client")
	}
	if b.Google.Limiter() != b.Limiter {
		t.Error("expected the google client to share the backend limiter")
	}
}

func TestNew_Errors(t *testing.T) {
	cfg := config.Defaults()
	cfg.GoogleTokenFile = filepath.Join(t.TempDir(), "missing.json")
	if _, err := New(context.Background(), cfg, discardLogger()); err == nil {
		t.Error("expected error for missing token file")
	}

	cfg.Backend = "dropbox"
	if _, err := New(context.Background(), cfg, discardLogger()); err == nil {
		t.Error("expected error for unknown backend")
	}
}

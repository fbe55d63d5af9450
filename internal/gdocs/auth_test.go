package gdocs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func writeToken(t *testing.T, tf tokenFile) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token.json")
	data, _ := json.Marshal(tf)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTokenSource_ValidTokenNoRefresh(t *testing.T) {
	path := writeToken(t, tokenFile{
		Token:  "access-1",
		Expiry: time.Now().Add(time.Hour).UTC().Format(time.RFC3339Nano),
	})
	ts, err := TokenSource(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AccessToken != "access-1" {
		t.Errorf("expected access-1, got %q", tok.AccessToken)
	}
}

func TestTokenSource_RefreshesAndPersists(t *testing.T) {
	var refreshes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		r.ParseForm()
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh-1" {
			http.Error(w, "bad grant", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-2",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	path := writeToken(t, tokenFile{
		Token:        "stale",
		RefreshToken: "refresh-1",
		TokenURI:     srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		Expiry:       time.Now().Add(-time.Hour).UTC().Format(time.RFC3339Nano),
	})
	ts, err := TokenSource(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if tok.AccessToken != "access-2" {
		t.Errorf("expected refreshed token, got %q", tok.AccessToken)
	}
	if _, err := ts.Token(); err != nil {
		t.Fatal(err)
	}
	if refreshes.Load() != 1 {
		t.Errorf("expected one refresh, got %d", refreshes.Load())
	}

	saved, err := loadTokenFile(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if saved.Token != "access-2" || saved.RefreshToken != "refresh-1" || saved.ClientID != "client" {
		t.Errorf("unexpected saved token %+v", saved)
	}
	if saved.Expiry == "" {
		t.Error("expected expiry to be saved")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
}

func TestLoadTokenFile_Defaults(t *testing.T) {
	path := writeToken(t, tokenFile{RefreshToken: "r"})
	tf, err := loadTokenFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tf.TokenURI != defaultTokenURI {
		t.Errorf("expected default token URI, got %q", tf.TokenURI)
	}
	if len(tf.Scopes) != len(DefaultScopes) {
		t.Errorf("expected default scopes, got %v", tf.Scopes)
	}
	if !tf.oauthToken().Expiry.Before(time.Now()) {
		t.Error("expected a token without access token to be expired")
	}
}

func TestLoadTokenFile_Errors(t *testing.T) {
	if _, err := loadTokenFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := loadTokenFile(writeToken(t, tokenFile{ClientID: "x"})); err == nil {
		t.Error("expected error for token file without tokens")
	}
}

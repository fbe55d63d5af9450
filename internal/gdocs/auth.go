package gdocs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// DefaultScopes grant document editing and Drive uploads.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/documents",
	"https://www.googleapis.com/auth/drive",
}

const defaultTokenURI = "https://oauth2.googleapis.com/token"

// tokenFile is the on-disk credential format shared with the Python
// google-auth library.
type tokenFile struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	Expiry       string   `json:"expiry,omitempty"`
}

func loadTokenFile(path string) (*tokenFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("decode token file %s: %w", path, err)
	}
	if tf.TokenURI == "" {
		tf.TokenURI = defaultTokenURI
	}
	if len(tf.Scopes) == 0 {
		tf.Scopes = DefaultScopes
	}
	if tf.Token == "" && tf.RefreshToken == "" {
		return nil, fmt.Errorf("token file %s has neither an access nor a refresh token", path)
	}
	return &tf, nil
}

func (tf *tokenFile) oauthToken() *oauth2.Token {
	tok := &oauth2.Token{AccessToken: tf.Token, RefreshToken: tf.RefreshToken, TokenType: "Bearer"}
	if tf.Expiry != "" {
		if t, err := time.Parse(time.RFC3339Nano, tf.Expiry); err == nil {
			tok.Expiry = t
		}
	}
	if tok.AccessToken == "" {
		// Force a refresh on first use.
		tok.Expiry = time.Unix(1, 0)
	}
	return tok
}

// writeTokenFile replaces path atomically.
func writeTokenFile(path string, tf *tokenFile) error {
	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".token-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// persistingSource writes every newly issued access token back to disk.
type persistingSource struct {
	mu   sync.Mutex
	src  oauth2.TokenSource
	path string
	file tokenFile
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken == p.file.Token {
		return tok, nil
	}
	p.file.Token = tok.AccessToken
	if tok.RefreshToken != "" {
		p.file.RefreshToken = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		p.file.Expiry = tok.Expiry.UTC().Format(time.RFC3339Nano)
	}
	if err := writeTokenFile(p.path, &p.file); err != nil {
		return nil, fmt.Errorf("save refreshed token: %w", err)
	}
	return tok, nil
}

// TokenSource reads a token file and returns a source that refreshes the
// access token when it expires and saves refreshed tokens to the same file.
func TokenSource(ctx context.Context, path string) (oauth2.TokenSource, error) {
	tf, err := loadTokenFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &oauth2.Config{
		ClientID:     tf.ClientID,
		ClientSecret: tf.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tf.TokenURI},
		Scopes:       tf.Scopes,
	}
	src := &persistingSource{
		src:  cfg.TokenSource(ctx, tf.oauthToken()),
		path: path,
		file: *tf,
	}
	return oauth2.ReuseTokenSource(nil, src), nil
}

// HTTPClient returns an HTTP client authorized by the token file.
func HTTPClient(ctx context.Context, path string) (*http.Client, error) {
	ts, err := TokenSource(ctx, path)
	if err != nil {
		return nil, err
	}
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = 60 * time.Second
	return hc, nil
}

// Package gdocs is the Google Docs backend: document edits go through the
// Docs v1 batchUpdate API and images are staged in Drive.
package gdocs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tndg16-bot/ai-writing-automation/internal/docs"
	"github.com/tndg16-bot/ai-writing-automation/internal/ratelimit"
	"github.com/tndg16-bot/ai-writing-automation/internal/retry"
	"github.com/tndg16-bot/ai-writing-automation/internal/stats"
)

const (
	DefaultDocsURL   = "https://docs.googleapis.com"
	DefaultDriveURL  = "https://www.googleapis.com"
	DefaultUploadURL = "https://www.googleapis.com/upload"
)

// Options configures a Client. Zero values fall back to the Google
// endpoints, a default limiter and the default retry policies.
type Options struct {
	DocsURL   string
	DriveURL  string
	UploadURL string

	// FolderID, if set, is the Drive folder new documents are moved to.
	FolderID string

	Limiter     *ratelimit.Limiter
	DocPolicy   retry.Policy
	MediaPolicy retry.Policy
	Stats       *stats.Recorder
	Log         *slog.Logger
}

// Client talks to Google Docs and Drive. It implements docs.Client.
// The limiter is shared by every call the client makes.
type Client struct {
	httpClient *http.Client
	opts       Options
	log        *slog.Logger
}

var _ docs.Client = (*Client)(nil)

// New wraps an authorized HTTP client, usually one from TokenSource.
func New(httpClient *http.Client, opts Options) *Client {
	if opts.DocsURL == "" {
		opts.DocsURL = DefaultDocsURL
	}
	if opts.DriveURL == "" {
		opts.DriveURL = DefaultDriveURL
	}
	if opts.UploadURL == "" {
		opts.UploadURL = DefaultUploadURL
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.New(ratelimit.DefaultMaxCalls, ratelimit.DefaultPeriod)
	}
	if opts.DocPolicy.MaxAttempts == 0 {
		opts.DocPolicy = retry.DocumentPolicy()
	}
	if opts.MediaPolicy.MaxAttempts == 0 {
		opts.MediaPolicy = retry.MediaPolicy()
	}
	log := opts.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{httpClient: httpClient, opts: opts, log: log}
}

// Limiter returns the client's rate limiter.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.opts.Limiter
}

// StatusError is a non-2xx response that is not worth retrying.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// call runs one remote operation: every attempt waits on the limiter, and
// the final error is reported as a docs.APIError.
func (c *Client) call(ctx context.Context, policy retry.Policy, op, docID string, fn func(context.Context) error) error {
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.log.Warn("retrying docs call", "op", op, "document_id", docID, "attempt", attempt+1, "delay", delay.String(), "error", err)
	}
	start := time.Now()
	err := policy.Do(ctx, func(ctx context.Context) error {
		if err := c.opts.Limiter.Wait(ctx); err != nil {
			return err
		}
		return fn(ctx)
	})
	c.opts.Stats.Observe(op, time.Since(start), err)
	if err == nil {
		return nil
	}
	var apiErr *docs.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return &docs.APIError{Op: op, DocID: docID, Err: err}
}

// send issues one HTTP request and decodes a JSON response into out.
// 429, 5xx and transport failures come back as retry.TransientError.
func (c *Client) send(ctx context.Context, method, rawURL, contentType string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &retry.TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return &retry.TransientError{StatusCode: resp.StatusCode, Message: string(respBody)}
		}
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, method, rawURL string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}
	return c.send(ctx, method, rawURL, "application/json", body, out)
}

func (c *Client) Create(ctx context.Context, title string) (string, error) {
	var docID string
	err := c.call(ctx, c.opts.DocPolicy, "create", "", func(ctx context.Context) error {
		var resp struct {
			DocumentID string `json:"documentId"`
		}
		if err := c.sendJSON(ctx, http.MethodPost, c.opts.DocsURL+"/v1/documents", map[string]string{"title": title}, &resp); err != nil {
			return err
		}
		if resp.DocumentID == "" {
			return &docs.APIError{Op: "create", Err: docs.ErrNoDocumentID}
		}
		docID = resp.DocumentID
		return nil
	})
	if err != nil {
		return "", err
	}
	c.log.Info("google document created", "document_id", docID)

	if c.opts.FolderID != "" {
		if err := c.moveToFolder(ctx, docID, c.opts.FolderID); err != nil {
			c.log.Warn("move to folder failed", "document_id", docID, "folder_id", c.opts.FolderID, "error", err)
		}
	}
	return docID, nil
}

func (c *Client) moveToFolder(ctx context.Context, docID, folderID string) error {
	q := url.Values{"addParents": {folderID}, "removeParents": {"root"}, "fields": {"id,parents"}}
	u := fmt.Sprintf("%s/drive/v3/files/%s?%s", c.opts.DriveURL, url.PathEscape(docID), q.Encode())
	return c.call(ctx, c.opts.DocPolicy, "move", docID, func(ctx context.Context) error {
		return c.sendJSON(ctx, http.MethodPatch, u, map[string]any{}, nil)
	})
}

// batchUpdate applies requests to a document in one call.
func (c *Client) batchUpdate(ctx context.Context, op, docID string, requests ...map[string]any) error {
	u := fmt.Sprintf("%s/v1/documents/%s:batchUpdate", c.opts.DocsURL, url.PathEscape(docID))
	body := map[string]any{"requests": requests}
	return c.call(ctx, c.opts.DocPolicy, op, docID, func(ctx context.Context) error {
		return c.sendJSON(ctx, http.MethodPost, u, body, nil)
	})
}

func (c *Client) InsertText(ctx context.Context, docID, text string, offset int) error {
	if text == "" {
		return nil
	}
	return c.batchUpdate(ctx, "insert_text", docID, map[string]any{
		"insertText": map[string]any{
			"location": map[string]int{"index": offset},
			"text":     text,
		},
	})
}

func (c *Client) ApplyHeadingStyle(ctx context.Context, docID string, start, end, level int) error {
	if err := docs.ValidateHeadingLevel(docID, level); err != nil {
		return err
	}
	return c.batchUpdate(ctx, "apply_heading_style", docID, map[string]any{
		"updateParagraphStyle": map[string]any{
			"range":          map[string]int{"startIndex": start, "endIndex": end},
			"paragraphStyle": map[string]string{"namedStyleType": fmt.Sprintf("HEADING_%d", level)},
			"fields":         "namedStyleType",
		},
	})
}

// URL is the edit link of a Google document.
func (c *Client) URL(docID string) string {
	return fmt.Sprintf("https://docs.google.com/document/d/%s/edit", docID)
}

// Share grants email a role on the document.
func (c *Client) Share(ctx context.Context, docID, email, role string, notify bool) error {
	if role == "" {
		role = "writer"
	}
	q := url.Values{"sendNotificationEmail": {fmt.Sprint(notify)}}
	u := fmt.Sprintf("%s/drive/v3/files/%s/permissions?%s", c.opts.DriveURL, url.PathEscape(docID), q.Encode())
	body := map[string]string{"type": "user", "role": role, "emailAddress": email}
	return c.call(ctx, c.opts.DocPolicy, "share", docID, func(ctx context.Context) error {
		return c.sendJSON(ctx, http.MethodPost, u, body, nil)
	})
}

// Delete permanently removes a document from Drive.
func (c *Client) Delete(ctx context.Context, docID string) error {
	u := fmt.Sprintf("%s/drive/v3/files/%s", c.opts.DriveURL, url.PathEscape(docID))
	return c.call(ctx, c.opts.DocPolicy, "delete", docID, func(ctx context.Context) error {
		return c.send(ctx, http.MethodDelete, u, "", nil, nil)
	})
}

// Package backend builds the document client selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tndg16-bot/ai-writing-automation/internal/config"
	"github.com/tndg16-bot/ai-writing-automation/internal/docs"
	"github.com/tndg16-bot/ai-writing-automation/internal/gdocs"
	"github.com/tndg16-bot/ai-writing-automation/internal/localdoc"
	"github.com/tndg16-bot/ai-writing-automation/internal/ratelimit"
	"github.com/tndg16-bot/ai-writing-automation/internal/stats"
)

// Backend is a document client plus the shared pieces built alongside it.
type Backend struct {
	Client  docs.Client
	Limiter *ratelimit.Limiter
	Stats   *stats.Recorder

	// Google is set for the google backend, Local for the local one.
	Google *gdocs.Client
	Local  *localdoc.Store
}

// New builds the backend named by cfg.Backend. One limiter is shared by
// every document rendered through the returned client.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*Backend, error) {
	b := &Backend{
		Limiter: ratelimit.New(cfg.RateLimitCalls, cfg.RateLimitPeriod),
		Stats:   stats.NewRecorder(15 * time.Minute),
	}
	switch cfg.Backend {
	case config.BackendGoogle:
		hc, err := gdocs.HTTPClient(ctx, cfg.GoogleTokenFile)
		if err != nil {
			return nil, fmt.Errorf("google credentials: %w", err)
		}
		b.Google = gdocs.New(hc, gdocs.Options{
			FolderID:    cfg.DriveFolderID,
			Limiter:     b.Limiter,
			DocPolicy:   cfg.DocumentPolicy(),
			MediaPolicy: cfg.MediaPolicy(),
			Stats:       b.Stats,
			Log:         log.With("backend", config.BackendGoogle),
		})
		b.Client = b.Google
	case config.BackendLocal:
		b.Local = localdoc.New(cfg.LocalOutputDir, log.With("backend", config.BackendLocal))
		b.Client = b.Local
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	log.Info("document backend ready", "backend", cfg.Backend,
		"rate_limit_calls", cfg.RateLimitCalls, "rate_limit_period", cfg.RateLimitPeriod.String())
	return b, nil
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tndg16-bot/ai-writing-automation/internal/api"
	"github.com/tndg16-bot/ai-writing-automation/internal/backend"
	"github.com/tndg16-bot/ai-writing-automation/internal/config"
	"github.com/tndg16-bot/ai-writing-automation/internal/docs"
	"github.com/tndg16-bot/ai-writing-automation/internal/history"
	"github.com/tndg16-bot/ai-writing-automation/internal/pipeline"
	"github.com/tndg16-bot/ai-writing-automation/internal/tmpl"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	be, err := backend.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize backend", "error", err)
		os.Exit(1)
	}
	engine, err := tmpl.New(cfg.TemplateDir)
	if err != nil {
		log.Error("failed to initialize templates", "error", err)
		os.Exit(1)
	}
	hist, err := history.Open(cfg.HistoryDB)
	if err != nil {
		log.Error("failed to open history", "error", err)
		os.Exit(1)
	}

	// Initialize pipeline.
	renderer := docs.NewRenderer(engine, be.Client, log)
	orch := pipeline.NewOrchestrator(cfg, renderer, be.Client, hist, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, api.Deps{
		Templates: engine,
		History:   hist,
		Limiter:   be.Limiter,
		Stats:     be.Stats,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		hist.Close()
	}()

	log.Info("starting docrender", "port", cfg.Port, "backend", cfg.Backend, "templates", engine.Dir())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

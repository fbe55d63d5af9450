package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tndg16-bot/ai-writing-automation/internal/config"
	"github.com/tndg16-bot/ai-writing-automation/internal/history"
	"github.com/tndg16-bot/ai-writing-automation/internal/pipeline"
	"github.com/tndg16-bot/ai-writing-automation/internal/ratelimit"
	"github.com/tndg16-bot/ai-writing-automation/internal/stats"
	"github.com/tndg16-bot/ai-writing-automation/internal/tmpl"
)

// Deps are the components the handlers read from besides the orchestrator.
// History, Limiter and Stats may be nil.
type Deps struct {
	Templates *tmpl.Engine
	History   *history.Store
	Limiter   *ratelimit.Limiter
	Stats     *stats.Recorder
}

// Server is the HTTP API server for docrender.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	deps         Deps
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		deps:         deps,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/render", s.handleRender)
		r.Get("/api/render/{jobID}/status", s.handleRenderStatus)

		r.Get("/api/templates", s.handleListTemplates)
		r.Post("/api/templates/{name}/preview", s.handlePreview)

		r.Get("/api/history", s.handleListHistory)
		r.Get("/api/history/{id}", s.handleGetHistory)
		r.Delete("/api/history/{id}", s.handleDeleteHistory)

		r.Get("/api/stats/docs", s.handleDocStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

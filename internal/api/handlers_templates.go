package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tndg16-bot/ai-writing-automation/internal/tmpl"
)

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	if s.deps.Templates == nil {
		jsonError(w, "templates unavailable", http.StatusServiceUnavailable)
		return
	}
	names, err := s.deps.Templates.List()
	if err != nil {
		jsonError(w, "failed to list templates: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": names})
}

// handlePreview renders a template against a context and returns the
// parsed section tree without touching any document backend.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	name, ok := sanitizeTemplateName(chi.URLParam(r, "name"))
	if !ok {
		jsonError(w, "invalid template name", http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req struct {
		Context map[string]any `json:"context"`
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Context == nil {
		req.Context = map[string]any{}
	}

	tpl, err := s.orchestrator.Renderer().Parse(req.Context, name)
	if err != nil {
		code := http.StatusUnprocessableEntity
		if tmpl.IsKind(err, tmpl.KindNotFound) {
			code = http.StatusNotFound
		}
		jsonError(w, err.Error(), code)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"template": name,
		"document": tpl,
	})
}

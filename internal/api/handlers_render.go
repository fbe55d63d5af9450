package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tndg16-bot/ai-writing-automation/internal/pipeline"
)

type renderRequest struct {
	Template  string         `json:"template"`
	Context   map[string]any `json:"context"`
	ShareWith []string       `json:"share_with"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req renderRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	name, ok := sanitizeTemplateName(req.Template)
	if !ok {
		jsonError(w, "template is required", http.StatusBadRequest)
		return
	}
	for _, addr := range req.ShareWith {
		if _, err := mail.ParseAddress(addr); err != nil {
			jsonError(w, fmt.Sprintf("invalid share_with address %q", addr), http.StatusBadRequest)
			return
		}
	}

	job := pipeline.NewJob(name, req.Context, req.ShareWith)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("render queued", "job_id", job.ID, "template", name)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/render/%s/status", job.ID),
	})
}

func (s *Server) handleRenderStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// sanitizeTemplateName cleans a template name from a request and appends
// .json when no extension is given. Names escaping the template directory
// are rejected.
func sanitizeTemplateName(name string) (string, bool) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return "", false
	}
	name = path.Clean(name)
	if strings.HasPrefix(name, "/") || name == ".." || strings.HasPrefix(name, "../") {
		return "", false
	}
	if path.Ext(name) == "" {
		name += ".json"
	}
	return name, true
}

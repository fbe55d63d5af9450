package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tndg16-bot/ai-writing-automation/internal/history"
	"github.com/tndg16-bot/ai-writing-automation/internal/pipeline"
)

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		jsonError(w, "history unavailable", http.StatusServiceUnavailable)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, 500)
	}
	entries, err := s.deps.History.List(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"renders": entries})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		jsonError(w, "history unavailable", http.StatusServiceUnavailable)
		return
	}
	e, err := s.deps.History.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, history.ErrNotFound) {
		jsonError(w, "render not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleDeleteHistory removes a history entry. With ?document=true the
// rendered document is deleted from the backend first.
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		jsonError(w, "history unavailable", http.StatusServiceUnavailable)
		return
	}
	id := chi.URLParam(r, "id")
	if r.URL.Query().Get("document") == "true" {
		e, err := s.deps.History.Get(r.Context(), id)
		if errors.Is(err, history.ErrNotFound) {
			jsonError(w, "render not found", http.StatusNotFound)
			return
		}
		if err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if e.DocumentID != "" {
			err := s.orchestrator.DeleteDocument(r.Context(), e.DocumentID)
			if errors.Is(err, pipeline.ErrDeleteUnsupported) {
				jsonError(w, err.Error(), http.StatusNotImplemented)
				return
			}
			if err != nil {
				jsonError(w, "failed to delete document: "+err.Error(), http.StatusBadGateway)
				return
			}
		}
	}
	if err := s.deps.History.Delete(r.Context(), id); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

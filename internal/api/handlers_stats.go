package api

import (
	"net/http"
)

// handleDocStats reports remaining document-API quota and per-operation
// latency.
func (s *Server) handleDocStats(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
	}
	if l := s.deps.Limiter; l != nil {
		maxCalls, period := l.Limit()
		out["rate_limit"] = map[string]any{
			"remaining": l.Remaining(),
			"max_calls": maxCalls,
			"period_s":  period.Seconds(),
		}
	}
	if s.deps.Stats != nil {
		out["stats"] = s.deps.Stats.Snapshot()
	}
	writeJSON(w, http.StatusOK, out)
}

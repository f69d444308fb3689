package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/sergeeey/verifind/internal/store"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSystem reports host load, useful when correlating slow runs with
// resource pressure.
func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"time": time.Now().UTC().Format(time.RFC3339),
	}

	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		payload["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		payload["mem_used_percent"] = vm.UsedPercent
		payload["mem_total_bytes"] = vm.Total
	}

	s.respondJSON(w, http.StatusOK, payload)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	runs, err := s.runs.List(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list runs")
		s.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	safe := make([]*store.StoredRun, 0, len(runs))
	for _, run := range runs {
		safe = append(safe, run.JSONSafe())
	}
	s.respondJSON(w, http.StatusOK, safe)
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.Latest()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load latest run")
		s.respondError(w, http.StatusInternalServerError, "failed to load latest run")
		return
	}
	if run == nil {
		s.respondError(w, http.StatusNotFound, "no runs recorded yet")
		return
	}
	s.respondJSON(w, http.StatusOK, run.JSONSafe())
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.runs.Get(id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	s.respondJSON(w, http.StatusOK, run.JSONSafe())
}

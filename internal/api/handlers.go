// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/panelkit/harmon/internal/jobs"
	"github.com/panelkit/harmon/internal/log"
	"github.com/panelkit/harmon/internal/store"
)

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
	})
}

type statusResponse struct {
	Refreshing bool         `json:"refreshing"`
	LastStatus *jobs.Status `json:"last_status,omitempty"`
	LastRun    *store.Run   `json:"last_run,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	st := s.status
	s.mu.RUnlock()

	resp := statusResponse{
		Refreshing: s.runner.InFlight(),
		LastStatus: st,
	}
	if s.db != nil {
		run, err := s.db.LatestRun(r.Context())
		switch {
		case errors.Is(err, store.ErrNotFound):
			// no runs yet
		case err != nil:
			writeError(w, http.StatusInternalServerError, err)
			return
		default:
			resp.LastRun = run
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeNotFound(w)
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}
	runs, err := s.db.Runs(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeNotFound(w)
		return
	}
	summary, err := s.db.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscales": summary})
}

// handleRefresh triggers a pipeline run through the shared gate. Only one
// run may be in flight in the whole process; a trigger while one is
// running is rejected with 409.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	status, err := s.runner.TryRun(r.Context())
	if errors.Is(err, jobs.ErrRunInFlight) {
		logger.Warn().
			Str("event", "refresh.rejected").
			Msg("refresh already in progress")
		writeConflict(w, "refresh already in progress")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.SetStatus(status)
	writeJSON(w, http.StatusOK, status)
}

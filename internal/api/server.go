// SPDX-License-Identifier: MIT

// Package api exposes the harmonization daemon over HTTP: run status and
// history, panel summaries, manual refresh and artifact downloads.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/panelkit/harmon/internal/config"
	"github.com/panelkit/harmon/internal/jobs"
	"github.com/panelkit/harmon/internal/store"
)

// Refresher gates pipeline runs. Implemented by jobs.Runner; all triggers
// in the process share one instance so runs never overlap.
type Refresher interface {
	TryRun(ctx context.Context) (*jobs.Status, error)
	InFlight() bool
}

// Server handles HTTP traffic for the daemon.
type Server struct {
	mu        sync.RWMutex
	cfg       config.Config
	db        *store.Store
	runner    Refresher
	status    *jobs.Status
	startTime time.Time
}

// New constructs a Server. db may be nil when persistence is disabled.
func New(cfg config.Config, db *store.Store, runner Refresher) *Server {
	return &Server{
		cfg:       cfg,
		db:        db,
		runner:    runner,
		startTime: time.Now(),
	}
}

// SetStatus records the outcome of a pipeline run started outside the API,
// such as the initial run at daemon startup or a watcher-triggered run.
func (s *Server) SetStatus(st *jobs.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
}

// Router assembles the route tree with the middleware stack applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	if s.cfg.API.RateLimit > 0 {
		r.Use(httprate.Limit(
			s.cfg.API.RateLimit,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			}),
		))
	}

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/runs", s.handleRuns)
		r.Get("/summary", s.handleSummary)
		r.Post("/refresh", s.handleRefresh)
	})

	r.Handle("/files/*", http.StripPrefix("/files", s.secureFileServer()))
	return r
}

// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/panelkit/harmon/internal/config"
	"github.com/panelkit/harmon/internal/metrics"
	"github.com/panelkit/harmon/internal/store"
)

// ErrRunInFlight is returned when a run is triggered while another is
// still executing.
var ErrRunInFlight = errors.New("jobs: run already in flight")

// Runner serializes pipeline runs. Artifact writes and the panel swap in
// the store assume a single writer, so every trigger — startup, watcher,
// API — must go through the same Runner; concurrent triggers are rejected,
// not queued.
type Runner struct {
	cfg     config.Config
	db      *store.Store
	running atomic.Bool

	// runFn allows tests to stub the pipeline; defaults to Run.
	runFn func(context.Context, config.Config, *store.Store) (*Status, error)
}

// NewRunner builds a Runner for the given configuration. db may be nil
// when persistence is disabled.
func NewRunner(cfg config.Config, db *store.Store) *Runner {
	return &Runner{cfg: cfg, db: db, runFn: Run}
}

// TryRun executes one pipeline run, or returns ErrRunInFlight when
// another run holds the gate.
func (r *Runner) TryRun(ctx context.Context) (*Status, error) {
	if !r.running.CompareAndSwap(false, true) {
		metrics.RecordRefreshRejected()
		return nil, ErrRunInFlight
	}
	defer r.running.Store(false)

	return r.runFn(ctx, r.cfg, r.db)
}

// InFlight reports whether a run is currently executing.
func (r *Runner) InFlight() bool {
	return r.running.Load()
}

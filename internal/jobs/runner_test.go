// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelkit/harmon/internal/config"
	"github.com/panelkit/harmon/internal/store"
)

func TestRunnerRejectsConcurrentTriggers(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	r := NewRunner(config.Defaults(), nil)
	r.runFn = func(ctx context.Context, cfg config.Config, db *store.Store) (*Status, error) {
		close(started)
		<-release
		return &Status{RunID: "first"}, nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var firstStatus *Status
	var firstErr error
	go func() {
		defer wg.Done()
		firstStatus, firstErr = r.TryRun(context.Background())
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first run did not start")
	}
	assert.True(t, r.InFlight())

	// A second trigger while the first holds the gate is rejected, not
	// queued.
	_, err := r.TryRun(context.Background())
	require.ErrorIs(t, err, ErrRunInFlight)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, "first", firstStatus.RunID)
	assert.False(t, r.InFlight())

	// The gate is released; the next trigger runs.
	r.runFn = func(ctx context.Context, cfg config.Config, db *store.Store) (*Status, error) {
		return &Status{RunID: "second"}, nil
	}
	st, err := r.TryRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", st.RunID)
}

func TestRunnerReleasesGateOnFailure(t *testing.T) {
	r := NewRunner(config.Defaults(), nil)
	r.runFn = func(ctx context.Context, cfg config.Config, db *store.Store) (*Status, error) {
		return nil, context.DeadlineExceeded
	}

	_, err := r.TryRun(context.Background())
	require.Error(t, err)
	assert.False(t, r.InFlight())
}

// SPDX-License-Identifier: MIT
package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "harmon.db"), DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndLoadRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r1 := Run{ID: "run-1", StartedAt: started, Outcome: "running"}
	require.NoError(t, s.SaveRun(ctx, r1))

	// finishing a run replaces its record
	r1.FinishedAt = started.Add(3 * time.Second)
	r1.Outcome = "success"
	r1.CHSRows, r1.NLSYRows, r1.MergedRows = 10, 40, 8
	require.NoError(t, s.SaveRun(ctx, r1))

	r2 := Run{ID: "run-2", StartedAt: started.Add(time.Minute), Outcome: "failure", Error: "boom"}
	require.NoError(t, s.SaveRun(ctx, r2))

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", latest.ID)
	assert.Equal(t, "boom", latest.Error)

	runs, err := s.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "run-1", runs[1].ID)
	assert.Equal(t, 8, runs[1].MergedRows)
	assert.True(t, runs[1].FinishedAt.Equal(started.Add(3*time.Second)))
}

func TestRunsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveRun(ctx, Run{
			ID:        string(rune('a' + i)),
			StartedAt: base.Add(time.Duration(i) * time.Second),
			Outcome:   "success",
		}))
	}

	runs, err := s.Runs(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestReplaceObservationsAndSummary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	obs := []Observation{
		{ChildID: 1, Year: 1990, Subscale: "anxiety",
			Age:  sql.NullInt64{Int64: 6, Valid: true},
			NLSY: sql.NullFloat64{Float64: 0.5, Valid: true},
			CHS:  sql.NullFloat64{Float64: 0.4, Valid: true}},
		{ChildID: 2, Year: 1990, Subscale: "anxiety",
			Age:  sql.NullInt64{Int64: 7, Valid: true},
			NLSY: sql.NullFloat64{Float64: 1, Valid: true}},
		{ChildID: 1, Year: 1990, Subscale: "peer",
			NLSY: sql.NullFloat64{Float64: 0, Valid: true},
			CHS:  sql.NullFloat64{Float64: 0.2, Valid: true}},
	}
	require.NoError(t, s.ReplaceObservations(ctx, obs))

	n, err := s.ObservationCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	summary, err := s.Summary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "anxiety", summary[0].Subscale)
	// counts and means skip the missing CHS score on child 2
	assert.Equal(t, 2, summary[0].NLSYN)
	assert.Equal(t, 1, summary[0].CHSN)
	assert.InDelta(t, 0.75, summary[0].NLSYMean, 1e-9)
	assert.InDelta(t, 0.4, summary[0].CHSMean, 1e-9)

	// a successful replace swaps the whole panel
	require.NoError(t, s.ReplaceObservations(ctx, obs[:1]))
	n, err = s.ObservationCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReplaceObservationsDuplicateKeyRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	good := []Observation{{ChildID: 1, Year: 1990, Subscale: "anxiety"}}
	require.NoError(t, s.ReplaceObservations(ctx, good))

	dup := []Observation{
		{ChildID: 2, Year: 1992, Subscale: "peer"},
		{ChildID: 2, Year: 1992, Subscale: "peer"},
	}
	require.Error(t, s.ReplaceObservations(ctx, dup))

	// the previous panel survived the failed replace
	n, err := s.ObservationCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

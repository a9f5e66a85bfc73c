// SPDX-License-Identifier: MIT

// Package jobs runs the harmonization pipeline end to end: extract the raw
// archive, clean both extracts against their dictionaries, merge the panels,
// persist the observations and write the CSV and chart artifacts.
package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/panelkit/harmon/internal/clean"
	"github.com/panelkit/harmon/internal/config"
	"github.com/panelkit/harmon/internal/extract"
	"github.com/panelkit/harmon/internal/frame"
	"github.com/panelkit/harmon/internal/log"
	"github.com/panelkit/harmon/internal/merge"
	"github.com/panelkit/harmon/internal/meta"
	"github.com/panelkit/harmon/internal/metrics"
	"github.com/panelkit/harmon/internal/plot"
	"github.com/panelkit/harmon/internal/store"
)

// Status summarizes one completed pipeline run.
type Status struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	CHSRows    int       `json:"chs_rows"`
	NLSYRows   int       `json:"nlsy_rows"`
	MergedRows int       `json:"merged_rows"`
	Subscales  []string  `json:"subscales"`
	Artifacts  []string  `json:"artifacts"`
}

// Run executes the full pipeline. The run is recorded in db when db is
// non-nil; artifacts land in cfg.DataDir atomically so readers never see a
// half-written panel.
func Run(ctx context.Context, cfg config.Config, db *store.Store) (*Status, error) {
	runID := uuid.NewString()
	ctx = log.ContextWithRunID(ctx, runID)
	logger := log.WithComponentFromContext(ctx, "jobs")

	started := time.Now()
	logger.Info().
		Str("event", "run.start").
		Str("data_dir", cfg.DataDir).
		Msg("starting pipeline run")

	if db != nil {
		rec := store.Run{ID: runID, StartedAt: started, Outcome: "running"}
		if err := db.SaveRun(ctx, rec); err != nil {
			return nil, err
		}
	}

	status, err := execute(ctx, cfg, db, runID)
	finished := time.Now()
	dur := finished.Sub(started)

	if err != nil {
		metrics.RecordRun("failure", dur)
		if db != nil {
			rec := store.Run{
				ID: runID, StartedAt: started, FinishedAt: finished,
				Outcome: "failure", Error: err.Error(),
			}
			if serr := db.SaveRun(ctx, rec); serr != nil {
				logger.Error().Err(serr).Str("event", "run.record_failed").Msg("could not record failed run")
			}
		}
		logger.Error().
			Err(err).
			Str("event", "run.failed").
			Dur("duration", dur).
			Msg("pipeline run failed")
		return nil, err
	}

	status.StartedAt = started
	status.FinishedAt = finished
	metrics.RecordRun("success", dur)
	if db != nil {
		rec := store.Run{
			ID: runID, StartedAt: started, FinishedAt: finished,
			Outcome: "success",
			CHSRows: status.CHSRows, NLSYRows: status.NLSYRows, MergedRows: status.MergedRows,
		}
		if serr := db.SaveRun(ctx, rec); serr != nil {
			logger.Error().Err(serr).Str("event", "run.record_failed").Msg("could not record successful run")
		}
	}

	logger.Info().
		Str("event", "run.success").
		Int("chs_rows", status.CHSRows).
		Int("nlsy_rows", status.NLSYRows).
		Int("merged_rows", status.MergedRows).
		Dur("duration", dur).
		Msg("pipeline run completed")
	return status, nil
}

func execute(ctx context.Context, cfg config.Config, db *store.Store, runID string) (*Status, error) {
	logger := log.WithComponentFromContext(ctx, "jobs")
	status := &Status{RunID: runID}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	if _, err := extract.Unzip(ctx, cfg.ArchivePath(), cfg.DataDir); err != nil {
		metrics.RecordStageFailure("extract")
		return nil, fmt.Errorf("extract: %w", err)
	}

	dict, err := meta.LoadDictionary(cfg.Meta.NLSY)
	if err != nil {
		metrics.RecordStageFailure("metadata")
		return nil, fmt.Errorf("nlsy dictionary: %w", err)
	}
	mapping, err := meta.LoadMapping(cfg.Meta.CHS)
	if err != nil {
		metrics.RecordStageFailure("metadata")
		return nil, fmt.Errorf("chs mapping: %w", err)
	}

	opts := clean.DefaultOptions()
	if len(cfg.MissingCodes) > 0 {
		opts.MissingCodes = cfg.MissingCodes
	}

	rawCHS, err := frame.ReadCSVFile(cfg.CHSExtractPath())
	if err != nil {
		metrics.RecordStageFailure("clean_chs")
		return nil, fmt.Errorf("read chs extract: %w", err)
	}
	chs, err := clean.CHS(ctx, rawCHS, mapping, opts)
	if err != nil {
		metrics.RecordStageFailure("clean_chs")
		return nil, fmt.Errorf("clean chs: %w", err)
	}
	status.CHSRows = chs.Len()
	metrics.SetRowsCleaned("chs", chs.Len())

	rawNLSY, err := frame.ReadCSVFile(cfg.NLSYExtractPath())
	if err != nil {
		metrics.RecordStageFailure("clean_nlsy")
		return nil, fmt.Errorf("read nlsy extract: %w", err)
	}
	waves := clean.WaveYears(cfg.Waves.Start, cfg.Waves.End)
	nlsy, err := clean.NLSY(ctx, rawNLSY, dict, waves, opts)
	if err != nil {
		metrics.RecordStageFailure("clean_nlsy")
		return nil, fmt.Errorf("clean nlsy: %w", err)
	}
	status.NLSYRows = nlsy.Len()
	metrics.SetRowsCleaned("nlsy", nlsy.Len())

	mergeOpts := merge.DefaultOptions()
	mergeOpts.AgeMin = cfg.Ages.Min
	mergeOpts.AgeMax = cfg.Ages.Max
	merged, err := merge.Panels(ctx, chs, nlsy, mergeOpts)
	if err != nil {
		metrics.RecordStageFailure("merge")
		return nil, fmt.Errorf("merge: %w", err)
	}
	status.MergedRows = merged.Len()
	metrics.SetRowsCleaned("merged", merged.Len())

	outputs := []struct {
		name  string
		frame *frame.Frame
	}{
		{"chs_clean.csv", chs},
		{"nlsy_clean.csv", nlsy},
		{"merged_chs_nlsy.csv", merged},
	}
	for _, out := range outputs {
		name := out.name
		path := filepath.Join(cfg.DataDir, name)
		if err := writeFrame(ctx, path, out.frame); err != nil {
			metrics.RecordStageFailure("artifacts")
			return nil, err
		}
		status.Artifacts = append(status.Artifacts, name)
	}

	status.Subscales = dict.Subscales()
	charts := status.Subscales
	if merged.Len() == 0 {
		logger.Warn().
			Str("event", "run.empty_panel").
			Msg("merged panel is empty, skipping charts")
		charts = nil
	}
	for _, sub := range charts {
		chart, err := plot.Scores(ctx, merged, sub)
		if err != nil {
			// A subscale absent from the merged panel is not fatal; the
			// remaining charts still render.
			logger.Warn().
				Err(err).
				Str("event", "run.plot_skipped").
				Str("subscale", sub).
				Msg("skipping chart")
			continue
		}
		name := "plot_" + sub + ".svg"
		if err := writeChart(ctx, filepath.Join(cfg.DataDir, name), chart); err != nil {
			metrics.RecordStageFailure("artifacts")
			return nil, err
		}
		status.Artifacts = append(status.Artifacts, name)
	}

	if db != nil {
		obs, err := observations(merged, status.Subscales, mergeOpts)
		if err != nil {
			metrics.RecordStageFailure("persist")
			return nil, err
		}
		if err := db.ReplaceObservations(ctx, obs); err != nil {
			metrics.RecordStageFailure("persist")
			return nil, err
		}
	}

	return status, nil
}

// observations flattens the merged panel into one row per (child, year,
// subscale) for the store.
func observations(merged *frame.Frame, subscales []string, opts merge.Options) ([]store.Observation, error) {
	id, err := intColumn(merged, clean.ColChildID)
	if err != nil {
		return nil, err
	}
	year, err := intColumn(merged, clean.ColYear)
	if err != nil {
		return nil, err
	}

	ageName := clean.ColAge
	if !merged.Has(ageName) {
		ageName = clean.ColAge + opts.LeftSuffix
	}
	age, err := intColumn(merged, ageName)
	if err != nil {
		return nil, err
	}

	type scorePair struct {
		nlsy, chs *frame.FloatSeries
	}
	pairs := make(map[string]scorePair, len(subscales))
	for _, sub := range subscales {
		nlsyCol, okN := merged.Column(clean.ScorePrefix + sub)
		chsCol, okC := merged.Column(clean.ScorePrefix + sub + "_chs")
		if !okN || !okC {
			continue
		}
		n, okN := nlsyCol.(*frame.FloatSeries)
		c, okC := chsCol.(*frame.FloatSeries)
		if !okN || !okC {
			return nil, fmt.Errorf("jobs: subscale %q score columns are not numeric", sub)
		}
		pairs[sub] = scorePair{nlsy: n, chs: c}
	}

	var obs []store.Observation
	for i := 0; i < merged.Len(); i++ {
		cid, okID := id.Value(i)
		yr, okYr := year.Value(i)
		if !okID || !okYr {
			continue
		}
		for sub, p := range pairs {
			o := store.Observation{ChildID: cid, Year: yr, Subscale: sub}
			if v, ok := age.Value(i); ok {
				o.Age = sql.NullInt64{Int64: v, Valid: true}
			}
			if v, ok := p.nlsy.Value(i); ok {
				o.NLSY = sql.NullFloat64{Float64: v, Valid: true}
			}
			if v, ok := p.chs.Value(i); ok {
				o.CHS = sql.NullFloat64{Float64: v, Valid: true}
			}
			obs = append(obs, o)
		}
	}
	return obs, nil
}

func intColumn(f *frame.Frame, name string) (*frame.IntSeries, error) {
	col, ok := f.Column(name)
	if !ok {
		return nil, fmt.Errorf("jobs: merged panel has no %q column", name)
	}
	s, ok := col.(*frame.IntSeries)
	if !ok {
		return nil, fmt.Errorf("jobs: column %q is %s, want int", name, col.Kind())
	}
	return s, nil
}

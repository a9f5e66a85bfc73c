// SPDX-License-Identifier: MIT

// Package metrics exposes prometheus instrumentation for the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harmon_runs_total",
		Help: "Total number of pipeline runs by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "harmon_run_duration_seconds",
		Help:    "Wall-clock duration of pipeline runs",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	lastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "harmon_last_run_timestamp_seconds",
		Help: "Unix time of the last completed pipeline run",
	})

	rowsCleaned = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "harmon_rows_cleaned",
		Help: "Rows in the cleaned datasets after the last run",
	}, []string{"dataset"}) // dataset=chs|nlsy|merged

	stageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harmon_stage_failures_total",
		Help: "Pipeline failures by stage",
	}, []string{"stage"}) // stage=extract|dictionary|clean_chs|clean_nlsy|merge|plot|store|write

	wavesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harmon_waves_skipped_total",
		Help: "Survey waves skipped for missing dictionary coverage",
	})

	refreshRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harmon_refresh_rejected_total",
		Help: "Refresh requests rejected because a run was in flight",
	})

	fileRequestsDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harmon_file_requests_denied_total",
		Help: "Artifact file requests denied by reason",
	}, []string{"reason"})
)

// RecordRun observes a finished run.
func RecordRun(outcome string, d time.Duration) {
	runsTotal.WithLabelValues(outcome).Inc()
	runDuration.Observe(d.Seconds())
	lastRunTimestamp.SetToCurrentTime()
}

// SetRowsCleaned records the row count of one cleaned dataset.
func SetRowsCleaned(dataset string, rows int) {
	rowsCleaned.WithLabelValues(dataset).Set(float64(rows))
}

// RecordStageFailure counts a failure in a named pipeline stage.
func RecordStageFailure(stage string) {
	stageFailures.WithLabelValues(stage).Inc()
}

// RecordWaveSkipped counts a wave without dictionary coverage.
func RecordWaveSkipped() {
	wavesSkipped.Inc()
}

// RecordRefreshRejected counts a refresh rejected for concurrency.
func RecordRefreshRejected() {
	refreshRejected.Inc()
}

// RecordFileRequestDenied counts a denied artifact request.
func RecordFileRequestDenied(reason string) {
	fileRequestsDenied.WithLabelValues(reason).Inc()
}

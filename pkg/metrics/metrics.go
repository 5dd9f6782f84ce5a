package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "immisense_pipeline_runs_total",
			Help: "Total number of assessment pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "immisense_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"stage"},
	)

	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "immisense_stage_failures_total",
			Help: "Total number of pipeline stage failures",
		},
		[]string{"stage", "reason"},
	)

	SearchQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "immisense_search_queries_total",
			Help: "Search tool calls issued by role agents",
		},
		[]string{"role", "outcome"},
	)

	ModelRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "immisense_model_retries_total",
			Help: "Model invocations retried after an external failure",
		},
		[]string{"role"},
	)

	ActiveRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "immisense_pipeline_runs_active",
			Help: "Number of pipeline runs in progress",
		},
	)
)

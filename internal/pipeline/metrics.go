package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	receiptsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "summit_sync_receipts_processed_total",
		Help: "Receipts processed through the pipeline, by category.",
	}, []string{"category"})

	receiptsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "summit_sync_receipts_skipped_total",
		Help: "Receipts skipped because extraction produced no text.",
	})

	matchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "summit_sync_match_outcomes_total",
		Help: "Telemetry match outcomes at ingestion time.",
	}, []string{"outcome"}) // matched, unmatched, error

	complianceVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "summit_sync_compliance_verdicts_total",
		Help: "Compliance gate verdicts.",
	}, []string{"verdict"})

	processDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "summit_sync_process_duration_seconds",
		Help:    "End-to-end processing time per receipt.",
		Buckets: prometheus.DefBuckets,
	})
)

// Package metrics exposes the Prometheus instrumentation for both
// binaries: ingest outcome/latency on the api side, batch/anomaly counts
// on the worker side. This is ambient operator surface, not one of the
// out-of-scope dashboard read endpoints.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest holds the metrics recorded by the ingestion front-end (C6).
type Ingest struct {
	RequestDuration *prometheus.HistogramVec
	Outcomes        *prometheus.CounterVec
	RateLimited     *prometheus.CounterVec
}

// NewIngest registers and returns the ingest-side metrics against reg.
// Production call sites pass a registry they also wire into the
// /metrics handler; tests pass a throwaway prometheus.NewRegistry() so
// constructing more than one Ingest per process never collides.
func NewIngest(reg prometheus.Registerer) *Ingest {
	f := promauto.With(reg)
	return &Ingest{
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingest_request_duration_seconds",
				Help:    "Duration of POST /ingest requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		Outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_outcomes_total",
				Help: "Count of ingest outcomes by result",
			},
			[]string{"result"}, // queued, duplicate, validation_error, rate_limited, storage_unavailable, stream_unavailable, internal_error
		),
		RateLimited: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_rate_limited_total",
				Help: "Count of requests rejected by the rate limiter",
			},
			[]string{"patient_id"},
		),
	}
}

// Worker holds the metrics recorded by the stream consumer (C11, C12).
type Worker struct {
	BatchSize       prometheus.Histogram
	Anomalies       *prometheus.CounterVec
	ThresholdEvents *prometheus.CounterVec
	ProcessDuration prometheus.Histogram
	RecoveredCount  prometheus.Counter
}

// NewWorker registers and returns the worker-side metrics against reg,
// for the same reason and in the same shape as NewIngest.
func NewWorker(reg prometheus.Registerer) *Worker {
	f := promauto.With(reg)
	return &Worker{
		BatchSize: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "worker_batch_size",
				Help:    "Number of stream entries read per XReadGroup call",
				Buckets: []float64{1, 2, 5, 10, 20, 50},
			},
		),
		Anomalies: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worker_anomalies_total",
				Help: "Count of anomalies classified, by kind",
			},
			[]string{"kind"},
		),
		ThresholdEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worker_threshold_crossed_total",
				Help: "Count of deterministic threshold crossings, by metric",
			},
			[]string{"metric"},
		),
		ProcessDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "worker_process_entry_duration_seconds",
				Help:    "Duration of processing one stream entry end to end",
				Buckets: prometheus.DefBuckets,
			},
		),
		RecoveredCount: f.NewCounter(
			prometheus.CounterOpts{
				Name: "worker_recovered_entries_total",
				Help: "Count of pending entries reclaimed at startup",
			},
		),
	}
}

// Package worker implements the stream consumer worker (C11) and its
// startup recovery step (C12): the state machine that turns a raw stream
// entry into windowed aggregates, a threshold check, a model score, and —
// when anomalous — a persisted, logged classification.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/physio/engine/internal/circuitbreaker"
	"github.com/physio/engine/internal/classifier"
	"github.com/physio/engine/internal/core"
	"github.com/physio/engine/internal/metrics"
	"github.com/physio/engine/internal/scorer"
	"github.com/physio/engine/internal/store"
	"github.com/physio/engine/internal/stream"
	"github.com/physio/engine/internal/threshold"
	"github.com/physio/engine/internal/window"
)

// Worker owns one consumer's share of the stream and the in-process
// window state for every patient it has seen.
type Worker struct {
	consumer *stream.Consumer
	store    *store.Store
	model    *scorer.Model
	windows  *window.Manager
	breakers *circuitbreaker.PipelineCircuitBreakers
	metrics  *metrics.Worker
}

func New(
	consumer *stream.Consumer,
	st *store.Store,
	model *scorer.Model,
	breakers *circuitbreaker.PipelineCircuitBreakers,
	m *metrics.Worker,
) *Worker {
	return &Worker{
		consumer: consumer,
		store:    st,
		model:    model,
		windows:  window.NewManager(),
		breakers: breakers,
		metrics:  m,
	}
}

// Recover reclaims entries left pending by a prior, now-dead consumer
// before the main loop starts reading new deliveries (C12).
func (w *Worker) Recover(ctx context.Context) error {
	if err := w.consumer.EnsureGroup(ctx); err != nil {
		return err
	}

	pending, err := w.consumer.Recover(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	slog.Info("worker: reclaiming pending entries", "count", len(pending))
	for _, msg := range pending {
		w.processAndAck(ctx, msg)
	}
	w.metrics.RecoveredCount.Add(float64(len(pending)))
	return nil
}

// Run loops reading batches until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		batch, err := w.consumer.ReadBatch(ctx)
		if err != nil {
			slog.Error("worker: read batch failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		w.metrics.BatchSize.Observe(float64(len(batch)))

		for _, msg := range batch {
			w.processAndAck(ctx, msg)
		}
	}
}

// processAndAck runs one entry through the DELIVERED -> PARSED -> WINDOWED
// -> SCORED -> [CLASSIFIED -> PERSISTED] -> ACKED state machine. The entry
// is only acknowledged once every persistence side effect it triggers has
// committed, so a crash mid-pipeline leaves it pending for redelivery.
func (w *Worker) processAndAck(ctx context.Context, msg stream.Message) {
	start := time.Now()
	defer func() { w.metrics.ProcessDuration.Observe(time.Since(start).Seconds()) }()

	if err := w.process(ctx, msg.Entry.Reading); err != nil {
		slog.Error("worker: processing failed, leaving pending", "patient_id", msg.Entry.Reading.PatientID, "error", err)
		return
	}

	if err := w.consumer.Ack(ctx, msg.ID); err != nil {
		slog.Error("worker: ack failed", "entry_id", msg.ID, "error", err)
	}
}

func (w *Worker) process(ctx context.Context, r core.Reading) error {
	set := w.windows.Add(r)

	for _, metric := range threshold.Check(r) {
		w.metrics.ThresholdEvents.WithLabelValues(metric).Inc()
	}

	isAnomaly, score := w.model.Score(r.Vector())
	if !isAnomaly {
		return nil
	}

	agg := set.W10m.Aggregates()
	row := classifier.Classify(r, agg, score)
	w.metrics.Anomalies.WithLabelValues(string(row.Kind)).Inc()

	_, err := w.breakers.Store.Execute(func() (interface{}, error) {
		return nil, w.store.InsertAnomaly(ctx, row)
	})
	return err
}

// Package core holds the domain types shared across the ingestion front-end
// and the worker: the Reading value, its persisted and streamed forms, and
// the anomaly rows the worker writes.
package core

import "time"

// AnomalyKind is the closed set of anomaly classifications the worker
// can assign to a flagged reading.
type AnomalyKind string

const (
	AnomalySpike       AnomalyKind = "spike"
	AnomalyDrop        AnomalyKind = "drop"
	AnomalyDrift       AnomalyKind = "drift"
	AnomalyMultiSignal AnomalyKind = "multi-signal"
)

// Reading is one timestamped vitals observation for one patient. It is
// immutable once constructed: validated on ingest, never mutated, and
// referenced by its assigned event ID after persistence.
type Reading struct {
	PatientID string    `json:"patient_id"`
	Timestamp time.Time `json:"timestamp"`
	HR        int       `json:"hr"`
	BPSys     int       `json:"bp_sys"`
	BPDia     int       `json:"bp_dia"`
	SpO2      int       `json:"spo2"`
	RR        int       `json:"rr"`
	Temp      float64   `json:"temp"`
}

// Vector returns the 6-feature vector the model scorer (C9) consumes, in
// the fixed order [hr, bp_sys, bp_dia, spo2, rr, temp].
func (r Reading) Vector() [6]float64 {
	return [6]float64{
		float64(r.HR),
		float64(r.BPSys),
		float64(r.BPDia),
		float64(r.SpO2),
		float64(r.RR),
		r.Temp,
	}
}

// FingerprintSource is the idempotency key material: patient_id + ":" +
// the timestamp in ISO 8601. Hashed by the caller (see internal/cache).
func (r Reading) FingerprintSource() string {
	return r.PatientID + ":" + r.Timestamp.UTC().Format(time.RFC3339Nano)
}

// EventRow is a Reading persisted to the durable store with a
// server-assigned, monotonically increasing event ID.
type EventRow struct {
	ID      int64
	Reading Reading
}

// StreamEntry is the wire record the ingestion front-end appends to the
// stream and the worker reads back: the reading fields, the assigned
// event ID, and the log position Redis assigns on XADD.
type StreamEntry struct {
	DBID     int64
	Reading  Reading
	Position string
}

// AnomalyRow is a persisted anomaly: the flagged reading, its kind, the
// scorer's scalar score (higher = more abnormal), and a snapshot of the
// reading for the `details` json column.
type AnomalyRow struct {
	ID        int64
	PatientID string
	Kind      AnomalyKind
	Score     float64
	Timestamp time.Time
	Reading   Reading
}

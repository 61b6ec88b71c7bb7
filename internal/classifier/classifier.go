// Package classifier implements the anomaly classifier (C10): given a
// scored reading flagged as anomalous, assigns one of four kinds by
// priority order using the patient's 10-minute window aggregates.
package classifier

import (
	"log"
	"math"

	"github.com/physio/engine/internal/core"
	"github.com/physio/engine/internal/window"
)

// startupWindowCount is the 10-minute window entry count at or below which
// a patient is considered too new to have a reliable baseline; anomalies
// during this period default to spike, matching the worker's startup
// assumption rather than risking a misclassified drift/drop.
const startupWindowCount = 5

const (
	hrDeviationThreshold   = 20.0
	spo2DeviationThreshold = 5.0
	multiSignalThreshold   = 0.2
)

// Classify assigns a kind to a reading already confirmed anomalous by the
// scorer, logs the ANOMALY_DETECTED line, and returns the row ready for
// persistence.
func Classify(r core.Reading, agg window.Aggregates, score float64) core.AnomalyRow {
	kind := classifyKind(r, agg, score)

	log.Printf("ANOMALY_DETECTED patient_id=%s type=%s score=%.2f timestamp=%s",
		r.PatientID, kind, score, r.Timestamp.UTC().Format("2006-01-02T15:04:05.000000"))

	return core.AnomalyRow{
		PatientID: r.PatientID,
		Kind:      kind,
		Score:     score,
		Timestamp: r.Timestamp,
		Reading:   r,
	}
}

func classifyKind(r core.Reading, agg window.Aggregates, score float64) core.AnomalyKind {
	if agg.Count <= startupWindowCount {
		return core.AnomalySpike
	}

	if math.Abs(float64(r.HR)-agg.AvgHR) > hrDeviationThreshold {
		return core.AnomalySpike
	}
	if math.Abs(float64(r.SpO2)-agg.AvgSpO2) > spo2DeviationThreshold {
		return core.AnomalyDrop
	}
	if score > multiSignalThreshold {
		return core.AnomalyMultiSignal
	}
	return core.AnomalyDrift
}

// Package threshold implements the deterministic threshold detector (C8):
// simple bound checks that log a THRESHOLD_CROSSED line but are never
// persisted on their own.
package threshold

import (
	"log"

	"github.com/physio/engine/internal/core"
)

const (
	hrHighThreshold  = 140
	spo2LowThreshold = 90
)

// Check logs one THRESHOLD_CROSSED line per metric that crosses its bound
// and returns the names of the metrics that crossed, for the caller's own
// instrumentation. The log line's key=value shape is the wire contract
// consumers of the worker's stdout rely on; do not reformat it.
func Check(r core.Reading) []string {
	var crossed []string

	if r.HR > hrHighThreshold {
		log.Printf("THRESHOLD_CROSSED patient_id=%s metric=hr value=%d timestamp=%s",
			r.PatientID, r.HR, r.Timestamp.UTC().Format("2006-01-02T15:04:05.000000"))
		crossed = append(crossed, "hr")
	}
	if r.SpO2 < spo2LowThreshold {
		log.Printf("THRESHOLD_CROSSED patient_id=%s metric=spo2 value=%d timestamp=%s",
			r.PatientID, r.SpO2, r.Timestamp.UTC().Format("2006-01-02T15:04:05.000000"))
		crossed = append(crossed, "spo2")
	}

	return crossed
}

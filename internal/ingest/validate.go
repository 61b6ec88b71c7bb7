package ingest

import (
	"time"

	"github.com/physio/engine/internal/core"
)

// Field bounds mirror the original system's Pydantic validators exactly
// (patient_id length, vital sign physiological ranges, and the
// not-more-than-5-minutes-in-the-future timestamp check).
const (
	patientIDMinLen = 1
	patientIDMaxLen = 50

	hrMin, hrMax       = 30, 250
	bpSysMin, bpSysMax = 50, 250
	bpDiaMin, bpDiaMax = 30, 150
	spo2Min, spo2Max   = 50, 100
	rrMin, rrMax       = 4, 60
	tempMin, tempMax   = 30.0, 45.0

	maxFutureSkew = 300 * time.Second
)

// Validate checks a reading against the field bounds and the future-skew
// rule (C1). The first violation found is returned; callers map this 1:1
// to an HTTP 422.
func Validate(r core.Reading, now time.Time) error {
	if l := len(r.PatientID); l < patientIDMinLen || l > patientIDMaxLen {
		return &core.ValidationError{Field: "patient_id", Reason: "must be 1-50 characters"}
	}
	if r.HR < hrMin || r.HR > hrMax {
		return &core.ValidationError{Field: "hr", Reason: "must be between 30 and 250"}
	}
	if r.BPSys < bpSysMin || r.BPSys > bpSysMax {
		return &core.ValidationError{Field: "bp_sys", Reason: "must be between 50 and 250"}
	}
	if r.BPDia < bpDiaMin || r.BPDia > bpDiaMax {
		return &core.ValidationError{Field: "bp_dia", Reason: "must be between 30 and 150"}
	}
	if r.SpO2 < spo2Min || r.SpO2 > spo2Max {
		return &core.ValidationError{Field: "spo2", Reason: "must be between 50 and 100"}
	}
	if r.RR < rrMin || r.RR > rrMax {
		return &core.ValidationError{Field: "rr", Reason: "must be between 4 and 60"}
	}
	if r.Temp < tempMin || r.Temp > tempMax {
		return &core.ValidationError{Field: "temp", Reason: "must be between 30.0 and 45.0"}
	}
	if r.Timestamp.After(now.Add(maxFutureSkew)) {
		return &core.ValidationError{Field: "timestamp", Reason: "must not be more than 300 seconds in the future"}
	}
	return nil
}

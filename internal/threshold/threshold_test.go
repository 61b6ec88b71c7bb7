package threshold

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/physio/engine/internal/core"
)

func reading(hr, spo2 int) core.Reading {
	return core.Reading{
		PatientID: "patient-1",
		Timestamp: time.Now().UTC(),
		HR:        hr,
		BPSys:     120,
		BPDia:     80,
		SpO2:      spo2,
		RR:        16,
		Temp:      37.0,
	}
}

func TestCheck_NoCrossing(t *testing.T) {
	crossed := Check(reading(80, 98))
	assert.Empty(t, crossed)
}

func TestCheck_HRCrossing(t *testing.T) {
	crossed := Check(reading(141, 98))
	assert.Equal(t, []string{"hr"}, crossed)
}

func TestCheck_SpO2Crossing(t *testing.T) {
	crossed := Check(reading(80, 89))
	assert.Equal(t, []string{"spo2"}, crossed)
}

func TestCheck_BothCrossing(t *testing.T) {
	crossed := Check(reading(141, 89))
	assert.ElementsMatch(t, []string{"hr", "spo2"}, crossed)
}

func TestCheck_BoundaryValuesDoNotCross(t *testing.T) {
	crossed := Check(reading(hrHighThreshold, spo2LowThreshold))
	assert.Empty(t, crossed)
}

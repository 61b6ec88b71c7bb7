package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/physio/engine/internal/core"
	"github.com/physio/engine/internal/window"
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

func TestClassifyKind_StartupDefaultsToSpike(t *testing.T) {
	agg := window.Aggregates{Count: 3, AvgHR: 80, AvgSpO2: 98}
	kind := classifyKind(reading(80, 98), agg, 0.05)
	assert.Equal(t, core.AnomalySpike, kind)
}

func TestClassifyKind_HRDeviationIsSpike(t *testing.T) {
	agg := window.Aggregates{Count: 10, AvgHR: 80, AvgSpO2: 98}
	kind := classifyKind(reading(105, 98), agg, 0.05)
	assert.Equal(t, core.AnomalySpike, kind)
}

func TestClassifyKind_SpO2DeviationIsDrop(t *testing.T) {
	agg := window.Aggregates{Count: 10, AvgHR: 80, AvgSpO2: 98}
	kind := classifyKind(reading(82, 90), agg, 0.05)
	assert.Equal(t, core.AnomalyDrop, kind)
}

func TestClassifyKind_HighScoreIsMultiSignal(t *testing.T) {
	agg := window.Aggregates{Count: 10, AvgHR: 80, AvgSpO2: 98}
	kind := classifyKind(reading(82, 97), agg, 0.35)
	assert.Equal(t, core.AnomalyMultiSignal, kind)
}

func TestClassifyKind_DefaultsToDrift(t *testing.T) {
	agg := window.Aggregates{Count: 10, AvgHR: 80, AvgSpO2: 98}
	kind := classifyKind(reading(82, 97), agg, 0.05)
	assert.Equal(t, core.AnomalyDrift, kind)
}

func TestClassify_PopulatesRowAndKeepsReading(t *testing.T) {
	agg := window.Aggregates{Count: 10, AvgHR: 80, AvgSpO2: 98}
	r := reading(105, 98)
	row := Classify(r, agg, 0.05)

	assert.Equal(t, core.AnomalySpike, row.Kind)
	assert.Equal(t, r.PatientID, row.PatientID)
	assert.Equal(t, r, row.Reading)
	assert.Equal(t, 0.05, row.Score)
}

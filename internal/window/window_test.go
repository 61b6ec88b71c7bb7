package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/physio/engine/internal/core"
)

func reading(patientID string, t time.Time, hr, spo2 int) core.Reading {
	return core.Reading{
		PatientID: patientID,
		Timestamp: t,
		HR:        hr,
		BPSys:     120,
		BPDia:     80,
		SpO2:      spo2,
		RR:        16,
		Temp:      37.0,
	}
}

func TestWindow_PrunesByLatestObservedTimestamp(t *testing.T) {
	w := newWindow(30 * time.Second)
	base := time.Now()

	w.Add(reading("p1", base, 80, 98))
	w.Add(reading("p1", base.Add(10*time.Second), 90, 97))
	w.Add(reading("p1", base.Add(40*time.Second), 100, 96))

	agg := w.Aggregates()
	// The first reading (t=0) is older than 30s relative to the newest
	// (t=40s), so only the last two remain.
	require.Equal(t, 2, agg.Count)
	assert.InDelta(t, 95.0, agg.AvgHR, 0.01)
}

func TestWindow_AggregatesEmptyWindow(t *testing.T) {
	w := newWindow(30 * time.Second)
	agg := w.Aggregates()
	assert.Equal(t, 0, agg.Count)
}

func TestManager_IsolatesPatients(t *testing.T) {
	m := NewManager()
	base := time.Now()

	m.Add(reading("p1", base, 80, 98))
	m.Add(reading("p2", base, 200, 80))

	p1 := m.Add(reading("p1", base.Add(time.Second), 82, 97))
	aggP1 := p1.W30s.Aggregates()
	assert.Equal(t, 2, aggP1.Count)
	assert.InDelta(t, 81.0, aggP1.AvgHR, 0.01)
}

func TestPatientWindowSet_FeedsAllThreeWindows(t *testing.T) {
	set := newPatientWindowSet()
	r := reading("p1", time.Now(), 80, 98)
	set.Add(r)

	assert.Equal(t, 1, set.W30s.Aggregates().Count)
	assert.Equal(t, 1, set.W2m.Aggregates().Count)
	assert.Equal(t, 1, set.W10m.Aggregates().Count)
}

// Package window implements the per-patient sliding window set (C7): three
// concurrent windows (30s, 120s, 600s). The classifier reads the 10-minute
// window's aggregates; the threshold detector and scorer work on the raw
// reading.
package window

import (
	"sync"
	"time"

	"github.com/physio/engine/internal/core"
)

// entry is one reading kept in a window, tagged with its own timestamp so
// pruning is driven by the latest observed reading rather than wall clock.
type entry struct {
	ts      time.Time
	hr      int
	spo2    int
	temp    float64
}

// Aggregates summarizes the readings currently retained in one window.
type Aggregates struct {
	WindowSize time.Duration
	Count      int
	EndTime    time.Time
	AvgHR      float64
	AvgSpO2    float64
	AvgTemp    float64
}

// Window is a single fixed-size sliding window over one patient's readings.
// On every Add, head entries older than size, relative to the added
// reading's timestamp, are pruned.
type Window struct {
	mu      sync.Mutex
	size    time.Duration
	entries []entry
}

func newWindow(size time.Duration) *Window {
	return &Window{size: size}
}

// Add appends a reading and prunes entries from the head of the window
// while they are older than size relative to this reading's timestamp.
// Pruning stops at the first entry inside the window, so an out-of-order
// entry sitting behind it is kept. Readings are expected in roughly
// chronological order per patient; a late/out-of-order reading still gets
// appended, and pruning always anchors on the most recently added timestamp.
func (w *Window) Add(r core.Reading) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.entries = append(w.entries, entry{ts: r.Timestamp, hr: r.HR, spo2: r.SpO2, temp: r.Temp})

	cutoff := r.Timestamp.Add(-w.size)
	i := 0
	for i < len(w.entries) && w.entries[i].ts.Before(cutoff) {
		i++
	}
	if i > 0 {
		w.entries = append([]entry(nil), w.entries[i:]...)
	}
}

// Aggregates computes the window's current summary statistics. The
// averages are rounded to 2 decimal places to match the reporting
// precision used elsewhere in this codebase.
func (w *Window) Aggregates() Aggregates {
	w.mu.Lock()
	defer w.mu.Unlock()

	agg := Aggregates{WindowSize: w.size}
	n := len(w.entries)
	agg.Count = n
	if n == 0 {
		return agg
	}

	var sumHR, sumSpO2, sumTemp float64
	for _, e := range w.entries {
		sumHR += float64(e.hr)
		sumSpO2 += float64(e.spo2)
		sumTemp += e.temp
	}
	agg.EndTime = w.entries[n-1].ts
	agg.AvgHR = round2(sumHR / float64(n))
	agg.AvgSpO2 = round2(sumSpO2 / float64(n))
	agg.AvgTemp = round2(sumTemp / float64(n))
	return agg
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

// PatientWindowSet holds the three windows (30s/120s/600s) kept for one
// patient, per spec.md §4.7.
type PatientWindowSet struct {
	W30s  *Window
	W2m   *Window
	W10m  *Window
}

func newPatientWindowSet() *PatientWindowSet {
	return &PatientWindowSet{
		W30s: newWindow(30 * time.Second),
		W2m:  newWindow(120 * time.Second),
		W10m: newWindow(600 * time.Second),
	}
}

// Add feeds a reading into all three windows.
func (s *PatientWindowSet) Add(r core.Reading) {
	s.W30s.Add(r)
	s.W2m.Add(r)
	s.W10m.Add(r)
}

// Manager holds one PatientWindowSet per patient the worker has seen.
// State is process-local: two worker processes consuming the same
// consumer group hold independent windows for the same patient if
// delivery interleaves between them (see the recorded design decision on
// cross-worker interleaving).
type Manager struct {
	mu       sync.Mutex
	patients map[string]*PatientWindowSet
}

func NewManager() *Manager {
	return &Manager{patients: make(map[string]*PatientWindowSet)}
}

// Add records a reading for its patient, creating that patient's window
// set on first sight, and returns the updated set for immediate use by
// the classifier.
func (m *Manager) Add(r core.Reading) *PatientWindowSet {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.patients[r.PatientID]
	if !ok {
		set = newPatientWindowSet()
		m.patients[r.PatientID] = set
	}
	set.Add(r)
	return set
}

package stream

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage_RoundTripsFields(t *testing.T) {
	m := redis.XMessage{
		ID: "1-0",
		Values: map[string]interface{}{
			fieldPatientID: "patient-1",
			fieldTimestamp: "2026-08-01T12:00:00Z",
			fieldHR:        "80",
			fieldBPSys:     "120",
			fieldBPDia:     "80",
			fieldSpO2:      "98",
			fieldRR:        "16",
			fieldTemp:      "37.25",
			fieldDBID:      "42",
		},
	}

	msg, ok := parseMessage(m)
	require.True(t, ok)

	assert.Equal(t, "1-0", msg.ID)
	assert.Equal(t, "1-0", msg.Entry.Position)
	assert.Equal(t, int64(42), msg.Entry.DBID)
	assert.Equal(t, "patient-1", msg.Entry.Reading.PatientID)
	assert.Equal(t, 80, msg.Entry.Reading.HR)
	assert.Equal(t, 98, msg.Entry.Reading.SpO2)
	assert.Equal(t, 37.25, msg.Entry.Reading.Temp)

	wantTS, err := time.Parse(time.RFC3339Nano, "2026-08-01T12:00:00Z")
	require.NoError(t, err)
	assert.True(t, wantTS.Equal(msg.Entry.Reading.Timestamp))
}

func TestParseMessage_FallsBackToNowOnBadTimestamp(t *testing.T) {
	m := redis.XMessage{
		ID: "2-0",
		Values: map[string]interface{}{
			fieldPatientID: "patient-1",
			fieldTimestamp: "not-a-timestamp",
			fieldHR:        "80",
		},
	}

	before := time.Now().UTC()
	msg, ok := parseMessage(m)
	after := time.Now().UTC()

	require.True(t, ok)
	assert.True(t, !msg.Entry.Reading.Timestamp.Before(before) && !msg.Entry.Reading.Timestamp.After(after))
}

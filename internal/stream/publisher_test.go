package stream

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/physio/engine/internal/core"
)

func TestPublisher_PublishWritesAllFields(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	pub := NewPublisher(rdb, "vitals_stream")

	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r := core.Reading{
		PatientID: "patient-1",
		Timestamp: ts,
		HR:        80,
		BPSys:     120,
		BPDia:     80,
		SpO2:      98,
		RR:        16,
		Temp:      37.25,
	}

	ctx := context.Background()
	id, err := pub.Publish(ctx, 42, r)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	entries, err := rdb.XRange(ctx, "vitals_stream", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	values := entries[0].Values
	require.Equal(t, "patient-1", values[fieldPatientID])
	require.Equal(t, ts.Format(time.RFC3339Nano), values[fieldTimestamp])
	require.Equal(t, "37.25", values[fieldTemp])
	require.Equal(t, "80", values[fieldHR])
	require.Equal(t, "120", values[fieldBPSys])
	require.Equal(t, "80", values[fieldBPDia])
	require.Equal(t, "98", values[fieldSpO2])
	require.Equal(t, "16", values[fieldRR])
	require.Equal(t, "42", values[fieldDBID])
}

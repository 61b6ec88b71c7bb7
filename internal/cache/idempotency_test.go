package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_IsDeterministic(t *testing.T) {
	a := Fingerprint("patient-1:2026-08-01T00:00:00Z")
	b := Fingerprint("patient-1:2026-08-01T00:00:00Z")
	assert.Equal(t, a, b)
}

func TestFingerprint_DiffersOnInput(t *testing.T) {
	a := Fingerprint("patient-1:2026-08-01T00:00:00Z")
	b := Fingerprint("patient-2:2026-08-01T00:00:00Z")
	assert.NotEqual(t, a, b)
}

func TestIdempotencyFilter_SeenIsFalseUntilMarked(t *testing.T) {
	client := newTestClient(t)
	filter := NewIdempotencyFilter(client, time.Minute)
	ctx := context.Background()
	fp := Fingerprint("patient-1:2026-08-01T00:00:00Z")

	seen, err := filter.Seen(ctx, fp)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, filter.Mark(ctx, fp))

	seen, err = filter.Seen(ctx, fp)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestIdempotencyFilter_DistinctFingerprintsAreIndependent(t *testing.T) {
	client := newTestClient(t)
	filter := NewIdempotencyFilter(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, filter.Mark(ctx, Fingerprint("patient-1:t1")))

	seen, err := filter.Seen(ctx, Fingerprint("patient-2:t1"))
	require.NoError(t, err)
	assert.False(t, seen)
}

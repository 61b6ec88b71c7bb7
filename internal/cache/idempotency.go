package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyFilter suppresses replayed ingest requests for the same
// (patient_id, timestamp) pair within a TTL window (C3). The fingerprint
// is a sha256 hash of the reading's fingerprint source,
// "<patient_id>:<timestamp>", with the timestamp in RFC 3339 UTC form
// (trailing "Z", see core.Reading.FingerprintSource).
type IdempotencyFilter struct {
	client *Client
	ttl    time.Duration
}

func NewIdempotencyFilter(client *Client, ttl time.Duration) *IdempotencyFilter {
	return &IdempotencyFilter{client: client, ttl: ttl}
}

// Fingerprint hashes the given source string into a hex-encoded idempotency
// key suffix.
func Fingerprint(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Seen reports whether this fingerprint was already marked within the TTL.
func (f *IdempotencyFilter) Seen(ctx context.Context, fingerprint string) (bool, error) {
	key := idempotencyKey(fingerprint)
	_, err := f.client.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: idempotency get: %w", err)
	}
	return true, nil
}

// Mark records a fingerprint as seen, good for the configured TTL. Called
// only after the reading has been durably committed and published.
func (f *IdempotencyFilter) Mark(ctx context.Context, fingerprint string) error {
	key := idempotencyKey(fingerprint)
	if err := f.client.rdb.SetEx(ctx, key, "1", f.ttl).Err(); err != nil {
		return fmt.Errorf("cache: idempotency setex: %w", err)
	}
	return nil
}

func idempotencyKey(fingerprint string) string {
	return fmt.Sprintf("idempotency:%s", fingerprint)
}

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultDedupTTL = 10 * time.Minute

// DedupChecker provides idempotency checks for location fixes, backed by
// Redis. Key format: track:dedup:<session_id>:<fingerprint>:<unix_timestamp>
type DedupChecker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedupChecker creates a DedupChecker wrapping the given Redis client.
// A non-positive ttl falls back to 10 minutes, long enough to absorb mobile
// client retry storms without suppressing genuine later fixes.
func NewDedupChecker(client *redis.Client, ttl time.Duration) *DedupChecker {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &DedupChecker{client: client, ttl: ttl}
}

// IsDuplicate reports whether this exact fix has already been processed.
func (d *DedupChecker) IsDuplicate(ctx context.Context, sessionID, fingerprint string, ts time.Time) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(sessionID, fingerprint, ts)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records that this fix has been processed (expires after the TTL).
func (d *DedupChecker) Mark(ctx context.Context, sessionID, fingerprint string, ts time.Time) error {
	return d.client.Set(ctx, d.key(sessionID, fingerprint, ts), "1", d.ttl).Err()
}

func (d *DedupChecker) key(sessionID, fingerprint string, ts time.Time) string {
	return fmt.Sprintf("track:dedup:%s:%s:%d", sessionID, fingerprint, ts.Unix())
}

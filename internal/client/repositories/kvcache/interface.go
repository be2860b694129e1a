package kvcache

import (
	"context"
	"time"
)

// Repository is a short-TTL key/value cache. Values are opaque serialized
// payloads. A read past the expiry time is treated as absent and the stale
// row is purged as a side effect of the read.
type Repository interface {
	// Get returns (value, true) when the key exists and has not expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set upserts the value with the given time-to-live.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the key if present.
	Delete(ctx context.Context, key string) error
}

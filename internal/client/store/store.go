// Package store provides the durable local cache of the Blink client: the
// processing-queue snapshot, the file-history log, and a short-TTL key/value
// cache, all backed by one SQLite database.
//
// Durability here is best-effort and never load-bearing for correctness:
// when the database cannot be opened or migrated, Open degrades to a null
// in-memory no-op implementation instead of failing the application.
package store

import (
	"context"
	"time"

	"github.com/aussiephantom/blinkapp-desktop/internal/client/models"
)

// Store is the capability-checked local persistence interface. Both the
// SQLite implementation and the null (degraded-mode) implementation satisfy
// it, so call sites never branch on availability.
type Store interface {
	// SaveQueueSnapshot replaces the persisted queue snapshot.
	SaveQueueSnapshot(ctx context.Context, entries []models.QueueEntry) error

	// LoadQueueSnapshot returns the persisted queue snapshot.
	LoadQueueSnapshot(ctx context.Context) ([]models.QueueEntry, error)

	// AppendHistory records one completed upload.
	AppendHistory(ctx context.Context, rec models.HistoryRecord) error

	// History returns up to limit completed uploads, newest first.
	History(ctx context.Context, limit int) ([]models.HistoryRecord, error)

	// CacheGet returns (value, true) when key exists and has not expired.
	CacheGet(ctx context.Context, key string) ([]byte, bool, error)

	// CacheSet upserts a cache value with the given time-to-live.
	CacheSet(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases the underlying database handle.
	Close() error
}

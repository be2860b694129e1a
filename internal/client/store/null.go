package store

import (
	"context"
	"time"

	"github.com/aussiephantom/blinkapp-desktop/internal/client/models"
)

// NullStore is the degraded-mode Store used when the local database cannot
// be initialized. Reads return empty/absent, writes are accepted and
// discarded.
type NullStore struct{}

// NewNullStore returns a Store that persists nothing.
func NewNullStore() *NullStore {
	return &NullStore{}
}

func (n *NullStore) SaveQueueSnapshot(ctx context.Context, entries []models.QueueEntry) error {
	return nil
}

func (n *NullStore) LoadQueueSnapshot(ctx context.Context) ([]models.QueueEntry, error) {
	return nil, nil
}

func (n *NullStore) AppendHistory(ctx context.Context, rec models.HistoryRecord) error {
	return nil
}

func (n *NullStore) History(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	return nil, nil
}

func (n *NullStore) CacheGet(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (n *NullStore) CacheSet(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (n *NullStore) Close() error {
	return nil
}

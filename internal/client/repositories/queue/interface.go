package queue

import (
	"context"

	"github.com/aussiephantom/blinkapp-desktop/internal/client/models"
)

// Repository persists the processing-queue snapshot used for restart
// recovery. The snapshot mirrors the in-memory queue owned by the intake
// coordinator; it is replaced wholesale on every save.
type Repository interface {
	// Replace atomically swaps the stored snapshot for the given entries.
	Replace(ctx context.Context, entries []models.QueueEntry) error

	// GetAll returns every stored entry, ordered by detection time.
	GetAll(ctx context.Context) ([]models.QueueEntry, error)
}

package history

import (
	"context"

	"github.com/aussiephantom/blinkapp-desktop/internal/client/models"
)

// Repository is the append-only log of completed uploads.
type Repository interface {
	// Append stores one completed-upload record.
	Append(ctx context.Context, rec models.HistoryRecord) error

	// List returns the most recent records, newest first, bounded by limit.
	List(ctx context.Context, limit int) ([]models.HistoryRecord, error)
}

package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aussiephantom/blinkapp-desktop/internal/client/models"
	"github.com/aussiephantom/blinkapp-desktop/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Replace(ctx context.Context, entries []models.QueueEntry) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM queue_entries`); err != nil {
		return fmt.Errorf("failed to clear queue snapshot: %w", err)
	}

	query := `INSERT INTO queue_entries
			(id, file_path, file_name, display_name, file_size_bytes,
			 target_folder, tag_ids, status, last_error, detected_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, e := range entries {
		tagIDs, err := json.Marshal(e.TagIDs)
		if err != nil {
			return fmt.Errorf("failed to encode tag ids: %w", err)
		}

		var completedAt sql.NullInt64
		if !e.CompletedAt.IsZero() {
			completedAt = sql.NullInt64{Int64: e.CompletedAt.Unix(), Valid: true}
		}

		_, err = r.db.ExecContext(ctx, query,
			e.ID, e.FilePath, e.FileName, e.DisplayName, e.FileSizeBytes,
			e.TargetFolder, string(tagIDs), string(e.Status), e.LastError,
			e.DetectedAt.Unix(), completedAt)
		if err != nil {
			return fmt.Errorf("failed to insert queue entry: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.QueueEntry, error) {
	query := `SELECT id, file_path, file_name, display_name, file_size_bytes,
			target_folder, tag_ids, status, last_error, detected_at, completed_at
			FROM queue_entries ORDER BY detected_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue entries: %w", err)
	}
	defer rows.Close()

	var result []models.QueueEntry
	for rows.Next() {
		var e models.QueueEntry
		var tagIDs, status string
		var detectedAt int64
		var completedAt sql.NullInt64

		if err := rows.Scan(&e.ID, &e.FilePath, &e.FileName, &e.DisplayName, &e.FileSizeBytes,
			&e.TargetFolder, &tagIDs, &status, &e.LastError, &detectedAt, &completedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tagIDs), &e.TagIDs); err != nil {
			return nil, fmt.Errorf("failed to decode tag ids: %w", err)
		}
		e.Status = models.Status(status)
		e.DetectedAt = time.Unix(detectedAt, 0).UTC()
		if completedAt.Valid {
			e.CompletedAt = time.Unix(completedAt.Int64, 0).UTC()
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

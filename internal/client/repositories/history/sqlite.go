package history

import (
	"context"
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

func (r *SQLiteRepository) Append(ctx context.Context, rec models.HistoryRecord) error {
	tagIDs, err := json.Marshal(rec.TagIDs)
	if err != nil {
		return fmt.Errorf("failed to encode tag ids: %w", err)
	}

	query := `INSERT INTO history
			(entry_id, file_name, display_name, target_folder, remote_file_id,
			 web_url, size_bytes, tag_ids, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		rec.EntryID, rec.FileName, rec.DisplayName, rec.TargetFolder,
		rec.RemoteFileID, rec.WebURL, rec.SizeBytes, string(tagIDs),
		rec.CompletedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	query := `SELECT entry_id, file_name, display_name, target_folder, remote_file_id,
			web_url, size_bytes, tag_ids, completed_at
			FROM history ORDER BY completed_at DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select history: %w", err)
	}
	defer rows.Close()

	var result []models.HistoryRecord
	for rows.Next() {
		var rec models.HistoryRecord
		var tagIDs string
		var completedAt int64

		if err := rows.Scan(&rec.EntryID, &rec.FileName, &rec.DisplayName, &rec.TargetFolder,
			&rec.RemoteFileID, &rec.WebURL, &rec.SizeBytes, &tagIDs, &completedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tagIDs), &rec.TagIDs); err != nil {
			return nil, fmt.Errorf("failed to decode tag ids: %w", err)
		}
		rec.CompletedAt = time.Unix(completedAt, 0).UTC()
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

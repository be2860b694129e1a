package history

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiephantom/blinkapp-desktop/internal/client/models"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE history (
  id             INTEGER PRIMARY KEY AUTOINCREMENT,
  entry_id       TEXT NOT NULL,
  file_name      TEXT NOT NULL,
  display_name   TEXT NOT NULL,
  target_folder  TEXT NOT NULL,
  remote_file_id TEXT NOT NULL,
  web_url        TEXT NOT NULL,
  size_bytes     INTEGER NOT NULL,
  tag_ids        TEXT NOT NULL DEFAULT '[]',
  completed_at   INTEGER NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestAppendAndList(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	rec := models.HistoryRecord{
		EntryID:      "id-1",
		FileName:     "invoice.pdf",
		DisplayName:  "invoice.pdf",
		TargetFolder: "Finance/2024",
		RemoteFileID: "rf-1",
		WebURL:       "https://drive.example/rf-1",
		SizeBytes:    2048,
		TagIDs:       []int{4},
		CompletedAt:  time.Unix(1700000000, 0).UTC(),
	}
	require.NoError(t, r.Append(ctx, rec))

	got, err := r.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, rec, got[0])
}

func TestList_NewestFirstAndBounded(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, r.Append(ctx, models.HistoryRecord{
			EntryID:     fmt.Sprintf("id-%d", i),
			FileName:    "f",
			DisplayName: "f",
			CompletedAt: time.Unix(int64(1700000000+i), 0).UTC(),
		}))
	}

	got, err := r.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "id-4", got[0].EntryID)
	require.Equal(t, "id-2", got[2].EntryID)
}

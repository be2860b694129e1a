package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/aussiephantom/blinkapp-desktop/internal/client/models"
	"github.com/aussiephantom/blinkapp-desktop/internal/client/repositories/history"
	"github.com/aussiephantom/blinkapp-desktop/internal/client/repositories/kvcache"
	"github.com/aussiephantom/blinkapp-desktop/internal/client/repositories/queue"
	"github.com/aussiephantom/blinkapp-desktop/internal/client/store/migrations"
	"github.com/aussiephantom/blinkapp-desktop/internal/dbx"
	"github.com/aussiephantom/blinkapp-desktop/internal/logging"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the durable Store backed by a local SQLite database.
type SQLiteStore struct {
	db      *sql.DB
	queue   queue.Repository
	history history.Repository
	cache   kvcache.Repository
}

// Open opens (or creates) the cache database at dsn, runs migrations, and
// returns a SQLiteStore. On any initialization failure it logs the problem
// and returns a null store instead: local persistence degrades, the
// application keeps running.
func Open(ctx context.Context, dsn string, log logging.Logger) Store {
	s, err := OpenSQLite(ctx, dsn)
	if err != nil {
		log.Warn(ctx, "local cache unavailable, continuing without persistence", "error", err)
		return NewNullStore()
	}
	return s
}

// OpenSQLite opens the SQLite store directly, surfacing init errors to the
// caller. Most callers want Open, which applies the degrade-to-null policy.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &SQLiteStore{
		db:      db,
		queue:   queue.NewSQLiteRepository(db),
		history: history.NewSQLiteRepository(db),
		cache:   kvcache.NewSQLiteRepository(db),
	}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// SaveQueueSnapshot replaces the persisted snapshot atomically: the delete
// and the inserts run in one transaction, so a failed replace leaves the
// previous snapshot intact.
func (s *SQLiteStore) SaveQueueSnapshot(ctx context.Context, entries []models.QueueEntry) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return queue.NewSQLiteRepository(tx).Replace(ctx, entries)
	})
}

func (s *SQLiteStore) LoadQueueSnapshot(ctx context.Context) ([]models.QueueEntry, error) {
	return s.queue.GetAll(ctx)
}

func (s *SQLiteStore) AppendHistory(ctx context.Context, rec models.HistoryRecord) error {
	return s.history.Append(ctx, rec)
}

func (s *SQLiteStore) History(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	return s.history.List(ctx, limit)
}

func (s *SQLiteStore) CacheGet(ctx context.Context, key string) ([]byte, bool, error) {
	return s.cache.Get(ctx, key)
}

func (s *SQLiteStore) CacheSet(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.cache.Set(ctx, key, value, ttl)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

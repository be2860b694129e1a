package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiephantom/blinkapp-desktop/internal/client/drive"
	"github.com/aussiephantom/blinkapp-desktop/internal/client/models"
	"github.com/aussiephantom/blinkapp-desktop/internal/client/notify"
	"github.com/aussiephantom/blinkapp-desktop/internal/common"
	"github.com/aussiephantom/blinkapp-desktop/internal/logging"
)

type fakeDrive struct {
	mu         sync.Mutex
	folders    []string
	uploads    []string
	failFolder error
	failUpload error
	failPaths  map[string]error // per-source-path upload failures
	blockOn    chan struct{}    // when set, UploadFile waits here
}

func (f *fakeDrive) FindOrCreateFolder(ctx context.Context, remotePath string) (*models.RemoteFolder, error) {
	f.mu.Lock()
	f.folders = append(f.folders, remotePath)
	f.mu.Unlock()
	if f.failFolder != nil {
		return nil, f.failFolder
	}
	return &models.RemoteFolder{ID: "folder-" + remotePath, Name: filepath.Base(remotePath)}, nil
}

func (f *fakeDrive) UploadFile(ctx context.Context, folder *models.RemoteFolder, srcPath, name string) (*models.RemoteFile, error) {
	if f.blockOn != nil {
		<-f.blockOn
	}
	if f.failUpload != nil {
		return nil, f.failUpload
	}
	if err, ok := f.failPaths[srcPath]; ok {
		return nil, err
	}
	f.mu.Lock()
	f.uploads = append(f.uploads, name)
	f.mu.Unlock()
	return &models.RemoteFile{ID: "remote-" + name, Name: name, WebURL: "https://drive/" + name}, nil
}

type fakeTags struct {
	mu       sync.Mutex
	assoc    map[string][]int
	failWith error
	taxonomy []models.TagCategory
	listed   int
}

func (f *fakeTags) ListTagCategories(ctx context.Context) ([]models.TagCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed++
	return f.taxonomy, nil
}

func (f *fakeTags) CreateAssociations(ctx context.Context, fileID string, tagIDs []int) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assoc == nil {
		f.assoc = make(map[string][]int)
	}
	f.assoc[fileID] = append([]int(nil), tagIDs...)
	return nil
}

// memStore is an in-memory Store for tests.
type memStore struct {
	mu      sync.Mutex
	queue   []models.QueueEntry
	history []models.HistoryRecord
	kv      map[string][]byte
}

func (m *memStore) SaveQueueSnapshot(ctx context.Context, entries []models.QueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append([]models.QueueEntry(nil), entries...)
	return nil
}

func (m *memStore) LoadQueueSnapshot(ctx context.Context) ([]models.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.QueueEntry(nil), m.queue...), nil
}

func (m *memStore) AppendHistory(ctx context.Context, rec models.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, rec)
	return nil
}

func (m *memStore) History(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.HistoryRecord(nil), m.history...)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memStore) CacheGet(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.kv[key]
	return v, ok, nil
}

func (m *memStore) CacheSet(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.kv == nil {
		m.kv = make(map[string][]byte)
	}
	m.kv[key] = value
	return nil
}

func (m *memStore) Close() error { return nil }

type fixture struct {
	c     *Coordinator
	drive *fakeDrive
	tags  *fakeTags
	store *memStore
	drop  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d := &fakeDrive{}
	tg := &fakeTags{}
	st := &memStore{}

	c := NewCoordinator(Options{
		Drive:           d,
		Tags:            tg,
		Store:           st,
		Notifier:        notify.Discard{},
		Logger:          logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		Mapper:          drive.NewMapper("Blink Drive"),
		RemoteRoot:      "Blink Uploads",
		InterFileDelay:  time.Millisecond,
		MetadataTimeout: time.Second,
		UploadTimeout:   time.Second,
		TaxonomyTTL:     time.Minute,
	})
	return &fixture{c: c, drive: d, tags: tg, store: st, drop: t.TempDir()}
}

func (f *fixture) dropFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(f.drop, name)
	require.NoError(t, os.WriteFile(path, []byte("content of "+name), 0o644))
	return path
}

func (f *fixture) ready(t *testing.T, name string) models.QueueEntry {
	t.Helper()
	ctx := context.Background()
	f.c.OnFileReady(ctx, f.dropFile(t, name))
	snap := f.c.Refresh(ctx)
	for _, e := range snap {
		if e.FileName == name {
			return e
		}
	}
	t.Fatalf("entry for %s not found", name)
	return models.QueueEntry{}
}

func TestOnFileReady_DuplicatePathIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	path := f.dropFile(t, "a.pdf")
	f.c.OnFileReady(ctx, path)
	f.c.OnFileReady(ctx, path)

	assert.Len(t, f.c.Snapshot(), 1, "one live entry per path")
}

func TestOnFileReady_MissingFileIgnored(t *testing.T) {
	f := newFixture(t)
	f.c.OnFileReady(context.Background(), filepath.Join(f.drop, "gone.pdf"))
	assert.Empty(t, f.c.Snapshot())
}

func TestRefresh_PromotesDetectedEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.c.OnFileReady(ctx, f.dropFile(t, "a.pdf"))
	require.Equal(t, models.StatusDetected, f.c.Snapshot()[0].Status)

	snap := f.c.Refresh(ctx)
	require.Len(t, snap, 1)
	assert.Equal(t, models.StatusAwaitingAssignment, snap[0].Status)
	assert.Equal(t, "Blink Drive", snap[0].TargetFolder, "default destination is the root alias")
}

func TestRename_PreservesExtension(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.ready(t, "invoice.pdf")

	require.NoError(t, f.c.Rename(ctx, e.ID, "September Invoice"))
	assert.Equal(t, "September Invoice.pdf", f.c.Snapshot()[0].DisplayName)

	require.NoError(t, f.c.Rename(ctx, e.ID, "sept.v2.pdf"))
	assert.Equal(t, "sept.v2.pdf", f.c.Snapshot()[0].DisplayName)
}

func TestToggleTag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.ready(t, "a.pdf")

	require.NoError(t, f.c.ToggleTag(ctx, e.ID, 7))
	require.NoError(t, f.c.ToggleTag(ctx, e.ID, 9))
	assert.Equal(t, []int{7, 9}, f.c.Snapshot()[0].TagIDs)

	require.NoError(t, f.c.ToggleTag(ctx, e.ID, 7))
	assert.Equal(t, []int{9}, f.c.Snapshot()[0].TagIDs)
}

func TestEdit_UnknownEntry(t *testing.T) {
	f := newFixture(t)
	err := f.c.Rename(context.Background(), "nope", "x")
	require.ErrorIs(t, err, common.ErrEntryNotFound)
}

func TestProcess_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.ready(t, "invoice.pdf")

	require.NoError(t, f.c.Rename(ctx, e.ID, "September Invoice"))
	require.NoError(t, f.c.AssignFolder(ctx, e.ID, "Blink Drive/Invoices"))
	require.NoError(t, f.c.ToggleTag(ctx, e.ID, 12))

	require.NoError(t, f.c.Process(ctx, e.ID))

	snap := f.c.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, models.StatusCompleted, snap[0].Status)
	assert.False(t, snap[0].CompletedAt.IsZero())

	assert.Equal(t, []string{"Blink Uploads/Invoices"}, f.drive.folders,
		"destination resolved below the remote root")
	assert.Equal(t, []string{"September Invoice.pdf"}, f.drive.uploads)
	assert.Equal(t, []int{12}, f.tags.assoc["remote-September Invoice.pdf"])

	_, err := os.Stat(e.FilePath)
	assert.True(t, errors.Is(err, os.ErrNotExist), "source file removed after completion")

	hist, err := f.c.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "September Invoice.pdf", hist[0].DisplayName)
	assert.Equal(t, "remote-September Invoice.pdf", hist[0].RemoteFileID)
}

func TestProcess_NoTagsSkipsAssociation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.ready(t, "untagged.txt")

	require.NoError(t, f.c.Process(ctx, e.ID))

	assert.Equal(t, models.StatusCompleted, f.c.Snapshot()[0].Status)
	assert.Empty(t, f.tags.assoc, "no association call for an empty tag set")
}

func TestProcess_UploadFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.ready(t, "a.pdf")

	f.drive.failUpload = fmt.Errorf("%w: status 503", common.ErrUploadFailed)
	err := f.c.Process(ctx, e.ID)
	require.ErrorIs(t, err, common.ErrUploadFailed)

	snap := f.c.Snapshot()
	assert.Equal(t, models.StatusFailed, snap[0].Status)
	assert.Contains(t, snap[0].LastError, "status 503")

	_, serr := os.Stat(e.FilePath)
	assert.NoError(t, serr, "source file kept on failure")

	// A failed entry can be retried.
	f.drive.failUpload = nil
	require.NoError(t, f.c.Process(ctx, e.ID))
	assert.Equal(t, models.StatusCompleted, f.c.Snapshot()[0].Status)
}

func TestProcess_AssociationFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.ready(t, "a.pdf")
	require.NoError(t, f.c.ToggleTag(ctx, e.ID, 5))

	f.tags.failWith = fmt.Errorf("%w: backend down", common.ErrAssociationFailed)
	err := f.c.Process(ctx, e.ID)
	require.ErrorIs(t, err, common.ErrAssociationFailed)

	snap := f.c.Snapshot()
	assert.Equal(t, models.StatusFailed, snap[0].Status)
	assert.Equal(t, []string{"a.pdf"}, f.drive.uploads, "upload itself succeeded")

	_, serr := os.Stat(e.FilePath)
	assert.NoError(t, serr, "source kept until the whole pipeline succeeds")
}

func TestProcess_CompletionSurvivesCleanupFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.ready(t, "a.pdf")

	f.c.removeSource = func(string) error { return errors.New("locked by another process") }

	require.NoError(t, f.c.Process(ctx, e.ID))
	assert.Equal(t, models.StatusCompleted, f.c.Snapshot()[0].Status,
		"a successful upload is never reported as failed")

	hist, err := f.c.History(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestProcess_NotReady(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.c.OnFileReady(ctx, f.dropFile(t, "a.pdf"))
	id := f.c.Snapshot()[0].ID

	// Still detected; not promoted yet.
	err := f.c.Process(ctx, id)
	require.ErrorIs(t, err, common.ErrEntryNotReady)
}

func TestProcess_CancelDuringUploadDoesNotResurrect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.ready(t, "a.pdf")

	f.drive.blockOn = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- f.c.Process(ctx, e.ID) }()

	// Wait for the upload to be in flight, then cancel the entry.
	require.Eventually(t, func() bool {
		snap := f.c.Snapshot()
		return len(snap) == 1 && snap[0].Status == models.StatusUploading
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, f.c.Cancel(ctx, e.ID))
	close(f.drive.blockOn)

	require.NoError(t, <-done)
	assert.Empty(t, f.c.Snapshot(), "cancelled entry stays gone")
	assert.Empty(t, f.tags.assoc, "no association for a cancelled entry")
	assert.Equal(t, []string{"a.pdf"}, f.drive.uploads, "remote file was transferred and is kept")
}

func TestCancel_RemovesEntryAndSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.ready(t, "a.pdf")

	require.NoError(t, f.c.Cancel(ctx, e.ID))
	assert.Empty(t, f.c.Snapshot())

	_, err := os.Stat(e.FilePath)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	// The path is free again: a re-dropped file gets a fresh entry.
	f.c.OnFileReady(ctx, f.dropFile(t, "a.pdf"))
	assert.Len(t, f.c.Snapshot(), 1)
}

func TestProcessAll_ContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := f.ready(t, "bad.pdf")
	f.ready(t, "good-1.pdf")
	f.ready(t, "good-2.pdf")

	f.drive.failPaths = map[string]error{
		bad.FilePath: fmt.Errorf("%w: status 500", common.ErrUploadFailed),
	}

	succeeded, failed := f.c.ProcessAll(ctx)
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, failed)

	byName := map[string]models.Status{}
	for _, e := range f.c.Snapshot() {
		byName[e.FileName] = e.Status
	}
	assert.Equal(t, models.StatusFailed, byName["bad.pdf"])
	assert.Equal(t, models.StatusCompleted, byName["good-1.pdf"])
	assert.Equal(t, models.StatusCompleted, byName["good-2.pdf"])
}

func TestClearUnprocessed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	done := f.ready(t, "done.pdf")
	require.NoError(t, f.c.Process(ctx, done.ID))
	f.ready(t, "pending-1.pdf")
	f.ready(t, "pending-2.pdf")

	cleared := f.c.ClearUnprocessed(ctx)
	assert.Equal(t, 2, cleared)

	snap := f.c.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, models.StatusCompleted, snap[0].Status, "completed entries survive a clear")
}

func TestTaxonomy_CachedAfterFirstLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tags.taxonomy = []models.TagCategory{{ID: 1, Name: "Type"}}

	first := f.c.Taxonomy(ctx)
	second := f.c.Taxonomy(ctx)

	require.Len(t, first, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.tags.listed, "second read served from cache")
}

func TestTaxonomy_EmptyResultIsNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.Empty(t, f.c.Taxonomy(ctx))

	f.tags.mu.Lock()
	f.tags.taxonomy = []models.TagCategory{{ID: 1, Name: "Type"}}
	f.tags.mu.Unlock()

	got := f.c.Taxonomy(ctx)
	require.Len(t, got, 1, "taxonomy retried once the backend recovered")
	assert.Equal(t, 2, f.tags.listed)
}

func TestRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	survivor := f.dropFile(t, "survivor.pdf")
	interrupted := f.dropFile(t, "interrupted.pdf")
	fresh := f.dropFile(t, "fresh.pdf")

	require.NoError(t, f.store.SaveQueueSnapshot(ctx, []models.QueueEntry{
		{ID: "e1", FilePath: survivor, FileName: "survivor.pdf",
			Status: models.StatusAwaitingAssignment, DetectedAt: time.Unix(1, 0)},
		{ID: "e2", FilePath: interrupted, FileName: "interrupted.pdf",
			Status: models.StatusUploading, DetectedAt: time.Unix(2, 0)},
		{ID: "e3", FilePath: filepath.Join(f.drop, "vanished.pdf"), FileName: "vanished.pdf",
			Status: models.StatusAwaitingAssignment, DetectedAt: time.Unix(3, 0)},
	}))

	f.c.Restore(ctx, []string{survivor, interrupted, fresh})

	byName := map[string]models.QueueEntry{}
	for _, e := range f.c.Snapshot() {
		byName[e.FileName] = e
	}
	require.Len(t, byName, 3)

	assert.Equal(t, models.StatusAwaitingAssignment, byName["survivor.pdf"].Status)
	assert.Equal(t, "e1", byName["survivor.pdf"].ID, "persisted entry keeps its identity")

	assert.Equal(t, models.StatusFailed, byName["interrupted.pdf"].Status)
	assert.Equal(t, "interrupted by shutdown", byName["interrupted.pdf"].LastError)

	assert.Equal(t, models.StatusDetected, byName["fresh.pdf"].Status, "unknown on-disk file taken in fresh")
	assert.NotContains(t, byName, "vanished.pdf")
}

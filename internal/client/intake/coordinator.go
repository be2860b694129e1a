// Package intake owns the processing queue: it tracks every detected file
// from first sighting to completed upload, applies user metadata edits, and
// drives the two-phase processing pipeline (drive upload, then tag
// association, then source cleanup).
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aussiephantom/blinkapp-desktop/internal/client/drive"
	"github.com/aussiephantom/blinkapp-desktop/internal/client/models"
	"github.com/aussiephantom/blinkapp-desktop/internal/client/notify"
	"github.com/aussiephantom/blinkapp-desktop/internal/client/store"
	"github.com/aussiephantom/blinkapp-desktop/internal/common"
	"github.com/aussiephantom/blinkapp-desktop/internal/filex"
	"github.com/aussiephantom/blinkapp-desktop/internal/logging"
)

const taxonomyCacheKey = "taxonomy"

// DriveClient is the slice of the drive API the coordinator needs.
type DriveClient interface {
	FindOrCreateFolder(ctx context.Context, remotePath string) (*models.RemoteFolder, error)
	UploadFile(ctx context.Context, folder *models.RemoteFolder, srcPath, name string) (*models.RemoteFile, error)
}

// TagClient is the slice of the backend API the coordinator needs.
type TagClient interface {
	ListTagCategories(ctx context.Context) ([]models.TagCategory, error)
	CreateAssociations(ctx context.Context, fileID string, tagIDs []int) error
}

// Options configures a Coordinator.
type Options struct {
	Drive    DriveClient
	Tags     TagClient
	Store    store.Store
	Notifier notify.Notifier
	Logger   logging.Logger

	// Mapper translates the user-facing destination folder to the
	// drive-relative path below RemoteRoot.
	Mapper     *drive.Mapper
	RemoteRoot string

	InterFileDelay  time.Duration
	MetadataTimeout time.Duration
	UploadTimeout   time.Duration
	TaxonomyTTL     time.Duration
}

// Coordinator serializes all queue mutations behind one mutex. Remote calls
// run outside the lock; every post-call transition re-checks that the entry
// still exists, so a concurrent cancel wins cleanly.
type Coordinator struct {
	drive    DriveClient
	tags     TagClient
	store    store.Store
	notifier notify.Notifier
	log      logging.Logger

	mapper     *drive.Mapper
	remoteRoot string

	interFileDelay  time.Duration
	metadataTimeout time.Duration
	uploadTimeout   time.Duration
	taxonomyTTL     time.Duration

	now          func() time.Time
	newID        func() string
	removeSource func(string) error

	mu      sync.Mutex
	entries map[string]*models.QueueEntry
	byPath  map[string]string
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(opts Options) *Coordinator {
	return &Coordinator{
		drive:           opts.Drive,
		tags:            opts.Tags,
		store:           opts.Store,
		notifier:        opts.Notifier,
		log:             opts.Logger,
		mapper:          opts.Mapper,
		remoteRoot:      opts.RemoteRoot,
		interFileDelay:  opts.InterFileDelay,
		metadataTimeout: opts.MetadataTimeout,
		uploadTimeout:   opts.UploadTimeout,
		taxonomyTTL:     opts.TaxonomyTTL,
		now:             time.Now,
		newID:           func() string { return uuid.NewString() },
		removeSource:    os.Remove,
		entries:         make(map[string]*models.QueueEntry),
		byPath:          make(map[string]string),
	}
}

// OnFileReady registers a newly settled file. A path that already has a live
// entry is ignored: the watcher may re-announce a file after an in-place
// rewrite, and the existing entry keeps the user's edits.
func (c *Coordinator) OnFileReady(ctx context.Context, path string) {
	size, err := filex.Size(path)
	if err != nil {
		c.log.Warn(ctx, "detected file vanished before intake", "path", path, "error", err)
		return
	}

	c.mu.Lock()
	if _, ok := c.byPath[path]; ok {
		c.mu.Unlock()
		c.log.Debug(ctx, "ignoring duplicate detection", "path", path)
		return
	}

	name := filepath.Base(path)
	e := &models.QueueEntry{
		ID:            c.newID(),
		FilePath:      path,
		FileName:      name,
		DisplayName:   name,
		FileSizeBytes: size,
		TargetFolder:  c.mapper.ToDisplay(""),
		Status:        models.StatusDetected,
		DetectedAt:    c.now(),
	}
	c.entries[e.ID] = e
	c.byPath[path] = e.ID
	c.mu.Unlock()

	c.persist(ctx)
	c.log.Info(ctx, "file detected", "path", path, "entry", e.ID, "size", size)
	c.notifier.Notify(ctx, "File detected", name, nil)
}

// Snapshot returns the queue ordered by detection time.
func (c *Coordinator) Snapshot() []models.QueueEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() []models.QueueEntry {
	out := make([]models.QueueEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DetectedAt.Equal(out[j].DetectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].DetectedAt.Before(out[j].DetectedAt)
	})
	return out
}

// Refresh promotes freshly detected entries to awaiting-assignment and
// returns the current queue. Promotion is tied to the queue being viewed:
// once the user has seen an entry it is ready for metadata edits.
func (c *Coordinator) Refresh(ctx context.Context) []models.QueueEntry {
	c.mu.Lock()
	changed := false
	for _, e := range c.entries {
		if e.Status == models.StatusDetected {
			e.Status = models.StatusAwaitingAssignment
			changed = true
		}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if changed {
		c.persist(ctx)
	}
	return snap
}

// Taxonomy returns the tag categories with their tags, served from the local
// cache while fresh. An unreachable backend yields an empty taxonomy rather
// than an error: tagging is optional and the queue must stay usable offline.
func (c *Coordinator) Taxonomy(ctx context.Context) []models.TagCategory {
	if data, ok, err := c.store.CacheGet(ctx, taxonomyCacheKey); err == nil && ok {
		var cats []models.TagCategory
		if err := json.Unmarshal(data, &cats); err == nil {
			return cats
		}
	}

	ctx2, cancel := context.WithTimeout(ctx, c.metadataTimeout)
	defer cancel()

	cats, err := c.tags.ListTagCategories(ctx2)
	if err != nil {
		c.log.Warn(ctx, "taxonomy unavailable", "error", err)
		return nil
	}
	if len(cats) == 0 {
		// Do not cache an empty result: a backend outage would otherwise
		// hide tags for the whole TTL.
		return nil
	}

	if data, err := json.Marshal(cats); err == nil {
		if err := c.store.CacheSet(ctx, taxonomyCacheKey, data, c.taxonomyTTL); err != nil {
			c.log.Debug(ctx, "taxonomy cache write failed", "error", err)
		}
	}
	return cats
}

// AssignFolder sets the destination folder shown to the user.
func (c *Coordinator) AssignFolder(ctx context.Context, id, displayFolder string) error {
	err := c.edit(id, func(e *models.QueueEntry) {
		e.TargetFolder = displayFolder
	})
	if err != nil {
		return err
	}
	c.persist(ctx)
	return nil
}

// ToggleTag adds the tag to the entry, or removes it when already present.
func (c *Coordinator) ToggleTag(ctx context.Context, id string, tagID int) error {
	err := c.edit(id, func(e *models.QueueEntry) {
		if e.HasTag(tagID) {
			kept := e.TagIDs[:0]
			for _, t := range e.TagIDs {
				if t != tagID {
					kept = append(kept, t)
				}
			}
			e.TagIDs = kept
			return
		}
		e.TagIDs = append(e.TagIDs, tagID)
	})
	if err != nil {
		return err
	}
	c.persist(ctx)
	return nil
}

// Rename sets the display name used for the uploaded file. The original
// file extension is preserved when the new name omits one.
func (c *Coordinator) Rename(ctx context.Context, id, name string) error {
	err := c.edit(id, func(e *models.QueueEntry) {
		e.DisplayName = filex.PreserveExt(name, e.FileName)
	})
	if err != nil {
		return err
	}
	c.persist(ctx)
	return nil
}

// edit applies fn to the entry when it is still editable. Entries that are
// mid-flight or completed reject edits.
func (c *Coordinator) edit(id string, fn func(*models.QueueEntry)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return common.ErrEntryNotFound
	}
	switch e.Status {
	case models.StatusUploading, models.StatusAssociating, models.StatusCompleted:
		return fmt.Errorf("%w: entry is %s", common.ErrEntryNotReady, e.Status)
	}
	fn(e)
	return nil
}

// Process runs the full pipeline for one entry: resolve the destination
// folder, upload, record tag associations, then delete the source file.
// Once the upload and association have succeeded the entry is completed and
// never retracted, even when the source file cannot be removed.
func (c *Coordinator) Process(ctx context.Context, id string) error {
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok {
		c.mu.Unlock()
		return common.ErrEntryNotFound
	}
	if !e.Status.Processable() {
		status := e.Status
		c.mu.Unlock()
		return fmt.Errorf("%w: entry is %s", common.ErrEntryNotReady, status)
	}
	e.Status = models.StatusUploading
	e.LastError = ""
	work := *e
	c.mu.Unlock()
	c.persist(ctx)

	remote, err := c.upload(ctx, work)
	if err != nil {
		c.fail(ctx, id, err)
		return err
	}

	// The user may have cancelled while the upload was in flight. The
	// remote file stays (it was transferred successfully); the local entry
	// is gone and must not be resurrected.
	c.mu.Lock()
	e, ok = c.entries[id]
	if !ok {
		c.mu.Unlock()
		c.log.Info(ctx, "entry cancelled during upload; keeping remote file", "entry", id, "remote", remote.ID)
		return nil
	}
	e.Status = models.StatusAssociating
	tagIDs := append([]int(nil), e.TagIDs...)
	c.mu.Unlock()
	c.persist(ctx)

	if err := c.associate(ctx, remote.ID, tagIDs); err != nil {
		c.fail(ctx, id, err)
		return err
	}

	c.mu.Lock()
	e, ok = c.entries[id]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	e.Status = models.StatusCompleted
	e.CompletedAt = c.now()
	done := *e
	delete(c.byPath, e.FilePath)
	c.mu.Unlock()
	c.persist(ctx)

	rec := models.HistoryRecord{
		EntryID:      done.ID,
		FileName:     done.FileName,
		DisplayName:  done.DisplayName,
		TargetFolder: done.TargetFolder,
		RemoteFileID: remote.ID,
		WebURL:       remote.WebURL,
		SizeBytes:    done.FileSizeBytes,
		TagIDs:       done.TagIDs,
		CompletedAt:  done.CompletedAt,
	}
	if err := c.store.AppendHistory(ctx, rec); err != nil {
		c.log.Warn(ctx, "history append failed", "entry", id, "error", err)
	}

	// Source cleanup is best-effort. The upload already succeeded, so a
	// leftover local file must never look like a failed upload.
	if err := c.removeSource(done.FilePath); err != nil {
		c.log.Warn(ctx, "source file cleanup failed", "path", done.FilePath, "error", err)
		c.notifier.Notify(ctx, "Cleanup needed",
			fmt.Sprintf("%s was uploaded but could not be removed from the drop folder", done.FileName), nil)
	}

	c.log.Info(ctx, "upload completed", "entry", id, "remote", remote.ID, "name", done.DisplayName)
	c.notifier.Notify(ctx, "Upload complete", done.DisplayName, nil)
	return nil
}

func (c *Coordinator) upload(ctx context.Context, e models.QueueEntry) (*models.RemoteFile, error) {
	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	remotePath := c.remoteRoot
	if rel := c.mapper.ToRemote(e.TargetFolder); rel != "" {
		remotePath += "/" + rel
	}

	folder, err := c.drive.FindOrCreateFolder(ctx, remotePath)
	if err != nil {
		return nil, err
	}
	return c.drive.UploadFile(ctx, folder, e.FilePath, e.DisplayName)
}

func (c *Coordinator) associate(ctx context.Context, fileID string, tagIDs []int) error {
	if len(tagIDs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.metadataTimeout)
	defer cancel()
	return c.tags.CreateAssociations(ctx, fileID, tagIDs)
}

func (c *Coordinator) fail(ctx context.Context, id string, cause error) {
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	e.Status = models.StatusFailed
	e.LastError = cause.Error()
	name := e.DisplayName
	c.mu.Unlock()
	c.persist(ctx)

	c.log.Error(ctx, "processing failed", "entry", id, "error", cause)
	c.notifier.Notify(ctx, "Upload failed", name, nil)
}

// ProcessAll processes every ready entry sequentially in detection order,
// pausing between files. One failure does not stop the batch.
func (c *Coordinator) ProcessAll(ctx context.Context) (succeeded, failed int) {
	c.mu.Lock()
	var ids []string
	for _, e := range c.snapshotLocked() {
		if e.Status.Processable() {
			ids = append(ids, e.ID)
		}
	}
	c.mu.Unlock()

	for i, id := range ids {
		if i > 0 && c.interFileDelay > 0 {
			select {
			case <-time.After(c.interFileDelay):
			case <-ctx.Done():
				return succeeded, failed
			}
		}
		if err := c.Process(ctx, id); err != nil {
			failed++
			continue
		}
		succeeded++
	}
	return succeeded, failed
}

// Cancel removes the entry and deletes its source file. Entries that are
// mid-flight cannot be cancelled synchronously; the entry is removed and the
// in-flight pipeline notices on its next transition.
func (c *Coordinator) Cancel(ctx context.Context, id string) error {
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok {
		c.mu.Unlock()
		return common.ErrEntryNotFound
	}
	delete(c.entries, id)
	delete(c.byPath, e.FilePath)
	path := e.FilePath
	name := e.FileName
	c.mu.Unlock()
	c.persist(ctx)

	if err := c.removeSource(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.log.Warn(ctx, "cancelled entry source not removed", "path", path, "error", err)
		return fmt.Errorf("%w: remove %s: %w", common.ErrLocalIO, path, err)
	}
	c.log.Info(ctx, "entry cancelled", "entry", id, "file", name)
	return nil
}

// ClearUnprocessed cancels every entry that has not started processing.
// Returns the number of entries removed.
func (c *Coordinator) ClearUnprocessed(ctx context.Context) int {
	c.mu.Lock()
	var ids []string
	for _, e := range c.entries {
		switch e.Status {
		case models.StatusDetected, models.StatusAwaitingAssignment, models.StatusFailed:
			ids = append(ids, e.ID)
		}
	}
	c.mu.Unlock()

	cleared := 0
	for _, id := range ids {
		if err := c.Cancel(ctx, id); err == nil {
			cleared++
		}
	}
	return cleared
}

// History returns the most recent completed uploads.
func (c *Coordinator) History(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	return c.store.History(ctx, limit)
}

// Restore rebuilds the queue after a restart: persisted entries whose source
// file still exists come back, interrupted in-flight entries come back as
// failed, and files found on disk with no entry are taken in fresh.
func (c *Coordinator) Restore(ctx context.Context, scanned []string) {
	persisted, err := c.store.LoadQueueSnapshot(ctx)
	if err != nil {
		c.log.Warn(ctx, "queue snapshot load failed", "error", err)
	}

	c.mu.Lock()
	for _, e := range persisted {
		if e.Status == models.StatusCompleted {
			continue
		}
		if _, err := os.Stat(e.FilePath); err != nil {
			continue
		}
		entry := e
		switch entry.Status {
		case models.StatusUploading, models.StatusAssociating:
			entry.Status = models.StatusFailed
			entry.LastError = "interrupted by shutdown"
		}
		c.entries[entry.ID] = &entry
		c.byPath[entry.FilePath] = entry.ID
	}
	c.mu.Unlock()

	for _, path := range scanned {
		c.OnFileReady(ctx, path)
	}
	c.persist(ctx)
}

// persist writes the queue snapshot; persistence is best-effort.
func (c *Coordinator) persist(ctx context.Context) {
	c.mu.Lock()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	kept := snap[:0]
	for _, e := range snap {
		if e.Status != models.StatusCompleted {
			kept = append(kept, e)
		}
	}
	if err := c.store.SaveQueueSnapshot(ctx, kept); err != nil {
		c.log.Debug(ctx, "queue snapshot save failed", "error", err)
	}
}

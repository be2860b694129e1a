// Package watcher monitors the drop folder and reports files once they have
// settled: a file is announced only after no write activity has been seen
// for the configured quiet period, so half-copied files are never picked up.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aussiephantom/blinkapp-desktop/internal/filex"
	"github.com/aussiephantom/blinkapp-desktop/internal/logging"
)

// Watcher watches a single drop folder. Ready files are delivered on the
// Events channel; hidden files and subdirectories are ignored.
type Watcher struct {
	quietPeriod time.Duration
	log         logging.Logger

	events chan string

	mu       sync.Mutex
	fs       *fsnotify.Watcher
	pending  map[string]*time.Timer
	cancel   context.CancelFunc
	watching string
}

// New returns a stopped Watcher. Call Start to begin monitoring.
func New(quietPeriod time.Duration, log logging.Logger) *Watcher {
	return &Watcher{
		quietPeriod: quietPeriod,
		log:         log,
		events:      make(chan string, 64),
		pending:     make(map[string]*time.Timer),
	}
}

// Events returns the channel of settled file paths. The channel stays open
// across Start/Stop cycles.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// Start begins watching dir. Calling Start while already watching stops the
// previous watch first, so a drop-folder change in the configuration takes
// effect without leaking the old watch.
func (w *Watcher) Start(ctx context.Context, dir string) error {
	w.Stop()

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create drop folder %s: %w", dir, err)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("init watcher: %w", err)
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)

	w.mu.Lock()
	w.fs = fs
	w.cancel = cancel
	w.watching = dir
	w.mu.Unlock()

	go w.loop(ctx, fs)
	w.log.Info(ctx, "watching drop folder", "dir", dir, "quiet_period", w.quietPeriod)
	return nil
}

// Stop halts the current watch and drops all pending debounce timers.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.fs != nil {
		w.fs.Close()
		w.fs = nil
	}
	for p, t := range w.pending {
		t.Stop()
		delete(w.pending, p)
	}
	w.watching = ""
}

func (w *Watcher) loop(ctx context.Context, fs *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fs.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) {
				w.touch(ctx, ev.Name)
			}
			if ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
				w.forget(ev.Name)
			}

		case err, ok := <-fs.Errors:
			if !ok {
				return
			}
			w.log.Warn(ctx, "watch error", "error", err)
		}
	}
}

// touch resets the quiet-period timer for path. Every write pushes readiness
// out; the file is announced only after the timer fires untouched.
func (w *Watcher) touch(ctx context.Context, path string) {
	if filex.IsHidden(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.quietPeriod)
		return
	}
	w.pending[path] = time.AfterFunc(w.quietPeriod, func() {
		w.settle(ctx, path)
	})
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) settle(ctx context.Context, path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	w.log.Debug(ctx, "file settled", "path", path, "size", info.Size())
	select {
	case w.events <- path:
	case <-ctx.Done():
	}
}

// Scan walks the watched directory once and returns the regular, visible
// files already present. Used at startup to pick up files dropped while the
// application was not running.
func (w *Watcher) Scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || filex.IsHidden(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

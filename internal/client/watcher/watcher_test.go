package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiephantom/blinkapp-desktop/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func waitForEvent(t *testing.T, ch <-chan string, timeout time.Duration) string {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(timeout):
		t.Fatal("timed out waiting for a settled file")
		return ""
	}
}

func TestWatcher_AnnouncesSettledFile(t *testing.T) {
	dir := t.TempDir()
	w := New(50*time.Millisecond, testLogger())
	t.Cleanup(w.Stop)

	require.NoError(t, w.Start(context.Background(), dir))

	path := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	got := waitForEvent(t, w.Events(), 2*time.Second)
	assert.Equal(t, path, got)
}

func TestWatcher_QuietPeriodResetsOnWrites(t *testing.T) {
	dir := t.TempDir()
	w := New(150*time.Millisecond, testLogger())
	t.Cleanup(w.Stop)

	require.NoError(t, w.Start(context.Background(), dir))

	path := filepath.Join(dir, "slow-copy.bin")
	f, err := os.Create(path)
	require.NoError(t, err)

	// Keep writing more often than the quiet period; the file must not be
	// announced while writes are still arriving.
	for i := 0; i < 4; i++ {
		_, err := f.WriteString("chunk")
		require.NoError(t, err)
		time.Sleep(50 * time.Millisecond)

		select {
		case p := <-w.Events():
			t.Fatalf("file %s announced while still being written", p)
		default:
		}
	}
	require.NoError(t, f.Close())

	got := waitForEvent(t, w.Events(), 2*time.Second)
	assert.Equal(t, path, got)
}

func TestWatcher_IgnoresHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	w := New(50*time.Millisecond, testLogger())
	t.Cleanup(w.Stop)

	require.NoError(t, w.Start(context.Background(), dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".DS_Store"), []byte("x"), 0o644))
	visible := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(visible, []byte("x"), 0o644))

	got := waitForEvent(t, w.Events(), 2*time.Second)
	assert.Equal(t, visible, got, "only the visible file is announced")

	select {
	case p := <-w.Events():
		t.Fatalf("unexpected extra event for %s", p)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_RemovedFileIsNotAnnounced(t *testing.T) {
	dir := t.TempDir()
	w := New(200*time.Millisecond, testLogger())
	t.Cleanup(w.Stop)

	require.NoError(t, w.Start(context.Background(), dir))

	path := filepath.Join(dir, "fleeting.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Remove(path))

	select {
	case p := <-w.Events():
		t.Fatalf("removed file %s was announced", p)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcher_RestartSwitchesFolder(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	w := New(50*time.Millisecond, testLogger())
	t.Cleanup(w.Stop)

	require.NoError(t, w.Start(context.Background(), dirA))
	require.NoError(t, w.Start(context.Background(), dirB))

	// dirA is no longer watched.
	require.NoError(t, os.WriteFile(filepath.Join(dirA, "old.txt"), []byte("x"), 0o644))
	pathB := filepath.Join(dirB, "new.txt")
	require.NoError(t, os.WriteFile(pathB, []byte("x"), 0o644))

	got := waitForEvent(t, w.Events(), 2*time.Second)
	assert.Equal(t, pathB, got)
}

func TestScan_ReturnsVisibleRegularFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o750))

	w := New(time.Second, testLogger())
	files, err := w.Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.pdf")}, files)
}

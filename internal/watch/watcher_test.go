package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ragerr "github.com/studydeck/studyrag/internal/errors"
)

func newTestWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	w, err := New(root, Options{DebounceWindow: 50 * time.Millisecond}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func waitForBatch(t *testing.T, w *Watcher) []Event {
	t.Helper()
	select {
	case batch := <-w.Events():
		return batch
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch events")
		return nil
	}
}

func TestWatcher_EmitsCreateForNewNote(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("fresh note"), 0o644))

	batch := waitForBatch(t, w)
	require.NotEmpty(t, batch)
	assert.Equal(t, path, batch[0].Path)
	assert.Equal(t, OpCreate, batch[0].Op)
}

func TestWatcher_IgnoresNonNoteFiles(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "binary.bin"), []byte{0x42}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real.md"), []byte("note"), 0o644))

	batch := waitForBatch(t, w)
	require.Len(t, batch, 1)
	assert.Equal(t, "real.md", filepath.Base(batch[0].Path))
}

func TestWatcher_SeesNotesInNewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	sub := filepath.Join(dir, "chapter1")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the watcher a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "intro.md"), []byte("note"), 0o644))

	batch := waitForBatch(t, w)
	require.NotEmpty(t, batch)
	assert.Equal(t, "intro.md", filepath.Base(batch[0].Path))
}

func TestWatcher_RootMustBeDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.md")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := New(file, Options{}, nil)

	require.Error(t, err)
	assert.Equal(t, ragerr.ErrCodeInvalidInput, ragerr.CodeOf(err))
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := newTestWatcher(t, t.TempDir())

	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

package watch

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	ragerr "github.com/studydeck/studyrag/internal/errors"
)

// Watcher observes a directory tree recursively and emits debounced
// batches of note-file events.
type Watcher struct {
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	opts      Options
	logger    *slog.Logger
	root      string
	stopCh    chan struct{}
	mu        sync.Mutex
	stopped   bool
}

// New creates a watcher for the given root directory.
func New(root string, opts Options, logger *slog.Logger) (*Watcher, error) {
	opts = opts.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrCodeInvalidInput, "resolve watch root", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrCodeInvalidInput, "stat watch root", err)
	}
	if !info.IsDir() {
		return nil, ragerr.New(ragerr.ErrCodeInvalidInput, "watch root is not a directory", nil).
			WithDetail("path", absRoot)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ragerr.New(ragerr.ErrCodeInternal, "create filesystem watcher", err)
	}

	w := &Watcher{
		fsw:       fsw,
		debouncer: NewDebouncer(opts.DebounceWindow),
		opts:      opts,
		logger:    logger,
		root:      absRoot,
		stopCh:    make(chan struct{}),
	}

	if err := w.addRecursive(absRoot); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	go w.run()
	return w, nil
}

// addRecursive registers every non-hidden directory under root.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("watch_walk_error",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return ragerr.New(ragerr.ErrCodeInternal, "add directory to watcher", err).
				WithDetail("path", path)
		}
		return nil
	})
}

// run translates raw fsnotify events into debounced note events.
func (w *Watcher) run() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch_error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	// New directories must be added so nested files are seen.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !skipDir(filepath.Base(event.Name)) {
				_ = w.addRecursive(event.Name)
			}
			return
		}
	}

	if !w.opts.isNoteFile(event.Name) {
		return
	}

	var op Op
	switch {
	case event.Op.Has(fsnotify.Create):
		op = OpCreate
	case event.Op.Has(fsnotify.Write):
		op = OpModify
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		op = OpDelete
	default:
		return
	}

	w.debouncer.Add(Event{
		Path:      event.Name,
		Op:        op,
		Timestamp: time.Now(),
	})
}

// Events returns the channel of debounced event batches. The channel
// is closed when the watcher stops.
func (w *Watcher) Events() <-chan []Event {
	return w.debouncer.Output()
}

// Root returns the absolute path being watched.
func (w *Watcher) Root() string {
	return w.root
}

// Stop stops the watcher and releases resources. Safe to call
// multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	err := w.fsw.Close()
	w.debouncer.Stop()
	return err
}

// Package watch observes a directory tree for note-file changes so
// the indexed material can follow edits on disk. Raw filesystem
// events are coalesced through a debounce window before being
// emitted as batches.
package watch

import (
	"path/filepath"
	"strings"
	"time"
)

// Op is the kind of change an event reports.
type Op int

const (
	// OpCreate indicates a new note file appeared.
	OpCreate Op = iota
	// OpModify indicates an existing note file changed.
	OpModify
	// OpDelete indicates a note file was removed.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Event is a single coalesced note-file change.
type Event struct {
	// Path is the absolute path of the changed file.
	Path string

	// Op is the coalesced operation.
	Op Op

	// Timestamp is when the change was first observed.
	Timestamp time.Time
}

// Options configures a Watcher.
type Options struct {
	// DebounceWindow is how long to coalesce rapid events before
	// emitting a batch. Default: 500ms.
	DebounceWindow time.Duration

	// Extensions are the file extensions treated as notes,
	// lowercase with leading dot. Default: .md, .markdown, .txt.
	Extensions []string
}

// WithDefaults returns the options with defaults applied for zero
// values.
func (o Options) WithDefaults() Options {
	if o.DebounceWindow == 0 {
		o.DebounceWindow = 500 * time.Millisecond
	}
	if len(o.Extensions) == 0 {
		o.Extensions = []string{".md", ".markdown", ".txt"}
	}
	return o
}

// isNoteFile reports whether the path carries one of the watched
// extensions.
func (o Options) isNoteFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range o.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// skipDir reports whether a directory should be excluded from
// watching. Hidden directories and the local store directory hold no
// notes.
func skipDir(name string) bool {
	return strings.HasPrefix(name, ".")
}

package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_PlainPrefixesWhenNotTTY(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf) // a bytes.Buffer is never a terminal

	w.Success("indexed 12 chunks")
	w.Warning("2 records skipped")
	w.Error("store unreachable")
	w.Info("done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "ok: indexed 12 chunks", lines[0])
	assert.Equal(t, "warning: 2 records skipped", lines[1])
	assert.Equal(t, "error: store unreachable", lines[2])
	assert.Equal(t, "done", lines[3])
}

func TestWriter_DecoratedUsesIcons(t *testing.T) {
	var buf bytes.Buffer
	w := &Writer{out: &buf, decorated: true}

	w.Success("saved")

	assert.Contains(t, buf.String(), "✅ saved")
}

func TestWriter_Quote(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Quote("first line\nsecond line")

	assert.Equal(t, "  first line\n  second line\n", buf.String())
}

func TestWriter_ProgressSilentWhenNotDecorated(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Progress(5, 10, "embedding")

	assert.Empty(t, buf.String())
}

func TestWriter_ProgressRendersBar(t *testing.T) {
	var buf bytes.Buffer
	w := &Writer{out: &buf, decorated: true}

	w.Progress(5, 10, "embedding")

	out := buf.String()
	assert.Contains(t, out, "50%")
	assert.Contains(t, out, "embedding")
}

func TestRenderProgressBar_Bounds(t *testing.T) {
	assert.Equal(t, strings.Repeat("░", 10), renderProgressBar(0, 0, 10))
	assert.Equal(t, strings.Repeat("█", 10), renderProgressBar(20, 10, 10))
}

func TestIsTTY_FalseForBuffer(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
	assert.False(t, IsTTY(nil))
}

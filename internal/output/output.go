// Package output provides consistent CLI output formatting. Icons and
// in-place progress are used on a terminal; plain prefixed lines
// otherwise, so piped output stays parseable.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Writer provides formatted output for the CLI.
type Writer struct {
	out       io.Writer
	decorated bool
}

// New creates a Writer, auto-detecting terminal decoration.
func New(out io.Writer) *Writer {
	return &Writer{
		out:       out,
		decorated: IsTTY(out) && !noColor(),
	}
}

// NewPlain creates a Writer with decoration disabled.
func NewPlain(out io.Writer) *Writer {
	return &Writer{out: out}
}

// IsTTY checks whether the writer is an interactive terminal.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

func noColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// status prints one line, decorated with an icon on a terminal and a
// plain prefix otherwise. Write errors are ignored for console output.
func (w *Writer) status(icon, prefix, msg string) {
	if w.decorated && icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
		return
	}
	if prefix != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", prefix, msg)
		return
	}
	_, _ = fmt.Fprintln(w.out, msg)
}

// Info prints a neutral message.
func (w *Writer) Info(msg string) {
	w.status("", "", msg)
}

// Infof prints a formatted neutral message.
func (w *Writer) Infof(format string, args ...any) {
	w.Info(fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (w *Writer) Success(msg string) {
	w.status("✅", "ok:", msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.status("⚠️ ", "warning:", msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.status("❌", "error:", msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Quote prints an indented block, used for answers and chunk text.
func (w *Writer) Quote(content string) {
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
}

// Progress prints a progress bar, updating in place on a terminal and
// printing nothing otherwise.
func (w *Writer) Progress(current, total int, msg string) {
	if total <= 0 || !w.decorated {
		return
	}

	pct := float64(current) / float64(total) * 100
	bar := renderProgressBar(current, total, 30)
	_, _ = fmt.Fprintf(w.out, "\r[%s] %.0f%% %s", bar, pct, msg)
	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

// renderProgressBar creates a text progress bar of the given width.
func renderProgressBar(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}

	filled := int(float64(current) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	ragerr "github.com/studydeck/studyrag/internal/errors"
	"github.com/studydeck/studyrag/internal/token"
)

// Splitter produces sliding-window chunks from raw text.
//
// Token-based windows are preferred; when the configured codec is the
// character heuristic the splitter transparently falls back to
// character windows scaled by token.CharsPerToken. That fallback is
// never an error.
type Splitter struct {
	codec token.Codec
}

// NewSplitter creates a splitter using the given codec. A nil codec
// selects the character heuristic.
func NewSplitter(codec token.Codec) *Splitter {
	if codec == nil {
		codec = token.Heuristic{}
	}
	return &Splitter{codec: codec}
}

// validateWindow rejects window configurations that cannot terminate.
// overlap >= maxSize would restart every window at or before its own
// start; it is rejected rather than clamped so misconfiguration is
// visible.
func validateWindow(maxSize, overlap int) error {
	if maxSize <= 0 {
		return ragerr.New(ragerr.ErrCodeInvalidChunking,
			fmt.Sprintf("chunk size must be positive, got %d", maxSize), nil)
	}
	if overlap < 0 {
		return ragerr.New(ragerr.ErrCodeInvalidChunking,
			fmt.Sprintf("overlap must be non-negative, got %d", overlap), nil)
	}
	if overlap >= maxSize {
		return ragerr.New(ragerr.ErrCodeInvalidChunking,
			fmt.Sprintf("overlap %d must be smaller than chunk size %d", overlap, maxSize), nil).
			WithSuggestion("reduce overlap or increase chunk size")
	}
	return nil
}

// Split chunks text into windows of at most maxTokens tokens with the
// given overlap, deduplicates by content hash, and drops fragments
// shorter than MinChunkLen. sourceRef is recorded on every chunk.
//
// Empty input yields an empty slice. Input that fits a single window
// yields exactly one chunk.
func (s *Splitter) Split(text string, maxTokens, overlapTokens int, sourceRef string) ([]Chunk, error) {
	if err := validateWindow(maxTokens, overlapTokens); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var windows []string
	if s.codec.Exact() {
		windows = windowTokens(s.codec, text, maxTokens, overlapTokens)
	} else {
		// No tokenizer: scale the token budget to characters.
		windows = windowChars(text, maxTokens*token.CharsPerToken, overlapTokens*token.CharsPerToken)
	}

	return s.finalize(windows, sourceRef), nil
}

// SplitChars chunks text into character windows of at most size chars.
// Used when the caller configures sizes in characters explicitly.
func (s *Splitter) SplitChars(text string, size, overlap int, sourceRef string) ([]Chunk, error) {
	if err := validateWindow(size, overlap); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return s.finalize(windowChars(text, size, overlap), sourceRef), nil
}

// windowTokens slides a token window over text: window i spans
// [start, start+maxTokens); the next window starts at max(0, end-overlap);
// iteration stops once a window reaches the end of input.
func windowTokens(codec token.Codec, text string, maxTokens, overlap int) []string {
	toks := codec.Encode(text)
	n := len(toks)
	if n <= maxTokens {
		return []string{text}
	}

	var out []string
	i := 0
	for i < n {
		j := i + maxTokens
		if j > n {
			j = n
		}
		out = append(out, codec.Decode(toks[i:j]))
		if j == n {
			break
		}
		i = j - overlap
		if i < 0 {
			i = 0
		}
	}
	return out
}

// windowChars is the character-window twin of windowTokens. Windows
// slide over runes, not bytes, so multibyte text never splits
// mid-character.
func windowChars(text string, size, overlap int) []string {
	runes := []rune(text)
	n := len(runes)
	if n <= size {
		return []string{text}
	}

	var out []string
	i := 0
	for i < n {
		j := i + size
		if j > n {
			j = n
		}
		out = append(out, string(runes[i:j]))
		if j == n {
			break
		}
		i = j - overlap
		if i < 0 {
			i = 0
		}
	}
	return out
}

// finalize trims windows, drops short and duplicate fragments, and
// assigns content-hash IDs and token counts.
func (s *Splitter) finalize(windows []string, sourceRef string) []Chunk {
	seen := make(map[string]struct{}, len(windows))
	chunks := make([]Chunk, 0, len(windows))

	for _, w := range windows {
		trimmed := strings.TrimSpace(w)
		if len(trimmed) < MinChunkLen {
			continue
		}
		id := ContentID(trimmed)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		chunks = append(chunks, Chunk{
			ID:         id,
			Text:       trimmed,
			TokenCount: s.codec.Count(trimmed),
			SourceRef:  sourceRef,
		})
	}
	return chunks
}

// ContentID returns the stable content hash used as chunk identity.
func ContentID(trimmedText string) string {
	sum := sha256.Sum256([]byte(trimmedText))
	return hex.EncodeToString(sum[:])[:16]
}

var sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]*`)

// SplitSentences splits text on sentence terminators and newlines,
// dropping empty fragments. Used by lexical tokenization and tests.
func SplitSentences(text string) []string {
	matches := sentencePattern.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if t := strings.TrimSpace(m); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Package token provides token counting and encoding for chunk sizing
// and context budgeting.
//
// Exact counts come from a tiktoken encoding when one can be loaded;
// otherwise a character heuristic (~4 chars per token) is used. Callers
// never see the difference: NewCodec degrades to the heuristic instead
// of failing.
package token

import (
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// CharsPerToken is the rough characters-per-token approximation used
// when no exact tokenizer is available.
const CharsPerToken = 4

// DefaultEncoding is the tiktoken encoding used for OpenAI models.
const DefaultEncoding = "cl100k_base"

// Counter estimates the token cost of a text.
type Counter interface {
	// Count returns the token count of text. Always >= 1 for non-empty text.
	Count(text string) int
}

// Codec counts tokens and additionally encodes/decodes token sequences,
// enabling token-exact sliding windows.
type Codec interface {
	Counter

	// Encode converts text to a token sequence.
	Encode(text string) []int

	// Decode converts a token sequence back to text.
	Decode(tokens []int) string

	// Exact reports whether counts come from a real tokenizer rather
	// than the character heuristic.
	Exact() bool
}

// NewCodec returns a Codec for the given tiktoken encoding name.
// If the encoding cannot be loaded (offline, unknown name), the
// character-heuristic codec is returned instead; this function never
// returns an error condition to the caller.
func NewCodec(encoding string) Codec {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return Heuristic{}
	}
	return &tiktokenCodec{enc: enc}
}

// tiktokenCodec wraps a tiktoken encoding.
type tiktokenCodec struct {
	enc *tiktoken.Tiktoken
}

func (c *tiktokenCodec) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

func (c *tiktokenCodec) Encode(text string) []int {
	return c.enc.Encode(text, nil, nil)
}

func (c *tiktokenCodec) Decode(tokens []int) string {
	return c.enc.Decode(tokens)
}

func (c *tiktokenCodec) Exact() bool { return true }

// Heuristic is the character-based fallback codec. Encoding is not
// meaningful for it; windowing code must switch to character mode when
// Exact reports false.
type Heuristic struct{}

func (Heuristic) Count(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	// Characters, not bytes: the window code slides over runes.
	n := utf8.RuneCountInString(text) / CharsPerToken
	if n < 1 {
		n = 1
	}
	return n
}

func (Heuristic) Encode(text string) []int { return nil }

func (Heuristic) Decode(tokens []int) string { return "" }

func (Heuristic) Exact() bool { return false }

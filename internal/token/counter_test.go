package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristic_Count_ApproximatesFourCharsPerToken(t *testing.T) {
	h := Heuristic{}

	assert.Equal(t, 0, h.Count(""))
	assert.Equal(t, 0, h.Count("   "))
	assert.Equal(t, 1, h.Count("hi"), "short text rounds up to one token")
	assert.Equal(t, 25, h.Count(strings.Repeat("a", 100)))
}

func TestHeuristic_Count_CountsRunesNotBytes(t *testing.T) {
	h := Heuristic{}

	// 100 two-byte runes are 100 characters, not 200
	assert.Equal(t, 25, h.Count(strings.Repeat("é", 100)))
	assert.Equal(t, 25, h.Count(strings.Repeat("語", 100)))
}

func TestHeuristic_IsNotExact(t *testing.T) {
	h := Heuristic{}

	assert.False(t, h.Exact())
	assert.Nil(t, h.Encode("anything"))
}

func TestNewCodec_UnknownEncodingFallsBackToHeuristic(t *testing.T) {
	// Given: an encoding name that cannot exist
	c := NewCodec("no-such-encoding-xyz")

	// Then: we get a usable heuristic codec, not a failure
	assert.False(t, c.Exact())
	assert.Equal(t, 1, c.Count("word"))
}

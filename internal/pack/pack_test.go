package pack

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studydeck/studyrag/internal/token"
)

// text produces content with a known heuristic token cost (4 chars per token).
func text(tokens int) string {
	return strings.Repeat("abcd", tokens)
}

func TestPack_EmptyInputs(t *testing.T) {
	assert.True(t, Pack(nil, 100, token.Heuristic{}).Empty())
	assert.True(t, Pack([]Candidate{{Text: "x"}}, 0, token.Heuristic{}).Empty())
	assert.True(t, Pack([]Candidate{{Text: "x"}}, -5, token.Heuristic{}).Empty())
}

func TestPack_FirstCandidateAlwaysIncluded(t *testing.T) {
	// Given a first candidate costing far more than the budget
	candidates := []Candidate{{ID: "big", Text: text(500)}}

	// When packed under a tiny budget
	bundle := Pack(candidates, 10, token.Heuristic{})

	// Then it is still included
	require.Len(t, bundle.Items, 1)
	assert.Equal(t, "big", bundle.Items[0].ID)
	assert.Equal(t, 500, bundle.TokenCount)
}

func TestPack_GreedyPrefixStopsAtFirstNonFit(t *testing.T) {
	candidates := []Candidate{
		{ID: "a", Text: text(100)},
		{ID: "b", Text: text(100)},
		{ID: "c", Text: text(300)}, // does not fit
		{ID: "d", Text: text(10)},  // would fit, but packing never skips ahead
	}

	bundle := Pack(candidates, 250, token.Heuristic{})

	require.Len(t, bundle.Items, 2)
	assert.Equal(t, "a", bundle.Items[0].ID)
	assert.Equal(t, "b", bundle.Items[1].ID)
	assert.Equal(t, 200, bundle.TokenCount)
}

func TestPack_ExactBudgetFits(t *testing.T) {
	candidates := []Candidate{
		{ID: "a", Text: text(100)},
		{ID: "b", Text: text(100)},
	}

	bundle := Pack(candidates, 200, token.Heuristic{})

	assert.Len(t, bundle.Items, 2)
	assert.Equal(t, 200, bundle.TokenCount)
}

func TestPack_NilCounterDefaultsToHeuristic(t *testing.T) {
	bundle := Pack([]Candidate{{ID: "a", Text: text(50)}}, 100, nil)

	require.Len(t, bundle.Items, 1)
	assert.Equal(t, 50, bundle.TokenCount)
}

func TestPack_PreservesRankingOrder(t *testing.T) {
	candidates := []Candidate{
		{ID: "first", Score: 0.9, Text: text(10)},
		{ID: "second", Score: 0.8, Text: text(10)},
		{ID: "third", Score: 0.7, Text: text(10)},
	}

	bundle := Pack(candidates, 1000, token.Heuristic{})

	require.Len(t, bundle.Items, 3)
	assert.Equal(t, "first", bundle.Items[0].ID)
	assert.Equal(t, "second", bundle.Items[1].ID)
	assert.Equal(t, "third", bundle.Items[2].ID)
}

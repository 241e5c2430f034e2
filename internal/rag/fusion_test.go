package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studydeck/studyrag/internal/store"
)

func hit(id string, score float64) store.Hit {
	return store.Hit{ID: id, Score: score, Payload: store.Payload{Text: id}}
}

func TestFuseHits_EmptyInputs(t *testing.T) {
	got := fuseHits(nil, nil, 5)

	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFuseHits_DocumentInBothListsRanksFirst(t *testing.T) {
	// Given: "b" is mid-ranked in both lists, "a" and "c" top one each
	vec := []store.Hit{hit("a", 0.9), hit("b", 0.8), hit("x", 0.7)}
	kw := []store.Hit{hit("c", 3.0), hit("b", 2.0), hit("y", 1.0)}

	// When
	got := fuseHits(vec, kw, 10)

	// Then: the doubly-supported document wins
	require.Len(t, got, 5)
	assert.Equal(t, "b", got[0].ID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
}

func TestFuseHits_NormalizedDescendingScores(t *testing.T) {
	vec := []store.Hit{hit("a", 0.9), hit("b", 0.8), hit("c", 0.7)}

	got := fuseHits(vec, nil, 10)

	require.Len(t, got, 3)
	assert.Equal(t, 1.0, got[0].Score)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i].Score, got[i-1].Score)
	}
}

func TestFuseHits_VectorOnlyPreservesOrder(t *testing.T) {
	vec := []store.Hit{hit("first", 0.9), hit("second", 0.5)}

	got := fuseHits(vec, nil, 10)

	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "second", got[1].ID)
}

func TestFuseHits_LimitTruncates(t *testing.T) {
	vec := []store.Hit{hit("a", 0.9), hit("b", 0.8), hit("c", 0.7)}
	kw := []store.Hit{hit("d", 2.0)}

	got := fuseHits(vec, kw, 2)

	assert.Len(t, got, 2)
}

func TestFuseHits_TieBreaksByID(t *testing.T) {
	// Given: two documents at the same rank in disjoint lists with
	// equal underlying scores
	vec := []store.Hit{hit("zebra", 0.5)}
	kw := []store.Hit{hit("alpha", 0.5)}

	// When
	got := fuseHits(vec, kw, 10)

	// Then: deterministic lexicographic order
	require.Len(t, got, 2)
	assert.Equal(t, "alpha", got[0].ID)
	assert.Equal(t, "zebra", got[1].ID)
}

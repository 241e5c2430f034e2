// Package pack assembles retrieval results into a token-budgeted
// context bundle for answer synthesis.
package pack

import (
	"github.com/studydeck/studyrag/internal/token"
)

// DefaultTokenBudget caps the synthesized context size.
const DefaultTokenBudget = 1600

// Candidate is one ranked retrieval result offered to the packer.
type Candidate struct {
	ID     string
	Text   string
	Score  float64
	Source string
}

// Bundle is the packed context: a prefix of the offered candidates
// and their combined token cost.
type Bundle struct {
	Items      []Candidate
	TokenCount int
}

// Empty reports whether the bundle holds no context.
func (b Bundle) Empty() bool {
	return len(b.Items) == 0
}

// Pack greedily takes candidates in the given order until the next
// one would exceed the budget, then stops. Candidates are never
// skipped: packing preserves the ranking as a strict prefix.
//
// The first candidate is always included when the budget is positive,
// even if it alone exceeds it. An answer built from the single best
// chunk beats refusing to answer at all.
func Pack(candidates []Candidate, tokenBudget int, counter token.Counter) Bundle {
	if tokenBudget <= 0 || len(candidates) == 0 {
		return Bundle{}
	}
	if counter == nil {
		counter = token.Heuristic{}
	}

	bundle := Bundle{Items: make([]Candidate, 0, len(candidates))}
	for i, c := range candidates {
		cost := counter.Count(c.Text)
		if i > 0 && bundle.TokenCount+cost > tokenBudget {
			break
		}
		bundle.Items = append(bundle.Items, c)
		bundle.TokenCount += cost
	}
	return bundle
}

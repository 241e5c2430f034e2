package rag

import (
	"sort"

	"github.com/studydeck/studyrag/internal/store"
)

// rrfConstant is the RRF smoothing parameter. k=60 is the standard
// value used by Azure AI Search, OpenSearch, and most of the
// literature.
const rrfConstant = 60

// fuseHits merges a vector-ranked and a keyword-ranked hit list with
// Reciprocal Rank Fusion:
//
//	score(d) = Σ 1 / (k + rank_i)
//
// with rank 1-indexed per list. A document missing from one list
// contributes at missing_rank = max(len(vec), len(kw)) + 1 for that
// list. Fused scores are normalized so the top hit scores 1.0.
//
// Ties break toward documents present in both lists, then by higher
// vector score, then by ascending id.
func fuseHits(vec, kw []store.Hit, limit int) []store.Hit {
	if len(vec) == 0 && len(kw) == 0 {
		return []store.Hit{}
	}

	type fused struct {
		hit     store.Hit
		score   float64
		vecRank int
		kwRank  int
	}
	merged := make(map[string]*fused, len(vec)+len(kw))

	for rank, h := range vec {
		merged[h.ID] = &fused{hit: h, vecRank: rank + 1,
			score: 1 / float64(rrfConstant+rank+1)}
	}
	for rank, h := range kw {
		if f, ok := merged[h.ID]; ok {
			f.kwRank = rank + 1
			f.score += 1 / float64(rrfConstant+rank+1)
			continue
		}
		merged[h.ID] = &fused{hit: h, kwRank: rank + 1,
			score: 1 / float64(rrfConstant+rank+1)}
	}

	missingRank := len(vec)
	if len(kw) > missingRank {
		missingRank = len(kw)
	}
	missingRank++
	for _, f := range merged {
		if f.vecRank == 0 || f.kwRank == 0 {
			f.score += 1 / float64(rrfConstant+missingRank)
		}
	}

	results := make([]*fused, 0, len(merged))
	for _, f := range merged {
		results = append(results, f)
	}
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.score != b.score {
			return a.score > b.score
		}
		aBoth := a.vecRank > 0 && a.kwRank > 0
		bBoth := b.vecRank > 0 && b.kwRank > 0
		if aBoth != bBoth {
			return aBoth
		}
		if a.hit.Score != b.hit.Score {
			return a.hit.Score > b.hit.Score
		}
		return a.hit.ID < b.hit.ID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	top := results[0].score
	hits := make([]store.Hit, len(results))
	for i, f := range results {
		h := f.hit
		if top > 0 {
			h.Score = f.score / top
		}
		hits[i] = h
	}
	return hits
}

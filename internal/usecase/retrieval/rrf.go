package retrieval

import (
	"sort"

	"github.com/kailas-cloud/analyst/internal/domain"
)

// DefaultRRFK is the Reciprocal Rank Fusion constant (Cormack et al. 2009).
const DefaultRRFK = 60

// fuseRRF merges ranked lists via Reciprocal Rank Fusion.
// score(c) = sum of 1/(k + rank_i(c)) over every list containing c, rank 0-based.
// Chunks are identified by their RankKeyLen-rune prefix. When a chunk appears
// in more than one list, the later list's content and metadata win while its
// position in the tie order stays where it was first seen.
func fuseRRF(k, topN int, lists ...[]domain.Chunk) []domain.Chunk {
	type scored struct {
		chunk domain.Chunk
		score float64
		order int
	}

	merged := make(map[string]*scored)
	for _, list := range lists {
		for rank, c := range list {
			s := 1.0 / float64(rank+k)
			key := c.Key(domain.RankKeyLen)
			if existing, ok := merged[key]; ok {
				existing.score += s
				existing.chunk = c
				continue
			}
			merged[key] = &scored{chunk: c, score: s, order: len(merged)}
		}
	}

	ranked := make([]*scored, 0, len(merged))
	for _, s := range merged {
		ranked = append(ranked, s)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].order < ranked[j].order
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	out := make([]domain.Chunk, len(ranked))
	for i, s := range ranked {
		out[i] = s.chunk
	}
	return out
}

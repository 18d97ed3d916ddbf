package retrieval

import (
	"cmp"
	"slices"

	"github.com/kailas-cloud/vecrag/internal/domain/document"
)

// DefaultK is the number of chunks retrieved when the caller does not say.
const DefaultK = 3

// Hit is a retrieved chunk with its similarity score (higher is closer).
type Hit struct {
	Chunk document.Chunk
	Score float64
}

// Rank orders hits by descending score. Ties go to the lowest chunk sequence,
// then to the lexically smallest source, so equal inputs rank identically.
// The result is cut to at most k entries.
func Rank(hits []Hit, k int) []Hit {
	out := slices.Clone(hits)
	slices.SortStableFunc(out, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Chunk.Sequence(), b.Chunk.Sequence()); c != 0 {
			return c
		}
		return cmp.Compare(a.Chunk.Source(), b.Chunk.Source())
	})
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

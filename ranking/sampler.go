package ranking

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/sampleuv"
)

// PairSampler chooses the pairs of a group that is too large to pair
// exhaustively.
//
// Sample fills dst with pairs of group-local positions in [0, size) and
// returns how many it wrote. MakePairs requires the sampler to fill dst
// completely and treats anything else as a capacity mismatch. Sample is
// called concurrently for different groups.
type PairSampler interface {
	Sample(group, size int, dst []Pair) int
}

// StratifiedSampler draws PairsPerDocument distinct partners for every
// document of the group, so each document appears in at least
// PairsPerDocument pairs. Partners are distinct per document only: a pair
// drawn from both of its ends appears twice in the group's slots. The draws
// of a group depend only on Seed and the group index.
type StratifiedSampler struct {
	PairsPerDocument int
	Seed             uint64
}

// Sample implements PairSampler.
func (s StratifiedSampler) Sample(group, size int, dst []Pair) int {
	per := min(s.PairsPerDocument, size-1)
	if per <= 0 {
		return 0
	}

	src := rand.NewPCG(s.Seed, uint64(group))
	partners := make([]int, per)
	written := 0
	for i := 0; i < size && written+per <= len(dst); i++ {
		// partners are drawn from the size-1 other documents
		sampleuv.WithoutReplacement(partners, size-1, src)
		for _, j := range partners {
			if j >= i {
				j++
			}
			a, b := i, j
			if a > b {
				a, b = b, a
			}
			dst[written] = Pair{A: uint32(a), B: uint32(b)}
			written++
		}
	}
	return written
}

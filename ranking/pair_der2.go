package ranking

import (
	"github.com/YuminosukeSato/querylogit/core/parallel"
	"github.com/YuminosukeSato/querylogit/pkg/errors"
)

// pairDer2Threshold is the pair count below which the fill runs on the
// calling goroutine.
const pairDer2Threshold = 1 << 14

// PairHessian holds the pairs of an evaluation and the curvature of each.
type PairHessian struct {
	Pairs []Pair
	Der2  []float64
}

// FillPairDer2 writes the curvature of every pair into pairDer2:
//
//	pairDer2[k] = Der2AtMax[A] * Der2AtMax[B] / GroupDer2[qids[A]]
//
// and 0 when the group curvature is not positive. This is the magnitude of
// the off-diagonal entry of the shifted-loss Hessian, so pair and document
// curvature come from the same rule. Pairs are iteration positions and are
// left unchanged.
//
// len(pairDer2) != len(pairs) panics, as does a pair whose documents belong
// to different groups.
func FillPairDer2(der *Derivatives, qids []uint32, pairs []Pair, pairDer2 []float64) {
	fillPairDer2(der, qids, nil, pairs, pairDer2)
}

// FillPairDer2AndRemap is FillPairDer2 followed by rewriting both documents
// of every pair from iteration order to storage order through loadIndices.
// The Hessian values are the same as in FillPairDer2.
func FillPairDer2AndRemap(der *Derivatives, qids, loadIndices []uint32, pairs []Pair, pairDer2 []float64) {
	if len(loadIndices) != len(qids) {
		panic(errors.NewDimensionError("FillPairDer2AndRemap", "load indices", len(qids), len(loadIndices)))
	}
	fillPairDer2(der, qids, loadIndices, pairs, pairDer2)
}

func fillPairDer2(der *Derivatives, qids, loadIndices []uint32, pairs []Pair, pairDer2 []float64) {
	if len(pairDer2) != len(pairs) {
		panic(errors.NewDimensionError("FillPairDer2", "pair der2", len(pairs), len(pairDer2)))
	}

	fill := func(start, end int) {
		for k := start; k < end; k++ {
			p := pairs[k]
			q := qids[p.A]
			if qids[p.B] != q {
				panic(errors.Wrapf(errors.ErrCapacityMismatch, "pair %d joins groups %d and %d", k, q, qids[p.B]))
			}

			pairDer2[k] = 0
			if g := der.GroupDer2[q]; g > 0 {
				pairDer2[k] = der.Der2AtMax[p.A] * der.Der2AtMax[p.B] / g
			}
			if loadIndices != nil {
				pairs[k] = Pair{A: loadIndices[p.A], B: loadIndices[p.B]}
			}
		}
	}
	parallel.ParallelizeWithThreshold(len(pairs), pairDer2Threshold, fill)
}

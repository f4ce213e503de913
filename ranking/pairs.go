package ranking

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/YuminosukeSato/querylogit/core/parallel"
	"github.com/YuminosukeSato/querylogit/pkg/errors"
)

// ComputeMatrixSizes returns the number of pairs reserved for every group:
// 0 for single-class groups, n(n-1)/2 for exhaustively paired groups and
// n*PairsPerDocument for sampled groups (see Params.PairPlan).
func ComputeMatrixSizes(offsets []uint32, singleClass []bool, meanQuerySize float64, params Params) ([]uint32, error) {
	const op = "ComputeMatrixSizes"
	if err := validateOffsets(op, offsets); err != nil {
		return nil, err
	}
	groups := len(offsets) - 1
	if err := validateFlags(op, singleClass, groups); err != nil {
		return nil, err
	}
	if err := validateMeanQuerySize(op, meanQuerySize); err != nil {
		return nil, err
	}

	sizes := make([]uint32, groups)
	var total uint64
	for q := range sizes {
		count, _ := params.PairPlan(int(offsets[q+1]-offsets[q]), singleClass[q], meanQuerySize)
		total += uint64(count)
		if total > math.MaxUint32 {
			return nil, errors.NewValueError(op, "pair buffer exceeds 2^32-1 entries; lower SampleRatio or CapacityRatio")
		}
		sizes[q] = uint32(count)
	}
	return sizes, nil
}

// MatrixOffsets is the exclusive prefix sum of sizes. Group q owns the pair
// slots [out[q], out[q+1]) and out[len(sizes)] is the pair buffer length.
func MatrixOffsets(sizes []uint32) ([]uint32, error) {
	out := make([]uint32, len(sizes)+1)
	var acc uint64
	for q, s := range sizes {
		acc += uint64(s)
		if acc > math.MaxUint32 {
			return nil, errors.NewValueError("MatrixOffsets", "pair buffer exceeds 2^32-1 entries")
		}
		out[q+1] = uint32(acc)
	}
	return out, nil
}

// MakePairs fills dst with the pairs of every group. Group q writes exactly
// the slots [matrixOffsets[q], matrixOffsets[q+1]); exhaustive groups list
// every pair in lexicographic order and sampled groups delegate to the
// sampler configured in params.
//
// Precondition violations are returned as errors before any pair is written.
// A group whose reserved slot count does not match its plan, or a sampler
// that does not fill its slots with valid pairs, is an internal
// inconsistency and panics with ErrCapacityMismatch.
func MakePairs(offsets, matrixOffsets []uint32, singleClass []bool, meanQuerySize float64, params Params, dst []Pair) error {
	const op = "MakePairs"
	if err := validateOffsets(op, offsets); err != nil {
		return err
	}
	groups := len(offsets) - 1
	if err := validateFlags(op, singleClass, groups); err != nil {
		return err
	}
	if err := validateMeanQuerySize(op, meanQuerySize); err != nil {
		return err
	}
	if len(matrixOffsets) != groups+1 {
		return errors.NewDimensionError(op, "matrix offsets", groups+1, len(matrixOffsets))
	}
	if want := int(matrixOffsets[groups]); len(dst) != want {
		return errors.NewDimensionError(op, "pairs", want, len(dst))
	}

	sampler := params.sampler()
	_, err := parallel.Distribute(params.Units, groups, func(_, q int) error {
		begin, end := offsets[q], offsets[q+1]
		lo, hi := matrixOffsets[q], matrixOffsets[q+1]
		slots := dst[lo:hi:hi]

		count, sampled := params.PairPlan(int(end-begin), singleClass[q], meanQuerySize)
		if count != len(slots) {
			panic(errors.Wrapf(errors.ErrCapacityMismatch, "group %d plans %d pairs, %d slots reserved", q, count, len(slots)))
		}
		if count == 0 {
			return nil
		}
		if sampled {
			fillSampled(sampler, q, begin, end, slots)
		} else {
			fillExhaustive(begin, end, slots)
		}
		return nil
	})
	return err
}

func fillExhaustive(begin, end uint32, slots []Pair) {
	gen := combin.NewCombinationGenerator(int(end-begin), 2)
	c := make([]int, 2)
	k := 0
	for gen.Next() {
		gen.Combination(c)
		slots[k] = Pair{A: begin + uint32(c[0]), B: begin + uint32(c[1])}
		k++
	}
	if k != len(slots) {
		panic(errors.Wrapf(errors.ErrCapacityMismatch, "enumerated %d pairs into %d slots", k, len(slots)))
	}
}

func fillSampled(sampler PairSampler, q int, begin, end uint32, slots []Pair) {
	size := end - begin
	if n := sampler.Sample(q, int(size), slots); n != len(slots) {
		panic(errors.Wrapf(errors.ErrCapacityMismatch, "sampler wrote %d of %d pairs for group %d", n, len(slots), q))
	}
	for k, p := range slots {
		if p.A >= size || p.B >= size || p.A == p.B {
			panic(errors.Wrapf(errors.ErrCapacityMismatch, "sampler produced pair (%d, %d) outside group %d of size %d", p.A, p.B, q, size))
		}
		if p.A > p.B {
			p.A, p.B = p.B, p.A
		}
		slots[k] = Pair{A: begin + p.A, B: begin + p.B}
	}
}

// PairQueries returns the group of every pair, looked up through qids.
func PairQueries(pairs []Pair, qids []uint32) []uint32 {
	out := make([]uint32, len(pairs))
	for k, p := range pairs {
		out[k] = qids[p.A]
	}
	return out
}

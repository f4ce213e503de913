package ranking

import (
	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/querylogit/core/parallel"
	"github.com/YuminosukeSato/querylogit/pkg/errors"
)

// MakeIsSingleClassFlags decides for every group whether it carries pairwise
// signal. A group is single-class when it has fewer than two documents, when
// all of its targets are equal (read through loadIndices), or when it is
// larger than params.CapacityThreshold(meanQuerySize).
//
// loadIndices may be nil for the identity permutation.
func MakeIsSingleClassFlags(targets []float64, loadIndices, offsets []uint32, meanQuerySize float64, params Params) ([]bool, error) {
	const op = "MakeIsSingleClassFlags"
	if err := validateOffsets(op, offsets); err != nil {
		return nil, err
	}
	if err := validateMeanQuerySize(op, meanQuerySize); err != nil {
		return nil, err
	}
	docs := int(offsets[len(offsets)-1])
	if err := validateLoadIndices(op, loadIndices, docs, len(targets)); err != nil {
		return nil, err
	}
	if floats.HasNaN(targets) {
		return nil, errors.NewValueError(op, "targets contain NaN")
	}

	capacity := params.CapacityThreshold(meanQuerySize)
	batch := Batch{Targets: targets, LoadIndices: loadIndices}
	groups := len(offsets) - 1
	flags := make([]bool, groups)

	parallel.ParallelizeUnits(params.Units, groups, func(start, end int) {
		for q := start; q < end; q++ {
			begin, stop := offsets[q], offsets[q+1]
			size := int(stop - begin)
			if size < 2 || size > capacity {
				flags[q] = true
				continue
			}
			flags[q] = sameTargets(batch, begin, stop)
		}
	})
	return flags, nil
}

func sameTargets(b Batch, begin, end uint32) bool {
	first := b.Targets[b.storage(begin)]
	for i := begin + 1; i < end; i++ {
		if b.Targets[b.storage(i)] != first {
			return false
		}
	}
	return true
}

// CountSingleClass returns the number of flagged groups.
func CountSingleClass(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

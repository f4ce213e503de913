package ranking

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/querylogit/pkg/errors"
)

// Pair references two documents of the same group by iteration position.
// Pairs built by MakePairs have A < B.
type Pair struct {
	A uint32
	B uint32
}

// Batch is the input of one derivative evaluation.
//
// Targets, Weights and Values are in storage order and have equal length.
// LoadIndices maps an iteration position to its storage position; nil means
// the identity. Offsets holds the group boundaries with Offsets[0] == 0.
// Qids maps an iteration position to its group and may be nil, in which case
// it is derived from Offsets.
type Batch struct {
	Targets     []float64
	Weights     []float64
	Values      []float64
	LoadIndices []uint32
	Offsets     []uint32
	Qids        []uint32
}

// NumGroups is the number of groups described by Offsets.
func (b Batch) NumGroups() int {
	return max(len(b.Offsets)-1, 0)
}

// NumDocuments is the number of iteration positions covered by the groups.
func (b Batch) NumDocuments() int {
	if len(b.Offsets) == 0 {
		return 0
	}
	return int(b.Offsets[len(b.Offsets)-1])
}

// MeanQuerySize is the mean number of documents per group.
func (b Batch) MeanQuerySize() float64 {
	if b.NumGroups() == 0 {
		return 0
	}
	return float64(b.NumDocuments()) / float64(b.NumGroups())
}

// QueryIDs returns Qids, or builds the iteration position to group table
// from Offsets when Qids is nil.
func (b Batch) QueryIDs() []uint32 {
	if b.Qids != nil {
		return b.Qids
	}
	return QueryIDsFromOffsets(b.Offsets)
}

// QueryIDsFromOffsets expands group boundaries into one group index per
// iteration position.
func QueryIDsFromOffsets(offsets []uint32) []uint32 {
	if len(offsets) < 2 {
		return nil
	}
	qids := make([]uint32, offsets[len(offsets)-1])
	for q := 0; q+1 < len(offsets); q++ {
		for i := offsets[q]; i < offsets[q+1]; i++ {
			qids[i] = uint32(q)
		}
	}
	return qids
}

// storage returns the storage position of iteration position i.
func (b Batch) storage(i uint32) uint32 {
	if b.LoadIndices == nil {
		return i
	}
	return b.LoadIndices[i]
}

// Validate checks every precondition of QueryCrossEntropy.
func (b Batch) Validate(op string) error {
	if err := validateOffsets(op, b.Offsets); err != nil {
		return err
	}

	n := len(b.Targets)
	if len(b.Weights) != n {
		return errors.NewDimensionError(op, "weights", n, len(b.Weights))
	}
	if len(b.Values) != n {
		return errors.NewDimensionError(op, "values", n, len(b.Values))
	}

	docs := b.NumDocuments()
	if err := validateLoadIndices(op, b.LoadIndices, docs, n); err != nil {
		return err
	}

	if b.Qids != nil {
		if len(b.Qids) != docs {
			return errors.NewDimensionError(op, "qids", docs, len(b.Qids))
		}
		for q := 0; q < b.NumGroups(); q++ {
			for i := b.Offsets[q]; i < b.Offsets[q+1]; i++ {
				if b.Qids[i] != uint32(q) {
					return errors.NewValueError(op, fmt.Sprintf("qid of position %d is %d, offsets place it in group %d", i, b.Qids[i], q))
				}
			}
		}
	}

	for i, w := range b.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return errors.NewValidationError("weights", fmt.Sprintf("%s: weight %d must be finite and non-negative", op, i), w)
		}
	}
	for i, t := range b.Targets {
		if math.IsNaN(t) || t < 0 || t > 1 {
			return errors.NewValidationError("targets", fmt.Sprintf("%s: target %d must be in [0, 1]", op, i), t)
		}
	}
	if err := errors.CheckNumericalStability(op+" values", b.Values); err != nil {
		return err
	}
	return nil
}

// validateOffsets checks that offsets describe at least one group, start at
// 0 and never decrease.
func validateOffsets(op string, offsets []uint32) error {
	if len(offsets) < 2 {
		return errors.Wrapf(errors.ErrEmptyData, "%s: group offsets describe no groups", op)
	}
	if offsets[0] != 0 {
		return errors.NewValueError(op, fmt.Sprintf("first group offset must be 0, got %d", offsets[0]))
	}
	for q := 1; q < len(offsets); q++ {
		if offsets[q] < offsets[q-1] {
			return errors.NewValueError(op, fmt.Sprintf("group offsets decrease at %d: %d < %d", q, offsets[q], offsets[q-1]))
		}
	}
	return nil
}

// validateLoadIndices checks that a non-nil permutation covers docs
// iteration positions and points inside a storage buffer of length n.
// A nil permutation requires docs <= n.
func validateLoadIndices(op string, load []uint32, docs, n int) error {
	if load == nil {
		if docs > n {
			return errors.NewDimensionError(op, "targets", docs, n)
		}
		return nil
	}
	if len(load) != docs {
		return errors.NewDimensionError(op, "load indices", docs, len(load))
	}
	for i, s := range load {
		if int(s) >= n {
			return errors.NewValueError(op, fmt.Sprintf("load index %d points to %d, storage has %d documents", i, s, n))
		}
	}
	return nil
}

func validateFlags(op string, flags []bool, groups int) error {
	if len(flags) != groups {
		return errors.NewDimensionError(op, "single-class flags", groups, len(flags))
	}
	return nil
}

// Derivatives holds the outputs of QueryCrossEntropy. Per-document slices
// are in iteration order, GroupDer2 has one entry per group.
type Derivatives struct {
	Loss        []float64
	Der1        []float64
	Der2AtPoint []float64
	Der2AtMax   []float64
	GroupDer2   []float64
}

// resize sets the buffer lengths, reusing capacity from earlier iterations.
func (d *Derivatives) resize(docs, groups int) {
	d.Loss = grow(d.Loss, docs)
	d.Der1 = grow(d.Der1, docs)
	d.Der2AtPoint = grow(d.Der2AtPoint, docs)
	d.Der2AtMax = grow(d.Der2AtMax, docs)
	d.GroupDer2 = grow(d.GroupDer2, groups)
}

func grow(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}

// Der2 returns the total pointwise curvature Der2AtPoint + Der2AtMax of
// every document, the diagonal of the blended Hessian.
func (d *Derivatives) Der2() []float64 {
	out := make([]float64, len(d.Der2AtPoint))
	floats.AddTo(out, d.Der2AtPoint, d.Der2AtMax)
	return out
}

// TotalLoss is the sum of the per-document losses.
func (d *Derivatives) TotalLoss() float64 {
	return floats.Sum(d.Loss)
}

package ranking

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/querylogit/core/parallel"
	"github.com/YuminosukeSato/querylogit/pkg/errors"
)

// QueryCrossEntropy computes the loss and derivatives of every document and
// the aggregated curvature of every group into out, resizing its buffers.
//
// alpha in [0, 1] mixes the pointwise logistic loss (alpha = 0) with the
// query-normalised loss evaluated at the per-group shift (alpha = 1).
// singleClass is the output of MakeIsSingleClassFlags, or nil when no group
// was flagged.
//
// Every precondition is checked before parallel work starts; out is left
// untouched when one fails.
func QueryCrossEntropy(alpha float64, batch Batch, singleClass []bool, params Params, out *Derivatives) error {
	const op = "QueryCrossEntropy"
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return errors.NewValidationError("alpha", "must be in [0, 1]", alpha)
	}
	if err := params.Validate(); err != nil {
		return err
	}
	if err := batch.Validate(op); err != nil {
		return err
	}
	groups := batch.NumGroups()
	if singleClass != nil {
		if err := validateFlags(op, singleClass, groups); err != nil {
			return err
		}
	}
	if out == nil {
		return errors.NewValueError(op, "output derivatives must not be nil")
	}

	out.resize(batch.NumDocuments(), groups)

	e := &engine{
		alpha:       alpha,
		batch:       batch,
		singleClass: singleClass,
		params:      params,
		out:         out,
		scratch:     make([]groupScratch, parallel.Units(params.Units)),
	}
	if _, err := parallel.Distribute(params.Units, groups, e.group); err != nil {
		return err
	}

	if err := errors.CheckNumericalStability(op+" loss", out.Loss); err != nil {
		return err
	}
	return errors.CheckNumericalStability(op+" der1", out.Der1)
}

type engine struct {
	alpha       float64
	batch       Batch
	singleClass []bool
	params      Params
	out         *Derivatives

	// one scratch per execution unit
	scratch []groupScratch
}

// groupScratch holds a group's inputs gathered into contiguous slices.
type groupScratch struct {
	targets []float64
	weights []float64
	values  []float64
}

func (s *groupScratch) gather(b Batch, begin, end uint32) {
	n := int(end - begin)
	s.targets = grow(s.targets, n)
	s.weights = grow(s.weights, n)
	s.values = grow(s.values, n)
	for k := 0; k < n; k++ {
		src := b.storage(begin + uint32(k))
		s.targets[k] = b.Targets[src]
		s.weights[k] = b.Weights[src]
		s.values[k] = b.Values[src]
	}
}

// group computes the outputs of group q. Only the owning unit writes
// GroupDer2[q] and the document range of q.
func (e *engine) group(unit, q int) error {
	begin, end := e.batch.Offsets[q], e.batch.Offsets[q+1]
	e.out.GroupDer2[q] = 0
	if begin == end {
		return nil
	}

	s := &e.scratch[unit]
	s.gather(e.batch, begin, end)

	sumW := floats.Sum(s.weights)
	mean := 0.0
	if sumW > 0 {
		mean = floats.Dot(s.weights, s.targets) / sumW
	}
	degenerate := e.alpha == 0 ||
		(e.singleClass != nil && e.singleClass[q]) ||
		!(mean > 0 && mean < 1)

	if degenerate {
		e.pointwise(s, begin)
		return nil
	}

	shift := e.solveShift(q, s, sumW, mean)
	e.out.GroupDer2[q] = e.shifted(s, begin, shift)
	return nil
}

// pointwise writes the blended outputs of a group without query signal: the
// shifted term is dropped and the pointwise term keeps its (1-alpha) weight.
func (e *engine) pointwise(s *groupScratch, begin uint32) {
	scale := 1 - e.alpha
	for k, a := range s.values {
		i := int(begin) + k
		w, t := s.weights[k], s.targets[k]
		p := sigmoid(a)
		e.out.Loss[i] = scale * w * logLoss(a, t)
		e.out.Der1[i] = scale * w * (p - t)
		e.out.Der2AtPoint[i] = scale * w * p * (1 - p)
		e.out.Der2AtMax[i] = 0
	}
}

// shifted writes the blended outputs and returns the group curvature.
func (e *engine) shifted(s *groupScratch, begin uint32, shift float64) float64 {
	alpha := e.alpha
	groupDer2 := 0.0
	for k, a := range s.values {
		i := int(begin) + k
		w, t := s.weights[k], s.targets[k]
		p := sigmoid(a)
		sp := sigmoid(a + shift)

		e.out.Loss[i] = w * ((1-alpha)*logLoss(a, t) + alpha*logLoss(a+shift, t))
		e.out.Der1[i] = w * ((1-alpha)*(p-t) + alpha*(sp-t))
		e.out.Der2AtPoint[i] = (1 - alpha) * w * p * (1 - p)
		e.out.Der2AtMax[i] = alpha * w * sp * (1 - sp)
		groupDer2 += e.out.Der2AtMax[i]
	}
	return groupDer2
}

// solveShift finds b with sum(w*sigmoid(a+b)) = sumW*mean. The residual is
// increasing in b and changes sign on [logit(mean)-max(a), logit(mean)-min(a)],
// so Newton steps that leave the bracket fall back to bisection.
func (e *engine) solveShift(q int, s *groupScratch, sumW, mean float64) float64 {
	target := sumW * mean
	center := logit(mean)
	lo := center - floats.Max(s.values)
	hi := center - floats.Min(s.values)
	b := center - stat.Mean(s.values, s.weights)

	tol := e.params.ShiftTolerance
	residual := 0.0
	for iter := 0; iter < e.params.MaxShiftIterations; iter++ {
		f, df := 0.0, 0.0
		for k, a := range s.values {
			sp := sigmoid(a + b)
			f += s.weights[k] * sp
			df += s.weights[k] * sp * (1 - sp)
		}
		residual = f - target
		if math.Abs(residual) <= tol*sumW || hi-lo <= tol {
			return b
		}
		if residual < 0 {
			lo = b
		} else {
			hi = b
		}

		next := b - residual/df
		if df == 0 || !(next > lo && next < hi) {
			next = lo + (hi-lo)/2
		}
		b = next
	}

	errors.Warn(errors.NewConvergenceWarning("QueryShift", e.params.MaxShiftIterations,
		fmt.Sprintf("group %d: residual %g after bracket [%g, %g]", q, residual, lo, hi)))
	return b
}

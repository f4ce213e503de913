package ranking

import (
	"context"
	"math"
	"time"

	"github.com/YuminosukeSato/querylogit/core/parallel"
	"github.com/YuminosukeSato/querylogit/pkg/errors"
	"github.com/YuminosukeSato/querylogit/pkg/log"
)

// DefaultAlpha is the mixing weight used when WithAlpha is not given.
const DefaultAlpha = 0.95

// Objective evaluates the query cross-entropy loss once per boosting
// iteration. It is safe for concurrent use by independent batches.
type Objective struct {
	alpha         float64
	meanQuerySize float64
	params        Params
	remap         bool
	logger        log.Logger
}

// Result is the output of one evaluation.
type Result struct {
	Derivatives

	// SingleClass holds the classifier decision of every group.
	SingleClass []bool

	// MatrixOffsets locates the pair slots of every group in Hessian.
	MatrixOffsets []uint32

	// Hessian holds the pairs of every group with their curvature. Pairs
	// are in storage order when the objective remaps and the batch has
	// load indices, in iteration order otherwise.
	Hessian PairHessian

	Stats Stats
}

// Stats summarises one evaluation.
type Stats struct {
	Groups            int
	Documents         int
	Pairs             int
	SingleClassGroups int
	SampledGroups     int
	MaxGroupSize      int
	MeanQuerySize     float64
	Duration          time.Duration
}

// NewObjective returns an Objective configured by opts.
func NewObjective(opts ...Option) (*Objective, error) {
	o := &Objective{
		alpha:  DefaultAlpha,
		params: DefaultParams(),
		remap:  true,
	}
	for _, opt := range opts {
		opt(o)
	}

	if math.IsNaN(o.alpha) || o.alpha < 0 || o.alpha > 1 {
		return nil, errors.NewValidationError("alpha", "must be in [0, 1]", o.alpha)
	}
	if o.meanQuerySize != 0 {
		if err := validateMeanQuerySize("NewObjective", o.meanQuerySize); err != nil {
			return nil, err
		}
	}
	if err := o.params.Validate(); err != nil {
		return nil, err
	}
	if o.logger == nil {
		o.logger = log.GetLoggerWithName("ranking")
	}
	return o, nil
}

// Alpha returns the configured mixing weight.
func (o *Objective) Alpha() float64 { return o.alpha }

// Params returns the configured tunables.
func (o *Objective) Params() Params { return o.params }

func (o *Objective) meanFor(b Batch) float64 {
	if o.meanQuerySize > 0 {
		return o.meanQuerySize
	}
	// batches of empty groups still need a positive mean
	return max(b.MeanQuerySize(), 1)
}

// ComputeDerivatives runs the classifier and the derivative engine without
// building pairs.
func (o *Objective) ComputeDerivatives(b Batch) (der *Derivatives, err error) {
	defer discardOnError(&der, &err)
	defer errors.Recover(&err, "Objective.ComputeDerivatives")

	if err := b.Validate("Objective.ComputeDerivatives"); err != nil {
		return nil, err
	}
	flags, err := MakeIsSingleClassFlags(b.Targets, b.LoadIndices, b.Offsets, o.meanFor(b), o.params)
	if err != nil {
		return nil, err
	}
	der = &Derivatives{}
	if err := QueryCrossEntropy(o.alpha, b, flags, o.params, der); err != nil {
		return nil, err
	}
	return der, nil
}

// Compute runs every stage: classification, pair sizing and generation,
// derivatives, and the pair Hessian fill. Internal inconsistencies raised
// as panics by the stages are returned as *errors.PanicError.
func (o *Objective) Compute(b Batch) (res *Result, err error) {
	defer discardOnError(&res, &err)
	defer errors.Recover(&err, "Objective.Compute")
	start := time.Now()
	logger := o.logger.With(log.OperationKey, log.OperationDerivatives)

	if err := b.Validate("Objective.Compute"); err != nil {
		logger.Error("invalid batch", err, log.ErrorCodeKey, log.ErrorInvalidInput)
		return nil, err
	}
	mean := o.meanFor(b)

	flags, err := MakeIsSingleClassFlags(b.Targets, b.LoadIndices, b.Offsets, mean, o.params)
	if err != nil {
		return nil, err
	}
	sizes, err := ComputeMatrixSizes(b.Offsets, flags, mean, o.params)
	if err != nil {
		return nil, err
	}
	matrix, err := MatrixOffsets(sizes)
	if err != nil {
		return nil, err
	}
	pairs := make([]Pair, matrix[len(matrix)-1])
	if err := MakePairs(b.Offsets, matrix, flags, mean, o.params, pairs); err != nil {
		return nil, err
	}

	res = &Result{SingleClass: flags, MatrixOffsets: matrix}
	if err := QueryCrossEntropy(o.alpha, b, flags, o.params, &res.Derivatives); err != nil {
		return nil, err
	}

	pairDer2 := make([]float64, len(pairs))
	if o.remap && b.LoadIndices != nil {
		FillPairDer2AndRemap(&res.Derivatives, b.QueryIDs(), b.LoadIndices, pairs, pairDer2)
	} else {
		FillPairDer2(&res.Derivatives, b.QueryIDs(), pairs, pairDer2)
	}
	res.Hessian = PairHessian{Pairs: pairs, Der2: pairDer2}

	res.Stats = o.stats(b, flags, mean, len(pairs))
	res.Stats.Duration = time.Since(start)
	o.logSummary(logger, res)
	return res, nil
}

// discardOnError drops a partially built result once a stage has failed.
func discardOnError[T any](res **T, err *error) {
	if *err != nil {
		*res = nil
	}
}

func (o *Objective) stats(b Batch, flags []bool, mean float64, pairs int) Stats {
	s := Stats{
		Groups:            b.NumGroups(),
		Documents:         b.NumDocuments(),
		Pairs:             pairs,
		SingleClassGroups: CountSingleClass(flags),
		MeanQuerySize:     mean,
	}
	for q := 0; q < s.Groups; q++ {
		size := int(b.Offsets[q+1] - b.Offsets[q])
		s.MaxGroupSize = max(s.MaxGroupSize, size)
		if _, sampled := o.params.PairPlan(size, flags[q], mean); sampled {
			s.SampledGroups++
		}
	}
	return s
}

func (o *Objective) logSummary(logger log.Logger, res *Result) {
	if !logger.Enabled(context.Background(), log.LevelInfo) {
		return
	}
	s := res.Stats
	logger.Info("query cross-entropy evaluated",
		log.GroupsKey, s.Groups,
		log.DocumentsKey, s.Documents,
		log.PairsKey, s.Pairs,
		log.SingleClassGroupsKey, s.SingleClassGroups,
		log.SampledGroupsKey, s.SampledGroups,
		log.MaxGroupSizeKey, s.MaxGroupSize,
		log.MeanQuerySizeKey, s.MeanQuerySize,
		log.AlphaKey, o.alpha,
		log.UnitsKey, parallel.Units(o.params.Units),
		log.RandomSeedKey, o.params.Seed,
		log.LossKey, res.TotalLoss(),
		log.DurationMsKey, s.Duration.Milliseconds(),
	)
}

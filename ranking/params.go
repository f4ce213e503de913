package ranking

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/YuminosukeSato/querylogit/pkg/errors"
)

// Default tunables.
const (
	DefaultCapacityRatio        = 256.0
	DefaultMinCapacityQuerySize = 1024
	DefaultSampleRatio          = 16.0
	DefaultMinSampledQuerySize  = 128
	DefaultPairsPerDocument     = 16
	DefaultMaxShiftIterations   = 50
	DefaultShiftTolerance       = 1e-9
)

// Params holds the tunables shared by the classifier, the pair sizer, the
// pair generator and the derivative engine. The sizer and the generator
// must be called with the same Params so their pair counts agree.
type Params struct {
	// CapacityRatio and MinCapacityQuerySize define CapacityThreshold.
	// A group larger than the threshold is single-class regardless of its
	// targets. CapacityRatio 0 disables the rule.
	CapacityRatio        float64
	MinCapacityQuerySize int

	// SampleRatio and MinSampledQuerySize define SampleThreshold. Groups
	// larger than the threshold get PairsPerDocument sampled pairs per
	// document instead of every pair.
	SampleRatio         float64
	MinSampledQuerySize int
	PairsPerDocument    int

	// Seed drives the default pair sampler.
	Seed uint64

	// MaxShiftIterations and ShiftTolerance bound the per-group shift search.
	MaxShiftIterations int
	ShiftTolerance     float64

	// Units is the number of execution units. 0 means one per CPU core.
	Units int

	// Sampler overrides the default StratifiedSampler for sampled groups.
	Sampler PairSampler
}

// DefaultParams returns the default tunables.
func DefaultParams() Params {
	return Params{
		CapacityRatio:        DefaultCapacityRatio,
		MinCapacityQuerySize: DefaultMinCapacityQuerySize,
		SampleRatio:          DefaultSampleRatio,
		MinSampledQuerySize:  DefaultMinSampledQuerySize,
		PairsPerDocument:     DefaultPairsPerDocument,
		MaxShiftIterations:   DefaultMaxShiftIterations,
		ShiftTolerance:       DefaultShiftTolerance,
	}
}

// Validate reports the first invalid tunable.
func (p Params) Validate() error {
	switch {
	case math.IsNaN(p.CapacityRatio) || p.CapacityRatio < 0:
		return errors.NewValidationError("CapacityRatio", "must be non-negative", p.CapacityRatio)
	case p.MinCapacityQuerySize < 1:
		return errors.NewValidationError("MinCapacityQuerySize", "must be at least 1", p.MinCapacityQuerySize)
	case math.IsNaN(p.SampleRatio) || p.SampleRatio < 0:
		return errors.NewValidationError("SampleRatio", "must be non-negative", p.SampleRatio)
	case p.MinSampledQuerySize < 1:
		return errors.NewValidationError("MinSampledQuerySize", "must be at least 1", p.MinSampledQuerySize)
	case p.PairsPerDocument < 1:
		return errors.NewValidationError("PairsPerDocument", "must be at least 1", p.PairsPerDocument)
	case p.MaxShiftIterations < 1:
		return errors.NewValidationError("MaxShiftIterations", "must be at least 1", p.MaxShiftIterations)
	case !(p.ShiftTolerance > 0):
		return errors.NewValidationError("ShiftTolerance", "must be positive", p.ShiftTolerance)
	case p.Units < 0:
		return errors.NewValidationError("Units", "must not be negative", p.Units)
	}
	return nil
}

// CapacityThreshold is the largest group size that may still be expanded
// into pairs:
//
//	max(MinCapacityQuerySize, ceil(CapacityRatio * meanQuerySize))
func (p Params) CapacityThreshold(meanQuerySize float64) int {
	if p.CapacityRatio == 0 {
		return math.MaxInt
	}
	return thresholdFor(p.CapacityRatio, meanQuerySize, p.MinCapacityQuerySize)
}

// SampleThreshold is the largest group size that is paired exhaustively:
//
//	max(MinSampledQuerySize, ceil(SampleRatio * meanQuerySize))
func (p Params) SampleThreshold(meanQuerySize float64) int {
	return thresholdFor(p.SampleRatio, meanQuerySize, p.MinSampledQuerySize)
}

func thresholdFor(ratio, mean float64, floor int) int {
	scaled := math.Ceil(ratio * mean)
	if scaled >= math.MaxInt32 {
		return math.MaxInt32
	}
	return max(floor, int(scaled))
}

// PairPlan returns the number of pairs reserved for a group of the given
// size and whether they are sampled rather than enumerated.
func (p Params) PairPlan(size int, singleClass bool, meanQuerySize float64) (count int, sampled bool) {
	if singleClass || size < 2 {
		return 0, false
	}
	if size > p.SampleThreshold(meanQuerySize) && p.PairsPerDocument < (size-1)/2 {
		return size * p.PairsPerDocument, true
	}
	return combin.Binomial(size, 2), false
}

func (p Params) sampler() PairSampler {
	if p.Sampler != nil {
		return p.Sampler
	}
	return StratifiedSampler{PairsPerDocument: p.PairsPerDocument, Seed: p.Seed}
}

func validateMeanQuerySize(op string, meanQuerySize float64) error {
	if math.IsNaN(meanQuerySize) || math.IsInf(meanQuerySize, 0) || meanQuerySize <= 0 {
		return errors.NewValidationError("meanQuerySize", op+": must be a positive finite number", meanQuerySize)
	}
	return nil
}

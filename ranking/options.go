package ranking

import "github.com/YuminosukeSato/querylogit/pkg/log"

// Option is a function that configures an Objective
type Option func(*Objective)

// WithAlpha sets the query-level mixing weight in [0, 1]
func WithAlpha(alpha float64) Option {
	return func(o *Objective) {
		o.alpha = alpha
	}
}

// WithMeanQuerySize fixes the mean group size used for the capacity and
// sampling thresholds. By default it is taken from each batch.
func WithMeanQuerySize(mean float64) Option {
	return func(o *Objective) {
		o.meanQuerySize = mean
	}
}

// WithParams replaces all tunables at once
func WithParams(p Params) Option {
	return func(o *Objective) {
		o.params = p
	}
}

// WithSeed sets the seed of the default pair sampler
func WithSeed(seed uint64) Option {
	return func(o *Objective) {
		o.params.Seed = seed
	}
}

// WithUnits sets the number of execution units
func WithUnits(n int) Option {
	return func(o *Objective) {
		o.params.Units = n
	}
}

// WithSampler replaces the pair sampler used for large groups
func WithSampler(s PairSampler) Option {
	return func(o *Objective) {
		o.params.Sampler = s
	}
}

// WithCapacity sets the capacity threshold tunables
func WithCapacity(ratio float64, minQuerySize int) Option {
	return func(o *Objective) {
		o.params.CapacityRatio = ratio
		o.params.MinCapacityQuerySize = minQuerySize
	}
}

// WithSampling sets the sampling threshold tunables
func WithSampling(ratio float64, minQuerySize, pairsPerDocument int) Option {
	return func(o *Objective) {
		o.params.SampleRatio = ratio
		o.params.MinSampledQuerySize = minQuerySize
		o.params.PairsPerDocument = pairsPerDocument
	}
}

// WithRemap sets whether pairs are rewritten to storage order when the
// batch carries load indices
func WithRemap(remap bool) Option {
	return func(o *Objective) {
		o.remap = remap
	}
}

// WithLogger sets the logger used for invocation summaries
func WithLogger(l log.Logger) Option {
	return func(o *Objective) {
		o.logger = l
	}
}

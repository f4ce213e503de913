package ranking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/YuminosukeSato/querylogit/pkg/errors"
)

func TestParamsThresholds(t *testing.T) {
	p := DefaultParams()
	p.CapacityRatio = 2
	p.MinCapacityQuerySize = 3
	p.SampleRatio = 1.5
	p.MinSampledQuerySize = 4

	tests := []struct {
		mean         float64
		wantCapacity int
		wantSample   int
	}{
		{mean: 1, wantCapacity: 3, wantSample: 4},
		{mean: 4, wantCapacity: 8, wantSample: 6},
		{mean: 4.2, wantCapacity: 9, wantSample: 7},
		{mean: 1e12, wantCapacity: math.MaxInt32, wantSample: math.MaxInt32},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.wantCapacity, p.CapacityThreshold(tt.mean), "mean=%v", tt.mean)
		assert.Equal(t, tt.wantSample, p.SampleThreshold(tt.mean), "mean=%v", tt.mean)
	}

	p.CapacityRatio = 0
	assert.Equal(t, math.MaxInt, p.CapacityThreshold(4), "ratio 0 disables the capacity rule")
}

func TestParamsPairPlan(t *testing.T) {
	p := DefaultParams()
	p.SampleRatio = 1
	p.MinSampledQuerySize = 4
	p.PairsPerDocument = 2
	const mean = 5 // sample threshold 5

	tests := []struct {
		size        int
		singleClass bool
		wantCount   int
		wantSampled bool
	}{
		{size: 0, wantCount: 0},
		{size: 1, wantCount: 0},
		{size: 2, wantCount: 1},
		{size: 5, wantCount: 10},
		{size: 5, singleClass: true, wantCount: 0},
		// above the threshold but 2 partners are not fewer than (6-1)/2
		{size: 6, wantCount: 15},
		{size: 7, wantCount: 14, wantSampled: true},
		{size: 100, wantCount: 200, wantSampled: true},
		{size: 100, singleClass: true, wantCount: 0},
	}
	for _, tt := range tests {
		count, sampled := p.PairPlan(tt.size, tt.singleClass, mean)
		assert.Equal(t, tt.wantCount, count, "size=%d single=%v", tt.size, tt.singleClass)
		assert.Equal(t, tt.wantSampled, sampled, "size=%d single=%v", tt.size, tt.singleClass)
	}
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	tests := []struct {
		name   string
		mutate func(*Params)
		param  string
	}{
		{"negative capacity ratio", func(p *Params) { p.CapacityRatio = -1 }, "CapacityRatio"},
		{"NaN sample ratio", func(p *Params) { p.SampleRatio = math.NaN() }, "SampleRatio"},
		{"zero capacity floor", func(p *Params) { p.MinCapacityQuerySize = 0 }, "MinCapacityQuerySize"},
		{"zero sample floor", func(p *Params) { p.MinSampledQuerySize = 0 }, "MinSampledQuerySize"},
		{"zero pairs per document", func(p *Params) { p.PairsPerDocument = 0 }, "PairsPerDocument"},
		{"zero iterations", func(p *Params) { p.MaxShiftIterations = 0 }, "MaxShiftIterations"},
		{"zero tolerance", func(p *Params) { p.ShiftTolerance = 0 }, "ShiftTolerance"},
		{"negative units", func(p *Params) { p.Units = -2 }, "Units"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			var val *errors.ValidationError
			if assert.True(t, errors.As(err, &val)) {
				assert.Equal(t, tt.param, val.ParamName)
			}
		})
	}
}

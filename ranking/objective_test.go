package ranking

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/querylogit/pkg/errors"
	"github.com/YuminosukeSato/querylogit/pkg/log"
)

// syntheticBatch builds groups of 1..maxSize documents with binary and
// graded targets, stored in shuffled order. Every fifth group has equal
// targets.
func syntheticBatch(groups, maxSize int, seed uint64) Batch {
	rng := rand.New(rand.NewPCG(seed, 0xbeef))
	offsets := make([]uint32, groups+1)
	for q := 0; q < groups; q++ {
		offsets[q+1] = offsets[q] + uint32(1+rng.IntN(maxSize))
	}
	docs := int(offsets[groups])

	b := Batch{
		Targets:     make([]float64, docs),
		Weights:     make([]float64, docs),
		Values:      make([]float64, docs),
		LoadIndices: make([]uint32, docs),
		Offsets:     offsets,
	}
	for i, s := range rng.Perm(docs) {
		b.LoadIndices[i] = uint32(s)
	}
	for q := 0; q < groups; q++ {
		for i := offsets[q]; i < offsets[q+1]; i++ {
			s := b.LoadIndices[i]
			switch {
			case q%5 == 0:
				b.Targets[s] = 1
			case q%3 == 0:
				b.Targets[s] = float64(rng.IntN(5)) / 4
			default:
				b.Targets[s] = float64(rng.IntN(2))
			}
			b.Weights[s] = 0.5 + rng.Float64()
			b.Values[s] = rng.NormFloat64()
		}
	}
	return b
}

func TestNewObjective(t *testing.T) {
	o, err := NewObjective()
	require.NoError(t, err)
	assert.Equal(t, DefaultAlpha, o.Alpha())
	assert.Equal(t, DefaultParams().PairsPerDocument, o.Params().PairsPerDocument)

	o, err = NewObjective(WithAlpha(0.5), WithSeed(3), WithUnits(2), WithCapacity(8, 64), WithSampling(4, 32, 8))
	require.NoError(t, err)
	p := o.Params()
	assert.Equal(t, 0.5, o.Alpha())
	assert.Equal(t, uint64(3), p.Seed)
	assert.Equal(t, 2, p.Units)
	assert.Equal(t, 8.0, p.CapacityRatio)
	assert.Equal(t, 64, p.MinCapacityQuerySize)
	assert.Equal(t, 4.0, p.SampleRatio)
	assert.Equal(t, 32, p.MinSampledQuerySize)
	assert.Equal(t, 8, p.PairsPerDocument)

	tests := []struct {
		name string
		opt  Option
	}{
		{"alpha above one", WithAlpha(1.01)},
		{"negative alpha", WithAlpha(-1)},
		{"negative mean", WithMeanQuerySize(-3)},
		{"invalid params", WithSampling(1, 1, 0)},
		{"negative units", WithUnits(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewObjective(tt.opt)
			var val *errors.ValidationError
			assert.True(t, errors.As(err, &val), "got %v", err)
		})
	}
}

func TestObjectiveCompute(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	o, err := NewObjective(WithAlpha(0.9), WithLogger(logger), WithSeed(11))
	require.NoError(t, err)

	b := syntheticBatch(200, 30, 2)
	res, err := o.Compute(b)
	require.NoError(t, err)

	assert.Len(t, res.Loss, b.NumDocuments())
	assert.Len(t, res.GroupDer2, b.NumGroups())
	assert.Len(t, res.SingleClass, b.NumGroups())
	assert.Len(t, res.Hessian.Der2, len(res.Hessian.Pairs))
	assert.Equal(t, len(res.Hessian.Pairs), int(res.MatrixOffsets[b.NumGroups()]))

	s := res.Stats
	assert.Equal(t, 200, s.Groups)
	assert.Equal(t, b.NumDocuments(), s.Documents)
	assert.Equal(t, len(res.Hessian.Pairs), s.Pairs)
	assert.Equal(t, CountSingleClass(res.SingleClass), s.SingleClassGroups)
	assert.GreaterOrEqual(t, s.SingleClassGroups, 40, "every fifth group has equal targets")
	assert.LessOrEqual(t, s.MaxGroupSize, 30)
	assert.InDelta(t, b.MeanQuerySize(), s.MeanQuerySize, 1e-12)

	// pairs were remapped to storage order: both ends belong to the same
	// group when mapped back through the inverse permutation
	inverse := make([]uint32, len(b.LoadIndices))
	for i, st := range b.LoadIndices {
		inverse[st] = uint32(i)
	}
	qids := b.QueryIDs()
	for q := 0; q < s.Groups; q++ {
		for _, p := range res.Hessian.Pairs[res.MatrixOffsets[q]:res.MatrixOffsets[q+1]] {
			assert.Equal(t, uint32(q), qids[inverse[p.A]])
			assert.Equal(t, uint32(q), qids[inverse[p.B]])
		}
	}

	assert.True(t, logger.ContainsMessage("query cross-entropy evaluated"))
	assert.True(t, logger.ContainsField(log.GroupsKey, 200.0))
	assert.False(t, logger.ContainsField(log.ComponentKey, "ranking"), "explicit logger is used as given")
	assert.True(t, logger.ContainsField(log.OperationKey, log.OperationDerivatives))
}

func TestObjectiveComputeWithoutRemap(t *testing.T) {
	o, err := NewObjective(WithRemap(false))
	require.NoError(t, err)

	b := syntheticBatch(50, 12, 4)
	res, err := o.Compute(b)
	require.NoError(t, err)

	qids := b.QueryIDs()
	for q := 0; q < b.NumGroups(); q++ {
		for _, p := range res.Hessian.Pairs[res.MatrixOffsets[q]:res.MatrixOffsets[q+1]] {
			assert.Equal(t, uint32(q), qids[p.A])
			assert.Equal(t, uint32(q), qids[p.B])
		}
	}
}

func TestObjectiveComputeDerivativesMatchesCompute(t *testing.T) {
	o, err := NewObjective(WithAlpha(0.7))
	require.NoError(t, err)

	b := syntheticBatch(80, 20, 6)
	res, err := o.Compute(b)
	require.NoError(t, err)
	der, err := o.ComputeDerivatives(b)
	require.NoError(t, err)

	assert.Equal(t, res.Derivatives, *der)
}

func TestObjectiveSampledGroups(t *testing.T) {
	o, err := NewObjective(WithMeanQuerySize(2), WithSampling(1, 4, 2), WithCapacity(0, 1))
	require.NoError(t, err)

	b := Batch{
		Targets: []float64{0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 1, 0},
		Weights: uniformWeights(12),
		Values:  make([]float64, 12),
		Offsets: []uint32{0, 10, 12},
	}
	res, err := o.Compute(b)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.SampledGroups)
	assert.Equal(t, []uint32{0, 20, 21}, res.MatrixOffsets)
	assert.Equal(t, 10, res.Stats.MaxGroupSize)
}

func TestObjectiveConvertsPanics(t *testing.T) {
	o, err := NewObjective(WithMeanQuerySize(2), WithSampling(1, 2, 1), WithSampler(shortSampler{}))
	require.NoError(t, err)

	b := Batch{
		Targets: []float64{0, 1, 0, 1, 0, 1, 0, 1, 0, 1},
		Weights: uniformWeights(10),
		Values:  make([]float64, 10),
		Offsets: []uint32{0, 10},
	}
	res, err := o.Compute(b)
	assert.Nil(t, res)

	var pe *errors.PanicError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, "Objective.Compute", pe.Operation)
	assert.True(t, errors.Is(err, errors.ErrCapacityMismatch))
}

func TestObjectiveRejectsInvalidBatch(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	o, err := NewObjective(WithLogger(logger))
	require.NoError(t, err)

	b := Batch{
		Targets: []float64{0, 1},
		Weights: []float64{1, -1},
		Values:  []float64{0, 0},
		Offsets: []uint32{0, 2},
	}
	res, err := o.Compute(b)
	assert.Nil(t, res)
	assert.Error(t, err)
	assert.True(t, logger.ContainsField(log.ErrorCodeKey, log.ErrorInvalidInput))

	der, err := o.ComputeDerivatives(Batch{Offsets: []uint32{0}})
	assert.Nil(t, der)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func BenchmarkObjectiveCompute(b *testing.B) {
	o, err := NewObjective()
	if err != nil {
		b.Fatal(err)
	}
	batch := syntheticBatch(2000, 40, 1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := o.Compute(batch); err != nil {
			b.Fatal(err)
		}
	}
}

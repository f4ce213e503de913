package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/querylogit/pkg/errors"
)

func TestNDCG(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		k       int
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect ranking",
			yTrue: []float64{3, 2, 3, 0, 1, 2},
			yPred: []float64{3.1, 2.9, 3.0, 0.1, 1.1, 2.1}, // Perfect order with scores
			k:     -1,
			want:  1.0,
		},
		{
			name:  "Worst ranking",
			yTrue: []float64{3, 2, 3, 0, 1, 2},
			yPred: []float64{1, 2, 3, 4, 5, 6}, // Reverse order
			k:     -1,
			want:  0.706, // Corrected expected value
		},
		{
			name:  "NDCG@3",
			yTrue: []float64{3, 2, 3, 0, 1, 2},
			yPred: []float64{2.5, 0.5, 2, 0, 1, 3},
			k:     3,
			want:  0.845, // Corrected expected value
		},
		{
			name:  "Binary relevance",
			yTrue: []float64{1, 0, 1, 0, 1},
			yPred: []float64{0.9, 0.8, 0.7, 0.6, 0.5},
			k:     -1,
			want:  0.885, // Corrected expected value
		},
		{
			name:  "All zeros relevance",
			yTrue: []float64{0, 0, 0, 0},
			yPred: []float64{1, 2, 3, 4},
			k:     -1,
			want:  0.0,
		},
		{
			name:  "Single element",
			yTrue: []float64{2},
			yPred: []float64{1},
			k:     1,
			want:  1.0, // Only one element, so it's perfect
		},
		{
			name:    "Negative relevance",
			yTrue:   []float64{1, -1, 2},
			yPred:   []float64{1, 2, 3},
			k:       -1,
			wantErr: true,
		},
		{
			name:    "Dimension mismatch",
			yTrue:   []float64{1, 2, 3},
			yPred:   []float64{1, 2},
			k:       -1,
			wantErr: true,
		},
		{
			name:    "Invalid k",
			yTrue:   []float64{1, 2, 3},
			yPred:   []float64{1, 2, 3},
			k:       0,
			wantErr: true,
		},
		{
			name:    "Empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			k:       1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yTrue, yPred *mat.VecDense
			if len(tt.yTrue) > 0 {
				yTrue = mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			}
			if len(tt.yPred) > 0 {
				yPred = mat.NewVecDense(len(tt.yPred), tt.yPred)
			}

			var warned []error
			errors.SetWarningHandler(func(w error) { warned = append(warned, w) })
			defer errors.SetWarningHandler(nil)

			got, err := NDCG(yTrue, yPred, tt.k)
			if (err != nil) != tt.wantErr {
				t.Errorf("NDCG() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 0.01 {
				t.Errorf("NDCG() = %v, want %v", got, tt.want)
			}
			if tt.name == "All zeros relevance" && len(warned) != 1 {
				t.Errorf("expected an UndefinedMetricWarning, got %v", warned)
			}
		})
	}
}

// Benchmark tests
func BenchmarkNDCG(b *testing.B) {
	// Create test data
	n := 1000
	yTrue := make([]float64, n)
	yPred := make([]float64, n)
	for i := 0; i < n; i++ {
		yTrue[i] = float64(n-i) / float64(n) * 3 // Relevance scores 0-3
		yPred[i] = float64(i) / float64(n)
	}
	yTrueVec := mat.NewVecDense(n, yTrue)
	yPredVec := mat.NewVecDense(n, yPred)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = NDCG(yTrueVec, yPredVec, 10)
	}
}

func TestDCGCalculation(t *testing.T) {
	// Test the internal DCG calculation
	tests := []struct {
		name      string
		relevance []float64
		want      float64
	}{
		{
			name:      "Basic DCG",
			relevance: []float64{3, 2, 3, 0, 1, 2},
			want:      13.848, // Expected DCG value
		},
		{
			name:      "Binary relevance",
			relevance: []float64{1, 1, 0, 0, 1},
			want:      2.018, // Corrected DCG value
		},
		{
			name:      "All zeros",
			relevance: []float64{0, 0, 0, 0},
			want:      0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := make([]scoredDoc, len(tt.relevance))
			for i, rel := range tt.relevance {
				docs[i] = scoredDoc{score: rel, relevance: rel}
			}

			got := dcg(docs, len(docs))
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("dcg() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryNDCG(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		offsets []uint32
		k       int
		want    float64
		wantErr bool
	}{
		{
			name:    "Two perfect queries",
			yTrue:   []float64{2, 1, 0, 1, 0},
			yPred:   []float64{3, 2, 1, 5, 4},
			offsets: []uint32{0, 3, 5},
			k:       -1,
			want:    1.0,
		},
		{
			name:    "Mean of per-query values",
			yTrue:   []float64{3, 2, 3, 0, 1, 2, 1, 0},
			yPred:   []float64{1, 2, 3, 4, 5, 6, 0, 1},
			offsets: []uint32{0, 6, 8},
			k:       -1,
			want:    (0.706 + 0.631) / 2,
		},
		{
			name:    "All-zero query is skipped",
			yTrue:   []float64{0, 0, 1, 0},
			yPred:   []float64{1, 2, 4, 3},
			offsets: []uint32{0, 2, 4},
			k:       -1,
			want:    1.0,
		},
		{
			name:    "Single-document query counts as one",
			yTrue:   []float64{0, 0, 1},
			yPred:   []float64{1, 1, 2},
			offsets: []uint32{0, 1, 3},
			k:       2,
			want:    1.0,
		},
		{
			name:    "No queries",
			offsets: []uint32{0},
			k:       -1,
			wantErr: true,
		},
		{
			name:    "Length mismatch",
			yTrue:   []float64{1, 0},
			yPred:   []float64{1},
			offsets: []uint32{0, 2},
			k:       -1,
			wantErr: true,
		},
		{
			name:    "Negative relevance",
			yTrue:   []float64{1, -1},
			yPred:   []float64{1, 2},
			offsets: []uint32{0, 2},
			k:       -1,
			wantErr: true,
		},
		{
			name:    "Invalid k",
			yTrue:   []float64{1, 0},
			yPred:   []float64{1, 2},
			offsets: []uint32{0, 2},
			k:       0,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QueryNDCG(tt.yTrue, tt.yPred, tt.offsets, tt.k)
			if (err != nil) != tt.wantErr {
				t.Fatalf("QueryNDCG() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 0.01 {
				t.Errorf("QueryNDCG() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryNDCGAllZero(t *testing.T) {
	var warned []error
	errors.SetWarningHandler(func(w error) { warned = append(warned, w) })
	defer errors.SetWarningHandler(nil)

	got, err := QueryNDCG([]float64{0, 0, 0}, []float64{1, 2, 3}, []uint32{0, 3}, -1)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("QueryNDCG() = %v, want 0", got)
	}
	var umw *errors.UndefinedMetricWarning
	if len(warned) != 1 || !errors.As(warned[0], &umw) {
		t.Errorf("expected one UndefinedMetricWarning, got %v", warned)
	}
}

func TestQueryCrossEntropyMetric(t *testing.T) {
	got, err := QueryCrossEntropy([]float64{0.5, 1.5, 2}, []float64{1, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-1.0) > 1e-12 {
		t.Errorf("QueryCrossEntropy() = %v, want 1", got)
	}

	if _, err := QueryCrossEntropy(nil, nil); err == nil {
		t.Error("expected error for empty loss")
	}
	if _, err := QueryCrossEntropy([]float64{1}, []float64{1, 2}); err == nil {
		t.Error("expected error for length mismatch")
	}
	if _, err := QueryCrossEntropy([]float64{math.NaN()}, []float64{1}); err == nil {
		t.Error("expected error for NaN loss")
	}

	var warned []error
	errors.SetWarningHandler(func(w error) { warned = append(warned, w) })
	defer errors.SetWarningHandler(nil)
	got, err = QueryCrossEntropy([]float64{0, 0}, []float64{0, 0})
	if err != nil || got != 0 || len(warned) != 1 {
		t.Errorf("zero weights: got %v, %v, warnings %v", got, err, warned)
	}
}

func BenchmarkQueryNDCG(b *testing.B) {
	const queries, size = 100, 50
	yTrue := make([]float64, queries*size)
	yPred := make([]float64, queries*size)
	offsets := make([]uint32, queries+1)
	for q := 0; q < queries; q++ {
		offsets[q+1] = uint32((q + 1) * size)
		for i := 0; i < size; i++ {
			yTrue[q*size+i] = float64((i * 7) % 4)
			yPred[q*size+i] = float64((i * 13) % size)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = QueryNDCG(yTrue, yPred, offsets, 10)
	}
}

package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/querylogit/pkg/errors"
)

type scoredDoc struct {
	score     float64
	relevance float64
}

// dcg は与えられた順序での上位k件の割引累積利得を計算する
// 利得は 2^rel - 1、割引は log2(rank + 1)
func dcg(docs []scoredDoc, k int) float64 {
	if k > len(docs) {
		k = len(docs)
	}
	var sum float64
	for i := 0; i < k; i++ {
		sum += (math.Pow(2, docs[i].relevance) - 1) / math.Log2(float64(i)+2)
	}
	return sum
}

// ndcgOf はクエリ1件分のNDCG@kを計算する。関連度が全て0の場合は ok=false を返す
func ndcgOf(docs []scoredDoc, k int) (value float64, ok bool) {
	if k < 0 || k > len(docs) {
		k = len(docs)
	}

	byScore := append([]scoredDoc(nil), docs...)
	ideal := append([]scoredDoc(nil), docs...)

	sort.SliceStable(byScore, func(i, j int) bool { return byScore[i].score > byScore[j].score })
	sort.SliceStable(ideal, func(i, j int) bool { return ideal[i].relevance > ideal[j].relevance })

	idcg := dcg(ideal, k)
	if idcg == 0 {
		return 0, false
	}
	return dcg(byScore, k) / idcg, true
}

// NDCG は1クエリ分の正規化割引累積利得（Normalized DCG）を計算する
// k < 0 の場合は全件を評価する。関連度が全て0の場合は0を返し警告を出す
func NDCG(yTrue, yPred *mat.VecDense, k int) (float64, error) {
	// 入力検証
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError("NDCG", "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("NDCG", "yPred", n, yPred.Len())
	}
	if k == 0 {
		return 0, errors.NewValidationError("k", "must be positive or negative for all documents", k)
	}

	docs := make([]scoredDoc, n)
	for i := range docs {
		docs[i] = scoredDoc{score: yPred.AtVec(i), relevance: yTrue.AtVec(i)}
		if docs[i].relevance < 0 || math.IsNaN(docs[i].relevance) {
			return 0, errors.NewValueError("NDCG", "relevance must be non-negative")
		}
	}

	v, ok := ndcgOf(docs, k)
	if !ok {
		errors.Warn(errors.NewUndefinedMetricWarning("NDCG", "all relevance scores are zero", 0))
		return 0, nil
	}
	return v, nil
}

// QueryNDCG は offsets で区切られたクエリごとのNDCG@kの平均を計算する
// 関連度が全て0のクエリは平均から除外し、1件だけのクエリは1として数える
func QueryNDCG(yTrue, yPred []float64, offsets []uint32, k int) (float64, error) {
	// 入力検証
	if len(offsets) < 2 {
		return 0, errors.Wrap(errors.ErrEmptyData, "QueryNDCG: no queries")
	}
	n := int(offsets[len(offsets)-1])
	if len(yTrue) != n {
		return 0, errors.NewDimensionError("QueryNDCG", "yTrue", n, len(yTrue))
	}
	if len(yPred) != n {
		return 0, errors.NewDimensionError("QueryNDCG", "yPred", n, len(yPred))
	}
	if k == 0 {
		return 0, errors.NewValidationError("k", "must be positive or negative for all documents", k)
	}
	if n > 0 && (floats.Min(yTrue) < 0 || floats.HasNaN(yTrue)) {
		return 0, errors.NewValueError("QueryNDCG", "relevance must be non-negative")
	}

	var sum float64
	counted := 0
	for q := 0; q+1 < len(offsets); q++ {
		begin, end := offsets[q], offsets[q+1]
		if end < begin {
			return 0, errors.NewValueError("QueryNDCG", "offsets must be non-decreasing")
		}
		docs := make([]scoredDoc, end-begin)
		for i := range docs {
			docs[i] = scoredDoc{score: yPred[int(begin)+i], relevance: yTrue[int(begin)+i]}
		}
		if len(docs) == 1 {
			sum++
			counted++
			continue
		}
		if v, ok := ndcgOf(docs, k); ok {
			sum += v
			counted++
		}
	}

	if counted == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("QueryNDCG", "no query has a positive relevance score", 0))
		return 0, nil
	}
	return sum / float64(counted), nil
}

// QueryCrossEntropy は文書ごとの損失（重み込み）から重み付き平均損失を計算する
// 重みの合計が0の場合は0を返し警告を出す
func QueryCrossEntropy(loss, weights []float64) (float64, error) {
	// 入力検証
	if len(loss) == 0 {
		return 0, errors.NewValueError("QueryCrossEntropy", "empty vector")
	}
	if len(weights) != len(loss) {
		return 0, errors.NewDimensionError("QueryCrossEntropy", "weights", len(loss), len(weights))
	}
	if err := errors.CheckNumericalStability("QueryCrossEntropy", loss); err != nil {
		return 0, err
	}

	total := floats.Sum(weights)
	if err := errors.CheckScalar("QueryCrossEntropy", total); err != nil {
		return 0, err
	}
	if total <= 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("QueryCrossEntropy", "total weight is zero", 0))
		return 0, nil
	}
	return floats.Sum(loss) / total, nil
}

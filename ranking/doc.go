/*
Package ranking computes derivatives of the query cross-entropy ranking loss
for gradient-boosted training on grouped documents.

Documents are grouped into queries by an offsets table: group q covers the
iteration positions [Offsets[q], Offsets[q+1]). Per-document inputs (targets,
weights, current values) are stored in storage order and read through a load
index permutation; every output is written in iteration order.

One training iteration runs the following stages:

	flags, _ := ranking.MakeIsSingleClassFlags(targets, load, offsets, mean, params)
	sizes, _ := ranking.ComputeMatrixSizes(offsets, flags, mean, params)
	matrix, _ := ranking.MatrixOffsets(sizes)
	pairs := make([]ranking.Pair, matrix[len(matrix)-1])
	_ = ranking.MakePairs(offsets, matrix, flags, mean, params, pairs)

	var der ranking.Derivatives
	_ = ranking.QueryCrossEntropy(alpha, batch, flags, params, &der)

	pairDer2 := make([]float64, len(pairs))
	ranking.FillPairDer2AndRemap(&der, batch.QueryIDs(), load, pairs, pairDer2)

Objective wraps the whole sequence, converts internal panics into errors and
logs a summary of every invocation.

# Loss

For a group with values a, targets t and weights w the loss mixes a pointwise
logistic loss with the same loss evaluated after shifting every value of the
group by the scalar b that makes the weighted mean prediction equal the
weighted mean target:

	loss = w * ((1-alpha)*LL(a, t) + alpha*LL(a+b, t))
	LL(x, t) = softplus(x) - t*x

Der2AtPoint is the pointwise curvature (1-alpha)*w*p*(1-p). Der2AtMax is the
curvature at the shifted point, alpha*w*s*(1-s), and GroupDer2 is the sum of
Der2AtMax over the group. The exact Hessian of the shifted term is
diag(Der2AtMax) - m*m'/GroupDer2, which is why the pair Hessian of two
documents is Der2AtMax[A]*Der2AtMax[B]/GroupDer2.

Groups whose targets are all equal, whose total weight is zero, or that were
flagged single-class carry no query-level signal. They keep the blended
formula without the shifted term: the pointwise loss and its derivatives
weighted by (1-alpha), with Der2AtMax and GroupDer2 equal to zero. At
alpha = 1 such groups contribute nothing.

# Parallelism

Per-group stages run on a pool of execution units that claim group indices
from a shared parallel.WorkCursor, so one huge query does not hold back the
others. Results never depend on which unit processed which group.
*/
package ranking

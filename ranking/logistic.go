package ranking

import "math"

// sigmoid is 1/(1+exp(-x)) without overflow for large |x|.
func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	z := math.Exp(x)
	return z / (1 + z)
}

// softplus is log(1+exp(x)).
func softplus(x float64) float64 {
	return math.Max(x, 0) + math.Log1p(math.Exp(-math.Abs(x)))
}

// logLoss is the binary cross-entropy of logit x against a soft target t.
func logLoss(x, t float64) float64 {
	return softplus(x) - t*x
}

// logit is the inverse of sigmoid for p in (0, 1).
func logit(p float64) float64 {
	return math.Log(p) - math.Log1p(-p)
}

// Package querylogit computes derivatives of the query cross-entropy ranking
// loss for gradient-boosted decision trees written in Go.
//
// The query cross-entropy loss blends a pointwise logistic loss with the same
// loss evaluated after shifting every document score of a query so that the
// mean prediction of the query matches its mean relevance. Its Hessian couples
// documents of the same query, so besides per-document first and second
// derivatives the library emits a list of document pairs with their pairwise
// curvature.
//
// # Installation
//
//	go get github.com/YuminosukeSato/querylogit
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/querylogit/ranking"
//	)
//
//	func main() {
//	    batch := ranking.Batch{
//	        Targets: []float64{1, 0, 0, 1, 0},
//	        Weights: []float64{1, 1, 1, 1, 1},
//	        Values:  []float64{0.3, -0.1, 0.2, 0.0, 0.5},
//	        Offsets: []uint32{0, 2, 5},
//	    }
//
//	    obj, err := ranking.NewObjective(ranking.WithAlpha(0.95))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    res, err := obj.Compute(batch)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    fmt.Println("der1:", res.Der1)
//	    fmt.Println("pairs:", res.Hessian.Pairs, res.Hessian.Der2)
//	}
//
// # Packages
//
//   - ranking: single-class classification, pair sizing and generation,
//     the derivative engine, pair Hessian fill and the Objective facade
//   - metrics: NDCG and weighted query cross-entropy for evaluation
//   - core/parallel: execution-unit pool with a shared work cursor
//   - pkg/errors: structured errors and warnings on cockroachdb/errors
//   - pkg/log: Logger interface with slog and zerolog backends
//
// # Performance
//
// Per-group work is distributed over runtime.NumCPU() execution units
// that claim groups dynamically, so a handful of very large queries does not
// stall the batch. Pair generation switches from exhaustive enumeration to
// per-document sampling for groups much larger than the mean query size.
//
// # License
//
// querylogit is released under the MIT License.
package querylogit

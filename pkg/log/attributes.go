// Package log defines standard attribute keys for ranking-objective operations.
//
// Using these keys keeps log records from the classifier, pair generator and
// derivative engine consistent, so a single training iteration can be
// followed across components. Keys follow a hierarchical naming convention
// (e.g. "ranking.groups", "perf.duration_ms").

package log

// Operation Context
const (
	// OperationKey specifies the operation being performed.
	// Standard values: see the Operation* constants below.
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	// Examples: "ranking", "metrics", "parallel"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the training iteration.
	PhaseKey = "ml.phase"
)

// Data Shape
const (
	// DocumentsKey is the number of documents visited by the invocation.
	DocumentsKey = "data.documents"

	// GroupsKey is the number of query groups.
	GroupsKey = "ranking.groups"

	// PairsKey is the total length of the pair buffer.
	PairsKey = "ranking.pairs"

	// SingleClassGroupsKey counts groups without pairwise signal.
	SingleClassGroupsKey = "ranking.single_class_groups"

	// SampledGroupsKey counts groups whose pairs were sampled.
	SampledGroupsKey = "ranking.sampled_groups"

	// MaxGroupSizeKey is the size of the largest group.
	MaxGroupSizeKey = "ranking.max_group_size"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// UnitsKey records the number of parallel execution units.
	UnitsKey = "perf.units"

	// LossKey records the weighted loss of the invocation.
	LossKey = "metrics.loss"
)

// Hyperparameters and Configuration
const (
	// AlphaKey records the query-level mixing weight.
	AlphaKey = "hyperparams.alpha"

	// MeanQuerySizeKey records the mean group size used for thresholds.
	MeanQuerySizeKey = "hyperparams.mean_query_size"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"
)

// Standard attribute value constants.
const (
	OperationClassify    = "classify_groups"
	OperationSizePairs   = "size_pairs"
	OperationMakePairs   = "make_pairs"
	OperationDerivatives = "query_cross_entropy"
	OperationFillPairs   = "fill_pair_der2"
	OperationEvaluate    = "evaluate"

	PhaseTraining   = "training"
	PhaseValidation = "validation"

	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorCapacityMismatch  = "CAPACITY_MISMATCH"
	ErrorNumerical         = "NUMERICAL_INSTABILITY"
)

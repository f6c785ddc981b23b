package log

// Model and operation context.
const (
	// ModelNameKey identifies the algorithm, e.g. "ridge" or "random_forest".
	ModelNameKey = "model.name"

	// OperationKey is the estimator operation: fit, predict, score.
	OperationKey = "ml.operation"

	// ComponentKey names the package or subsystem emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey is the lifecycle phase. For the search engine it carries the
	// orchestrator state (sizing, trying, ranked, done).
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"

	// WorkSamplesKey is the row count actually used for grid search after sampling.
	WorkSamplesKey = "data.work_samples"
	// DroppedRowsKey counts rows removed for missing values.
	DroppedRowsKey = "data.dropped_rows"
	SourceKey      = "data.source"
)

// Performance and metrics.
const (
	DurationMsKey      = "perf.duration_ms"
	DurationSecondsKey = "perf.duration_seconds"

	R2ScoreKey = "metrics.r2_score"
	RMSEKey    = "metrics.rmse"
	CVMeanKey  = "metrics.cv_mean"
	CVStdKey   = "metrics.cv_std"

	// IterationKey records the iteration of an iterative solver.
	IterationKey = "training.iteration"
)

// Search engine context.
const (
	SessionIDKey  = "automl.session_id"
	TierKey       = "automl.tier"
	GridTierKey   = "automl.grid_tier"
	AttemptKey    = "automl.attempt"
	CandidatesKey = "automl.candidates"
	FoldsKey      = "automl.cv_folds"
	BudgetKey     = "automl.budget"
	OutcomeKey    = "automl.outcome"
	StopReasonKey = "automl.stop_reason"
)

// Error context.
const (
	ErrorKey      = "error"
	ErrorCodeKey  = "error.code"
	ErrorTypeKey  = "error.type"
	StacktraceKey = "error.stacktrace"
)

// Configuration.
const (
	HyperParamsKey = "model.hyperparams"
	RandomSeedKey  = "config.random_seed"
	WorkerIDKey    = "infra.worker_id"
)

// Standard values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"
	OperationSearch  = "search"

	PhaseSizing        = "sizing"
	PhaseTrying        = "trying"
	PhaseRanked        = "ranked"
	PhaseDone          = "done"
	PhasePreprocessing = "preprocessing"

	OutcomeRetained = "retained"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeTimedOut = "timed_out"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorConvergence       = "CONVERGENCE_FAILURE"
	ErrorSingularMatrix    = "SINGULAR_MATRIX"
	ErrorTimeout           = "TRIAL_TIMEOUT"
	ErrorNoUsableModel     = "NO_USABLE_MODEL"
)

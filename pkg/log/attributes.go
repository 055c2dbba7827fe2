package log

// Model and search context.
const (
	ModelNameKey = "model.name"
	OperationKey = "ml.operation"
	RunIDKey     = "search.run_id"
	CandidateKey = "search.candidate"
	FoldKey      = "search.fold"
)

// Data shape and provenance.
const (
	DatasetKey  = "data.dataset"
	PathKey     = "data.path"
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
)

// Training progress and scores.
const (
	DurationMsKey = "perf.duration_ms"
	IterationKey  = "training.iteration"
	LossKey       = "metrics.loss"
	ScoreKey      = "metrics.score"
)

// Values for OperationKey.
const (
	OperationFit    = "fit"
	OperationSearch = "search"
)

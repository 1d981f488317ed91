package planner

import (
	"github.com/Corey-Zumar/plots-model-comp-paper/planner/netcalc"
)

// Catalogue enumerates and upgrades stage configurations.
type Catalogue interface {
	// EnumerateConfigs returns every configuration of stage with 1..maxReplicas replicas.
	EnumerateConfigs(stage string, maxReplicas int) ([]StageConfig, error)
	// UpgradeAccelerator moves cfg to the next accelerator tier, or returns ErrExhausted.
	UpgradeAccelerator(cfg StageConfig) (StageConfig, error)
	// IncreaseBatchSize moves cfg to the next batch size, or returns ErrExhausted.
	IncreaseBatchSize(cfg StageConfig) (StageConfig, error)
}

// Estimator predicts the performance of stage and pipeline configurations.
type Estimator interface {
	EstimateStage(cfg StageConfig) (StagePerformance, error)
	// EstimatePipeline returns ErrInvalidConfig for configurations it cannot evaluate.
	EstimatePipeline(p *Pipeline, scale ScaleFactors, cfg PipelineConfig) (Estimate, error)
	ValidConfig(cfg PipelineConfig) bool
}

// WaitModel bounds the queueing wait in front of a pipeline.
type WaitModel interface {
	// MaxWait returns the wait in seconds for a pipeline serving throughput
	// requests per second, or Unstable when the queue grows without limit.
	MaxWait(throughput float64) netcalc.Bound
}

// Option configures a search.
type Option func(*options)

type options struct {
	reporter      Reporter
	waitModel     WaitModel
	maxIterations int
	runID         string
}

func newOptions(opts []Option) options {
	o := options{reporter: NopReporter{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithReporter sets the observer notified of search progress.
func WithReporter(r Reporter) Option {
	return func(o *options) {
		if r != nil {
			o.reporter = r
		}
	}
}

// WithWaitModel replaces the network-calculus wait model used by greedy search
// when queueing is enabled.
func WithWaitModel(m WaitModel) Option {
	return func(o *options) { o.waitModel = m }
}

// WithMaxIterations caps the number of greedy steps. Zero means unlimited.
func WithMaxIterations(n int) Option {
	return func(o *options) { o.maxIterations = n }
}

// WithRunID tags reporter events with id.
func WithRunID(id string) Option {
	return func(o *options) { o.runID = id }
}

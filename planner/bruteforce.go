package planner

import (
	"errors"
	"fmt"

	"github.com/Corey-Zumar/plots-model-comp-paper/planner/netcalc"
)

// ProgressInterval is how many combinations brute force walks between Progress events.
const ProgressInterval = 1000

// BruteForce exhaustively evaluates every combination of per-stage configs.
type BruteForce struct {
	pipeline  *Pipeline
	scale     ScaleFactors
	catalogue Catalogue
	estimator Estimator
	opts      options
}

// NewBruteForce returns a brute-force search over pipeline. WithWaitModel and
// WithMaxIterations have no effect on it.
func NewBruteForce(pipeline *Pipeline, scale ScaleFactors, cat Catalogue, est Estimator, opts ...Option) *BruteForce {
	return &BruteForce{
		pipeline:  pipeline,
		scale:     scale,
		catalogue: cat,
		estimator: est,
		opts:      newOptions(opts),
	}
}

// SelectConfig returns the highest-throughput configuration on cloud whose
// estimated latency and cost meet c, using at most maxReplicas replicas per
// stage. Throughput ties keep the first combination seen. ErrNoFeasibleConfig
// is returned when no combination qualifies.
func (b *BruteForce) SelectConfig(cloud string, c Constraints, maxReplicas int) (*Result, error) {
	rep := b.opts.reporter
	rep.SearchStarted(RunInfo{ID: b.opts.runID, Strategy: StrategyBruteForce, Cloud: cloud, Constraints: c})
	res, err := b.selectConfig(cloud, c, maxReplicas)
	rep.SearchFinished(Outcome{Strategy: StrategyBruteForce, Result: res, Err: err})
	return res, err
}

func (b *BruteForce) selectConfig(cloud string, c Constraints, maxReplicas int) (*Result, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if maxReplicas < 1 {
		return nil, fmt.Errorf("max replicas must be >= 1, got %d", maxReplicas)
	}

	choices := make([][]StageConfig, len(b.pipeline.Stages))
	for i, stage := range b.pipeline.Stages {
		cfgs, err := b.catalogue.EnumerateConfigs(stage, maxReplicas)
		if err != nil {
			return nil, fmt.Errorf("enumerating configs for stage %q: %w", stage, err)
		}
		if len(cfgs) == 0 {
			return nil, fmt.Errorf("%w: stage %q has no configurations", ErrNoFeasibleConfig, stage)
		}
		choices[i] = cfgs
	}

	rep := b.opts.reporter
	var best *Result
	processed, evaluations := 0, 0
	idx := make([]int, len(choices))
	for {
		cfg := NewPipelineConfig(pick(choices, idx)...)
		processed++
		if processed%ProgressInterval == 0 {
			rep.Progress(StrategyBruteForce, processed)
		}

		if shared, ok := cfg.Cloud(); ok && shared == cloud && b.estimator.ValidConfig(cfg) {
			est, err := b.estimator.EstimatePipeline(b.pipeline, b.scale, cfg)
			switch {
			case errors.Is(err, ErrInvalidConfig):
				rep.CandidateEvaluated(Candidate{Strategy: StrategyBruteForce, Config: cfg, Skipped: err})
			case err != nil:
				return nil, fmt.Errorf("estimating %s: %w", cfg, err)
			default:
				evaluations++
				cand := Candidate{
					Strategy:     StrategyBruteForce,
					Config:       cfg,
					Estimate:     est,
					ResponseTime: netcalc.Bounded(est.Latency),
					Feasible:     c.Admits(est),
				}
				rep.CandidateEvaluated(cand)
				if cand.Feasible && (best == nil || est.Throughput > best.Estimate.Throughput) {
					best = &Result{Config: cfg, Estimate: est, ResponseTime: cand.ResponseTime}
					rep.BestUpdated(cand)
				}
			}
		}

		if !advance(idx, choices) {
			break
		}
	}

	if best == nil {
		return nil, ErrNoFeasibleConfig
	}
	best.Evaluations = evaluations
	return best, nil
}

// pick returns the stage configs selected by idx.
func pick(choices [][]StageConfig, idx []int) []StageConfig {
	out := make([]StageConfig, len(idx))
	for i, j := range idx {
		out[i] = choices[i][j]
	}
	return out
}

// advance steps idx like an odometer whose last digit turns fastest, and
// reports false once every combination has been produced.
func advance(idx []int, choices [][]StageConfig) bool {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < len(choices[i]) {
			return true
		}
		idx[i] = 0
	}
	return false
}

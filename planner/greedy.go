package planner

import (
	"errors"
	"fmt"

	"github.com/Corey-Zumar/plots-model-comp-paper/planner/netcalc"
)

// Greedy climbs from an initial configuration by repeatedly improving the
// bottleneck stage with the single action that yields the highest pipeline
// throughput while staying within the constraints.
type Greedy struct {
	pipeline  *Pipeline
	scale     ScaleFactors
	catalogue Catalogue
	estimator Estimator
	opts      options
}

// NewGreedy returns a greedy search over pipeline.
func NewGreedy(pipeline *Pipeline, scale ScaleFactors, cat Catalogue, est Estimator, opts ...Option) *Greedy {
	return &Greedy{
		pipeline:  pipeline,
		scale:     scale,
		catalogue: cat,
		estimator: est,
		opts:      newOptions(opts),
	}
}

// candidate is a feasible next configuration.
type candidate struct {
	action   Action
	to       StageConfig
	config   PipelineConfig
	estimate Estimate
	effDelta float64
}

// SelectConfig climbs from initial on cloud. When useQueueingModel is set, the
// response time adds the queueing wait: from the WithWaitModel model if one was
// given, otherwise from a network-calculus model over arrivals. Without it the
// response time is the estimated latency.
//
// Candidates are admitted on estimated latency and cost. The final
// configuration's response time is then checked against the latency bound; on
// failure an *UnsatisfiedError carrying the configuration is returned.
func (g *Greedy) SelectConfig(cloud string, c Constraints, initial PipelineConfig, arrivals *netcalc.ArrivalTrace, useQueueingModel bool) (*Result, error) {
	rep := g.opts.reporter
	rep.SearchStarted(RunInfo{ID: g.opts.runID, Strategy: StrategyGreedy, Cloud: cloud, Constraints: c})
	res, stoppedEarly, err := g.selectConfig(cloud, c, initial, arrivals, useQueueingModel)
	rep.SearchFinished(Outcome{Strategy: StrategyGreedy, Result: res, Err: err, StoppedEarly: stoppedEarly})
	return res, err
}

func (g *Greedy) selectConfig(cloud string, c Constraints, initial PipelineConfig, arrivals *netcalc.ArrivalTrace, useQueueingModel bool) (*Result, bool, error) {
	if err := c.Validate(); err != nil {
		return nil, false, err
	}
	if err := g.checkInitial(cloud, initial); err != nil {
		return nil, false, err
	}
	wait, err := g.waitModel(arrivals, useQueueingModel)
	if err != nil {
		return nil, false, err
	}

	rep := g.opts.reporter
	current := initial
	est, err := g.estimator.EstimatePipeline(g.pipeline, g.scale, current)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrInvalidInitialConfig, err)
	}
	evaluations := 1
	iterations := 0
	stoppedEarly := false

	for {
		if g.opts.maxIterations > 0 && iterations >= g.opts.maxIterations {
			stoppedEarly = true
			break
		}

		stage := est.Bottleneck
		from, ok := current.Get(stage)
		if !ok {
			return nil, false, fmt.Errorf("estimator reported unknown bottleneck stage %q", stage)
		}
		perf, err := g.estimator.EstimateStage(from)
		if err != nil {
			return nil, false, fmt.Errorf("estimating bottleneck stage %q: %w", stage, err)
		}

		var best *candidate
		for _, action := range Actions {
			cand := Candidate{Strategy: StrategyGreedy, Iteration: iterations, Stage: stage, Action: action}
			to, err := action.Apply(g.catalogue, from)
			if errors.Is(err, ErrExhausted) {
				cand.Skipped = err
				rep.CandidateEvaluated(cand)
				continue
			}
			if err != nil {
				return nil, false, fmt.Errorf("applying %s to stage %q: %w", action, stage, err)
			}

			next := current.With(to)
			nextEst, err := g.estimator.EstimatePipeline(g.pipeline, g.scale, next)
			if errors.Is(err, ErrInvalidConfig) {
				cand.Config = next
				cand.Skipped = err
				rep.CandidateEvaluated(cand)
				continue
			}
			if err != nil {
				return nil, false, fmt.Errorf("estimating %s: %w", next, err)
			}
			evaluations++

			cand.Config = next
			cand.Estimate = nextEst
			cand.ResponseTime = responseTime(nextEst, wait)
			cand.Feasible = c.Admits(nextEst)
			rep.CandidateEvaluated(cand)
			if !cand.Feasible {
				continue
			}

			nextPerf, err := g.estimator.EstimateStage(to)
			if err != nil {
				return nil, false, fmt.Errorf("estimating stage %s: %w", to, err)
			}
			choice := candidate{
				action:   action,
				to:       to,
				config:   next,
				estimate: nextEst,
				effDelta: nextPerf.Efficiency() - perf.Efficiency(),
			}
			if nextEst.Throughput < est.Throughput {
				rep.MonotonicityViolated(Step{
					Iteration:       iterations,
					Stage:           stage,
					Action:          action,
					From:            from,
					To:              to,
					Before:          est,
					After:           nextEst,
					EfficiencyDelta: choice.effDelta,
				})
			}
			if best == nil || nextEst.Throughput > best.estimate.Throughput {
				best = &choice
			}
		}

		if best == nil {
			break
		}
		iterations++
		rep.ActionCommitted(Step{
			Iteration:       iterations,
			Stage:           stage,
			Action:          best.action,
			From:            from,
			To:              best.to,
			Before:          est,
			After:           best.estimate,
			EfficiencyDelta: best.effDelta,
		})
		current, est = best.config, best.estimate
	}

	res := &Result{
		Config:       current,
		Estimate:     est,
		ResponseTime: responseTime(est, wait),
		Iterations:   iterations,
		Evaluations:  evaluations,
	}
	if violations := c.violations(res.ResponseTime, est.Cost); len(violations) > 0 {
		return nil, stoppedEarly, &UnsatisfiedError{Result: *res, Violations: violations}
	}
	return res, stoppedEarly, nil
}

// checkInitial rejects starting points the search cannot climb from.
func (g *Greedy) checkInitial(cloud string, initial PipelineConfig) error {
	if !g.pipeline.HasStageSet(initial) {
		return fmt.Errorf("%w: stages %v do not match pipeline stages %v",
			ErrInvalidInitialConfig, initial.StageNames(), g.pipeline.Stages)
	}
	if shared, ok := initial.Cloud(); !ok || shared != cloud {
		return fmt.Errorf("%w: configuration %s is not entirely on cloud %q", ErrInvalidInitialConfig, initial, cloud)
	}
	if !g.estimator.ValidConfig(initial) {
		return fmt.Errorf("%w: %s is not a valid configuration", ErrInvalidInitialConfig, initial)
	}
	return nil
}

// waitModel picks the wait model for this run, or nil when queueing is off.
func (g *Greedy) waitModel(arrivals *netcalc.ArrivalTrace, useQueueingModel bool) (WaitModel, error) {
	if !useQueueingModel {
		return nil, nil
	}
	if g.opts.waitModel != nil {
		return g.opts.waitModel, nil
	}
	if arrivals == nil {
		return nil, errors.New("queueing model requested without an arrival trace")
	}
	return NewNetCalcWaitModel(netcalc.NewEngine(arrivals)), nil
}

// responseTime is the estimated latency plus the queueing wait, if any.
func responseTime(est Estimate, wait WaitModel) netcalc.Bound {
	if wait == nil {
		return netcalc.Bounded(est.Latency)
	}
	return wait.MaxWait(est.Throughput).Add(est.Latency)
}

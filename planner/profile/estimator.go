package profile

import (
	"fmt"
	"math"

	"github.com/Corey-Zumar/plots-model-comp-paper/planner"
)

// EstimateStage returns replicas × the measured per-replica throughput and cost,
// with the measured batch latency.
func (p *Profile) EstimateStage(cfg planner.StageConfig) (planner.StagePerformance, error) {
	if cfg.Replicas < 1 {
		return planner.StagePerformance{}, fmt.Errorf("%w: %s has no replicas", planner.ErrInvalidConfig, cfg)
	}
	a, b, ok := p.lookup(cfg)
	if !ok {
		return planner.StagePerformance{}, fmt.Errorf("%w: %s is not profiled", planner.ErrInvalidConfig, cfg)
	}
	return planner.StagePerformance{
		Latency:    b.Latency,
		Throughput: float64(cfg.Replicas) * b.Throughput,
		Cost:       float64(cfg.Replicas) * a.Cost,
	}, nil
}

// EstimatePipeline combines stage estimates. Each stage's throughput is divided
// by its scale factor; the pipeline's throughput is the smallest of those and
// the bottleneck is the first stage (in pipeline order) attaining it. Latency is
// the longest path through the DAG and cost the sum over stages.
func (p *Profile) EstimatePipeline(pipe *planner.Pipeline, scale planner.ScaleFactors, cfg planner.PipelineConfig) (planner.Estimate, error) {
	if !p.ValidConfig(cfg) || !pipe.HasStageSet(cfg) {
		return planner.Estimate{}, fmt.Errorf("%w: %s", planner.ErrInvalidConfig, cfg)
	}
	order, err := pipe.TopologicalOrder()
	if err != nil {
		return planner.Estimate{}, err
	}

	perf := make(map[string]planner.StagePerformance, len(pipe.Stages))
	est := planner.Estimate{Throughput: math.Inf(1)}
	for _, stage := range pipe.Stages {
		sc, _ := cfg.Get(stage)
		sp, err := p.EstimateStage(sc)
		if err != nil {
			return planner.Estimate{}, err
		}
		perf[stage] = sp
		est.Cost += sp.Cost
		if t := sp.Throughput / scale.Of(stage); t < est.Throughput {
			est.Throughput = t
			est.Bottleneck = stage
		}
	}

	finish := make(map[string]float64, len(order))
	for _, stage := range order {
		start := 0.0
		for _, pred := range pipe.Predecessors(stage) {
			start = max(start, finish[pred])
		}
		finish[stage] = start + perf[stage].Latency
		est.Latency = max(est.Latency, finish[stage])
	}
	return est, nil
}

// ValidConfig reports whether cfg configures exactly the profile's stages on a
// single cloud with every stage measured and at least one replica.
func (p *Profile) ValidConfig(cfg planner.PipelineConfig) bool {
	if !p.pipeline.HasStageSet(cfg) {
		return false
	}
	if _, ok := cfg.Cloud(); !ok {
		return false
	}
	for _, sc := range cfg.Configs() {
		if sc.Replicas < 1 {
			return false
		}
		if _, _, ok := p.lookup(sc); !ok {
			return false
		}
	}
	return true
}

// InitialConfig returns the cheapest configuration on cloud: every stage on its
// lowest measured tier at the smallest batch size with one replica.
func (p *Profile) InitialConfig(cloud string) (planner.PipelineConfig, error) {
	ranking, ok := p.Clouds[cloud]
	if !ok {
		return planner.PipelineConfig{}, fmt.Errorf("unknown cloud %q", cloud)
	}
	cfgs := make([]planner.StageConfig, 0, len(p.pipeline.Stages))
	for _, stage := range p.pipeline.Stages {
		found := false
		for _, accel := range ranking {
			a, ok := p.index[accelKey{stage, cloud, accel}]
			if !ok {
				continue
			}
			cfgs = append(cfgs, planner.StageConfig{
				Stage:       stage,
				Cloud:       cloud,
				Accelerator: accel,
				BatchSize:   a.Batches[0].BatchSize,
				Replicas:    1,
			})
			found = true
			break
		}
		if !found {
			return planner.PipelineConfig{}, fmt.Errorf("stage %q has no measurements on cloud %q", stage, cloud)
		}
	}
	return planner.NewPipelineConfig(cfgs...), nil
}

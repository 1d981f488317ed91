package planner

import (
	"errors"
	"fmt"
	"math"

	"github.com/Corey-Zumar/plots-model-comp-paper/planner/netcalc"
	"github.com/Corey-Zumar/plots-model-comp-paper/planner/trace"
)

// fakePerf is per-replica performance at one batch size.
type fakePerf struct {
	latency, throughput float64
}

// fakeTier is one accelerator with its hourly cost and measured batch sizes.
type fakeTier struct {
	name    string
	cost    float64
	batches []int // ascending
	perf    map[int]fakePerf
}

// fakeProfile is a small in-memory Catalogue and Estimator over a chain of
// stages. Pipeline latency is the sum of stage latencies.
type fakeProfile struct {
	cloud      string
	tiers      map[string][]fakeTier // stage → tiers, cheapest first
	upgradeErr error                 // returned by UpgradeAccelerator when set
}

func (f *fakeProfile) tier(cfg StageConfig) (int, *fakeTier, bool) {
	for i := range f.tiers[cfg.Stage] {
		if f.tiers[cfg.Stage][i].name == cfg.Accelerator {
			return i, &f.tiers[cfg.Stage][i], true
		}
	}
	return 0, nil, false
}

func (f *fakeProfile) EnumerateConfigs(stage string, maxReplicas int) ([]StageConfig, error) {
	var out []StageConfig
	for _, t := range f.tiers[stage] {
		for _, b := range t.batches {
			for r := 1; r <= maxReplicas; r++ {
				out = append(out, StageConfig{Stage: stage, Cloud: f.cloud, Accelerator: t.name, BatchSize: b, Replicas: r})
			}
		}
	}
	return out, nil
}

func (f *fakeProfile) UpgradeAccelerator(cfg StageConfig) (StageConfig, error) {
	if f.upgradeErr != nil {
		return StageConfig{}, f.upgradeErr
	}
	i, _, ok := f.tier(cfg)
	if !ok {
		return StageConfig{}, ErrInvalidConfig
	}
	tiers := f.tiers[cfg.Stage]
	if i+1 >= len(tiers) {
		return StageConfig{}, ErrExhausted
	}
	next := cfg
	next.Accelerator = tiers[i+1].name
	next.BatchSize = tiers[i+1].batches[0]
	for _, b := range tiers[i+1].batches {
		if b <= cfg.BatchSize {
			next.BatchSize = b
		}
	}
	return next, nil
}

func (f *fakeProfile) IncreaseBatchSize(cfg StageConfig) (StageConfig, error) {
	_, t, ok := f.tier(cfg)
	if !ok {
		return StageConfig{}, ErrInvalidConfig
	}
	for _, b := range t.batches {
		if b > cfg.BatchSize {
			next := cfg
			next.BatchSize = b
			return next, nil
		}
	}
	return StageConfig{}, ErrExhausted
}

func (f *fakeProfile) EstimateStage(cfg StageConfig) (StagePerformance, error) {
	_, t, ok := f.tier(cfg)
	if !ok {
		return StagePerformance{}, fmt.Errorf("%w: %s", ErrInvalidConfig, cfg)
	}
	p, ok := t.perf[cfg.BatchSize]
	if !ok || cfg.Replicas < 1 {
		return StagePerformance{}, fmt.Errorf("%w: %s", ErrInvalidConfig, cfg)
	}
	r := float64(cfg.Replicas)
	return StagePerformance{Latency: p.latency, Throughput: r * p.throughput, Cost: r * t.cost}, nil
}

func (f *fakeProfile) EstimatePipeline(p *Pipeline, scale ScaleFactors, cfg PipelineConfig) (Estimate, error) {
	if !p.HasStageSet(cfg) || !f.ValidConfig(cfg) {
		return Estimate{}, ErrInvalidConfig
	}
	est := Estimate{Throughput: math.Inf(1)}
	for _, s := range p.Stages {
		sc, _ := cfg.Get(s)
		perf, err := f.EstimateStage(sc)
		if err != nil {
			return Estimate{}, err
		}
		est.Latency += perf.Latency
		est.Cost += perf.Cost
		if t := perf.Throughput / scale.Of(s); t < est.Throughput {
			est.Throughput = t
			est.Bottleneck = s
		}
	}
	return est, nil
}

func (f *fakeProfile) ValidConfig(cfg PipelineConfig) bool {
	if _, ok := cfg.Cloud(); !ok {
		return false
	}
	for _, sc := range cfg.Configs() {
		if _, err := f.EstimateStage(sc); err != nil {
			return false
		}
	}
	return true
}

// singleStage builds a one-stage pipeline named "model" with a cpu and a gpu tier.
func singleStage() (*Pipeline, *fakeProfile) {
	f := &fakeProfile{
		cloud: "aws",
		tiers: map[string][]fakeTier{
			"model": {
				{name: "cpu", cost: 1, batches: []int{1, 4}, perf: map[int]fakePerf{
					1: {latency: 0.1, throughput: 10},
					4: {latency: 0.3, throughput: 25},
				}},
				{name: "gpu", cost: 4, batches: []int{1, 4}, perf: map[int]fakePerf{
					1: {latency: 0.02, throughput: 60},
					4: {latency: 0.05, throughput: 150},
				}},
			},
		},
	}
	return &Pipeline{Name: "single", Stages: []string{"model"}}, f
}

// replicaOnly builds a one-stage pipeline whose only lever is replication.
func replicaOnly() (*Pipeline, *fakeProfile) {
	f := &fakeProfile{
		cloud: "aws",
		tiers: map[string][]fakeTier{
			"model": {{name: "cpu", cost: 1, batches: []int{1}, perf: map[int]fakePerf{1: {latency: 0.1, throughput: 10}}}},
		},
	}
	return &Pipeline{Name: "replicas", Stages: []string{"model"}}, f
}

// twoStage builds a preprocess → model chain.
func twoStage() (*Pipeline, *fakeProfile) {
	f := &fakeProfile{
		cloud: "aws",
		tiers: map[string][]fakeTier{
			"preprocess": {
				{name: "cpu", cost: 0.5, batches: []int{1}, perf: map[int]fakePerf{1: {latency: 0.01, throughput: 40}}},
			},
			"model": {
				{name: "cpu", cost: 1, batches: []int{1, 4}, perf: map[int]fakePerf{
					1: {latency: 0.1, throughput: 10},
					4: {latency: 0.3, throughput: 25},
				}},
				{name: "gpu", cost: 4, batches: []int{1, 4}, perf: map[int]fakePerf{
					1: {latency: 0.02, throughput: 60},
					4: {latency: 0.05, throughput: 150},
				}},
			},
		},
	}
	return &Pipeline{Name: "chain", Stages: []string{"preprocess", "model"}, Edges: [][2]string{{"preprocess", "model"}}}, f
}

func sc(stage, accel string, batch, replicas int) StageConfig {
	return StageConfig{Stage: stage, Cloud: "aws", Accelerator: accel, BatchSize: batch, Replicas: replicas}
}

// constantWait is a WaitModel returning a fixed bound.
type constantWait struct{ wait netcalc.Bound }

func (c constantWait) MaxWait(float64) netcalc.Bound { return c.wait }

// countingReporter counts lifecycle and progress events.
type countingReporter struct {
	NopReporter
	progress []int
	started  int
	finished []Outcome
}

func (c *countingReporter) SearchStarted(RunInfo)      { c.started++ }
func (c *countingReporter) Progress(_ Strategy, n int) { c.progress = append(c.progress, n) }
func (c *countingReporter) SearchFinished(o Outcome)   { c.finished = append(c.finished, o) }

func newTrace() (*trace.SearchTrace, Reporter) {
	st := trace.NewSearchTrace(trace.TraceConfig{Level: trace.TraceLevelCandidates})
	return st, NewTraceReporter(st)
}

var errCatalogueDown = errors.New("catalogue unavailable")

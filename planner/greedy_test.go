package planner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corey-Zumar/plots-model-comp-paper/planner/netcalc"
)

func cheapest(stages ...string) PipelineConfig {
	cfgs := make([]StageConfig, len(stages))
	for i, s := range stages {
		cfgs[i] = sc(s, "cpu", 1, 1)
	}
	return NewPipelineConfig(cfgs...)
}

func TestGreedy_ClimbsSingleStageToBruteForceOptimum(t *testing.T) {
	// GIVEN a single stage starting on one cpu replica
	pipe, f := singleStage()
	st, rep := newTrace()
	g := NewGreedy(pipe, nil, f, f, WithReporter(rep))

	// WHEN climbing under 0.2s and $8/hr
	res, err := g.SelectConfig("aws", Constraints{Latency: 0.2, Cost: 8}, cheapest("model"), nil, false)

	// THEN it upgrades, raises the batch, then replicates
	require.NoError(t, err)
	got, _ := res.Config.Get("model")
	assert.Equal(t, sc("model", "gpu", 4, 2), got)
	assert.Equal(t, 3, res.Iterations)
	require.Len(t, st.Iterations, 3)
	assert.Equal(t, "upgrade-accelerator", st.Iterations[0].Action)
	assert.Equal(t, "increase-batch-size", st.Iterations[1].Action)
	assert.Equal(t, "add-replica", st.Iterations[2].Action)
}

func TestGreedy_FromBruteForceOptimumTerminatesImmediately(t *testing.T) {
	// GIVEN the brute-force optimum for one stage
	pipe, f := singleStage()
	c := Constraints{Latency: 0.2, Cost: 8}
	best, err := NewBruteForce(pipe, nil, f, f).SelectConfig("aws", c, 3)
	require.NoError(t, err)

	// WHEN greedy starts from it
	res, err := NewGreedy(pipe, nil, f, f).SelectConfig("aws", c, best.Config, nil, false)

	// THEN no step is taken and the config is unchanged
	require.NoError(t, err)
	assert.Equal(t, 0, res.Iterations)
	assert.True(t, res.Config.Equal(best.Config))
}

func TestGreedy_TwoStageAlternatesBottleneck(t *testing.T) {
	pipe, f := twoStage()
	st, rep := newTrace()

	res, err := NewGreedy(pipe, nil, f, f, WithReporter(rep)).
		SelectConfig("aws", Constraints{Latency: 0.2, Cost: 8}, cheapest("preprocess", "model"), nil, false)

	require.NoError(t, err)
	want := NewPipelineConfig(sc("preprocess", "cpu", 1, 4), sc("model", "gpu", 4, 1))
	assert.True(t, res.Config.Equal(want), "got %s", res.Config)
	assert.Equal(t, 5, res.Iterations)
	assert.InDelta(t, 150.0, res.Estimate.Throughput, 1e-9)
	assert.InDelta(t, 6.0, res.Estimate.Cost, 1e-9)

	stages := make([]string, len(st.Iterations))
	for i, it := range st.Iterations {
		stages[i] = it.Stage
	}
	assert.Equal(t, []string{"model", "preprocess", "model", "preprocess", "preprocess"}, stages)
}

func TestGreedy_SuccessNeverViolatesBounds(t *testing.T) {
	pipe, f := twoStage()
	for _, latency := range []float64{0.05, 0.1, 0.2, 1} {
		for _, cost := range []float64{1, 3, 5, 8, 20} {
			c := Constraints{Latency: latency, Cost: cost}
			res, err := NewGreedy(pipe, nil, f, f).SelectConfig("aws", c, cheapest("preprocess", "model"), nil, false)
			if err != nil {
				var unsat *UnsatisfiedError
				require.True(t, errors.As(err, &unsat), "latency %v cost %v: %v", latency, cost, err)
				assert.NotEmpty(t, unsat.Violations)
				continue
			}
			assert.True(t, res.ResponseTime.Within(latency), "latency %v cost %v", latency, cost)
			assert.LessOrEqual(t, res.Estimate.Cost, cost, "latency %v cost %v", latency, cost)
		}
	}
}

func TestGreedy_ReplicationStopsAtCostBound(t *testing.T) {
	// GIVEN a stage that can only be replicated at $1/hr per replica
	pipe, f := replicaOnly()

	// WHEN the budget is $5.5/hr
	res, err := NewGreedy(pipe, nil, f, f).SelectConfig("aws", Constraints{Latency: 1, Cost: 5.5}, cheapest("model"), nil, false)

	// THEN it stops at five replicas
	require.NoError(t, err)
	got, _ := res.Config.Get("model")
	assert.Equal(t, 5, got.Replicas)
	assert.Equal(t, 4, res.Iterations)
	assert.InDelta(t, 50.0, res.Estimate.Throughput, 1e-9)
}

func TestGreedy_IdempotentAtLocalOptimum(t *testing.T) {
	pipe, f := twoStage()
	c := Constraints{Latency: 0.2, Cost: 8}
	first, err := NewGreedy(pipe, nil, f, f).SelectConfig("aws", c, cheapest("preprocess", "model"), nil, false)
	require.NoError(t, err)

	second, err := NewGreedy(pipe, nil, f, f).SelectConfig("aws", c, first.Config, nil, false)

	require.NoError(t, err)
	assert.Equal(t, 0, second.Iterations)
	assert.True(t, second.Config.Equal(first.Config))
}

func TestGreedy_ThroughputTieFollowsActionOrder(t *testing.T) {
	// GIVEN an upgrade and a replica that both double throughput at the same cost
	f := &fakeProfile{cloud: "aws", tiers: map[string][]fakeTier{
		"model": {
			{name: "cpu", cost: 1, batches: []int{1}, perf: map[int]fakePerf{1: {latency: 0.1, throughput: 10}}},
			{name: "gpu", cost: 2, batches: []int{1}, perf: map[int]fakePerf{1: {latency: 0.1, throughput: 20}}},
		},
	}}
	pipe := &Pipeline{Name: "tie", Stages: []string{"model"}}

	res, err := NewGreedy(pipe, nil, f, f).SelectConfig("aws", Constraints{Latency: 1, Cost: 2.5}, cheapest("model"), nil, false)

	// THEN the accelerator upgrade wins
	require.NoError(t, err)
	got, _ := res.Config.Get("model")
	assert.Equal(t, sc("model", "gpu", 1, 1), got)
}

func TestGreedy_MonotonicityAnomalyReportedAndAccepted(t *testing.T) {
	// GIVEN an "upgrade" that lowers throughput and is the only affordable move
	f := &fakeProfile{cloud: "aws", tiers: map[string][]fakeTier{
		"model": {
			{name: "cpu", cost: 1, batches: []int{1}, perf: map[int]fakePerf{1: {latency: 0.1, throughput: 50}}},
			{name: "gpu", cost: 1.5, batches: []int{1}, perf: map[int]fakePerf{1: {latency: 0.1, throughput: 40}}},
		},
	}}
	pipe := &Pipeline{Name: "anomaly", Stages: []string{"model"}}
	st, rep := newTrace()

	// WHEN climbing
	res, err := NewGreedy(pipe, nil, f, f, WithReporter(rep)).
		SelectConfig("aws", Constraints{Latency: 1, Cost: 1.8}, cheapest("model"), nil, false)

	// THEN the regression is recorded and the step is still taken
	require.NoError(t, err)
	got, _ := res.Config.Get("model")
	assert.Equal(t, "gpu", got.Accelerator)
	assert.InDelta(t, 40.0, res.Estimate.Throughput, 1e-9)
	require.Len(t, st.Anomalies, 1)
	assert.Equal(t, 50.0, st.Anomalies[0].ThroughputBefore)
	assert.Equal(t, 40.0, st.Anomalies[0].ThroughputAfter)
}

func TestGreedy_UnsatisfiedLatencyAfterQueueing(t *testing.T) {
	// GIVEN a wait model adding half a second
	pipe, f := singleStage()
	g := NewGreedy(pipe, nil, f, f, WithWaitModel(constantWait{netcalc.Bounded(0.5)}))

	// WHEN climbing with queueing enabled
	_, err := g.SelectConfig("aws", Constraints{Latency: 0.2, Cost: 8}, cheapest("model"), nil, true)

	// THEN the final response time breaks the latency bound by its excess
	var unsat *UnsatisfiedError
	require.True(t, errors.As(err, &unsat))
	assert.ErrorIs(t, err, ErrUnsatisfiable)
	v, ok := unsat.Violated(BoundLatency)
	require.True(t, ok)
	assert.InDelta(t, 0.55, v.Actual.Float(), 1e-9)
	assert.InDelta(t, 0.35, v.Excess.Float(), 1e-9)
	_, costBroken := unsat.Violated(BoundCost)
	assert.False(t, costBroken)
	got, _ := unsat.Result.Config.Get("model")
	assert.Equal(t, sc("model", "gpu", 4, 2), got)
}

func TestGreedy_UnstableQueueViolatesLatency(t *testing.T) {
	pipe, f := singleStage()
	g := NewGreedy(pipe, nil, f, f, WithWaitModel(constantWait{netcalc.Unstable()}))

	_, err := g.SelectConfig("aws", Constraints{Latency: 0.2, Cost: 8}, cheapest("model"), nil, true)

	var unsat *UnsatisfiedError
	require.True(t, errors.As(err, &unsat))
	v, ok := unsat.Violated(BoundLatency)
	require.True(t, ok)
	assert.True(t, v.Actual.IsUnstable())
	assert.True(t, v.Excess.IsUnstable())
}

func TestGreedy_UnsatisfiedCost(t *testing.T) {
	// GIVEN a start already over budget with no affordable move
	pipe, f := singleStage()
	initial := NewPipelineConfig(sc("model", "gpu", 4, 3))

	_, err := NewGreedy(pipe, nil, f, f).SelectConfig("aws", Constraints{Latency: 0.2, Cost: 8}, initial, nil, false)

	var unsat *UnsatisfiedError
	require.True(t, errors.As(err, &unsat))
	v, ok := unsat.Violated(BoundCost)
	require.True(t, ok)
	assert.InDelta(t, 4.0, v.Excess.Float(), 1e-9)
	assert.Equal(t, 0, unsat.Result.Iterations)
}

func TestGreedy_NetCalcQueueingAddsBoundedWait(t *testing.T) {
	// GIVEN arrivals every 100ms
	times := make([]float64, 50)
	for i := range times {
		times[i] = float64(i) * 100
	}
	arrivals, err := netcalc.NewArrivalTrace(times)
	require.NoError(t, err)
	pipe, f := singleStage()

	// WHEN climbing with the network-calculus wait model
	res, err := NewGreedy(pipe, nil, f, f).SelectConfig("aws", Constraints{Latency: 0.2, Cost: 8}, cheapest("model"), arrivals, true)

	// THEN the response time is latency plus the worst wait at 0.3 req/ms
	require.NoError(t, err)
	assert.InDelta(t, 0.05+(1/0.3-1)/1000, res.ResponseTime.Float(), 1e-9)
}

func TestGreedy_QueueingWithoutTraceFails(t *testing.T) {
	pipe, f := singleStage()
	_, err := NewGreedy(pipe, nil, f, f).SelectConfig("aws", Constraints{Latency: 0.2, Cost: 8}, cheapest("model"), nil, true)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsatisfiable)
}

func TestGreedy_RejectsInvalidInitialConfig(t *testing.T) {
	pipe, f := twoStage()
	tests := []struct {
		name    string
		cloud   string
		initial PipelineConfig
	}{
		{"missing stage", "aws", cheapest("model")},
		{"extra stage", "aws", cheapest("preprocess", "model", "rank")},
		{"wrong cloud", "gcp", cheapest("preprocess", "model")},
		{"unprofiled batch", "aws", NewPipelineConfig(sc("preprocess", "cpu", 1, 1), sc("model", "cpu", 2, 1))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st, rep := newTrace()
			_, err := NewGreedy(pipe, nil, f, f, WithReporter(rep)).
				SelectConfig(tc.cloud, Constraints{Latency: 1, Cost: 10}, tc.initial, nil, false)
			assert.ErrorIs(t, err, ErrInvalidInitialConfig)
			assert.Empty(t, st.Candidates)
		})
	}
}

func TestGreedy_CatalogueErrorAborts(t *testing.T) {
	pipe, f := singleStage()
	f.upgradeErr = errCatalogueDown

	_, err := NewGreedy(pipe, nil, f, f).SelectConfig("aws", Constraints{Latency: 0.2, Cost: 8}, cheapest("model"), nil, false)

	assert.ErrorIs(t, err, errCatalogueDown)
	assert.NotErrorIs(t, err, ErrUnsatisfiable)
}

func TestGreedy_MaxIterationsStopsEarly(t *testing.T) {
	pipe, f := singleStage()
	rep := &countingReporter{}

	res, err := NewGreedy(pipe, nil, f, f, WithReporter(rep), WithMaxIterations(1)).
		SelectConfig("aws", Constraints{Latency: 0.2, Cost: 8}, cheapest("model"), nil, false)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Iterations)
	got, _ := res.Config.Get("model")
	assert.Equal(t, sc("model", "gpu", 1, 1), got)
	require.Len(t, rep.finished, 1)
	assert.True(t, rep.finished[0].StoppedEarly)
}

func TestGreedy_ExhaustedActionsAreRecordedAsSkipped(t *testing.T) {
	pipe, f := replicaOnly()
	st, rep := newTrace()

	_, err := NewGreedy(pipe, nil, f, f, WithReporter(rep)).
		SelectConfig("aws", Constraints{Latency: 1, Cost: 1.5}, cheapest("model"), nil, false)

	require.NoError(t, err)
	require.Len(t, st.Candidates, 3)
	assert.NotEmpty(t, st.Candidates[0].SkipReason)
	assert.NotEmpty(t, st.Candidates[1].SkipReason)
	assert.Empty(t, st.Candidates[2].SkipReason)
	assert.False(t, st.Candidates[2].Feasible)
}

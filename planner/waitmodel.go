package planner

import (
	"github.com/llm-inferno/queue-analysis/pkg/queue"

	"github.com/Corey-Zumar/plots-model-comp-paper/planner/netcalc"
)

// DefaultQueueCapacity is the M/M/1/K system size used when none is given.
const DefaultQueueCapacity = 1000

// NetCalcWaitModel bounds the wait with the maximum horizontal gap between the
// trace's arrival curve and a zero-latency service curve at the pipeline's
// throughput.
type NetCalcWaitModel struct {
	engine *netcalc.Engine
}

// NewNetCalcWaitModel returns a wait model over engine's trace.
func NewNetCalcWaitModel(engine *netcalc.Engine) *NetCalcWaitModel {
	return &NetCalcWaitModel{engine: engine}
}

// MaxWait converts throughput to req/ms, takes the network-calculus delay in ms,
// and returns it in seconds.
func (m *NetCalcWaitModel) MaxWait(throughput float64) netcalc.Bound {
	if throughput <= 0 {
		return netcalc.Unstable()
	}
	_, delay := m.engine.MaxBacklogAndDelay(netcalc.ServiceCurve{Latency: 0, Throughput: throughput / 1000})
	return delay.Scale(1.0 / 1000)
}

// MM1KWaitModel estimates the mean wait of a finite M/M/1/K queue fed at the
// trace's mean arrival rate. It reflects average rather than worst-case
// behavior, so it is less conservative than NetCalcWaitModel.
type MM1KWaitModel struct {
	arrivalRate float64 // req/ms
	capacity    int
}

// NewMM1KWaitModel returns a model using the mean arrival rate of t and a system
// size of capacity requests. Non-positive capacities use DefaultQueueCapacity.
func NewMM1KWaitModel(t *netcalc.ArrivalTrace, capacity int) *MM1KWaitModel {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &MM1KWaitModel{arrivalRate: t.MeanRate(), capacity: capacity}
}

// MaxWait solves the queue with service rate throughput (req/s) and returns
// the mean queueing wait in seconds. Offered load at or above the service rate
// is reported as Unstable even though the finite queue would drop requests.
func (m *MM1KWaitModel) MaxWait(throughput float64) netcalc.Bound {
	mu := throughput / 1000
	if mu <= 0 || m.arrivalRate >= mu {
		return netcalc.Unstable()
	}
	model := queue.NewMM1ModelStateDependent(m.capacity, []float32{float32(mu)})
	model.Solve(float32(m.arrivalRate), 1)
	if !model.IsValid() {
		return netcalc.Unstable()
	}
	return netcalc.Bounded(float64(model.GetAvgWaitTime()) / 1000)
}

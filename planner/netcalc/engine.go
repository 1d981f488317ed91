package netcalc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultSampleCount is the number of evenly spaced widths at which the arrival
// curve is sampled when computing backlog and delay.
const DefaultSampleCount = 200

// maxBisectSteps bounds the bisection in MaxCrossingX. An arrival burst larger
// than one request at the crossing keeps |service - arrival| above 1 on both
// sides of the jump, so the interval would otherwise shrink to machine precision.
const maxBisectSteps = 200

// ServiceCurve is the affine (rate-latency) curve
// capacity(t) = 0 for t < Latency, Throughput*(t - Latency) otherwise.
// Latency is in ms, Throughput in requests per ms.
type ServiceCurve struct {
	Latency    float64 `yaml:"latency_ms"`
	Throughput float64 `yaml:"throughput"`
}

// Validate checks L >= 0 and mu > 0.
func (c ServiceCurve) Validate() error {
	if c.Latency < 0 || math.IsNaN(c.Latency) || math.IsInf(c.Latency, 0) {
		return fmt.Errorf("service latency must be a finite value >= 0, got %f", c.Latency)
	}
	if c.Throughput <= 0 || math.IsNaN(c.Throughput) || math.IsInf(c.Throughput, 0) {
		return fmt.Errorf("service throughput must be a finite value > 0, got %f", c.Throughput)
	}
	return nil
}

// At returns the service capacity at width x.
func (c ServiceCurve) At(x float64) float64 {
	if x < c.Latency {
		return 0
	}
	return c.Throughput * (x - c.Latency)
}

// reach returns the width at which the curve reaches y.
func (c ServiceCurve) reach(y float64) float64 {
	return y/c.Throughput + c.Latency
}

// Engine evaluates arrival curves and service bounds for one trace.
// It holds no mutable state; a single Engine may be shared across goroutines.
type Engine struct {
	trace       *ArrivalTrace
	sampleCount int
}

// Option configures an Engine.
type Option func(*Engine)

// WithSampleCount overrides DefaultSampleCount. Values below 2 are ignored.
func WithSampleCount(n int) Option {
	return func(e *Engine) {
		if n >= 2 {
			e.sampleCount = n
		}
	}
}

// NewEngine builds an engine over trace.
func NewEngine(trace *ArrivalTrace, opts ...Option) *Engine {
	e := &Engine{trace: trace, sampleCount: DefaultSampleCount}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Trace returns the engine's arrival trace.
func (e *Engine) Trace() *ArrivalTrace { return e.trace }

// ArrivalCurveAt returns the largest number of arrivals inside any closed window
// [a, a+width]. The window is swept left to right from the first arrival; at each
// step it slides just far enough for either the next arrival to enter at the
// leading edge (head) or the oldest arrival to leave at the trailing edge (tail),
// whichever needs the smaller shift. On a tie the head advances first, since an
// arrival on the leading edge is inside the window while the tail only leaves
// once the edge moves past it.
func (e *Engine) ArrivalCurveAt(width float64) int {
	if width < 0 || math.IsNaN(width) {
		return 0
	}
	ts := e.trace.times
	n := len(ts)

	// Window [a, a+width] holds indices [tail, head).
	a := ts[0]
	tail, head := 0, 1
	for head < n && ts[head] <= a+width {
		head++
	}
	best := head - tail

	for head < n {
		headDelta := ts[head] - (a + width)
		tailDelta := ts[tail] - a
		if headDelta <= tailDelta {
			edge := ts[head]
			a = edge - width
			for head < n && ts[head] <= edge {
				head++
			}
			best = max(best, head-tail)
			continue
		}
		a = ts[tail]
		for tail < head && ts[tail] <= a {
			tail++
		}
	}
	return best
}

// ArrivalCurve samples ArrivalCurveAt at every width in xs.
func (e *Engine) ArrivalCurve(xs []float64) []float64 {
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = float64(e.ArrivalCurveAt(x))
	}
	return ys
}

// MaxCrossingX returns the width beyond which the service curve stays above the
// arrival curve, or Unstable when the trace's mean inter-arrival gap is at most
// 1/mu. The search doubles x from 1 while service < arrival, then bisects
// [x/2, x] until the curves are within one request of each other. Bisection
// stops early once the midpoint reaches the trace span, since no arrivals were
// observed over wider windows. A curve that fails Validate is Unstable.
func (e *Engine) MaxCrossingX(c ServiceCurve) Bound {
	if c.Validate() != nil || e.trace.MeanGap() <= 1/c.Throughput {
		return Unstable()
	}
	arrival := func(x float64) float64 { return float64(e.ArrivalCurveAt(x)) }

	x := 1.0
	for c.At(x) < arrival(x) {
		x *= 2
	}

	left, right := x/2, x
	mid := (left + right) / 2
	span := e.trace.Span()
	for i := 0; i < maxBisectSteps && math.Abs(c.At(mid)-arrival(mid)) > 1; i++ {
		if isClose(mid, span) {
			break
		}
		if arrival(mid) > c.At(mid) {
			left = mid
		} else {
			right = mid
		}
		mid = (left + right) / 2
	}
	return Bounded(mid)
}

// MaxBacklogAndDelay returns the maximum backlog (requests) and maximum delay
// (ms) between the trace's arrival curve and c. Both are Unstable when the
// crossing is. Each maximum is floored at zero.
func (e *Engine) MaxBacklogAndDelay(c ServiceCurve) (backlog, delay Bound) {
	crossing := e.MaxCrossingX(c)
	upper, ok := crossing.Value()
	if !ok {
		return Unstable(), Unstable()
	}
	xs := floats.Span(make([]float64, e.sampleCount), 1, upper)
	ys := e.ArrivalCurve(xs)

	maxBacklog, maxDelay := 0.0, 0.0
	for i, x := range xs {
		maxBacklog = max(maxBacklog, ys[i]-c.At(x))
		maxDelay = max(maxDelay, c.reach(ys[i])-x)
	}
	return Bounded(maxBacklog), Bounded(maxDelay)
}

// isClose matches the usual relative/absolute float tolerance (rtol 1e-5, atol 1e-8).
func isClose(a, b float64) bool {
	return math.Abs(a-b) <= 1e-8+1e-5*math.Abs(b)
}

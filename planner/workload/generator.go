package workload

import (
	"fmt"
	"math/rand"

	"github.com/Corey-Zumar/plots-model-comp-paper/planner/netcalc"
)

// Generate draws spec.Count arrival timestamps (ms), the first at spec.StartMs.
// The same spec always yields the same trace.
func Generate(spec ArrivalSpec) (*netcalc.ArrivalTrace, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid arrival spec: %w", err)
	}
	rng := rand.New(rand.NewSource(spec.Seed))
	sampler := NewArrivalSampler(spec, spec.Rate/1000)

	times := make([]float64, spec.Count)
	times[0] = spec.StartMs
	for i := 1; i < spec.Count; i++ {
		times[i] = times[i-1] + sampler.SampleGap(rng)
	}
	return netcalc.NewArrivalTrace(times)
}

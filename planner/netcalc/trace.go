// Package netcalc computes deterministic network-calculus bounds from a recorded
// request arrival trace.
//
// An ArrivalTrace is turned into an arrival curve A(x), the largest number of
// arrivals observed in any window of width x. Comparing A against an affine
// ServiceCurve yields the maximum backlog (vertical gap) and the maximum waiting
// time (horizontal gap). Unstable systems, where the offered rate reaches the
// service rate, are reported through the Unstable variant of Bound.
//
// All timestamps and widths are in milliseconds; service throughput is in
// requests per millisecond.
package netcalc

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// ArrivalTrace is an immutable, non-decreasing sequence of arrival timestamps (ms).
type ArrivalTrace struct {
	times []float64
}

// NewArrivalTrace validates and copies times. It requires at least two finite,
// non-decreasing timestamps.
func NewArrivalTrace(times []float64) (*ArrivalTrace, error) {
	if len(times) < 2 {
		return nil, fmt.Errorf("arrival trace needs at least 2 timestamps, got %d", len(times))
	}
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("arrival timestamp %d must be finite, got %f", i, t)
		}
		if i > 0 && t < times[i-1] {
			return nil, fmt.Errorf("arrival timestamps must be non-decreasing: index %d (%f) < index %d (%f)",
				i, t, i-1, times[i-1])
		}
	}
	return &ArrivalTrace{times: slices.Clone(times)}, nil
}

// Len returns the number of arrivals.
func (t *ArrivalTrace) Len() int { return len(t.times) }

// Times returns a copy of the timestamps.
func (t *ArrivalTrace) Times() []float64 { return slices.Clone(t.times) }

// Start returns the first timestamp.
func (t *ArrivalTrace) Start() float64 { return t.times[0] }

// End returns the last (maximum) timestamp.
func (t *ArrivalTrace) End() float64 { return t.times[len(t.times)-1] }

// Span returns End - Start.
func (t *ArrivalTrace) Span() float64 { return t.End() - t.Start() }

// Gaps returns the inter-arrival gaps.
func (t *ArrivalTrace) Gaps() []float64 {
	gaps := make([]float64, len(t.times)-1)
	for i := 1; i < len(t.times); i++ {
		gaps[i-1] = t.times[i] - t.times[i-1]
	}
	return gaps
}

// MeanGap returns the mean inter-arrival gap in milliseconds.
func (t *ArrivalTrace) MeanGap() float64 {
	return stat.Mean(t.Gaps(), nil)
}

// MeanRate returns the mean arrival rate in requests per millisecond.
// A trace whose timestamps are all equal has an infinite rate.
func (t *ArrivalTrace) MeanRate() float64 {
	gap := t.MeanGap()
	if gap <= 0 {
		return math.Inf(1)
	}
	return 1 / gap
}

// TraceStats summarizes an arrival trace.
type TraceStats struct {
	Count     int     `yaml:"count"`
	SpanMs    float64 `yaml:"span_ms"`
	MeanGapMs float64 `yaml:"mean_gap_ms"`
	GapCV     float64 `yaml:"gap_cv"`       // coefficient of variation of gaps; 1 for Poisson
	RatePerS  float64 `yaml:"rate_per_sec"` // mean arrival rate
}

// Stats computes summary statistics for the trace.
func (t *ArrivalTrace) Stats() TraceStats {
	gaps := t.Gaps()
	mean, std := stat.Mean(gaps, nil), 0.0
	if len(gaps) > 1 {
		std = stat.StdDev(gaps, nil)
	}
	s := TraceStats{
		Count:     len(t.times),
		SpanMs:    t.Span(),
		MeanGapMs: mean,
	}
	if mean > 0 {
		s.GapCV = std / mean
		s.RatePerS = 1000 / mean
	}
	return s
}

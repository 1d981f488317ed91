// Package workload synthesizes arrival traces for planning and for tests.
// Inter-arrival gaps are drawn from Poisson, Gamma, Weibull or constant-rate
// processes and accumulated into millisecond timestamps.
package workload

import (
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// ArrivalSampler generates inter-arrival gaps.
type ArrivalSampler interface {
	// SampleGap returns the next inter-arrival gap in milliseconds. Never negative.
	SampleGap(rng *rand.Rand) float64
}

// PoissonSampler generates exponentially-distributed gaps (CV=1).
type PoissonSampler struct {
	ratePerMs float64
}

func (s *PoissonSampler) SampleGap(rng *rand.Rand) float64 {
	return rng.ExpFloat64() / s.ratePerMs
}

// ConstantSampler spaces arrivals evenly.
type ConstantSampler struct {
	gapMs float64
}

func (s *ConstantSampler) SampleGap(*rand.Rand) float64 { return s.gapMs }

// GammaSampler generates Gamma-distributed gaps. CV > 1 produces bursty
// arrivals, CV < 1 smoother than Poisson.
type GammaSampler struct {
	shape float64 // 1/CV²
	scale float64 // CV²/rate in milliseconds
}

func (s *GammaSampler) SampleGap(rng *rand.Rand) float64 {
	return gammaRand(rng, s.shape, s.scale)
}

// gammaRand samples from Gamma(shape, scale) using Marsaglia-Tsang's method.
// For shape < 1: Gamma(shape) = Gamma(shape+1) * U^(1/shape).
func gammaRand(rng *rand.Rand, shape, scale float64) float64 {
	if shape < 1.0 {
		u := rng.Float64()
		return gammaRand(rng, shape+1.0, scale) * math.Pow(u, 1.0/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)
	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1.0 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()

		// squeeze
		if u < 1.0-0.0331*(x*x)*(x*x) {
			return d * v * scale
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v * scale
		}
	}
}

// WeibullSampler generates Weibull-distributed gaps.
type WeibullSampler struct {
	shape float64 // k
	scale float64 // λ in milliseconds
}

func (s *WeibullSampler) SampleGap(rng *rand.Rand) float64 {
	u := rng.Float64()
	if u == 0 {
		u = math.SmallestNonzeroFloat64
	}
	return s.scale * math.Pow(-math.Log(u), 1.0/s.shape)
}

// NewArrivalSampler creates a sampler for spec's process at ratePerMs
// requests per millisecond. spec is assumed valid.
func NewArrivalSampler(spec ArrivalSpec, ratePerMs float64) ArrivalSampler {
	mean := 1.0 / ratePerMs
	switch spec.Process {
	case ProcessConstant:
		return &ConstantSampler{gapMs: mean}

	case ProcessGamma:
		cv := spec.cv()
		shape := 1.0 / (cv * cv)
		if shape < 0.01 {
			logrus.Warnf("gamma shape %.4f (CV=%.1f) is very small; falling back to poisson", shape, cv)
			return &PoissonSampler{ratePerMs: ratePerMs}
		}
		return &GammaSampler{shape: shape, scale: mean * cv * cv}

	case ProcessWeibull:
		k := weibullShapeFromCV(spec.cv())
		return &WeibullSampler{shape: k, scale: mean / math.Gamma(1.0+1.0/k)}

	default:
		return &PoissonSampler{ratePerMs: ratePerMs}
	}
}

// weibullShapeFromCV bisects k in [0.1, 100] until the Weibull CV is within
// 0.001 of targetCV. CV decreases monotonically in k.
func weibullShapeFromCV(targetCV float64) float64 {
	lo, hi := 0.1, 100.0
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2.0
		cv := weibullCV(mid)
		if math.Abs(cv-targetCV) < 0.001 {
			return mid
		}
		if cv > targetCV {
			lo = mid
		} else {
			hi = mid
		}
	}
	logrus.Warnf("weibull shape bisection did not converge for CV=%.3f; using k=%.3f", targetCV, (lo+hi)/2.0)
	return (lo + hi) / 2.0
}

func weibullCV(k float64) float64 {
	g1 := math.Gamma(1.0 + 1.0/k)
	g2 := math.Gamma(1.0 + 2.0/k)
	return math.Sqrt(g2/(g1*g1) - 1.0)
}

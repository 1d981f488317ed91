package workload

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Arrival process names.
const (
	ProcessPoisson  = "poisson"
	ProcessGamma    = "gamma"
	ProcessWeibull  = "weibull"
	ProcessConstant = "constant"
)

var validArrivalProcesses = map[string]bool{
	ProcessPoisson:  true,
	ProcessGamma:    true,
	ProcessWeibull:  true,
	ProcessConstant: true,
}

// ArrivalSpec describes a synthetic arrival trace.
type ArrivalSpec struct {
	Process string   `yaml:"process"`
	Rate    float64  `yaml:"rate"`         // requests per second
	CV      *float64 `yaml:"cv,omitempty"` // gamma and weibull only; default 1
	Count   int      `yaml:"count"`
	Seed    int64    `yaml:"seed"`
	StartMs float64  `yaml:"start_ms"`
}

func (s ArrivalSpec) cv() float64 {
	if s.CV == nil {
		return 1
	}
	return *s.CV
}

// LoadArrivalSpec reads a YAML arrival spec. Unknown keys are rejected.
func LoadArrivalSpec(path string) (*ArrivalSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading arrival spec: %w", err)
	}
	var spec ArrivalSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing arrival spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks every field of the spec.
func (s ArrivalSpec) Validate() error {
	if !validArrivalProcesses[s.Process] {
		return fmt.Errorf("unknown arrival process %q; valid: poisson, gamma, weibull, constant", s.Process)
	}
	if err := validateFinitePositive("rate", s.Rate); err != nil {
		return err
	}
	if s.Count < 2 {
		return fmt.Errorf("count must be >= 2, got %d", s.Count)
	}
	if math.IsNaN(s.StartMs) || math.IsInf(s.StartMs, 0) {
		return fmt.Errorf("start_ms must be a finite number, got %f", s.StartMs)
	}
	if s.CV != nil {
		if s.Process != ProcessGamma && s.Process != ProcessWeibull {
			return fmt.Errorf("cv applies only to gamma and weibull processes, not %q", s.Process)
		}
		if err := validateFinitePositive("cv", *s.CV); err != nil {
			return err
		}
		if s.Process == ProcessWeibull && (*s.CV < 0.01 || *s.CV > 10.4) {
			return fmt.Errorf("weibull cv must be in [0.01, 10.4], got %f", *s.CV)
		}
	}
	return nil
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}

package planner

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/Corey-Zumar/plots-model-comp-paper/planner/netcalc"
)

// StageConfig is the resource configuration of one pipeline stage.
type StageConfig struct {
	Stage       string `yaml:"stage"`
	Cloud       string `yaml:"cloud"`
	Accelerator string `yaml:"accelerator"`
	BatchSize   int    `yaml:"batch_size"`
	Replicas    int    `yaml:"replicas"`
}

// WithReplicas returns a copy of c with the replica count set to n.
func (c StageConfig) WithReplicas(n int) StageConfig {
	c.Replicas = n
	return c
}

func (c StageConfig) String() string {
	return fmt.Sprintf("%s[%s/%s batch=%d replicas=%d]", c.Stage, c.Cloud, c.Accelerator, c.BatchSize, c.Replicas)
}

// PipelineConfig maps stage names to their StageConfig. Values are immutable:
// With returns a new PipelineConfig and never touches the receiver.
type PipelineConfig struct {
	stages map[string]StageConfig
}

// NewPipelineConfig builds a configuration from per-stage configs, keyed by
// StageConfig.Stage. A later config for the same stage replaces an earlier one.
func NewPipelineConfig(cfgs ...StageConfig) PipelineConfig {
	stages := make(map[string]StageConfig, len(cfgs))
	for _, c := range cfgs {
		stages[c.Stage] = c
	}
	return PipelineConfig{stages: stages}
}

// With returns a copy of p with cfg replacing the entry for cfg.Stage.
func (p PipelineConfig) With(cfg StageConfig) PipelineConfig {
	stages := maps.Clone(p.stages)
	if stages == nil {
		stages = make(map[string]StageConfig, 1)
	}
	stages[cfg.Stage] = cfg
	return PipelineConfig{stages: stages}
}

// Get returns the config for stage.
func (p PipelineConfig) Get(stage string) (StageConfig, bool) {
	c, ok := p.stages[stage]
	return c, ok
}

// Len returns the number of configured stages.
func (p PipelineConfig) Len() int { return len(p.stages) }

// StageNames returns the configured stage names in sorted order.
func (p PipelineConfig) StageNames() []string {
	return slices.Sorted(maps.Keys(p.stages))
}

// Configs returns the stage configs sorted by stage name.
func (p PipelineConfig) Configs() []StageConfig {
	out := make([]StageConfig, 0, len(p.stages))
	for _, name := range p.StageNames() {
		out = append(out, p.stages[name])
	}
	return out
}

// Cloud returns the cloud shared by every stage. It returns false when the
// configuration is empty or spans several clouds.
func (p PipelineConfig) Cloud() (string, bool) {
	cloud := ""
	for _, c := range p.stages {
		if cloud == "" {
			cloud = c.Cloud
		} else if c.Cloud != cloud {
			return "", false
		}
	}
	return cloud, cloud != ""
}

// Equal reports whether both configurations hold the same stage configs.
func (p PipelineConfig) Equal(o PipelineConfig) bool {
	return maps.Equal(p.stages, o.stages)
}

func (p PipelineConfig) String() string {
	parts := make([]string, 0, len(p.stages))
	for _, c := range p.Configs() {
		parts = append(parts, c.String())
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// MarshalYAML renders the configuration as a list ordered by stage name.
func (p PipelineConfig) MarshalYAML() (interface{}, error) {
	return p.Configs(), nil
}

// UnmarshalYAML reads a list of stage configs.
func (p *PipelineConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var cfgs []StageConfig
	if err := unmarshal(&cfgs); err != nil {
		return err
	}
	seen := make(map[string]bool, len(cfgs))
	for i, c := range cfgs {
		if c.Stage == "" {
			return fmt.Errorf("stage config %d: stage name is required", i)
		}
		if seen[c.Stage] {
			return fmt.Errorf("stage config %d: duplicate stage %q", i, c.Stage)
		}
		seen[c.Stage] = true
	}
	*p = NewPipelineConfig(cfgs...)
	return nil
}

// Estimate is the estimated performance of a whole pipeline configuration.
type Estimate struct {
	Latency    float64 `yaml:"latency"`    // seconds
	Throughput float64 `yaml:"throughput"` // requests per second
	Cost       float64 `yaml:"cost"`       // dollars per hour
	Bottleneck string  `yaml:"bottleneck"`
}

// StagePerformance is the estimated performance of a single stage config.
type StagePerformance struct {
	Latency    float64 // seconds
	Throughput float64 // requests per second
	Cost       float64 // dollars per hour
}

// Efficiency is throughput per dollar-hour. Free stages report zero.
func (s StagePerformance) Efficiency() float64 {
	if s.Cost <= 0 {
		return 0
	}
	return s.Throughput / s.Cost
}

// Constraints bound end-to-end latency (seconds) and cost (dollars per hour).
type Constraints struct {
	Latency float64 `yaml:"latency"`
	Cost    float64 `yaml:"cost"`
}

// Validate checks that both bounds are positive and finite.
func (c Constraints) Validate() error {
	if c.Latency <= 0 || math.IsNaN(c.Latency) || math.IsInf(c.Latency, 0) {
		return fmt.Errorf("latency constraint must be a finite value > 0, got %f", c.Latency)
	}
	if c.Cost <= 0 || math.IsNaN(c.Cost) || math.IsInf(c.Cost, 0) {
		return fmt.Errorf("cost constraint must be a finite value > 0, got %f", c.Cost)
	}
	return nil
}

// Admits reports whether the estimate's own latency and cost are within bounds.
func (c Constraints) Admits(e Estimate) bool {
	return e.Latency <= c.Latency && e.Cost <= c.Cost
}

// violations lists every bound that responseTime or cost exceeds.
func (c Constraints) violations(responseTime netcalc.Bound, cost float64) []Violation {
	var out []Violation
	if !responseTime.Within(c.Latency) {
		out = append(out, Violation{
			Bound:  BoundLatency,
			Limit:  c.Latency,
			Actual: responseTime,
			Excess: responseTime.Add(-c.Latency),
		})
	}
	if cost > c.Cost {
		out = append(out, Violation{
			Bound:  BoundCost,
			Limit:  c.Cost,
			Actual: netcalc.Bounded(cost),
			Excess: netcalc.Bounded(cost - c.Cost),
		})
	}
	return out
}

// Result is the outcome of a successful search.
type Result struct {
	Config       PipelineConfig `yaml:"config"`
	Estimate     Estimate       `yaml:"estimate"`
	ResponseTime netcalc.Bound  `yaml:"response_time"`
	Iterations   int            `yaml:"iterations"`  // committed greedy steps
	Evaluations  int            `yaml:"evaluations"` // pipeline estimates computed
}

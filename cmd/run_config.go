package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Corey-Zumar/plots-model-comp-paper/planner"
	"github.com/Corey-Zumar/plots-model-comp-paper/planner/trace"
)

// Queue model names accepted by --queue-model.
const (
	QueueModelNetCalc = "netcalc"
	QueueModelMM1K    = "mm1k"
	QueueModelNone    = "none"
)

var validQueueModels = map[string]bool{
	QueueModelNetCalc: true,
	QueueModelMM1K:    true,
	QueueModelNone:    true,
	"":                true, // netcalc when a trace is given, else none
}

// RunConfig is the planner run file. Every field has a matching flag on the
// plan subcommands.
// All keys must be listed to satisfy KnownFields(true) strict parsing.
type RunConfig struct {
	Profile       string                  `yaml:"profile"`
	Trace         string                  `yaml:"trace"`
	Cloud         string                  `yaml:"cloud"`
	Constraints   planner.Constraints     `yaml:"constraints"`
	QueueModel    string                  `yaml:"queue_model"`
	QueueCapacity int                     `yaml:"queue_capacity"`
	MaxReplicas   int                     `yaml:"max_replicas"`
	MaxIterations int                     `yaml:"max_iterations"`
	Initial       *planner.PipelineConfig `yaml:"initial,omitempty"`
	TraceLevel    string                  `yaml:"trace_level"`
	Output        string                  `yaml:"output"`
	MetricsOut    string                  `yaml:"metrics_out"`
}

// LoadRunConfig reads and strictly parses a run file.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	var cfg RunConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing run config: %w", err)
	}
	return &cfg, nil
}

// loadInitialConfig reads a YAML list of stage configs.
func loadInitialConfig(path string) (*planner.PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading initial config: %w", err)
	}
	var cfg planner.PipelineConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing initial config: %w", err)
	}
	return &cfg, nil
}

// queueModel resolves the empty default.
func (c RunConfig) queueModel() string {
	if c.QueueModel != "" {
		return c.QueueModel
	}
	if c.Trace != "" {
		return QueueModelNetCalc
	}
	return QueueModelNone
}

// Validate checks the run file for strategy.
func (c RunConfig) Validate(strategy planner.Strategy) error {
	if c.Profile == "" {
		return fmt.Errorf("profile path is required")
	}
	if c.Cloud == "" {
		return fmt.Errorf("cloud is required")
	}
	if err := c.Constraints.Validate(); err != nil {
		return err
	}
	if !validQueueModels[c.QueueModel] {
		return fmt.Errorf("unknown queue model %q; valid: netcalc, mm1k, none", c.QueueModel)
	}
	if !trace.IsValidTraceLevel(c.TraceLevel) {
		return fmt.Errorf("unknown trace level %q; valid: none, iterations, candidates", c.TraceLevel)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("max iterations must be >= 0, got %d", c.MaxIterations)
	}
	switch strategy {
	case planner.StrategyBruteForce:
		if c.MaxReplicas < 1 {
			return fmt.Errorf("max replicas must be >= 1, got %d", c.MaxReplicas)
		}
	case planner.StrategyGreedy:
		if c.queueModel() != QueueModelNone && c.Trace == "" {
			return fmt.Errorf("queue model %q needs an arrival trace", c.queueModel())
		}
	}
	return nil
}

// Plan flag values, bound in init.
var (
	planProfile       string
	planTrace         string
	planCloud         string
	planLatency       float64
	planCost          float64
	planQueueModel    string
	planQueueCapacity int
	planMaxReplicas   int
	planMaxIterations int
	planInitial       string
	planTraceLevel    string
	planOutput        string
	planMetricsOut    string
)

// resolveRunConfig starts from the --config file, if any, and applies every
// flag the user set. Without a run file all flag values apply.
func resolveRunConfig(cmd *cobra.Command) (RunConfig, error) {
	var cfg RunConfig
	if configPath != "" {
		loaded, err := LoadRunConfig(configPath)
		if err != nil {
			return RunConfig{}, err
		}
		cfg = *loaded
	}
	set := func(name string) bool {
		f := cmd.Flag(name)
		return configPath == "" || (f != nil && f.Changed)
	}

	if set("profile") {
		cfg.Profile = planProfile
	}
	if set("trace") {
		cfg.Trace = planTrace
	}
	if set("cloud") {
		cfg.Cloud = planCloud
	}
	if set("latency") {
		cfg.Constraints.Latency = planLatency
	}
	if set("cost") {
		cfg.Constraints.Cost = planCost
	}
	if set("queue-model") {
		cfg.QueueModel = planQueueModel
	}
	if set("queue-capacity") {
		cfg.QueueCapacity = planQueueCapacity
	}
	if set("max-replicas") || cfg.MaxReplicas == 0 {
		cfg.MaxReplicas = planMaxReplicas
	}
	if set("max-iterations") {
		cfg.MaxIterations = planMaxIterations
	}
	if set("trace-level") {
		cfg.TraceLevel = planTraceLevel
	}
	if set("output") {
		cfg.Output = planOutput
	}
	if set("metrics-out") {
		cfg.MetricsOut = planMetricsOut
	}
	if set("initial") && planInitial != "" {
		initial, err := loadInitialConfig(planInitial)
		if err != nil {
			return RunConfig{}, err
		}
		cfg.Initial = initial
	}
	return cfg, nil
}

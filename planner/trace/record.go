// Package trace provides search-trace recording for planner runs.
// This package has no dependencies on planner/; it stores pure data types.
package trace

// IterationRecord captures one committed greedy step on the bottleneck stage.
type IterationRecord struct {
	Iteration        int     `yaml:"iteration"`
	Stage            string  `yaml:"stage"`
	Action           string  `yaml:"action"`
	From             string  `yaml:"from"`
	To               string  `yaml:"to"`
	ThroughputBefore float64 `yaml:"throughput_before"`
	ThroughputAfter  float64 `yaml:"throughput_after"`
	CostAfter        float64 `yaml:"cost_after"`
	EfficiencyDelta  float64 `yaml:"efficiency_delta"` // stage throughput/cost change
}

// CandidateRecord captures one evaluated or skipped candidate configuration.
// Brute-force candidates leave Stage and Action empty.
type CandidateRecord struct {
	Iteration    int     `yaml:"iteration"`
	Stage        string  `yaml:"stage,omitempty"`
	Action       string  `yaml:"action,omitempty"`
	Config       string  `yaml:"config"`
	Latency      float64 `yaml:"latency"`
	Throughput   float64 `yaml:"throughput"`
	Cost         float64 `yaml:"cost"`
	ResponseTime string  `yaml:"response_time"` // number or "unstable"
	Feasible     bool    `yaml:"feasible"`
	SkipReason   string  `yaml:"skip_reason,omitempty"`
}

// AnomalyRecord captures a feasible candidate whose throughput regressed below
// the current configuration's estimate.
type AnomalyRecord struct {
	Iteration        int     `yaml:"iteration"`
	Stage            string  `yaml:"stage"`
	Action           string  `yaml:"action"`
	ThroughputBefore float64 `yaml:"throughput_before"`
	ThroughputAfter  float64 `yaml:"throughput_after"`
}

// OutcomeRecord captures how the run ended.
type OutcomeRecord struct {
	Satisfied    bool     `yaml:"satisfied"`
	Config       string   `yaml:"config,omitempty"`
	Throughput   float64  `yaml:"throughput"`
	Cost         float64  `yaml:"cost"`
	ResponseTime string   `yaml:"response_time"`
	Iterations   int      `yaml:"iterations"`
	Evaluations  int      `yaml:"evaluations"`
	StoppedEarly bool     `yaml:"stopped_early"` // iteration cap reached
	Violations   []string `yaml:"violations,omitempty"`
	Error        string   `yaml:"error,omitempty"`
}

package trace

// ActionCounts aggregates candidates for one action.
type ActionCounts struct {
	Evaluated int `yaml:"evaluated"`
	Feasible  int `yaml:"feasible"`
	Accepted  int `yaml:"accepted"`
}

// TraceSummary aggregates statistics from a SearchTrace.
type TraceSummary struct {
	TotalIterations    int                     `yaml:"total_iterations"`
	TotalCandidates    int                     `yaml:"total_candidates"`
	FeasibleCandidates int                     `yaml:"feasible_candidates"`
	SkippedCandidates  int                     `yaml:"skipped_candidates"`
	Anomalies          int                     `yaml:"anomalies"`
	Actions            map[string]ActionCounts `yaml:"actions,omitempty"`            // action name → counts
	StageDistribution  map[string]int          `yaml:"stage_distribution,omitempty"` // stage → committed steps
	FinalThroughput    float64                 `yaml:"final_throughput"`
	Satisfied          bool                    `yaml:"satisfied"`
}

// Summarize computes aggregate statistics from a SearchTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SearchTrace) *TraceSummary {
	summary := &TraceSummary{
		Actions:           make(map[string]ActionCounts),
		StageDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalIterations = len(st.Iterations)
	for _, it := range st.Iterations {
		counts := summary.Actions[it.Action]
		counts.Accepted++
		summary.Actions[it.Action] = counts
		summary.StageDistribution[it.Stage]++
	}

	summary.TotalCandidates = len(st.Candidates)
	for _, c := range st.Candidates {
		if c.SkipReason != "" {
			summary.SkippedCandidates++
			continue
		}
		if c.Feasible {
			summary.FeasibleCandidates++
		}
		if c.Action == "" {
			continue
		}
		counts := summary.Actions[c.Action]
		counts.Evaluated++
		if c.Feasible {
			counts.Feasible++
		}
		summary.Actions[c.Action] = counts
	}

	summary.Anomalies = len(st.Anomalies)
	if st.Outcome != nil {
		summary.FinalThroughput = st.Outcome.Throughput
		summary.Satisfied = st.Outcome.Satisfied
	}
	return summary
}

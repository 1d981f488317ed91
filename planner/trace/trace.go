package trace

// TraceLevel controls the verbosity of search tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing.
	TraceLevelNone TraceLevel = "none"
	// TraceLevelIterations captures committed greedy steps, anomalies and the outcome.
	TraceLevelIterations TraceLevel = "iterations"
	// TraceLevelCandidates additionally captures every evaluated candidate.
	TraceLevelCandidates TraceLevel = "candidates"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:       true,
	TraceLevelIterations: true,
	TraceLevelCandidates: true,
	"":                   true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// Enabled reports whether anything is recorded.
func (c TraceConfig) Enabled() bool {
	return c.Level == TraceLevelIterations || c.Level == TraceLevelCandidates
}

// RecordsCandidates reports whether per-candidate records are kept.
func (c TraceConfig) RecordsCandidates() bool {
	return c.Level == TraceLevelCandidates
}

// SearchTrace collects records during one planner run.
type SearchTrace struct {
	Config     TraceConfig       `yaml:"-"`
	RunID      string            `yaml:"run_id"`
	Strategy   string            `yaml:"strategy"`
	Cloud      string            `yaml:"cloud"`
	Iterations []IterationRecord `yaml:"iterations"`
	Candidates []CandidateRecord `yaml:"candidates,omitempty"`
	Anomalies  []AnomalyRecord   `yaml:"anomalies,omitempty"`
	Outcome    *OutcomeRecord    `yaml:"outcome,omitempty"`
}

// NewSearchTrace creates a SearchTrace ready for recording.
func NewSearchTrace(config TraceConfig) *SearchTrace {
	return &SearchTrace{
		Config:     config,
		Iterations: make([]IterationRecord, 0),
		Candidates: make([]CandidateRecord, 0),
		Anomalies:  make([]AnomalyRecord, 0),
	}
}

// RecordIteration appends a committed step.
func (st *SearchTrace) RecordIteration(record IterationRecord) {
	st.Iterations = append(st.Iterations, record)
}

// RecordCandidate appends an evaluated candidate. Dropped unless the level is candidates.
func (st *SearchTrace) RecordCandidate(record CandidateRecord) {
	if !st.Config.RecordsCandidates() {
		return
	}
	st.Candidates = append(st.Candidates, record)
}

// RecordAnomaly appends a monotonicity anomaly.
func (st *SearchTrace) RecordAnomaly(record AnomalyRecord) {
	st.Anomalies = append(st.Anomalies, record)
}

// RecordOutcome stores the final outcome, replacing any earlier one.
func (st *SearchTrace) RecordOutcome(record OutcomeRecord) {
	st.Outcome = &record
}

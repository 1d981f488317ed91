package trace

import (
	"testing"
)

func TestSearchTrace_RecordIteration_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for iterations
	st := NewSearchTrace(TraceConfig{Level: TraceLevelIterations})

	// WHEN a committed step is recorded
	st.RecordIteration(IterationRecord{
		Iteration:        1,
		Stage:            "resnet",
		Action:           "add-replica",
		ThroughputBefore: 40,
		ThroughputAfter:  80,
	})

	// THEN the trace contains one iteration with correct data
	if len(st.Iterations) != 1 {
		t.Fatalf("expected 1 iteration, got %d", len(st.Iterations))
	}
	if st.Iterations[0].Stage != "resnet" {
		t.Errorf("expected stage resnet, got %s", st.Iterations[0].Stage)
	}
	if st.Iterations[0].ThroughputAfter != 80 {
		t.Errorf("expected throughput 80, got %f", st.Iterations[0].ThroughputAfter)
	}
}

func TestSearchTrace_RecordCandidate_DroppedBelowCandidatesLevel(t *testing.T) {
	// GIVEN a trace configured for iterations only
	st := NewSearchTrace(TraceConfig{Level: TraceLevelIterations})

	// WHEN a candidate is recorded
	st.RecordCandidate(CandidateRecord{Stage: "resnet", Action: "add-replica", Feasible: true})

	// THEN it is not kept
	if len(st.Candidates) != 0 {
		t.Errorf("expected 0 candidates, got %d", len(st.Candidates))
	}
}

func TestSearchTrace_RecordCandidate_KeptAtCandidatesLevel(t *testing.T) {
	st := NewSearchTrace(TraceConfig{Level: TraceLevelCandidates})

	st.RecordCandidate(CandidateRecord{Stage: "resnet", Action: "add-replica", Feasible: true})
	st.RecordCandidate(CandidateRecord{Stage: "resnet", Action: "increase-batch-size", Feasible: false})

	if len(st.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(st.Candidates))
	}
	if st.Candidates[0].Action != "add-replica" || st.Candidates[1].Action != "increase-batch-size" {
		t.Error("candidate order not preserved")
	}
}

func TestSearchTrace_RecordOutcome_ReplacesEarlier(t *testing.T) {
	st := NewSearchTrace(TraceConfig{Level: TraceLevelIterations})
	st.RecordOutcome(OutcomeRecord{Throughput: 1})
	st.RecordOutcome(OutcomeRecord{Throughput: 2, Satisfied: true})

	if st.Outcome == nil || st.Outcome.Throughput != 2 || !st.Outcome.Satisfied {
		t.Errorf("expected latest outcome, got %+v", st.Outcome)
	}
}

func TestTraceConfig_Enabled(t *testing.T) {
	if (TraceConfig{Level: TraceLevelNone}).Enabled() {
		t.Error("expected none to be disabled")
	}
	if (TraceConfig{}).Enabled() {
		t.Error("expected empty level to be disabled")
	}
	if !(TraceConfig{Level: TraceLevelIterations}).Enabled() {
		t.Error("expected iterations to be enabled")
	}
}

func TestIsValidTraceLevel_ValidLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"none", true},
		{"iterations", true},
		{"candidates", true},
		{"", true}, // empty defaults to none
		{"decisions", false},
		{"foobar", false},
		{"NONE", false}, // case-sensitive
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := IsValidTraceLevel(tt.level); got != tt.valid {
				t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.valid)
			}
		})
	}
}

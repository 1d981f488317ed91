package planner

import (
	"errors"

	"github.com/Corey-Zumar/plots-model-comp-paper/planner/trace"
)

// TraceReporter records search events into a trace.SearchTrace.
// It is not safe for concurrent use.
type TraceReporter struct {
	st *trace.SearchTrace
}

// NewTraceReporter returns a reporter appending to st.
func NewTraceReporter(st *trace.SearchTrace) *TraceReporter {
	return &TraceReporter{st: st}
}

// Trace returns the underlying trace.
func (r *TraceReporter) Trace() *trace.SearchTrace { return r.st }

func (r *TraceReporter) SearchStarted(run RunInfo) {
	r.st.RunID = run.ID
	r.st.Strategy = string(run.Strategy)
	r.st.Cloud = run.Cloud
}

func (r *TraceReporter) CandidateEvaluated(c Candidate) {
	rec := trace.CandidateRecord{
		Iteration: c.Iteration,
		Stage:     c.Stage,
	}
	if c.Stage != "" {
		rec.Action = c.Action.String()
	}
	if c.Skipped != nil {
		rec.SkipReason = c.Skipped.Error()
		r.st.RecordCandidate(rec)
		return
	}
	rec.Config = c.Config.String()
	rec.Latency = c.Estimate.Latency
	rec.Throughput = c.Estimate.Throughput
	rec.Cost = c.Estimate.Cost
	rec.ResponseTime = c.ResponseTime.String()
	rec.Feasible = c.Feasible
	r.st.RecordCandidate(rec)
}

func (r *TraceReporter) BestUpdated(Candidate) {}

func (r *TraceReporter) ActionCommitted(s Step) {
	r.st.RecordIteration(trace.IterationRecord{
		Iteration:        s.Iteration,
		Stage:            s.Stage,
		Action:           s.Action.String(),
		From:             s.From.String(),
		To:               s.To.String(),
		ThroughputBefore: s.Before.Throughput,
		ThroughputAfter:  s.After.Throughput,
		CostAfter:        s.After.Cost,
		EfficiencyDelta:  s.EfficiencyDelta,
	})
}

func (r *TraceReporter) MonotonicityViolated(s Step) {
	r.st.RecordAnomaly(trace.AnomalyRecord{
		Iteration:        s.Iteration,
		Stage:            s.Stage,
		Action:           s.Action.String(),
		ThroughputBefore: s.Before.Throughput,
		ThroughputAfter:  s.After.Throughput,
	})
}

func (r *TraceReporter) Progress(Strategy, int) {}

func (r *TraceReporter) SearchFinished(o Outcome) {
	rec := trace.OutcomeRecord{StoppedEarly: o.StoppedEarly}
	res := o.Result
	if o.Err != nil {
		rec.Error = o.Err.Error()
		var unsat *UnsatisfiedError
		if errors.As(o.Err, &unsat) {
			res = &unsat.Result
			for _, v := range unsat.Violations {
				rec.Violations = append(rec.Violations, v.String())
			}
		}
	} else {
		rec.Satisfied = true
	}
	if res != nil {
		rec.Config = res.Config.String()
		rec.Throughput = res.Estimate.Throughput
		rec.Cost = res.Estimate.Cost
		rec.ResponseTime = res.ResponseTime.String()
		rec.Iterations = res.Iterations
		rec.Evaluations = res.Evaluations
	}
	r.st.RecordOutcome(rec)
}

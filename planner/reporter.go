package planner

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/Corey-Zumar/plots-model-comp-paper/planner/netcalc"
)

// Strategy names a search algorithm.
type Strategy string

const (
	StrategyBruteForce Strategy = "bruteforce"
	StrategyGreedy     Strategy = "greedy"
)

// RunInfo describes a search at its start.
type RunInfo struct {
	ID          string
	Strategy    Strategy
	Cloud       string
	Constraints Constraints
}

// Candidate is one pipeline configuration the search looked at. Greedy
// candidates carry the bottleneck Stage and the Action that produced them;
// brute-force candidates leave Stage empty.
type Candidate struct {
	Strategy     Strategy
	Iteration    int
	Stage        string
	Action       Action
	Config       PipelineConfig
	Estimate     Estimate
	ResponseTime netcalc.Bound
	Feasible     bool
	Skipped      error // set when the candidate could not be produced or evaluated
}

// Step is a greedy transition of the bottleneck stage from one config to another.
type Step struct {
	Iteration       int
	Stage           string
	Action          Action
	From, To        StageConfig
	Before, After   Estimate
	EfficiencyDelta float64
}

// Outcome is how a search ended. Exactly one of Result and Err is set.
type Outcome struct {
	Strategy     Strategy
	Result       *Result
	Err          error
	StoppedEarly bool // iteration cap reached
}

// Reporter observes search progress. Events are delivered synchronously on the
// searching goroutine.
type Reporter interface {
	SearchStarted(run RunInfo)
	CandidateEvaluated(c Candidate)
	BestUpdated(c Candidate)
	ActionCommitted(s Step)
	MonotonicityViolated(s Step)
	Progress(strategy Strategy, processed int)
	SearchFinished(o Outcome)
}

// NopReporter ignores every event. Embed it to implement a subset of Reporter.
type NopReporter struct{}

func (NopReporter) SearchStarted(RunInfo)        {}
func (NopReporter) CandidateEvaluated(Candidate) {}
func (NopReporter) BestUpdated(Candidate)        {}
func (NopReporter) ActionCommitted(Step)         {}
func (NopReporter) MonotonicityViolated(Step)    {}
func (NopReporter) Progress(Strategy, int)       {}
func (NopReporter) SearchFinished(Outcome)       {}

// MultiReporter fans every event out to each reporter in order.
type MultiReporter []Reporter

func (m MultiReporter) SearchStarted(run RunInfo) {
	for _, r := range m {
		r.SearchStarted(run)
	}
}

func (m MultiReporter) CandidateEvaluated(c Candidate) {
	for _, r := range m {
		r.CandidateEvaluated(c)
	}
}

func (m MultiReporter) BestUpdated(c Candidate) {
	for _, r := range m {
		r.BestUpdated(c)
	}
}

func (m MultiReporter) ActionCommitted(s Step) {
	for _, r := range m {
		r.ActionCommitted(s)
	}
}

func (m MultiReporter) MonotonicityViolated(s Step) {
	for _, r := range m {
		r.MonotonicityViolated(s)
	}
}

func (m MultiReporter) Progress(strategy Strategy, processed int) {
	for _, r := range m {
		r.Progress(strategy, processed)
	}
}

func (m MultiReporter) SearchFinished(o Outcome) {
	for _, r := range m {
		r.SearchFinished(o)
	}
}

// LogReporter writes search events as structured logrus entries: candidates at
// debug, committed steps and progress at info, anomalies at warn, and
// unsatisfied runs at error.
type LogReporter struct {
	log logrus.FieldLogger
}

// NewLogReporter returns a reporter writing to log. A nil log uses the standard logger.
func NewLogReporter(log logrus.FieldLogger) *LogReporter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogReporter{log: log}
}

func (l *LogReporter) SearchStarted(run RunInfo) {
	l.log.WithFields(logrus.Fields{
		"run":         run.ID,
		"strategy":    run.Strategy,
		"cloud":       run.Cloud,
		"latency_slo": run.Constraints.Latency,
		"cost_budget": run.Constraints.Cost,
	}).Info("search started")
}

func (l *LogReporter) CandidateEvaluated(c Candidate) {
	fields := logrus.Fields{"strategy": c.Strategy, "iteration": c.Iteration}
	if c.Stage != "" {
		fields["stage"] = c.Stage
		fields["action"] = c.Action.String()
	}
	if c.Skipped != nil {
		fields["reason"] = c.Skipped.Error()
		l.log.WithFields(fields).Debug("candidate skipped")
		return
	}
	fields["config"] = c.Config.String()
	fields["throughput"] = c.Estimate.Throughput
	fields["latency"] = c.Estimate.Latency
	fields["cost"] = c.Estimate.Cost
	fields["response_time"] = c.ResponseTime.String()
	fields["feasible"] = c.Feasible
	l.log.WithFields(fields).Debug("candidate evaluated")
}

func (l *LogReporter) BestUpdated(c Candidate) {
	l.log.WithFields(logrus.Fields{
		"strategy":   c.Strategy,
		"config":     c.Config.String(),
		"throughput": c.Estimate.Throughput,
		"cost":       c.Estimate.Cost,
	}).Debug("new best configuration")
}

func (l *LogReporter) ActionCommitted(s Step) {
	l.log.WithFields(logrus.Fields{
		"iteration":        s.Iteration,
		"stage":            s.Stage,
		"action":           s.Action.String(),
		"from":             s.From.String(),
		"to":               s.To.String(),
		"throughput":       s.After.Throughput,
		"cost":             s.After.Cost,
		"efficiency_delta": s.EfficiencyDelta,
	}).Info("action committed")
}

func (l *LogReporter) MonotonicityViolated(s Step) {
	l.log.WithFields(logrus.Fields{
		"iteration": s.Iteration,
		"stage":     s.Stage,
		"action":    s.Action.String(),
		"from":      s.From.String(),
		"to":        s.To.String(),
	}).Warnf("throughput regressed from %g to %g after upgrade", s.Before.Throughput, s.After.Throughput)
}

func (l *LogReporter) Progress(strategy Strategy, processed int) {
	l.log.WithField("strategy", strategy).Infof("processed %d combinations", processed)
}

func (l *LogReporter) SearchFinished(o Outcome) {
	entry := l.log.WithField("strategy", o.Strategy)
	if o.StoppedEarly {
		entry.Warn("iteration limit reached before the search converged")
	}
	if o.Err != nil {
		var unsat *UnsatisfiedError
		if errors.As(o.Err, &unsat) {
			entry.WithFields(logrus.Fields{
				"config":        unsat.Result.Config.String(),
				"throughput":    unsat.Result.Estimate.Throughput,
				"response_time": unsat.Result.ResponseTime.String(),
				"cost":          unsat.Result.Estimate.Cost,
			}).Errorf("search finished without satisfying constraints: %v", o.Err)
			return
		}
		entry.Errorf("search failed: %v", o.Err)
		return
	}
	entry.WithFields(logrus.Fields{
		"config":        o.Result.Config.String(),
		"throughput":    o.Result.Estimate.Throughput,
		"latency":       o.Result.Estimate.Latency,
		"response_time": o.Result.ResponseTime.String(),
		"cost":          o.Result.Estimate.Cost,
		"iterations":    o.Result.Iterations,
	}).Info("search finished")
}

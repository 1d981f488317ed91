// Package metrics exports planner search activity as Prometheus metrics.
package metrics

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/Corey-Zumar/plots-model-comp-paper/planner"
)

const (
	// maxLabelLength bounds label values to keep cardinality in check.
	maxLabelLength = 128
	unknownLabel   = "unknown"
)

// Metric names.
const (
	CandidatesTotal  = "planner_candidates_evaluated_total"
	CommitsTotal     = "planner_actions_committed_total"
	AnomaliesTotal   = "planner_monotonicity_anomalies_total"
	RunsTotal        = "planner_runs_total"
	BestThroughput   = "planner_best_throughput"
	SearchIterations = "planner_search_iterations"
	Combinations     = "planner_combinations_processed"
)

// Label values for the outcome and result labels.
const (
	OutcomeFeasible   = "feasible"
	OutcomeInfeasible = "infeasible"
	OutcomeSkipped    = "skipped"

	ResultSatisfied   = "satisfied"
	ResultUnsatisfied = "unsatisfied"
	ResultError       = "error"
)

// sanitizeLabel trims whitespace, replaces empty values with "unknown", and
// truncates long values.
func sanitizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return unknownLabel
	}
	if len(value) > maxLabelLength {
		return value[:maxLabelLength]
	}
	return value
}

// Reporter is a planner.Reporter that updates Prometheus collectors.
type Reporter struct {
	candidates   *prometheus.CounterVec
	commits      *prometheus.CounterVec
	anomalies    *prometheus.CounterVec
	runs         *prometheus.CounterVec
	best         *prometheus.GaugeVec
	iterations   *prometheus.GaugeVec
	combinations *prometheus.GaugeVec
}

// NewReporter creates the planner collectors and registers them with registry.
func NewReporter(registry prometheus.Registerer) (*Reporter, error) {
	r := &Reporter{
		candidates: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: CandidatesTotal, Help: "Candidate configurations considered, by outcome"},
			[]string{"strategy", "outcome"},
		),
		commits: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: CommitsTotal, Help: "Greedy steps taken on the bottleneck stage"},
			[]string{"stage", "action"},
		),
		anomalies: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: AnomaliesTotal, Help: "Feasible upgrades that lowered pipeline throughput"},
			[]string{"stage", "action"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: RunsTotal, Help: "Completed searches, by result"},
			[]string{"strategy", "result"},
		),
		best: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: BestThroughput, Help: "Throughput (req/s) of the best configuration found so far"},
			[]string{"strategy"},
		),
		iterations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: SearchIterations, Help: "Greedy iterations taken by the last search"},
			[]string{"strategy"},
		),
		combinations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: Combinations, Help: "Brute-force combinations processed so far"},
			[]string{"strategy"},
		),
	}
	for name, c := range map[string]prometheus.Collector{
		CandidatesTotal:  r.candidates,
		CommitsTotal:     r.commits,
		AnomaliesTotal:   r.anomalies,
		RunsTotal:        r.runs,
		BestThroughput:   r.best,
		SearchIterations: r.iterations,
		Combinations:     r.combinations,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register %s metric: %w", name, err)
		}
	}
	return r, nil
}

func (r *Reporter) SearchStarted(run planner.RunInfo) {
	r.best.WithLabelValues(sanitizeLabel(string(run.Strategy))).Set(0)
}

func (r *Reporter) CandidateEvaluated(c planner.Candidate) {
	outcome := OutcomeInfeasible
	switch {
	case c.Skipped != nil:
		outcome = OutcomeSkipped
	case c.Feasible:
		outcome = OutcomeFeasible
	}
	r.candidates.WithLabelValues(sanitizeLabel(string(c.Strategy)), outcome).Inc()
}

func (r *Reporter) BestUpdated(c planner.Candidate) {
	r.best.WithLabelValues(sanitizeLabel(string(c.Strategy))).Set(c.Estimate.Throughput)
}

func (r *Reporter) ActionCommitted(s planner.Step) {
	r.commits.WithLabelValues(sanitizeLabel(s.Stage), s.Action.String()).Inc()
	r.best.WithLabelValues(string(planner.StrategyGreedy)).Set(s.After.Throughput)
}

func (r *Reporter) MonotonicityViolated(s planner.Step) {
	r.anomalies.WithLabelValues(sanitizeLabel(s.Stage), s.Action.String()).Inc()
}

func (r *Reporter) Progress(strategy planner.Strategy, processed int) {
	r.combinations.WithLabelValues(sanitizeLabel(string(strategy))).Set(float64(processed))
}

func (r *Reporter) SearchFinished(o planner.Outcome) {
	strategy := sanitizeLabel(string(o.Strategy))
	result := ResultSatisfied
	res := o.Result
	if o.Err != nil {
		result = ResultError
		var unsat *planner.UnsatisfiedError
		if errors.As(o.Err, &unsat) {
			result = ResultUnsatisfied
			res = &unsat.Result
		}
	}
	r.runs.WithLabelValues(strategy, result).Inc()
	if res != nil {
		r.best.WithLabelValues(strategy).Set(res.Estimate.Throughput)
		r.iterations.WithLabelValues(strategy).Set(float64(res.Iterations))
	}
}

// WriteText writes every metric gathered from g in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encoding metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Corey-Zumar/plots-model-comp-paper/planner"
	"github.com/Corey-Zumar/plots-model-comp-paper/planner/metrics"
	"github.com/Corey-Zumar/plots-model-comp-paper/planner/netcalc"
	"github.com/Corey-Zumar/plots-model-comp-paper/planner/profile"
	"github.com/Corey-Zumar/plots-model-comp-paper/planner/trace"
)

// PlanOutput is the YAML document written by the plan subcommands.
type PlanOutput struct {
	RunID        string                  `yaml:"run_id"`
	Strategy     planner.Strategy        `yaml:"strategy"`
	Cloud        string                  `yaml:"cloud"`
	Constraints  planner.Constraints     `yaml:"constraints"`
	QueueModel   string                  `yaml:"queue_model"`
	Satisfied    bool                    `yaml:"satisfied"`
	Config       *planner.PipelineConfig `yaml:"config,omitempty"`
	Estimate     *planner.Estimate       `yaml:"estimate,omitempty"`
	ResponseTime *netcalc.Bound          `yaml:"response_time,omitempty"` // seconds
	Iterations   int                     `yaml:"iterations"`
	Evaluations  int                     `yaml:"evaluations"`
	Violations   []planner.Violation     `yaml:"violations,omitempty"`
	Error        string                  `yaml:"error,omitempty"`
	Arrivals     *netcalc.TraceStats     `yaml:"arrivals,omitempty"`
	Summary      *trace.TraceSummary     `yaml:"summary,omitempty"`
	Trace        *trace.SearchTrace      `yaml:"trace,omitempty"`
}

// record copies the search result, or the best-effort result of an
// unsatisfied run, into the output.
func (o *PlanOutput) record(res *planner.Result, err error) {
	if err != nil {
		o.Error = err.Error()
		var unsat *planner.UnsatisfiedError
		if !errors.As(err, &unsat) {
			return
		}
		res = &unsat.Result
		o.Violations = unsat.Violations
	} else {
		o.Satisfied = true
	}
	if res == nil {
		return
	}
	o.Config = &res.Config
	o.Estimate = &res.Estimate
	o.ResponseTime = &res.ResponseTime
	o.Iterations = res.Iterations
	o.Evaluations = res.Evaluations
}

// runPlan executes one search and writes its PlanOutput. The search error, if
// any, is returned after the output is written.
func runPlan(strategy planner.Strategy, cfg RunConfig, stdout io.Writer) error {
	if err := cfg.Validate(strategy); err != nil {
		return fmt.Errorf("invalid run config: %w", err)
	}
	prof, err := profile.Load(cfg.Profile)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	st := trace.NewSearchTrace(trace.TraceConfig{Level: trace.TraceLevel(cfg.TraceLevel)})
	reporters := planner.MultiReporter{planner.NewLogReporter(logrus.WithField("run", runID))}
	if st.Config.Enabled() {
		reporters = append(reporters, planner.NewTraceReporter(st))
	}
	var registry *prometheus.Registry
	if cfg.MetricsOut != "" {
		registry = prometheus.NewRegistry()
		mr, err := metrics.NewReporter(registry)
		if err != nil {
			return err
		}
		reporters = append(reporters, mr)
	}
	opts := []planner.Option{
		planner.WithReporter(reporters),
		planner.WithRunID(runID),
		planner.WithMaxIterations(cfg.MaxIterations),
	}

	out := PlanOutput{
		RunID:       runID,
		Strategy:    strategy,
		Cloud:       cfg.Cloud,
		Constraints: cfg.Constraints,
		QueueModel:  QueueModelNone,
	}
	var arrivals *netcalc.ArrivalTrace
	if cfg.Trace != "" {
		arrivals, err = netcalc.LoadArrivalTrace(cfg.Trace)
		if err != nil {
			return err
		}
		stats := arrivals.Stats()
		out.Arrivals = &stats
	}

	var res *planner.Result
	var searchErr error
	switch strategy {
	case planner.StrategyBruteForce:
		bf := planner.NewBruteForce(prof.Topology(), prof.ScaleFactors(), prof, prof, opts...)
		res, searchErr = bf.SelectConfig(cfg.Cloud, cfg.Constraints, cfg.MaxReplicas)

	case planner.StrategyGreedy:
		var initial planner.PipelineConfig
		if cfg.Initial != nil {
			initial = *cfg.Initial
		} else if initial, err = prof.InitialConfig(cfg.Cloud); err != nil {
			return err
		}
		out.QueueModel = cfg.queueModel()
		if out.QueueModel == QueueModelMM1K {
			opts = append(opts, planner.WithWaitModel(planner.NewMM1KWaitModel(arrivals, cfg.QueueCapacity)))
		}
		g := planner.NewGreedy(prof.Topology(), prof.ScaleFactors(), prof, prof, opts...)
		res, searchErr = g.SelectConfig(cfg.Cloud, cfg.Constraints, initial, arrivals, out.QueueModel != QueueModelNone)

	default:
		return fmt.Errorf("unknown strategy %q", strategy)
	}

	out.record(res, searchErr)
	if st.Config.Enabled() {
		out.Trace = st
		out.Summary = trace.Summarize(st)
	}
	if err := writeOutput(cfg.Output, stdout, func(w io.Writer) error { return encodeYAML(w, out) }); err != nil {
		return err
	}
	if registry != nil {
		if err := writeOutput(cfg.MetricsOut, stdout, func(w io.Writer) error { return metrics.WriteText(w, registry) }); err != nil {
			return err
		}
	}
	return searchErr
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return enc.Close()
}

// writeOutput runs write against path, or against stdout when path is empty or "-".
func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(stdout)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	logrus.Infof("Wrote %s", path)
	return nil
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Search for the highest-throughput pipeline configuration",
}

func planRunner(strategy planner.Strategy) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		cfg, err := resolveRunConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := runPlan(strategy, cfg, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Planning failed: %v", err)
		}
	}
}

var greedyCmd = &cobra.Command{
	Use:   "greedy",
	Short: "Hill-climb from an initial configuration by upgrading the bottleneck stage",
	Run:   planRunner(planner.StrategyGreedy),
}

var bruteForceCmd = &cobra.Command{
	Use:   "bruteforce",
	Short: "Exhaustively evaluate every combination of stage configurations",
	Run:   planRunner(planner.StrategyBruteForce),
}

func init() {
	flags := planCmd.PersistentFlags()
	flags.StringVar(&planProfile, "profile", "", "Performance profile (YAML)")
	flags.StringVar(&planTrace, "trace", "", "Arrival trace CSV (milliseconds)")
	flags.StringVar(&planCloud, "cloud", "", "Cloud to plan on")
	flags.Float64Var(&planLatency, "latency", 0, "End-to-end latency bound in seconds")
	flags.Float64Var(&planCost, "cost", 0, "Cost bound in dollars per hour")
	flags.IntVar(&planMaxReplicas, "max-replicas", 1, "Replicas per stage enumerated by brute force")
	flags.StringVar(&planTraceLevel, "trace-level", "none", "Search trace detail (none, iterations, candidates)")
	flags.StringVar(&planOutput, "output", "", "Write the result YAML here instead of stdout")
	flags.StringVar(&planMetricsOut, "metrics-out", "", "Write Prometheus text-format search metrics here")

	greedyCmd.Flags().StringVar(&planQueueModel, "queue-model", "", "Wait model (netcalc, mm1k, none); default netcalc with --trace, else none")
	greedyCmd.Flags().IntVar(&planQueueCapacity, "queue-capacity", planner.DefaultQueueCapacity, "M/M/1/K system size for --queue-model mm1k")
	greedyCmd.Flags().IntVar(&planMaxIterations, "max-iterations", 0, "Stop after this many greedy steps (0 = until no step fits)")
	greedyCmd.Flags().StringVar(&planInitial, "initial", "", "Initial configuration (YAML list of stage configs); default is the cheapest")

	planCmd.AddCommand(greedyCmd)
	planCmd.AddCommand(bruteForceCmd)
}

package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Corey-Zumar/plots-model-comp-paper/planner/netcalc"
	"github.com/Corey-Zumar/plots-model-comp-paper/planner/workload"
)

var (
	genSpecPath string
	genProcess  string
	genRate     float64
	genCV       float64
	genCount    int
	genSeed     int64
	genStartMs  float64
	genOut      string
)

// resolveArrivalSpec loads --spec when given and applies explicitly set flags on top.
func resolveArrivalSpec(cmd *cobra.Command) (workload.ArrivalSpec, error) {
	var spec workload.ArrivalSpec
	if genSpecPath != "" {
		loaded, err := workload.LoadArrivalSpec(genSpecPath)
		if err != nil {
			return spec, err
		}
		spec = *loaded
	}
	set := func(name string) bool {
		return genSpecPath == "" || cmd.Flags().Changed(name)
	}
	if set("process") {
		spec.Process = genProcess
	}
	if set("rate") {
		spec.Rate = genRate
	}
	if cmd.Flags().Changed("cv") {
		cv := genCV
		spec.CV = &cv
	}
	if set("count") {
		spec.Count = genCount
	}
	if set("seed") {
		spec.Seed = genSeed
	}
	if set("start-ms") {
		spec.StartMs = genStartMs
	}
	return spec, nil
}

// runTraceGenerate writes the generated trace to path, or to w when path is empty.
func runTraceGenerate(w io.Writer, path string, spec workload.ArrivalSpec) error {
	tr, err := workload.Generate(spec)
	if err != nil {
		return err
	}
	stats := tr.Stats()
	logrus.Infof("Generated %d arrivals over %.1fms (%.2f req/s, gap CV %.2f)",
		stats.Count, stats.SpanMs, stats.RatePerS, stats.GapCV)
	if path != "" {
		return netcalc.ExportArrivalTrace(path, tr)
	}
	if err := netcalc.WriteArrivalTrace(w, tr); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	return nil
}

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Work with arrival traces",
}

var traceGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic arrival trace CSV",
	Run: func(cmd *cobra.Command, args []string) {
		spec, err := resolveArrivalSpec(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := runTraceGenerate(cmd.OutOrStdout(), genOut, spec); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func init() {
	flags := traceGenerateCmd.Flags()
	flags.StringVar(&genSpecPath, "spec", "", "Arrival spec (YAML); flags given explicitly override its values")
	flags.StringVar(&genProcess, "process", workload.ProcessPoisson, "Arrival process (poisson, gamma, weibull, constant)")
	flags.Float64Var(&genRate, "rate", 10, "Mean arrival rate in requests per second")
	flags.Float64Var(&genCV, "cv", 1, "Inter-arrival coefficient of variation (gamma, weibull)")
	flags.IntVar(&genCount, "count", 1000, "Number of arrivals")
	flags.Int64Var(&genSeed, "seed", 42, "Random seed")
	flags.Float64Var(&genStartMs, "start-ms", 0, "Timestamp of the first arrival in milliseconds")
	flags.StringVar(&genOut, "out", "", "Output CSV path (default stdout)")

	traceCmd.AddCommand(traceGenerateCmd)
}

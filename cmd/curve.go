package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Corey-Zumar/plots-model-comp-paper/planner/netcalc"
)

var (
	curveTrace      string
	curveLatencyMs  float64
	curveThroughput float64 // req/ms
	curveSamples    int
	curveUpper      float64
	curveOut        string
)

// CurveBounds is the YAML document written by curve bounds.
type CurveBounds struct {
	Service  netcalc.ServiceCurve `yaml:"service"`
	Arrivals netcalc.TraceStats   `yaml:"arrivals"`
	Crossing netcalc.Bound        `yaml:"crossing_ms"`
	Backlog  netcalc.Bound        `yaml:"max_backlog"`
	Delay    netcalc.Bound        `yaml:"max_delay_ms"`
}

func curveEngine(path string, samples int) (*netcalc.Engine, error) {
	tr, err := netcalc.LoadArrivalTrace(path)
	if err != nil {
		return nil, err
	}
	return netcalc.NewEngine(tr, netcalc.WithSampleCount(samples)), nil
}

func runCurveBounds(w io.Writer, path string, c netcalc.ServiceCurve, samples int) error {
	if err := c.Validate(); err != nil {
		return err
	}
	e, err := curveEngine(path, samples)
	if err != nil {
		return err
	}
	backlog, delay := e.MaxBacklogAndDelay(c)
	return encodeYAML(w, CurveBounds{
		Service:  c,
		Arrivals: e.Trace().Stats(),
		Crossing: e.MaxCrossingX(c),
		Backlog:  backlog,
		Delay:    delay,
	})
}

// runCurvePlot loads the trace before opening out, so a bad trace leaves no file behind.
func runCurvePlot(out string, stdout io.Writer, path string, c netcalc.ServiceCurve, samples int, upper float64) error {
	if err := c.Validate(); err != nil {
		return err
	}
	e, err := curveEngine(path, samples)
	if err != nil {
		return err
	}
	return writeOutput(out, stdout, func(w io.Writer) error {
		if err := netcalc.PlotCurves(w, e, c, upper); err != nil {
			return fmt.Errorf("plotting curves: %w", err)
		}
		return nil
	})
}

var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Inspect arrival and service curves of a trace",
}

var curveBoundsCmd = &cobra.Command{
	Use:   "bounds",
	Short: "Print the crossing point, maximum backlog and maximum delay",
	Run: func(cmd *cobra.Command, args []string) {
		c := netcalc.ServiceCurve{Latency: curveLatencyMs, Throughput: curveThroughput}
		if err := runCurveBounds(cmd.OutOrStdout(), curveTrace, c, curveSamples); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

var curvePlotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Render the arrival and service curves as an HTML chart",
	Run: func(cmd *cobra.Command, args []string) {
		c := netcalc.ServiceCurve{Latency: curveLatencyMs, Throughput: curveThroughput}
		if err := runCurvePlot(curveOut, cmd.OutOrStdout(), curveTrace, c, curveSamples, curveUpper); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func init() {
	flags := curveCmd.PersistentFlags()
	flags.StringVar(&curveTrace, "trace", "", "Arrival trace CSV (milliseconds)")
	flags.Float64Var(&curveLatencyMs, "latency-ms", 0, "Service curve latency in milliseconds")
	flags.Float64Var(&curveThroughput, "throughput", 0, "Service curve throughput in requests per millisecond")
	flags.IntVar(&curveSamples, "samples", netcalc.DefaultSampleCount, "Widths sampled between 1ms and the crossing point")
	_ = curveCmd.MarkPersistentFlagRequired("trace")
	_ = curveCmd.MarkPersistentFlagRequired("throughput")

	curvePlotCmd.Flags().Float64Var(&curveUpper, "upper", 0, "Largest plotted width in ms (0 = crossing point)")
	curvePlotCmd.Flags().StringVar(&curveOut, "out", "curves.html", "HTML output path (- for stdout)")

	curveCmd.AddCommand(curveBoundsCmd)
	curveCmd.AddCommand(curvePlotCmd)
}

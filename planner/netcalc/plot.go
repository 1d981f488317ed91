package netcalc

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"gonum.org/v1/gonum/floats"
)

// PlotCurves renders an HTML scatter chart of the trace's arrival curve against
// the service curve c over widths [1, upper]. When upper <= 1 the range extends
// to the crossing point, or to the trace span for unstable systems.
func PlotCurves(w io.Writer, e *Engine, c ServiceCurve, upper float64) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if upper <= 1 {
		upper = e.Trace().Span()
		if crossing, ok := e.MaxCrossingX(c).Value(); ok {
			upper = crossing
		}
	}
	if upper <= 1 {
		return fmt.Errorf("plot range must extend beyond 1ms, got %f", upper)
	}

	xs := floats.Span(make([]float64, e.sampleCount), 1, upper)
	ys := e.ArrivalCurve(xs)
	arrival := make([]opts.ScatterData, len(xs))
	service := make([]opts.ScatterData, len(xs))
	for i, x := range xs {
		arrival[i] = opts.ScatterData{
			Value:      []float64{x, ys[i]},
			Symbol:     "circle",
			SymbolSize: 4,
		}
		service[i] = opts.ScatterData{
			Value:      []float64{x, c.At(x)},
			Symbol:     "triangle",
			SymbolSize: 4,
		}
	}

	backlog, delay := e.MaxBacklogAndDelay(c)
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Arrival vs service curve",
			Subtitle: fmt.Sprintf("L=%gms mu=%g req/ms, max backlog %s, max delay %sms", c.Latency, c.Throughput, backlog, delay),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:      "window (ms)",
			SplitLine: &opts.SplitLine{Show: opts.Bool(true)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      "requests",
			SplitLine: &opts.SplitLine{Show: opts.Bool(true)},
		}))

	scatter.AddSeries("arrival", arrival).
		AddSeries("service", service).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}),
		)
	return scatter.Render(w)
}

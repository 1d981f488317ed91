package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Corey-Zumar/plots-model-comp-paper/planner/netcalc"
	"github.com/Corey-Zumar/plots-model-comp-paper/planner/workload"
)

func TestRunCurveBounds(t *testing.T) {
	// GIVEN arrivals every 100ms served at 0.24 req/ms
	_, tracePath := writeFixtures(t)

	var out bytes.Buffer
	require.NoError(t, runCurveBounds(&out, tracePath, netcalc.ServiceCurve{Throughput: 0.24}, netcalc.DefaultSampleCount))

	// THEN the delay is the single-request wait at width 1ms
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))
	delay, ok := doc["max_delay_ms"].(float64)
	require.True(t, ok, "max_delay_ms = %v", doc["max_delay_ms"])
	assert.InDelta(t, 1/0.24-1, delay, 1e-9)
	assert.Contains(t, doc, "arrivals")
}

func TestRunCurveBounds_Unstable(t *testing.T) {
	_, tracePath := writeFixtures(t)

	var out bytes.Buffer
	require.NoError(t, runCurveBounds(&out, tracePath, netcalc.ServiceCurve{Throughput: 0.01}, netcalc.DefaultSampleCount))

	assert.Contains(t, out.String(), "max_delay_ms: unstable")
}

func TestRunCurveBounds_RejectsBadServiceCurve(t *testing.T) {
	_, tracePath := writeFixtures(t)
	var out bytes.Buffer
	assert.Error(t, runCurveBounds(&out, tracePath, netcalc.ServiceCurve{Throughput: 0}, netcalc.DefaultSampleCount))
}

func TestRunCurvePlot(t *testing.T) {
	_, tracePath := writeFixtures(t)

	var out bytes.Buffer
	require.NoError(t, runCurvePlot("-", &out, tracePath, netcalc.ServiceCurve{Throughput: 0.24}, 50, 0))

	assert.Contains(t, out.String(), "arrival")
	assert.Contains(t, out.String(), "service")
}

func TestRunCurvePlot_BadTraceWritesNoFile(t *testing.T) {
	// GIVEN a trace path that does not exist
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "curves.html")

	// WHEN the plot is requested
	err := runCurvePlot(htmlPath, io.Discard, filepath.Join(dir, "missing.csv"), netcalc.ServiceCurve{Throughput: 0.24}, 50, 0)

	// THEN it fails without creating the HTML file
	require.Error(t, err)
	assert.NoFileExists(t, htmlPath)
}

func TestRunCurvePlot_WritesFile(t *testing.T) {
	_, tracePath := writeFixtures(t)
	htmlPath := filepath.Join(t.TempDir(), "curves.html")

	require.NoError(t, runCurvePlot(htmlPath, io.Discard, tracePath, netcalc.ServiceCurve{Throughput: 0.24}, 50, 0))

	data, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "service")
}

func TestRunTraceGenerate(t *testing.T) {
	spec := workload.ArrivalSpec{Process: workload.ProcessConstant, Rate: 100, Count: 10}

	// WHEN written to stdout
	var out bytes.Buffer
	require.NoError(t, runTraceGenerate(&out, "", spec))
	tr, err := netcalc.ReadArrivalTrace(strings.NewReader(out.String()))
	require.NoError(t, err)
	assert.Equal(t, 10, tr.Len())
	assert.InDelta(t, 90.0, tr.Span(), 1e-9)

	// WHEN written to a file
	path := filepath.Join(t.TempDir(), "gen.csv")
	require.NoError(t, runTraceGenerate(&out, path, spec))
	fromFile, err := netcalc.LoadArrivalTrace(path)
	require.NoError(t, err)
	assert.Equal(t, tr.Times(), fromFile.Times())
}

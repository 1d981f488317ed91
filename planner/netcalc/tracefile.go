package netcalc

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// ArrivalColumn is the header written by WriteArrivalTrace and the column read
// from headed files.
const ArrivalColumn = "arrival_ms"

// LoadArrivalTrace reads an arrival trace CSV from path.
func LoadArrivalTrace(path string) (*ArrivalTrace, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening arrival trace: %w", err)
	}
	defer func() { _ = file.Close() }()
	return ReadArrivalTrace(file)
}

// ReadArrivalTrace parses CSV arrival timestamps in milliseconds. The first row
// is a header when its first field is not numeric; the arrival_ms column is used
// when present, otherwise the first column. Unsorted rows are sorted with a warning.
func ReadArrivalTrace(r io.Reader) (*ArrivalTrace, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	col := 0
	var times []float64
	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row %d: %w", line, err)
		}
		if line == 1 && len(row) > 0 && !isNumeric(row[0]) {
			if idx := slices.Index(row, ArrivalColumn); idx >= 0 {
				col = idx
			}
			continue
		}
		if col >= len(row) {
			return nil, fmt.Errorf("CSV row %d has %d columns, expected at least %d", line, len(row), col+1)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing arrival time on row %d: %w", line, err)
		}
		times = append(times, v)
	}

	if !slices.IsSorted(times) {
		logrus.Warnf("arrival trace is not sorted; sorting %d timestamps", len(times))
		slices.Sort(times)
	}
	return NewArrivalTrace(times)
}

// WriteArrivalTrace writes t as a single-column CSV with an arrival_ms header.
func WriteArrivalTrace(w io.Writer, t *ArrivalTrace) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{ArrivalColumn}); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i, ts := range t.times {
		if err := writer.Write([]string{strconv.FormatFloat(ts, 'f', -1, 64)}); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportArrivalTrace writes t to path.
func ExportArrivalTrace(path string, t *ArrivalTrace) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating arrival trace file: %w", err)
	}
	if err := WriteArrivalTrace(file, t); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

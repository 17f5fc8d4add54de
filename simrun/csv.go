package simrun

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNoColumn is returned when a CSV output file has no column of the
// requested name, or no "Time" column to plot it against.
var ErrNoColumn = errors.New("simrun: column not found")

// ReadCSV splits an output file into rows. Rows may differ in length.
func ReadCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

// CSVToVector builds the series of column value against "Time". Row 0 holds
// units, row 1 holds column names; data starts at row 2. Blank rows are
// skipped.
func CSVToVector(rows [][]string, value string) (DataVector[float64, float64], error) {
	var zero DataVector[float64, float64]
	if len(rows) < 2 {
		return zero, fmt.Errorf("csv: want units and names rows, got %d rows", len(rows))
	}
	units, names := rows[0], rows[1]
	ti, vi := indexOf(names, "Time"), indexOf(names, value)
	if ti < 0 || vi < 0 || ti >= len(units) || vi >= len(units) {
		return zero, fmt.Errorf("%w: %q", ErrNoColumn, value)
	}

	out := DataVector[float64, float64]{
		XUnits: strings.TrimSpace(units[ti]),
		XName:  strings.TrimSpace(names[ti]),
		YUnits: strings.TrimSpace(units[vi]),
		YName:  strings.TrimSpace(names[vi]),
	}
	for i, row := range rows[2:] {
		if blank(row) {
			continue
		}
		if ti >= len(row) || vi >= len(row) {
			return zero, fmt.Errorf("csv row %d: short row", i+2)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(row[ti]), 64)
		if err != nil {
			return zero, fmt.Errorf("csv row %d: %w", i+2, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(row[vi]), 64)
		if err != nil {
			return zero, fmt.Errorf("csv row %d: %w", i+2, err)
		}
		out.Values = append(out.Values, Point[float64, float64]{X: x, Y: y})
	}
	return out, nil
}

// ParseCSVData reads an output file and extracts one series.
func ParseCSVData(r io.Reader, value string) (DataVector[float64, float64], error) {
	rows, err := ReadCSV(r)
	if err != nil {
		return DataVector[float64, float64]{}, err
	}
	return CSVToVector(rows, value)
}

func indexOf(names []string, want string) int {
	for i, n := range names {
		if strings.TrimSpace(n) == want {
			return i
		}
	}
	return -1
}

func blank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tunogya/saliency/pkg/model"
)

// Column names with special meaning in source files
const (
	ColumnDate     = "date"
	ColumnDS       = "ds"
	ColumnUniqueID = "unique_id"
	ColumnY        = "y"
)

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses the timestamp formats found in the benchmark datasets
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseValue parses a numeric cell; empty cells and "nan" are missing values
func ParseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// CSVReader reads CSV files in either wide layout (a time column followed by
// one column per series) or long layout (unique_id, ds, y rows, pivoted so
// each unique_id becomes a column).
type CSVReader struct{}

// NewCSVReader creates a CSV table reader
func NewCSVReader() *CSVReader {
	return &CSVReader{}
}

// Read loads a CSV file into a TimeTable
func (r *CSVReader) Read(ctx context.Context, path string) (*model.TimeTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	return r.Decode(ctx, file)
}

// Decode reads CSV content from an io.Reader
func (r *CSVReader) Decode(ctx context.Context, in io.Reader) (*model.TimeTable, error) {
	reader := csv.NewReader(in)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	colMap := make(map[string]int, len(header))
	for i, col := range header {
		colMap[col] = i
	}

	var records [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		records = append(records, record)
	}

	if isLong(colMap) {
		return pivotLong(records, colMap)
	}
	return parseWide(header, records)
}

func isLong(colMap map[string]int) bool {
	_, id := colMap[ColumnUniqueID]
	_, ds := colMap[ColumnDS]
	_, y := colMap[ColumnY]
	return id && ds && y && len(colMap) == 3
}

// parseWide treats the first date/ds column as the time index and every
// other column, except unique_id, as a numeric series
func parseWide(header []string, records [][]string) (*model.TimeTable, error) {
	indexCol := -1
	for i, col := range header {
		if col == ColumnDate || col == ColumnDS {
			indexCol = i
			break
		}
	}

	var t *model.TimeTable
	if indexCol >= 0 {
		index := make([]time.Time, len(records))
		for i, rec := range records {
			ts, err := ParseTime(rec[indexCol])
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			index[i] = ts
		}
		t = model.NewIndexedTimeTable(header[indexCol], index)
	} else {
		t = model.NewTimeTable(len(records))
	}

	for j, col := range header {
		if j == indexCol || col == ColumnUniqueID {
			continue
		}
		values := make([]float64, len(records))
		for i, rec := range records {
			v, err := ParseValue(rec[j])
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i+1, col, err)
			}
			values[i] = v
		}
		if err := t.Set(col, values); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// pivotLong groups rows by unique_id in order of first appearance. Series
// must have equal lengths; the index comes from the first series.
func pivotLong(records [][]string, colMap map[string]int) (*model.TimeTable, error) {
	idCol, dsCol, yCol := colMap[ColumnUniqueID], colMap[ColumnDS], colMap[ColumnY]

	var order []string
	series := make(map[string][]float64)
	stamps := make(map[string][]time.Time)
	for i, rec := range records {
		id := rec[idCol]
		if _, ok := series[id]; !ok {
			order = append(order, id)
		}
		v, err := ParseValue(rec[yCol])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		ts, err := ParseTime(rec[dsCol])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		series[id] = append(series[id], v)
		stamps[id] = append(stamps[id], ts)
	}

	if len(order) == 0 {
		return model.NewTimeTable(0), nil
	}

	t := model.NewIndexedTimeTable(ColumnDS, stamps[order[0]])
	for _, id := range order {
		if err := t.Set(id, series[id]); err != nil {
			return nil, fmt.Errorf("failed to pivot series %q: %w", id, err)
		}
	}
	return t, nil
}

package model

import (
	"fmt"
	"math"
	"time"
)

// TimeTable is an ordered set of named numeric series sharing one time index.
// Row order is time order and is never permuted.
type TimeTable struct {
	IndexName string      `json:"index_name,omitempty"` // name of the time column, e.g. "date" or "ds"
	Index     []time.Time `json:"index,omitempty"`      // optional; empty when the source has no time column

	names  []string
	values map[string][]float64
	rows   int
}

// NewTimeTable creates an empty table with the given row count
func NewTimeTable(rows int) *TimeTable {
	return &TimeTable{
		names:  make([]string, 0),
		values: make(map[string][]float64),
		rows:   rows,
	}
}

// NewIndexedTimeTable creates an empty table indexed by the given timestamps
func NewIndexedTimeTable(indexName string, index []time.Time) *TimeTable {
	t := NewTimeTable(len(index))
	t.IndexName = indexName
	t.Index = index
	return t
}

// Len returns the number of rows
func (t *TimeTable) Len() int {
	return t.rows
}

// Columns returns the column names in insertion order
func (t *TimeTable) Columns() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Has reports whether the named column exists
func (t *TimeTable) Has(name string) bool {
	_, ok := t.values[name]
	return ok
}

// Column returns the values of a column. The returned slice is shared with the
// table and must not be modified; use Clone for a private copy.
func (t *TimeTable) Column(name string) ([]float64, error) {
	v, ok := t.values[name]
	if !ok {
		return nil, &AlignmentError{Column: name, Reason: "column not found"}
	}
	return v, nil
}

// Set adds a new column at the end or replaces an existing one in place
func (t *TimeTable) Set(name string, values []float64) error {
	if len(values) != t.rows {
		return &AlignmentError{
			Column: name,
			Reason: fmt.Sprintf("length %d does not match table length %d", len(values), t.rows),
		}
	}
	if _, ok := t.values[name]; !ok {
		t.names = append(t.names, name)
	}
	t.values[name] = values
	return nil
}

// SetMissing replaces (or adds) a column filled with NaN
func (t *TimeTable) SetMissing(name string) error {
	missing := make([]float64, t.rows)
	for i := range missing {
		missing[i] = math.NaN()
	}
	return t.Set(name, missing)
}

// Row returns the values of row i in column order
func (t *TimeTable) Row(i int) []float64 {
	row := make([]float64, len(t.names))
	for j, name := range t.names {
		row[j] = t.values[name][i]
	}
	return row
}

// Clone creates a deep copy of the table
func (t *TimeTable) Clone() *TimeTable {
	c := NewTimeTable(t.rows)
	c.IndexName = t.IndexName
	if t.Index != nil {
		c.Index = make([]time.Time, len(t.Index))
		copy(c.Index, t.Index)
	}
	for _, name := range t.names {
		v := make([]float64, len(t.values[name]))
		copy(v, t.values[name])
		c.names = append(c.names, name)
		c.values[name] = v
	}
	return c
}

// HasIndex returns true if the table carries a time index
func (t *TimeTable) HasIndex() bool {
	return len(t.Index) == t.rows && t.rows > 0
}

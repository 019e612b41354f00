package model

import (
	"fmt"
	"strings"
)

// InvertedPrefix marks the inverted-shaped variant of a metric in identifiers
const InvertedPrefix = "i"

// RawSuffix tags the untouched source table in concatenated artifacts
const RawSuffix = "_raw"

// GenerateDatasetID creates the artifact identifier for a (dataset, window, metric) triple
// Format: {dataset}_w{window}_{metric}, or {dataset}_w{window}_i{metric} when inverted.
// Other tooling parses these names, so the format must stay stable.
func GenerateDatasetID(dataset string, window int, metric string, inverted bool) string {
	if inverted {
		metric = InvertedPrefix + metric
	}
	return fmt.Sprintf("%s_w%d_%s", dataset, window, metric)
}

// RawID returns the identifier of the untouched table for a target series
func RawID(target string) string {
	return target + RawSuffix
}

// ProcessedDataset is a table whose exogenous columns have been replaced by
// shaped (or inverted-shaped) versions, tagged with its identifier
type ProcessedDataset struct {
	ID       string     `json:"id"`
	Dataset  string     `json:"dataset"`
	Window   int        `json:"window"`
	Metric   string     `json:"metric"`
	Inverted bool       `json:"inverted"`
	Table    *TimeTable `json:"-"`
}

// NewProcessedDataset creates a tagged dataset with a generated identifier
func NewProcessedDataset(dataset string, window int, metric string, inverted bool, table *TimeTable) *ProcessedDataset {
	return &ProcessedDataset{
		ID:       GenerateDatasetID(dataset, window, metric, inverted),
		Dataset:  dataset,
		Window:   window,
		Metric:   metric,
		Inverted: inverted,
		Table:    table,
	}
}

// NewRawDataset tags an untouched source table
func NewRawDataset(dataset, target string, table *TimeTable) *ProcessedDataset {
	return &ProcessedDataset{
		ID:      RawID(target),
		Dataset: dataset,
		Table:   table,
	}
}

// Artifact is the unit handed to persistence: one or more tagged tables stacked
// row-wise and stored under a single name
type Artifact struct {
	Name  string
	Parts []*ProcessedDataset
}

// SingleArtifact wraps one dataset stored under its own identifier
func SingleArtifact(ds *ProcessedDataset) *Artifact {
	return &Artifact{Name: ds.ID, Parts: []*ProcessedDataset{ds}}
}

// Rows returns the total row count across all parts
func (a *Artifact) Rows() int {
	n := 0
	for _, p := range a.Parts {
		n += p.Table.Len()
	}
	return n
}

// Columns returns the shared column layout of the parts. Parts must agree on
// column names and order.
func (a *Artifact) Columns() ([]string, error) {
	if len(a.Parts) == 0 {
		return nil, fmt.Errorf("artifact %s has no parts", a.Name)
	}
	cols := a.Parts[0].Table.Columns()
	want := strings.Join(cols, "\x00")
	for _, p := range a.Parts[1:] {
		if strings.Join(p.Table.Columns(), "\x00") != want {
			return nil, fmt.Errorf("artifact %s: part %s has a different column layout", a.Name, p.ID)
		}
	}
	return cols, nil
}

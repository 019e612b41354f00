// Package store defines how assembled artifacts are persisted.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/tunogya/saliency/pkg/model"
)

// Format is the serialization of a persisted artifact
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// ParseFormat accepts "csv", "parquet" and their dotted extensions
func ParseFormat(s string) (Format, error) {
	switch s {
	case "csv", ".csv":
		return FormatCSV, nil
	case "parquet", ".parquet":
		return FormatParquet, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Ext returns the file extension including the dot
func (f Format) Ext() string {
	return "." + string(f)
}

// UniqueIDColumn is appended to every persisted artifact and holds the
// identifier of the part each row belongs to
const UniqueIDColumn = "unique_id"

// Written describes a persisted artifact
type Written struct {
	Name      string    `json:"name"`
	Dataset   string    `json:"dataset"`
	Parts     []string  `json:"parts"`
	Format    Format    `json:"format"`
	Path      string    `json:"path"`
	Rows      int       `json:"rows"`
	WrittenAt time.Time `json:"written_at"`
}

// Writer persists an artifact under its name
type Writer interface {
	Write(ctx context.Context, a *model.Artifact) (Written, error)
}

// Layout is the column layout shared by every part of an artifact
type Layout struct {
	IndexName string   // empty when the parts carry no time index
	Columns   []string // data columns, in table order
}

// LayoutOf validates that all parts agree and returns their layout
func LayoutOf(a *model.Artifact) (Layout, error) {
	cols, err := a.Columns()
	if err != nil {
		return Layout{}, err
	}

	first := a.Parts[0].Table
	layout := Layout{Columns: cols}
	if first.HasIndex() {
		layout.IndexName = first.IndexName
	}
	for _, p := range a.Parts[1:] {
		if p.Table.HasIndex() != first.HasIndex() || p.Table.IndexName != first.IndexName {
			return Layout{}, fmt.Errorf("artifact %s: part %s has a different index", a.Name, p.ID)
		}
	}
	for _, c := range cols {
		if c == UniqueIDColumn || (layout.IndexName != "" && c == layout.IndexName) {
			return Layout{}, fmt.Errorf("artifact %s: column %q collides with a reserved column", a.Name, c)
		}
	}
	return layout, nil
}

// Describe builds the Written record of an artifact
func Describe(a *model.Artifact, format Format, path string) Written {
	w := Written{
		Name:      a.Name,
		Format:    format,
		Path:      path,
		Rows:      a.Rows(),
		WrittenAt: time.Now().UTC(),
	}
	for _, p := range a.Parts {
		w.Parts = append(w.Parts, p.ID)
		if w.Dataset == "" {
			w.Dataset = p.Dataset
		}
	}
	return w
}

// Publisher announces persisted artifacts
type Publisher interface {
	Announce(ctx context.Context, w Written) error
}

// Announcing wraps a Writer and announces every successful write. A failed
// announcement fails the write.
type Announcing struct {
	next      Writer
	publisher Publisher
}

// NewAnnouncing decorates next with announcements through publisher
func NewAnnouncing(next Writer, publisher Publisher) *Announcing {
	return &Announcing{next: next, publisher: publisher}
}

// Write persists the artifact, then announces it
func (a *Announcing) Write(ctx context.Context, artifact *model.Artifact) (Written, error) {
	w, err := a.next.Write(ctx, artifact)
	if err != nil {
		return w, err
	}
	if err := a.publisher.Announce(ctx, w); err != nil {
		return w, fmt.Errorf("failed to announce artifact %s: %w", w.Name, err)
	}
	return w, nil
}

// Memory keeps written artifacts in memory, keyed by name
type Memory struct {
	Artifacts map[string]*model.Artifact
	Order     []string
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{Artifacts: make(map[string]*model.Artifact)}
}

// Write records the artifact
func (m *Memory) Write(_ context.Context, a *model.Artifact) (Written, error) {
	if _, err := LayoutOf(a); err != nil {
		return Written{}, err
	}
	if _, ok := m.Artifacts[a.Name]; !ok {
		m.Order = append(m.Order, a.Name)
	}
	m.Artifacts[a.Name] = a
	return Describe(a, "", ""), nil
}

package data

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tunogya/saliency/pkg/model"
)

// DatasetConfig describes how one dataset is shaped
type DatasetConfig struct {
	Target    string   // target series column
	Exogenous []string // candidate exogenous columns, in processing order
	Windows   []int    // window sizes to try, in processing order
	Freq      string   // sampling frequency, e.g. "h" or "15min"
	TestSize  int
	ValidSize int
}

// DatasetAdapter supplies raw tables and their shaping configuration
type DatasetAdapter interface {
	// Load returns the raw table of a dataset. Rows are ordered by time.
	Load(ctx context.Context, id string) (*model.TimeTable, error)

	// Config returns the shaping configuration of a dataset
	Config(id string) (DatasetConfig, error)
}

// TableReader reads a file into a TimeTable
type TableReader interface {
	Read(ctx context.Context, path string) (*model.TimeTable, error)
}

// Entry locates a dataset on disk and carries its configuration
type Entry struct {
	RelativePath string
	Config       DatasetConfig
}

// FileAdapter resolves dataset ids against a catalog of files under a root
// directory and picks a reader by file extension
type FileAdapter struct {
	root    string
	catalog map[string]Entry
	readers map[string]TableReader
}

// NewFileAdapter creates a file-backed adapter. readers maps lower-case file
// extensions (".csv", ".parquet") to the reader handling them.
func NewFileAdapter(root string, catalog map[string]Entry, readers map[string]TableReader) *FileAdapter {
	return &FileAdapter{
		root:    root,
		catalog: catalog,
		readers: readers,
	}
}

// Load reads the dataset file
func (a *FileAdapter) Load(ctx context.Context, id string) (*model.TimeTable, error) {
	entry, ok := a.catalog[id]
	if !ok {
		return nil, fmt.Errorf("unknown dataset %q", id)
	}

	path := filepath.Join(a.root, entry.RelativePath)
	ext := strings.ToLower(filepath.Ext(path))
	reader, ok := a.readers[ext]
	if !ok {
		return nil, fmt.Errorf("no reader for %q files (dataset %s)", ext, id)
	}

	t, err := reader.Read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", id, err)
	}
	return t, nil
}

// Config returns the catalog configuration of a dataset
func (a *FileAdapter) Config(id string) (DatasetConfig, error) {
	entry, ok := a.catalog[id]
	if !ok {
		return DatasetConfig{}, fmt.Errorf("unknown dataset %q", id)
	}
	return entry.Config, nil
}

// MemoryAdapter serves tables held in memory
type MemoryAdapter struct {
	tables  map[string]*model.TimeTable
	configs map[string]DatasetConfig
}

// NewMemoryAdapter creates an empty in-memory adapter
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		tables:  make(map[string]*model.TimeTable),
		configs: make(map[string]DatasetConfig),
	}
}

// Add registers a dataset
func (a *MemoryAdapter) Add(id string, t *model.TimeTable, cfg DatasetConfig) {
	a.tables[id] = t
	a.configs[id] = cfg
}

// Load returns the registered table. Callers must not modify it.
func (a *MemoryAdapter) Load(_ context.Context, id string) (*model.TimeTable, error) {
	t, ok := a.tables[id]
	if !ok {
		return nil, fmt.Errorf("unknown dataset %q", id)
	}
	return t, nil
}

// Config returns the registered configuration
func (a *MemoryAdapter) Config(id string) (DatasetConfig, error) {
	cfg, ok := a.configs[id]
	if !ok {
		return DatasetConfig{}, fmt.Errorf("unknown dataset %q", id)
	}
	return cfg, nil
}

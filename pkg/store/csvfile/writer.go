// Package csvfile persists artifacts as row-oriented CSV files.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tunogya/saliency/pkg/model"
	"github.com/tunogya/saliency/pkg/store"
)

// TimeLayout formats the index column
const TimeLayout = "2006-01-02 15:04:05"

// Writer writes each artifact to {dir}/{name}.csv
type Writer struct {
	dir string
}

// NewWriter creates a CSV writer rooted at dir, creating it if needed
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Write persists the artifact. Missing values are written as empty cells.
func (w *Writer) Write(ctx context.Context, a *model.Artifact) (store.Written, error) {
	path := filepath.Join(w.dir, a.Name+store.FormatCSV.Ext())

	file, err := os.Create(path)
	if err != nil {
		return store.Written{}, fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := Encode(ctx, file, a); err != nil {
		file.Close()
		return store.Written{}, err
	}
	if err := file.Close(); err != nil {
		return store.Written{}, fmt.Errorf("failed to close %s: %w", path, err)
	}

	return store.Describe(a, store.FormatCSV, path), nil
}

// Encode writes the artifact as CSV: the time index (when present), the data
// columns, then unique_id
func Encode(ctx context.Context, out io.Writer, a *model.Artifact) error {
	layout, err := store.LayoutOf(a)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(out)
	header := make([]string, 0, len(layout.Columns)+2)
	if layout.IndexName != "" {
		header = append(header, layout.IndexName)
	}
	header = append(header, layout.Columns...)
	header = append(header, store.UniqueIDColumn)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(header))
	for _, part := range a.Parts {
		if err := ctx.Err(); err != nil {
			return err
		}

		cols := make([][]float64, len(layout.Columns))
		for j, name := range layout.Columns {
			cols[j], err = part.Table.Column(name)
			if err != nil {
				return err
			}
		}

		for i := 0; i < part.Table.Len(); i++ {
			k := 0
			if layout.IndexName != "" {
				record[k] = part.Table.Index[i].Format(TimeLayout)
				k++
			}
			for _, col := range cols {
				record[k] = FormatValue(col[i])
				k++
			}
			record[k] = part.ID
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// FormatValue renders a float with the shortest exact representation; NaN
// becomes an empty cell
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

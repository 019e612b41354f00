package duckdb

import (
	"context"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tunogya/saliency/pkg/data"
	"github.com/tunogya/saliency/pkg/model"
	"github.com/tunogya/saliency/pkg/store"
)

// ParquetReader loads parquet files through read_parquet. The first column
// named "date" or "ds" becomes the time index and the unique_id column is
// dropped. Every other column must be numeric.
type ParquetReader struct {
	client *Client
}

// NewParquetReader creates a parquet table reader
func NewParquetReader(client *Client) *ParquetReader {
	return &ParquetReader{client: client}
}

// Read loads a parquet file into a TimeTable
func (r *ParquetReader) Read(ctx context.Context, path string) (*model.TimeTable, error) {
	rows, err := r.client.Query(ctx, "SELECT * FROM read_parquet("+QuoteLiteral(path)+")")
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet %s: %w", path, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet columns: %w", err)
	}

	var index []time.Time
	indexCol := -1
	values := make([][]float64, len(names))
	cells := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range cells {
		ptrs[i] = &cells[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan parquet row: %w", err)
		}
		for j, cell := range cells {
			name := names[j]
			if name == store.UniqueIDColumn {
				continue
			}
			if name == data.ColumnDate || name == data.ColumnDS {
				if indexCol == -1 {
					indexCol = j
				}
				if indexCol == j {
					ts, err := toTime(cell)
					if err != nil {
						return nil, fmt.Errorf("column %q: %w", name, err)
					}
					index = append(index, ts)
					continue
				}
			}
			v, err := toFloat(cell)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", name, err)
			}
			values[j] = append(values[j], v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate parquet rows: %w", err)
	}

	var t *model.TimeTable
	if indexCol >= 0 {
		t = model.NewIndexedTimeTable(names[indexCol], index)
	} else {
		n := 0
		for j, name := range names {
			if name != store.UniqueIDColumn {
				n = len(values[j])
				break
			}
		}
		t = model.NewTimeTable(n)
	}

	for j, name := range names {
		if j == indexCol || name == store.UniqueIDColumn {
			continue
		}
		if err := t.Set(name, values[j]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func toTime(cell any) (time.Time, error) {
	switch v := cell.(type) {
	case time.Time:
		return v, nil
	case string:
		return data.ParseTime(v)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp of type %T", cell)
	}
}

func toFloat(cell any) (float64, error) {
	switch v := cell.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported value of type %T", cell)
	}
}

// ConvertCSV writes the CSV file at src as a snappy-compressed parquet file
// at dst
func ConvertCSV(ctx context.Context, c *Client, src, dst string) error {
	stmt := fmt.Sprintf("COPY (SELECT * FROM read_csv_auto(%s, header = true)) TO %s (FORMAT PARQUET, COMPRESSION SNAPPY)",
		QuoteLiteral(src), QuoteLiteral(dst))
	if err := c.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to convert %s: %w", src, err)
	}
	return nil
}

// ConvertResult summarizes a tree conversion
type ConvertResult struct {
	Converted []string
	Failed    map[string]error
}

// ConvertTree converts every .csv file under root into a parquet file next
// to it. A failing file is logged and skipped.
func ConvertTree(ctx context.Context, c *Client, root string, logger *zap.Logger) (*ConvertResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}

	res := &ConvertResult{Failed: make(map[string]error)}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".csv") {
			return nil
		}

		dst := strings.TrimSuffix(path, filepath.Ext(path)) + store.FormatParquet.Ext()
		logger.Info("converting", zap.String("src", path), zap.String("dst", dst))
		if err := ConvertCSV(ctx, c, path, dst); err != nil {
			logger.Error("conversion failed", zap.String("src", path), zap.Error(err))
			res.Failed[path] = err
			return nil
		}
		res.Converted = append(res.Converted, dst)
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return res, nil
}

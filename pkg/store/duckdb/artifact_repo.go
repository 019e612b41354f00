package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/tunogya/saliency/pkg/model"
	"github.com/tunogya/saliency/pkg/store"
)

// ArtifactRepo persists artifacts as DuckDB tables and exports each one to a
// snappy-compressed parquet file
type ArtifactRepo struct {
	client  *Client
	dir     string
	keep    bool
	catalog *CatalogRepo
	runID   string
}

// NewArtifactRepo creates a repository writing parquet files into dir.
// When keepTables is false the staging table is dropped after export.
func NewArtifactRepo(client *Client, dir string, keepTables bool) (*ArtifactRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &ArtifactRepo{client: client, dir: dir, keep: keepTables}, nil
}

// WithCatalog records every exported artifact in the catalog table under runID
func (r *ArtifactRepo) WithCatalog(catalog *CatalogRepo, runID string) *ArtifactRepo {
	r.catalog = catalog
	r.runID = runID
	return r
}

// Write loads the artifact into a table named after it and exports the table
// to {dir}/{name}.parquet
func (r *ArtifactRepo) Write(ctx context.Context, a *model.Artifact) (store.Written, error) {
	layout, err := store.LayoutOf(a)
	if err != nil {
		return store.Written{}, err
	}

	if err := r.Load(ctx, a, layout); err != nil {
		return store.Written{}, err
	}

	path := filepath.Join(r.dir, a.Name+store.FormatParquet.Ext())
	copyStmt := fmt.Sprintf("COPY %s TO %s (FORMAT PARQUET, COMPRESSION SNAPPY)",
		QuoteIdent(a.Name), QuoteLiteral(path))
	if err := r.client.Exec(ctx, copyStmt); err != nil {
		return store.Written{}, fmt.Errorf("failed to export %s to parquet: %w", a.Name, err)
	}

	if !r.keep {
		if err := r.client.Exec(ctx, "DROP TABLE IF EXISTS "+QuoteIdent(a.Name)); err != nil {
			return store.Written{}, fmt.Errorf("failed to drop staging table %s: %w", a.Name, err)
		}
	}

	written := store.Describe(a, store.FormatParquet, path)
	if r.catalog != nil {
		if err := r.catalog.Upsert(ctx, written, r.runID); err != nil {
			return written, err
		}
	}
	return written, nil
}

// Load creates (or replaces) the table for an artifact and inserts every
// part in a single transaction. Missing values are stored as NULL.
func (r *ArtifactRepo) Load(ctx context.Context, a *model.Artifact, layout store.Layout) error {
	if err := r.client.Exec(ctx, createTableStmt(a.Name, layout)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", a.Name, err)
	}

	tx, err := r.client.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	width := len(layout.Columns) + 1
	if layout.IndexName != "" {
		width++
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", width), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", QuoteIdent(a.Name), placeholders))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	args := make([]any, width)
	for _, part := range a.Parts {
		cols := make([][]float64, len(layout.Columns))
		for j, name := range layout.Columns {
			if cols[j], err = part.Table.Column(name); err != nil {
				return err
			}
		}

		for i := 0; i < part.Table.Len(); i++ {
			k := 0
			if layout.IndexName != "" {
				args[k] = part.Table.Index[i]
				k++
			}
			for _, col := range cols {
				args[k] = nullable(col[i])
				k++
			}
			args[k] = part.ID

			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("failed to insert row %d of %s: %w", i, part.ID, err)
			}
		}
	}

	return tx.Commit()
}

// Count returns the row count of a kept artifact table
func (r *ArtifactRepo) Count(ctx context.Context, name string) (int64, error) {
	var count int64
	row := r.client.QueryRow(ctx, "SELECT COUNT(*) FROM "+QuoteIdent(name))
	err := row.Scan(&count)
	return count, err
}

func createTableStmt(name string, layout store.Layout) string {
	defs := make([]string, 0, len(layout.Columns)+2)
	if layout.IndexName != "" {
		defs = append(defs, QuoteIdent(layout.IndexName)+" TIMESTAMP")
	}
	for _, c := range layout.Columns {
		defs = append(defs, QuoteIdent(c)+" DOUBLE")
	}
	defs = append(defs, QuoteIdent(store.UniqueIDColumn)+" VARCHAR")
	return fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s)", QuoteIdent(name), strings.Join(defs, ", "))
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

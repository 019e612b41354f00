package duckdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tunogya/saliency/pkg/store"
)

// CatalogEntry is one row of the artifacts table
type CatalogEntry struct {
	store.Written
	RunID string
}

// CatalogRepo records persisted artifacts
type CatalogRepo struct {
	client *Client
}

// NewCatalogRepo creates a new catalog repository
func NewCatalogRepo(client *Client) *CatalogRepo {
	return &CatalogRepo{client: client}
}

// Upsert inserts or replaces the catalog row of an artifact
func (r *CatalogRepo) Upsert(ctx context.Context, w store.Written, runID string) error {
	query := `
		INSERT INTO artifacts (name, dataset, parts, format, path, row_count, run_id, written_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			dataset = EXCLUDED.dataset,
			parts = EXCLUDED.parts,
			format = EXCLUDED.format,
			path = EXCLUDED.path,
			row_count = EXCLUDED.row_count,
			run_id = EXCLUDED.run_id,
			written_at = EXCLUDED.written_at
	`
	writtenAt := w.WrittenAt
	if writtenAt.IsZero() {
		writtenAt = time.Now().UTC()
	}
	err := r.client.Exec(ctx, query,
		w.Name, w.Dataset, strings.Join(w.Parts, ","), string(w.Format), w.Path, int64(w.Rows), runID, writtenAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record artifact %s: %w", w.Name, err)
	}
	return nil
}

// ListByDataset returns the catalog rows of a dataset ordered by name
func (r *CatalogRepo) ListByDataset(ctx context.Context, dataset string) ([]CatalogEntry, error) {
	query := `
		SELECT name, dataset, parts, format, path, row_count, run_id, written_at
		FROM artifacts
		WHERE dataset = ?
		ORDER BY name ASC
	`

	rows, err := r.client.Query(ctx, query, dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var entries []CatalogEntry
	for rows.Next() {
		var e CatalogEntry
		var parts, format string
		var rowCount int64
		var runID interface{}

		err := rows.Scan(&e.Name, &e.Dataset, &parts, &format, &e.Path, &rowCount, &runID, &e.WrittenAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}

		if parts != "" {
			e.Parts = strings.Split(parts, ",")
		}
		e.Format = store.Format(format)
		e.Rows = int(rowCount)
		if id, ok := runID.(string); ok {
			e.RunID = id
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Count returns the number of cataloged artifacts
func (r *CatalogRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	row := r.client.QueryRow(ctx, "SELECT COUNT(*) FROM artifacts")
	err := row.Scan(&count)
	return count, err
}

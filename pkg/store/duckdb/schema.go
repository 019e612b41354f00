package duckdb

import (
	"context"
	"fmt"
)

// CreateArtifactsTable creates the artifact catalog: one row per persisted
// artifact, upserted on rewrite. No secondary index: DuckDB cannot upsert
// columns referenced by one.
const CreateArtifactsTable = `
CREATE TABLE IF NOT EXISTS artifacts (
    name VARCHAR PRIMARY KEY,
    dataset VARCHAR NOT NULL,
    parts VARCHAR NOT NULL,
    format VARCHAR NOT NULL,
    path VARCHAR NOT NULL,
    row_count BIGINT NOT NULL,
    run_id VARCHAR,
    written_at TIMESTAMP NOT NULL
);
`

// InitializeSchema creates all required tables
func InitializeSchema(ctx context.Context, c *Client) error {
	schemas := []string{
		CreateArtifactsTable,
	}

	for _, schema := range schemas {
		if err := c.Exec(ctx, schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

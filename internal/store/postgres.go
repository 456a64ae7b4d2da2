// Package store provides the persistence collaborators for the conversion
// service: a Postgres-backed record of committed conversions and a
// disk-backed store for the rendered CSV artifacts.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sicapo-dev/CSV-to-Xero-Converter/internal/core"
)

// Conversions stores conversion records in Postgres.
// It satisfies core.ConversionStore.
type Conversions struct {
	pool *pgxpool.Pool
}

// NewConversions creates a Postgres-backed conversion store.
func NewConversions(pool *pgxpool.Pool) *Conversions {
	return &Conversions{pool: pool}
}

// EnsureSchema creates the conversions table if it does not exist.
// Called once at startup.
func (s *Conversions) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS conversions (
			id                 UUID PRIMARY KEY,
			original_filename  TEXT NOT NULL,
			formatted_filename TEXT NOT NULL,
			artifact_path      TEXT NOT NULL,
			row_count          INTEGER NOT NULL,
			issue_count        INTEGER NOT NULL,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure conversions schema: %w", err)
	}
	return nil
}

// Save inserts a conversion record.
func (s *Conversions) Save(ctx context.Context, c core.Conversion) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversions
			(id, original_filename, formatted_filename, artifact_path, row_count, issue_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.OriginalName, c.OutputName, c.ArtifactPath, c.RowCount, c.IssueCount, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert conversion: %w", err)
	}
	return nil
}

// List returns all conversion records, newest first.
func (s *Conversions) List(ctx context.Context) ([]core.Conversion, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, original_filename, formatted_filename, artifact_path, row_count, issue_count, created_at
		FROM conversions
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()

	var result []core.Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	return result, nil
}

// Get returns one conversion record by ID.
func (s *Conversions) Get(ctx context.Context, id string) (core.Conversion, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, original_filename, formatted_filename, artifact_path, row_count, issue_count, created_at
		FROM conversions
		WHERE id = $1`, id)
	if err != nil {
		return core.Conversion{}, fmt.Errorf("get conversion: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return core.Conversion{}, fmt.Errorf("get conversion: %w", err)
		}
		return core.Conversion{}, fmt.Errorf("%w: %s", core.ErrConversionNotFound, id)
	}
	return scanConversion(rows)
}

func scanConversion(rows pgx.Rows) (core.Conversion, error) {
	var c core.Conversion
	var createdAt pgtype.Timestamptz
	if err := rows.Scan(&c.ID, &c.OriginalName, &c.OutputName, &c.ArtifactPath, &c.RowCount, &c.IssueCount, &createdAt); err != nil {
		return core.Conversion{}, fmt.Errorf("scan conversion: %w", err)
	}
	c.CreatedAt = createdAt.Time
	return c, nil
}

// IsNotFound reports whether an error is the store's not-found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, core.ErrConversionNotFound) || errors.Is(err, pgx.ErrNoRows)
}

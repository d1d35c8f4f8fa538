package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentCatalog = (*DocumentCatalog)(nil)

// DocumentCatalog implements driven.DocumentCatalog using PostgreSQL
type DocumentCatalog struct {
	db *DB
}

// NewDocumentCatalog creates a new DocumentCatalog
func NewDocumentCatalog(db *DB) *DocumentCatalog {
	return &DocumentCatalog{db: db}
}

const catalogColumns = `name, content_type, size_bytes, checksum, chunk_count, ingested_at`

// Save creates or replaces the record for rec.Name
func (c *DocumentCatalog) Save(ctx context.Context, rec *domain.DocumentRecord) error {
	query := `
		INSERT INTO documents (` + catalogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			content_type = EXCLUDED.content_type,
			size_bytes = EXCLUDED.size_bytes,
			checksum = EXCLUDED.checksum,
			chunk_count = EXCLUDED.chunk_count,
			ingested_at = EXCLUDED.ingested_at
	`

	_, err := c.db.ExecContext(ctx, query,
		rec.Name,
		rec.ContentType,
		rec.SizeBytes,
		rec.Checksum,
		rec.ChunkCount,
		rec.IngestedAt,
	)
	if err != nil {
		return fmt.Errorf("save document record: %w", err)
	}
	return nil
}

// Get retrieves a record by document name
func (c *DocumentCatalog) Get(ctx context.Context, name string) (*domain.DocumentRecord, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+catalogColumns+` FROM documents WHERE name = $1`, name)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get document record: %w", err)
	}
	return rec, nil
}

// List returns every record ordered by name
func (c *DocumentCatalog) List(ctx context.Context) ([]*domain.DocumentRecord, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+catalogColumns+` FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list document records: %w", err)
	}
	defer rows.Close()

	var records []*domain.DocumentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes the record for name
func (c *DocumentCatalog) Delete(ctx context.Context, name string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE name = $1`, name); err != nil {
		return fmt.Errorf("delete document record: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*domain.DocumentRecord, error) {
	var rec domain.DocumentRecord
	err := s.Scan(
		&rec.Name,
		&rec.ContentType,
		&rec.SizeBytes,
		&rec.Checksum,
		&rec.ChunkCount,
		&rec.IngestedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

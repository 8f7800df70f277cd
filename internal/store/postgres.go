package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the documents table. Connect applies it.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_data_gin ON documents USING GIN (data jsonb_path_ops);
`

// Postgres stores documents as JSONB rows keyed by (collection, id).
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool and ensures the schema exists.
func Connect(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool
func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

// Get implements Store.
func (p *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, unavailable("get "+collection, err)
	}
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, unavailable("get "+collection, err)
	}
	return withID(doc, id), nil
}

// Query implements Store. Filters become a single JSONB containment test.
func (p *Postgres) Query(ctx context.Context, collection string, filters []Filter, limit int) ([]Document, error) {
	contains := make(map[string]any, len(filters))
	for _, f := range filters {
		contains[f.Field] = f.Value
	}
	filter, err := json.Marshal(contains)
	if err != nil {
		return nil, fmt.Errorf("failed to encode filters: %w", err)
	}

	sql := `SELECT id, data FROM documents
		 WHERE collection = $1 AND data @> $2::jsonb
		 ORDER BY created_at, id`
	args := []any{collection, filter}
	if limit > 0 {
		sql += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, unavailable("query "+collection, err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, unavailable("scan "+collection, err)
		}
		doc, err := decodeDocument(raw)
		if err != nil {
			return nil, unavailable("decode "+collection, err)
		}
		out = append(out, withID(doc, id))
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("query "+collection, err)
	}
	return out, nil
}

// Append implements Store.
func (p *Postgres) Append(ctx context.Context, collection string, doc Document) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	id := uuid.NewString()
	_, err = p.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)`,
		collection, id, raw,
	)
	if err != nil {
		return "", unavailable("append "+collection, err)
	}
	return id, nil
}

// Merge implements Store. Top-level fields are replaced; others are kept.
func (p *Postgres) Merge(ctx context.Context, collection, id string, fields Document) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id)
		 DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = NOW()`,
		collection, id, raw,
	)
	if err != nil {
		return unavailable("merge "+collection, err)
	}
	return nil
}

func decodeDocument(raw []byte) (Document, error) {
	doc := Document{}
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresBackend keeps each collection in its own table as JSONB documents.
// Identifiers use the same ObjectID scheme as the Mongo backend.
type PostgresBackend struct {
	DB *sql.DB
}

func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{DB: db}
}

// EnsureCollections creates the backing table of every named collection.
func (b *PostgresBackend) EnsureCollections(ctx context.Context, names ...string) error {
	for _, name := range names {
		query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id CHAR(24) PRIMARY KEY,
			seq BIGSERIAL,
			doc JSONB NOT NULL
		)`, pq.QuoteIdentifier(name))
		if _, err := b.DB.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
	}
	return nil
}

func (b *PostgresBackend) Collection(name string) Collection {
	return &pgCollection{db: b.DB, name: name, table: pq.QuoteIdentifier(name)}
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.DB.PingContext(ctx)
}

func (b *PostgresBackend) Close(context.Context) error {
	return b.DB.Close()
}

type pgCollection struct {
	db    *sql.DB
	name  string
	table string
}

func (c *pgCollection) ListAll(ctx context.Context) ([]Document, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("SELECT id, doc FROM %s ORDER BY seq ASC", c.table))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.name, err)
		}
		doc, err := decodeRow(id, raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", c.name, id, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}
	return docs, nil
}

func (c *pgCollection) FindByID(ctx context.Context, id string) (Document, error) {
	if !IsValidID(id) {
		return nil, ErrInvalidID
	}
	var raw []byte
	err := c.db.QueryRowContext(ctx, fmt.Sprintf("SELECT doc FROM %s WHERE id = $1", c.table), id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", c.name, id, err)
	}
	return decodeRow(id, raw)
}

func (c *pgCollection) Insert(ctx context.Context, doc Document) (string, error) {
	id := NewID()
	body, err := encodeDoc(doc)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", c.name, err)
	}
	// lib/pq takes JSONB parameters as strings, not []byte.
	_, err = c.db.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (id, doc) VALUES ($1, $2)", c.table), id, body)
	if err != nil {
		return "", fmt.Errorf("insert %s: %w", c.name, err)
	}
	return id, nil
}

func (c *pgCollection) UpdateByID(ctx context.Context, id string, patch Document) (int64, error) {
	if !IsValidID(id) {
		return 0, ErrInvalidID
	}
	body, err := encodeDoc(patch)
	if err != nil {
		return 0, fmt.Errorf("encode %s/%s: %w", c.name, id, err)
	}
	result, err := c.db.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET doc = doc || $2::jsonb WHERE id = $1", c.table), id, body)
	if err != nil {
		return 0, fmt.Errorf("update %s/%s: %w", c.name, id, err)
	}
	return result.RowsAffected()
}

func (c *pgCollection) DeleteByID(ctx context.Context, id string) (int64, error) {
	if !IsValidID(id) {
		return 0, ErrInvalidID
	}
	result, err := c.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", c.table), id)
	if err != nil {
		return 0, fmt.Errorf("delete %s/%s: %w", c.name, id, err)
	}
	return result.RowsAffected()
}

func encodeDoc(doc Document) (string, error) {
	body := make(Document, len(doc))
	for k, v := range doc {
		if k == IDField {
			continue
		}
		body[k] = v
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeRow(id string, raw []byte) (Document, error) {
	doc := Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	doc[IDField] = id
	return doc, nil
}

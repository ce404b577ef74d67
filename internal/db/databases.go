package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/ontology-api/internal/types"
)

// CreateDatabase registers a new database and returns its metadata record.
func (db *DB) CreateDatabase(ctx context.Context, name string) (*types.Database, error) {
	record := &types.Database{
		ID:     newDatabaseID(),
		Name:   name,
		Status: "created",
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO databases (id, name, status)
		 VALUES ($1, $2, $3)
		 RETURNING created_at`,
		record.ID, record.Name, record.Status,
	).Scan(&record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create database record: %w", err)
	}
	return record, nil
}

// GetDatabase retrieves one database record. Returns (nil, nil) when the
// id is unknown.
func (db *DB) GetDatabase(ctx context.Context, id string) (*types.Database, error) {
	record := &types.Database{}
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, status,
		        COALESCE(jsonb_array_length(schema->'tables'), 0),
		        created_at
		 FROM databases WHERE id = $1`,
		id,
	).Scan(&record.ID, &record.Name, &record.Status, &record.TableCount, &record.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get database %s: %w", id, err)
	}
	return record, nil
}

// ListDatabases returns all registered databases, newest first.
func (db *DB) ListDatabases(ctx context.Context) ([]types.Database, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, status,
		        COALESCE(jsonb_array_length(schema->'tables'), 0),
		        created_at
		 FROM databases ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	defer rows.Close()

	var out []types.Database
	for rows.Next() {
		var d types.Database
		if err := rows.Scan(&d.ID, &d.Name, &d.Status, &d.TableCount, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan database row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateStatus sets the status of a database record.
func (db *DB) UpdateStatus(ctx context.Context, id, status string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE databases SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update status of %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("database %s not found", id)
	}
	return nil
}

// SaveSchema caches the introspected schema of a database.
func (db *DB) SaveSchema(ctx context.Context, id string, schema *types.DatabaseSchema) error {
	jsonBytes, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	tag, err := db.pool.Exec(ctx,
		`UPDATE databases SET schema = $1, status = 'ready', updated_at = NOW() WHERE id = $2`,
		jsonBytes, id,
	)
	if err != nil {
		return fmt.Errorf("failed to save schema of %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("database %s not found", id)
	}
	return nil
}

// GetSchema retrieves the cached schema of a database. Returns (nil, nil)
// when the database is unknown or has no cached schema yet.
func (db *DB) GetSchema(ctx context.Context, id string) (*types.DatabaseSchema, error) {
	var jsonBytes []byte
	err := db.pool.QueryRow(ctx,
		`SELECT schema FROM databases WHERE id = $1`,
		id,
	).Scan(&jsonBytes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get schema of %s: %w", id, err)
	}
	if len(jsonBytes) == 0 {
		return nil, nil
	}

	var schema types.DatabaseSchema
	if err := json.Unmarshal(jsonBytes, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema of %s: %w", id, err)
	}
	return &schema, nil
}

// DeleteDatabase removes a database record and its saved artifacts.
// Returns false when the id is unknown.
func (db *DB) DeleteDatabase(ctx context.Context, id string) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM databases WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete database %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

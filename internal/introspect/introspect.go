// Package introspect provisions per-dataset PostgreSQL databases, executes
// uploaded SQL scripts and reads the resulting schema back out of
// information_schema.
package introspect

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/ontology-api/internal/types"
)

// Introspector manages physical databases on a PostgreSQL server. adminURL
// must point at a database whose role may create and drop databases.
type Introspector struct {
	adminURL string
}

// New creates an Introspector for the given admin connection URL.
func New(adminURL string) *Introspector {
	return &Introspector{adminURL: adminURL}
}

// databaseURL rewrites the admin URL to target the named database.
func databaseURL(adminURL, name string) (string, error) {
	u, err := url.Parse(adminURL)
	if err != nil {
		return "", fmt.Errorf("parse admin database URL: %w", err)
	}
	u.Path = "/" + name
	return u.String(), nil
}

// CreateDatabase creates an empty physical database.
func (i *Introspector) CreateDatabase(ctx context.Context, name string) error {
	conn, err := pgx.Connect(ctx, i.adminURL)
	if err != nil {
		return fmt.Errorf("connect to admin database: %w", err)
	}
	defer conn.Close(ctx)

	// CREATE DATABASE cannot be parameterized; quote the identifier.
	_, err = conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize())
	if err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	log.Printf("[introspect] created database %s", name)
	return nil
}

// DropDatabase removes a physical database and everything in it.
func (i *Introspector) DropDatabase(ctx context.Context, name string) error {
	conn, err := pgx.Connect(ctx, i.adminURL)
	if err != nil {
		return fmt.Errorf("connect to admin database: %w", err)
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{name}.Sanitize())
	if err != nil {
		return fmt.Errorf("drop database %s: %w", name, err)
	}
	log.Printf("[introspect] dropped database %s", name)
	return nil
}

// ExecuteSQL runs an uploaded SQL script inside the named database.
func (i *Introspector) ExecuteSQL(ctx context.Context, name, script string) error {
	target, err := databaseURL(i.adminURL, name)
	if err != nil {
		return err
	}
	conn, err := pgx.Connect(ctx, target)
	if err != nil {
		return fmt.Errorf("connect to database %s: %w", name, err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, script); err != nil {
		return fmt.Errorf("execute SQL script in %s: %w", name, err)
	}
	return nil
}

// Schema introspects the named database: tables, columns, primary keys and
// foreign keys from information_schema.
func (i *Introspector) Schema(ctx context.Context, databaseID, name string) (*types.DatabaseSchema, error) {
	target, err := databaseURL(i.adminURL, name)
	if err != nil {
		return nil, err
	}
	conn, err := pgx.Connect(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("connect to database %s: %w", name, err)
	}
	defer conn.Close(ctx)

	tables, err := listTables(ctx, conn)
	if err != nil {
		return nil, err
	}

	for idx := range tables {
		t := &tables[idx]
		if t.Columns, err = listColumns(ctx, conn, t.Schema, t.Name); err != nil {
			return nil, err
		}
		if t.PrimaryKey, err = listPrimaryKey(ctx, conn, t.Schema, t.Name); err != nil {
			return nil, err
		}
		if t.ForeignKeys, err = listForeignKeys(ctx, conn, t.Schema, t.Name); err != nil {
			return nil, err
		}
	}

	return &types.DatabaseSchema{
		DatabaseID: databaseID,
		TableCount: len(tables),
		Tables:     tables,
	}, nil
}

func listTables(ctx context.Context, conn *pgx.Conn) ([]types.Table, error) {
	rows, err := conn.Query(ctx, `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_schema, table_name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []types.Table
	for rows.Next() {
		var t types.Table
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func listColumns(ctx context.Context, conn *pgx.Conn, schema, table string) ([]types.Column, error) {
	rows, err := conn.Query(ctx, `
		SELECT column_name, data_type, is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`,
		schema, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var columns []types.Column
	for rows.Next() {
		var c types.Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

func listPrimaryKey(ctx context.Context, conn *pgx.Conn, schema, table string) ([]string, error) {
	rows, err := conn.Query(ctx, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY kcu.ordinal_position`,
		schema, table)
	if err != nil {
		return nil, fmt.Errorf("list primary key of %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("scan primary key row: %w", err)
		}
		pk = append(pk, col)
	}
	return pk, rows.Err()
}

func listForeignKeys(ctx context.Context, conn *pgx.Conn, schema, table string) ([]types.ForeignKey, error) {
	rows, err := conn.Query(ctx, `
		SELECT kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name
		 AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY kcu.ordinal_position`,
		schema, table)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys of %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var fks []types.ForeignKey
	for rows.Next() {
		var fk types.ForeignKey
		if err := rows.Scan(&fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key row: %w", err)
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// Package introspect reads the live database's structure into the same
// shape the replay engine reconstructs from history, so the two can be
// compared for drift. It is read-only and intentionally coarse: live type
// names do not round-trip exactly through Postgres, so callers compare
// presence and naming, not full option payloads.
package introspect

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/declmig/declmig/schema"
)

// Read introspects the public schema: tables, columns, and indexes.
func Read(ctx context.Context, pool *pgxpool.Pool) (schema.Schema, error) {
	out := schema.Schema{}

	rows, err := pool.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name;
	`)
	if err != nil {
		return nil, fmt.Errorf("querying tables: %w", err)
	}
	defer rows.Close()
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		tables = append(tables, name)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterating table rows: %w", rows.Err())
	}

	for _, table := range tables {
		ts := schema.TableState{Fields: map[string]schema.Options{}}
		if err := readColumns(ctx, pool, table, ts.Fields); err != nil {
			return nil, fmt.Errorf("table %q: %w", table, err)
		}
		indexes, err := readIndexes(ctx, pool, table)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", table, err)
		}
		if len(indexes) > 0 {
			ts.Indexes = indexes
		}
		out[table] = ts
	}
	return out, nil
}

func readColumns(ctx context.Context, pool *pgxpool.Pool, table string, into map[string]schema.Options) error {
	rows, err := pool.Query(ctx, `
		SELECT column_name, udt_name, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position;
	`, table)
	if err != nil {
		return fmt.Errorf("querying columns: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, udt, nullable string
		var def *string
		if err := rows.Scan(&name, &udt, &nullable, &def); err != nil {
			return fmt.Errorf("scanning column: %w", err)
		}
		opts := schema.Options{schema.OptType: udt}
		if nullable == "NO" {
			opts[schema.OptNull] = false
		}
		if def != nil {
			opts[schema.OptDefault] = map[string]any{"sql": *def}
		}
		into[name] = opts
	}
	return rows.Err()
}

func readIndexes(ctx context.Context, pool *pgxpool.Pool, table string) (map[string]schema.Options, error) {
	rows, err := pool.Query(ctx, `
		SELECT i.relname,
		       am.amname,
		       ix.indisunique,
		       array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum))
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_am am ON i.relam = am.oid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY (ix.indkey)
		WHERE t.relname = $1
		  AND t.relkind = 'r'
		  AND NOT ix.indisprimary
		GROUP BY i.relname, am.amname, ix.indisunique;
	`, table)
	if err != nil {
		return nil, fmt.Errorf("querying indexes: %w", err)
	}
	defer rows.Close()
	out := map[string]schema.Options{}
	for rows.Next() {
		var name, method string
		var unique bool
		var columns []string
		if err := rows.Scan(&name, &method, &unique, &columns); err != nil {
			return nil, fmt.Errorf("scanning index: %w", err)
		}
		fields := make([]any, len(columns))
		for i, c := range columns {
			fields[i] = c
		}
		opts := schema.Options{schema.OptFields: fields, schema.OptMethod: method}
		if unique {
			opts[schema.OptUnique] = true
		}
		out[name] = opts
	}
	return out, rows.Err()
}

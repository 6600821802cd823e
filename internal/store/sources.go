package store

import (
	"context"
	"fmt"
)

// sourcesTable is the shared configuration table mapping each target
// table to the spreadsheet it is migrated from.
const sourcesTable = "migration_sources"

// Source is one configured migration: a target table and the share link
// of the spreadsheet feeding it.
type Source struct {
	TableName string
	SourceURL string
}

// EnsureSourcesTable creates the configuration table if missing.
func EnsureSourcesTable(ctx context.Context, db DBTX) error {
	ddl := `create table if not exists ` + sourcesTable + ` (
	id bigint generated always as identity primary key,
	table_name text not null unique,
	source_url text not null,
	created_at timestamptz not null default now(),
	updated_at timestamptz not null default now()
)`
	if _, err := db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", sourcesTable, err)
	}
	return nil
}

// UpsertSource registers or updates a table's source URL.
func UpsertSource(ctx context.Context, db DBTX, s Source) error {
	if !ValidTableName(s.TableName) {
		return fmt.Errorf("invalid table name %q", s.TableName)
	}
	_, err := db.Exec(ctx, `insert into `+sourcesTable+` (table_name, source_url)
values ($1, $2)
on conflict (table_name) do update set source_url = excluded.source_url, updated_at = now()`,
		s.TableName, s.SourceURL)
	if err != nil {
		return fmt.Errorf("upsert source %s: %w", s.TableName, err)
	}
	return nil
}

// ListSources returns every configured migration in registration order.
func ListSources(ctx context.Context, db DBTX) ([]Source, error) {
	rows, err := db.Query(ctx, `select table_name, source_url from `+sourcesTable+` order by id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.TableName, &s.SourceURL); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return out, nil
}

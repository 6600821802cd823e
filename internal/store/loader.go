package store

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"sheetmigrate/internal/report"
	"sheetmigrate/internal/sheet"
	"sheetmigrate/internal/transform"
)

// identPattern is the only shape of table name accepted for
// interpolation into DDL and insert statements.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidTableName reports whether name is safe to use as an identifier.
func ValidTableName(name string) bool {
	return len(name) <= 63 && identPattern.MatchString(name)
}

// quoteIdent double-quotes an identifier. Two of the canonical columns
// carry dashes, so every identifier is quoted rather than special-cased.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// LoadOptions are the per-run loader switches.
type LoadOptions struct {
	// DryRun counts batches as inserted without executing anything.
	DryRun bool
}

// LoadResult reports what one table's load pass did.
type LoadResult struct {
	Inserted int
	Skipped  int
	Batches  int
}

// Loader consumes batch cursors and issues parameterized bulk inserts.
// The batch is the unit of atomicity and of failure: a failed batch is
// skipped whole, recorded once, and never retried row by row.
type Loader struct {
	db        DBTX
	collector *report.Collector
	logger    *slog.Logger
}

// NewLoader returns a loader writing through db and recording batch
// failures on collector.
func NewLoader(db DBTX, collector *report.Collector, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{db: db, collector: collector, logger: logger}
}

// EnsureTable creates the target table and its indexes if they do not
// exist: a surrogate identity key, the 11 canonical text columns, two
// audit timestamps, and indexes on code and type. Safe to call on every
// run; a second invocation is a no-op.
func (l *Loader) EnsureTable(ctx context.Context, table string) error {
	if !ValidTableName(table) {
		return fmt.Errorf("invalid table name %q", table)
	}

	cols := make([]string, 0, len(sheet.FieldNames))
	for _, f := range sheet.FieldNames {
		cols = append(cols, fmt.Sprintf("%s text not null default ''", quoteIdent(f)))
	}

	ddl := fmt.Sprintf(`create table if not exists %s (
	id bigint generated always as identity primary key,
	%s,
	created_at timestamptz not null default now(),
	updated_at timestamptz not null default now()
)`, quoteIdent(table), strings.Join(cols, ",\n\t"))

	if _, err := l.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	for _, col := range []string{"code", "type"} {
		idx := fmt.Sprintf("create index if not exists %s on %s (%s)",
			quoteIdent("idx_"+table+"_"+col), quoteIdent(table), quoteIdent(col))
		if _, err := l.db.Exec(ctx, idx); err != nil {
			return fmt.Errorf("create index on %s.%s: %w", table, col, err)
		}
	}
	return nil
}

// Truncate empties the target table and restarts its identity sequence.
func (l *Loader) Truncate(ctx context.Context, table string) error {
	if !ValidTableName(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	if _, err := l.db.Exec(ctx, fmt.Sprintf("truncate table %s restart identity", quoteIdent(table))); err != nil {
		return fmt.Errorf("truncate %s: %w", table, err)
	}
	return nil
}

// RowCount returns the current number of rows in the target table.
func (l *Loader) RowCount(ctx context.Context, table string) (int64, error) {
	if !ValidTableName(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	var n int64
	if err := l.db.QueryRow(ctx, fmt.Sprintf("select count(*) from %s", quoteIdent(table))).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Load drains cursor into table. Each batch becomes one multi-row
// parameterized insert; a failed batch is counted skipped and recorded,
// and the next batch is attempted. Load itself only fails on a bad
// table name; store-level errors surface per batch via the collector.
func (l *Loader) Load(ctx context.Context, table string, cursor transform.BatchCursor, opts LoadOptions) (LoadResult, error) {
	if !ValidTableName(table) {
		return LoadResult{}, fmt.Errorf("invalid table name %q", table)
	}

	var res LoadResult
	for {
		batch, ok := cursor.Next()
		if !ok {
			break
		}
		res.Batches++

		if opts.DryRun {
			res.Inserted += len(batch)
			continue
		}

		sql, args := insertSQL(table, batch)
		if _, err := l.db.Exec(ctx, sql, args...); err != nil {
			res.Skipped += len(batch)
			if l.collector != nil {
				l.collector.Add(report.SourceLoader,
					fmt.Sprintf("batch %d insert failed: %v", res.Batches, err),
					fmt.Sprintf("table=%s rows=%d", table, len(batch)))
			}
			continue
		}
		res.Inserted += len(batch)

		if res.Batches%20 == 0 {
			l.logger.Debug("load progress", "table", table,
				"batches", res.Batches, "inserted", res.Inserted)
		}
	}
	return res, nil
}

// insertSQL builds one multi-row parameterized insert for a batch.
func insertSQL(table string, batch transform.Batch) (string, []any) {
	cols := make([]string, len(sheet.FieldNames))
	for i, f := range sheet.FieldNames {
		cols[i] = quoteIdent(f)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "insert into %s (%s) values ", quoteIdent(table), strings.Join(cols, ", "))

	args := make([]any, 0, len(batch)*len(sheet.FieldNames))
	for i, rec := range batch {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := range sheet.FieldNames {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", len(args)+j+1)
		}
		b.WriteByte(')')
		args = append(args, rec.Values()...)
	}
	return b.String(), args
}

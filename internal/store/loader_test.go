package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sheetmigrate/internal/report"
	"sheetmigrate/internal/sheet"
	"sheetmigrate/internal/transform"
)

// fakeDB records Exec calls and can be told to fail specific ones.
type fakeDB struct {
	execs  []string
	args   [][]interface{}
	failOn func(call int, sql string) error // 1-based call index
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	f.args = append(f.args, args)
	if f.failOn != nil {
		if err := f.failOn(len(f.execs), sql); err != nil {
			return pgconn.CommandTag{}, err
		}
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	return fakeRow{}
}

type fakeRow struct{}

func (fakeRow) Scan(dest ...any) error { return errors.New("not implemented") }

func testCollector() *report.Collector {
	return report.NewCollector(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
}

func testBatch(n int) transform.Batch {
	batch := make(transform.Batch, n)
	for i := range batch {
		batch[i] = transform.Record{Code: fmt.Sprintf("R-%d", i+1)}
	}
	return batch
}

// sliceCursor replays preset batches, like a direct cursor would.
type sliceCursor struct {
	batches []transform.Batch
	pos     int
}

func (c *sliceCursor) Next() (transform.Batch, bool) {
	if c.pos >= len(c.batches) {
		return nil, false
	}
	b := c.batches[c.pos]
	c.pos++
	return b, true
}

func TestValidTableName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"mirakl_rules", true},
		{"_private", true},
		{"t2", true},
		{"Rules", false},
		{"2fast", false},
		{"drop table", false},
		{`x"; drop table y; --`, false},
		{"", false},
		{strings.Repeat("a", 64), false},
	}
	for _, tt := range tests {
		if got := ValidTableName(tt.name); got != tt.want {
			t.Errorf("ValidTableName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestInsertSQL(t *testing.T) {
	sql, args := insertSQL("rules", testBatch(2))

	if !strings.HasPrefix(sql, `insert into "rules" (`) {
		t.Errorf("sql = %q, want insert into \"rules\"", sql)
	}
	// Dashed column names must be quoted.
	if !strings.Contains(sql, `"codigo-categoria-mirakl"`) {
		t.Errorf("sql missing quoted dashed column: %q", sql)
	}
	if !strings.Contains(sql, "($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11), ($12,") {
		t.Errorf("placeholder numbering wrong: %q", sql)
	}
	if len(args) != 2*len(sheet.FieldNames) {
		t.Errorf("len(args) = %d, want %d", len(args), 2*len(sheet.FieldNames))
	}
	if args[0] != "R-1" || args[len(sheet.FieldNames)] != "R-2" {
		t.Errorf("args misaligned: %v", args[:12])
	}
}

func TestEnsureTable_IdempotentStatements(t *testing.T) {
	db := &fakeDB{}
	l := NewLoader(db, testCollector(), nil)

	if err := l.EnsureTable(context.Background(), "rules"); err != nil {
		t.Fatalf("EnsureTable() error = %v", err)
	}
	if err := l.EnsureTable(context.Background(), "rules"); err != nil {
		t.Fatalf("second EnsureTable() error = %v", err)
	}

	// 3 statements per call: table + two indexes, all guarded.
	if len(db.execs) != 6 {
		t.Fatalf("exec count = %d, want 6", len(db.execs))
	}
	for _, sql := range db.execs {
		if !strings.Contains(sql, "if not exists") {
			t.Errorf("statement not idempotent: %q", sql)
		}
	}
	if !strings.Contains(db.execs[0], "id bigint generated always as identity primary key") {
		t.Errorf("missing identity key: %q", db.execs[0])
	}
	if !strings.Contains(db.execs[1], `"code"`) || !strings.Contains(db.execs[2], `"type"`) {
		t.Errorf("index columns wrong: %v", db.execs[1:3])
	}
}

func TestEnsureTable_RejectsBadName(t *testing.T) {
	l := NewLoader(&fakeDB{}, testCollector(), nil)
	if err := l.EnsureTable(context.Background(), "bad name"); err == nil {
		t.Fatal("EnsureTable() expected error for invalid name")
	}
}

func TestTruncate(t *testing.T) {
	db := &fakeDB{}
	l := NewLoader(db, testCollector(), nil)

	if err := l.Truncate(context.Background(), "rules"); err != nil {
		t.Fatalf("Truncate() error = %v", err)
	}
	if len(db.execs) != 1 || !strings.Contains(db.execs[0], "restart identity") {
		t.Errorf("truncate statement = %v", db.execs)
	}
}

func TestLoad_AllBatchesInserted(t *testing.T) {
	db := &fakeDB{}
	collector := testCollector()
	l := NewLoader(db, collector, nil)

	cursor := &sliceCursor{batches: []transform.Batch{
		testBatch(10), testBatch(10), testBatch(5),
	}}

	res, err := l.Load(context.Background(), "rules", cursor, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if res.Inserted != 25 || res.Skipped != 0 || res.Batches != 3 {
		t.Errorf("result = %+v, want 25 inserted / 0 skipped / 3 batches", res)
	}
	if len(db.execs) != 3 {
		t.Errorf("exec count = %d, want 3", len(db.execs))
	}
	if collector.HasErrors() {
		t.Errorf("unexpected errors: %v", collector.Entries())
	}
}

func TestLoad_FailedBatchIsIsolated(t *testing.T) {
	db := &fakeDB{
		failOn: func(call int, sql string) error {
			if call == 2 {
				return errors.New("duplicate key value violates unique constraint")
			}
			return nil
		},
	}
	collector := testCollector()
	l := NewLoader(db, collector, nil)

	cursor := &sliceCursor{batches: []transform.Batch{
		testBatch(10), testBatch(10), testBatch(10), testBatch(4),
	}}

	res, err := l.Load(context.Background(), "rules", cursor, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// The whole failed batch is skipped; processing continues.
	if res.Inserted != 24 {
		t.Errorf("Inserted = %d, want 24", res.Inserted)
	}
	if res.Skipped != 10 {
		t.Errorf("Skipped = %d, want 10", res.Skipped)
	}
	if res.Batches != 4 {
		t.Errorf("Batches = %d, want 4", res.Batches)
	}
	if res.Inserted+res.Skipped != 34 {
		t.Errorf("inserted+skipped = %d, want 34", res.Inserted+res.Skipped)
	}

	if collector.Count() != 1 {
		t.Fatalf("collector entries = %d, want 1", collector.Count())
	}
	entry := collector.Entries()[0]
	if entry.Source != report.SourceLoader {
		t.Errorf("entry source = %q, want loader", entry.Source)
	}
	if !strings.Contains(entry.Message, "batch 2") {
		t.Errorf("entry message = %q, want mention of batch 2", entry.Message)
	}
}

func TestLoad_DryRunExecutesNothing(t *testing.T) {
	db := &fakeDB{}
	l := NewLoader(db, testCollector(), nil)

	cursor := &sliceCursor{batches: []transform.Batch{testBatch(500)}}

	res, err := l.Load(context.Background(), "rules", cursor, LoadOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Inserted != 500 {
		t.Errorf("Inserted = %d, want 500", res.Inserted)
	}
	if len(db.execs) != 0 {
		t.Errorf("dry run executed %d statements, want 0", len(db.execs))
	}
}

func TestLoad_RejectsBadName(t *testing.T) {
	l := NewLoader(&fakeDB{}, testCollector(), nil)
	if _, err := l.Load(context.Background(), "bad;name", &sliceCursor{}, LoadOptions{}); err == nil {
		t.Fatal("Load() expected error for invalid name")
	}
}

func TestUpsertSource_RejectsBadName(t *testing.T) {
	if err := UpsertSource(context.Background(), &fakeDB{}, Source{TableName: "bad name"}); err == nil {
		t.Fatal("UpsertSource() expected error for invalid name")
	}
}

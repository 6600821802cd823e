// Package migrate sequences the ingestion pipeline per configured table:
// validate access, fetch, parse, select a strategy, transform, load.
// Tables run sequentially in configuration order; a table that fails
// entirely is recorded and the run moves on to the next one.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sheetmigrate/internal/config"
	"sheetmigrate/internal/report"
	"sheetmigrate/internal/sheet"
	"sheetmigrate/internal/store"
	"sheetmigrate/internal/transform"
)

// Fetcher is the document download surface the runner needs.
// *fetch.Client satisfies it.
type Fetcher interface {
	Download(ctx context.Context, url string) ([]byte, error)
	ValidateAccess(ctx context.Context, url string) bool
}

// Options are the per-run switches handed in from the CLI.
type Options struct {
	DryRun       bool
	Truncate     bool
	SkipExisting bool

	// TargetTable, when non-empty, restricts the run to one table.
	TargetTable string

	// BatchSize overrides the configured bulk-insert batch size when
	// positive.
	BatchSize int
}

// TableResult is the outcome of one table's migration.
type TableResult struct {
	Table        string
	Strategy     transform.Strategy
	Rows         int
	Inserted     int
	Skipped      int
	Errors       int
	SkippedTable bool // table skipped entirely (already populated, or failed before load)
	Duration     time.Duration
}

// Summary is the terminal aggregate result of a run.
type Summary struct {
	Success         bool
	TablesProcessed int
	TotalInserted   int
	TotalSkipped    int
	Results         []TableResult
	Duration        time.Duration
}

// Runner wires the pipeline stages together around one shared pool and
// one shared collector.
type Runner struct {
	db        store.DBTX
	fetcher   Fetcher
	collector *report.Collector
	cfg       config.MigrateConfig
	logger    *slog.Logger
}

// NewRunner builds a runner. collector must be the run's shared
// collector; every stage records into it.
func NewRunner(db store.DBTX, fetcher Fetcher, collector *report.Collector, cfg config.MigrateConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{db: db, fetcher: fetcher, collector: collector, cfg: cfg, logger: logger}
}

// Run migrates every configured source in order (or the one selected by
// opts.TargetTable) and computes the summary. Success holds iff no table
// reported errors and the collector is empty.
func (r *Runner) Run(ctx context.Context, sources []store.Source, opts Options) Summary {
	start := time.Now()

	if opts.TargetTable != "" {
		filtered := sources[:0:0]
		for _, s := range sources {
			if s.TableName == opts.TargetTable {
				filtered = append(filtered, s)
			}
		}
		if len(filtered) == 0 {
			r.collector.Add(report.SourceOrchestrator,
				fmt.Sprintf("no source configured for table %q", opts.TargetTable), "")
		}
		sources = filtered
	}

	var summary Summary
	for _, src := range sources {
		res := r.runTable(ctx, src, opts)
		summary.Results = append(summary.Results, res)
		summary.TablesProcessed++
		summary.TotalInserted += res.Inserted
		summary.TotalSkipped += res.Skipped
	}

	summary.Duration = time.Since(start)
	summary.Success = !r.collector.HasErrors()
	return summary
}

// runTable runs the whole pipeline for one table. Failures are recorded
// on the collector and abort only this table, never the run.
func (r *Runner) runTable(ctx context.Context, src store.Source, opts Options) TableResult {
	start := time.Now()
	errsBefore := r.collector.Count()
	logger := r.logger.With("table", src.TableName)

	res := TableResult{Table: src.TableName}
	fail := func(source report.Source, msg string) TableResult {
		r.collector.Add(source, msg, "table="+src.TableName)
		res.Errors = r.collector.Count() - errsBefore
		res.SkippedTable = true
		res.Duration = time.Since(start)
		return res
	}

	loader := store.NewLoader(r.db, r.collector, logger)

	if !store.ValidTableName(src.TableName) {
		return fail(report.SourceOrchestrator, fmt.Sprintf("invalid target table name %q", src.TableName))
	}
	if src.SourceURL == "" {
		return fail(report.SourceOrchestrator, fmt.Sprintf("no source url configured for table %q", src.TableName))
	}

	// Dry runs must leave nothing behind, DDL included. The table may
	// therefore not exist on a dry run, so the skip-existing count is
	// skipped with it and the table treated as empty.
	if !opts.DryRun {
		if err := loader.EnsureTable(ctx, src.TableName); err != nil {
			return fail(report.SourceLoader, fmt.Sprintf("ensure table: %v", err))
		}
	}

	if opts.SkipExisting && !opts.DryRun {
		n, err := loader.RowCount(ctx, src.TableName)
		if err != nil {
			return fail(report.SourceLoader, fmt.Sprintf("row count: %v", err))
		}
		if n > 0 {
			logger.Info("table already populated, skipping", "rows", n)
			res.SkippedTable = true
			res.Duration = time.Since(start)
			return res
		}
	}

	// The probe only sees the unauthenticated export endpoint; a
	// document readable through the service account still downloads
	// fine, so a failed probe warns and the download is attempted.
	if !r.fetcher.ValidateAccess(ctx, src.SourceURL) {
		r.collector.Warn(report.SourceFetcher,
			fmt.Sprintf("source for table %q failed the accessibility probe, attempting download anyway", src.TableName),
			"table="+src.TableName)
	}

	logger.Info("downloading source document")
	data, err := r.fetcher.Download(ctx, src.SourceURL)
	if err != nil {
		return fail(report.SourceFetcher, fmt.Sprintf("download failed: %v", err))
	}

	sheets, err := sheet.Parse(data)
	if err != nil {
		return fail(report.SourceParser, fmt.Sprintf("parse failed: %v", err))
	}

	res.Rows = sheet.DataRowCount(sheets)
	res.Strategy = transform.SelectStrategy(res.Rows, r.cfg.LargeThreshold)
	logger.Info("strategy selected", "strategy", string(res.Strategy), "rows", res.Rows)

	if opts.Truncate && !opts.DryRun {
		if err := loader.Truncate(ctx, src.TableName); err != nil {
			return fail(report.SourceLoader, fmt.Sprintf("truncate: %v", err))
		}
	}

	batchSize := r.cfg.BatchSize
	if opts.BatchSize > 0 {
		batchSize = opts.BatchSize
	}

	cursor := transform.Cursor(res.Strategy, sheets, transform.Options{
		BatchSize:          batchSize,
		StreamingBatchSize: r.cfg.StreamingBatchSize,
		Collector:          r.collector,
		Logger:             logger,
	})

	loadRes, err := loader.Load(ctx, src.TableName, cursor, store.LoadOptions{DryRun: opts.DryRun})
	if err != nil {
		return fail(report.SourceLoader, fmt.Sprintf("load: %v", err))
	}

	res.Inserted = loadRes.Inserted
	res.Skipped = loadRes.Skipped
	res.Errors = r.collector.Count() - errsBefore
	res.Duration = time.Since(start)

	logger.Info("table migration finished",
		"inserted", res.Inserted, "skipped", res.Skipped,
		"errors", res.Errors, "duration", res.Duration)
	return res
}

package transform

import (
	"fmt"
	"log/slog"
	"runtime"

	"sheetmigrate/internal/report"
	"sheetmigrate/internal/sheet"
)

// Strategy identifies how a table's rows are transformed.
type Strategy string

const (
	// StrategyDirect materializes every record, then runs one
	// normalization pass over the full set.
	StrategyDirect Strategy = "direct"

	// StrategyStreaming never materializes the full record set: records
	// are produced through a finite lazy cursor in micro-batches.
	StrategyStreaming Strategy = "streaming"
)

// DefaultLargeThreshold is the row count above which streaming is used.
const DefaultLargeThreshold = 100000

// gcInterval is how often (in rows) the streaming cursor nudges the
// collector to release transformed-row garbage.
const gcInterval = 1000

// progressInterval is how often (in rows) the streaming cursor logs.
const progressInterval = 5000

// SelectStrategy picks the strategy for a precomputed row count. The
// choice is made once per table, before any record is built. A count of
// exactly largeThreshold still takes the direct path.
func SelectStrategy(totalRows, largeThreshold int) Strategy {
	if largeThreshold <= 0 {
		largeThreshold = DefaultLargeThreshold
	}
	if totalRows > largeThreshold {
		return StrategyStreaming
	}
	return StrategyDirect
}

// Batch is a bounded ordered group of records inserted in one statement.
type Batch []Record

// BatchCursor yields successive batches in source-row order. It is
// single-threaded, finite, and not restartable once exhausted.
type BatchCursor interface {
	// Next returns the next batch, or ok=false when exhausted. The last
	// batch of a sequence may be shorter than the configured size.
	Next() (Batch, bool)
}

// Options configures cursor construction.
type Options struct {
	// BatchSize is the fixed batch size for the direct strategy.
	BatchSize int

	// StreamingBatchSize is the micro-batch size for the streaming
	// strategy.
	StreamingBatchSize int

	// Collector receives row-level failures and mapping warnings.
	Collector *report.Collector

	// Logger receives streaming progress entries; nil uses slog.Default.
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Cursor builds the batch cursor for the chosen strategy.
func Cursor(strategy Strategy, sheets []sheet.Sheet, opts Options) BatchCursor {
	if strategy == StrategyStreaming {
		return newStreamingCursor(sheets, opts)
	}
	return newDirectCursor(sheets, opts)
}

// mappingFor resolves a sheet's column mapping, recording one warning
// per sheet when fields are missing, and one when the sheet carries no
// data rows at all.
func mappingFor(s sheet.Sheet, collector *report.Collector) sheet.Mapping {
	var header []string
	if len(s.Rows) > 0 {
		header = s.Rows[0]
	}

	m, missing := sheet.BuildMapping(header)
	if collector != nil {
		if len(missing) > 0 {
			collector.Warn(report.SourceParser,
				fmt.Sprintf("column mapping incomplete for sheet %q", s.Name),
				fmt.Sprintf("unmatched fields: %v", missing))
		}
		if len(s.Rows) <= 1 {
			collector.Warn(report.SourceParser,
				fmt.Sprintf("sheet %q has no data rows", s.Name), "")
		}
	}
	return m
}

// buildSafe builds one record, converting a panic on a pathological cell
// into a recorded row-level failure instead of aborting the table.
func buildSafe(row []string, m sheet.Mapping, rowNum int, collector *report.Collector) (rec Record, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			if collector != nil {
				collector.Add(report.SourceTransform,
					fmt.Sprintf("row %d could not be transformed: %v", rowNum, r), "")
			}
		}
	}()
	return BuildRecord(row, m, rowNum), true
}

// directCursor chunks a fully materialized, normalized record set.
type directCursor struct {
	records   []Record
	batchSize int
	pos       int
}

func newDirectCursor(sheets []sheet.Sheet, opts Options) *directCursor {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	var records []Record
	rowNum := 0
	for _, s := range sheets {
		m := mappingFor(s, opts.Collector)
		if len(s.Rows) <= 1 {
			continue
		}
		for _, row := range s.Rows[1:] {
			rowNum++
			if sheet.IsBlankRow(row) {
				continue
			}
			if rec, ok := buildSafe(row, m, rowNum, opts.Collector); ok {
				records = append(records, rec)
			}
		}
	}

	for i := range records {
		Normalize(&records[i])
	}

	return &directCursor{records: records, batchSize: batchSize}
}

func (c *directCursor) Next() (Batch, bool) {
	if c.pos >= len(c.records) {
		return nil, false
	}
	end := c.pos + c.batchSize
	if end > len(c.records) {
		end = len(c.records)
	}
	batch := Batch(c.records[c.pos:end])
	c.pos = end
	return batch, true
}

// streamingCursor lazily builds micro-batches straight from the raw
// rows, bounding peak memory to one micro-batch of records. It skips
// normalization to preserve throughput on very large tables.
type streamingCursor struct {
	sheets    []sheet.Sheet
	opts      Options
	batchSize int

	sheetIdx int
	rowIdx   int // index into current sheet's data rows
	mapping  sheet.Mapping
	rowNum   int // 1-based counter across all sheets
	emitted  int
	done     bool
}

func newStreamingCursor(sheets []sheet.Sheet, opts Options) *streamingCursor {
	batchSize := opts.StreamingBatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	return &streamingCursor{
		sheets:    sheets,
		opts:      opts,
		batchSize: batchSize,
		sheetIdx:  -1,
	}
}

func (c *streamingCursor) Next() (Batch, bool) {
	if c.done {
		return nil, false
	}

	batch := make(Batch, 0, c.batchSize)
	for len(batch) < c.batchSize {
		row, ok := c.nextRow()
		if !ok {
			c.done = true
			break
		}

		c.rowNum++
		if c.rowNum%gcInterval == 0 {
			// Transformed rows go out of scope batch by batch; give the
			// collector a chance to reclaim them before the next slab.
			runtime.GC()
		}
		if c.rowNum%progressInterval == 0 {
			c.opts.logger().Info("streaming transform progress",
				"rows", c.rowNum, "records", c.emitted+len(batch))
		}

		if sheet.IsBlankRow(row) {
			continue
		}
		if rec, ok := buildSafe(row, c.mapping, c.rowNum, c.opts.Collector); ok {
			batch = append(batch, rec)
		}
	}

	if len(batch) == 0 {
		return nil, false
	}
	c.emitted += len(batch)
	return batch, true
}

// nextRow advances to the next data row, moving across sheets and
// resolving each sheet's mapping on entry.
func (c *streamingCursor) nextRow() ([]string, bool) {
	for {
		if c.sheetIdx >= 0 && c.sheetIdx < len(c.sheets) {
			rows := c.sheets[c.sheetIdx].Rows
			if c.rowIdx+1 < len(rows) {
				c.rowIdx++
				return rows[c.rowIdx], true
			}
		}

		c.sheetIdx++
		if c.sheetIdx >= len(c.sheets) {
			return nil, false
		}
		c.rowIdx = 0 // row 0 is the header
		c.mapping = mappingFor(c.sheets[c.sheetIdx], c.opts.Collector)
	}
}

// Package report implements the shared error collector for a migration run
// and the grouped, human-readable error report built from it.
//
// One Collector is created per run and passed by reference through every
// pipeline stage. Stages never fail silently: anything recoverable is
// recorded here and processing continues.
package report

import (
	"log/slog"
	"sync"
	"time"
)

// Source identifies the subsystem that recorded an entry.
type Source string

const (
	SourceFetcher      Source = "fetcher"
	SourceParser       Source = "parser"
	SourceTransform    Source = "transform"
	SourceLoader       Source = "loader"
	SourceOrchestrator Source = "orchestrator"
)

// Entry is a single recorded error or warning. Entries are append-only
// and never mutated after being added.
type Entry struct {
	Source  Source
	Message string
	Context string
	Time    time.Time
}

// Collector accumulates entries for the lifetime of a run.
//
// The pipeline is sequential, but the collector is still guarded by a
// mutex so a collaborator running its own goroutine (a progress logger,
// a signal handler dumping state) can read it safely.
type Collector struct {
	mu       sync.Mutex
	logger   *slog.Logger
	entries  []Entry
	warnings []Entry
	now      func() time.Time
}

// NewCollector returns an empty collector. Entries are surfaced through
// logger the moment they are added; pass nil to use slog.Default.
func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		logger: logger,
		now:    time.Now,
	}
}

// Add records an error entry and immediately logs it.
// context may be empty.
func (c *Collector) Add(source Source, message, context string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, Entry{
		Source:  source,
		Message: message,
		Context: context,
		Time:    c.now(),
	})
	c.logger.Error(message, "source", string(source), "context", context)
}

// Warn records a non-fatal warning. Warnings appear in the final report
// but do not affect HasErrors or the run's success.
func (c *Collector) Warn(source Source, message, context string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.warnings = append(c.warnings, Entry{
		Source:  source,
		Message: message,
		Context: context,
		Time:    c.now(),
	})
	c.logger.Warn(message, "source", string(source), "context", context)
}

// HasErrors reports whether any error entry has been recorded.
func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries) > 0
}

// Count returns the number of recorded error entries.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// WarningCount returns the number of recorded warnings.
func (c *Collector) WarningCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.warnings)
}

// Entries returns a copy of all error entries in the order they were added.
func (c *Collector) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Warnings returns a copy of all warning entries in the order they were added.
func (c *Collector) Warnings() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Grouped returns error entries grouped by source. Group order follows
// first appearance; entries within a group keep chronological order.
func (c *Collector) Grouped() ([]Source, map[Source][]Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	groups := make(map[Source][]Entry)
	var order []Source
	for _, e := range c.entries {
		if _, seen := groups[e.Source]; !seen {
			order = append(order, e.Source)
		}
		groups[e.Source] = append(groups[e.Source], e)
	}
	return order, groups
}

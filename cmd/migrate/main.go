package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"sheetmigrate/internal/config"
	"sheetmigrate/internal/fetch"
	"sheetmigrate/internal/logging"
	"sheetmigrate/internal/migrate"
	"sheetmigrate/internal/report"
	"sheetmigrate/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		table        = flag.String("table", "", "migrate only this table")
		dryRun       = flag.Bool("dry-run", false, "walk the whole pipeline without writing to the database")
		truncate     = flag.Bool("truncate", false, "truncate each target table before loading")
		skipExisting = flag.Bool("skip-existing", false, "skip tables that already contain rows")
		batchSize    = flag.Int("batch-size", 0, "override the configured bulk-insert batch size")
		addSource    = flag.String("add-source", "", "register a table=url source mapping and exit")
	)
	flag.Parse()

	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	runID := uuid.New().String()
	logger := logging.ForRun(runID)
	logger.Info("configuration loaded",
		"db_max_conns", cfg.Database.MaxConns,
		"batch_size", cfg.Migrate.BatchSize,
		"large_threshold", cfg.Migrate.LargeThreshold,
	)

	// Cancel the run on SIGINT/SIGTERM; in-flight batches finish, the
	// next blocking call observes the cancellation.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return 1
	}
	defer pool.Close()
	logger.Info("connected to database")

	// A dry run issues no DDL, the sources table included.
	if !*dryRun {
		if err := store.EnsureSourcesTable(ctx, pool); err != nil {
			logger.Error("failed to ensure sources table", "error", err)
			return 1
		}
	}

	if *addSource != "" {
		if err := registerSource(ctx, pool, *addSource); err != nil {
			logger.Error("failed to register source", "error", err)
			return 1
		}
		logger.Info("source registered", "mapping", *addSource)
		return 0
	}

	sources, err := store.ListSources(ctx, pool)
	if err != nil {
		logger.Error("failed to list sources", "error", err)
		return 1
	}
	if len(sources) == 0 {
		logger.Error("no sources configured, register one with -add-source table=url")
		return 1
	}

	collector := report.NewCollector(logger)
	fetcher := fetch.NewClient(cfg.Fetch, logger)
	runner := migrate.NewRunner(pool, fetcher, collector, cfg.Migrate, logger)

	summary := runner.Run(ctx, sources, migrate.Options{
		DryRun:       *dryRun,
		Truncate:     *truncate,
		SkipExisting: *skipExisting,
		TargetTable:  *table,
		BatchSize:    *batchSize,
	})

	summary.Render(os.Stdout)
	report.Render(os.Stdout, collector)

	logger.Info("run finished",
		"success", summary.Success,
		"tables", summary.TablesProcessed,
		"inserted", summary.TotalInserted,
		"skipped", summary.TotalSkipped,
		"duration", summary.Duration,
	)

	if !summary.Success {
		return 1
	}
	return 0
}

// registerSource parses a "table=url" mapping and upserts it.
func registerSource(ctx context.Context, db store.DBTX, mapping string) error {
	name, url, ok := strings.Cut(mapping, "=")
	if !ok || name == "" || url == "" {
		return fmt.Errorf("invalid mapping %q, expected table=url", mapping)
	}
	if !store.ValidTableName(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return store.UpsertSource(ctx, db, store.Source{TableName: name, SourceURL: url})
}

// Package main is the place importer. It reads an Overpass JSON or GeoJSON
// export from a local file or an S3-compatible bucket and upserts the places
// into Postgres keyed on osm_id.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/onnwee/vibemap/internal/config"
	"github.com/onnwee/vibemap/internal/db"
	"github.com/onnwee/vibemap/internal/middleware"
	"github.com/onnwee/vibemap/internal/objectstore"
	"github.com/onnwee/vibemap/internal/place"
	"github.com/onnwee/vibemap/migrations"
)

// DefaultBatchSize is the number of rows per upsert statement.
const DefaultBatchSize = 500

// ErrNoSource is returned when no input is given.
var ErrNoSource = errors.New("an input source is required: -source path/to/export.json or s3://bucket/key")

// Summary reports what an import did.
type Summary struct {
	Format     string
	Total      int // elements or features in the payload
	Skipped    int // rejected by validation
	Duplicates int // dropped because the osm_id repeated
	Inserted   int
	Updated    int
	Batches    int
}

func main() {
	source := flag.String("source", "", "input file path or s3://bucket/key (Overpass JSON or GeoJSON)")
	configPath := flag.String("config", "", "path to YAML config file (env vars take precedence)")
	batchSize := flag.Int("batch", DefaultBatchSize, "rows per upsert batch")
	dryRun := flag.Bool("dry-run", false, "parse and validate only; do not write to the database")
	flag.Parse()

	cfg, errs := config.Load(*configPath)
	env := config.DefaultEnv
	if cfg != nil {
		env = cfg.Env
	}
	logger := middleware.NewLogger(env)
	slog.SetDefault(logger)

	if len(errs) > 0 {
		for _, err := range errs {
			logger.Error("invalid configuration", "error", err)
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := run(ctx, cfg, *source, *batchSize, *dryRun, logger)
	if err != nil {
		logger.Error("import failed", "error", err)
		os.Exit(1)
	}
	logger.Info("import complete",
		"format", summary.Format,
		"total", summary.Total,
		"skipped", summary.Skipped,
		"duplicates", summary.Duplicates,
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"batches", summary.Batches,
		"dry_run", *dryRun)
}

func run(ctx context.Context, cfg *config.Config, source string, batchSize int, dryRun bool, logger *slog.Logger) (*Summary, error) {
	if source == "" {
		return nil, ErrNoSource
	}

	store, err := objectstore.New(objectstore.Config{
		BucketName:      cfg.R2BucketName,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		Endpoint:        cfg.R2Endpoint,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	data, err := store.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}

	if dryRun {
		return importPlaces(ctx, nil, data, batchSize, logger)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required unless -dry-run is set")
	}
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := db.Migrate(ctx, conn, migrations.FS, logger); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return importPlaces(ctx, place.NewPostgresRepository(conn, logger), data, batchSize, logger)
}

// importPlaces parses data and upserts the valid rows in batches. A nil repo
// parses and validates only.
func importPlaces(ctx context.Context, repo place.Repository, data []byte, batchSize int, logger *slog.Logger) (*Summary, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	parsed, err := place.ParseImport(data)
	if err != nil {
		return nil, err
	}
	places, duplicates := place.DedupeByOSMID(parsed.Places)

	summary := &Summary{
		Format:     parsed.Format,
		Total:      parsed.Total,
		Skipped:    parsed.Skipped,
		Duplicates: duplicates,
	}
	logger.InfoContext(ctx, "parsed import payload",
		"format", parsed.Format,
		"total", parsed.Total,
		"valid", len(places),
		"skipped", parsed.Skipped,
		"duplicates", duplicates)

	if repo == nil {
		return summary, nil
	}

	start := time.Now()
	for offset := 0; offset < len(places); offset += batchSize {
		end := min(offset+batchSize, len(places))
		result, err := repo.UpsertBatch(ctx, places[offset:end])
		if err != nil {
			return summary, fmt.Errorf("batch starting at row %d: %w", offset, err)
		}
		summary.Batches++
		summary.Inserted += result.Inserted
		summary.Updated += result.Updated
		logger.InfoContext(ctx, "upserted batch",
			"batch", summary.Batches,
			"rows", end-offset,
			"progress", fmt.Sprintf("%d/%d", end, len(places)))
	}
	logger.InfoContext(ctx, "upsert finished",
		"batches", summary.Batches,
		"duration_ms", time.Since(start).Milliseconds())

	return summary, nil
}

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/catalog/detector"
	"catalog-ingest/internal/catalog/discovery"
	"catalog-ingest/internal/components/telemetry"
	"catalog-ingest/internal/db"
	"catalog-ingest/internal/renderer"
	"catalog-ingest/pkg/migrations"
)

func openDB(ctx context.Context, config Config) (*sql.DB, error) {
	return migrations.OpenAndMigrate(ctx, config.Database, db.Schema)
}

func newRenderer(config Config, tel telemetry.API) *renderer.HTTPRenderer {
	return renderer.NewHTTPRenderer(renderer.Options{
		Timeout:           time.Duration(config.Renderer.TimeoutSeconds) * time.Second,
		RequestsPerSecond: config.Renderer.RequestsPerSecond,
		UserAgent:         config.Renderer.UserAgent,
		CloudflareBypass:  config.Renderer.CloudflareBypass,
		DumpDir:           config.Renderer.DumpDir,
		Retries:           config.Renderer.Retries,
	}, tel)
}

func newDetector(r renderer.Renderer, config Config, tel telemetry.API) detector.Detector {
	return detector.NewDetector(r, detector.Options{
		PageTimeout:   time.Duration(config.Renderer.TimeoutSeconds) * time.Second,
		ProbeSuffixes: config.Detector.ProbeSuffixes,
	}, tel)
}

// resolvePrograms returns the configured program list, or the discovered one
// when discovery is enabled or nothing is configured.
func resolvePrograms(ctx context.Context, r renderer.Renderer, config Config) ([]catalog.Program, error) {
	if !config.Catalog.Discover && len(config.Catalog.Programs) > 0 {
		return config.Catalog.Programs, nil
	}
	found, err := discovery.Discover(ctx, r, config.Catalog.IndexUrl())
	if err != nil {
		return nil, fmt.Errorf("discover programs: %w", err)
	}
	return found, nil
}

// Command seed loads a YAML fixture file into the SQLite source tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/garyjia/approvals-hub/internal/config"
	"github.com/garyjia/approvals-hub/internal/container"
	"github.com/garyjia/approvals-hub/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	fixturesPath := flag.String("fixtures", "configs/fixtures.yaml", "path to the fixture file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(context.Background(), cfg, *fixturesPath, logger); err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, fixturesPath string, logger *zap.Logger) error {
	fixtures, err := LoadFixtures(fixturesPath)
	if err != nil {
		return err
	}
	records, err := fixtures.Records()
	if err != nil {
		return err
	}

	db, err := container.ProvideDatabase(&cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Conn.Close()

	sources, err := container.ProvideSources(db.TransactionMgr, logger)
	if err != nil {
		return err
	}

	if err := db.TransactionMgr.WithTransaction(ctx, func(ctx context.Context) error {
		return insertAll(ctx, sources, records)
	}); err != nil {
		return fmt.Errorf("failed to insert fixtures: %w", err)
	}

	logger.Info("Fixtures loaded",
		zap.String("path", fixturesPath),
		zap.Int("records", records.Total()))
	return nil
}

// Package container provides dependency injection and lifecycle management
// for the approvals hub following Clean Architecture principles.
package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/approvals-hub/internal/application/action"
	"github.com/garyjia/approvals-hub/internal/application/eventbus"
	"github.com/garyjia/approvals-hub/internal/application/port"
	"github.com/garyjia/approvals-hub/internal/application/service"
	"github.com/garyjia/approvals-hub/internal/config"
	"github.com/garyjia/approvals-hub/internal/infrastructure/persistence/repository"
	"github.com/garyjia/approvals-hub/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/approvals-hub/internal/worker"
	"github.com/garyjia/approvals-hub/pkg/database"
	"github.com/garyjia/approvals-hub/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn           *database.DB
	TransactionMgr *sqlite.DB
}

// ActionBundle holds the action pipeline.
type ActionBundle struct {
	Bus         eventbus.Bus
	Dispatcher  action.Dispatcher
	Coordinator action.Coordinator
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Queue   service.QueueService
	Claims  service.ClaimService
	History *service.HistoryRecorder
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	conn, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	applied, err := database.NewMigrator(conn, logger).Run(database.Migrations())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("Migrations checked", zap.Int("applied", applied))

	return &DatabaseBundle{
		Conn:           conn,
		TransactionMgr: sqlite.NewDB(conn.DB, logger),
	}, nil
}

// ProvideSources creates the seven SQLite source adapters.
func ProvideSources(db *sqlite.DB, logger *zap.Logger) (*repository.SQLiteSources, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return repository.NewSQLiteSources(db, logger), nil
}

// ProvideActions wires the event bus, dispatcher and bulk coordinator.
func ProvideActions(cfg *config.BulkConfig, sources port.Sources, permissions port.PermissionProvider, logger *zap.Logger) (*ActionBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bulk config is required")
	}
	kv := utils.NewKVLogger(logger)

	bus := eventbus.New(eventbus.WithLogger(kv))

	disp := action.NewDispatcher(sources.Mutators(),
		action.WithPermissions(permissions),
		action.WithActionTimeout(cfg.ActionTimeout),
		action.WithDispatchLogger(kv),
	)

	coord := action.NewCoordinator(disp,
		action.WithConcurrency(cfg.Concurrency),
		action.WithPermissionDeniedLimit(cfg.PermissionDeniedLimit),
		action.WithEventBus(bus),
		action.WithCoordinatorLogger(kv),
	)

	return &ActionBundle{Bus: bus, Dispatcher: disp, Coordinator: coord}, nil
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	QueueCfg    *config.QueueConfig
	Sources     port.Sources
	Permissions port.PermissionProvider
	Actions     *ActionBundle
	HistoryRepo port.ActionHistoryRepository
	Logger      *zap.Logger
}

// ProvideServices creates the application services and subscribes the
// history recorder to action outcomes.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Actions == nil || deps.QueueCfg == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	kv := utils.NewKVLogger(deps.Logger)

	queueService := service.NewQueueService(deps.Sources, deps.Permissions, kv,
		service.WithFetchTimeout(deps.QueueCfg.FetchTimeout),
		service.WithProcessedWindow(deps.QueueCfg.ProcessedWindow),
	)

	claims := service.NewClaimService(deps.Sources.PerDiems, deps.Actions.Coordinator, kv)

	recorder := service.NewHistoryRecorder(deps.HistoryRepo, kv)
	recorder.Register(deps.Actions.Bus)

	return &ServiceBundle{
		Queue:   queueService,
		Claims:  claims,
		History: recorder,
	}, nil
}

// ProvideWorkers creates the worker manager and its workers.
func ProvideWorkers(cfg *config.RefresherConfig, queueService service.QueueService, logger *zap.Logger) (*worker.Manager, *worker.SummaryRefresher) {
	manager := worker.NewManager(logger)
	if cfg == nil || !cfg.Enabled {
		return manager, nil
	}

	refresher := worker.NewSummaryRefresher(queueService, cfg.Interval, logger)
	manager.Register(refresher)
	return manager, refresher
}

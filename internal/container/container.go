package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/approvals-hub/internal/application/port"
	"github.com/garyjia/approvals-hub/internal/config"
	"github.com/garyjia/approvals-hub/internal/infrastructure/export"
	"github.com/garyjia/approvals-hub/internal/infrastructure/permission"
	"github.com/garyjia/approvals-hub/internal/infrastructure/persistence/repository"
	"github.com/garyjia/approvals-hub/internal/infrastructure/persistence/sqlite"
	httpapi "github.com/garyjia/approvals-hub/internal/interfaces/http"
	"github.com/garyjia/approvals-hub/internal/worker"
	"github.com/garyjia/approvals-hub/pkg/database"
	"github.com/garyjia/approvals-hub/pkg/utils"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure - Data
	conn        *database.DB
	db          *sqlite.DB
	sources     *repository.SQLiteSources
	historyRepo *repository.HistoryRepository
	permissions port.PermissionProvider

	// Application
	actions  *ActionBundle
	services *ServiceBundle

	// Workers
	workers   *worker.Manager
	refresher *worker.SummaryRefresher

	// Interfaces
	server *httpapi.Server

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and begins background processing.
// Components are initialized in dependency order:
// 1. Database, migrations and source adapters
// 2. Permissions, event bus, dispatcher and coordinator
// 3. Application services and history recording
// 4. Workers
// 5. HTTP server (not listening until the caller starts it)
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and sources
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	// Step 2: Initialize the action pipeline
	if err := c.initActions(); err != nil {
		return c.abort(fmt.Errorf("failed to initialize actions: %w", err))
	}
	c.logger.Info("Action pipeline initialized")

	// Step 3: Initialize application services
	if err := c.initServices(); err != nil {
		return c.abort(fmt.Errorf("failed to initialize services: %w", err))
	}
	c.logger.Info("Application services initialized")

	// Step 4: Initialize and start workers
	if err := c.initWorkers(); err != nil {
		return c.abort(fmt.Errorf("failed to initialize workers: %w", err))
	}
	c.logger.Info("Workers initialized and started", zap.Int("count", c.workers.Count()))

	// Step 5: Build the HTTP server
	c.initServer()

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// abort releases what a failed Start already opened
func (c *Container) abort(err error) error {
	if c.actions != nil {
		_ = c.actions.Bus.Close()
		c.actions = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.cancel()
	return err
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Cancel context to signal all goroutines
	if c.cancel != nil {
		c.cancel()
	}

	// Step 1: Stop the HTTP server (reverse of step 5)
	if c.server != nil {
		if err := c.server.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop http server: %w", err))
		}
	}

	// Step 2: Stop workers (reverse of step 4)
	if c.workers != nil {
		c.workers.StopAll()
		c.logger.Info("Workers stopped")
	}

	// Step 3: Services don't need explicit cleanup (reverse of step 3)

	// Step 4: Drain the event bus (reverse of step 2)
	if c.actions != nil {
		if err := c.actions.Bus.Close(); err != nil {
			c.logger.Error("Failed to close event bus", zap.Error(err))
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		} else {
			c.logger.Info("Event bus closed")
		}
	}

	// Step 5: Close database (reverse of step 1)
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, h ComponentHealth) {
		status.Components[name] = h
		if !h.Healthy {
			status.Overall = false
		}
	}

	// Check database
	switch {
	case c.conn == nil:
		set("database", ComponentHealth{Message: "not initialized"})
	default:
		if err := c.conn.PingContext(ctx); err != nil {
			set("database", ComponentHealth{Message: fmt.Sprintf("ping failed: %v", err)})
		} else {
			set("database", ComponentHealth{Healthy: true})
		}
	}

	// Check action pipeline
	if c.actions != nil {
		set("actions", ComponentHealth{Healthy: true})
	} else {
		set("actions", ComponentHealth{Message: "not initialized"})
	}

	// Check workers
	if c.workers != nil {
		set("workers", ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("worker count: %d", c.workers.Count()),
		})
	} else {
		set("workers", ComponentHealth{Message: "not initialized"})
	}

	// Report the last background refresh; degraded sources do not fail health
	if c.refresher != nil {
		snap, err := c.refresher.Latest()
		switch {
		case err != nil:
			set("queue", ComponentHealth{Message: fmt.Sprintf("last refresh failed: %v", err)})
		case snap == nil:
			set("queue", ComponentHealth{Healthy: true, Message: "not refreshed yet"})
		case snap.Degraded():
			set("queue", ComponentHealth{Healthy: true, Message: fmt.Sprintf("degraded sources: %v", snap.DegradedSources())})
		default:
			set("queue", ComponentHealth{Healthy: true})
		}
	}

	return status
}

// initDatabase opens the database and creates the source adapters.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.conn = dbBundle.Conn
	c.db = dbBundle.TransactionMgr

	sources, err := ProvideSources(c.db, c.logger)
	if err != nil {
		_ = c.conn.Close()
		return err
	}
	c.sources = sources
	c.historyRepo = repository.NewHistoryRepository(c.db, c.logger)
	return nil
}

// initActions wires permissions, event bus, dispatcher and coordinator.
func (c *Container) initActions() error {
	c.permissions = permission.FromConfig(c.config.Permissions)

	actions, err := ProvideActions(&c.config.Bulk, c.sources.Ports(), c.permissions, c.logger)
	if err != nil {
		return err
	}
	c.actions = actions
	return nil
}

// initServices creates the application services.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		QueueCfg:    &c.config.Queue,
		Sources:     c.sources.Ports(),
		Permissions: c.permissions,
		Actions:     c.actions,
		HistoryRepo: c.historyRepo,
		Logger:      c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

// initWorkers creates and starts all background workers.
func (c *Container) initWorkers() error {
	c.workers, c.refresher = ProvideWorkers(&c.config.Refresher, c.services.Queue, c.logger)

	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	return nil
}

// initServer builds the HTTP adapter over the services.
func (c *Container) initServer() {
	kv := utils.NewKVLogger(c.logger)
	handlers := httpapi.NewHandlers(
		c.services.Queue,
		c.services.Claims,
		c.services.History,
		export.NewXLSXExporter(c.config.Export.SheetName, c.logger),
		c.conn,
		kv,
	)
	c.server = httpapi.NewServer(httpapi.ServerConfig{
		Host:         c.config.Server.Host,
		Port:         c.config.Server.Port,
		Mode:         c.config.Server.Mode,
		ReadTimeout:  c.config.Server.ReadTimeout,
		WriteTimeout: c.config.Server.WriteTimeout,
	}, handlers, kv)
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Sources returns the concrete source adapters.
func (c *Container) Sources() *repository.SQLiteSources {
	return c.sources
}

// Actions returns the action pipeline.
func (c *Container) Actions() *ActionBundle {
	return c.actions
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.Manager {
	return c.workers
}

// Server returns the HTTP server.
func (c *Container) Server() *httpapi.Server {
	return c.server
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

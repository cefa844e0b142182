package store

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/gorm"
)

// PluginModule owns the SQLite connection and exposes the Store to modules
// that declare it as a plugin. Plugins start first and stop last.
type PluginModule struct {
	container types.ServiceContainer
	db        *gorm.DB
	store     *Store
	dbPath    string
	debug     bool
	logger    types.Logger
}

// Compile-time interface checks.
var (
	_ mono.PluginModule          = (*PluginModule)(nil)
	_ mono.HealthCheckableModule = (*PluginModule)(nil)
)

// NewPluginModule creates a store plugin for the database at dbPath.
// debug enables gorm SQL logging.
func NewPluginModule(dbPath string, debug bool, logger types.Logger) *PluginModule {
	return &PluginModule{
		dbPath: dbPath,
		debug:  debug,
		logger: logger,
	}
}

// Name returns the module name.
func (m *PluginModule) Name() string {
	return "store"
}

// Start opens the database and runs migrations.
func (m *PluginModule) Start(_ context.Context) error {
	m.logger.Info("Connecting to SQLite database", "path", m.dbPath)

	db, err := Open(m.dbPath, m.debug)
	if err != nil {
		return err
	}
	m.db = db

	m.store = NewStore(db)
	if err := m.store.Migrate(); err != nil {
		return err
	}

	m.logger.Info("Store plugin started")
	return nil
}

// Stop closes the database connection.
func (m *PluginModule) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	m.logger.Info("Store plugin stopped")
	return nil
}

// SetContainer sets the service container for this plugin.
func (m *PluginModule) SetContainer(container types.ServiceContainer) {
	m.container = container
}

// Container returns the service container for this plugin.
func (m *PluginModule) Container() types.ServiceContainer {
	return m.container
}

// Port returns the store. It is nil until the plugin has started.
func (m *PluginModule) Port() *Store {
	return m.store
}

// Health pings the database.
func (m *PluginModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}

package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
)

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// PluginModule owns the Redis client backing the sequence allocator.
type PluginModule struct {
	container types.ServiceContainer
	client    *redis.Client
	allocator *RedisAllocator
	cfg       Config
	logger    types.Logger
}

// Compile-time interface checks.
var (
	_ mono.PluginModule          = (*PluginModule)(nil)
	_ mono.HealthCheckableModule = (*PluginModule)(nil)
)

// NewPluginModule creates a sequence plugin with the given configuration.
func NewPluginModule(cfg Config, logger types.Logger) *PluginModule {
	return &PluginModule{
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the module name.
func (m *PluginModule) Name() string {
	return "sequence"
}

// Start connects to Redis and verifies the connection.
func (m *PluginModule) Start(ctx context.Context) error {
	m.client = redis.NewClient(&redis.Options{
		Addr:         m.cfg.Addr,
		Password:     m.cfg.Password,
		DB:           m.cfg.DB,
		PoolSize:     50,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	m.allocator = NewRedisAllocator(m.client, m.cfg.Prefix)
	m.logger.Info("Sequence plugin started", "redis_addr", m.cfg.Addr, "prefix", m.allocator.prefix)
	return nil
}

// Stop closes the Redis connection.
func (m *PluginModule) Stop(_ context.Context) error {
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			m.logger.Error("Error closing Redis connection", "error", err)
			return fmt.Errorf("failed to close Redis connection: %w", err)
		}
	}
	m.logger.Info("Sequence plugin stopped")
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

// Port returns the allocator. It is nil until the plugin has started.
func (m *PluginModule) Port() *RedisAllocator {
	return m.allocator
}

// Health pings Redis.
func (m *PluginModule) Health(ctx context.Context) mono.HealthStatus {
	if m.client == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "redis client not initialized",
		}
	}
	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("redis ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"redis_addr": m.cfg.Addr,
			"db":         m.cfg.DB,
		},
	}
}

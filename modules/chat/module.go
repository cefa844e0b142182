package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/room-chat-demo/events"
	"github.com/example/room-chat-demo/modules/sequence"
	"github.com/example/room-chat-demo/modules/store"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Default names of the persisted room and user lists.
const (
	DefaultRoomList = "rooms"
	DefaultUserList = "users"
)

// Config configures the chat module.
type Config struct {
	RoomListName string
	UserListName string
	StoreTimeout time.Duration
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		RoomListName: DefaultRoomList,
		UserListName: DefaultUserList,
		StoreTimeout: 5 * time.Second,
	}
}

// Module is the chat core exposed as a mono module. It owns the global user
// directory and the room directory and serves them over request-reply
// services.
type Module struct {
	cfg Config

	storePlugin    *store.PluginModule
	sequencePlugin *sequence.PluginModule

	persistence Persistence
	index       RoomIndex
	allocator   SequenceAllocator

	users    *UserDirectory
	rooms    *RoomDirectory
	eventBus mono.EventBus
	logger   types.Logger
	now      func() time.Time
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.UsePluginModule       = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ RoomListener               = (*Module)(nil)
)

// NewModule creates a new chat module.
func NewModule(cfg Config, logger types.Logger) *Module {
	def := DefaultConfig()
	if cfg.RoomListName == "" {
		cfg.RoomListName = def.RoomListName
	}
	if cfg.UserListName == "" {
		cfg.UserListName = def.UserListName
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = def.StoreTimeout
	}
	return &Module{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// SetPlugin receives the store and sequence plugins from the framework.
// This is called before Start() when the module implements UsePluginModule.
func (m *Module) SetPlugin(alias string, plugin mono.PluginModule) {
	switch alias {
	case "store":
		p, ok := plugin.(*store.PluginModule)
		if !ok {
			m.logger.Error("Invalid plugin type for store", "alias", alias, "expected", "*store.PluginModule")
			return
		}
		m.storePlugin = p
	case "sequence":
		p, ok := plugin.(*sequence.PluginModule)
		if !ok {
			m.logger.Error("Invalid plugin type for sequence", "alias", alias, "expected", "*sequence.PluginModule")
			return
		}
		m.sequencePlugin = p
	default:
		return
	}
	m.logger.Info("Received plugin", "alias", alias)
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageSentV1.ToBase(),
		events.MessageReceivedV1.ToBase(),
		events.RoomCreatedV1.ToBase(),
		events.MemberRegisteredV1.ToBase(),
	}
}

// RegisterServices registers request-reply services in the service container.
// The framework prefixes service names with "services.chat.".
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-room", json.Unmarshal, json.Marshal, m.createRoom,
	); err != nil {
		return fmt.Errorf("failed to register create-room service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "remove-room", json.Unmarshal, json.Marshal, m.removeRoom,
	); err != nil {
		return fmt.Errorf("failed to register remove-room service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "get-room", json.Unmarshal, json.Marshal, m.getRoom,
	); err != nil {
		return fmt.Errorf("failed to register get-room service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "list-rooms", json.Unmarshal, json.Marshal, m.listRooms,
	); err != nil {
		return fmt.Errorf("failed to register list-rooms service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "send-message", json.Unmarshal, json.Marshal, m.sendMessage,
	); err != nil {
		return fmt.Errorf("failed to register send-message service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "retrieve-messages", json.Unmarshal, json.Marshal, m.retrieveMessages,
	); err != nil {
		return fmt.Errorf("failed to register retrieve-messages service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "find-message", json.Unmarshal, json.Marshal, m.findMessage,
	); err != nil {
		return fmt.Errorf("failed to register find-message service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "register-member", json.Unmarshal, json.Marshal, m.registerMember,
	); err != nil {
		return fmt.Errorf("failed to register register-member service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "deregister-member", json.Unmarshal, json.Marshal, m.deregisterMember,
	); err != nil {
		return fmt.Errorf("failed to register deregister-member service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "register-user", json.Unmarshal, json.Marshal, m.registerUser,
	); err != nil {
		return fmt.Errorf("failed to register register-user service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "deregister-user", json.Unmarshal, json.Marshal, m.deregisterUser,
	); err != nil {
		return fmt.Errorf("failed to register deregister-user service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "get-user", json.Unmarshal, json.Marshal, m.getUser,
	); err != nil {
		return fmt.Errorf("failed to register get-user service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "list-users", json.Unmarshal, json.Marshal, m.listUsers,
	); err != nil {
		return fmt.Errorf("failed to register list-users service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "block-user", json.Unmarshal, json.Marshal, m.blockUser,
	); err != nil {
		return fmt.Errorf("failed to register block-user service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "unblock-user", json.Unmarshal, json.Marshal, m.unblockUser,
	); err != nil {
		return fmt.Errorf("failed to register unblock-user service: %w", err)
	}

	m.logger.Info("Registered chat services",
		"services", "create-room, remove-room, get-room, list-rooms, send-message, retrieve-messages, "+
			"find-message, register-member, deregister-member, register-user, deregister-user, "+
			"get-user, list-users, block-user, unblock-user")
	return nil
}

// Start resolves the backends and restores the user and room directories.
func (m *Module) Start(ctx context.Context) error {
	if err := m.resolveBackends(); err != nil {
		return err
	}
	if m.eventBus == nil {
		m.logger.Warn("EventBus not set, events will not be published")
	}

	m.users = NewUserDirectory(m.cfg.UserListName, m.persistence, m.logger, m.cfg.StoreTimeout)
	if err := m.users.Load(ctx); err != nil {
		return fmt.Errorf("failed to load user directory: %w", err)
	}

	m.rooms = NewRoomDirectory(m.cfg.RoomListName, m.index, RoomDeps{
		Store:    m.persistence,
		Sequence: m.allocator,
		Users:    m.users,
		Listener: m,
		Logger:   m.logger,
		Timeout:  m.cfg.StoreTimeout,
		Now:      m.now,
	})
	if err := m.rooms.Load(ctx); err != nil {
		return fmt.Errorf("failed to load room directory: %w", err)
	}

	m.logger.Info("Chat module started",
		"rooms", len(m.rooms.Names()),
		"users", m.users.Len(),
		"sequence_backend", fmt.Sprintf("%T", m.allocator))
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Chat module stopped")
	return nil
}

// Health reports whether the directories are loaded.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.rooms == nil || m.users == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "chat directories not loaded",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"rooms": len(m.rooms.Names()),
			"users": m.users.Len(),
		},
	}
}

// Rooms returns the room directory.
func (m *Module) Rooms() *RoomDirectory {
	return m.rooms
}

// Users returns the global user directory.
func (m *Module) Users() *UserDirectory {
	return m.users
}

// useBackends sets the collaborators directly instead of through plugins.
func (m *Module) useBackends(p Persistence, index RoomIndex, alloc SequenceAllocator) {
	m.persistence = p
	m.index = index
	m.allocator = alloc
}

// resolveBackends prefers the Redis allocator and falls back to the SQL
// counter of the store.
func (m *Module) resolveBackends() error {
	if m.persistence == nil {
		if m.storePlugin == nil {
			return fmt.Errorf("required plugin 'store' not registered")
		}
		st := m.storePlugin.Port()
		if st == nil {
			return fmt.Errorf("store plugin not started")
		}
		m.persistence = st
		m.index = st
		if m.allocator == nil && m.sequencePlugin == nil {
			m.allocator = st
		}
	}
	if m.allocator == nil && m.sequencePlugin != nil {
		if a := m.sequencePlugin.Port(); a != nil {
			m.allocator = a
		}
	}
	if m.allocator == nil {
		return fmt.Errorf("no sequence allocator available")
	}
	return nil
}

package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/room-chat-demo/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Module consumes chat events and keeps per-room activity counters.
type Module struct {
	store  *Store
	logger types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
)

// NewModule creates a new activity module.
func NewModule(logger types.Logger) *Module {
	return &Module{
		store:  NewStore(),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "activity"
}

// RegisterEventConsumers registers event handlers for chat events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomCreatedV1, m.handleRoomCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MemberRegisteredV1, m.handleMemberRegistered, m,
	); err != nil {
		return fmt.Errorf("failed to register MemberRegistered consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageReceivedV1, m.handleMessageReceived, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageReceived consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", []string{"RoomCreated.v1", "MemberRegistered.v1", "MessageSent.v1", "MessageReceived.v1"})
	return nil
}

func (m *Module) handleRoomCreated(_ context.Context, event events.RoomCreatedEvent, _ *mono.Msg) error {
	m.store.RecordRoomCreated(event.RoomName, event.RoomType, event.OwnerAlias, event.Timestamp)
	m.logger.Info("Recorded room creation", "room", event.RoomName, "type", event.RoomType)
	return nil
}

func (m *Module) handleMemberRegistered(_ context.Context, event events.MemberRegisteredEvent, _ *mono.Msg) error {
	m.store.RecordMemberJoined(event.RoomName, event.Timestamp)
	m.logger.Debug("Recorded member registration", "room", event.RoomName, "alias", event.Alias)
	return nil
}

func (m *Module) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	m.store.RecordSent(event.RoomName, event.SequenceNum, event.SentTime)
	m.logger.Debug("Recorded message sent", "room", event.RoomName, "sequence_num", event.SequenceNum)
	return nil
}

func (m *Module) handleMessageReceived(_ context.Context, event events.MessageReceivedEvent, _ *mono.Msg) error {
	m.store.RecordReceived(Delivery{
		RoomName:    event.RoomName,
		SequenceNum: event.SequenceNum,
		FromUser:    event.FromUser,
		ToUser:      event.ToUser,
		RecTime:     event.RecTime,
	})
	m.logger.Debug("Recorded message received", "room", event.RoomName, "sequence_num", event.SequenceNum)
	return nil
}

// Start initializes the activity module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Activity module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Activity module stopped")
	return nil
}

// Store returns the activity store.
func (m *Module) Store() *Store {
	return m.store
}

// RegisterServices registers this module's services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := container.RegisterRequestReplyService("get-activity-summary", m.handleGetSummary); err != nil {
		return fmt.Errorf("failed to register get-activity-summary service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "get-room-activity", json.Unmarshal, json.Marshal, m.getRoomActivity,
	); err != nil {
		return fmt.Errorf("failed to register get-room-activity service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "get-recent-deliveries", json.Unmarshal, json.Marshal, m.getRecentDeliveries,
	); err != nil {
		return fmt.Errorf("failed to register get-recent-deliveries service: %w", err)
	}

	m.logger.Info("Registered activity services",
		"services", []string{"get-activity-summary", "get-room-activity", "get-recent-deliveries"})
	return nil
}

// handleGetSummary handles get-activity-summary service requests.
func (m *Module) handleGetSummary(_ context.Context, _ *mono.Msg) ([]byte, error) {
	return json.Marshal(m.store.GetSummary())
}

func (m *Module) getRoomActivity(_ context.Context, req RoomActivityRequest, _ *mono.Msg) (RoomActivityResponse, error) {
	a, found := m.store.GetRoom(req.Room)
	if !found {
		return RoomActivityResponse{Found: false}, nil
	}
	return RoomActivityResponse{Found: true, Activity: &a}, nil
}

func (m *Module) getRecentDeliveries(_ context.Context, req RecentDeliveriesRequest, _ *mono.Msg) (RecentDeliveriesResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	d := m.store.RecentDeliveries(limit)
	return RecentDeliveriesResponse{Deliveries: d, Total: len(d)}, nil
}

package chat

import (
	"time"

	domain "github.com/example/room-chat-demo/domain/chat"
	"github.com/example/room-chat-demo/events"
	"github.com/google/uuid"
)

// MessageSent publishes a MessageSent event. Publishing is best-effort.
func (m *Module) MessageSent(msg domain.Message) {
	if m.eventBus == nil {
		return
	}
	p := msg.Properties
	event := events.MessageSentEvent{
		EventID:     uuid.New().String(),
		RoomName:    p.RoomName,
		FromUser:    p.FromUser,
		ToUser:      p.ToUser,
		SequenceNum: p.SequenceNum,
		BodyLength:  len(msg.Body),
		SentTime:    p.SentTime,
	}
	if err := events.MessageSentV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish MessageSent event", "room", p.RoomName, "error", err)
	}
}

// MessageReceived publishes a MessageReceived event.
func (m *Module) MessageReceived(msg domain.Message, by string) {
	if m.eventBus == nil {
		return
	}
	p := msg.Properties
	rec := m.now()
	if p.RecTime != nil {
		rec = *p.RecTime
	}
	event := events.MessageReceivedEvent{
		EventID:     uuid.New().String(),
		RoomName:    p.RoomName,
		FromUser:    p.FromUser,
		ToUser:      by,
		SequenceNum: p.SequenceNum,
		RecTime:     rec,
	}
	if err := events.MessageReceivedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish MessageReceived event", "room", p.RoomName, "error", err)
	}
}

func (m *Module) publishRoomCreated(room *Room) {
	if m.eventBus == nil {
		return
	}
	event := events.RoomCreatedEvent{
		EventID:    uuid.New().String(),
		RoomName:   room.Name(),
		RoomType:   room.Type().String(),
		OwnerAlias: room.Owner(),
		Timestamp:  time.Now(),
	}
	if err := events.RoomCreatedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish RoomCreated event", "room", room.Name(), "error", err)
	}
}

func (m *Module) publishMemberRegistered(roomName, alias string) {
	if m.eventBus == nil {
		return
	}
	event := events.MemberRegisteredEvent{
		EventID:   uuid.New().String(),
		RoomName:  roomName,
		Alias:     alias,
		Timestamp: time.Now(),
	}
	if err := events.MemberRegisteredV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish MemberRegistered event", "room", roomName, "error", err)
	}
}

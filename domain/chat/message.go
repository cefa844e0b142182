package chat

import (
	"fmt"
	"time"

	"github.com/go-monolith/mono/pkg/types"
)

// Placeholder values used when a message arrives without properties.
const (
	PlaceholderRoom  = "Auto generated properties"
	PlaceholderAlias = "Unknown"
)

// MessageProperties is the metadata carried by every message.
type MessageProperties struct {
	Type        MessageType `json:"mess_type"`
	RoomName    string      `json:"room_name"`
	FromUser    string      `json:"from_user"`
	ToUser      string      `json:"to_user"`
	SequenceNum int64       `json:"sequence_num"`
	SentTime    time.Time   `json:"sent_time"`
	RecTime     *time.Time  `json:"rec_time,omitempty"`
}

// NewMessageProperties returns properties with no sequence number and a sent
// time taken at the moment of the call.
func NewMessageProperties(typ MessageType, roomName, toUser, fromUser string) MessageProperties {
	return MessageProperties{
		Type:        typ,
		RoomName:    roomName,
		FromUser:    fromUser,
		ToUser:      toUser,
		SequenceNum: UnassignedSequence,
		SentTime:    time.Now(),
	}
}

// ToMap flattens the properties into string keys for storage and logging.
func (p MessageProperties) ToMap() map[string]any {
	var rec any
	if p.RecTime != nil {
		rec = *p.RecTime
	}
	return map[string]any{
		"mess_type":    int(p.Type),
		"sequence_num": p.SequenceNum,
		"room_name":    p.RoomName,
		"from_user":    p.FromUser,
		"to_user":      p.ToUser,
		"sent_time":    p.SentTime,
		"rec_time":     rec,
	}
}

func (p MessageProperties) String() string {
	rec := "-"
	if p.RecTime != nil {
		rec = p.RecTime.Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("room=%s type=%s seq=%d from=%s@%s to=%s@%s",
		p.RoomName, p.Type, p.SequenceNum,
		p.FromUser, p.SentTime.Format(time.RFC3339Nano), p.ToUser, rec)
}

// Message is a body plus its properties. Messages are never deleted; the only
// mutation after sending is the acknowledgment by the addressee.
type Message struct {
	RecordID   RecordID          `json:"id,omitempty"`
	Body       string            `json:"message"`
	Properties MessageProperties `json:"mess_props"`

	dirty bool
}

// NewMessage wraps body and props into an unsaved message. A nil props is
// tolerated: placeholder properties are generated and a warning is logged.
func NewMessage(logger types.Logger, body string, props *MessageProperties) *Message {
	if props == nil {
		if logger != nil {
			logger.Warn("No message properties supplied, auto populating placeholders",
				"body_len", len(body))
		}
		p := NewMessageProperties(MessageSent, PlaceholderRoom, PlaceholderAlias, PlaceholderAlias)
		props = &p
	}
	return &Message{
		Body:       body,
		Properties: *props,
		dirty:      true,
	}
}

// Dirty reports whether the message has changes not yet persisted.
func (m *Message) Dirty() bool { return m.dirty }

// MarkClean clears the dirty flag after a successful save.
func (m *Message) MarkClean() { m.dirty = false }

// MarkDirty flags the message as having unsaved changes.
func (m *Message) MarkDirty() { m.dirty = true }

// Received reports whether the addressee has observed the message.
func (m *Message) Received() bool { return m.Properties.RecTime != nil }

// Acknowledge records the first observation by the addressee. It returns false
// and changes nothing when the message was already received.
func (m *Message) Acknowledge(at time.Time) bool {
	if m.Properties.RecTime != nil {
		return false
	}
	m.Properties.RecTime = &at
	m.Properties.Type = MessageReceived
	m.dirty = true
	return true
}

// Snapshot returns a copy that does not alias m's receive time.
func (m *Message) Snapshot() Message {
	c := *m
	if m.Properties.RecTime != nil {
		t := *m.Properties.RecTime
		c.Properties.RecTime = &t
	}
	return c
}

// Serialize returns the body with its nested property map.
func (m *Message) Serialize() map[string]any {
	return map[string]any{
		"message":    m.Body,
		"mess_props": m.Properties.ToMap(),
	}
}

func (m *Message) String() string {
	return fmt.Sprintf("Message(%q, %s)", m.Body, m.Properties)
}

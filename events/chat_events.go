package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// MessageSentEvent is emitted after a message is durably appended to a room.
type MessageSentEvent struct {
	EventID     string    `json:"event_id"`
	RoomName    string    `json:"room_name"`
	FromUser    string    `json:"from_user"`
	ToUser      string    `json:"to_user"`
	SequenceNum int64     `json:"sequence_num"`
	BodyLength  int       `json:"body_length"`
	SentTime    time.Time `json:"sent_time"`
}

// MessageReceivedEvent is emitted when the addressee first retrieves a message.
type MessageReceivedEvent struct {
	EventID     string    `json:"event_id"`
	RoomName    string    `json:"room_name"`
	FromUser    string    `json:"from_user"`
	ToUser      string    `json:"to_user"`
	SequenceNum int64     `json:"sequence_num"`
	RecTime     time.Time `json:"rec_time"`
}

// RoomCreatedEvent is emitted when a room is declared.
type RoomCreatedEvent struct {
	EventID    string    `json:"event_id"`
	RoomName   string    `json:"room_name"`
	RoomType   string    `json:"room_type"`
	OwnerAlias string    `json:"owner_alias"`
	Timestamp  time.Time `json:"timestamp"`
}

// MemberRegisteredEvent is emitted when an alias joins a room's member list.
type MemberRegisteredEvent struct {
	EventID   string    `json:"event_id"`
	RoomName  string    `json:"room_name"`
	Alias     string    `json:"alias"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the chat domain.
var (
	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"chat",
		"MessageSent",
		"v1",
	)

	MessageReceivedV1 = helper.EventDefinition[MessageReceivedEvent](
		"chat",
		"MessageReceived",
		"v1",
	)

	RoomCreatedV1 = helper.EventDefinition[RoomCreatedEvent](
		"chat",
		"RoomCreated",
		"v1",
	)

	MemberRegisteredV1 = helper.EventDefinition[MemberRegisteredEvent](
		"chat",
		"MemberRegistered",
		"v1",
	)
)

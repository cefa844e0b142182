package chat

import (
	"fmt"
	"slices"
	"time"
)

// MessageType is the delivery state of a message.
type MessageType int

const (
	MessageSent     MessageType = 0
	MessageReceived MessageType = 1
)

// String returns the lowercase name of the message type.
func (t MessageType) String() string {
	switch t {
	case MessageSent:
		return "sent"
	case MessageReceived:
		return "received"
	default:
		return fmt.Sprintf("MessageType(%d)", int(t))
	}
}

// RoomType controls who may send into a room.
type RoomType int

const (
	RoomPublic  RoomType = 100
	RoomPrivate RoomType = 200
)

// String returns the lowercase name of the room type.
func (t RoomType) String() string {
	switch t {
	case RoomPublic:
		return "public"
	case RoomPrivate:
		return "private"
	default:
		return fmt.Sprintf("RoomType(%d)", int(t))
	}
}

// ParseRoomType converts "public" or "private" into a RoomType.
// An empty string yields RoomPublic.
func ParseRoomType(s string) (RoomType, error) {
	switch s {
	case "", "public":
		return RoomPublic, nil
	case "private":
		return RoomPrivate, nil
	default:
		return 0, fmt.Errorf("unknown room type %q", s)
	}
}

// UnassignedSequence marks a message that has no sequence number yet.
const UnassignedSequence int64 = -1

// RecordID identifies a persisted message record.
type RecordID uint64

// RoomMetadata is the durable description of a room, separate from its log.
type RoomMetadata struct {
	Name       string    `json:"room_name"`
	Type       RoomType  `json:"room_type"`
	OwnerAlias string    `json:"owner_alias"`
	CreateTime time.Time `json:"create_time"`
	ModifyTime time.Time `json:"modify_time"`
}

// ChatUser is a registered alias together with its block list.
type ChatUser struct {
	Alias        string    `json:"alias"`
	UserID       string    `json:"user_id,omitempty"`
	BlockedUsers []string  `json:"blocked_users"`
	Removed      bool      `json:"removed"`
	CreateTime   time.Time `json:"create_time"`
	ModifyTime   time.Time `json:"modify_time"`

	dirty bool
}

// NewChatUser creates an unsaved user stamped with the given time.
func NewChatUser(alias string, now time.Time) *ChatUser {
	return &ChatUser{
		Alias:        alias,
		BlockedUsers: []string{},
		CreateTime:   now,
		ModifyTime:   now,
		dirty:        true,
	}
}

// Dirty reports whether the user has unsaved changes.
func (u *ChatUser) Dirty() bool { return u.dirty }

// MarkClean clears the dirty flag after a successful save.
func (u *ChatUser) MarkClean() { u.dirty = false }

// MarkDirty flags the user as having unsaved changes.
func (u *ChatUser) MarkDirty() { u.dirty = true }

// IsBlocked reports whether messages from alias are filtered for this user.
func (u *ChatUser) IsBlocked(alias string) bool {
	return slices.Contains(u.BlockedUsers, alias)
}

// Block adds alias to the block list. It returns false if it was already there.
func (u *ChatUser) Block(alias string, now time.Time) bool {
	if u.IsBlocked(alias) {
		return false
	}
	u.BlockedUsers = append(u.BlockedUsers, alias)
	u.ModifyTime = now
	u.dirty = true
	return true
}

// Unblock removes alias from the block list. It returns false if it was absent.
func (u *ChatUser) Unblock(alias string, now time.Time) bool {
	i := slices.Index(u.BlockedUsers, alias)
	if i < 0 {
		return false
	}
	u.BlockedUsers = slices.Delete(u.BlockedUsers, i, i+1)
	u.ModifyTime = now
	u.dirty = true
	return true
}

// Clone returns a deep copy that shares no slices with u.
func (u *ChatUser) Clone() *ChatUser {
	c := *u
	c.BlockedUsers = slices.Clone(u.BlockedUsers)
	if c.BlockedUsers == nil {
		c.BlockedUsers = []string{}
	}
	return &c
}

func (u *ChatUser) String() string {
	return fmt.Sprintf("User(alias=%s, id=%s)", u.Alias, u.UserID)
}

package store

import (
	"time"

	domain "github.com/example/room-chat-demo/domain/chat"
)

// roomRecord is the persisted room metadata.
type roomRecord struct {
	Name       string `gorm:"primaryKey;size:100"`
	Type       int    `gorm:"not null"`
	OwnerAlias string `gorm:"size:50"`
	CreateTime time.Time
	ModifyTime time.Time
}

func (roomRecord) TableName() string { return "rooms" }

// roomListEntry declares a room in a named room list.
type roomListEntry struct {
	ListName  string `gorm:"primaryKey;size:100"`
	RoomName  string `gorm:"primaryKey;size:100"`
	CreatedAt time.Time
}

func (roomListEntry) TableName() string { return "room_list_entries" }

// messageRecord is one entry of a room's log. The (room, sequence) pair is
// unique so a message can never be written twice under the same number.
type messageRecord struct {
	ID          uint64     `gorm:"primaryKey;autoIncrement"`
	RoomName    string     `gorm:"size:100;not null;uniqueIndex:idx_messages_room_seq"`
	SequenceNum int64      `gorm:"not null;uniqueIndex:idx_messages_room_seq"`
	Body        string     `gorm:"type:text;not null"`
	MessType    int        `gorm:"not null"`
	PropsRoom   string     `gorm:"size:100"`
	FromUser    string     `gorm:"size:50"`
	ToUser      string     `gorm:"size:50"`
	SentTime    time.Time  `gorm:"not null"`
	RecTime     *time.Time
}

func (messageRecord) TableName() string { return "messages" }

// userRecord is a user of a directory scope.
type userRecord struct {
	ID           uint     `gorm:"primaryKey"`
	Scope        string   `gorm:"size:150;not null;uniqueIndex:idx_chat_users_scope_alias"`
	Alias        string   `gorm:"size:50;not null;uniqueIndex:idx_chat_users_scope_alias"`
	UserID       string   `gorm:"size:36;not null"`
	BlockedUsers []string `gorm:"type:text;serializer:json"`
	Removed      bool
	CreateTime   time.Time
	ModifyTime   time.Time
}

func (userRecord) TableName() string { return "chat_users" }

// sequenceRecord is the SQL-backed per-room counter.
type sequenceRecord struct {
	RoomName string `gorm:"primaryKey;size:100"`
	Value    int64  `gorm:"not null"`
}

func (sequenceRecord) TableName() string { return "sequences" }

func toMessageRecord(roomName string, msg *domain.Message) messageRecord {
	p := msg.Properties
	return messageRecord{
		ID:          uint64(msg.RecordID),
		RoomName:    roomName,
		SequenceNum: p.SequenceNum,
		Body:        msg.Body,
		MessType:    int(p.Type),
		PropsRoom:   p.RoomName,
		FromUser:    p.FromUser,
		ToUser:      p.ToUser,
		SentTime:    p.SentTime,
		RecTime:     p.RecTime,
	}
}

func (r *messageRecord) toDomain() *domain.Message {
	props := domain.MessageProperties{
		Type:        domain.MessageType(r.MessType),
		RoomName:    r.PropsRoom,
		FromUser:    r.FromUser,
		ToUser:      r.ToUser,
		SequenceNum: r.SequenceNum,
		SentTime:    r.SentTime,
		RecTime:     r.RecTime,
	}
	msg := domain.NewMessage(nil, r.Body, &props)
	msg.RecordID = domain.RecordID(r.ID)
	msg.MarkClean()
	return msg
}

func toUserRecord(scope string, u *domain.ChatUser) userRecord {
	blocked := u.BlockedUsers
	if blocked == nil {
		blocked = []string{}
	}
	return userRecord{
		Scope:        scope,
		Alias:        u.Alias,
		UserID:       u.UserID,
		BlockedUsers: blocked,
		Removed:      u.Removed,
		CreateTime:   u.CreateTime,
		ModifyTime:   u.ModifyTime,
	}
}

func (r *userRecord) toDomain() *domain.ChatUser {
	u := domain.NewChatUser(r.Alias, r.CreateTime)
	u.UserID = r.UserID
	if r.BlockedUsers != nil {
		u.BlockedUsers = r.BlockedUsers
	}
	u.Removed = r.Removed
	u.ModifyTime = r.ModifyTime
	u.MarkClean()
	return u
}

func toRoomRecord(meta domain.RoomMetadata) roomRecord {
	return roomRecord{
		Name:       meta.Name,
		Type:       int(meta.Type),
		OwnerAlias: meta.OwnerAlias,
		CreateTime: meta.CreateTime,
		ModifyTime: meta.ModifyTime,
	}
}

func (r *roomRecord) toDomain() *domain.RoomMetadata {
	return &domain.RoomMetadata{
		Name:       r.Name,
		Type:       domain.RoomType(r.Type),
		OwnerAlias: r.OwnerAlias,
		CreateTime: r.CreateTime,
		ModifyTime: r.ModifyTime,
	}
}

package chat

import (
	"context"
	"time"

	domain "github.com/example/room-chat-demo/domain/chat"
)

// UserStore persists user directories. A scope is either the global user list
// name or "room:<name>" for a room's member list.
type UserStore interface {
	LoadUserDirectory(ctx context.Context, scope string) ([]*domain.ChatUser, error)
	// UpsertUser saves user under (scope, alias) and assigns UserID on first save.
	UpsertUser(ctx context.Context, scope string, user *domain.ChatUser) error
}

// Persistence is the storage collaborator behind rooms and directories.
type Persistence interface {
	UserStore

	// LoadRoomMetadata returns nil, nil when the room was never saved.
	LoadRoomMetadata(ctx context.Context, roomName string) (*domain.RoomMetadata, error)
	SaveRoomMetadata(ctx context.Context, meta domain.RoomMetadata) error
	// AppendMessage inserts a new record; it never overwrites an existing one.
	AppendMessage(ctx context.Context, roomName string, msg *domain.Message) (domain.RecordID, error)
	UpdateMessage(ctx context.Context, roomName string, id domain.RecordID, msg *domain.Message) error
	// StreamMessages calls fn for every message of the room in ascending
	// sequence order. Returning an error from fn stops the stream.
	StreamMessages(ctx context.Context, roomName string, fn func(*domain.Message) error) error
}

// RoomIndex is the durable list of declared rooms, kept apart from room logs.
type RoomIndex interface {
	ListRooms(ctx context.Context, listName string) ([]string, error)
	DeclareRoom(ctx context.Context, listName, roomName string) error
	UndeclareRoom(ctx context.Context, listName, roomName string) error
}

// SequenceAllocator hands out per-room sequence numbers. Next must never
// return the same positive value twice for a room, across restarts included.
// On failure it returns domain.UnassignedSequence and a non-nil error.
type SequenceAllocator interface {
	Next(ctx context.Context, roomName string) (int64, error)
}

// SequenceSeeder is implemented by allocators that can be raised to a floor.
// Rooms seed their allocator with the restored log head so a counter that
// lost its state does not hand out numbers already in the log.
type SequenceSeeder interface {
	Seed(ctx context.Context, roomName string, floor int64) error
}

// RoomListener observes delivery state changes. Callbacks run while the room
// lock is held and must not call back into the room.
type RoomListener interface {
	MessageSent(msg domain.Message)
	MessageReceived(msg domain.Message, by string)
}

// withTimeout bounds a single backing-store call.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

package chat

import (
	"context"
	"time"

	domain "github.com/example/room-chat-demo/domain/chat"
)

// Reason codes carried by unsuccessful results. A result with Success false
// is a business rejection, never a backing-store fault.
const (
	ReasonInvalid   = "invalid"
	ReasonNotFound  = "not_found"
	ReasonConflict  = "conflict"
	ReasonForbidden = "forbidden"
)

// Result is the common response for operations that only succeed or not.
type Result struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// RoomNameRequest addresses a single room.
type RoomNameRequest struct {
	Name string `json:"name"`
}

// CreateRoomRequest is the request for creating a room.
type CreateRoomRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	Owner string `json:"owner,omitempty"`
}

// RoomInfo describes a room.
type RoomInfo struct {
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Owner        string          `json:"owner,omitempty"`
	Members      []string        `json:"members"`
	MessageCount int             `json:"message_count"`
	Latest       *domain.Message `json:"latest,omitempty"`
	CreateTime   time.Time       `json:"create_time"`
	ModifyTime   time.Time       `json:"modify_time"`
}

// RoomResult is the response for create-room and get-room.
type RoomResult struct {
	Result
	Room *RoomInfo `json:"room,omitempty"`
}

// ListRoomsRequest is the request for listing rooms.
type ListRoomsRequest struct{}

// ListRoomsResponse is the response for listing rooms.
type ListRoomsResponse struct {
	Rooms []string `json:"rooms"`
	Total int      `json:"total"`
}

// SendMessageRequest is the request for sending a message into a room.
type SendMessageRequest struct {
	Room string `json:"room"`
	Body string `json:"body"`
	From string `json:"from"`
	To   string `json:"to"`
}

// RetrieveMessagesRequest is the request for reading a room's log.
// Limit <= 0 returns every message. Objects selects full messages over bodies.
type RetrieveMessagesRequest struct {
	Room    string `json:"room"`
	Alias   string `json:"alias"`
	Limit   int    `json:"limit"`
	Objects bool   `json:"objects"`
}

// RetrieveMessagesResponse holds either Messages or Bodies, newest first.
type RetrieveMessagesResponse struct {
	Result
	Messages []domain.Message `json:"messages,omitempty"`
	Bodies   []string         `json:"bodies,omitempty"`
	Total    int              `json:"total"`
}

// FindMessageRequest looks up a message by its exact body.
type FindMessageRequest struct {
	Room string `json:"room"`
	Body string `json:"body"`
}

// FindMessageResponse is the response for find-message.
type FindMessageResponse struct {
	Result
	Message *domain.Message `json:"message,omitempty"`
}

// MemberRequest addresses a member of a room.
type MemberRequest struct {
	Room  string `json:"room"`
	Alias string `json:"alias"`
}

// UserRequest addresses a user of the global directory.
type UserRequest struct {
	Alias string `json:"alias"`
}

// UserResult is the response for get-user.
type UserResult struct {
	Result
	User *domain.ChatUser `json:"user,omitempty"`
}

// ListUsersRequest is the request for listing users.
type ListUsersRequest struct{}

// ListUsersResponse is the response for listing users.
type ListUsersResponse struct {
	Users []*domain.ChatUser `json:"users"`
	Total int                `json:"total"`
}

// BlockRequest makes Alias ignore messages from Target. With Room set the
// block applies to the room's member list instead of the global directory.
type BlockRequest struct {
	Alias  string `json:"alias"`
	Target string `json:"target"`
	Room   string `json:"room,omitempty"`
}

// ChatPort defines the chat operations available to driving adapters.
type ChatPort interface {
	CreateRoom(ctx context.Context, req *CreateRoomRequest) (*RoomResult, error)
	RemoveRoom(ctx context.Context, name string) (*Result, error)
	GetRoom(ctx context.Context, name string) (*RoomResult, error)
	ListRooms(ctx context.Context) (*ListRoomsResponse, error)

	SendMessage(ctx context.Context, req *SendMessageRequest) (*Result, error)
	RetrieveMessages(ctx context.Context, req *RetrieveMessagesRequest) (*RetrieveMessagesResponse, error)
	FindMessage(ctx context.Context, room, body string) (*FindMessageResponse, error)

	RegisterMember(ctx context.Context, room, alias string) (*Result, error)
	DeregisterMember(ctx context.Context, room, alias string) (*Result, error)

	RegisterUser(ctx context.Context, alias string) (*Result, error)
	DeregisterUser(ctx context.Context, alias string) (*Result, error)
	GetUser(ctx context.Context, alias string) (*UserResult, error)
	ListUsers(ctx context.Context) (*ListUsersResponse, error)
	BlockUser(ctx context.Context, req *BlockRequest) (*Result, error)
	UnblockUser(ctx context.Context, req *BlockRequest) (*Result, error)
}

func ok() Result { return Result{Success: true} }

func reject(reason, detail string) Result {
	return Result{Reason: reason, Detail: detail}
}

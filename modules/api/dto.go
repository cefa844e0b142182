package api

import (
	"time"

	domain "github.com/example/room-chat-demo/domain/chat"
)

// CreateRoomRequest is the HTTP request for creating a room.
type CreateRoomRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Owner string `json:"owner"`
}

// RoomResponse is the HTTP response for a single room.
type RoomResponse struct {
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Owner        string          `json:"owner,omitempty"`
	Members      []string        `json:"members"`
	MessageCount int             `json:"message_count"`
	Latest       *domain.Message `json:"latest,omitempty"`
	CreateTime   time.Time       `json:"create_time"`
	ModifyTime   time.Time       `json:"modify_time"`
}

// ListRoomsResponse is the HTTP response for listing rooms.
type ListRoomsResponse struct {
	Rooms []string `json:"rooms"`
	Total int      `json:"total"`
}

// AliasRequest is the HTTP request carrying a single alias.
type AliasRequest struct {
	Alias string `json:"alias"`
}

// BlockRequest is the HTTP request for blocking a sender.
type BlockRequest struct {
	Alias  string `json:"alias"`
	Target string `json:"target"`
}

// SendMessageRequest is the HTTP request for sending a message.
type SendMessageRequest struct {
	Body string `json:"body"`
	From string `json:"from"`
	To   string `json:"to"`
}

// MessagesResponse is the HTTP response for reading a room's log.
type MessagesResponse struct {
	Room     string           `json:"room"`
	Alias    string           `json:"alias,omitempty"`
	Messages []domain.Message `json:"messages,omitempty"`
	Bodies   []string         `json:"bodies,omitempty"`
	Total    int              `json:"total"`
}

// UserResponse is the HTTP response for a single user.
type UserResponse struct {
	Alias        string    `json:"alias"`
	UserID       string    `json:"user_id"`
	BlockedUsers []string  `json:"blocked_users"`
	CreateTime   time.Time `json:"create_time"`
	ModifyTime   time.Time `json:"modify_time"`
}

// ListUsersResponse is the HTTP response for listing users.
type ListUsersResponse struct {
	Users []UserResponse `json:"users"`
	Total int            `json:"total"`
}

// StatusResponse acknowledges an operation without a body of its own.
type StatusResponse struct {
	Status string `json:"status"`
}

// HealthResponse is the HTTP response for health check.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the HTTP response for errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func toUserResponse(u *domain.ChatUser) UserResponse {
	blocked := u.BlockedUsers
	if blocked == nil {
		blocked = []string{}
	}
	return UserResponse{
		Alias:        u.Alias,
		UserID:       u.UserID,
		BlockedUsers: blocked,
		CreateTime:   u.CreateTime,
		ModifyTime:   u.ModifyTime,
	}
}

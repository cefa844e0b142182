package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// chatAdapter implements ChatPort on top of the chat module's services.
type chatAdapter struct {
	container mono.ServiceContainer
}

// NewChatAdapter creates a new adapter for chat services.
// container is the ServiceContainer received via SetDependencyServiceContainer.
func NewChatAdapter(container mono.ServiceContainer) ChatPort {
	if container == nil {
		panic("chat adapter requires non-nil ServiceContainer")
	}
	return &chatAdapter{container: container}
}

// callService calls a chat service and restores the store fault class of a
// failed call.
func callService[T any](ctx context.Context, container mono.ServiceContainer, service string, req any, resp *T) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return mapServiceError(service, err)
	}
	return nil
}

// CreateRoom creates a room via the create-room service.
func (a *chatAdapter) CreateRoom(ctx context.Context, req *CreateRoomRequest) (*RoomResult, error) {
	var resp RoomResult
	if err := callService(ctx, a.container, "create-room", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RemoveRoom removes a room from the index via the remove-room service.
func (a *chatAdapter) RemoveRoom(ctx context.Context, name string) (*Result, error) {
	var resp Result
	if err := callService(ctx, a.container, "remove-room", &RoomNameRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRoom describes a room via the get-room service.
func (a *chatAdapter) GetRoom(ctx context.Context, name string) (*RoomResult, error) {
	var resp RoomResult
	if err := callService(ctx, a.container, "get-room", &RoomNameRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRooms lists the declared rooms via the list-rooms service.
func (a *chatAdapter) ListRooms(ctx context.Context) (*ListRoomsResponse, error) {
	var resp ListRoomsResponse
	if err := callService(ctx, a.container, "list-rooms", &ListRoomsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendMessage sends a message via the send-message service.
func (a *chatAdapter) SendMessage(ctx context.Context, req *SendMessageRequest) (*Result, error) {
	var resp Result
	if err := callService(ctx, a.container, "send-message", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RetrieveMessages reads a room's log via the retrieve-messages service.
func (a *chatAdapter) RetrieveMessages(ctx context.Context, req *RetrieveMessagesRequest) (*RetrieveMessagesResponse, error) {
	var resp RetrieveMessagesResponse
	if err := callService(ctx, a.container, "retrieve-messages", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FindMessage looks a message up by body via the find-message service.
func (a *chatAdapter) FindMessage(ctx context.Context, room, body string) (*FindMessageResponse, error) {
	var resp FindMessageResponse
	if err := callService(ctx, a.container, "find-message", &FindMessageRequest{Room: room, Body: body}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RegisterMember adds a member via the register-member service.
func (a *chatAdapter) RegisterMember(ctx context.Context, room, alias string) (*Result, error) {
	var resp Result
	if err := callService(ctx, a.container, "register-member", &MemberRequest{Room: room, Alias: alias}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeregisterMember removes a member via the deregister-member service.
func (a *chatAdapter) DeregisterMember(ctx context.Context, room, alias string) (*Result, error) {
	var resp Result
	if err := callService(ctx, a.container, "deregister-member", &MemberRequest{Room: room, Alias: alias}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RegisterUser registers an alias via the register-user service.
func (a *chatAdapter) RegisterUser(ctx context.Context, alias string) (*Result, error) {
	var resp Result
	if err := callService(ctx, a.container, "register-user", &UserRequest{Alias: alias}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeregisterUser removes an alias via the deregister-user service.
func (a *chatAdapter) DeregisterUser(ctx context.Context, alias string) (*Result, error) {
	var resp Result
	if err := callService(ctx, a.container, "deregister-user", &UserRequest{Alias: alias}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetUser fetches a user via the get-user service.
func (a *chatAdapter) GetUser(ctx context.Context, alias string) (*UserResult, error) {
	var resp UserResult
	if err := callService(ctx, a.container, "get-user", &UserRequest{Alias: alias}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListUsers lists the active users via the list-users service.
func (a *chatAdapter) ListUsers(ctx context.Context) (*ListUsersResponse, error) {
	var resp ListUsersResponse
	if err := callService(ctx, a.container, "list-users", &ListUsersRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BlockUser updates a block list via the block-user service.
func (a *chatAdapter) BlockUser(ctx context.Context, req *BlockRequest) (*Result, error) {
	var resp Result
	if err := callService(ctx, a.container, "block-user", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UnblockUser updates a block list via the unblock-user service.
func (a *chatAdapter) UnblockUser(ctx context.Context, req *BlockRequest) (*Result, error) {
	var resp Result
	if err := callService(ctx, a.container, "unblock-user", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// mapServiceError restores the store fault classification from the error
// text, since errors lose their type information when sent over NATS.
func mapServiceError(service string, err error) error {
	if err == nil {
		return nil
	}
	if IsStoreFault(err) {
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, ErrStoreTimeout.Error()):
		return &StoreError{Op: service, Err: errors.Join(ErrStoreTimeout, err)}
	case strings.Contains(msg, storeFaultMarker):
		return &StoreError{Op: service, Err: err}
	}
	return err
}

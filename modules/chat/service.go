package chat

import (
	"context"
	"fmt"

	domain "github.com/example/room-chat-demo/domain/chat"
	"github.com/go-monolith/mono"
)

// createRoom handles the create-room service request. A non-empty owner is
// registered as the first member.
func (m *Module) createRoom(ctx context.Context, req CreateRoomRequest, _ *mono.Msg) (RoomResult, error) {
	typ, err := domain.ParseRoomType(req.Type)
	if err != nil {
		return RoomResult{Result: reject(ReasonInvalid, err.Error())}, nil
	}
	if err := ValidateRoomName(req.Name); err != nil {
		return RoomResult{Result: reject(ReasonInvalid, err.Error())}, nil
	}
	if req.Owner != "" {
		if err := ValidateAlias(req.Owner); err != nil {
			return RoomResult{Result: reject(ReasonInvalid, err.Error())}, nil
		}
	}

	room, created, err := m.rooms.Create(ctx, req.Name, RoomInit{Type: typ, OwnerAlias: req.Owner})
	if err != nil {
		return RoomResult{}, fmt.Errorf("failed to create room: %w", err)
	}
	if !created {
		return RoomResult{Result: reject(ReasonConflict, "room already exists")}, nil
	}
	m.publishRoomCreated(room)

	if req.Owner != "" {
		if _, err := room.RegisterMember(ctx, req.Owner); err != nil {
			return RoomResult{}, fmt.Errorf("failed to register owner: %w", err)
		}
		m.publishMemberRegistered(room.Name(), req.Owner)
	}

	return RoomResult{Result: ok(), Room: toRoomInfo(room)}, nil
}

// removeRoom handles the remove-room service request.
func (m *Module) removeRoom(ctx context.Context, req RoomNameRequest, _ *mono.Msg) (Result, error) {
	removed, err := m.rooms.Remove(ctx, req.Name)
	if err != nil {
		return Result{}, fmt.Errorf("failed to remove room: %w", err)
	}
	if !removed {
		return reject(ReasonNotFound, "room not found"), nil
	}
	return ok(), nil
}

// getRoom handles the get-room service request.
func (m *Module) getRoom(ctx context.Context, req RoomNameRequest, _ *mono.Msg) (RoomResult, error) {
	room, res, err := m.findRoom(ctx, req.Name)
	if room == nil {
		return RoomResult{Result: res}, err
	}
	return RoomResult{Result: ok(), Room: toRoomInfo(room)}, nil
}

// listRooms handles the list-rooms service request.
func (m *Module) listRooms(_ context.Context, _ ListRoomsRequest, _ *mono.Msg) (ListRoomsResponse, error) {
	names := m.rooms.Names()
	return ListRoomsResponse{Rooms: names, Total: len(names)}, nil
}

// sendMessage handles the send-message service request.
func (m *Module) sendMessage(ctx context.Context, req SendMessageRequest, _ *mono.Msg) (Result, error) {
	if err := ValidateMessage(req.Body); err != nil {
		return reject(ReasonInvalid, err.Error()), nil
	}
	room, res, err := m.findRoom(ctx, req.Room)
	if room == nil {
		return res, err
	}

	sent, err := room.Send(ctx, req.Body, room.Name(), req.From, req.To)
	if err != nil {
		return Result{}, fmt.Errorf("failed to send message: %w", err)
	}
	if !sent {
		return reject(ReasonForbidden, "sender and addressee must be members of a private room"), nil
	}
	return ok(), nil
}

// retrieveMessages handles the retrieve-messages service request.
func (m *Module) retrieveMessages(ctx context.Context, req RetrieveMessagesRequest, _ *mono.Msg) (RetrieveMessagesResponse, error) {
	room, res, err := m.findRoom(ctx, req.Room)
	if room == nil {
		return RetrieveMessagesResponse{Result: res}, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = AllMessages
	}

	if req.Objects {
		msgs, err := room.Retrieve(ctx, req.Alias, limit)
		if err != nil {
			return RetrieveMessagesResponse{}, fmt.Errorf("failed to retrieve messages: %w", err)
		}
		return RetrieveMessagesResponse{Result: ok(), Messages: msgs, Total: len(msgs)}, nil
	}

	bodies, err := room.RetrieveBodies(ctx, req.Alias, limit)
	if err != nil {
		return RetrieveMessagesResponse{}, fmt.Errorf("failed to retrieve messages: %w", err)
	}
	return RetrieveMessagesResponse{Result: ok(), Bodies: bodies, Total: len(bodies)}, nil
}

// findMessage handles the find-message service request.
func (m *Module) findMessage(ctx context.Context, req FindMessageRequest, _ *mono.Msg) (FindMessageResponse, error) {
	room, res, err := m.findRoom(ctx, req.Room)
	if room == nil {
		return FindMessageResponse{Result: res}, err
	}
	msg, found := room.FindByBody(req.Body)
	if !found {
		return FindMessageResponse{Result: reject(ReasonNotFound, "message not found")}, nil
	}
	return FindMessageResponse{Result: ok(), Message: &msg}, nil
}

// registerMember handles the register-member service request.
func (m *Module) registerMember(ctx context.Context, req MemberRequest, _ *mono.Msg) (Result, error) {
	if err := ValidateAlias(req.Alias); err != nil {
		return reject(ReasonInvalid, err.Error()), nil
	}
	room, res, err := m.findRoom(ctx, req.Room)
	if room == nil {
		return res, err
	}

	registered, err := room.RegisterMember(ctx, req.Alias)
	if err != nil {
		return Result{}, fmt.Errorf("failed to register member: %w", err)
	}
	if !registered {
		return reject(ReasonConflict, "alias already a member"), nil
	}
	m.publishMemberRegistered(room.Name(), req.Alias)
	return ok(), nil
}

// deregisterMember handles the deregister-member service request.
func (m *Module) deregisterMember(ctx context.Context, req MemberRequest, _ *mono.Msg) (Result, error) {
	room, res, err := m.findRoom(ctx, req.Room)
	if room == nil {
		return res, err
	}

	removed, err := room.DeregisterMember(ctx, req.Alias)
	if err != nil {
		return Result{}, fmt.Errorf("failed to deregister member: %w", err)
	}
	if !removed {
		return reject(ReasonNotFound, "alias is not a member"), nil
	}
	return ok(), nil
}

// registerUser handles the register-user service request.
func (m *Module) registerUser(ctx context.Context, req UserRequest, _ *mono.Msg) (Result, error) {
	if err := ValidateAlias(req.Alias); err != nil {
		return reject(ReasonInvalid, err.Error()), nil
	}
	registered, err := m.users.Register(ctx, req.Alias)
	if err != nil {
		return Result{}, fmt.Errorf("failed to register user: %w", err)
	}
	if !registered {
		return reject(ReasonConflict, "alias already registered"), nil
	}
	return ok(), nil
}

// deregisterUser handles the deregister-user service request.
func (m *Module) deregisterUser(ctx context.Context, req UserRequest, _ *mono.Msg) (Result, error) {
	removed, err := m.users.Deregister(ctx, req.Alias)
	if err != nil {
		return Result{}, fmt.Errorf("failed to deregister user: %w", err)
	}
	if !removed {
		return reject(ReasonNotFound, "user not found"), nil
	}
	return ok(), nil
}

// getUser handles the get-user service request.
func (m *Module) getUser(_ context.Context, req UserRequest, _ *mono.Msg) (UserResult, error) {
	user := m.users.Get(req.Alias)
	if user == nil {
		return UserResult{Result: reject(ReasonNotFound, "user not found")}, nil
	}
	return UserResult{Result: ok(), User: user}, nil
}

// listUsers handles the list-users service request.
func (m *Module) listUsers(_ context.Context, _ ListUsersRequest, _ *mono.Msg) (ListUsersResponse, error) {
	users := m.users.Users()
	return ListUsersResponse{Users: users, Total: len(users)}, nil
}

// blockUser handles the block-user service request.
func (m *Module) blockUser(ctx context.Context, req BlockRequest, _ *mono.Msg) (Result, error) {
	if err := ValidateAlias(req.Target); err != nil {
		return reject(ReasonInvalid, err.Error()), nil
	}
	return m.changeBlock(ctx, req, true)
}

// unblockUser handles the unblock-user service request.
func (m *Module) unblockUser(ctx context.Context, req BlockRequest, _ *mono.Msg) (Result, error) {
	return m.changeBlock(ctx, req, false)
}

func (m *Module) changeBlock(ctx context.Context, req BlockRequest, block bool) (Result, error) {
	var (
		changed bool
		err     error
	)

	if req.Room != "" {
		room, res, ferr := m.findRoom(ctx, req.Room)
		if room == nil {
			return res, ferr
		}
		if !room.IsMember(req.Alias) {
			return reject(ReasonNotFound, "alias is not a member"), nil
		}
		if block {
			changed, err = room.BlockForMember(ctx, req.Alias, req.Target)
		} else {
			changed, err = room.UnblockForMember(ctx, req.Alias, req.Target)
		}
	} else {
		if !m.users.IsRegistered(req.Alias) {
			return reject(ReasonNotFound, "user not found"), nil
		}
		if block {
			changed, err = m.users.Block(ctx, req.Alias, req.Target)
		} else {
			changed, err = m.users.Unblock(ctx, req.Alias, req.Target)
		}
	}

	if err != nil {
		return Result{}, fmt.Errorf("failed to update block list: %w", err)
	}
	if !changed {
		if block {
			return reject(ReasonConflict, "already blocked"), nil
		}
		return reject(ReasonNotFound, "not blocked"), nil
	}
	return ok(), nil
}

// findRoom returns the declared room, or a not_found result when it is absent.
func (m *Module) findRoom(ctx context.Context, name string) (*Room, Result, error) {
	room, err := m.rooms.Find(ctx, name)
	if err != nil {
		return nil, Result{}, fmt.Errorf("failed to open room: %w", err)
	}
	if room == nil {
		return nil, reject(ReasonNotFound, "room not found"), nil
	}
	return room, Result{}, nil
}

func toRoomInfo(room *Room) *RoomInfo {
	meta := room.Metadata()
	info := &RoomInfo{
		Name:         meta.Name,
		Type:         meta.Type.String(),
		Owner:        meta.OwnerAlias,
		Members:      room.Members(),
		MessageCount: room.Len(),
		CreateTime:   meta.CreateTime,
		ModifyTime:   meta.ModifyTime,
	}
	if latest, found := room.Latest(); found {
		info.Latest = &latest
	}
	return info
}

package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStartedModule(t *testing.T) (*Module, *testEnv) {
	t.Helper()
	env := newTestEnv()
	m := NewModule(Config{}, &mockLogger{})
	m.now = env.clock.Now
	m.useBackends(env.store, env.store, env.alloc)
	require.NoError(t, m.Start(context.Background()))
	return m, env
}

func TestModuleDefaults(t *testing.T) {
	m := NewModule(Config{}, &mockLogger{})
	assert.Equal(t, "chat", m.Name())
	assert.Equal(t, DefaultConfig(), m.cfg)

	health := m.Health(context.Background())
	assert.False(t, health.Healthy)
}

func TestModuleStartWithoutStore(t *testing.T) {
	m := NewModule(Config{}, &mockLogger{})
	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store")
}

func TestModuleStartRestoresDirectories(t *testing.T) {
	ctx := context.Background()
	m, env := newStartedModule(t)

	_, err := m.registerUser(ctx, UserRequest{Alias: "alice"}, nil)
	require.NoError(t, err)
	_, err = m.createRoom(ctx, CreateRoomRequest{Name: "general", Owner: "alice"}, nil)
	require.NoError(t, err)

	restarted := NewModule(Config{}, &mockLogger{})
	restarted.useBackends(env.store, env.store, env.alloc)
	require.NoError(t, restarted.Start(ctx))

	assert.True(t, restarted.Users().IsRegistered("alice"))
	assert.Equal(t, []string{"general"}, restarted.Rooms().Names())

	health := restarted.Health(ctx)
	assert.True(t, health.Healthy)
	assert.Equal(t, 1, health.Details["rooms"])
}

func TestCreateRoomHandler(t *testing.T) {
	ctx := context.Background()
	m, _ := newStartedModule(t)

	tests := []struct {
		name       string
		req        CreateRoomRequest
		wantOK     bool
		wantReason string
	}{
		{name: "public with owner", req: CreateRoomRequest{Name: "general", Owner: "alice"}, wantOK: true},
		{name: "private", req: CreateRoomRequest{Name: "secret", Type: "private"}, wantOK: true},
		{name: "duplicate", req: CreateRoomRequest{Name: "general"}, wantReason: ReasonConflict},
		{name: "empty name", req: CreateRoomRequest{Name: ""}, wantReason: ReasonInvalid},
		{name: "unknown type", req: CreateRoomRequest{Name: "x", Type: "secretive"}, wantReason: ReasonInvalid},
		{name: "bad owner", req: CreateRoomRequest{Name: "y", Owner: strings.Repeat("o", MaxAliasLength+1)}, wantReason: ReasonInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.createRoom(ctx, tt.req, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, res.Success)
			assert.Equal(t, tt.wantReason, res.Reason)
			if tt.wantOK {
				require.NotNil(t, res.Room)
				assert.Equal(t, tt.req.Name, res.Room.Name)
			}
		})
	}

	res, err := m.getRoom(ctx, RoomNameRequest{Name: "general"}, nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "public", res.Room.Type)
	assert.Equal(t, "alice", res.Room.Owner)
	assert.Equal(t, []string{"alice"}, res.Room.Members, "the owner becomes the first member")

	list, err := m.listRooms(ctx, ListRoomsRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"general", "secret"}, list.Rooms)
	assert.Equal(t, 2, list.Total)
}

func TestSendAndRetrieveHandlers(t *testing.T) {
	ctx := context.Background()
	m, _ := newStartedModule(t)

	_, err := m.createRoom(ctx, CreateRoomRequest{Name: "r"}, nil)
	require.NoError(t, err)

	for _, body := range []string{"m1", "m2", "m3"} {
		res, err := m.sendMessage(ctx, SendMessageRequest{Room: "r", Body: body, From: "a", To: "b"}, nil)
		require.NoError(t, err)
		require.True(t, res.Success)
	}

	bodiesResp, err := m.retrieveMessages(ctx, RetrieveMessagesRequest{Room: "r", Alias: "x", Limit: 2}, nil)
	require.NoError(t, err)
	require.True(t, bodiesResp.Success)
	assert.Equal(t, []string{"m3", "m2"}, bodiesResp.Bodies)
	assert.Empty(t, bodiesResp.Messages)
	assert.Equal(t, 2, bodiesResp.Total)

	objects, err := m.retrieveMessages(ctx, RetrieveMessagesRequest{Room: "r", Alias: "b", Objects: true}, nil)
	require.NoError(t, err)
	require.Len(t, objects.Messages, 3)
	assert.NotNil(t, objects.Messages[0].Properties.RecTime)

	found, err := m.findMessage(ctx, FindMessageRequest{Room: "r", Body: "m2"}, nil)
	require.NoError(t, err)
	require.True(t, found.Success)
	assert.Equal(t, int64(2), found.Message.Properties.SequenceNum)

	missing, err := m.findMessage(ctx, FindMessageRequest{Room: "r", Body: "m4"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, missing.Reason)

	info, err := m.getRoom(ctx, RoomNameRequest{Name: "r"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Room.MessageCount)
	require.NotNil(t, info.Room.Latest)
	assert.Equal(t, "m3", info.Room.Latest.Body)
}

func TestSendMessageRejections(t *testing.T) {
	ctx := context.Background()
	m, env := newStartedModule(t)

	_, err := m.createRoom(ctx, CreateRoomRequest{Name: "secret", Type: "private", Owner: "alice"}, nil)
	require.NoError(t, err)

	tests := []struct {
		name       string
		req        SendMessageRequest
		wantReason string
	}{
		{name: "empty body", req: SendMessageRequest{Room: "secret", From: "alice", To: "alice"}, wantReason: ReasonInvalid},
		{name: "unknown room", req: SendMessageRequest{Room: "nope", Body: "hi", From: "a", To: "b"}, wantReason: ReasonNotFound},
		{name: "non member", req: SendMessageRequest{Room: "secret", Body: "hi", From: "alice", To: "bob"}, wantReason: ReasonForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.sendMessage(ctx, tt.req, nil)
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.wantReason, res.Reason)
		})
	}

	env.store.failOn("append", errInjected)
	res, err := m.sendMessage(ctx, SendMessageRequest{Room: "secret", Body: "hi", From: "alice", To: "alice"}, nil)
	require.Error(t, err)
	assert.True(t, IsStoreFault(err), "faults stay distinguishable from rejections")
	assert.False(t, res.Success)
	assert.Empty(t, res.Reason)
}

func TestMemberHandlers(t *testing.T) {
	ctx := context.Background()
	m, _ := newStartedModule(t)

	_, err := m.createRoom(ctx, CreateRoomRequest{Name: "r"}, nil)
	require.NoError(t, err)

	res, err := m.registerMember(ctx, MemberRequest{Room: "r", Alias: "bob"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = m.registerMember(ctx, MemberRequest{Room: "r", Alias: "bob"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonConflict, res.Reason)

	res, err = m.registerMember(ctx, MemberRequest{Room: "nope", Alias: "bob"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, res.Reason)

	res, err = m.registerMember(ctx, MemberRequest{Room: "r", Alias: ""}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalid, res.Reason)

	res, err = m.deregisterMember(ctx, MemberRequest{Room: "r", Alias: "bob"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = m.deregisterMember(ctx, MemberRequest{Room: "r", Alias: "bob"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, res.Reason)
}

func TestUserHandlers(t *testing.T) {
	ctx := context.Background()
	m, _ := newStartedModule(t)

	res, err := m.registerUser(ctx, UserRequest{Alias: "carl"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = m.registerUser(ctx, UserRequest{Alias: "carl"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonConflict, res.Reason)

	res, err = m.registerUser(ctx, UserRequest{Alias: ""}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalid, res.Reason)

	list, err := m.listUsers(ctx, ListUsersRequest{}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "carl", list.Users[0].Alias)

	user, err := m.getUser(ctx, UserRequest{Alias: "carl"}, nil)
	require.NoError(t, err)
	require.True(t, user.Success)
	assert.NotEmpty(t, user.User.UserID)

	res, err = m.deregisterUser(ctx, UserRequest{Alias: "carl"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)

	user, err = m.getUser(ctx, UserRequest{Alias: "carl"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, user.Reason)

	res, err = m.deregisterUser(ctx, UserRequest{Alias: "carl"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, res.Reason)
}

func TestBlockHandlers(t *testing.T) {
	ctx := context.Background()
	m, _ := newStartedModule(t)

	_, err := m.registerUser(ctx, UserRequest{Alias: "bob"}, nil)
	require.NoError(t, err)
	_, err = m.createRoom(ctx, CreateRoomRequest{Name: "r", Owner: "bob"}, nil)
	require.NoError(t, err)

	res, err := m.blockUser(ctx, BlockRequest{Alias: "bob", Target: "alice"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = m.blockUser(ctx, BlockRequest{Alias: "bob", Target: "alice"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonConflict, res.Reason)

	res, err = m.blockUser(ctx, BlockRequest{Alias: "ghost", Target: "alice"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, res.Reason)

	res, err = m.blockUser(ctx, BlockRequest{Alias: "bob", Target: ""}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalid, res.Reason)

	res, err = m.blockUser(ctx, BlockRequest{Alias: "bob", Target: "eve", Room: "r"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = m.blockUser(ctx, BlockRequest{Alias: "carol", Target: "eve", Room: "r"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, res.Reason, "room blocks need membership")

	_, err = m.sendMessage(ctx, SendMessageRequest{Room: "r", Body: "from alice", From: "alice", To: "bob"}, nil)
	require.NoError(t, err)
	_, err = m.sendMessage(ctx, SendMessageRequest{Room: "r", Body: "from eve", From: "eve", To: "bob"}, nil)
	require.NoError(t, err)
	_, err = m.sendMessage(ctx, SendMessageRequest{Room: "r", Body: "from dan", From: "dan", To: "bob"}, nil)
	require.NoError(t, err)

	got, err := m.retrieveMessages(ctx, RetrieveMessagesRequest{Room: "r", Alias: "bob"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"from dan"}, got.Bodies)

	res, err = m.unblockUser(ctx, BlockRequest{Alias: "bob", Target: "alice"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = m.unblockUser(ctx, BlockRequest{Alias: "bob", Target: "alice"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, res.Reason)

	got, err = m.retrieveMessages(ctx, RetrieveMessagesRequest{Room: "r", Alias: "bob"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"from dan", "from alice"}, got.Bodies)
}

func TestRemoveRoomHandler(t *testing.T) {
	ctx := context.Background()
	m, _ := newStartedModule(t)

	_, err := m.createRoom(ctx, CreateRoomRequest{Name: "temp"}, nil)
	require.NoError(t, err)

	res, err := m.removeRoom(ctx, RoomNameRequest{Name: "temp"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = m.removeRoom(ctx, RoomNameRequest{Name: "temp"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, res.Reason)

	got, err := m.getRoom(ctx, RoomNameRequest{Name: "temp"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, got.Reason)

	recreated, err := m.createRoom(ctx, CreateRoomRequest{Name: "temp", Type: "private", Owner: "mallory"}, nil)
	require.NoError(t, err)
	assert.False(t, recreated.Success)
	assert.Equal(t, ReasonConflict, recreated.Reason)
	still, err := m.getRoom(ctx, RoomNameRequest{Name: "temp"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, still.Reason)
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(string) error
		input   string
		wantErr error
	}{
		{name: "alias ok", fn: ValidateAlias, input: "alice"},
		{name: "alias empty", fn: ValidateAlias, input: "", wantErr: ErrAliasEmpty},
		{name: "alias too long", fn: ValidateAlias, input: strings.Repeat("a", MaxAliasLength+1), wantErr: ErrAliasTooLong},
		{name: "alias at limit", fn: ValidateAlias, input: strings.Repeat("a", MaxAliasLength)},
		{name: "alias invalid utf8", fn: ValidateAlias, input: "\xc3\x28", wantErr: ErrAliasInvalid},
		{name: "room ok", fn: ValidateRoomName, input: "general chat"},
		{name: "room empty", fn: ValidateRoomName, input: "", wantErr: ErrRoomNameEmpty},
		{name: "room too long", fn: ValidateRoomName, input: strings.Repeat("r", MaxRoomNameLength+1), wantErr: ErrRoomNameTooLong},
		{name: "message ok", fn: ValidateMessage, input: "héllo wörld"},
		{name: "message empty", fn: ValidateMessage, input: "", wantErr: ErrMessageEmpty},
		{name: "message too long", fn: ValidateMessage, input: strings.Repeat("m", MaxMessageLength+1), wantErr: ErrMessageTooLong},
		{name: "message invalid utf8", fn: ValidateMessage, input: "\xff", wantErr: ErrMessageInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn(tt.input)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStoreFault(t *testing.T) {
	assert.NoError(t, storeFault("op", "r", nil))

	err := storeFault("append_message", "general", errInjected)
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.False(t, se.Timeout())
	assert.NotErrorIs(t, err, ErrStoreTimeout)
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, "store fault in append_message (room general): injected store failure", err.Error())

	timeout := storeFault("next_sequence", "", fmt.Errorf("redis: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, timeout, ErrStoreTimeout)
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)
	assert.True(t, strings.HasPrefix(timeout.Error(), "store fault in next_sequence: "))

	assert.Same(t, err, storeFault("other", "x", err), "existing faults pass through")
	wrapped := fmt.Errorf("failed to send message: %w", err)
	assert.Same(t, wrapped, storeFault("other", "x", wrapped))
}

func TestMapServiceError(t *testing.T) {
	assert.NoError(t, mapServiceError("get-room", nil))

	plain := errors.New("nats: no responders available for request")
	assert.Same(t, plain, mapServiceError("get-room", plain))
	assert.False(t, IsStoreFault(mapServiceError("get-room", plain)))

	local := &StoreError{Op: "load_users", Err: errInjected}
	assert.Same(t, local, mapServiceError("get-user", local))

	// Faults crossing the service boundary arrive as text only.
	remote := errors.New("service error: failed to send message: store fault in append_message (room r): disk I/O error")
	mapped := mapServiceError("send-message", remote)
	var se *StoreError
	require.ErrorAs(t, mapped, &se)
	assert.Equal(t, "send-message", se.Op)
	assert.False(t, se.Timeout())

	remoteTimeout := errors.New("service error: " + storeFault("append_message", "r", context.DeadlineExceeded).Error())
	mappedTimeout := mapServiceError("send-message", remoteTimeout)
	assert.ErrorIs(t, mappedTimeout, ErrStoreTimeout)
	assert.True(t, IsStoreFault(mappedTimeout))
}

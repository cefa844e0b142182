package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// activityAdapter implements ActivityPort using the service container.
type activityAdapter struct {
	container mono.ServiceContainer
}

// NewActivityAdapter creates a new adapter for activity services.
func NewActivityAdapter(container mono.ServiceContainer) ActivityPort {
	if container == nil {
		panic("activity adapter requires non-nil ServiceContainer")
	}
	return &activityAdapter{container: container}
}

// GetSummary returns activity aggregated over all rooms.
func (a *activityAdapter) GetSummary(ctx context.Context) (*Summary, error) {
	client, err := a.container.GetRequestReplyService("get-activity-summary")
	if err != nil {
		return nil, fmt.Errorf("failed to get get-activity-summary service: %w", err)
	}

	resp, err := client.Call(ctx, []byte("{}"))
	if err != nil {
		return nil, fmt.Errorf("get-activity-summary service call failed: %w", err)
	}

	var summary Summary
	if err := json.Unmarshal(resp.Data, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &summary, nil
}

// GetRoomActivity returns the counters of one room.
func (a *activityAdapter) GetRoomActivity(ctx context.Context, room string) (*RoomActivityResponse, error) {
	req := RoomActivityRequest{Room: room}
	var resp RoomActivityResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-room-activity",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get-room-activity service call failed: %w", err)
	}
	return &resp, nil
}

// GetRecentDeliveries returns up to limit deliveries, most recent first.
func (a *activityAdapter) GetRecentDeliveries(ctx context.Context, limit int) (*RecentDeliveriesResponse, error) {
	req := RecentDeliveriesRequest{Limit: limit}
	var resp RecentDeliveriesResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-recent-deliveries",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get-recent-deliveries service call failed: %w", err)
	}
	return &resp, nil
}

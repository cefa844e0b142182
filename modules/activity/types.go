package activity

import "context"

// RoomActivityRequest asks for the counters of one room.
type RoomActivityRequest struct {
	Room string `json:"room"`
}

// RoomActivityResponse carries the counters of one room.
type RoomActivityResponse struct {
	Found    bool          `json:"found"`
	Activity *RoomActivity `json:"activity,omitempty"`
}

// RecentDeliveriesRequest asks for the latest deliveries.
type RecentDeliveriesRequest struct {
	Limit int `json:"limit"`
}

// RecentDeliveriesResponse lists deliveries, most recent first.
type RecentDeliveriesResponse struct {
	Deliveries []Delivery `json:"deliveries"`
	Total      int        `json:"total"`
}

// ActivityPort defines the activity queries available to other modules.
type ActivityPort interface {
	GetSummary(ctx context.Context) (*Summary, error)
	GetRoomActivity(ctx context.Context, room string) (*RoomActivityResponse, error)
	GetRecentDeliveries(ctx context.Context, limit int) (*RecentDeliveriesResponse, error)
}

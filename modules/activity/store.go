package activity

import (
	"slices"
	"sync"
	"time"
)

// DefaultMaxDeliveries is the default number of delivery records retained.
const DefaultMaxDeliveries = 10000

// Delivery records one acknowledgment of a message by its addressee.
type Delivery struct {
	RoomName    string        `json:"room_name"`
	SequenceNum int64         `json:"sequence_num"`
	FromUser    string        `json:"from_user"`
	ToUser      string        `json:"to_user"`
	RecTime     time.Time     `json:"rec_time"`
	Latency     time.Duration `json:"latency_ns,omitempty"`
}

// RoomActivity tracks counters for a single room.
type RoomActivity struct {
	RoomName         string    `json:"room_name"`
	RoomType         string    `json:"room_type,omitempty"`
	OwnerAlias       string    `json:"owner_alias,omitempty"`
	MessagesSent     int64     `json:"messages_sent"`
	MessagesReceived int64     `json:"messages_received"`
	MembersJoined    int64     `json:"members_joined"`
	LastSequence     int64     `json:"last_sequence"`
	CreatedAt        time.Time `json:"created_at,omitempty"`
	LastActivity     time.Time `json:"last_activity,omitempty"`
}

// Summary aggregates activity across all rooms.
type Summary struct {
	RoomsCreated     int64          `json:"rooms_created"`
	MessagesSent     int64          `json:"messages_sent"`
	MessagesReceived int64          `json:"messages_received"`
	MembersJoined    int64          `json:"members_joined"`
	TopRooms         []RoomActivity `json:"top_rooms"`
}

// Store provides thread-safe storage for activity counters.
type Store struct {
	mu            sync.RWMutex
	rooms         map[string]*RoomActivity
	deliveries    []Delivery
	sentAt        map[deliveryKey]time.Time
	roomsCreated  int64
	maxDeliveries int
}

type deliveryKey struct {
	room string
	seq  int64
}

// NewStore creates a new activity store with default limits.
func NewStore() *Store {
	return NewStoreWithLimit(DefaultMaxDeliveries)
}

// NewStoreWithLimit creates a new activity store with a custom delivery limit.
func NewStoreWithLimit(maxDeliveries int) *Store {
	if maxDeliveries <= 0 {
		maxDeliveries = DefaultMaxDeliveries
	}
	return &Store{
		rooms:         make(map[string]*RoomActivity),
		deliveries:    make([]Delivery, 0),
		sentAt:        make(map[deliveryKey]time.Time),
		maxDeliveries: maxDeliveries,
	}
}

// RecordRoomCreated records the creation of a room.
func (s *Store) RecordRoomCreated(room, roomType, owner string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.room(room)
	a.RoomType = roomType
	a.OwnerAlias = owner
	a.CreatedAt = at
	a.LastActivity = at
	s.roomsCreated++
}

// RecordMemberJoined records a member registration.
func (s *Store) RecordMemberJoined(room string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.room(room)
	a.MembersJoined++
	a.LastActivity = at
}

// RecordSent records a sent message.
func (s *Store) RecordSent(room string, seq int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.room(room)
	a.MessagesSent++
	if seq > a.LastSequence {
		a.LastSequence = seq
	}
	a.LastActivity = at
	if len(s.sentAt) < s.maxDeliveries {
		s.sentAt[deliveryKey{room, seq}] = at
	}
}

// RecordReceived records the first retrieval of a message by its addressee.
func (s *Store) RecordReceived(d Delivery) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.room(d.RoomName)
	a.MessagesReceived++
	a.LastActivity = d.RecTime

	key := deliveryKey{d.RoomName, d.SequenceNum}
	if sent, ok := s.sentAt[key]; ok {
		d.Latency = d.RecTime.Sub(sent)
		delete(s.sentAt, key)
	}

	s.deliveries = append(s.deliveries, d)
	if len(s.deliveries) > s.maxDeliveries {
		excess := len(s.deliveries) - s.maxDeliveries
		s.deliveries = s.deliveries[excess:]
	}
}

// GetRoom returns the counters of a room.
func (s *Store) GetRoom(room string) (RoomActivity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.rooms[room]
	if !ok {
		return RoomActivity{}, false
	}
	return *a, true
}

// RecentDeliveries returns up to limit deliveries, most recent first.
func (s *Store) RecentDeliveries(limit int) []Delivery {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.deliveries) {
		limit = len(s.deliveries)
	}
	out := make([]Delivery, 0, limit)
	for i := len(s.deliveries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.deliveries[i])
	}
	return out
}

// GetSummary aggregates all rooms. TopRooms holds up to five rooms ordered
// by messages sent.
func (s *Store) GetSummary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{RoomsCreated: s.roomsCreated}
	all := make([]RoomActivity, 0, len(s.rooms))
	for _, a := range s.rooms {
		sum.MessagesSent += a.MessagesSent
		sum.MessagesReceived += a.MessagesReceived
		sum.MembersJoined += a.MembersJoined
		all = append(all, *a)
	}

	slices.SortFunc(all, func(a, b RoomActivity) int {
		if a.MessagesSent != b.MessagesSent {
			if a.MessagesSent > b.MessagesSent {
				return -1
			}
			return 1
		}
		if a.RoomName < b.RoomName {
			return -1
		}
		if a.RoomName > b.RoomName {
			return 1
		}
		return 0
	})
	if len(all) > 5 {
		all = all[:5]
	}
	sum.TopRooms = all
	return sum
}

// room must be called with s.mu held.
func (s *Store) room(name string) *RoomActivity {
	a, ok := s.rooms[name]
	if !ok {
		a = &RoomActivity{RoomName: name}
		s.rooms[name] = a
	}
	return a
}

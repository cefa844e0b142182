package chat

import (
	"context"
	"slices"
	"sync"

	domain "github.com/example/room-chat-demo/domain/chat"
	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/sync/singleflight"
)

// RoomDirectory is the index of declared rooms. Rooms are hydrated lazily on
// first lookup and kept in memory afterwards. Removing a room only drops it
// from the index; its log and members remain in the store.
type RoomDirectory struct {
	mu       sync.RWMutex
	listName string
	declared map[string]struct{}
	pending  map[string]struct{}
	rooms    map[string]*Room

	index  RoomIndex
	deps   RoomDeps
	group  singleflight.Group
	logger types.Logger
}

// NewRoomDirectory creates an empty directory persisted under listName.
func NewRoomDirectory(listName string, index RoomIndex, deps RoomDeps) *RoomDirectory {
	deps = deps.withDefaults()
	return &RoomDirectory{
		listName: listName,
		declared: make(map[string]struct{}),
		pending:  make(map[string]struct{}),
		rooms:    make(map[string]*Room),
		index:    index,
		deps:     deps,
		logger:   deps.Logger.With("room_list", listName),
	}
}

// ListName returns the name the index is persisted under.
func (d *RoomDirectory) ListName() string { return d.listName }

// Load reads the declared room names from the index. Rooms themselves are
// hydrated on demand by Find.
func (d *RoomDirectory) Load(ctx context.Context) error {
	tctx, cancel := withTimeout(ctx, d.deps.Timeout)
	defer cancel()

	names, err := d.index.ListRooms(tctx, d.listName)
	if err != nil {
		return storeFault("list_rooms", "", err)
	}

	d.mu.Lock()
	for _, n := range names {
		d.declared[n] = struct{}{}
	}
	d.mu.Unlock()

	d.logger.Info("Room directory loaded", "rooms", len(names))
	return nil
}

// IsDeclared reports whether name is in the index.
func (d *RoomDirectory) IsDeclared(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.declared[name]
	return ok
}

// Names returns the declared room names in lexical order.
func (d *RoomDirectory) Names() []string {
	d.mu.RLock()
	names := make([]string, 0, len(d.declared))
	for n := range d.declared {
		names = append(names, n)
	}
	d.mu.RUnlock()
	slices.Sort(names)
	return names
}

// Add declares room in the index. It returns false if the name is already
// declared or being declared concurrently.
func (d *RoomDirectory) Add(ctx context.Context, room *Room) (bool, error) {
	name := room.Name()
	if !d.reserve(name, false) {
		d.logger.Info("Room already declared", "room", name)
		return false, nil
	}

	tctx, cancel := withTimeout(ctx, d.deps.Timeout)
	err := d.index.DeclareRoom(tctx, d.listName, name)
	cancel()

	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, name)
	if err != nil {
		return false, storeFault("declare_room", name, err)
	}
	d.declared[name] = struct{}{}
	d.rooms[name] = room
	d.logger.Info("Room declared", "room", name)
	return true, nil
}

// Remove drops name from the index. It returns false if it was not declared.
func (d *RoomDirectory) Remove(ctx context.Context, name string) (bool, error) {
	if !d.reserve(name, true) {
		d.logger.Info("Room not declared", "room", name)
		return false, nil
	}

	tctx, cancel := withTimeout(ctx, d.deps.Timeout)
	err := d.index.UndeclareRoom(tctx, d.listName, name)
	cancel()

	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, name)
	if err != nil {
		return false, storeFault("undeclare_room", name, err)
	}
	delete(d.declared, name)
	delete(d.rooms, name)
	d.logger.Info("Room removed from index", "room", name)
	return true, nil
}

// Find returns the room if it is declared, hydrating it on first use.
// It returns nil, nil for undeclared names.
func (d *RoomDirectory) Find(ctx context.Context, name string) (*Room, error) {
	d.mu.RLock()
	room, cached := d.rooms[name]
	_, declared := d.declared[name]
	d.mu.RUnlock()

	if cached {
		return room, nil
	}
	if !declared {
		return nil, nil
	}

	v, err, _ := d.group.Do(name, func() (any, error) {
		d.mu.RLock()
		existing, ok := d.rooms[name]
		d.mu.RUnlock()
		if ok {
			return existing, nil
		}

		r, err := OpenRoom(ctx, d.deps, name, RoomInit{Type: domain.RoomPublic})
		if err != nil {
			return nil, err
		}

		d.mu.Lock()
		defer d.mu.Unlock()
		if _, still := d.declared[name]; !still {
			return (*Room)(nil), nil
		}
		if existing, ok := d.rooms[name]; ok {
			return existing, nil
		}
		d.rooms[name] = r
		return r, nil
	})
	if err != nil {
		d.logger.Error("Failed to open room", "room", name, "error", err)
		return nil, err
	}
	return v.(*Room), nil
}

// Create opens a new room and declares it. It returns false if the name is
// invalid or already declared. A removed room keeps its data, so the name can
// only be declared again with the room's stored type and owner.
func (d *RoomDirectory) Create(ctx context.Context, name string, init RoomInit) (*Room, bool, error) {
	if err := ValidateRoomName(name); err != nil {
		d.logger.Info("Rejected room name", "room", name, "reason", err.Error())
		return nil, false, nil
	}
	if d.IsDeclared(name) {
		return nil, false, nil
	}

	room, err := OpenRoom(ctx, d.deps, name, init)
	if err != nil {
		return nil, false, err
	}
	if init.Type != domain.RoomPrivate {
		init.Type = domain.RoomPublic
	}
	if room.Type() != init.Type || room.Owner() != init.OwnerAlias {
		d.logger.Warn("Room name held by a removed room",
			"room", name, "type", room.Type().String(), "owner", room.Owner())
		return nil, false, nil
	}
	ok, err := d.Add(ctx, room)
	if err != nil || !ok {
		return nil, false, err
	}
	return room, true, nil
}

// FindOrCreate returns the declared room, creating it with init if needed.
func (d *RoomDirectory) FindOrCreate(ctx context.Context, name string, init RoomInit) (*Room, error) {
	if room, err := d.Find(ctx, name); err != nil || room != nil {
		return room, err
	}
	room, created, err := d.Create(ctx, name, init)
	if err != nil || created {
		return room, err
	}
	// Lost a race with a concurrent Create.
	return d.Find(ctx, name)
}

// reserve marks name pending. With declared set it requires name to be in the
// index, otherwise it requires name to be absent.
func (d *RoomDirectory) reserve(name string, declared bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.pending[name]; busy {
		return false
	}
	if _, ok := d.declared[name]; ok != declared {
		return false
	}
	d.pending[name] = struct{}{}
	return true
}

package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/example/room-chat-demo/domain/chat"
	"github.com/go-monolith/mono/pkg/types"
)

// AllMessages asks Retrieve for the whole log.
const AllMessages = -1

// RoomDeps are the collaborators shared by every room.
type RoomDeps struct {
	Store    Persistence
	Sequence SequenceAllocator
	// Users is the global directory consulted for block lists. Optional.
	Users    *UserDirectory
	Listener RoomListener
	Logger   types.Logger
	Timeout  time.Duration
	Now      func() time.Time
}

func (d RoomDeps) withDefaults() RoomDeps {
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// RoomInit is applied only when a room is created for the first time.
type RoomInit struct {
	Type       domain.RoomType
	OwnerAlias string
}

// Room is an ordered message log with its member list. A single mutex
// serializes Send and Retrieve so sequence order, log order and
// acknowledgments stay consistent.
type Room struct {
	mu sync.Mutex

	name       string
	roomType   domain.RoomType
	owner      string
	createTime time.Time
	modifyTime time.Time
	dirty      bool

	// log is ordered oldest first; readers walk it backwards.
	log     []*domain.Message
	members *UserDirectory

	deps   RoomDeps
	logger types.Logger
}

// OpenRoom hydrates the room from the store, or creates and persists it if
// the store has never seen it. init is ignored for existing rooms.
func OpenRoom(ctx context.Context, deps RoomDeps, name string, init RoomInit) (*Room, error) {
	if err := ValidateRoomName(name); err != nil {
		return nil, err
	}
	deps = deps.withDefaults()

	tctx, cancel := withTimeout(ctx, deps.Timeout)
	meta, err := deps.Store.LoadRoomMetadata(tctx, name)
	cancel()
	if err != nil {
		return nil, storeFault("load_room_metadata", name, err)
	}

	if meta != nil {
		return hydrateRoom(ctx, deps, *meta)
	}
	return createRoom(ctx, deps, name, init)
}

func newRoom(deps RoomDeps, meta domain.RoomMetadata) *Room {
	logger := deps.Logger.With("room", meta.Name)
	return &Room{
		name:       meta.Name,
		roomType:   meta.Type,
		owner:      meta.OwnerAlias,
		createTime: meta.CreateTime,
		modifyTime: meta.ModifyTime,
		members:    NewUserDirectory(MemberScope(meta.Name), deps.Store, logger, deps.Timeout),
		deps:       deps,
		logger:     logger,
	}
}

func createRoom(ctx context.Context, deps RoomDeps, name string, init RoomInit) (*Room, error) {
	if init.Type != domain.RoomPrivate {
		init.Type = domain.RoomPublic
	}
	now := deps.Now()
	r := newRoom(deps, domain.RoomMetadata{
		Name:       name,
		Type:       init.Type,
		OwnerAlias: init.OwnerAlias,
		CreateTime: now,
		ModifyTime: now,
	})
	r.dirty = true

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.saveMetadataLocked(ctx); err != nil {
		return nil, err
	}

	r.logger.Info("Room created", "type", r.roomType.String(), "owner", r.owner)
	return r, nil
}

func hydrateRoom(ctx context.Context, deps RoomDeps, meta domain.RoomMetadata) (*Room, error) {
	r := newRoom(deps, meta)

	if err := r.members.Load(ctx); err != nil {
		return nil, err
	}

	tctx, cancel := withTimeout(ctx, deps.Timeout)
	defer cancel()

	last := int64(0)
	err := deps.Store.StreamMessages(tctx, meta.Name, func(msg *domain.Message) error {
		if seq := msg.Properties.SequenceNum; seq <= last {
			r.logger.Warn("Out of order message in stored log", "sequence_num", seq, "previous", last)
		} else {
			last = seq
		}
		msg.MarkClean()
		r.log = append(r.log, msg)
		return nil
	})
	if err != nil {
		return nil, storeFault("stream_messages", meta.Name, err)
	}

	if seeder, ok := deps.Sequence.(SequenceSeeder); ok && last > 0 {
		sctx, scancel := withTimeout(ctx, deps.Timeout)
		if err := seeder.Seed(sctx, meta.Name, last); err != nil {
			r.logger.Warn("Failed to seed sequence allocator", "head", last, "error", err)
		}
		scancel()
	}

	r.logger.Info("Room restored", "type", r.roomType.String(), "messages", len(r.log), "members", r.members.Len())
	return r, nil
}

// Name returns the room name.
func (r *Room) Name() string { return r.name }

// Type returns the room type.
func (r *Room) Type() domain.RoomType { return r.roomType }

// Owner returns the alias that created the room.
func (r *Room) Owner() string { return r.owner }

// Send appends a message to the log. It returns false, nil when the body is
// invalid or a private room rejects the sender or addressee. roomName is
// recorded in the message properties; an empty value means this room.
func (r *Room) Send(ctx context.Context, body, roomName, from, to string) (bool, error) {
	if err := ValidateMessage(body); err != nil {
		r.logger.Info("Rejected message", "from", from, "reason", err.Error())
		return false, nil
	}
	if roomName == "" {
		roomName = r.name
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.roomType == domain.RoomPrivate {
		if !r.members.IsRegistered(from) || !r.members.IsRegistered(to) {
			r.logger.Warn("Private room rejected message", "from", from, "to", to)
			return false, nil
		}
	}

	seq, err := r.nextSequenceLocked(ctx)
	if err != nil {
		return false, err
	}

	props := domain.NewMessageProperties(domain.MessageSent, roomName, to, from)
	props.SequenceNum = seq
	props.SentTime = r.deps.Now()
	msg := domain.NewMessage(r.logger, body, &props)

	tctx, cancel := withTimeout(ctx, r.deps.Timeout)
	id, err := r.deps.Store.AppendMessage(tctx, r.name, msg)
	cancel()
	if err != nil {
		r.logger.Error("Failed to persist message", "sequence_num", seq, "error", err)
		return false, storeFault("append_message", r.name, err)
	}
	msg.RecordID = id
	msg.MarkClean()

	r.log = append(r.log, msg)
	r.modifyTime = props.SentTime
	r.dirty = true

	// The message is durable at this point; metadata is retried on the next change.
	if err := r.saveMetadataLocked(ctx); err != nil {
		r.logger.Warn("Failed to save room metadata", "error", err)
	}

	if r.deps.Listener != nil {
		r.deps.Listener.MessageSent(msg.Snapshot())
	}
	r.logger.Debug("Message sent", "sequence_num", seq, "from", from, "to", to)
	return true, nil
}

// Retrieve returns up to max messages newest first, skipping senders blocked
// by requester. Messages addressed to requester are acknowledged on their
// first retrieval. A max of zero or less returns everything.
func (r *Room) Retrieve(ctx context.Context, requester string, max int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, storeFault("retrieve", r.name, err)
	}

	capHint := len(r.log)
	if max > 0 && max < capHint {
		capHint = max
	}
	out := make([]domain.Message, 0, capHint)
	now := r.deps.Now()

	for i := len(r.log) - 1; i >= 0; i-- {
		if max > 0 && len(out) >= max {
			break
		}
		msg := r.log[i]
		if r.blockedLocked(requester, msg.Properties.FromUser) {
			continue
		}
		if requester != "" && msg.Properties.ToUser == requester && msg.Acknowledge(now) {
			if r.deps.Listener != nil {
				r.deps.Listener.MessageReceived(msg.Snapshot(), requester)
			}
		}
		if msg.Dirty() {
			r.updateLocked(ctx, msg)
		}
		out = append(out, msg.Snapshot())
	}
	return out, nil
}

// RetrieveBodies is Retrieve reduced to message bodies.
func (r *Room) RetrieveBodies(ctx context.Context, requester string, max int) ([]string, error) {
	msgs, err := r.Retrieve(ctx, requester, max)
	if err != nil {
		return nil, err
	}
	bodies := make([]string, len(msgs))
	for i, m := range msgs {
		bodies[i] = m.Body
	}
	return bodies, nil
}

// FindByBody returns the newest message whose body equals body exactly.
func (r *Room) FindByBody(body string) (domain.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.log) - 1; i >= 0; i-- {
		if r.log[i].Body == body {
			return r.log[i].Snapshot(), true
		}
	}
	return domain.Message{}, false
}

// Latest returns the newest message in the log.
func (r *Room) Latest() (domain.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.log) == 0 {
		return domain.Message{}, false
	}
	return r.log[len(r.log)-1].Snapshot(), true
}

// Len returns the number of messages in the log.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.log)
}

// Metadata returns the room's durable description.
func (r *Room) Metadata() domain.RoomMetadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metadataLocked()
}

// RegisterMember adds alias to the room's member list.
func (r *Room) RegisterMember(ctx context.Context, alias string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ok, err := r.members.Register(ctx, alias)
	if ok {
		r.touchLocked(ctx)
	}
	return ok, err
}

// DeregisterMember removes alias from the room's member list.
func (r *Room) DeregisterMember(ctx context.Context, alias string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ok, err := r.members.Deregister(ctx, alias)
	if ok {
		r.touchLocked(ctx)
	}
	return ok, err
}

// IsMember reports whether alias is an active member.
func (r *Room) IsMember(alias string) bool {
	return r.members.IsRegistered(alias)
}

// Members returns the active member aliases in registration order.
func (r *Room) Members() []string {
	return r.members.Aliases()
}

// BlockForMember updates the room-scoped block list of member alias.
func (r *Room) BlockForMember(ctx context.Context, alias, target string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members.Block(ctx, alias, target)
}

// UnblockForMember reverses BlockForMember.
func (r *Room) UnblockForMember(ctx context.Context, alias, target string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members.Unblock(ctx, alias, target)
}

func (r *Room) String() string {
	return fmt.Sprintf("Room(%s, %s)", r.name, r.roomType)
}

func (r *Room) nextSequenceLocked(ctx context.Context) (int64, error) {
	tctx, cancel := withTimeout(ctx, r.deps.Timeout)
	defer cancel()

	seq, err := r.deps.Sequence.Next(tctx, r.name)
	if err != nil {
		r.logger.Error("Sequence allocation failed", "error", err)
		return domain.UnassignedSequence, storeFault("next_sequence", r.name, err)
	}
	if seq <= 0 {
		return domain.UnassignedSequence, storeFault("next_sequence", r.name, ErrSequenceUnavailable)
	}
	head := r.headLocked()
	if seq > head {
		return seq, nil
	}

	// The allocator lost its state: raise it to the head and try once more.
	r.logger.Warn("Sequence allocator went backwards", "sequence_num", seq, "head", head)
	if seeder, ok := r.deps.Sequence.(SequenceSeeder); ok {
		if err := seeder.Seed(tctx, r.name, head); err != nil {
			return domain.UnassignedSequence, storeFault("next_sequence", r.name, err)
		}
		seq, err = r.deps.Sequence.Next(tctx, r.name)
		if err != nil {
			return domain.UnassignedSequence, storeFault("next_sequence", r.name, err)
		}
		if seq > head {
			r.logger.Info("Sequence allocator reseeded", "head", head, "sequence_num", seq)
			return seq, nil
		}
	}
	r.logger.Error("Sequence allocator behind log head", "sequence_num", seq, "head", head)
	return domain.UnassignedSequence, storeFault("next_sequence", r.name, ErrSequenceRegressed)
}

// headLocked returns the sequence number of the newest message, or zero.
func (r *Room) headLocked() int64 {
	if n := len(r.log); n > 0 {
		return r.log[n-1].Properties.SequenceNum
	}
	return 0
}

// blockedLocked checks the room member list first, then the global directory.
func (r *Room) blockedLocked(requester, sender string) bool {
	if requester == "" || sender == "" {
		return false
	}
	if r.members.IsBlocked(requester, sender) {
		return true
	}
	return r.deps.Users != nil && r.deps.Users.IsBlocked(requester, sender)
}

// updateLocked writes back an acknowledged message. Failures leave the
// message dirty so a later retrieval retries.
func (r *Room) updateLocked(ctx context.Context, msg *domain.Message) {
	tctx, cancel := withTimeout(ctx, r.deps.Timeout)
	defer cancel()

	if err := r.deps.Store.UpdateMessage(tctx, r.name, msg.RecordID, msg); err != nil {
		r.logger.Warn("Failed to persist acknowledgment", "sequence_num", msg.Properties.SequenceNum, "error", err)
		return
	}
	msg.MarkClean()
}

func (r *Room) touchLocked(ctx context.Context) {
	r.modifyTime = r.deps.Now()
	r.dirty = true
	if err := r.saveMetadataLocked(ctx); err != nil {
		r.logger.Warn("Failed to save room metadata", "error", err)
	}
}

func (r *Room) saveMetadataLocked(ctx context.Context) error {
	if !r.dirty {
		return nil
	}
	tctx, cancel := withTimeout(ctx, r.deps.Timeout)
	defer cancel()

	if err := r.deps.Store.SaveRoomMetadata(tctx, r.metadataLocked()); err != nil {
		return storeFault("save_room_metadata", r.name, err)
	}
	r.dirty = false
	return nil
}

func (r *Room) metadataLocked() domain.RoomMetadata {
	return domain.RoomMetadata{
		Name:       r.name,
		Type:       r.roomType,
		OwnerAlias: r.owner,
		CreateTime: r.createTime,
		ModifyTime: r.modifyTime,
	}
}

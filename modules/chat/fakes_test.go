package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	domain "github.com/example/room-chat-demo/domain/chat"
	"github.com/go-monolith/mono/pkg/types"
)

var errInjected = errors.New("injected store failure")

type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }

// recordingLogger keeps the Info messages it receives.
type recordingLogger struct {
	mu    sync.Mutex
	infos []string
}

func (l *recordingLogger) Debug(_ string, _ ...any) {}
func (l *recordingLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}
func (l *recordingLogger) Warn(_ string, _ ...any)          {}
func (l *recordingLogger) Error(_ string, _ ...any)         {}
func (l *recordingLogger) With(_ ...any) types.Logger       { return l }
func (l *recordingLogger) WithModule(_ string) types.Logger { return l }
func (l *recordingLogger) WithError(_ error) types.Logger   { return l }

func (l *recordingLogger) infoMessages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.infos)
}

// memStore implements Persistence and RoomIndex in memory. Operations listed
// in fail return the configured error instead of touching state.
type memStore struct {
	mu       sync.Mutex
	meta     map[string]domain.RoomMetadata
	messages map[string][]*domain.Message
	users    map[string][]*domain.ChatUser
	lists    map[string][]string
	nextID   domain.RecordID
	nextUser int
	fail     map[string]error
	calls    map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		meta:     make(map[string]domain.RoomMetadata),
		messages: make(map[string][]*domain.Message),
		users:    make(map[string][]*domain.ChatUser),
		lists:    make(map[string][]string),
		fail:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (s *memStore) failOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = err
}

func (s *memStore) heal(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fail, op)
}

func (s *memStore) callCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// enter must be called with s.mu held.
func (s *memStore) enter(op string) error {
	s.calls[op]++
	return s.fail[op]
}

func (s *memStore) LoadRoomMetadata(_ context.Context, roomName string) (*domain.RoomMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("load_meta"); err != nil {
		return nil, err
	}
	meta, ok := s.meta[roomName]
	if !ok {
		return nil, nil
	}
	return &meta, nil
}

func (s *memStore) SaveRoomMetadata(_ context.Context, meta domain.RoomMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("save_meta"); err != nil {
		return err
	}
	s.meta[meta.Name] = meta
	return nil
}

func (s *memStore) AppendMessage(ctx context.Context, roomName string, msg *domain.Message) (domain.RecordID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("append"); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.nextID++
	c := msg.Snapshot()
	c.RecordID = s.nextID
	s.messages[roomName] = append(s.messages[roomName], &c)
	return s.nextID, nil
}

func (s *memStore) UpdateMessage(_ context.Context, roomName string, id domain.RecordID, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("update"); err != nil {
		return err
	}
	for i, m := range s.messages[roomName] {
		if m.RecordID == id {
			c := msg.Snapshot()
			c.RecordID = id
			s.messages[roomName][i] = &c
			return nil
		}
	}
	return fmt.Errorf("message %d not found", id)
}

func (s *memStore) StreamMessages(_ context.Context, roomName string, fn func(*domain.Message) error) error {
	s.mu.Lock()
	if err := s.enter("stream"); err != nil {
		s.mu.Unlock()
		return err
	}
	stored := slices.Clone(s.messages[roomName])
	s.mu.Unlock()

	slices.SortStableFunc(stored, func(a, b *domain.Message) int {
		return int(a.Properties.SequenceNum - b.Properties.SequenceNum)
	})
	for _, m := range stored {
		c := m.Snapshot()
		if err := fn(&c); err != nil {
			return err
		}
	}
	return nil
}

func (s *memStore) LoadUserDirectory(_ context.Context, scope string) ([]*domain.ChatUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("load_users"); err != nil {
		return nil, err
	}
	out := make([]*domain.ChatUser, 0, len(s.users[scope]))
	for _, u := range s.users[scope] {
		out = append(out, u.Clone())
	}
	return out, nil
}

func (s *memStore) UpsertUser(_ context.Context, scope string, user *domain.ChatUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("upsert"); err != nil {
		return err
	}
	if user.UserID == "" {
		s.nextUser++
		user.UserID = fmt.Sprintf("user-%d", s.nextUser)
	}
	list := s.users[scope]
	for i, u := range list {
		if u.Alias == user.Alias {
			list[i] = user.Clone()
			return nil
		}
	}
	s.users[scope] = append(list, user.Clone())
	return nil
}

func (s *memStore) ListRooms(_ context.Context, listName string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("list"); err != nil {
		return nil, err
	}
	return slices.Clone(s.lists[listName]), nil
}

func (s *memStore) DeclareRoom(_ context.Context, listName, roomName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("declare"); err != nil {
		return err
	}
	if !slices.Contains(s.lists[listName], roomName) {
		s.lists[listName] = append(s.lists[listName], roomName)
	}
	return nil
}

func (s *memStore) UndeclareRoom(_ context.Context, listName, roomName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("undeclare"); err != nil {
		return err
	}
	s.lists[listName] = slices.DeleteFunc(s.lists[listName], func(n string) bool { return n == roomName })
	return nil
}

func (s *memStore) storedMessages(roomName string) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, 0, len(s.messages[roomName]))
	for _, m := range s.messages[roomName] {
		out = append(out, m.Snapshot())
	}
	return out
}

// memAllocator is an in-memory SequenceAllocator and SequenceSeeder.
type memAllocator struct {
	mu       sync.Mutex
	counters map[string]int64
	err      error
	// next overrides the counter when set.
	next func(room string) int64
}

func newMemAllocator() *memAllocator {
	return &memAllocator{counters: make(map[string]int64)}
}

func (a *memAllocator) Next(ctx context.Context, room string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return domain.UnassignedSequence, a.err
	}
	if err := ctx.Err(); err != nil {
		return domain.UnassignedSequence, err
	}
	if a.next != nil {
		return a.next(room), nil
	}
	a.counters[room]++
	return a.counters[room], nil
}

func (a *memAllocator) Seed(_ context.Context, room string, floor int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.counters[room] < floor {
		a.counters[room] = floor
	}
	return nil
}

func (a *memAllocator) current(room string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counters[room]
}

// reset drops the counter of room, as a flushed Redis would.
func (a *memAllocator) reset(room string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.counters, room)
}

func (a *memAllocator) setErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// recordingListener captures listener callbacks.
type recordingListener struct {
	mu       sync.Mutex
	sent     []domain.Message
	received []domain.Message
	by       []string
}

func (l *recordingListener) MessageSent(msg domain.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, msg)
}

func (l *recordingListener) MessageReceived(msg domain.Message, by string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.received = append(l.received, msg)
	l.by = append(l.by, by)
}

func (l *recordingListener) receivedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.received)
}

func (l *recordingListener) sentCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sent)
}

type testEnv struct {
	store    *memStore
	alloc    *memAllocator
	users    *UserDirectory
	listener *recordingListener
	clock    *fakeClock
}

// fakeClock advances by one second on every call.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestEnv() *testEnv {
	st := newMemStore()
	return &testEnv{
		store:    st,
		alloc:    newMemAllocator(),
		users:    NewUserDirectory(DefaultUserList, st, &mockLogger{}, time.Second),
		listener: &recordingListener{},
		clock:    newFakeClock(),
	}
}

func (e *testEnv) deps() RoomDeps {
	return RoomDeps{
		Store:    e.store,
		Sequence: e.alloc,
		Users:    e.users,
		Listener: e.listener,
		Logger:   &mockLogger{},
		Timeout:  time.Second,
		Now:      e.clock.Now,
	}
}

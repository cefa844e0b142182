package chat

import (
	"context"
	"slices"
	"sync"
	"time"

	domain "github.com/example/room-chat-demo/domain/chat"
	"github.com/go-monolith/mono/pkg/types"
)

// MemberScope returns the user store scope holding a room's member list.
func MemberScope(roomName string) string {
	return "room:" + roomName
}

// UserDirectory is an ordered set of registered aliases with tombstones.
// Deregistered users stay in the list marked removed, and registering the
// alias again revives it.
type UserDirectory struct {
	mu      sync.RWMutex
	scope   string
	users   []*domain.ChatUser
	store   UserStore
	logger  types.Logger
	timeout time.Duration
}

// NewUserDirectory creates an empty directory bound to scope.
func NewUserDirectory(scope string, store UserStore, logger types.Logger, timeout time.Duration) *UserDirectory {
	return &UserDirectory{
		scope:   scope,
		store:   store,
		logger:  logger,
		timeout: timeout,
	}
}

// Scope returns the store scope of this directory.
func (d *UserDirectory) Scope() string { return d.scope }

// Load replaces the in-memory state with what the store holds.
func (d *UserDirectory) Load(ctx context.Context) error {
	tctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	users, err := d.store.LoadUserDirectory(tctx, d.scope)
	if err != nil {
		return storeFault("load_users", "", err)
	}

	seen := make(map[string]struct{}, len(users))
	loaded := make([]*domain.ChatUser, 0, len(users))
	for _, u := range users {
		if _, dup := seen[u.Alias]; dup {
			d.logger.Warn("Duplicate alias in stored directory, keeping first", "scope", d.scope, "alias", u.Alias)
			continue
		}
		seen[u.Alias] = struct{}{}
		u.MarkClean()
		loaded = append(loaded, u)
	}

	d.mu.Lock()
	d.users = loaded
	d.mu.Unlock()

	d.logger.Debug("User directory loaded", "scope", d.scope, "count", len(loaded))
	return nil
}

// Register adds alias to the directory. It returns false if the alias is
// invalid or already active. A removed alias is revived with a fresh record.
func (d *UserDirectory) Register(ctx context.Context, alias string) (bool, error) {
	if err := ValidateAlias(alias); err != nil {
		d.logger.Info("Rejected alias", "scope", d.scope, "alias", alias, "reason", err.Error())
		return false, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.indexOf(alias)
	if idx >= 0 && !d.users[idx].Removed {
		d.logger.Info("Alias already registered", "scope", d.scope, "alias", alias)
		return false, nil
	}

	user := domain.NewChatUser(alias, time.Now())
	var prev *domain.ChatUser
	if idx >= 0 {
		prev = d.users[idx]
		user.UserID = prev.UserID
		d.users = slices.Delete(d.users, idx, idx+1)
	}
	d.users = append(d.users, user)

	if err := d.persist(ctx, user); err != nil {
		d.users = d.users[:len(d.users)-1]
		if prev != nil {
			d.users = slices.Insert(d.users, idx, prev)
		}
		return false, err
	}

	d.logger.Info("Alias registered", "scope", d.scope, "alias", alias, "revived", prev != nil)
	return true, nil
}

// Deregister marks alias as removed. It returns false if no active user has it.
func (d *UserDirectory) Deregister(ctx context.Context, alias string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	user := d.active(alias)
	if user == nil {
		d.logger.Info("Alias not registered", "scope", d.scope, "alias", alias)
		return false, nil
	}

	prev := user.Clone()
	user.Removed = true
	user.ModifyTime = time.Now()
	user.MarkDirty()

	if err := d.persist(ctx, user); err != nil {
		*user = *prev
		return false, err
	}

	d.logger.Info("Alias deregistered", "scope", d.scope, "alias", alias)
	return true, nil
}

// IsRegistered reports whether alias is present and not removed.
func (d *UserDirectory) IsRegistered(alias string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.active(alias) != nil
}

// Get returns a copy of the active user with alias, or nil.
func (d *UserDirectory) Get(alias string) *domain.ChatUser {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if u := d.active(alias); u != nil {
		return u.Clone()
	}
	return nil
}

// Aliases returns the active aliases in registration order.
func (d *UserDirectory) Aliases() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.users))
	for _, u := range d.users {
		if !u.Removed {
			out = append(out, u.Alias)
		}
	}
	return out
}

// Users returns copies of the active users in registration order.
func (d *UserDirectory) Users() []*domain.ChatUser {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*domain.ChatUser, 0, len(d.users))
	for _, u := range d.users {
		if !u.Removed {
			out = append(out, u.Clone())
		}
	}
	return out
}

// Len returns the number of active users.
func (d *UserDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, u := range d.users {
		if !u.Removed {
			n++
		}
	}
	return n
}

// Block makes alias ignore messages from target. Blocking is one-directional.
func (d *UserDirectory) Block(ctx context.Context, alias, target string) (bool, error) {
	if err := ValidateAlias(target); err != nil {
		return false, nil
	}
	return d.mutate(ctx, alias, func(u *domain.ChatUser, now time.Time) bool {
		return u.Block(target, now)
	})
}

// Unblock reverses Block.
func (d *UserDirectory) Unblock(ctx context.Context, alias, target string) (bool, error) {
	return d.mutate(ctx, alias, func(u *domain.ChatUser, now time.Time) bool {
		return u.Unblock(target, now)
	})
}

// IsBlocked reports whether the active user alias has blocked sender.
// Unknown aliases block nobody.
func (d *UserDirectory) IsBlocked(alias, sender string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u := d.active(alias)
	return u != nil && u.IsBlocked(sender)
}

func (d *UserDirectory) mutate(ctx context.Context, alias string, fn func(*domain.ChatUser, time.Time) bool) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	user := d.active(alias)
	if user == nil {
		d.logger.Info("Block list change for unknown alias", "scope", d.scope, "alias", alias)
		return false, nil
	}
	prev := user.Clone()
	if !fn(user, time.Now()) {
		d.logger.Info("Block list unchanged", "scope", d.scope, "alias", alias)
		return false, nil
	}
	if err := d.persist(ctx, user); err != nil {
		*user = *prev
		return false, err
	}
	return true, nil
}

// persist must be called with d.mu held.
func (d *UserDirectory) persist(ctx context.Context, user *domain.ChatUser) error {
	tctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.store.UpsertUser(tctx, d.scope, user); err != nil {
		d.logger.Error("Failed to persist user", "scope", d.scope, "alias", user.Alias, "error", err)
		return storeFault("upsert_user", "", err)
	}
	user.MarkClean()
	return nil
}

func (d *UserDirectory) indexOf(alias string) int {
	return slices.IndexFunc(d.users, func(u *domain.ChatUser) bool { return u.Alias == alias })
}

func (d *UserDirectory) active(alias string) *domain.ChatUser {
	if i := d.indexOf(alias); i >= 0 && !d.users[i].Removed {
		return d.users[i]
	}
	return nil
}

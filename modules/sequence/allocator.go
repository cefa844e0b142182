package sequence

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/example/room-chat-demo/domain/chat"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix is prepended to room names to form counter keys.
const DefaultPrefix = "chat:seq:"

// seedScript raises a counter to ARGV[1] if it is lower and returns the result.
var seedScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local floor = tonumber(ARGV[1])
if cur < floor then
  redis.call('SET', KEYS[1], floor)
  return floor
end
return cur
`)

// RedisAllocator hands out per-room sequence numbers with INCR. The counter
// is atomic across processes and survives restarts as far as Redis
// persistence does.
type RedisAllocator struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisAllocator creates an allocator using keys prefix+room.
func NewRedisAllocator(client redis.UniversalClient, prefix string) *RedisAllocator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisAllocator{client: client, prefix: prefix}
}

// Next returns the next number for roomName, starting at 1.
func (a *RedisAllocator) Next(ctx context.Context, roomName string) (int64, error) {
	n, err := a.client.Incr(ctx, a.key(roomName)).Result()
	if err != nil {
		return domain.UnassignedSequence, fmt.Errorf("failed to increment sequence for room %s: %w", roomName, err)
	}
	return n, nil
}

// Seed raises the counter of roomName to at least floor.
func (a *RedisAllocator) Seed(ctx context.Context, roomName string, floor int64) error {
	if err := seedScript.Run(ctx, a.client, []string{a.key(roomName)}, floor).Err(); err != nil {
		return fmt.Errorf("failed to seed sequence for room %s: %w", roomName, err)
	}
	return nil
}

// Current returns the last number handed out for roomName, or zero.
func (a *RedisAllocator) Current(ctx context.Context, roomName string) (int64, error) {
	n, err := a.client.Get(ctx, a.key(roomName)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read sequence for room %s: %w", roomName, err)
	}
	return n, nil
}

func (a *RedisAllocator) key(roomName string) string {
	return a.prefix + roomName
}

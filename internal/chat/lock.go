package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes turns on the same conversation. Locks are advisory: a
// turn that cannot take the lock still runs.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// ErrLockBusy is returned when another turn holds the lock.
var ErrLockBusy = errors.New("lock held by another turn")

// NoopLocker never blocks.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker takes locks with SET NX PX, polling until the wait budget runs out.
type RedisLocker struct {
	Client   *redis.Client
	Prefix   string
	MaxWait  time.Duration
	Interval time.Duration
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		Client:   client,
		Prefix:   "planwise:lock:conversation:",
		MaxWait:  5 * time.Second,
		Interval: 100 * time.Millisecond,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lockKey := l.Prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.MaxWait)
	for {
		ok, err := l.Client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// the turn context may already be cancelled
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.Client, []string{lockKey}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.Interval):
		}
	}
}

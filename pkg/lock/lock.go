// Package lock provides short-lived mutual exclusion keyed by string, backed
// by Redis across processes or by a map within one process.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the key stayed held for the whole wait.
var ErrNotAcquired = errors.New("lock not acquired")

const retryInterval = 25 * time.Millisecond

// Locker acquires a lock on key. The returned release func is safe to call
// once the lock has expired; it never releases a lock taken by someone else.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX and a compare-and-delete
// release script.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisLocker(client redis.UniversalClient, prefix string, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl, wait: wait}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	fullKey := l.prefix + "lock:" + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.client, []string{fullKey}, token).Err()
			}, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// LocalLocker implements Locker for a single process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
	wait time.Duration
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{held: make(map[string]chan struct{}), wait: wait}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	for {
		l.mu.Lock()
		ch, busy := l.held[key]
		if !busy {
			done := make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(done)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ch:
		case <-timer.C:
			return nil, ErrNotAcquired
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// AcquireAll takes every key in order and releases them in reverse. On
// failure nothing stays held.
func AcquireAll(ctx context.Context, l Locker, keys ...string) (func(), error) {
	releases := make([]func(), 0, len(keys))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	for _, key := range keys {
		release, err := l.Acquire(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}

	return releaseAll, nil
}

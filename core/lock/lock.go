package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a lock could not be acquired before the context ended.
var ErrLockTimeout = errors.New("lock: timed out waiting for lock")

// Release frees a held lock. It is safe to call more than once.
type Release func()

// Locker serializes work on a key.
type Locker interface {
	// Acquire blocks until the key is free or ctx is done.
	// ttl bounds how long a crashed holder can keep a distributed lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// Config selects the lock backend.
type Config struct {
	// Driver is "local" (in-process) or "redis".
	Driver string `mapstructure:"driver" default:"local"`
	// Addr is the redis address.
	Addr string `mapstructure:"addr" default:"localhost:6379"`
	// Password is the redis password.
	Password string `mapstructure:"password" default:""`
	// DB is the redis database index.
	DB int `mapstructure:"db" default:"0"`
	// TTLSeconds bounds how long one sync may hold its pair lock.
	TTLSeconds int `mapstructure:"ttl_seconds" default:"300"`
}

// TTL returns the configured lock lifetime.
func (c Config) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

// LocalLocker is an in-process keyed lock.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocal creates an in-process keyed lock.
func NewLocal() *LocalLocker {
	return &LocalLocker{slots: make(map[string]chan struct{})}
}

// Acquire waits for the key's slot. ttl is ignored because the holder shares the process.
func (l *LocalLocker) Acquire(ctx context.Context, key string, _ time.Duration) (Release, error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ErrLockTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-slot })
	}, nil
}

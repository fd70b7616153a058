package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DayFileLocker serializes writers of one day-file. The returned unlock must be called exactly once.
type DayFileLocker interface {
	Lock(ctx context.Context, day string) (unlock func(), err error)
}

// releaseScript deletes the lease only while it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisDayFileLocker takes a SETNX lease per day so that several instances can share one upload dir
type RedisDayFileLocker struct {
	rc           *redis.Client
	prefix       string
	ttl          time.Duration
	pollInterval time.Duration
}

func NewRedisDayFileLocker(rc *redis.Client, prefix string, ttl, pollInterval time.Duration) *RedisDayFileLocker {
	return &RedisDayFileLocker{rc: rc, prefix: prefix, ttl: ttl, pollInterval: pollInterval}
}

func (l *RedisDayFileLocker) key(day string) string {
	return l.prefix + day
}

func (l *RedisDayFileLocker) Lock(ctx context.Context, day string) (func(), error) {
	lockKey := l.key(day)
	token := uuid.NewString()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.rc.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire day-file lease: %w", err)
		}
		if ok {
			return func() {
				_ = releaseScript.Run(context.Background(), l.rc, []string{lockKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// LocalDayFileLocker is an in-process keyed mutex, used when no redis is configured.
// A day's slot lives only while someone holds or waits for it.
type LocalDayFileLocker struct {
	mu    sync.Mutex
	slots map[string]*daySlot
}

type daySlot struct {
	ch   chan struct{}
	refs int
}

func NewLocalDayFileLocker() *LocalDayFileLocker {
	return &LocalDayFileLocker{slots: make(map[string]*daySlot)}
}

func (l *LocalDayFileLocker) acquire(day string) *daySlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[day]
	if !ok {
		s = &daySlot{ch: make(chan struct{}, 1)}
		l.slots[day] = s
	}
	s.refs++
	return s
}

func (l *LocalDayFileLocker) release(day string, s *daySlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, day)
	}
}

func (l *LocalDayFileLocker) Lock(ctx context.Context, day string) (func(), error) {
	s := l.acquire(day)
	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.release(day, s)
			})
		}, nil
	case <-ctx.Done():
		l.release(day, s)
		return nil, ctx.Err()
	}
}

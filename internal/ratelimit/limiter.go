package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// MessageWindow is the minimum spacing between two messages of one sender.
const MessageWindow = time.Second

// ErrRateLimited is returned when a sender writes again inside the window.
var ErrRateLimited = errors.New("please wait a moment before sending another message")

// Limiter admits at most one event per key per window.
type Limiter interface {
	Allow(ctx context.Context, senderID uuid.UUID) error
}

// MemoryLimiter keeps the last accepted time per sender in process memory.
type MemoryLimiter struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	last   map[uuid.UUID]time.Time
}

func NewMemoryLimiter(window time.Duration) *MemoryLimiter {
	return NewMemoryLimiterWithClock(window, time.Now)
}

func NewMemoryLimiterWithClock(window time.Duration, now func() time.Time) *MemoryLimiter {
	return &MemoryLimiter{
		window: window,
		now:    now,
		last:   make(map[uuid.UUID]time.Time),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, senderID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if prev, ok := l.last[senderID]; ok && now.Sub(prev) < l.window {
		return ErrRateLimited
	}
	l.last[senderID] = now

	// Drop stale entries once the map grows, so idle senders don't accumulate.
	if len(l.last) > 10000 {
		for id, t := range l.last {
			if now.Sub(t) >= l.window {
				delete(l.last, id)
			}
		}
	}
	return nil
}

// RedisLimiter shares the window across server instances using SET NX PX.
type RedisLimiter struct {
	client *backend.Client
	prefix string
	window time.Duration
}

func NewRedisLimiter(client *backend.Client, prefix string, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		window: window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, senderID uuid.UUID) error {
	key := l.prefix + "msg:" + senderID.String()
	ok, err := l.client.SetNX(ctx, key, time.Now().UnixMilli(), l.window).Result()
	if err != nil {
		return fmt.Errorf("redis error checking rate limit: %w", err)
	}
	if !ok {
		return ErrRateLimited
	}
	return nil
}

package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPairWindow is the minimum spacing between upstream fetches of one pair.
const DefaultPairWindow = 24 * time.Hour

// PairWindow spaces upstream fetches of a currency pair. Reserve claims the
// pair for one window and reports false when another fetch already holds it;
// the check and the claim are a single step. Release drops a claim whose
// fetch failed so the next request may try again.
type PairWindow interface {
	Reserve(ctx context.Context, pair string) (bool, error)
	Release(ctx context.Context, pair string) error
}

// MemoryPairWindow keeps fetch timestamps in process memory. State is lost
// on restart and is not shared between instances.
type MemoryPairWindow struct {
	mu     sync.Mutex
	last   map[string]time.Time
	window time.Duration
	now    func() time.Time
}

// NewMemoryPairWindow creates an in-memory window. A nil clock uses time.Now.
func NewMemoryPairWindow(window time.Duration, now func() time.Time) *MemoryPairWindow {
	if window <= 0 {
		window = DefaultPairWindow
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryPairWindow{
		last:   make(map[string]time.Time),
		window: window,
		now:    now,
	}
}

func (m *MemoryPairWindow) Reserve(_ context.Context, pair string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if at, ok := m.last[pair]; ok && now.Sub(at) < m.window {
		return false, nil
	}
	m.last[pair] = now
	return true, nil
}

func (m *MemoryPairWindow) Release(_ context.Context, pair string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.last, pair)
	return nil
}

// RedisPairWindow shares fetch windows between instances through Redis keys
// that expire with the window.
type RedisPairWindow struct {
	client *redis.Client
	prefix string
	window time.Duration
}

// NewRedisPairWindow creates a Redis backed window.
func NewRedisPairWindow(client *redis.Client, window time.Duration) *RedisPairWindow {
	if window <= 0 {
		window = DefaultPairWindow
	}
	return &RedisPairWindow{
		client: client,
		prefix: "ratelimit:pair:",
		window: window,
	}
}

// Reserve claims the pair with SET NX and the window as expiry.
func (r *RedisPairWindow) Reserve(ctx context.Context, pair string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+pair, time.Now().UTC().Format(time.RFC3339), r.window).Result()
	if err != nil {
		return false, fmt.Errorf("reserve pair window %s: %w", pair, err)
	}
	return ok, nil
}

func (r *RedisPairWindow) Release(ctx context.Context, pair string) error {
	if err := r.client.Del(ctx, r.prefix+pair).Err(); err != nil {
		return fmt.Errorf("release pair window %s: %w", pair, err)
	}
	return nil
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return client, nil
}

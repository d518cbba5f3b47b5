package httpmiddleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LoginLimiter counts failed logins per client. Only failures are recorded; a successful
// login leaves the count alone.
type LoginLimiter interface {
	RecordFailure(ctx context.Context, key string) error
	Blocked(ctx context.Context, key string) (bool, error)
}

// MemoryAttempts keeps a sliding window of failure timestamps per key in process memory.
type MemoryAttempts struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	attempts map[string][]time.Time
	now      func() time.Time
}

// NewMemoryAttempts blocks a key after max failures within window.
func NewMemoryAttempts(max int, window time.Duration) *MemoryAttempts {
	return &MemoryAttempts{max: max, window: window, attempts: map[string][]time.Time{}, now: time.Now}
}

// SetClock overrides the time source.
func (m *MemoryAttempts) SetClock(now func() time.Time) { m.now = now }

func (m *MemoryAttempts) RecordFailure(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[key] = append(m.attempts[key], m.now())
	return nil
}

func (m *MemoryAttempts) Blocked(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	kept := m.attempts[key][:0]
	for _, at := range m.attempts[key] {
		if now.Sub(at) < m.window {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(m.attempts, key)
		return false, nil
	}
	m.attempts[key] = kept
	return len(kept) >= m.max, nil
}

// RedisAttempts shares the failure window across instances using one sorted set per key,
// scored by attempt time.
type RedisAttempts struct {
	client *redis.Client
	max    int
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisAttempts blocks a key after max failures within window.
func NewRedisAttempts(client *redis.Client, max int, window time.Duration) *RedisAttempts {
	return &RedisAttempts{client: client, max: max, window: window, prefix: "academy:login-failures:", now: time.Now}
}

func (r *RedisAttempts) RecordFailure(ctx context.Context, key string) error {
	now := r.now()
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, r.prefix+key, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
		pipe.Expire(ctx, r.prefix+key, r.window)
		return nil
	})
	return err
}

func (r *RedisAttempts) Blocked(ctx context.Context, key string) (bool, error) {
	cutoff := r.now().Add(-r.window).UnixNano()
	var card *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, r.prefix+key, "-inf", strconv.FormatInt(cutoff, 10))
		card = pipe.ZCard(ctx, r.prefix+key)
		return nil
	})
	if err != nil {
		return false, err
	}
	return card.Val() >= int64(r.max), nil
}

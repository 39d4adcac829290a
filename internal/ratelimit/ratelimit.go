// Package ratelimit throttles expensive endpoints per client key.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// package-level logger for internal/ratelimit; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by internal/ratelimit. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Limiter decides whether one more request for key is allowed right now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter counts requests per key in a fixed one-minute window shared by
// every instance pointing at the same Redis. The counter lives at ratelimit:{key}.
type RedisLimiter struct {
	client    *redis.Client
	perMinute int
	window    time.Duration
}

func NewRedisLimiter(client *redis.Client, perMinute int) *RedisLimiter {
	return &RedisLimiter{client: client, perMinute: perMinute, window: time.Minute}
}

// Dial connects to Redis and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// Allow increments the window counter. INCR and EXPIRE NX go out in one
// MULTI/EXEC so a counter never outlives its window. Redis errors let the
// request through.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := "ratelimit:" + key

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.window)
		return nil
	})
	if err != nil {
		logger.Warn("ratelimit: redis unavailable, allowing request", slog.String("key", key), slog.String("error", err.Error()))
		return true, nil
	}

	return incr.Val() <= int64(l.perMinute), nil
}

// LocalLimiter keeps one token bucket per key in process memory.
type LocalLimiter struct {
	mu      sync.Mutex
	m       map[string]*entry
	r       rate.Limit
	b       int
	maxKeys int
	now     func() time.Time
}

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewLocalLimiter(perMinute, burst int) *LocalLimiter {
	return &LocalLimiter{
		m:       make(map[string]*entry),
		r:       rate.Limit(float64(perMinute) / 60),
		b:       burst,
		maxKeys: 10000,
		now:     time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.m[key]
	if !ok {
		if len(l.m) >= l.maxKeys {
			l.evictIdle(now)
		}
		e = &entry{lim: rate.NewLimiter(l.r, l.b)}
		l.m[key] = e
	}
	e.seen = now

	return e.lim.AllowN(now, 1), nil
}

// evictIdle drops buckets that have had time to refill completely.
func (l *LocalLimiter) evictIdle(now time.Time) {
	idle := time.Minute
	if l.r > 0 {
		idle = time.Duration(float64(l.b)/float64(l.r)*float64(time.Second)) + time.Minute
	}
	for k, e := range l.m {
		if now.Sub(e.seen) > idle {
			delete(l.m, k)
		}
	}
}

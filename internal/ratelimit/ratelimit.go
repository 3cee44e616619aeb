// Package ratelimit bounds request rates per client key, in Redis when shared
// across replicas and in process otherwise.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Limiter decides whether one more request for key fits the budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter is a token bucket per key held in memory.
type LocalLimiter struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewLocalLimiter allows perWindow requests per window for each key.
func NewLocalLimiter(perWindow int, window time.Duration) *LocalLimiter {
	if perWindow <= 0 {
		perWindow = 1
	}
	return &LocalLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Every(window / time.Duration(perWindow)),
		burst:   perWindow,
		ttl:     5 * window,
		now:     time.Now,
	}
}

// Allow consumes one token for key.
func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastSweep) > l.ttl {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) > l.ttl {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}
	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1), nil
}

// RedisLimiter is a fixed window counter shared through Redis.
type RedisLimiter struct {
	client    redis.UniversalClient
	prefix    string
	perWindow int
	window    time.Duration
	fallback  Limiter
}

// NewRedisLimiter counts requests under prefix; fallback serves while Redis is unreachable.
func NewRedisLimiter(client redis.UniversalClient, prefix string, perWindow int, window time.Duration, fallback Limiter) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		prefix:    prefix,
		perWindow: perWindow,
		window:    window,
		fallback:  fallback,
	}
}

// Allow increments the key's counter for the current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := time.Now().UnixNano() / int64(l.window)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, errExec := pipe.Exec(ctx); errExec != nil {
		if l.fallback == nil {
			return false, fmt.Errorf("ratelimit: redis: %w", errExec)
		}
		log.WithError(errExec).Warn("ratelimit: redis unavailable, using local limiter")
		return l.fallback.Allow(ctx, key)
	}
	return incr.Val() <= int64(l.perWindow), nil
}

// New returns a Redis-backed limiter when client is set, otherwise a local one.
func New(client redis.UniversalClient, prefix string, perMinute int) Limiter {
	local := NewLocalLimiter(perMinute, time.Minute)
	if client == nil {
		return local
	}
	return NewRedisLimiter(client, prefix, perMinute, time.Minute, local)
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

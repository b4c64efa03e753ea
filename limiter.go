package saunasite

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eringen/saunasite/logger"
)

// Limiter rate-limits failed admin logins per client IP.
type Limiter interface {
	// Check reports whether key may attempt another login.
	Check(ctx context.Context, key string) bool
	// Record registers a failed attempt for key.
	Record(ctx context.Context, key string)
}

// LoginLimiter is an in-process sliding window limiter.
type LoginLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewLoginLimiter creates a LoginLimiter that allows max attempts per window.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	l := &LoginLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		stop:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Close stops the background cleanup.
func (l *LoginLimiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *LoginLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}
		cutoff := time.Now().Add(-l.window)
		l.mu.Lock()
		for ip, hits := range l.attempts {
			kept := prune(hits, cutoff)
			if len(kept) == 0 {
				delete(l.attempts, ip)
			} else {
				l.attempts[ip] = kept
			}
		}
		l.mu.Unlock()
	}
}

func prune(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Allow checks the limit and records the attempt in one step.
func (l *LoginLimiter) Allow(ip string) bool {
	ctx := context.Background()
	if !l.Check(ctx, ip) {
		return false
	}
	l.Record(ctx, ip)
	return true
}

// Check returns true if the IP has not exceeded the rate limit.
// It does not record an attempt; call Record separately on failure.
func (l *LoginLimiter) Check(_ context.Context, ip string) bool {
	cutoff := time.Now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := prune(l.attempts[ip], cutoff)
	l.attempts[ip] = kept
	return len(kept) < l.max
}

// Record registers a failed login attempt for the given IP.
func (l *LoginLimiter) Record(_ context.Context, ip string) {
	l.mu.Lock()
	l.attempts[ip] = append(l.attempts[ip], time.Now())
	l.mu.Unlock()
}

// RedisLimiter counts failed attempts in Redis with a fixed window so
// several instances share one budget. Redis errors fail open and are logged.
type RedisLimiter struct {
	client redis.Cmdable
	max    int
	window time.Duration
	prefix string
	log    logger.Logger
}

// NewRedisLimiter returns a limiter backed by client.
func NewRedisLimiter(client redis.Cmdable, max int, window time.Duration, log logger.Logger) *RedisLimiter {
	if log == nil {
		log = logger.NewNop()
	}
	return &RedisLimiter{client: client, max: max, window: window, prefix: "saunasite:login:", log: log}
}

func (l *RedisLimiter) key(ip string) string { return l.prefix + ip }

func (l *RedisLimiter) Check(ctx context.Context, ip string) bool {
	n, err := l.client.Get(ctx, l.key(ip)).Int()
	if errors.Is(err, redis.Nil) {
		return true
	}
	if err != nil {
		l.log.Warn("login limiter unavailable", logger.String("ip", ip), logger.Error(err))
		return true
	}
	return n < l.max
}

func (l *RedisLimiter) Record(ctx context.Context, ip string) {
	k := l.key(ip)
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		l.log.Warn("login limiter record failed", logger.String("ip", ip), logger.Error(err))
		return
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			l.log.Warn("login limiter expire failed", logger.String("ip", ip), logger.Error(err))
		}
	}
}

// newRedisClient connects and pings, giving up after timeout.
func newRedisClient(ctx context.Context, addr, password string, db int, timeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: timeout,
	})
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

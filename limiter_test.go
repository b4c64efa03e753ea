package saunasite

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestLoginLimiterBlocksAfterMax(t *testing.T) {
	limiter := NewLoginLimiter(2, 200*time.Millisecond)
	defer limiter.Close()
	ip := "203.0.113.10"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	if !limiter.Allow(ip) {
		t.Fatalf("expected second attempt to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected third attempt to be blocked")
	}
}

func TestLoginLimiterResetsAfterWindow(t *testing.T) {
	limiter := NewLoginLimiter(1, 150*time.Millisecond)
	defer limiter.Close()
	ip := "203.0.113.20"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected second attempt to be blocked")
	}

	time.Sleep(200 * time.Millisecond)
	if !limiter.Allow(ip) {
		t.Fatalf("expected attempt after window to be allowed")
	}
}

func TestLoginLimiterIsPerIP(t *testing.T) {
	limiter := NewLoginLimiter(1, 200*time.Millisecond)
	defer limiter.Close()

	if !limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be allowed")
	}
	if !limiter.Allow("203.0.113.31") {
		t.Fatalf("expected second ip to be allowed independently")
	}
	if limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be blocked after max")
	}
}

func TestLoginLimiterCheckDoesNotRecord(t *testing.T) {
	limiter := NewLoginLimiter(1, time.Minute)
	defer limiter.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !limiter.Check(ctx, "203.0.113.40") {
			t.Fatalf("Check %d should not consume the budget", i)
		}
	}
	limiter.Record(ctx, "203.0.113.40")
	if limiter.Check(ctx, "203.0.113.40") {
		t.Fatal("expected block after one recorded failure")
	}
}

func TestRedisLimiterFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	l := NewRedisLimiter(client, 1, time.Minute, nil)
	ctx := context.Background()
	l.Record(ctx, "203.0.113.50")
	if !l.Check(ctx, "203.0.113.50") {
		t.Fatal("unreachable redis should not lock admins out")
	}
}

func TestNewRedisClientPingFails(t *testing.T) {
	if _, err := newRedisClient(context.Background(), "127.0.0.1:1", "", 0, 50*time.Millisecond); err == nil {
		t.Fatal("expected ping error for closed port")
	}
}

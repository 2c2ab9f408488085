package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/kajrofficep/cafeteria/internal/pkg/metrics"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newMiniRedis(t *testing.T) *redis.Client {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(s.Close)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		if err := rdb.Close(); err != nil {
			t.Fatalf("close redis: %v", err)
		}
	})
	return rdb
}

func TestRateLimiter_AcquireReducesTokens(t *testing.T) {
	metrics.InitMetrics()
	rdb := newMiniRedis(t)

	limiter := NewRedisRateLimiter(rdb, nil, "test:ratelimit:basic", 10, 2)
	if err := limiter.Acquire(context.Background(), "1.2.3.4"); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	tokensStr, err := rdb.HGet(context.Background(), "test:ratelimit:basic:1.2.3.4", "tokens").Result()
	if err != nil {
		t.Fatalf("hget tokens: %v", err)
	}
	tokens, err := strconv.ParseFloat(tokensStr, 64)
	if err != nil {
		t.Fatalf("parse tokens: %v", err)
	}
	if tokens > 1.1 {
		t.Fatalf("expected tokens to decrease, got %.2f", tokens)
	}
}

func TestRateLimiter_PerClientBuckets(t *testing.T) {
	metrics.InitMetrics()
	rdb := newMiniRedis(t)

	limiter := NewRedisRateLimiter(rdb, nil, "test:ratelimit:clients", 1, 1)
	if err := limiter.Acquire(context.Background(), "a"); err != nil {
		t.Fatalf("acquire a: %v", err)
	}

	// 另一个客户端的桶独立，不受 a 耗尽影响
	allowed, err := limiter.Allow(context.Background(), "b")
	if err != nil {
		t.Fatalf("allow b: %v", err)
	}
	if !allowed {
		t.Fatalf("expected fresh bucket for a different client")
	}

	allowed, err = limiter.Allow(context.Background(), "a")
	if err != nil {
		t.Fatalf("allow a: %v", err)
	}
	if allowed {
		t.Fatalf("expected exhausted bucket for the same client")
	}
}

func TestRateLimiter_ContextTimeout(t *testing.T) {
	metrics.InitMetrics()
	rdb := newMiniRedis(t)

	limiter := NewRedisRateLimiter(rdb, nil, "test:ratelimit:timeout", 1, 1)
	if err := limiter.Acquire(context.Background(), "x"); err != nil {
		t.Fatalf("warm acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := limiter.Acquire(ctx, "x")
	if !errors.Is(err, ErrRateLimitTimeout) {
		t.Fatalf("expected ErrRateLimitTimeout, got %v", err)
	}
}

func TestRateLimiter_DisabledPassesThrough(t *testing.T) {
	metrics.InitMetrics()
	limiter := NewRedisRateLimiter(nil, nil, "test:ratelimit:off", 0, 0)
	if err := limiter.Acquire(context.Background(), "anyone"); err != nil {
		t.Fatalf("disabled limiter must allow: %v", err)
	}
}

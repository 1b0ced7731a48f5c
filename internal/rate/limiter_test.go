package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiterTest(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return New(rdb, cfg), mr
}

func TestFailReachesLimit(t *testing.T) {
	l, _ := newLimiterTest(t, Config{MaxAttempts: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 1; i < 3; i++ {
		if err := l.Fail(ctx, ScopeLogin, "a@b.com"); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if err := l.Fail(ctx, ScopeLogin, "a@b.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.Check(ctx, ScopeLogin, "a@b.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("check: expected ErrRateLimited, got %v", err)
	}
	if err := l.Check(ctx, ScopeRegister, "a@b.com"); err != nil {
		t.Fatalf("scopes must be independent: %v", err)
	}
}

func TestWindowExpiresAndReset(t *testing.T) {
	l, mr := newLimiterTest(t, Config{MaxAttempts: 1, Window: time.Minute})
	ctx := context.Background()

	_ = l.Fail(ctx, ScopeLogin, "x")
	if n, _ := l.Attempts(ctx, ScopeLogin, "x"); n != 1 {
		t.Fatalf("expected 1 attempt, got %d", n)
	}
	mr.FastForward(2 * time.Minute)
	if err := l.Check(ctx, ScopeLogin, "x"); err != nil {
		t.Fatalf("window should have expired: %v", err)
	}

	_ = l.Fail(ctx, ScopeLogin, "x")
	if err := l.Reset(ctx, ScopeLogin, "x"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n, _ := l.Attempts(ctx, ScopeLogin, "x"); n != 0 {
		t.Fatalf("expected 0 after reset, got %d", n)
	}
}

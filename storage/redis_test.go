package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStorageTest(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedis(rdb, "mk", "cli", ttl), mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestRedisRoundTripAndNamespace(t *testing.T) {
	s, mr, done := newRedisStorageTest(t, 0)
	defer done()
	ctx := context.Background()

	if err := s.Set(ctx, KeyToken, "t1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, err := mr.Get("mk:cli:auth_token"); err != nil || got != "t1" {
		t.Fatalf("expected namespaced key, got %q err=%v", got, err)
	}
	v, ok, err := s.Get(ctx, KeyToken)
	if err != nil || !ok || v != "t1" {
		t.Fatalf("get: %q ok=%v err=%v", v, ok, err)
	}
	if _, ok, err := s.Get(ctx, KeyRole); err != nil || ok {
		t.Fatalf("missing key must be absent without error, ok=%v err=%v", ok, err)
	}
}

func TestRedisSetManyAndDelete(t *testing.T) {
	s, mr, done := newRedisStorageTest(t, time.Hour)
	defer done()
	ctx := context.Background()

	err := s.SetMany(ctx, map[string]string{KeyToken: "t1", KeyRole: "admin", KeyTenantStatus: "active"})
	if err != nil {
		t.Fatalf("set many: %v", err)
	}
	if ttl := mr.TTL("mk:cli:role"); ttl != time.Hour {
		t.Fatalf("expected ttl 1h, got %v", ttl)
	}
	if err := s.Delete(ctx, SessionKeys()...); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected no keys, got %v", mr.Keys())
	}
	if err := s.Delete(ctx, KeyToken); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestRedisUnavailableIsWrapped(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	s := NewRedis(rdb, "", "", 0)
	mr.Close()

	_, _, err = s.Get(context.Background(), KeyToken)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRedisMigration(t *testing.T) {
	s, mr, done := newRedisStorageTest(t, 0)
	defer done()
	ctx := context.Background()
	_ = mr.Set("mk:cli:access_token", "legacy")

	migrated, err := MigrateLegacyToken(ctx, s)
	if err != nil || !migrated {
		t.Fatalf("migrate: migrated=%v err=%v", migrated, err)
	}
	if mr.Exists("mk:cli:access_token") {
		t.Fatal("legacy key should be deleted")
	}
	if got, _ := mr.Get("mk:cli:auth_token"); got != "legacy" {
		t.Fatalf("expected adopted token, got %q", got)
	}
}

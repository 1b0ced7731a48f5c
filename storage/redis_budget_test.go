package storage

import (
	"context"
	"net"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// cmdCounter is a go-redis hook counting single commands and pipeline round-trips.
type cmdCounter struct {
	single    atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.single.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.pipelines.Add(1)
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.single.Store(0)
	h.pipelines.Store(0)
}

func newCountedRedis(t *testing.T) (*Redis, *cmdCounter) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	counter := &cmdCounter{}
	rdb.AddHook(counter)
	// go-redis may send handshake commands on first use.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	counter.Reset()
	return NewRedis(rdb, "mk", "budget", 0), counter
}

func TestRedisBudgetPersistIsOneRoundTrip(t *testing.T) {
	s, counter := newCountedRedis(t)
	ctx := context.Background()

	err := SetAll(ctx, s, map[string]string{
		KeyToken:        "t1",
		KeyRole:         "admin",
		KeyTenantStatus: "active",
	})
	if err != nil {
		t.Fatalf("set all: %v", err)
	}
	if p, c := counter.pipelines.Load(), counter.single.Load(); p != 1 || c != 0 {
		t.Fatalf("persisting a session must be one transaction, got pipelines=%d single=%d", p, c)
	}
}

func TestRedisBudgetClearIsOneCommand(t *testing.T) {
	s, counter := newCountedRedis(t)
	ctx := context.Background()

	if err := s.Delete(ctx, SessionKeys()...); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if c := counter.single.Load(); c != 1 {
		t.Fatalf("clearing a session must be one DEL, got %d commands", c)
	}
}

func TestRedisBudgetMigrationNoop(t *testing.T) {
	s, counter := newCountedRedis(t)
	ctx := context.Background()

	migrated, err := MigrateLegacyToken(ctx, s)
	if err != nil || migrated {
		t.Fatalf("expected no-op migration, migrated=%v err=%v", migrated, err)
	}
	want := int64(1 + len(LegacyTokenKeys))
	if c := counter.single.Load(); c != want {
		t.Fatalf("a no-op migration must only read, want %d commands, got %d", want, c)
	}
}

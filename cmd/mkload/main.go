// Command mkload drives many clients against an in-process fake backend and reports
// request latency and how signals were collapsed when every session expires at once.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	mkclient "github.com/MrEthical07/mkclient"
	"github.com/MrEthical07/mkclient/internal/apitest"
	"github.com/MrEthical07/mkclient/internal/logx"
)

const loadPassword = "load-password"

type loadClient struct {
	email   string
	client  *mkclient.Client
	expired atomic.Int64
}

func main() {
	var (
		clients     = flag.Int("clients", 32, "number of concurrent sessions")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 2000, "requests in the steady-state phase")
		burst       = flag.Int("burst", 4, "concurrent requests per client once sessions expire")
		redisAddr   = flag.String("redis-addr", "", "redis address for session storage; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "mkload", "session key prefix")
	)
	flag.Parse()

	if *clients <= 0 || *concurrency <= 0 || *ops <= 0 || *burst <= 0 {
		fmt.Fprintln(os.Stderr, "clients, concurrency, ops and burst must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	srv, err := apitest.Start(apitest.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start backend: %v\n", err)
		os.Exit(1)
	}
	defer srv.Close()

	pool := make([]*loadClient, *clients)
	for i := range pool {
		lc, err := newLoadClient(srv, rdb, *prefix, i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "client %d: %v\n", i, err)
			os.Exit(1)
		}
		defer lc.client.Close()
		pool[i] = lc
	}

	loginStats := runLoginPhase(ctx, pool, *concurrency)
	listStats := runListPhase(ctx, pool, *ops, *concurrency)

	srv.Advance(24 * time.Hour)
	expireStats := runExpiryPhase(ctx, pool, *burst)

	var signals, suppressed int64
	for _, lc := range pool {
		signals += lc.expired.Load()
		suppressed += int64(lc.client.MetricsSnapshot().Counters[mkclient.MetricSignalSuppressed])
	}

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("list", listStats)
	printStats("expired", expireStats)
	fmt.Printf("session-expired signals=%d (want %d) suppressed=%d\n", signals, len(pool), suppressed)
	if signals != int64(len(pool)) {
		os.Exit(1)
	}
}

func newLoadClient(srv *apitest.Server, rdb redis.UniversalClient, prefix string, i int) (*loadClient, error) {
	email := fmt.Sprintf("load-%d@example.com", i)
	if _, err := srv.CreateAccount(email, loadPassword, "admin", apitest.PlanUnlimited); err != nil {
		return nil, err
	}

	cfg := mkclient.DefaultConfig()
	cfg.API.BaseURL = srv.URL()
	cfg.Storage.Backend = mkclient.StorageRedis
	cfg.Storage.RedisPrefix = prefix
	cfg.Storage.Namespace = fmt.Sprintf("c%d", i)
	cfg.Metrics.EnableLatencyHistograms = true

	c, err := mkclient.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(logx.Discard()).
		Build()
	if err != nil {
		return nil, err
	}
	lc := &loadClient{email: email, client: c}
	c.Subscribe(mkclient.SignalSessionExpired, func(context.Context, mkclient.Signal) {
		lc.expired.Add(1)
	})
	return lc, nil
}

func runLoginPhase(ctx context.Context, pool []*loadClient, concurrency int) phaseStats {
	return runPhase(len(pool), concurrency, func(_ *rand.Rand, i int) error {
		_, err := pool[i].client.Login(ctx, pool[i].email, loadPassword)
		return err
	})
}

func runListPhase(ctx context.Context, pool []*loadClient, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, func(r *rand.Rand, _ int) error {
		_, err := pool[r.Intn(len(pool))].client.Devices().List(ctx)
		return err
	})
}

// runExpiryPhase sends burst simultaneous requests from every client. Each request is
// expected to fail; failures are not counted.
func runExpiryPhase(ctx context.Context, pool []*loadClient, burst int) phaseStats {
	return runPhase(len(pool)*burst, len(pool)*burst, func(_ *rand.Rand, i int) error {
		_, _ = pool[i%len(pool)].client.Devices().List(ctx)
		return nil
	})
}

// runPhase runs ops calls of fn over concurrency workers and records their latency.
func runPhase(ops, concurrency int, fn func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := fn(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

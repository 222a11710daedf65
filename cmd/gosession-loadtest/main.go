// Command gosession-loadtest measures Authority throughput under concurrency.
//
// Two phases run back to back against one Authority:
//
//	guard  concurrent Protected checks, each reading the credential from the
//	       durable store and decoding it
//	cycle  concurrent Login/Logout churn with readers polling CurrentUser
//
// The durable store is Redis: --redis-addr, then REDIS_ADDR, then an embedded
// miniredis.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/guard"
	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("gosession-loadtest", pflag.ContinueOnError)
	var (
		concurrency = fs.Int("concurrency", 64, "number of concurrent workers")
		ops         = fs.Int("ops", 100000, "operations per phase")
		redisAddr   = fs.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = fs.String("prefix", "gs-load", "credential key prefix")
	)
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goSession.DefaultConfig()
	cfg.Store.Backend = goSession.BackendRedis
	cfg.Store.RedisPrefix = *prefix
	cfg.Metrics.EnableLatencyHistograms = true

	ep, err := newLoadEndpoint()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mint failed: %v\n", err)
		os.Exit(1)
	}
	a, err := goSession.New().
		WithConfig(cfg).
		WithRedis(client).
		WithEndpoint(ep).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "start failed: %v\n", err)
		os.Exit(1)
	}
	if _, err := a.Login(ctx, loadCredentials); err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}

	guardStats := runGuardPhase(ctx, guard.New(a), *ops, *concurrency)
	cycleStats := runCyclePhase(ctx, a, *ops, *concurrency)

	snap := a.MetricsSnapshot()
	fmt.Println("---- results ----")
	printStats("guard", guardStats)
	printStats("cycle", cycleStats)
	fmt.Printf("counters: login_success=%d login_superseded=%d logout=%d\n",
		snap.Counters[goSession.MetricLoginSuccess],
		snap.Counters[goSession.MetricLoginSuperseded],
		snap.Counters[goSession.MetricLogout],
	)
}

var loadCredentials = goSession.Credentials{Email: "load@example.com", Password: "Passw0rd!"}

type loadEndpoint struct {
	token string
}

func newLoadEndpoint() (*loadEndpoint, error) {
	claims := jwt.MapClaims{
		"userId": "load-1",
		"role":   "User",
		"exp":    time.Now().Add(24 * time.Hour).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("gosession-loadtest"))
	if err != nil {
		return nil, err
	}
	return &loadEndpoint{token: raw}, nil
}

func (e *loadEndpoint) Login(context.Context, goSession.Credentials) (*goSession.LoginResponse, error) {
	return &goSession.LoginResponse{Token: e.token, UserID: "load-1", Username: "load", Email: loadCredentials.Email, Role: "User"}, nil
}

func (e *loadEndpoint) Signup(context.Context, goSession.SignupRequest) (*goSession.UserProfile, error) {
	return nil, errors.New("signup not supported")
}

func (e *loadEndpoint) Me(context.Context) (*goSession.UserProfile, error) {
	return &goSession.UserProfile{ID: "load-1", Username: "load", Email: loadCredentials.Email, Role: "User"}, nil
}

func runGuardPhase(ctx context.Context, g *guard.Guards, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, func(_ *rand.Rand, _ int) error {
		if d := g.Protected(ctx); !d.Allow {
			return errors.New("denied")
		}
		return nil
	})
}

// runCyclePhase mixes writers and readers 1:3. A superseded login is expected
// under churn and is not counted as a failure.
func runCyclePhase(ctx context.Context, a *goSession.Authority, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, func(r *rand.Rand, _ int) error {
		switch r.Intn(4) {
		case 0:
			if _, err := a.Login(ctx, loadCredentials); err != nil && !errors.Is(err, goSession.ErrLoginSuperseded) {
				return err
			}
		case 1:
			return a.Logout(ctx, false)
		default:
			if u := a.CurrentUser(); u != nil && u.ID != "load-1" {
				return fmt.Errorf("unexpected user %q", u.ID)
			}
		}
		return nil
	})
}

func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
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
				err := op(r, i)
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
	return computeStats(time.Since(start), latencies, failures)
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
	return samples[(len(samples)-1)*p/100]
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

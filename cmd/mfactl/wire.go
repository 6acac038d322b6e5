package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/mfakit/core/config"
	"github.com/dmitrymomot/mfakit/core/health"
	"github.com/dmitrymomot/mfakit/core/logger"
	"github.com/dmitrymomot/mfakit/core/mfa"
	"github.com/dmitrymomot/mfakit/integration/database/pg"
	"github.com/dmitrymomot/mfakit/integration/database/redis"
	"github.com/dmitrymomot/mfakit/integration/mfastore/postgres"
	"github.com/dmitrymomot/mfakit/pkg/lockout"
	"github.com/dmitrymomot/mfakit/pkg/qrcode"
	"github.com/dmitrymomot/mfakit/pkg/secrets"
)

const (
	backendRedis  = "redis"
	backendMemory = "memory"
)

// vaultConfig keeps the master key out of mfa.Config.
type vaultConfig struct {
	EncryptionKey string `env:"MFA_ENCRYPTION_KEY,required"`
}

// runtime is everything a long-lived command needs, built from the environment.
type runtime struct {
	pool     *pgxpool.Pool
	redis    *goredis.Client
	fallback *lockout.MemoryStore
	tracker  *lockout.Tracker
	service  *mfa.Service
	registry *prometheus.Registry
}

func (a *app) buildRuntime(ctx context.Context) (_ *runtime, err error) {
	var (
		mfaCfg     mfa.Config
		lockoutCfg lockout.Config
		pgCfg      pg.Config
		vaultCfg   vaultConfig
	)
	for _, load := range []func() error{
		func() error { return config.Load(&mfaCfg) },
		func() error { return config.Load(&lockoutCfg) },
		func() error { return config.Load(&pgCfg) },
		func() error { return config.Load(&vaultCfg) },
	} {
		if err := load(); err != nil {
			return nil, err
		}
	}

	key, err := secrets.DecodeKey(vaultCfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	vault, err := secrets.NewVault(key)
	if err != nil {
		return nil, err
	}

	rt := &runtime{registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			rt.close()
		}
	}()

	rt.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	trackerOpts, err := a.lockoutStore(ctx, rt)
	if err != nil {
		return nil, err
	}
	rt.tracker, err = lockout.NewTracker(lockoutCfg, trackerOpts...)
	if err != nil {
		return nil, err
	}

	rt.pool, err = pg.Connect(ctx, pgCfg)
	if err != nil {
		return nil, err
	}
	store := postgres.New(rt.pool)

	rt.service, err = mfa.NewService(mfaCfg, store, store, vault, rt.tracker,
		mfa.WithLogger(a.log),
		mfa.WithQRRenderer(qrcode.NewRenderer(qrcode.DefaultSize)),
	)
	if err != nil {
		return nil, err
	}

	return rt, nil
}

// lockoutStore connects the shared counter backend selected by --lockout-backend
// and returns the matching tracker options.
func (a *app) lockoutStore(ctx context.Context, rt *runtime) ([]lockout.Option, error) {
	rt.fallback = lockout.NewMemoryStore(lockout.WithMemoryStoreLogger(a.log))
	opts := []lockout.Option{
		lockout.WithFallback(rt.fallback),
		lockout.WithMetrics(lockout.NewMetrics(rt.registry)),
		lockout.WithLogger(a.log),
		lockout.WithModeChangeHook(func(from, to lockout.Mode) {
			a.log.WarnContext(ctx, "lockout mode changed",
				logger.Key("from", from.String()), logger.Mode(to))
		}),
	}

	switch a.lockoutBackend {
	case backendMemory:
		a.log.WarnContext(ctx, "lockout counters are local to this process")
		return opts, nil
	case backendRedis:
		var cfg redis.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		rt.redis = client
		return append(opts, lockout.WithStore(lockout.NewRedisStore(client))), nil
	default:
		return nil, fmt.Errorf("unknown lockout backend %q", a.lockoutBackend)
	}
}

func (rt *runtime) checks() []health.Check {
	checks := []health.Check{
		{Name: "lockout_fallback", Fn: rt.fallback.Healthcheck},
	}
	if rt.pool != nil {
		checks = append(checks, health.Check{Name: "postgres", Fn: pg.Healthcheck(rt.pool)})
	}
	if rt.redis != nil {
		checks = append(checks, health.Check{Name: "redis", Fn: redis.Healthcheck(rt.redis)})
	}
	return checks
}

func (rt *runtime) close() {
	if rt.pool != nil {
		rt.pool.Close()
	}
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
}

var errMissingPrincipal = errors.New("--tenant and --principal are required")

// Package health provides liveness and readiness probes for mfactl serve.
//
//	mux.HandleFunc("GET /healthz", health.Liveness)
//	mux.Handle("GET /readyz", health.Readiness([]health.Check{
//		{Name: "postgres", Fn: pg.Healthcheck(pool)},
//		{Name: "redis", Fn: redis.Healthcheck(client)},
//	}, health.WithInfo("lockout_mode", func() string { return svc.LockoutMode().String() })))
//
// Readiness answers 503 with a JSON report when any check fails.
package health

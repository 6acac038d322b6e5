package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/mfakit/core/config"
	"github.com/dmitrymomot/mfakit/core/health"
	"github.com/dmitrymomot/mfakit/core/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve /healthz, /readyz and /metrics until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var srvCfg server.Config
			if err := config.Load(&srvCfg); err != nil {
				return err
			}

			rt, err := a.buildRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			srv, err := server.NewFromConfig(srvCfg, server.WithLogger(a.log))
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(rt.fallback.Run(ctx))
			g.Go(srv.Run(ctx, rt.handler(a)))

			return g.Wait()
		},
	}
}

func (rt *runtime) handler(a *app) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", health.Liveness)
	mux.Handle("GET /readyz", health.Readiness(rt.checks(),
		health.WithLogger(a.log),
		health.WithInfo("lockout_mode", func() string { return rt.service.LockoutMode().String() }),
	))
	mux.Handle("GET /metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
	return mux
}

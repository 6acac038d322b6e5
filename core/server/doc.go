// Package server runs the operator HTTP endpoints (health probes and metrics)
// with graceful shutdown.
//
//	srv, err := server.NewFromConfig(cfg, server.WithLogger(log))
//	if err != nil {
//		return err
//	}
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Run(ctx, mux))
//	return g.Wait()
//
// Run serves until ctx is canceled, then calls Stop, which waits up to
// ShutdownTimeout for in-flight requests. Configuration comes from SERVER_*
// environment variables; setting SERVER_TLS_CERT_FILE and SERVER_TLS_KEY_FILE
// switches to HTTPS.
package server

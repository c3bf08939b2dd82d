// Package httpserver runs the daemon's loopback HTTP server.
//
// Server binds to a loopback address by default (127.0.0.1:7117) and refuses
// other interfaces unless WithAnyInterface is set. Run blocks until the
// context ends and then shuts down gracefully; Addr reports the bound address,
// which is useful with port 0 in tests.
//
//	srv := httpserver.NewFromConfig(cfg.Local, httpserver.WithLogger(log))
//	g.Go(func() error { return srv.Run(ctx, router) })
//
// Config carries env tags for use with pkg/config.
package httpserver

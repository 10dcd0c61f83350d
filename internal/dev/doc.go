// Package dev provides the development loop and hot reload.
//
// The loop builds the project, publishes the route tree to the shared table
// and then watches the pages, lambda and static directories. Every batch of
// changes triggers a rebuild; on success the new tree replaces the old one
// atomically and connected browsers reload. On failure the old tree keeps
// serving and the error is shown in an overlay.
//
// # Usage
//
//	loop := dev.NewServer(dev.ServerOptions{Config: cfg, Table: table, Cache: cache})
//	srv := server.New(table, classifier,
//	    server.WithReload(loop.Reload(), dev.ReloadScript),
//	    server.WithDevMode(true),
//	)
//	go loop.Run(ctx)
//	srv.Run(ctx, cfg.Addr())
//
// # Hot Reload Protocol
//
// The browser connects to /_squid/reload via WebSocket.
// Messages are JSON-encoded:
//
//	{"type": "reload"}                // full page reload
//	{"type": "css", "file": "..."}    // stylesheet reload
//	{"type": "error", "error": "..."} // show error overlay
//	{"type": "clear"}                 // clear error overlay
package dev

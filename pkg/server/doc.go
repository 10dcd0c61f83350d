// Package server is the HTTP adapter in front of the route table.
//
// For every request the server cleans the path, redirecting with 308 when the
// cleaned form differs, then serves a static file when the last segment has
// an extension, or resolves the path against the active route tree.
//
// API routes call the module handler directly; parameters are available via
// Params. Page routes run the props function first, honour its redirect, then
// render the page and inject the props JSON and the hydration script:
//
//	table := routetree.NewTable()
//	table.Publish(tree, buildID)
//	srv := server.New(table, routetree.NewClassifier(loader),
//	    server.WithStatic(artifact.NewDiskStore("dist")),
//	    server.WithMetrics(metrics, "/metrics"),
//	)
//	srv.Run(ctx, ":3000")
//
// A new tree can be published while the server runs. Each request resolves
// against the snapshot that was active when it arrived.
package server

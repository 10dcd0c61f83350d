// Package artifact reads and publishes compiled build output.
//
// A build writes its modules under one output directory. Stores address
// files in it by slash separated keys such as "pages/blog/{slug}.mjs":
//
//	store := artifact.NewDiskStore("build")
//	src, err := store.Fetch(ctx, "pages/index.mjs")
//
// S3Store serves the same keys from a bucket and publishes a local build
// there. Loader adapts a store to routetree.Loader, pairing each module's
// source with the exports registered for its route key, and CachedLoader
// keeps recently loaded modules in an LRU cache.
package artifact

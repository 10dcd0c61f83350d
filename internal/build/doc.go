// Package build compiles a squid project into its output directory.
//
// This package handles:
//   - Scanning pages and lambda sources into compile groups
//   - Bundling each module to an ES module with esbuild
//   - Writing the route manifest and the hydration runtime
//   - Generating fetch clients for API and lambda routes
//   - Building the route tree from the compiled modules
//
// # Usage
//
//	builder := build.New(cfg, build.Options{Logger: logger})
//	result, err := builder.Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	table.Publish(result.Tree, result.ID)
//
// # Output Structure
//
//	build/
//	├── pages/                 # Route modules, the tree's base directory
//	│   ├── index.mjs
//	│   ├── blog/{slug}.mjs
//	│   └── blog/{slug}.props.mjs
//	├── lambda/                # Lambda functions
//	├── hydrate.js             # Browser hydration runtime
//	├── hydrate.<hash>.js      # Fingerprinted copy linked in production
//	├── api.js                 # Fetch clients for API routes
//	├── api.module.d.ts
//	├── lambda.js              # Fetch clients for lambda functions
//	├── lambda.module.d.ts
//	└── routes.json            # Route manifest
//
// # Manifest
//
// routes.json records every route module with its kind, source file and
// content hash. `squid start` rebuilds the route tree from it without
// recompiling:
//
//	m, err := build.LoadManifest("build")
//	tree, err := m.Tree("build", logger)
package build

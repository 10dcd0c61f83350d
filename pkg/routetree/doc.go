// Package routetree maps compiled page and API modules to request paths.
//
// The package provides:
//   - Normalization of build output paths into route segments
//   - A builder that turns a flat list of build records into an immutable tree
//   - A resolver that walks the tree for an incoming request path
//   - A table holding the active tree, swapped atomically on rebuild
//   - A classifier that loads modules and checks their export contract
//
// # File Structure Convention
//
// Compiled modules live under a base directory (build/pages by default):
//
//	build/pages/
//	├── index.mjs                → /
//	├── about.mjs                → /about
//	├── blog/
//	│   ├── index.mjs            → /blog and /blog/index
//	│   ├── index.props.mjs      → server-side props for blog/index
//	│   └── {slug}.mjs           → /blog/:slug
//	└── api/
//	    └── users.mjs            → /api/users (api kind)
//
// # Parameters
//
// Dynamic segments may be written in any of three bracket styles, all
// canonicalized to the {name} form:
//
//	{id}   [id]   (id)   → {id}
//
// # Resolution
//
// Literal children always win over the dynamic child of the same node. A
// request that ends on an interior node resolves to that node's index child.
//
//	tree, err := routetree.NewBuilder().Add(records...).Build()
//	table := routetree.NewTable()
//	table.Publish(tree, buildID)
//
//	res := table.Resolve("/blog/hello")
//	if res.Found() {
//	    // res.Params["slug"] == "hello"
//	    // res.ArtifactPath == "blog/{slug}.mjs"
//	}
package routetree

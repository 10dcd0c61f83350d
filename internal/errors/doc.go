// Package errors provides coded, actionable errors for the squid CLI and dev
// server.
//
// Every code maps to a registered message and detail:
//
//	E200-E209  route tree conflicts
//	E210-E219  build
//	E220-E229  request time module errors
//	E230-E239  configuration
//	E240-E249  artifact store
//	E250-E259  project scaffolding
//
// # Usage
//
//	err := errors.New("E200").
//	    WithLocation("src/pages/blog/[slug].tsx", 0, 0).
//	    WithSuggestion("Keep only one of blog/[slug].tsx and blog/{slug}.tsx.")
//
//	fmt.Print(err.Format())
//	// ERROR E200: Duplicate route
//	//
//	//   src/pages/blog/[slug].tsx
//	//
//	//   Two modules compile to the same route key. Rename or remove one of them.
//	//
//	//   Hint: Keep only one of blog/[slug].tsx and blog/{slug}.tsx.
//	//
//	//   Learn more: https://squid.dev/docs/errors/E200
//
// Route tree build failures convert with FromBuildError, one coded error per
// conflict.
package errors

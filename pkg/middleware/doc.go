// Package middleware provides observability middleware for the squid HTTP
// adapter.
//
// This package includes:
//   - OpenTelemetry request tracing
//   - Prometheus request and build metrics
//   - Structured access logging with slog
//
// # OpenTelemetry Middleware
//
// Every request gets a server span. Module loads performed while handling the
// request are traced as children of that span.
//
//	r.Use(middleware.OpenTelemetry(
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
//
// # Prometheus Metrics
//
//	m := middleware.NewMetrics(middleware.WithNamespace("shop"))
//	r.Use(m.Middleware)
//	r.Handle("/metrics", m.Handler())
//
// Handlers label requests with the matched route kind:
//
//	middleware.SetRouteKind(r.Context(), "page")
//
// The dev loop records builds with ObserveBuild and SetRoutes.
package middleware

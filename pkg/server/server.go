package server

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vango-dev/squid/pkg/artifact"
	"github.com/vango-dev/squid/pkg/assets"
	"github.com/vango-dev/squid/pkg/middleware"
	"github.com/vango-dev/squid/pkg/routetree"
)

// ReloadPath is where the dev reload WebSocket is mounted.
const ReloadPath = "/_squid/reload"

// CORSConfig controls CORS headers on API routes.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStatic serves requests whose last segment has an extension from f.
func WithStatic(f artifact.Fetcher) Option {
	return func(s *Server) {
		s.static = f
	}
}

// WithRenderer replaces the default page renderer.
func WithRenderer(r Renderer) Option {
	return func(s *Server) {
		s.renderer = r
	}
}

// WithNext passes unmatched requests to next instead of answering 404.
func WithNext(next http.Handler) Option {
	return func(s *Server) {
		s.next = next
	}
}

// WithCORS enables CORS on API routes.
func WithCORS(c CORSConfig) Option {
	return func(s *Server) {
		s.cors = cors.Handler(cors.Options{
			AllowedOrigins: c.AllowedOrigins,
			AllowedMethods: c.AllowedMethods,
			AllowedHeaders: c.AllowedHeaders,
			MaxAge:         c.MaxAge,
		})
	}
}

// WithMetrics records request metrics and serves them at path.
func WithMetrics(m *middleware.Metrics, path string) Option {
	return func(s *Server) {
		s.metrics = m
		s.metricsPath = path
	}
}

// WithTracing traces every request.
func WithTracing(opts ...middleware.OTelOption) Option {
	return func(s *Server) {
		s.tracing = middleware.OpenTelemetry(opts...)
	}
}

// WithReload mounts the dev reload endpoint and injects snippet into every
// rendered page head.
func WithReload(h http.Handler, snippet string) Option {
	return func(s *Server) {
		s.reload = h
		s.headExtra = snippet
	}
}

// WithDevMode disables static caching and shows error details in responses.
func WithDevMode(dev bool) Option {
	return func(s *Server) {
		s.dev = dev
	}
}

// WithAssets resolves runtime asset URLs, such as the hydration bootstrap,
// through r. The default links assets by their plain name.
func WithAssets(r assets.Resolver) Option {
	return func(s *Server) {
		s.assets = r
	}
}

// WithModulePrefix sets the URL prefix page modules are served under
// (default "/pages/").
func WithModulePrefix(prefix string) Option {
	return func(s *Server) {
		s.modulePrefix = prefix
	}
}

// Server is the HTTP adapter in front of the route table.
type Server struct {
	table      *routetree.Table
	classifier *routetree.Classifier

	logger       *slog.Logger
	static       artifact.Fetcher
	renderer     Renderer
	assets       assets.Resolver
	next         http.Handler
	cors         func(http.Handler) http.Handler
	metrics      *middleware.Metrics
	metricsPath  string
	tracing      func(http.Handler) http.Handler
	reload       http.Handler
	headExtra    string
	dev          bool
	modulePrefix string

	handler http.Handler
}

// New creates a server resolving requests against table. The table may be
// empty; requests then get 503 until a tree is published.
func New(table *routetree.Table, classifier *routetree.Classifier, opts ...Option) *Server {
	s := &Server{
		table:        table,
		classifier:   classifier,
		modulePrefix: "/pages/",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.renderer == nil {
		s.renderer = DefaultRenderer{}
	}
	if s.assets == nil {
		s.assets = assets.NewPassthroughResolver("/")
	}
	if s.cors == nil {
		s.cors = func(next http.Handler) http.Handler { return next }
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.AccessLog(s.logger))
	if s.tracing != nil {
		r.Use(s.tracing)
	}

	if s.metrics != nil && s.metricsPath != "" {
		r.Handle(s.metricsPath, s.metrics.Handler())
	}
	if s.reload != nil {
		r.Handle(ReloadPath, s.reload)
	}

	r.Group(func(r chi.Router) {
		if s.metrics != nil {
			r.Use(s.metrics.Middleware)
		}
		r.HandleFunc("/*", s.serve)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

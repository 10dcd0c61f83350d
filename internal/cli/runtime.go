package cli

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/squid/internal/config"
	"github.com/vango-dev/squid/pkg/artifact"
	"github.com/vango-dev/squid/pkg/middleware"
	"github.com/vango-dev/squid/pkg/routetree"
	"github.com/vango-dev/squid/pkg/server"
)

// stack is everything a serving command needs.
type stack struct {
	config     *config.Config
	logger     *slog.Logger
	store      artifact.Fetcher
	cache      *artifact.CachedLoader
	classifier *routetree.Classifier
	metrics    *middleware.Metrics
	table      *routetree.Table
	next       http.Handler
}

// openStore returns the artifact store selected by the config. Dev always
// reads the local output directory.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, forceDisk bool) (artifact.Fetcher, error) {
	if forceDisk || cfg.Artifacts.Store != "s3" {
		return artifact.NewDiskStore(cfg.OutputPath()), nil
	}
	return openS3(ctx, cfg, logger)
}

func openS3(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*artifact.S3Store, error) {
	client, err := artifact.NewS3Client(ctx, artifact.S3Options{
		Bucket:   cfg.Artifacts.Bucket,
		Prefix:   cfg.Artifacts.Prefix,
		Region:   cfg.Artifacts.Region,
		Endpoint: cfg.Artifacts.Endpoint,
	})
	if err != nil {
		return nil, err
	}
	return artifact.NewS3Store(client, cfg.Artifacts.Bucket, cfg.Artifacts.Prefix, artifact.WithS3Logger(logger)), nil
}

func newStack(ctx context.Context, cfg *config.Config, opts Options, forceDisk bool) (*stack, error) {
	logger := slog.Default()

	store, err := openStore(ctx, cfg, logger, forceDisk)
	if err != nil {
		return nil, err
	}

	cache, err := artifact.NewCachedLoader(
		artifact.NewLoader(store, opts.Registry, cfg.OutputPath()),
		cfg.Server.ModuleCacheSize,
	)
	if err != nil {
		return nil, err
	}

	s := &stack{
		config: cfg,
		logger: logger,
		store:  store,
		cache:  cache,
		classifier: routetree.NewClassifier(cache,
			routetree.WithModuleTimeout(cfg.Server.ModuleTimeout),
			routetree.WithClassifierLogger(logger),
		),
		table: routetree.NewTable(),
		next:  opts.Next,
	}
	if cfg.Metrics.Enabled {
		s.metrics = middleware.NewMetrics(middleware.WithRegistry(prometheus.NewRegistry()))
	}
	return s, nil
}

// serverOptions translates the config into server options.
func (s *stack) serverOptions(extra ...server.Option) []server.Option {
	cfg := s.config
	opts := []server.Option{
		server.WithLogger(s.logger),
		server.WithStatic(s.store),
		server.WithTracing(),
	}
	if s.metrics != nil {
		opts = append(opts, server.WithMetrics(s.metrics, cfg.Metrics.Path))
	}
	if cfg.Server.CORS.Enabled {
		opts = append(opts, server.WithCORS(server.CORSConfig{
			AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
			AllowedMethods: cfg.Server.CORS.AllowedMethods,
			AllowedHeaders: cfg.Server.CORS.AllowedHeaders,
			MaxAge:         cfg.Server.CORS.MaxAge,
		}))
	}
	if cfg.Server.NotFound == "next" && s.next != nil {
		opts = append(opts, server.WithNext(s.next))
	}
	return append(opts, extra...)
}

// newServer creates the HTTP adapter. Options from the embedding app come
// last so they override the config.
func newServer(st *stack, opts Options, extra ...server.Option) *server.Server {
	all := st.serverOptions(extra...)
	all = append(all, opts.ServerOptions...)
	return server.New(st.table, st.classifier, all...)
}

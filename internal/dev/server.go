package dev

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vango-dev/squid/internal/build"
	"github.com/vango-dev/squid/internal/config"
	"github.com/vango-dev/squid/internal/errors"
	"github.com/vango-dev/squid/pkg/middleware"
	"github.com/vango-dev/squid/pkg/routetree"
)

// Purger drops cached modules after a rebuild.
type Purger interface {
	Purge()
}

// BuildResult is reported after every build attempt.
type BuildResult struct {
	Result   *build.Result
	Err      error
	Duration time.Duration
}

// ServerOptions configures the development loop.
type ServerOptions struct {
	// Config is the project configuration.
	Config *config.Config

	// Builder compiles the project. Defaults to build.New(Config).
	Builder *build.Builder

	// Table receives every successfully built tree.
	Table *routetree.Table

	// Cache is purged after each publish.
	Cache Purger

	Metrics *middleware.Metrics
	Logger  *slog.Logger

	// OnBuildComplete is called after each build attempt.
	OnBuildComplete func(BuildResult)
}

// Server runs the rebuild loop: it builds once, publishes the tree, then
// rebuilds on every batch of source changes and tells browsers to reload.
// A failed build keeps the previous tree active.
type Server struct {
	options ServerOptions
	builder *build.Builder
	watcher *Watcher
	reload  *ReloadServer
	logger  *slog.Logger

	// mu serializes builds.
	mu sync.Mutex
}

// NewServer creates a new development loop.
func NewServer(options ServerOptions) *Server {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "dev")

	builder := options.Builder
	if builder == nil {
		builder = build.New(options.Config, build.Options{Logger: logger})
	}
	if options.Table == nil {
		options.Table = routetree.NewTable()
	}

	return &Server{
		options: options,
		builder: builder,
		watcher: NewWatcher(WatcherConfig{
			Paths:    CollectWatchPaths(options.Config),
			Debounce: options.Config.Dev.Debounce,
			Logger:   logger,
		}),
		reload: NewReloadServer(logger),
		logger: logger,
	}
}

// Reload returns the WebSocket endpoint browsers connect to.
func (s *Server) Reload() *ReloadServer {
	return s.reload
}

// Table returns the table builds are published to.
func (s *Server) Table() *routetree.Table {
	return s.options.Table
}

// Run builds once and then rebuilds on change until ctx is done. A failing
// initial build is reported but does not stop the loop.
func (s *Server) Run(ctx context.Context) error {
	_, _ = s.Rebuild(ctx)

	changes := make(chan []Change, 16)
	s.watcher.OnChange(func(batch []Change) {
		select {
		case changes <- batch:
		case <-ctx.Done():
		}
	})

	errCh := make(chan error, 1)
	go func() { errCh <- s.watcher.Start(ctx) }()
	defer s.reload.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return err
		case batch := <-changes:
			// Coalesce batches that queued up during a build.
			for draining := true; draining; {
				select {
				case more := <-changes:
					batch = append(batch, more...)
				default:
					draining = false
				}
			}
			s.handleChanges(ctx, batch)
		}
	}
}

func (s *Server) handleChanges(ctx context.Context, changes []Change) {
	var hasCSS, hasOther bool
	var cssFile string
	for _, c := range changes {
		s.logger.Debug("changed", "path", c.Path, "type", c.Type.String())
		switch c.Type {
		case ChangeConfig:
			s.logger.Warn("config file changed, restart to apply", "path", c.Path)
		case ChangeCSS:
			hasCSS = true
			cssFile = c.Path
		default:
			hasOther = true
		}
	}
	if !hasCSS && !hasOther {
		return
	}

	if _, err := s.Rebuild(ctx); err != nil {
		return
	}
	if hasCSS && !hasOther {
		s.reload.NotifyCSS(cssFile)
		return
	}
	s.reload.NotifyReload()
}

// Rebuild builds the project and publishes the new tree. On failure the
// error is shown in connected browsers and the active tree is kept.
func (s *Server) Rebuild(ctx context.Context) (*build.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	res, err := s.builder.Build(ctx)
	elapsed := time.Since(start)

	if s.options.Metrics != nil {
		s.options.Metrics.ObserveBuild(elapsed, err)
	}
	if s.options.OnBuildComplete != nil {
		s.options.OnBuildComplete(BuildResult{Result: res, Err: err, Duration: elapsed})
	}

	if err != nil {
		s.logger.Error("build failed", "err", err)
		s.reload.NotifyError(describe(err))
		return nil, err
	}

	snap := s.options.Table.Publish(res.Tree, res.ID)
	if s.options.Cache != nil {
		s.options.Cache.Purge()
	}
	if s.options.Metrics != nil {
		s.options.Metrics.SetRoutes(res.Tree.Len())
	}
	s.reload.ClearError()

	s.logger.Info("published",
		"build", res.ID,
		"version", snap.Version,
		"routes", res.Tree.Len(),
		"duration", elapsed.Round(time.Millisecond),
	)
	return res, nil
}

// describe renders a build error for the browser overlay.
func describe(err error) string {
	if routetree.IsBuildError(err) {
		lines := make([]string, 0, 4)
		for _, se := range errors.FromBuildError(err) {
			lines = append(lines, se.FormatCompact())
		}
		return strings.Join(lines, "\n")
	}
	var se *errors.SquidError
	if errors.As(err, &se) {
		return se.FormatCompact()
	}
	return err.Error()
}

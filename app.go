package squid

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/squid/internal/cli"
	"github.com/vango-dev/squid/internal/errors"
	"github.com/vango-dev/squid/pkg/artifact"
	"github.com/vango-dev/squid/pkg/routetree"
	"github.com/vango-dev/squid/pkg/server"
)

// App collects the Go implementations of a project's route modules and runs
// the command line with them.
type App struct {
	registry   *artifact.Registry
	serverOpts []server.Option
	next       http.Handler
	out        io.Writer
}

// Option configures an App.
type Option func(*App)

// WithServerOptions passes extra options to every HTTP server the commands
// start, for example a custom renderer.
func WithServerOptions(opts ...server.Option) Option {
	return func(a *App) {
		a.serverOpts = append(a.serverOpts, opts...)
	}
}

// WithOutput sets where command output is written. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) {
		a.out = w
	}
}

// New creates an App with an empty registry.
func New(opts ...Option) *App {
	a := &App{registry: artifact.NewRegistry()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Page registers the render function of the page at key.
func (a *App) Page(key string, render RenderFunc) *App {
	a.registry.Page(key, render)
	return a
}

// Props registers the server-side props function of the page at key.
func (a *App) Props(key string, fn PropsFunc) *App {
	a.registry.Props(key, fn)
	return a
}

// API registers the handler of the api route at key.
func (a *App) API(key string, h APIHandler) *App {
	a.registry.API(key, h)
	return a
}

// Fallback receives requests no route matches when server.notFound is
// "next" in squid.json.
func (a *App) Fallback(h http.Handler) *App {
	a.next = h
	return a
}

// Registry returns the registry backing the App.
func (a *App) Registry() *artifact.Registry {
	return a.registry
}

// Command returns the command tree bound to the App.
func (a *App) Command() *cobra.Command {
	return cli.NewRootCommand(cli.Options{
		Registry:      a.registry,
		ServerOptions: a.serverOpts,
		Next:          a.next,
		Out:           a.out,
	})
}

// Execute runs the command line with os.Args until it finishes or the
// process is interrupted.
func (a *App) Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Command().ExecuteContext(ctx)
}

// Main calls Execute, prints a failure to stderr and exits with status 1.
func (a *App) Main() {
	if err := a.Execute(); err != nil {
		Report(os.Stderr, err)
		os.Exit(1)
	}
}

// Report writes err to w. Route tree errors are expanded into one coded
// message per conflict.
func Report(w io.Writer, err error) {
	if !routetree.IsBuildError(err) {
		errors.Fprint(w, err)
		return
	}
	for _, se := range errors.FromBuildError(err) {
		errors.Fprint(w, se)
	}
}

package cli

import (
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/squid/internal/dev"
	"github.com/vango-dev/squid/pkg/server"
)

func devCmd(opts Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Build the project, serve it and rebuild on every change.

Browsers reload after each successful build. A failed build keeps
the previous routes serving and shows the error in an overlay.

Examples:
  squid dev
  squid dev --port=8080
  squid dev --host=0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(cmd, opts)
		},
	}

	cmd.Flags().IntP("port", "p", 0, "port to listen on (default from squid.json)")
	cmd.Flags().StringP("host", "H", "", "host to bind to (default from squid.json)")
	cmd.Flags().String("compiler", "", "bundler executable, or \"copy\"")

	return cmd
}

func runDev(cmd *cobra.Command, opts Options) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	st, err := newStack(ctx, cfg, opts, true)
	if err != nil {
		return err
	}

	loop := dev.NewServer(dev.ServerOptions{
		Config:  cfg,
		Table:   st.table,
		Cache:   st.cache,
		Metrics: st.metrics,
		Logger:  st.logger,
		OnBuildComplete: func(r dev.BuildResult) {
			if r.Err == nil {
				success(out, "Built %d routes in %s", r.Result.Tree.Len(), r.Duration.Round(time.Millisecond))
			}
		},
	})

	extra := []server.Option{server.WithDevMode(true)}
	if cfg.Dev.Reload {
		extra = append(extra, server.WithReload(loop.Reload(), dev.ReloadScript))
	}
	srv := newServer(st, opts, extra...)

	info(out, "Serving on http://%s", cfg.Addr())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx, cfg.Addr()) })
	return g.Wait()
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/squid/internal/build"
	"github.com/vango-dev/squid/pkg/assets"
	"github.com/vango-dev/squid/pkg/server"
)

func startCmd(opts Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Serve a finished build",
		Long: `Serve the build described by routes.json.

The manifest and the compiled modules are read from the configured
artifact store: the local output directory or an S3 bucket.

Examples:
  squid start
  squid start --store=s3 --bucket=my-site`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, opts)
		},
	}

	cmd.Flags().IntP("port", "p", 0, "port to listen on (default from squid.json)")
	cmd.Flags().StringP("host", "H", "", "host to bind to (default from squid.json)")
	cmd.Flags().StringP("out", "o", "", "build directory (default from squid.json)")
	cmd.Flags().String("store", "", "artifact store: disk, s3")
	cmd.Flags().String("bucket", "", "S3 bucket holding the build")

	return cmd
}

func runStart(cmd *cobra.Command, opts Options) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	st, err := newStack(ctx, cfg, opts, false)
	if err != nil {
		return err
	}

	manifest, err := build.FetchManifest(ctx, st.store)
	if err != nil {
		return err
	}
	tree, err := manifest.Tree(cfg.OutputPath(), st.logger)
	if err != nil {
		return err
	}

	snap := st.table.Publish(tree, manifest.BuildID)
	if st.metrics != nil {
		st.metrics.SetRoutes(tree.Len())
	}
	st.logger.Info("routes loaded", "build", snap.BuildID, "routes", tree.Len())

	resolver := assets.NewResolver(assets.FromMap(manifest.Assets), "/")
	srv := newServer(st, opts, server.WithAssets(resolver))
	return srv.Run(ctx, cfg.Addr())
}

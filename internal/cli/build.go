package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vango-dev/squid/internal/build"
	"github.com/vango-dev/squid/internal/errors"
)

func buildCmd() *cobra.Command {
	var publish bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile pages and lambdas into the output directory",
		Long: `Compile every route module, build the route tree and write the
route manifest, the generated API and lambda clients and the
hydration script to the output directory.

With --publish the output is uploaded to the configured S3 bucket.

Examples:
  squid build
  squid build --out=dist --minify
  squid build --publish --bucket=my-site`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, publish)
		},
	}

	cmd.Flags().String("pages", "", "pages directory (default from squid.json)")
	cmd.Flags().StringP("out", "o", "", "output directory (default from squid.json)")
	cmd.Flags().String("compiler", "", "bundler executable, or \"copy\"")
	cmd.Flags().Bool("minify", false, "minify compiled modules")
	cmd.Flags().String("conflict-mode", "", "route conflict handling: strict, first-wins")
	cmd.Flags().String("bucket", "", "S3 bucket to publish to")
	cmd.Flags().BoolVar(&publish, "publish", false, "upload the output to the artifact bucket")

	return cmd
}

func runBuild(cmd *cobra.Command, publish bool) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	builder := build.New(cfg, build.Options{
		OnProgress: func(step string) {
			info(out, "%s", step)
		},
	})

	result, err := builder.Build(ctx)
	if err != nil {
		return err
	}

	success(out, "Built %d routes in %s", result.Tree.Len(), result.Duration.Round(1000000))
	info(out, "Output:  %s", cfg.OutputPath())
	info(out, "Modules: %s", formatBytes(result.Bytes))
	info(out, "Build:   %s", result.ID)

	if !publish {
		return nil
	}
	if cfg.Artifacts.Bucket == "" {
		return errors.New("E240").
			WithDetail("No artifact bucket configured.").
			WithSuggestion("Set artifacts.bucket in squid.json or pass --bucket.")
	}
	store, err := openS3(ctx, cfg, slog.Default())
	if err != nil {
		return errors.New("E240").Wrap(err)
	}
	res, err := builder.Publish(ctx, store)
	if err != nil {
		return err
	}
	success(out, "Published %d files (%s) to s3://%s/%s", res.Files, formatBytes(res.Bytes), cfg.Artifacts.Bucket, cfg.Artifacts.Prefix)
	return nil
}

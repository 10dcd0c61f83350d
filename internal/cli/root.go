// Package cli implements the squid command line: init, build, dev, start,
// routes and version.
package cli

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/squid/internal/config"
	"github.com/vango-dev/squid/pkg/artifact"
	"github.com/vango-dev/squid/pkg/server"
)

// Version information set at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// skipConfig marks commands that run without a squid.json.
const skipConfig = "squid/skip-config"

// Options configures the command tree.
type Options struct {
	// Registry holds the Go implementations of route modules.
	Registry *artifact.Registry

	// ServerOptions are appended to the options of every HTTP server the
	// commands start.
	ServerOptions []server.Option

	// Next receives unmatched requests when server.notFound is "next".
	Next http.Handler

	// Out receives command output. Defaults to os.Stdout.
	Out io.Writer
}

// NewRootCommand returns the squid command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Registry == nil {
		opts.Registry = artifact.NewRegistry()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	root := &cobra.Command{
		Use:   "squid",
		Short: "File-routed server-side rendering for JavaScript modules",
		Long: `squid compiles a pages directory into route modules, builds a
route tree from the file layout and serves it with server-side
rendering, API routes and hot reload.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfig] == "true" {
				return nil
			}
			cfg, err := config.LoadFromWorkingDir(cmd.Flags())
			if err != nil {
				return err
			}
			setupLogging(cfg.Log, cmd.ErrOrStderr())
			cmd.SetContext(config.WithContext(cmd.Context(), cfg))
			return nil
		},
	}
	root.SetOut(opts.Out)

	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "", "log format: text, json")

	root.AddCommand(
		initCmd(),
		buildCmd(),
		devCmd(opts),
		startCmd(opts),
		routesCmd(),
		versionCmd(),
	)
	return root
}

func configFrom(cmd *cobra.Command) (*config.Config, error) {
	return config.FromContext(cmd.Context())
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

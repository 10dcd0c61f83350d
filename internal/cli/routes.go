package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/squid/internal/build"
	"github.com/vango-dev/squid/internal/config"
	"github.com/vango-dev/squid/pkg/routetree"
)

// routeInfo is one line of the routes listing.
type routeInfo struct {
	Path   string `json:"path" yaml:"path"`
	Kind   string `json:"kind" yaml:"kind"`
	Props  bool   `json:"props,omitempty" yaml:"props,omitempty"`
	Source string `json:"source" yaml:"source"`
}

func routesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the routes of the pages directory",
		Long: `Scan the pages directory and print the route tree it produces,
without compiling. Route conflicts are reported the way a build
reports them.

Examples:
  squid routes
  squid routes --format=json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			tree, err := sourceTree(cfg)
			if err != nil {
				return err
			}
			return printRoutes(cmd.OutOrStdout(), format, listRoutes(tree, cfg.Dir()))
		},
	}

	cmd.Flags().String("pages", "", "pages directory (default from squid.json)")
	cmd.Flags().String("conflict-mode", "", "route conflict handling: strict, first-wins")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json, yaml")

	return cmd
}

// sourceTree builds the route tree straight from the page sources.
func sourceTree(cfg *config.Config) (*routetree.Tree, error) {
	sources, err := build.Scan(cfg.PagesPath(), "")
	if err != nil {
		return nil, err
	}

	base := cfg.PagesOutputPath()
	records := make([]routetree.Record, 0, len(sources))
	for _, src := range sources {
		if src.Group == build.GroupLambda {
			continue
		}
		records = append(records, routetree.Record{
			OutputPath: filepath.Join(base, filepath.FromSlash(build.OutputRel(src.Rel))),
			Kind:       src.Kind,
			SourcePath: src.Path,
		})
	}

	return routetree.NewBuilder(
		routetree.WithBaseDir(base),
		routetree.WithConflictMode(routetree.ParseConflictMode(cfg.Build.ConflictMode)),
	).Add(records...).Build()
}

func listRoutes(tree *routetree.Tree, root string) []routeInfo {
	leaves := tree.Leaves()
	out := make([]routeInfo, 0, len(leaves))
	for _, leaf := range leaves {
		src := leaf.SourcePath
		if rel, err := filepath.Rel(root, src); err == nil && root != "" {
			src = rel
		}
		out = append(out, routeInfo{
			Path:   routePattern(leaf.Key),
			Kind:   leaf.Kind.String(),
			Props:  leaf.Props != nil,
			Source: filepath.ToSlash(src),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// routePattern turns a route key into the URL pattern it serves.
func routePattern(key string) string {
	if key == routetree.IndexKey {
		return "/"
	}
	return "/" + strings.TrimSuffix(key, "/"+routetree.IndexKey)
}

func printRoutes(w io.Writer, format string, routes []routeInfo) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(routes)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(routes)
	case "text", "":
		width := 0
		for _, r := range routes {
			width = max(width, len(r.Path))
		}
		for _, r := range routes {
			kind := r.Kind
			if r.Props {
				kind += "+props"
			}
			fmt.Fprintf(w, "%-*s  %-10s  %s\n", width, r.Path, kind, r.Source)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/squid/internal/config"
	"github.com/vango-dev/squid/internal/templates"
)

func initCmd() *cobra.Command {
	var (
		template    string
		description string
		module      string
	)

	cmd := &cobra.Command{
		Use:   "init <dir>",
		Short: "Create a new squid project",
		Long: `Create a new squid project in dir.

Templates:
  minimal   A single server-rendered page
  full      Pages with server-side props, an API route and static files (default)
  api       API routes without pages

Examples:
  squid init my-site
  squid init my-api --template=api --module=github.com/me/my-api`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, args[0], template, description, module)
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "full", "project template: minimal, full, api")
	cmd.Flags().StringVarP(&description, "description", "d", "", "project description")
	cmd.Flags().StringVarP(&module, "module", "m", "", "Go module path (default: the project name)")

	return cmd
}

func runInit(cmd *cobra.Command, dir, templateName, description, module string) error {
	out := cmd.OutOrStdout()

	tmpl, err := templates.Get(templateName)
	if err != nil {
		return err
	}

	projectDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	name := filepath.Base(projectDir)
	if !isValidProjectName(name) {
		return fmt.Errorf("invalid project name %q: use letters, digits, hyphens and underscores", name)
	}
	if module == "" {
		module = name
	}

	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		return err
	}

	info(out, "Creating project from '%s' template...", templateName)
	if err := tmpl.Create(projectDir, templates.Config{
		ProjectName: name,
		ModulePath:  module,
		Description: description,
	}); err != nil {
		return err
	}

	success(out, "Created %s", dir)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  To get started:")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "    cd %s\n", dir)
	fmt.Fprintln(out, "    go mod tidy")
	fmt.Fprintln(out, "    go run . dev")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Your site will be running at http://%s:%d\n", config.DefaultHost, config.DefaultPort)
	return nil
}

func isValidProjectName(name string) bool {
	if name == "" || name == "." || strings.HasPrefix(name, "-") {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_', r == '.':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

package templates

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"github.com/vango-dev/squid/internal/errors"
)

// Config contains template configuration.
type Config struct {
	// ProjectName is the name of the project.
	ProjectName string

	// ModulePath is the Go module path.
	ModulePath string

	// Description is a short project description.
	Description string
}

// Template represents a project template.
type Template struct {
	// Name is the template name.
	Name string

	// Description describes the template.
	Description string

	// Files is a map of relative paths to file contents.
	Files map[string]string
}

// Available templates.
var templates = map[string]*Template{
	"minimal": minimalTemplate(),
	"full":    fullTemplate(),
	"api":     apiTemplate(),
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, errors.New("E250").
			WithDetail("Template '" + name + "' not found.").
			WithSuggestion("Available templates: api, full, minimal")
	}
	return tmpl, nil
}

// List returns all available template names in order.
func List() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create generates a project from the template. It refuses to write into a
// directory that already holds a squid project.
func (t *Template) Create(dir string, cfg Config) error {
	if _, err := os.Stat(filepath.Join(dir, "squid.json")); err == nil {
		return errors.New("E251").
			WithDetail(dir + " already contains squid.json.").
			WithSuggestion("Pick an empty directory.")
	}

	for relPath, content := range t.Files {
		tmpl, err := template.New(relPath).Parse(content)
		if err != nil {
			return errors.Newf(errors.CategoryCLI, "invalid template %s: %v", relPath, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, cfg); err != nil {
			return errors.Newf(errors.CategoryCLI, "template execute error %s: %v", relPath, err)
		}

		fullPath := filepath.Join(dir, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(fullPath, buf.Bytes(), 0o644); err != nil {
			return err
		}
	}

	return nil
}

// Files shared by the templates that render pages.
const (
	goMod = `module {{.ModulePath}}

go 1.23

require github.com/vango-dev/squid v0.1.0
`

	squidJSON = `{
  "name": "{{.ProjectName}}",
  "paths": {
    "pages": "src/pages",
    "output": "build",
    "static": "public"
  },
  "build": {
    "compiler": "esbuild"
  }
}
`

	indexPage = `import { h, hydrate } from 'preact';

export { h, hydrate };

export default function Home() {
  return (
    <main>
      <h1>{{.ProjectName}}</h1>
      <p>Edit src/pages/index.tsx and main.go to get started.</p>
    </main>
  );
}
`

	gitignore = `build/
node_modules/
.env
`
)

// minimalTemplate returns the minimal template.
func minimalTemplate() *Template {
	return &Template{
		Name:        "minimal",
		Description: "A single server-rendered page",
		Files: map[string]string{
			"go.mod":              goMod,
			"squid.json":          squidJSON,
			".gitignore":          gitignore,
			"src/pages/index.tsx": indexPage,
			"main.go": `package main

import (
	"context"

	"github.com/vango-dev/squid"
)

func main() {
	app := squid.New()

	app.Page("index", func(ctx context.Context, props map[string]any) ([]byte, error) {
		return []byte("<!doctype html><html><head><title>{{.ProjectName}}</title></head>" +
			"<body><main><h1>{{.ProjectName}}</h1></main></body></html>"), nil
	})

	app.Main()
}
`,
		},
	}
}

// fullTemplate returns the full template.
func fullTemplate() *Template {
	return &Template{
		Name:        "full",
		Description: "Pages with server-side props, an API route and static files",
		Files: map[string]string{
			"go.mod":              goMod,
			"squid.json":          squidJSON,
			".gitignore":          gitignore,
			"src/pages/index.tsx": indexPage,
			"src/pages/blog/{slug}.tsx": `import { h, hydrate } from 'preact';

export { h, hydrate };

export default function Post({ slug }: { slug: string }) {
  return (
    <article>
      <h1>{slug}</h1>
    </article>
  );
}
`,
			"src/pages/blog/{slug}.props.ts": `export async function getServerSideProps({ params }: { params: { slug: string } }) {
  return { props: { slug: params.slug } };
}
`,
			"src/pages/api/hello.ts": `export default function handler() {
  return new Response(JSON.stringify({ message: 'hello' }));
}
`,
			"public/styles.css": `body {
  font-family: system-ui, sans-serif;
  max-width: 800px;
  margin: 0 auto;
  padding: 2rem;
}
`,
			"main.go": `package main

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"

	"github.com/vango-dev/squid"
)

const layout = "<!doctype html><html><head><title>%s</title>" +
	"<link rel=\"stylesheet\" href=\"/styles.css\"></head><body>%s</body></html>"

func main() {
	app := squid.New()

	app.Page("index", func(ctx context.Context, props map[string]any) ([]byte, error) {
		return []byte(fmt.Sprintf(layout, "{{.ProjectName}}", "<main><h1>{{.ProjectName}}</h1></main>")), nil
	})

	app.Props("blog/{slug}", func(ctx context.Context, req squid.PropsRequest) (squid.PropsResult, error) {
		slug := req.Params["slug"]
		if slug == "latest" {
			return squid.PropsResult{Redirect: &squid.Redirect{Destination: "/blog/hello-world"}}, nil
		}
		return squid.PropsResult{Props: map[string]any{"slug": slug}}, nil
	})

	app.Page("blog/{slug}", func(ctx context.Context, props map[string]any) ([]byte, error) {
		title := html.EscapeString(fmt.Sprint(props["slug"]))
		return []byte(fmt.Sprintf(layout, title, "<article><h1>"+title+"</h1></article>")), nil
	})

	app.API("api/hello", func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "hello"})
	})

	app.Main()
}
`,
			"README.md": `# {{.ProjectName}}

{{if .Description}}{{.Description}}

{{end}}## Development

    go run . dev

## Production

    go run . build
    go run . start

## Routes

    go run . routes
`,
		},
	}
}

// apiTemplate returns the API-only template.
func apiTemplate() *Template {
	return &Template{
		Name:        "api",
		Description: "API routes without pages",
		Files: map[string]string{
			"go.mod":     goMod,
			".gitignore": gitignore,
			"squid.json": `{
  "name": "{{.ProjectName}}",
  "server": {
    "cors": {
      "enabled": true
    }
  }
}
`,
			"src/pages/api/users/{id}.ts": `export default function handler() {}
`,
			"main.go": `package main

import (
	"encoding/json"
	"net/http"

	"github.com/vango-dev/squid"
)

func main() {
	app := squid.New()

	app.API("api/users/{id}", func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": params["id"]})
	})

	app.Main()
}
`,
			"README.md": `# {{.ProjectName}}

{{if .Description}}{{.Description}}

{{end}}API-only squid project.

    go run . dev
    curl localhost:3000/api/users/42
`,
		},
	}
}

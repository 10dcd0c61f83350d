package build

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/vango-dev/squid/pkg/routetree"
)

// Client stub files written to the output root.
const (
	APIClientFile    = "api.js"
	APITypesFile     = "api.module.d.ts"
	LambdaClientFile = "lambda.js"
	LambdaTypesFile  = "lambda.module.d.ts"
)

// Endpoint is one generated client function.
type Endpoint struct {
	// Name is the exported function name; Name+"Url" holds the URL.
	Name string

	// URL is fetched by the function.
	URL string
}

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9/]`)

// FunctionName derives a camel-cased identifier from a route path:
// "api/user-list" becomes "apiUserlist".
func FunctionName(route string) string {
	clean := nonIdent.ReplaceAllString(route, "")
	var b strings.Builder
	upper := false
	for _, r := range clean {
		if r == '/' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
		}
		upper = false
		b.WriteRune(r)
	}
	return b.String()
}

func routeOf(rel string) string {
	return strings.TrimSuffix(rel, path.Ext(rel))
}

// APIEndpoints returns the client endpoints for api sources. Props modules
// are skipped.
func APIEndpoints(sources []Source) []Endpoint {
	var out []Endpoint
	for _, s := range sources {
		if s.Group != GroupAPI || s.Kind != routetree.KindAPI {
			continue
		}
		route := routeOf(s.Rel)
		out = append(out, Endpoint{Name: FunctionName(route), URL: "/" + route})
	}
	return out
}

var schemePrefix = regexp.MustCompile(`^(https?://)?`)

// LambdaEndpoints returns the client endpoints for lambda sources, addressed
// as gateway/function/<package>-<path with dashes>.
func LambdaEndpoints(sources []Source, gateway, packageName string) []Endpoint {
	var out []Endpoint
	for _, s := range sources {
		if s.Group != GroupLambda {
			continue
		}
		route := routeOf(s.Rel)
		fn := packageName + "-" + strings.ReplaceAll(route, "/", "-")
		url := fmt.Sprintf("%s/function/%s", strings.TrimSuffix(gateway, "/"), fn)
		url = schemePrefix.ReplaceAllStringFunc(url, func(p string) string {
			if p == "" {
				return "http://"
			}
			return p
		})
		out = append(out, Endpoint{Name: FunctionName(route), URL: url})
	}
	return out
}

// ClientModule renders the fetch wrappers for endpoints.
func ClientModule(endpoints []Endpoint) string {
	parts := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		parts = append(parts, fmt.Sprintf(
			"export function %[1]s(options) {\n  return fetch('%[2]s', options);\n}\nexport const %[1]sUrl = '%[2]s';\n",
			e.Name, e.URL))
	}
	return strings.Join(parts, "\n")
}

// TypesModule renders the ambient declarations for endpoints under
// squid-ssr/<name>.
func TypesModule(name string, endpoints []Endpoint) string {
	lines := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		lines = append(lines, fmt.Sprintf(
			"export function %[1]s(options?: RequestInit): Promise<Response>;\nexport const %[1]sUrl: '%[2]s';",
			e.Name, e.URL))
	}
	return fmt.Sprintf("declare module 'squid-ssr/%s' {\n%s\n}", name, strings.Join(lines, "\n"))
}

// writeClients writes the api and lambda stubs into dir.
func writeClients(dir string, api, lambda []Endpoint) error {
	files := map[string]string{
		APIClientFile:    ClientModule(api),
		APITypesFile:     TypesModule("api", api),
		LambdaClientFile: ClientModule(lambda),
		LambdaTypesFile:  TypesModule("lambda", lambda),
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

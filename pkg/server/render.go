package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"

	"github.com/vango-dev/squid/pkg/routetree"
)

// PropsScriptID is the id of the script element carrying the page props.
const PropsScriptID = "squid-ssr-props"

// HydrateAsset is the asset name of the hydration bootstrap.
const HydrateAsset = "hydrate.js"

// Page is everything a renderer needs to produce one page.
type Page struct {
	Leaf   *routetree.Leaf
	Module *routetree.Module
	Props  map[string]any
	Params map[string]string

	// ModuleURL is the browser import URL of the compiled page module.
	ModuleURL string

	// HydrateURL is the URL of the hydration bootstrap.
	HydrateURL string

	// HeadExtra is raw HTML appended to the injected head block.
	HeadExtra string
}

// Renderer turns a loaded page module into HTML.
type Renderer interface {
	Render(ctx context.Context, page Page) ([]byte, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, page Page) ([]byte, error)

// Render implements Renderer.
func (f RendererFunc) Render(ctx context.Context, page Page) ([]byte, error) {
	return f(ctx, page)
}

// Shell is the document served for pages without a Go render function. The
// page module renders into it in the browser once the hydration script runs.
const Shell = "<!doctype html><html><head></head><body></body></html>"

// DefaultRenderer calls the module's render export and injects the props and
// the hydration script into the document head. Pages with no render export
// get the Shell document.
type DefaultRenderer struct{}

// Render implements Renderer.
func (DefaultRenderer) Render(ctx context.Context, page Page) ([]byte, error) {
	var body []byte
	export := page.Module.Exports[routetree.ExportDefault]
	if render, ok := routetree.RenderExport(page.Module); ok {
		out, err := render(ctx, page.Props)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", page.Leaf.ID, err)
		}
		body = out
	} else if export == nil {
		body = []byte(Shell)
	} else {
		return nil, &routetree.MalformedModuleError{
			Module: page.Leaf.ID,
			Kind:   page.Leaf.Kind,
			Got:    fmt.Sprintf("%T", export),
		}
	}

	head, err := HeadScripts(page.ModuleURL, page.HydrateURL, page.Props)
	if err != nil {
		return nil, err
	}
	return InjectHead(body, head+page.HeadExtra), nil
}

// HeadScripts returns the props and hydration script elements for a page.
// The props JSON is HTML-escaped so it cannot close the script element.
func HeadScripts(moduleURL, hydrateURL string, props map[string]any) (string, error) {
	if props == nil {
		props = map[string]any{}
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("encode props: %w", err)
	}
	return fmt.Sprintf(
		`<script id="%s" type="application/json" data-module="%s">%s</script>`+
			`<script src="%s" type="module" defer></script>`,
		PropsScriptID, html.EscapeString(moduleURL), data, html.EscapeString(hydrateURL),
	), nil
}

// InjectHead inserts snippet right after the opening head tag, or at the start
// of the document when there is none.
func InjectHead(doc []byte, snippet string) []byte {
	if snippet == "" {
		return doc
	}
	if at := headEnd(doc); at >= 0 {
		out := make([]byte, 0, len(doc)+len(snippet))
		out = append(out, doc[:at]...)
		out = append(out, snippet...)
		return append(out, doc[at:]...)
	}
	return append([]byte(snippet), doc...)
}

// headEnd returns the offset just past the opening head tag, or -1.
func headEnd(doc []byte) int {
	lower := bytes.ToLower(doc)
	for off := 0; ; {
		i := bytes.Index(lower[off:], []byte("<head"))
		if i < 0 {
			return -1
		}
		i += off + len("<head")
		if i < len(doc) && (doc[i] == '>' || doc[i] == ' ' || doc[i] == '\t' || doc[i] == '\n') {
			if end := bytes.IndexByte(doc[i:], '>'); end >= 0 {
				return i + end + 1
			}
			return -1
		}
		off = i
	}
}

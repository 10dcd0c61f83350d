package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/squid/pkg/artifact"
	"github.com/vango-dev/squid/pkg/assets"
	"github.com/vango-dev/squid/pkg/middleware"
	"github.com/vango-dev/squid/pkg/routetree"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	out      string
	registry *artifact.Registry
	table    *routetree.Table
	records  []routetree.Record
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		out:      t.TempDir(),
		registry: artifact.NewRegistry(),
		table:    routetree.NewTable(),
	}

	f.page("index.mjs")
	f.page("blog/{slug}.mjs")
	f.props("blog/{slug}.props.mjs")
	f.page("old.mjs")
	f.props("old.props.mjs")
	f.page("broken.mjs")
	f.props("broken.props.mjs")
	f.api("api/users/{id}.mjs")
	f.file("hydrate.js", "export {}")
	f.file("assets/app.3f2a9c1b.css", "body{}")

	f.registry.Page("index", renderer("home"))
	f.registry.Page("blog/{slug}", renderer("post"))
	f.registry.Props("blog/{slug}", func(_ context.Context, req routetree.PropsRequest) (routetree.PropsResult, error) {
		return routetree.PropsResult{Props: map[string]any{
			"slug": req.Params["slug"],
			"q":    req.Query.Get("q"),
		}}, nil
	})
	f.registry.Page("old", renderer("old"))
	f.registry.Page("broken", renderer("broken"))
	f.registry.Register("broken.props", routetree.Exports{routetree.ExportServerSideProps: "not a function"})
	f.registry.API("api/users/{id}", func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		fmt.Fprintf(w, "%s user=%s ctx=%s", r.Method, params["id"], Param(r, "id"))
	})

	f.publish(t)
	return f
}

func renderer(name string) routetree.RenderFunc {
	return func(_ context.Context, props map[string]any) ([]byte, error) {
		return []byte(fmt.Sprintf("<html><head><title>%s</title></head><body>%s %v</body></html>", name, name, props["slug"])), nil
	}
}

func (f *fixture) file(rel, body string) string {
	p := filepath.Join(f.out, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		panic(err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		panic(err)
	}
	return p
}

func (f *fixture) add(rel string, kind routetree.Kind) {
	p := f.file("pages/"+rel, "export default {}")
	f.records = append(f.records, routetree.Record{OutputPath: p, Kind: kind, SourcePath: "src/pages/" + rel})
}

func (f *fixture) page(rel string)  { f.add(rel, routetree.KindPage) }
func (f *fixture) api(rel string)   { f.add(rel, routetree.KindAPI) }
func (f *fixture) props(rel string) { f.add(rel, routetree.KindProps) }

func (f *fixture) publish(t *testing.T) {
	t.Helper()
	tree, err := routetree.NewBuilder(
		routetree.WithBaseDir(filepath.Join(f.out, "pages")),
		routetree.WithLogger(quietLogger),
	).Add(f.records...).Build()
	require.NoError(t, err)
	f.table.Publish(tree, "test")
}

func (f *fixture) server(opts ...Option) *Server {
	store := artifact.NewDiskStore(f.out)
	classifier := routetree.NewClassifier(
		artifact.NewLoader(store, f.registry, f.out),
		routetree.WithClassifierLogger(quietLogger),
		routetree.WithRetryBackoff(0),
	)
	opts = append([]Option{WithLogger(quietLogger), WithStatic(store)}, opts...)
	return New(f.table, classifier, opts...)
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServePage(t *testing.T) {
	srv := newFixture(t).server()

	rec := do(srv, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "<body>home")
	assert.Contains(t, body, `<head><script id="squid-ssr-props" type="application/json" data-module="/pages/index.mjs">{}</script>`)
	assert.Contains(t, body, `<script src="/hydrate.js" type="module" defer></script><title>home</title>`)
}

func TestServePageFingerprintedHydrate(t *testing.T) {
	m := assets.NewManifest()
	m.Set(HydrateAsset, "hydrate.3f2a9c1b.js")
	srv := newFixture(t).server(WithAssets(assets.NewResolver(m, "/")))

	rec := do(srv, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<script src="/hydrate.3f2a9c1b.js" type="module" defer></script>`)
}

func TestServePageWithProps(t *testing.T) {
	srv := newFixture(t).server()

	rec := do(srv, http.MethodGet, "/blog/hello%20world?q=go")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<body>post hello world")
	assert.Contains(t, body, `"slug":"hello world"`)
	assert.Contains(t, body, `"q":"go"`)
	assert.Contains(t, body, `data-module="/pages/blog/%7Bslug%7D.mjs"`)
}

func TestServePageHead(t *testing.T) {
	srv := newFixture(t).server()

	rec := do(srv, http.MethodHead, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(srv, http.MethodPost, "/")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
}

func TestServeAPI(t *testing.T) {
	srv := newFixture(t).server()

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		rec := do(srv, method, "/api/users/42")
		require.Equal(t, http.StatusOK, rec.Code, method)
		assert.Equal(t, method+" user=42 ctx=42", rec.Body.String())
	}
}

func TestServeAPICORS(t *testing.T) {
	srv := newFixture(t).server(WithCORS(CORSConfig{
		AllowedOrigins: []string{"https://app.example"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/7", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCanonicalRedirect(t *testing.T) {
	srv := newFixture(t).server()

	tests := []struct {
		target string
		want   string
	}{
		{"/blog/post/", "/blog/post"},
		{"//blog//post?x=1", "/blog/post?x=1"},
		{"/blog/./post", "/blog/post"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(srv, http.MethodGet, tt.target)
			assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Location"))
		})
	}
}

func TestInvalidPath(t *testing.T) {
	srv := newFixture(t).server()

	rec := do(srv, http.MethodGet, "/../etc/passwd")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(srv, http.MethodGet, "/blog/a%2Fb")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeEscapedLiteralRoute(t *testing.T) {
	f := newFixture(t)
	f.page("über.mjs")
	f.page("about us/team.mjs")
	f.publish(t)
	srv := f.server()

	rec := do(srv, http.MethodGet, "/%C3%BCber")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-module="/pages/%C3%BCber.mjs"`)

	rec = do(srv, http.MethodGet, "/about%20us/team")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(srv, http.MethodGet, "/blog/hello%20world")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "post hello world")
}

func TestNotFound(t *testing.T) {
	f := newFixture(t)

	rec := do(f.server(), http.MethodGet, "/missing/page")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	rec = do(f.server(WithNext(next)), http.MethodGet, "/missing/page")
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestNotReady(t *testing.T) {
	f := newFixture(t)
	srv := New(routetree.NewTable(), routetree.NewClassifier(nil), WithLogger(quietLogger))

	rec := do(srv, http.MethodGet, "/")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	srv = New(f.table, routetree.NewClassifier(nil), WithLogger(quietLogger))
	rec = do(srv, http.MethodGet, "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPropsRedirect(t *testing.T) {
	tests := []struct {
		name     string
		redirect routetree.Redirect
		wantCode int
		wantLoc  string
	}{
		{"temporary", routetree.Redirect{Destination: "/blog/new"}, http.StatusTemporaryRedirect, "/blog/new"},
		{"permanent", routetree.Redirect{Destination: "/blog/new?x=1", Permanent: true}, http.StatusPermanentRedirect, "/blog/new?x=1"},
		{"cleaned", routetree.Redirect{Destination: "/blog//new/"}, http.StatusTemporaryRedirect, "/blog/new"},
		{"external", routetree.Redirect{Destination: "https://evil.example/"}, http.StatusInternalServerError, ""},
		{"protocol relative", routetree.Redirect{Destination: "//evil.example/"}, http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rd := tt.redirect
			f.registry.Props("old", func(context.Context, routetree.PropsRequest) (routetree.PropsResult, error) {
				return routetree.PropsResult{Redirect: &rd}, nil
			})

			rec := do(f.server(), http.MethodGet, "/old")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLoc, rec.Header().Get("Location"))
		})
	}
}

func TestMalformedProps(t *testing.T) {
	f := newFixture(t)

	rec := do(f.server(), http.MethodGet, "/broken")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "E220")

	rec = do(f.server(WithDevMode(true)), http.MethodGet, "/broken")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "E220")
}

func TestPropsError(t *testing.T) {
	f := newFixture(t)
	f.registry.Props("old", func(context.Context, routetree.PropsRequest) (routetree.PropsResult, error) {
		return routetree.PropsResult{}, errors.New("database down")
	})

	rec := do(f.server(WithDevMode(true)), http.MethodGet, "/old")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "database down")
}

func TestModuleMissingFromStore(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(filepath.Join(f.out, "pages", "index.mjs")))

	rec := do(f.server(WithDevMode(true)), http.MethodGet, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "E221")
}

func TestPageWithoutRenderExport(t *testing.T) {
	f := newFixture(t)
	f.registry.Register("index", routetree.Exports{routetree.ExportDefault: 42})

	rec := do(f.server(), http.MethodGet, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServePageShell(t *testing.T) {
	f := newFixture(t)
	f.page("about.mjs")
	f.publish(t)

	rec := do(f.server(), http.MethodGet, "/about")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "<!doctype html><html><head><script id=\"squid-ssr-props\""), body)
	assert.Contains(t, body, `data-module="/pages/about.mjs">{}</script>`)
	assert.Contains(t, body, `<script src="/hydrate.js" type="module" defer></script></head><body></body></html>`)
}

func TestCustomRenderer(t *testing.T) {
	var got Page
	srv := newFixture(t).server(WithRenderer(RendererFunc(func(_ context.Context, p Page) ([]byte, error) {
		got = p
		return []byte("custom"), nil
	})))

	rec := do(srv, http.MethodGet, "/blog/x")
	assert.Equal(t, "custom", rec.Body.String())
	assert.Equal(t, "blog/{slug}", got.Leaf.Key)
	assert.Equal(t, map[string]string{"slug": "x"}, got.Params)
	assert.Equal(t, "x", got.Props["slug"])
	require.NotNil(t, got.Module)
}

func TestServeStatic(t *testing.T) {
	srv := newFixture(t).server()

	rec := do(srv, http.MethodGet, "/hydrate.js")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/javascript; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=0, must-revalidate", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "export {}", rec.Body.String())

	rec = do(srv, http.MethodGet, "/pages/blog/%7Bslug%7D.mjs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/javascript; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = do(srv, http.MethodGet, "/assets/app.3f2a9c1b.css")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=31536000, immutable", rec.Header().Get("Cache-Control"))

	rec = do(srv, http.MethodGet, "/nope.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(srv, http.MethodPost, "/hydrate.js")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServeStaticDevMode(t *testing.T) {
	srv := newFixture(t).server(WithDevMode(true))

	rec := do(srv, http.MethodGet, "/assets/app.3f2a9c1b.css")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestPublishSwapsTree(t *testing.T) {
	f := newFixture(t)
	srv := f.server()

	assert.Equal(t, http.StatusNotFound, do(srv, http.MethodGet, "/about").Code)

	f.page("about.mjs")
	f.registry.Page("about", renderer("about"))
	f.publish(t)

	rec := do(srv, http.MethodGet, "/about")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<body>about")
}

func TestSnapshotInContext(t *testing.T) {
	f := newFixture(t)
	var snap *routetree.Snapshot
	f.registry.API("api/users/{id}", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		snap = SnapshotFromContext(r.Context())
	})

	do(f.server(), http.MethodGet, "/api/users/1")
	require.NotNil(t, snap)
	assert.Equal(t, "test", snap.BuildID)
	assert.Same(t, f.table.Snapshot(), snap)
}

func TestParamsOutsideRoute(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, Params(req))
	assert.Equal(t, "", Param(req, "id"))
}

func TestMetrics(t *testing.T) {
	m := middleware.NewMetrics(middleware.WithRegistry(prometheus.NewRegistry()))
	srv := newFixture(t).server(WithMetrics(m, "/metrics"))

	do(srv, http.MethodGet, "/")
	do(srv, http.MethodGet, "/api/users/1")
	do(srv, http.MethodGet, "/missing")
	do(srv, http.MethodGet, "/broken")

	rec := do(srv, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `squid_requests_total{kind="page",status="2xx"} 1`)
	assert.Contains(t, body, `squid_requests_total{kind="api",status="2xx"} 1`)
	assert.Contains(t, body, `squid_requests_total{kind="not_found",status="4xx"} 1`)
	assert.Contains(t, body, `squid_requests_total{kind="page",status="5xx"} 1`)
	assert.Contains(t, body, `squid_module_errors_total{type="malformed"} 1`)
}

func TestReloadMount(t *testing.T) {
	reload := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusSwitchingProtocols)
	})
	srv := newFixture(t).server(WithReload(reload, "<script>reload()</script>"))

	assert.Equal(t, http.StatusSwitchingProtocols, do(srv, http.MethodGet, ReloadPath).Code)

	body := do(srv, http.MethodGet, "/").Body.String()
	assert.Contains(t, body, `defer></script><script>reload()</script><title>`)
}

func TestInjectHead(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"head", "<html><head><title>x</title></head></html>", "<html><head>S<title>x</title></head></html>"},
		{"head with attrs", `<HEAD lang="en"><title>x</title>`, `<HEAD lang="en">S<title>x</title>`},
		{"header only", "<header>x</header>", "S<header>x</header>"},
		{"header before head", "<header></header><head></head>", "<header></header><head>S</head>"},
		{"fragment", "<div>x</div>", "S<div>x</div>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(InjectHead([]byte(tt.doc), "S")))
		})
	}

	assert.Equal(t, "<p>", string(InjectHead([]byte("<p>"), "")))
}

func TestHeadScriptsEscapesProps(t *testing.T) {
	out, err := HeadScripts(`/pages/a".mjs`, "/hydrate.js", map[string]any{"html": "</script><script>alert(1)</script>"})
	require.NoError(t, err)

	assert.NotContains(t, out, "</script><script>alert")
	assert.Contains(t, out, `</script>`)
	assert.Contains(t, out, `data-module="/pages/a&#34;.mjs"`)

	out, err = HeadScripts("/pages/index.mjs", "/hydrate.js", nil)
	require.NoError(t, err)
	assert.Contains(t, out, ">{}</script>")

	_, err = HeadScripts("/x.mjs", "/hydrate.js", map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	srv := newFixture(t).server()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestModuleURL(t *testing.T) {
	srv := New(routetree.NewTable(), nil, WithModulePrefix("/static/pages"), WithLogger(quietLogger))
	assert.Equal(t, "/static/pages/blog/%7Bslug%7D.mjs", srv.moduleURL("blog/{slug}.mjs"))
	assert.True(t, strings.HasPrefix(srv.moduleURL("index.mjs"), "/static/pages/"))
}

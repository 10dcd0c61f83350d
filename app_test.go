package squid

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/vango-dev/squid/internal/cli"
	"github.com/vango-dev/squid/pkg/routetree"
)

func TestAppRegistersModules(t *testing.T) {
	app := New().
		Page("index", func(ctx context.Context, props map[string]any) ([]byte, error) {
			return []byte("<p>home</p>"), nil
		}).
		Props("blog/{slug}", func(ctx context.Context, req PropsRequest) (PropsResult, error) {
			return PropsResult{Redirect: &Redirect{Destination: "/"}}, nil
		}).
		API("api/users", func(w http.ResponseWriter, r *http.Request, p map[string]string) {})

	want := []string{"api/users", "blog/{slug}" + routetree.PropsSuffix, "index"}
	got := app.Registry().Keys()
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	exports, ok := app.Registry().Lookup("blog/{slug}" + routetree.PropsSuffix)
	if !ok {
		t.Fatal("props not registered")
	}
	if _, ok := exports[routetree.ExportServerSideProps].(routetree.PropsFunc); !ok {
		t.Errorf("props export = %T, want PropsFunc", exports[routetree.ExportServerSideProps])
	}
}

func TestAppCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := New(WithOutput(&out)).Command()

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"init", "build", "dev", "start", "routes", "version"} {
		if !names[name] {
			t.Errorf("missing %q command", name)
		}
	}

	cmd.SetArgs([]string{"version", "--short"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.String() != cli.Version+"\n" {
		t.Errorf("output = %q, want %q", out.String(), cli.Version+"\n")
	}
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	Report(&buf, fmt.Errorf("listen: address in use"))
	if !strings.Contains(buf.String(), "listen: address in use") {
		t.Errorf("Report() = %q", buf.String())
	}

	_, err := routetree.NewBuilder(routetree.WithBaseDir("/out")).Add(
		routetree.Record{OutputPath: "/out/blog/{slug}.mjs", Kind: routetree.KindPage},
		routetree.Record{OutputPath: "/out/blog/{id}.mjs", Kind: routetree.KindPage},
	).Build()
	if !routetree.IsBuildError(err) {
		t.Fatalf("Build() error = %v, want a build error", err)
	}

	buf.Reset()
	Report(&buf, err)
	if !strings.Contains(buf.String(), "E201") {
		t.Errorf("Report() = %q, want E201", buf.String())
	}
}

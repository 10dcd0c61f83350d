package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/squid/pkg/routetree"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{"duplicate route", "E200", "Duplicate route", CategoryRoute},
		{"compile failed", "E211", "Compilation failed", CategoryBuild},
		{"module load", "E221", "Module load failed", CategoryRequest},
		{"config", "E230", "Cannot parse squid.json", CategoryConfig},
		{"unknown", "E999", "Unknown error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestRegistryComplete(t *testing.T) {
	want := []string{"E200", "E201", "E202", "E203", "E204", "E205", "E210", "E211",
		"E220", "E221", "E230", "E231", "E232", "E240", "E250", "E251"}
	got := Codes()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Codes() = %v, want %v", got, want)
	}
	for _, code := range got {
		tmpl, _ := Lookup(code)
		if tmpl.Message == "" || tmpl.Detail == "" || tmpl.Category == "" {
			t.Errorf("%s has an incomplete template", code)
		}
	}
}

func TestSquidErrorError(t *testing.T) {
	if got := New("E200").Error(); got != "E200: Duplicate route" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&SquidError{Message: "plain"}).Error(); got != "plain" {
		t.Errorf("Error() = %q", got)
	}

	cause := fmt.Errorf("boom")
	err := New("E221").Wrap(cause)
	if got := err.Error(); got != "E221: Module load failed: boom" {
		t.Errorf("Error() = %q", got)
	}
	if !Is(err, cause) {
		t.Error("wrapped cause should be reachable with Is")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E211") != nil {
		t.Error("FromError(nil) should be nil")
	}

	orig := New("E230")
	if got := FromError(fmt.Errorf("ctx: %w", orig), "E211"); got != orig {
		t.Error("FromError should return an existing SquidError in the chain")
	}

	got := FromError(os.ErrNotExist, "E210")
	if got.Code != "E210" || !Is(got, os.ErrNotExist) {
		t.Errorf("FromError = %+v", got)
	}
}

func TestWithLocation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "page.tsx")
	content := "line1\nline2\nline3\nline4\nline5\nline6\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	err := New("E211").WithLocation(file, 3, 2)
	if err.Location.String() != file+":3:2" {
		t.Errorf("Location = %q", err.Location.String())
	}
	if len(err.Context) != 5 || err.Context[0] != "line1" || err.Context[4] != "line5" {
		t.Errorf("Context = %v", err.Context)
	}
}

func TestLocationString(t *testing.T) {
	tests := []struct {
		loc  *Location
		want string
	}{
		{nil, ""},
		{&Location{File: "a.ts"}, "a.ts"},
		{&Location{File: "a.ts", Line: 4}, "a.ts:4"},
		{&Location{File: "a.ts", Line: 4, Column: 9}, "a.ts:4:9"},
	}
	for _, tt := range tests {
		if got := tt.loc.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestWithLocationFromOutput(t *testing.T) {
	output := "✘ [ERROR] Expected \";\" but found \"x\"\n\n    src/pages/index.tsx:12:7:\n      12 │ const a x\n"
	err := New("E211").WithLocationFromOutput(output)
	if err.Location == nil || err.Location.File != "src/pages/index.tsx" || err.Location.Line != 12 || err.Location.Column != 7 {
		t.Errorf("Location = %+v", err.Location)
	}

	if New("E211").WithLocationFromOutput("no position here").Location != nil {
		t.Error("expected no location")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E200").
		WithLocation("src/pages/a.tsx", 0, 0).
		WithSuggestion("Remove one.")
	out := err.Format()

	for _, want := range []string{
		"ERROR E200: Duplicate route",
		"src/pages/a.tsx",
		"Two modules compile to the same route key.",
		"Hint: Remove one.",
		"Learn more: " + DocBase + "E200",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() should not contain ANSI codes when colors are disabled")
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E202").WithLocation("src/pages/x.tsx", 0, 0)
	if got := err.FormatCompact(); got != "src/pages/x.tsx: E202: Duplicate route parameter" {
		t.Errorf("FormatCompact() = %q", got)
	}
}

func TestMarshalJSON(t *testing.T) {
	err := New("E221").Wrap(fmt.Errorf("timeout")).WithLocation("a.ts", 1, 0)
	data, jerr := json.Marshal(err)
	if jerr != nil {
		t.Fatal(jerr)
	}

	var got map[string]any
	if jerr := json.Unmarshal(data, &got); jerr != nil {
		t.Fatal(jerr)
	}
	if got["code"] != "E221" || got["cause"] != "timeout" || got["category"] != "request" {
		t.Errorf("json = %s", data)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("aaa bbb ccc ddd", 7)
	if len(lines) != 2 || lines[0] != "aaa bbb" || lines[1] != "ccc ddd" {
		t.Errorf("wrapText = %q", lines)
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText of empty text should be nil")
	}
}

func TestFromBuildError(t *testing.T) {
	_, err := routetree.NewBuilder(routetree.WithBaseDir("build/pages")).Add(
		routetree.Record{OutputPath: "build/pages/a.mjs", Kind: routetree.KindPage, SourcePath: "src/pages/a.tsx"},
		routetree.Record{OutputPath: "build/pages/a.mjs", Kind: routetree.KindPage, SourcePath: "src/pages/a.jsx"},
		routetree.Record{OutputPath: "build/pages/x/{a}.mjs", Kind: routetree.KindPage},
		routetree.Record{OutputPath: "build/pages/x/{b}.mjs", Kind: routetree.KindPage},
		routetree.Record{OutputPath: "build/pages/{p}/{p}.mjs", Kind: routetree.KindPage},
		routetree.Record{OutputPath: "build/pages/api/u.mjs", Kind: routetree.KindAPI},
		routetree.Record{OutputPath: "build/pages/api/u.props.mjs", Kind: routetree.KindProps},
		routetree.Record{OutputPath: "elsewhere/z.mjs", Kind: routetree.KindPage},
		routetree.Record{OutputPath: "build/pages/c-d.mjs", Kind: routetree.KindPage},
		routetree.Record{OutputPath: "build/pages/c_d.mjs", Kind: routetree.KindPage},
	).Build()
	if err == nil {
		t.Fatal("expected build error")
	}

	var codes []string
	for _, se := range FromBuildError(err) {
		codes = append(codes, se.Code)
	}
	want := "E200,E201,E202,E203,E205,E204"
	if got := strings.Join(codes, ","); got != want {
		t.Errorf("codes = %s, want %s", got, want)
	}
}

func TestFromBuildErrorNil(t *testing.T) {
	if FromBuildError(nil) != nil {
		t.Error("FromBuildError(nil) should be nil")
	}
}

func TestFromRequestError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&routetree.MalformedPropsExportError{Module: "m", Export: "getServerSideProps"}, "E220"},
		{&routetree.ModuleLoadError{Module: "m", Attempts: 2, Err: os.ErrNotExist}, "E221"},
	}
	for _, tt := range tests {
		if got := FromRequestError(tt.err); got == nil || got.Code != tt.want {
			t.Errorf("FromRequestError(%T) = %v, want %s", tt.err, got, tt.want)
		}
	}
	if FromRequestError(os.ErrClosed) != nil {
		t.Error("unrelated errors should yield nil")
	}
}

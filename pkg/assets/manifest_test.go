package assets

import (
	"testing"
)

func TestManifestResolve(t *testing.T) {
	m := NewManifest()
	m.Set("hydrate.js", "hydrate.3f2a9c1b.js")
	m.Set("styles.css", "styles.0123abcd.css")

	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{"found entry", "hydrate.js", "hydrate.3f2a9c1b.js"},
		{"found entry css", "styles.css", "styles.0123abcd.css"},
		{"missing entry returns original", "unknown.js", "unknown.js"},
		{"empty string returns empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Resolve(tt.source)
			if got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.source, got, tt.expected)
			}
		})
	}
}

func TestManifestHasAndLen(t *testing.T) {
	m := NewManifest()
	m.Set("hydrate.js", "hydrate.3f2a9c1b.js")

	if !m.Has("hydrate.js") {
		t.Error("Has(hydrate.js) = false, want true")
	}
	if m.Has("other.js") {
		t.Error("Has(other.js) = true, want false")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestFromMapCopies(t *testing.T) {
	src := map[string]string{"hydrate.js": "hydrate.3f2a9c1b.js"}
	m := FromMap(src)
	src["hydrate.js"] = "changed.js"

	if got := m.Resolve("hydrate.js"); got != "hydrate.3f2a9c1b.js" {
		t.Errorf("Resolve() = %q after source map changed", got)
	}

	all := m.All()
	all["hydrate.js"] = "changed.js"
	if got := m.Resolve("hydrate.js"); got != "hydrate.3f2a9c1b.js" {
		t.Errorf("Resolve() = %q after All() result changed", got)
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("hydrate.js", []byte("export {}"))
	b := Fingerprint("hydrate.js", []byte("export {}"))
	c := Fingerprint("hydrate.js", []byte("export default 1"))

	if a != b {
		t.Errorf("Fingerprint not stable: %q vs %q", a, b)
	}
	if a == c {
		t.Errorf("different content gave the same name %q", a)
	}
	if !IsFingerprinted(a) {
		t.Errorf("IsFingerprinted(%q) = false", a)
	}
	if len(a) != len("hydrate..js")+HashLen {
		t.Errorf("Fingerprint() = %q, want %d hash digits", a, HashLen)
	}

	got := Fingerprint("assets/app.css", []byte("body{}"))
	if len(got) < len("assets/app.") || got[:len("assets/app.")] != "assets/app." || got[len(got)-4:] != ".css" {
		t.Errorf("Fingerprint(assets/app.css) = %q", got)
	}
}

func TestIsFingerprinted(t *testing.T) {
	tests := map[string]bool{
		"app.3f2a9c1b.js":    true,
		"a/b/c.0123abcd.css": true,
		"app.js":             false,
		"app.3f2a.js":        false,
		"app.ZZZZZZZZ.js":    false,
		"app.3F2A9C1B.js":    false,
	}
	for in, want := range tests {
		if got := IsFingerprinted(in); got != want {
			t.Errorf("IsFingerprinted(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestResolvers(t *testing.T) {
	m := NewManifest()
	m.Set("hydrate.js", "hydrate.3f2a9c1b.js")

	if got := NewResolver(m, "/").Asset("hydrate.js"); got != "/hydrate.3f2a9c1b.js" {
		t.Errorf("Asset() = %q", got)
	}
	if got := NewResolver(m, "/static/").Asset("other.js"); got != "/static/other.js" {
		t.Errorf("Asset() = %q", got)
	}
	if got := NewResolver(m, "").Asset("hydrate.js"); got != "/hydrate.3f2a9c1b.js" {
		t.Errorf("Asset() with empty prefix = %q", got)
	}
	if got := NewPassthroughResolver("/").Asset("hydrate.js"); got != "/hydrate.js" {
		t.Errorf("passthrough Asset() = %q", got)
	}
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		prefix string
		name   string
		want   string
	}{
		{"", "hydrate.js", "/hydrate.js"},
		{"/", "hydrate.js", "/hydrate.js"},
		{"/", "/hydrate.js", "/hydrate.js"},
		{"static", "hydrate.js", "/static/hydrate.js"},
		{"/static/", "js/hydrate.js", "/static/js/hydrate.js"},
		{"/static//", "//hydrate.js", "/static/hydrate.js"},
		{"https://cdn.example.com/assets/", "hydrate.js", "https://cdn.example.com/assets/hydrate.js"},
		{"/", "fonts/my font.woff2", "/fonts/my%20font.woff2"},
		{"/", "a?b#c.js", "/a%3Fb%23c.js"},
	}
	for _, tt := range tests {
		if got := JoinURL(tt.prefix, tt.name); got != tt.want {
			t.Errorf("JoinURL(%q, %q) = %q, want %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}

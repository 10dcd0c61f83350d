package routetree

import (
	"errors"
	"testing"
)

func TestParseSegment(t *testing.T) {
	tests := []struct {
		raw       string
		wantKey   string
		wantParam string
	}{
		{"blog", "blog", ""},
		{"index", "index", ""},
		{"{slug}", "{slug}", "slug"},
		{"[slug]", "{slug}", "slug"},
		{"(slug)", "{slug}", "slug"},
		{"[id", "[id", ""},
		{"{id]", "{id]", ""},
		{"post-{id}", "post-{id}", ""},
		{"index.props", "index.props", ""},
	}

	for _, tt := range tests {
		seg, err := ParseSegment(tt.raw)
		if err != nil {
			t.Fatalf("ParseSegment(%q) error: %v", tt.raw, err)
		}
		if seg.Key != tt.wantKey {
			t.Errorf("ParseSegment(%q).Key = %q, want %q", tt.raw, seg.Key, tt.wantKey)
		}
		if seg.Param != tt.wantParam {
			t.Errorf("ParseSegment(%q).Param = %q, want %q", tt.raw, seg.Param, tt.wantParam)
		}
		if seg.Dynamic() != (tt.wantParam != "") {
			t.Errorf("ParseSegment(%q).Dynamic() = %v", tt.raw, seg.Dynamic())
		}
	}
}

func TestParseSegmentInvalid(t *testing.T) {
	for _, raw := range []string{"", "{}", "[]", "()", "{a/b}", "[[id]]"} {
		if _, err := ParseSegment(raw); !errors.Is(err, ErrInvalidSegment) {
			t.Errorf("ParseSegment(%q) error = %v, want ErrInvalidSegment", raw, err)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		output  string
		wantID  string
		wantKey string
	}{
		{"build/pages/index.mjs", "index_mjs", "index"},
		{"build/pages/about.mjs", "about_mjs", "about"},
		{"build/pages/blog/[slug]/index.mjs", "blog_slug_index_mjs", "blog/{slug}/index"},
		{"build/pages/blog/{slug}/index.mjs", "blog_slug_index_mjs", "blog/{slug}/index"},
		{"build/pages/posts/(id).mjs", "posts_id_mjs", "posts/{id}"},
		{"build/pages/api/users.mjs", "api_users_mjs", "api/users"},
		{"build/pages/blog/[slug].props.mjs", "blog_slug_props_mjs", "blog/{slug}.props"},
		{"build/pages/blog/index.props.mjs", "blog_index_props_mjs", "blog/index.props"},
		{"./build/pages/my-page.mjs", "my_page_mjs", "my-page"},
	}

	for _, tt := range tests {
		got, err := Normalize(tt.output, "build/pages")
		if err != nil {
			t.Fatalf("Normalize(%q) error: %v", tt.output, err)
		}
		if got.Identifier != tt.wantID {
			t.Errorf("Normalize(%q).Identifier = %q, want %q", tt.output, got.Identifier, tt.wantID)
		}
		if got.Key() != tt.wantKey {
			t.Errorf("Normalize(%q).Key() = %q, want %q", tt.output, got.Key(), tt.wantKey)
		}
	}
}

func TestNormalizeKeepsIndex(t *testing.T) {
	got, err := Normalize("build/pages/a/b/index.mjs", "build/pages")
	if err != nil {
		t.Fatal(err)
	}
	keys := got.Keys()
	if len(keys) != 3 || keys[2] != IndexKey {
		t.Errorf("Keys() = %v, want trailing %q", keys, IndexKey)
	}
}

func TestNormalizeInvalid(t *testing.T) {
	tests := []struct {
		output string
		want   error
	}{
		{"dist/other/index.mjs", ErrInvalidPath},
		{"build/pages", ErrInvalidPath},
		{"build/pages/.mjs", ErrInvalidPath},
		{"build/pagesx/index.mjs", ErrInvalidPath},
		{"build/pages/[]/index.mjs", ErrInvalidSegment},
	}

	for _, tt := range tests {
		if _, err := Normalize(tt.output, "build/pages"); !errors.Is(err, tt.want) {
			t.Errorf("Normalize(%q) error = %v, want %v", tt.output, err, tt.want)
		}
	}
}

func TestIdentifier(t *testing.T) {
	tests := []struct {
		rel  string
		want string
	}{
		{"welcome/index.js", "welcome_index_js"},
		{"blog/{slug}/index.mjs", "blog_slug_index_mjs"},
		{"a b/c.d.mjs", "a_b_c_d_mjs"},
	}
	for _, tt := range tests {
		if got := Identifier(tt.rel); got != tt.want {
			t.Errorf("Identifier(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

package routetree

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Normalized is a build output path reduced to its route form.
type Normalized struct {
	// Identifier is a flattened, filesystem-safe unique name for the module.
	Identifier string

	// Segments are the canonical route segments, extension stripped.
	Segments []Segment
}

// Keys returns the canonical key of every segment.
func (n Normalized) Keys() []string {
	keys := make([]string, len(n.Segments))
	for i, seg := range n.Segments {
		keys[i] = seg.Key
	}
	return keys
}

// Key returns the slash-joined route key, e.g. "blog/{slug}/index".
func (n Normalized) Key() string {
	return strings.Join(n.Keys(), "/")
}

// Normalize converts a build output path into its identifier and route segments.
//
//	Normalize("build/pages/blog/[slug]/index.mjs", "build/pages")
//	→ Identifier "blog_slug_index_mjs", Segments blog/{slug}/index
//
// A trailing "index" segment is kept; index fallback is applied by the resolver.
func Normalize(outputPath, baseDir string) (Normalized, error) {
	rel, err := relativeTo(outputPath, baseDir)
	if err != nil {
		return Normalized{}, err
	}

	trimmed := strings.TrimSuffix(rel, path.Ext(rel))
	if trimmed == "" {
		return Normalized{}, fmt.Errorf("%w: %q has no module name", ErrInvalidPath, outputPath)
	}

	parts := strings.Split(trimmed, "/")
	segments := make([]Segment, 0, len(parts))
	for i, part := range parts {
		var seg Segment
		if i == len(parts)-1 && isPropsKey(part) {
			seg, err = parsePropsSegment(part)
		} else {
			seg, err = ParseSegment(part)
		}
		if err != nil {
			return Normalized{}, fmt.Errorf("normalizing %s: %w", outputPath, err)
		}
		segments = append(segments, seg)
	}

	return Normalized{
		Identifier: Identifier(rel),
		Segments:   segments,
	}, nil
}

// parsePropsSegment canonicalizes the base of a "<name>.props" component.
// The result is always a literal key; the builder attaches it to the sibling.
func parsePropsSegment(part string) (Segment, error) {
	base, err := ParseSegment(propsBase(part))
	if err != nil {
		return Segment{}, err
	}
	return Segment{Key: base.Key + PropsSuffix}, nil
}

// relativeTo strips baseDir from p and returns a clean slash path.
func relativeTo(p, baseDir string) (string, error) {
	p = filepath.ToSlash(p)
	baseDir = filepath.ToSlash(baseDir)

	rel := path.Clean(p)
	if baseDir != "" && baseDir != "." {
		base := path.Clean(baseDir)
		if rel != base && !strings.HasPrefix(rel, base+"/") {
			return "", fmt.Errorf("%w: %q is not under %q", ErrInvalidPath, p, baseDir)
		}
		rel = strings.TrimPrefix(strings.TrimPrefix(rel, base), "/")
	}

	rel = strings.TrimPrefix(rel, "./")
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || rel == "." || strings.HasPrefix(rel, "../") || rel == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return rel, nil
}

// Identifier flattens a relative module path into an import-safe name.
// Parameter brackets are dropped first, then every character outside
// [A-Za-z0-9] becomes "_".
//
//	Identifier("blog/{slug}/index.mjs") == "blog_slug_index_mjs"
//
// Distinct paths can flatten to the same name ("a-b", "a_b"); Builder.Build
// rejects such pairs with an IdentifierCollisionError.
func Identifier(rel string) string {
	rel = filepath.ToSlash(rel)

	var b strings.Builder
	b.Grow(len(rel))
	for i := 0; i < len(rel); i++ {
		c := rel[i]
		switch {
		case c == '{' || c == '}' || c == '[' || c == ']' || c == '(' || c == ')':
			continue
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

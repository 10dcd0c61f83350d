package routetree

import (
	"errors"
	"fmt"
	"strings"
)

// Reserved route-key conventions.
const (
	// IndexKey is the key an interior node's default page is stored under.
	IndexKey = "index"

	// PropsSuffix marks a module supplying server-side props for its sibling.
	PropsSuffix = ".props"

	// ModuleExt is the extension of every compiled module.
	ModuleExt = ".mjs"
)

var (
	// ErrInvalidSegment is returned for empty components or malformed parameters.
	ErrInvalidSegment = errors.New("routetree: invalid segment")

	// ErrInvalidPath is returned for output paths that do not live under the base directory.
	ErrInvalidPath = errors.New("routetree: invalid path")
)

// Segment is a single route path component.
type Segment struct {
	// Key is the tree key: the literal text, or "{name}" for dynamic segments.
	Key string

	// Param is the parameter name for dynamic segments, empty for literals.
	Param string
}

// Dynamic reports whether the segment binds a parameter.
func (s Segment) Dynamic() bool {
	return s.Param != ""
}

// String returns the canonical key.
func (s Segment) String() string {
	return s.Key
}

// bracketPairs lists the accepted parameter delimiters.
var bracketPairs = [...][2]byte{
	{'{', '}'},
	{'[', ']'},
	{'(', ')'},
}

// ParseSegment parses one path component.
//
// A component fully wrapped in {}, [] or () is a dynamic segment and is
// canonicalized to "{name}". Anything else is a literal. Empty components and
// empty or nested parameter names are rejected.
func ParseSegment(raw string) (Segment, error) {
	if raw == "" {
		return Segment{}, fmt.Errorf("%w: empty component", ErrInvalidSegment)
	}

	if name, ok := paramName(raw); ok {
		if name == "" || strings.ContainsAny(name, "{}[]()/") {
			return Segment{}, fmt.Errorf("%w: bad parameter name in %q", ErrInvalidSegment, raw)
		}
		return Segment{Key: "{" + name + "}", Param: name}, nil
	}

	return Segment{Key: raw}, nil
}

// paramName returns the inner name when raw is wrapped by a matching bracket pair.
func paramName(raw string) (string, bool) {
	if len(raw) < 2 {
		return "", false
	}
	first, last := raw[0], raw[len(raw)-1]
	for _, pair := range bracketPairs {
		if first == pair[0] && last == pair[1] {
			return raw[1 : len(raw)-1], true
		}
	}
	return "", false
}

// isPropsKey reports whether a final key names a props module.
func isPropsKey(key string) bool {
	return strings.HasSuffix(key, PropsSuffix) && len(key) > len(PropsSuffix)
}

// propsBase returns the sibling key a props module belongs to.
func propsBase(key string) string {
	return strings.TrimSuffix(key, PropsSuffix)
}

// Package routepath cleans request paths before they reach the route tree and
// validates redirect destinations returned by props modules.
package routepath

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

// Result is a cleaned request path.
type Result struct {
	// Path is the cleaned path, always starting with "/".
	Path string

	// Query is the raw query string without the leading "?".
	Query string

	// Changed reports whether Path differs from the input path.
	Changed bool
}

// URL returns the path with its query re-attached.
func (r Result) URL() string {
	if r.Query == "" {
		return r.Path
	}
	return r.Path + "?" + r.Query
}

// Errors returned for paths that cannot be cleaned.
var (
	ErrInvalidPath          = errors.New("routepath: invalid path")
	ErrBackslash            = errors.New("routepath: path contains backslash")
	ErrNullByte             = errors.New("routepath: path contains null byte")
	ErrInvalidPercentEscape = errors.New("routepath: invalid percent escape")
	ErrEscapesRoot          = errors.New("routepath: path escapes root")
	ErrEncodedSlash         = errors.New("routepath: encoded slash in segment")
	ErrExternalRedirect     = errors.New("routepath: redirect leaves the site")
)

// Clean normalizes a request path:
//   - repeated slashes collapse to one
//   - "." segments are dropped and ".." pops the previous segment
//   - a trailing slash is removed except on "/"
//
// Backslashes, NUL bytes, malformed percent escapes and ".." above the root
// are rejected. A query string is split off and returned untouched.
func Clean(raw string) (Result, error) {
	p, query := Split(raw)
	if p == "" {
		return Result{Path: "/", Query: query, Changed: true}, nil
	}

	if strings.ContainsRune(p, '\\') {
		return Result{}, ErrBackslash
	}
	if strings.ContainsRune(p, 0) || strings.Contains(strings.ToUpper(p), "%00") {
		return Result{}, ErrNullByte
	}
	if strings.ContainsRune(p, '%') && !validEscapes(p) {
		return Result{}, ErrInvalidPercentEscape
	}

	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
		case "..":
			if len(out) == 0 {
				return Result{}, ErrEscapesRoot
			}
			out = out[:len(out)-1]
		default:
			out = append(out, part)
		}
	}

	cleaned := "/" + strings.Join(out, "/")
	return Result{Path: cleaned, Query: query, Changed: cleaned != p}, nil
}

// Split separates the path from the query and drops any fragment.
func Split(raw string) (p, query string) {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	p, query, _ = strings.Cut(raw, "?")
	return p, query
}

func validEscapes(p string) bool {
	for i := 0; i < len(p); i++ {
		if p[i] != '%' {
			continue
		}
		if i+2 >= len(p) || !isHex(p[i+1]) || !isHex(p[i+2]) {
			return false
		}
		i += 2
	}
	return true
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// DecodeSegment unescapes one path segment. A segment that decodes to
// something containing "/" is rejected so it can never match two route
// segments.
func DecodeSegment(segment string) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	if strings.ContainsRune(decoded, '/') {
		return "", ErrEncodedSlash
	}
	return decoded, nil
}

// Decode unescapes every segment of a cleaned path. Route keys and their
// parameters are matched in decoded form, so "/%C3%BCber" reaches the page
// built from "über.tsx".
func Decode(p string) (string, error) {
	if !strings.ContainsRune(p, '%') {
		return p, nil
	}
	parts := strings.Split(p, "/")
	for i, part := range parts {
		v, err := DecodeSegment(part)
		if err != nil {
			return "", err
		}
		parts[i] = v
	}
	return strings.Join(parts, "/"), nil
}

// ValidateRedirect checks a redirect destination from a props module and
// returns it cleaned. Only same-site absolute paths are accepted; full URLs
// and protocol-relative "//host" forms are rejected.
func ValidateRedirect(dest string) (string, error) {
	if dest == "" || !strings.HasPrefix(dest, "/") {
		return "", ErrInvalidPath
	}
	if strings.HasPrefix(dest, "//") || strings.HasPrefix(dest, "/\\") {
		return "", ErrExternalRedirect
	}
	if u, err := url.Parse(dest); err != nil || u.Scheme != "" || u.Host != "" {
		return "", ErrExternalRedirect
	}

	res, err := Clean(dest)
	if err != nil {
		return "", err
	}
	return res.URL(), nil
}

// IsStatic reports whether the last segment of p has a file extension, which
// marks the request as a static asset rather than a route.
func IsStatic(p string) bool {
	p, _ = Split(p)
	last := p[strings.LastIndexByte(p, '/')+1:]
	ext := path.Ext(last)
	return len(ext) > 1 && ext != last
}

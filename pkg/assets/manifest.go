// Package assets maps runtime files to their fingerprinted names.
//
// A build copies files such as the hydration runtime to a content-hashed name
// and records the mapping in the route manifest:
//
//	{
//	  "hydrate.js": "hydrate.3f2a9c1b.js"
//	}
//
// The server resolves asset URLs through a Resolver so production pages link
// the immutable fingerprinted copy while dev links the plain file:
//
//	resolver := assets.NewResolver(assets.FromMap(manifest.Assets), "/")
//	resolver.Asset("hydrate.js") // "/hydrate.3f2a9c1b.js"
package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
	"sync"
)

// HashLen is the number of hex digits a fingerprint carries.
const HashLen = 8

// Manifest holds the mapping from asset names to fingerprinted names.
// It is safe for concurrent use.
type Manifest struct {
	entries map[string]string
	mu      sync.RWMutex
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		entries: make(map[string]string),
	}
}

// FromMap creates a manifest holding a copy of entries.
func FromMap(entries map[string]string) *Manifest {
	m := &Manifest{entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		m.entries[k] = v
	}
	return m
}

// Resolve returns the fingerprinted name of source, or source unchanged.
func (m *Manifest) Resolve(source string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if resolved, ok := m.entries[source]; ok {
		return resolved
	}
	return source
}

// Has reports whether the manifest maps source.
func (m *Manifest) Has(source string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[source]
	return ok
}

// Set adds or updates an entry.
func (m *Manifest) Set(source, resolved string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[source] = resolved
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}

// All returns a copy of all entries.
func (m *Manifest) All() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		result[k] = v
	}
	return result
}

// Fingerprint returns name with the first HashLen hex digits of the SHA-256
// of data inserted before its extension: "hydrate.js" becomes
// "hydrate.3f2a9c1b.js". The directory part of name is kept.
func Fingerprint(name string, data []byte) string {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])[:HashLen]

	dir, file := path.Split(name)
	ext := path.Ext(file)
	return dir + strings.TrimSuffix(file, ext) + "." + hash + ext
}

// IsFingerprinted reports whether the file name carries a fingerprint: at
// least HashLen lowercase hex digits right before the extension.
func IsFingerprinted(name string) bool {
	parts := strings.Split(path.Base(name), ".")
	if len(parts) < 3 {
		return false
	}
	hash := parts[len(parts)-2]
	if len(hash) < HashLen {
		return false
	}
	for _, c := range hash {
		if !(c >= '0' && c <= '9') && !(c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// Resolver turns an asset name into the URL pages link.
type Resolver interface {
	Asset(name string) string
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(name string) string

// Asset implements Resolver.
func (f ResolverFunc) Asset(name string) string { return f(name) }

// NewResolver resolves names through m and joins the result to prefix with
// JoinURL. A nil m leaves names unchanged.
func NewResolver(m *Manifest, prefix string) Resolver {
	return ResolverFunc(func(name string) string {
		if m != nil {
			name = m.Resolve(name)
		}
		return JoinURL(prefix, name)
	})
}

// NewPassthroughResolver links plain asset names under prefix. The dev
// server uses it since its builds are never cached.
func NewPassthroughResolver(prefix string) Resolver {
	return NewResolver(nil, prefix)
}

// JoinURL joins prefix and name with exactly one slash and escapes each
// segment of name. A prefix without a scheme is made absolute; an empty
// prefix means the site root.
func JoinURL(prefix, name string) string {
	base := strings.TrimRight(prefix, "/")
	if base != "" && !strings.Contains(base, "://") && !strings.HasPrefix(base, "/") {
		base = "/" + base
	}

	parts := strings.Split(strings.TrimLeft(name, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return base + "/" + strings.Join(parts, "/")
}

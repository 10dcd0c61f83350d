package artifact

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vango-dev/squid/pkg/routetree"
)

// Registry maps route keys to the exports implemented in Go for them, such as
// API handlers and props functions. Keys are route keys as produced by the
// tree builder: "api/users", "blog/{slug}", "blog/{slug}.props".
type Registry struct {
	mu      sync.RWMutex
	exports map[string]routetree.Exports
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{exports: make(map[string]routetree.Exports)}
}

// Register merges exports into the entry for key.
func (r *Registry) Register(key string, exports routetree.Exports) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.exports[key]
	if !ok {
		cur = make(routetree.Exports, len(exports))
		r.exports[key] = cur
	}
	for name, v := range exports {
		cur[name] = v
	}
}

// API registers h as the handler of an api route.
func (r *Registry) API(key string, h routetree.APIHandler) {
	r.Register(key, routetree.Exports{routetree.ExportDefault: h})
}

// Page registers the render function of a page route.
func (r *Registry) Page(key string, render routetree.RenderFunc) {
	r.Register(key, routetree.Exports{routetree.ExportDefault: render})
}

// Props registers the server-side props function for the page at key.
func (r *Registry) Props(key string, fn routetree.PropsFunc) {
	r.Register(key+routetree.PropsSuffix, routetree.Exports{routetree.ExportServerSideProps: fn})
}

// Lookup returns a copy of the exports for key.
func (r *Registry) Lookup(key string) (routetree.Exports, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exp, ok := r.exports[key]
	if !ok {
		return nil, false
	}
	out := make(routetree.Exports, len(exp))
	for k, v := range exp {
		out[k] = v
	}
	return out, true
}

// Keys returns the registered keys in order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.exports))
	for k := range r.exports {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Loader implements routetree.Loader on top of a Fetcher and a Registry.
type Loader struct {
	fetcher    Fetcher
	registry   *Registry
	outputRoot string
}

// NewLoader creates a loader. Leaf output paths are made relative to
// outputRoot to form store keys.
func NewLoader(fetcher Fetcher, registry *Registry, outputRoot string) *Loader {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Loader{fetcher: fetcher, registry: registry, outputRoot: outputRoot}
}

// Load implements routetree.Loader.
func (l *Loader) Load(ctx context.Context, leaf *routetree.Leaf) (*routetree.Module, error) {
	key, err := KeyFor(l.outputRoot, leaf.OutputPath)
	if err != nil {
		return nil, err
	}

	src, err := l.fetcher.Fetch(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", leaf.ID, err)
	}

	exports, _ := l.registry.Lookup(leaf.Key)
	if exports == nil {
		exports = routetree.Exports{}
	}
	return &routetree.Module{Leaf: leaf, Source: src, Exports: exports}, nil
}

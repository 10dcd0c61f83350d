package routetree

import (
	"encoding/json"
	"fmt"
)

// Kind classifies a compiled module.
type Kind uint8

const (
	// KindPage is a UI module rendered on the server and hydrated in the browser.
	KindPage Kind = iota + 1

	// KindAPI is a request handler executed directly.
	KindAPI

	// KindProps supplies server-side props for a sibling page.
	KindProps
)

// String returns the build-service name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindAPI:
		return "api"
	case KindProps:
		return "props"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind parses "page", "api" or "props".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "page":
		return KindPage, nil
	case "api":
		return KindAPI, nil
	case "props":
		return KindProps, nil
	}
	return 0, fmt.Errorf("routetree: unknown module kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Record is one compiled module as reported by the build service.
type Record struct {
	// OutputPath is the compiled artifact path on disk.
	OutputPath string `json:"outputPath" yaml:"outputPath"`

	// Kind is page, api or props.
	Kind Kind `json:"kind" yaml:"kind"`

	// SourcePath is the source file the artifact was compiled from.
	SourcePath string `json:"sourcePath" yaml:"sourcePath"`
}

// Leaf is a terminal tree entry identifying one compiled route module.
type Leaf struct {
	// ID is the flattened module identifier.
	ID string

	// Key is the slash-joined route key, e.g. "blog/{slug}".
	Key string

	// OutputPath is the compiled artifact path on disk.
	OutputPath string

	// SourcePath is the module's source file.
	SourcePath string

	// Kind is KindPage or KindAPI.
	Kind Kind

	// Props is the attached server-side props module, pages only.
	Props *Leaf
}

// IsAPI reports whether the leaf is a request handler.
func (l *Leaf) IsAPI() bool {
	return l != nil && l.Kind == KindAPI
}

// MarshalJSON emits the leaf with its kind as a string.
func (l *Leaf) MarshalJSON() ([]byte, error) {
	type wire struct {
		ID         string `json:"id"`
		Key        string `json:"key"`
		OutputPath string `json:"outputPath"`
		SourcePath string `json:"sourcePath,omitempty"`
		Kind       Kind   `json:"kind"`
		Props      *Leaf  `json:"props,omitempty"`
	}
	return json.Marshal(wire{l.ID, l.Key, l.OutputPath, l.SourcePath, l.Kind, l.Props})
}

// Node is an interior tree entry.
//
// A node may carry a leaf and children at the same time: "blog.mjs" and the
// "blog/" directory share the key "blog".
type Node struct {
	leaf     *Leaf
	literals map[string]*Node

	// dynamic is the single parameter child, bound to param.
	dynamic *Node
	param   string

	// origin is the module that introduced this node as a dynamic child.
	origin string
}

func newNode() *Node {
	return &Node{}
}

// Leaf returns the module stored at this node, or nil.
func (n *Node) Leaf() *Leaf {
	return n.leaf
}

// Literal returns the literal child for key, or nil.
func (n *Node) Literal(key string) *Node {
	return n.literals[key]
}

// Dynamic returns the dynamic child and its parameter name.
func (n *Node) Dynamic() (*Node, string) {
	return n.dynamic, n.param
}

// LiteralKeys returns the literal child keys in no particular order.
func (n *Node) LiteralKeys() []string {
	keys := make([]string, 0, len(n.literals))
	for k := range n.literals {
		keys = append(keys, k)
	}
	return keys
}

// Resolved is the result of resolving a request path.
// A nil Leaf means no route matched.
type Resolved struct {
	Leaf         *Leaf
	Params       map[string]string
	ArtifactPath string
}

// Found reports whether a route matched.
func (r Resolved) Found() bool {
	return r.Leaf != nil
}

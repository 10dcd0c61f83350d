package routetree

import "strings"

// Resolve walks the tree for a request path.
//
// Matching is left to right, one segment per level: a literal child wins,
// otherwise the node's dynamic child binds the segment. There is no
// backtracking. When the input is exhausted the current node's own leaf is
// returned, falling back to its index child.
//
// Resolve never fails for an unknown path; it returns a Resolved whose Leaf
// is nil. It panics with ErrNilTree when called on a nil tree.
func (t *Tree) Resolve(requestPath string) Resolved {
	if t == nil || t.root == nil {
		panic(ErrNilTree)
	}

	segments := splitRequestPath(requestPath)
	params := make(map[string]string)
	keys := make([]string, 0, len(segments)+1)
	node := t.root

	for i := 0; i < len(segments); i++ {
		seg := segments[i]

		// A trailing slash ends the input.
		if seg == "" && i == len(segments)-1 {
			break
		}

		if child := node.literals[seg]; child != nil {
			node = child
			keys = append(keys, seg)
			continue
		}

		if node.dynamic != nil && seg != "" {
			params[node.param] = seg
			keys = append(keys, "{"+node.param+"}")
			node = node.dynamic
			continue
		}

		return Resolved{Params: map[string]string{}}
	}

	leaf := node.leaf
	if leaf == nil || node == t.root {
		index := node.literals[IndexKey]
		if index == nil || index.leaf == nil {
			return Resolved{Params: map[string]string{}}
		}
		leaf = index.leaf
		keys = append(keys, IndexKey)
	}

	return Resolved{
		Leaf:         leaf,
		Params:       params,
		ArtifactPath: strings.Join(keys, "/") + ModuleExt,
	}
}

// splitRequestPath drops the query, the leading slash and splits on "/".
// The root path yields no segments.
func splitRequestPath(p string) []string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

package routetree

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Builder turns build records into an immutable Tree.
//
// Builder is not safe for concurrent use; the Tree it returns is.
type Builder struct {
	baseDir string
	mode    ConflictMode
	logger  *slog.Logger
	records []Record
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBaseDir sets the directory output paths are relative to.
func WithBaseDir(dir string) BuilderOption {
	return func(b *Builder) {
		b.baseDir = dir
	}
}

// WithConflictMode sets the dynamic sibling policy (default strict).
func WithConflictMode(mode ConflictMode) BuilderOption {
	return func(b *Builder) {
		b.mode = mode.normalize()
	}
}

// WithLogger sets the logger used for warnings.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates a builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{mode: ConflictStrict}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Add queues records for the next Build.
func (b *Builder) Add(records ...Record) *Builder {
	b.records = append(b.records, records...)
	return b
}

// Tree is a fully built, read-only route tree.
type Tree struct {
	root    *Node
	baseDir string
	leaves  []*Leaf
	orphans []Record
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// BaseDir returns the directory output paths were normalized against.
func (t *Tree) BaseDir() string {
	return t.baseDir
}

// Leaves returns every route leaf in insertion order.
func (t *Tree) Leaves() []*Leaf {
	out := make([]*Leaf, len(t.leaves))
	copy(out, t.leaves)
	return out
}

// Len returns the number of route leaves.
func (t *Tree) Len() int {
	return len(t.leaves)
}

// Orphans returns props records that had no sibling page.
func (t *Tree) Orphans() []Record {
	out := make([]Record, len(t.orphans))
	copy(out, t.orphans)
	return out
}

// pendingProps is a props record waiting for the second pass.
type pendingProps struct {
	rec  Record
	norm Normalized
}

// Build builds the tree from all queued records.
// Every conflict is collected; if any exist the returned error is a *BuildError
// and the tree is nil.
func (b *Builder) Build() (*Tree, error) {
	tree := &Tree{root: newNode(), baseDir: b.baseDir}
	var errs []error
	var props []pendingProps
	ids := make(map[string]idOwner, len(b.records))

	for _, rec := range b.records {
		norm, err := Normalize(rec.OutputPath, b.baseDir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := checkParams(norm, describe(rec)); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := claimIdentifier(ids, norm, describe(rec)); err != nil {
			errs = append(errs, err)
			continue
		}

		last := norm.Segments[len(norm.Segments)-1]
		if rec.Kind == KindProps || isPropsKey(last.Key) {
			props = append(props, pendingProps{rec: rec, norm: norm})
			continue
		}

		if err := b.insert(tree, rec, norm); err != nil {
			if errors.Is(err, errSkipped) {
				continue
			}
			errs = append(errs, err)
		}
	}

	for _, p := range props {
		if err := b.attachProps(tree, p); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return nil, &BuildError{Errors: errs}
	}
	return tree, nil
}

// errSkipped marks a record dropped under ConflictFirstWins.
var errSkipped = errors.New("routetree: record skipped")

// insert walks or creates nodes for a page or api record and stores its leaf.
func (b *Builder) insert(tree *Tree, rec Record, norm Normalized) error {
	if rec.Kind != KindPage && rec.Kind != KindAPI {
		return fmt.Errorf("routetree: %s has unsupported kind %s", describe(rec), rec.Kind)
	}

	source := describe(rec)
	if err := b.checkDynamic(tree, norm, source); err != nil {
		return err
	}

	node := tree.root
	for _, seg := range norm.Segments {
		node = descend(node, seg, source)
	}

	if node.leaf != nil {
		return &DuplicateRouteError{
			Key:    norm.Key(),
			First:  leafSource(node.leaf),
			Second: source,
		}
	}

	leaf := &Leaf{
		ID:         norm.Identifier,
		Key:        norm.Key(),
		OutputPath: rec.OutputPath,
		SourcePath: rec.SourcePath,
		Kind:       rec.Kind,
	}
	node.leaf = leaf
	tree.leaves = append(tree.leaves, leaf)
	return nil
}

// checkDynamic walks the existing nodes along norm and reports a dynamic
// sibling conflict before anything is inserted.
func (b *Builder) checkDynamic(tree *Tree, norm Normalized, source string) error {
	node := tree.root
	for i, seg := range norm.Segments {
		if seg.Dynamic() && node.dynamic != nil && node.param != seg.Param {
			conflict := &AmbiguousDynamicSegmentError{
				Parent:      joinKeys(norm.Segments[:i]),
				Existing:    "{" + node.param + "}",
				Conflicting: seg.Key,
				First:       node.dynamic.origin,
				Second:      source,
			}
			if b.mode == ConflictFirstWins {
				b.logger.Warn("dropping route with ambiguous dynamic segment",
					"parent", conflict.Parent,
					"kept", conflict.Existing,
					"dropped", conflict.Conflicting,
					"source", source,
				)
				return errSkipped
			}
			return conflict
		}
		node = lookup(node, seg.Key)
		if node == nil {
			return nil
		}
	}
	return nil
}

// descend returns the child of node for seg, creating it when missing.
func descend(node *Node, seg Segment, source string) *Node {
	if !seg.Dynamic() {
		if node.literals == nil {
			node.literals = make(map[string]*Node)
		}
		child, ok := node.literals[seg.Key]
		if !ok {
			child = newNode()
			node.literals[seg.Key] = child
		}
		return child
	}

	if node.dynamic == nil {
		node.dynamic = newNode()
		node.dynamic.origin = source
		node.param = seg.Param
	}
	return node.dynamic
}

// attachProps links a props record to the leaf with the same base name.
func (b *Builder) attachProps(tree *Tree, p pendingProps) error {
	source := describe(p.rec)
	segs := p.norm.Segments
	baseKey := propsBase(segs[len(segs)-1].Key)

	parent := tree.root
	for _, seg := range segs[:len(segs)-1] {
		parent = lookup(parent, seg.Key)
		if parent == nil {
			break
		}
	}

	var sibling *Node
	if parent != nil {
		sibling = lookup(parent, baseKey)
	}
	if sibling == nil || sibling.leaf == nil {
		b.logger.Warn("props module has no sibling page", "source", source, "key", p.norm.Key())
		tree.orphans = append(tree.orphans, p.rec)
		return nil
	}

	leaf := sibling.leaf
	if leaf.Kind == KindAPI {
		return &PropsError{Key: leaf.Key, Source: source, Err: ErrPropsOnAPI}
	}
	if leaf.Props != nil {
		return &DuplicateRouteError{
			Key:    p.norm.Key(),
			First:  leafSource(leaf.Props),
			Second: source,
		}
	}

	leaf.Props = &Leaf{
		ID:         p.norm.Identifier,
		Key:        p.norm.Key(),
		OutputPath: p.rec.OutputPath,
		SourcePath: p.rec.SourcePath,
		Kind:       KindProps,
	}
	return nil
}

// lookup finds an existing child by canonical key without creating it.
func lookup(node *Node, key string) *Node {
	if child, ok := node.literals[key]; ok {
		return child
	}
	if node.dynamic != nil && key == "{"+node.param+"}" {
		return node.dynamic
	}
	return nil
}

// idOwner is the first module seen with an identifier.
type idOwner struct {
	key    string
	source string
}

// claimIdentifier records norm's identifier and rejects a second route key
// flattening to it. Modules sharing a key are left to the duplicate route
// check.
func claimIdentifier(ids map[string]idOwner, norm Normalized, source string) error {
	key := norm.Key()
	if owner, ok := ids[norm.Identifier]; ok {
		if owner.key == key {
			return nil
		}
		return &IdentifierCollisionError{ID: norm.Identifier, First: owner.source, Second: source}
	}
	ids[norm.Identifier] = idOwner{key: key, source: source}
	return nil
}

// checkParams rejects a path that binds the same parameter twice.
func checkParams(norm Normalized, source string) error {
	seen := make(map[string]struct{}, len(norm.Segments))
	for _, seg := range norm.Segments {
		if !seg.Dynamic() {
			continue
		}
		if _, dup := seen[seg.Param]; dup {
			return &DuplicateParamError{Param: seg.Param, Source: source}
		}
		seen[seg.Param] = struct{}{}
	}
	return nil
}

func describe(rec Record) string {
	if rec.SourcePath != "" {
		return rec.SourcePath
	}
	return rec.OutputPath
}

func leafSource(l *Leaf) string {
	if l.SourcePath != "" {
		return l.SourcePath
	}
	return l.OutputPath
}

func joinKeys(segs []Segment) string {
	keys := make([]string, len(segs))
	for i, s := range segs {
		keys[i] = s.Key
	}
	return strings.Join(keys, "/")
}

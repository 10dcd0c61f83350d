package routetree

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is one published tree together with its publication metadata.
type Snapshot struct {
	// Tree is the published tree.
	Tree *Tree

	// BuildID identifies the build that produced the tree.
	BuildID string

	// Version increases by one on every Publish.
	Version uint64

	// PublishedAt is when the snapshot became active.
	PublishedAt time.Time
}

// Resolve resolves against the snapshot's tree.
func (s *Snapshot) Resolve(requestPath string) Resolved {
	if s == nil {
		panic(ErrNilTree)
	}
	return s.Tree.Resolve(requestPath)
}

// Table holds the active route tree.
//
// Publish replaces the tree with a single atomic store. Readers take a
// Snapshot once per request and keep using it until they finish, so a request
// never observes two different trees.
type Table struct {
	current atomic.Pointer[Snapshot]

	// mu orders writers only; readers never lock.
	mu      sync.Mutex
	version uint64
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{}
}

// Publish makes tree the active tree and returns the new snapshot.
func (t *Table) Publish(tree *Tree, buildID string) *Snapshot {
	if tree == nil {
		panic(ErrNilTree)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.version++
	snap := &Snapshot{
		Tree:        tree,
		BuildID:     buildID,
		Version:     t.version,
		PublishedAt: time.Now(),
	}
	t.current.Store(snap)
	return snap
}

// Snapshot returns the active snapshot, or nil before the first Publish.
func (t *Table) Snapshot() *Snapshot {
	return t.current.Load()
}

// Ready reports whether a tree has been published.
func (t *Table) Ready() bool {
	return t.current.Load() != nil
}

// Resolve resolves against the active tree. It panics with ErrNilTree when
// nothing has been published yet.
func (t *Table) Resolve(requestPath string) Resolved {
	return t.Snapshot().Resolve(requestPath)
}

package tree

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a node ID does not resolve in the tree.
var ErrNotFound = errors.New("node not found")

// ErrMalformedTree is returned when parent links are broken or cyclic.
var ErrMalformedTree = errors.New("malformed tree")

// maxAncestorDepth bounds every parent walk. A well-formed tree never gets
// near this; hitting it means a parent cycle.
const maxAncestorDepth = 256

// Tree holds all nodes of one source instance and the focused node.
// Lookup by ID is O(1). Sources rebuild the tree wholesale on refresh and
// reapply expansion state afterwards.
type Tree struct {
	nodes map[string]*Node
	roots []string
	focus string
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{nodes: make(map[string]*Node)}
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// RootIDs returns the ordered root node IDs.
func (t *Tree) RootIDs() []string {
	return t.roots
}

// Reset removes all nodes. The focused ID is kept so a rebuild with the
// same IDs preserves the cursor; Current fails until the ID reappears.
func (t *Tree) Reset() {
	t.nodes = make(map[string]*Node)
	t.roots = nil
}

// Add inserts a node. Parents must be added before their children; a node
// whose ParentID is unknown is rejected rather than left dangling.
func (t *Tree) Add(n *Node) error {
	if n.ID == "" {
		return fmt.Errorf("add node: empty id")
	}
	if _, ok := t.nodes[n.ID]; ok {
		return fmt.Errorf("add node %q: duplicate id", n.ID)
	}
	if n.ParentID != "" {
		parent, ok := t.nodes[n.ParentID]
		if !ok {
			return fmt.Errorf("add node %q: parent %q: %w", n.ID, n.ParentID, ErrNotFound)
		}
		parent.Children = append(parent.Children, n.ID)
	} else {
		t.roots = append(t.roots, n.ID)
	}
	t.nodes[n.ID] = n
	return nil
}

// Get returns the node with the given ID.
func (t *Tree) Get(id string) (*Node, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %q: %w", id, ErrNotFound)
	}
	return n, nil
}

// Focus moves the cursor to the given node.
func (t *Tree) Focus(id string) error {
	if _, ok := t.nodes[id]; !ok {
		return fmt.Errorf("focus %q: %w", id, ErrNotFound)
	}
	t.focus = id
	return nil
}

// FocusedID returns the ID the cursor is on, which may no longer resolve
// after a rebuild.
func (t *Tree) FocusedID() string {
	return t.focus
}

// Current returns the focused node.
func (t *Tree) Current() (*Node, error) {
	if t.focus == "" {
		return nil, fmt.Errorf("no focused node: %w", ErrNotFound)
	}
	return t.Get(t.focus)
}

// Expand expands the node with the given ID and reports whether the
// visible state changed.
func (t *Tree) Expand(id string) (bool, error) {
	n, err := t.Get(id)
	if err != nil {
		return false, err
	}
	return n.Expand(), nil
}

// Collapse collapses the node with the given ID and reports whether the
// visible state changed.
func (t *Tree) Collapse(id string) (bool, error) {
	n, err := t.Get(id)
	if err != nil {
		return false, err
	}
	return n.Collapse(), nil
}

// CollapseAll collapses every node and reports whether anything changed.
func (t *Tree) CollapseAll() bool {
	changed := false
	for _, n := range t.nodes {
		if n.Collapse() {
			changed = true
		}
	}
	return changed
}

// FolderOf resolves the directory a file operation on the given node should
// target: the node itself when it is a directory, otherwise the nearest
// directory ancestor. Walking off the top returns the root reached. Broken
// or cyclic parent links fail with ErrMalformedTree.
func (t *Tree) FolderOf(id string) (*Node, error) {
	n, err := t.Get(id)
	if err != nil {
		return nil, err
	}
	for depth := 0; depth < maxAncestorDepth; depth++ {
		if n.IsDir() || n.ParentID == "" {
			return n, nil
		}
		parent, ok := t.nodes[n.ParentID]
		if !ok {
			return nil, fmt.Errorf("node %q: parent %q dangling: %w", n.ID, n.ParentID, ErrMalformedTree)
		}
		n = parent
	}
	return nil, fmt.Errorf("node %q: ancestor depth exceeded: %w", id, ErrMalformedTree)
}

// Depth returns the number of ancestors above the node. Roots have depth 0.
func (t *Tree) Depth(id string) int {
	n, ok := t.nodes[id]
	if !ok {
		return 0
	}
	depth := 0
	for n.ParentID != "" && depth < maxAncestorDepth {
		parent, ok := t.nodes[n.ParentID]
		if !ok {
			break
		}
		n = parent
		depth++
	}
	return depth
}

// VisibleIDs returns node IDs in display order: depth-first from the roots,
// descending only into expanded nodes.
func (t *Tree) VisibleIDs() []string {
	var out []string
	var visit func(id string)
	visit = func(id string) {
		n, ok := t.nodes[id]
		if !ok {
			return
		}
		out = append(out, id)
		if !n.expanded {
			return
		}
		for _, child := range n.Children {
			visit(child)
		}
	}
	for _, root := range t.roots {
		visit(root)
	}
	return out
}

// Walk visits every node depth-first from the roots, expanded or not.
func (t *Tree) Walk(fn func(*Node)) {
	var visit func(id string)
	visit = func(id string) {
		n, ok := t.nodes[id]
		if !ok {
			return
		}
		fn(n)
		for _, child := range n.Children {
			visit(child)
		}
	}
	for _, root := range t.roots {
		visit(root)
	}
}

// ExpandedPaths returns the Path of every expanded node, used to reapply
// expansion state after a rebuild.
func (t *Tree) ExpandedPaths() map[string]bool {
	paths := make(map[string]bool)
	t.Walk(func(n *Node) {
		if n.expanded {
			paths[n.Path] = true
		}
	})
	return paths
}

// RestoreExpandedPaths re-expands nodes whose Path appears in paths.
// Paths that no longer exist are silently skipped.
func (t *Tree) RestoreExpandedPaths(paths map[string]bool) {
	t.Walk(func(n *Node) {
		if paths[n.Path] {
			n.Expand()
		}
	})
}

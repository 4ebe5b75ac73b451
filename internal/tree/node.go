package tree

import "time"

// Node kinds understood by the built-in commands. Sources may introduce
// additional kinds; anything that is not a directory is treated as a leaf
// for folder resolution.
const (
	KindFile      = "file"
	KindDirectory = "directory"
	KindMessage   = "message"
)

// FileInfo carries filesystem metadata for file and directory nodes.
type FileInfo struct {
	Size    int64
	ModTime time.Time
}

// Node is a single entry in a source's tree. ID is unique within the tree
// (the canonical path for filesystem entries). Children holds ordered child
// IDs; ParentID is empty for roots.
//
// Kind tags the variant: file and directory nodes carry File metadata,
// message nodes carry Text. Extra holds source-defined values consumed by
// renderer components.
type Node struct {
	ID       string
	Kind     string
	Name     string
	Path     string
	ParentID string
	Children []string

	File  *FileInfo
	Text  string
	Extra map[string]any

	expanded bool
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool {
	return n.Kind == KindDirectory
}

// HasChildren reports whether the node has at least one child.
func (n *Node) HasChildren() bool {
	return len(n.Children) > 0
}

// Expanded reports whether the node's children are shown.
func (n *Node) Expanded() bool {
	return n.expanded
}

// Expand marks the node expanded and reports whether the state changed.
// A node with no children can never be expanded.
func (n *Node) Expand() bool {
	if n.expanded || len(n.Children) == 0 {
		return false
	}
	n.expanded = true
	return true
}

// Collapse clears the expanded flag and reports whether the state changed.
func (n *Node) Collapse() bool {
	if !n.expanded {
		return false
	}
	n.expanded = false
	return true
}

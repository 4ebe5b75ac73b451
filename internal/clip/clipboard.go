// Package clip implements the copy/cut clipboard and the paste driver that
// replays it through a FileOps implementation.
package clip

import (
	"sort"

	"github.com/arbordev/arbor/internal/tree"
)

// Action is what pasting an entry will do with its node.
type Action string

const (
	ActionCopy Action = "copy"
	ActionCut  Action = "cut"
)

// Entry snapshots a marked node. Paste works from these fields, never from
// live nodes, so a tree rebuild between mark and paste is harmless.
type Entry struct {
	Action Action
	ID     string
	Name   string
	Path   string
}

// Clipboard holds the marked nodes of one source instance.
type Clipboard struct {
	entries map[string]Entry
}

// New returns an empty clipboard.
func New() *Clipboard {
	return &Clipboard{entries: make(map[string]Entry)}
}

// Mark toggles a node in the clipboard. Marking a node that already carries
// the same action removes it; marking it with the other action replaces the
// entry; otherwise the node is added.
func (c *Clipboard) Mark(n *tree.Node, action Action) {
	if prev, ok := c.entries[n.ID]; ok && prev.Action == action {
		delete(c.entries, n.ID)
		return
	}
	c.entries[n.ID] = Entry{
		Action: action,
		ID:     n.ID,
		Name:   n.Name,
		Path:   n.Path,
	}
}

// Get returns the entry for a node id, if marked.
func (c *Clipboard) Get(id string) (Entry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// Len returns the number of marked nodes.
func (c *Clipboard) Len() int {
	return len(c.entries)
}

// Clear removes all entries.
func (c *Clipboard) Clear() {
	c.entries = make(map[string]Entry)
}

// Drain returns all entries ordered by node id and clears the clipboard in
// the same step. Marks made after Drain land on the fresh clipboard and are
// untouched by a paste already in flight.
func (c *Clipboard) Drain() []Entry {
	if len(c.entries) == 0 {
		return nil
	}
	batch := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		batch = append(batch, e)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].ID < batch[j].ID })
	c.entries = make(map[string]Entry)
	return batch
}

// Package session tracks the files opened during one run of the panel.
// When arbor runs standalone there is no editor to ask for its buffer
// list, so the panel records every file it hands to the editor and the
// buffers source reads the result through ports.BufferLister.
package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/arbordev/arbor/internal/ports"
)

// Buffers is an in-process buffer list. IDs are assigned in open order
// starting at 1 and are never reused, so a reopened file keeps its
// original number for the lifetime of the process.
type Buffers struct {
	mu     sync.Mutex
	next   int
	byPath map[string]ports.Buffer
}

func NewBuffers() *Buffers {
	return &Buffers{next: 1, byPath: make(map[string]ports.Buffer)}
}

// Touch records path as open. Touching a path that is already open does
// nothing.
func (b *Buffers) Touch(path string) {
	if path == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.byPath[path]; ok {
		return
	}
	b.byPath[path] = ports.Buffer{ID: b.next, Path: path}
	b.next++
}

// ListBuffers returns the open buffers ordered by ID.
func (b *Buffers) ListBuffers() []ports.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ports.Buffer, 0, len(b.byPath))
	for _, buf := range b.byPath {
		out = append(out, buf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DeleteBuffer forgets the buffer with the given ID.
func (b *Buffers) DeleteBuffer(id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for path, buf := range b.byPath {
		if buf.ID == id {
			delete(b.byPath, path)
			return nil
		}
	}
	return fmt.Errorf("no buffer %d", id)
}

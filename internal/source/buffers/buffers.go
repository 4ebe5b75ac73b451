// Package buffers provides the open-buffers source: the host's buffer
// list arranged as a directory tree under the project root. The first
// build opens every directory; later rebuilds preserve whatever the user
// collapsed.
package buffers

import (
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arbordev/arbor/internal/command"
	"github.com/arbordev/arbor/internal/config"
	"github.com/arbordev/arbor/internal/ports"
	"github.com/arbordev/arbor/internal/source"
	"github.com/arbordev/arbor/internal/tree"
)

// Spec declares the buffers source. The bufnr renderer component is
// registered here so user renderer config may reference it.
func Spec() config.SourceSpec {
	return config.SourceSpec{
		Name: "buffers",
		Window: config.Window{
			Mappings: map[string]string{
				"d": "buffer_delete",
			},
		},
		Commands: command.Table{
			"buffer_delete": bufferDelete,
		},
		Components: []string{"bufnr"},
		Renderers: map[string]config.Renderer{
			"file": {
				{Name: "indent"},
				{Name: "icon"},
				{Name: "name"},
				{Name: "bufnr"},
			},
		},
	}
}

// Source is one live buffers tree.
type Source struct {
	root    string
	log     *slog.Logger
	buffers ports.BufferLister
	built   bool
}

// New builds a buffers source. A nil BufferLister is tolerated; the tree
// then shows a single message node.
func New(deps source.Deps) source.Instance {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Source{
		root:    deps.Root,
		log:     log,
		buffers: deps.Buffers,
	}
}

func (s *Source) Name() string { return "buffers" }

// Build rebuilds the tree from the host's buffer list. Buffers under the
// root are grouped by directory; buffers outside it hang flat off the
// root. Unnamed buffers are skipped.
func (s *Source) Build(st *command.State) error {
	expanded := st.Tree.ExpandedPaths()
	st.Tree.Reset()

	root := &tree.Node{
		ID:   s.root,
		Kind: tree.KindDirectory,
		Name: filepath.Base(s.root),
		Path: s.root,
	}
	if err := st.Tree.Add(root); err != nil {
		return err
	}

	if s.buffers == nil {
		s.addMessage(st.Tree, root, "no buffer provider attached")
		root.Expand()
		return nil
	}

	bufs := s.buffers.ListBuffers()
	sort.Slice(bufs, func(i, j int) bool { return bufs[i].Path < bufs[j].Path })

	dirs := map[string]*tree.Node{s.root: root}
	for _, b := range bufs {
		if b.Path == "" {
			continue
		}
		parent := root
		rel, err := filepath.Rel(s.root, b.Path)
		if err == nil && !strings.HasPrefix(rel, "..") {
			parent = s.ensureDir(st.Tree, dirs, filepath.Dir(b.Path))
		}
		n := &tree.Node{
			ID:       b.Path,
			Kind:     tree.KindFile,
			Name:     filepath.Base(b.Path),
			Path:     b.Path,
			ParentID: parent.ID,
			Extra: map[string]any{
				"bufnr":    b.ID,
				"modified": b.Modified,
			},
		}
		if err := st.Tree.Add(n); err != nil {
			s.log.Warn("skipping buffer", "path", b.Path, "err", err)
		}
	}

	if len(bufs) == 0 {
		s.addMessage(st.Tree, root, "no open buffers")
	}

	if s.built {
		st.Tree.RestoreExpandedPaths(expanded)
	} else {
		s.expandAll(st.Tree)
		s.built = true
	}
	return nil
}

// ToggleDir expands a collapsed directory. Buffer trees are fully
// materialized, so there is nothing to load.
func (s *Source) ToggleDir(st *command.State, n *tree.Node) {
	if n.Expand() {
		st.View.Redraw()
	}
}

// ensureDir returns the node for dir, creating the chain of directory
// nodes up from the root as needed. dir must be inside the root.
func (s *Source) ensureDir(tr *tree.Tree, dirs map[string]*tree.Node, dir string) *tree.Node {
	if n, ok := dirs[dir]; ok {
		return n
	}
	parent := s.ensureDir(tr, dirs, filepath.Dir(dir))
	n := &tree.Node{
		ID:       dir,
		Kind:     tree.KindDirectory,
		Name:     filepath.Base(dir),
		Path:     dir,
		ParentID: parent.ID,
	}
	if err := tr.Add(n); err != nil {
		s.log.Warn("skipping directory", "path", dir, "err", err)
		return parent
	}
	dirs[dir] = n
	return n
}

func (s *Source) addMessage(tr *tree.Tree, parent *tree.Node, text string) {
	n := &tree.Node{
		ID:       "message:" + text,
		Kind:     tree.KindMessage,
		Name:     text,
		Text:     text,
		ParentID: parent.ID,
	}
	if err := tr.Add(n); err != nil {
		s.log.Warn("skipping message node", "err", err)
	}
}

func (s *Source) expandAll(tr *tree.Tree) {
	tr.Walk(func(n *tree.Node) {
		if n.IsDir() {
			n.Expand()
		}
	})
}

// bufferDelete closes the buffer under the cursor and rebuilds. The host
// refuses to delete modified buffers; that refusal surfaces in the log
// rather than silently discarding edits.
func bufferDelete(st *command.State, done command.Done) {
	s, ok := st.Data.(*Source)
	if !ok {
		st.Log.Warn("buffer_delete outside the buffers source")
		return
	}
	if s.buffers == nil {
		st.Log.Info("no buffer provider attached", "source", st.Source)
		return
	}
	n, err := st.Tree.Current()
	if err != nil {
		st.Log.Warn("no node under cursor", "source", st.Source, "err", err)
		return
	}
	bufnr, ok := n.Extra["bufnr"].(int)
	if !ok {
		st.Log.Debug("not a buffer node", "source", st.Source, "node", n.ID)
		return
	}
	if err := s.buffers.DeleteBuffer(bufnr); err != nil {
		st.Log.Error("delete buffer failed", "bufnr", bufnr, "path", n.Path, "err", err)
		return
	}
	if err := s.Build(st); err != nil {
		st.Log.Error("rebuild failed", "source", st.Source, "err", err)
		return
	}
	st.View.Redraw()
}

// Package gitstatus provides the git_status source: every changed path
// in the repository, grouped by directory, with staging and revert
// commands. Git operations run off the host's input loop and re-enter it
// through the command's done callback.
package gitstatus

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/arbordev/arbor/internal/command"
	"github.com/arbordev/arbor/internal/config"
	"github.com/arbordev/arbor/internal/ports"
	"github.com/arbordev/arbor/internal/source"
	"github.com/arbordev/arbor/internal/tree"
)

// Spec declares the git_status source.
func Spec() config.SourceSpec {
	return config.SourceSpec{
		Name: "git_status",
		Window: config.Window{
			Mappings: map[string]string{
				"s": "git_add_file",
				"S": "git_add_all",
				"u": "git_unstage_file",
				"X": "git_revert_file",
			},
		},
		Commands: command.Table{
			"git_add_file":     gitAddFile,
			"git_add_all":      gitAddAll,
			"git_unstage_file": gitUnstageFile,
			"git_revert_file":  gitRevertFile,
		},
	}
}

// Source is one live git status tree.
type Source struct {
	root  string
	log   *slog.Logger
	git   ports.GitStatus
	built bool

	// gitMu serializes git subprocess operations so rapid keystrokes
	// cannot interleave index updates.
	gitMu sync.Mutex
}

// New builds a git_status source. A nil GitStatus is tolerated; the tree
// then shows a single message node.
func New(deps source.Deps) source.Instance {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Source{
		root: deps.Root,
		log:  log,
		git:  deps.Git,
	}
}

func (s *Source) Name() string { return "git_status" }

// Build rebuilds the tree from git status. Entries are grouped by
// directory under the root; entries outside it hang flat off the root.
// An entry path with a trailing separator is an untracked directory.
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

	if s.git == nil {
		s.addMessage(st.Tree, root, "git integration not available")
		root.Expand()
		return nil
	}

	entries, err := s.git.Status(s.root)
	if err != nil {
		s.log.Info("git status unavailable", "root", s.root, "err", err)
		s.addMessage(st.Tree, root, "not a git repository")
		root.Expand()
		return nil
	}
	if len(entries) == 0 {
		s.addMessage(st.Tree, root, "working tree clean")
		root.Expand()
		return nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	dirs := map[string]*tree.Node{s.root: root}
	for _, e := range entries {
		sep := string(filepath.Separator)
		isDir := strings.HasSuffix(e.Path, sep)
		path := strings.TrimSuffix(e.Path, sep)

		parent := root
		rel, err := filepath.Rel(s.root, path)
		if err == nil && !strings.HasPrefix(rel, "..") {
			parent = s.ensureDir(st.Tree, dirs, filepath.Dir(path))
		}

		n := &tree.Node{
			ID:       path,
			Kind:     tree.KindFile,
			Name:     filepath.Base(path),
			Path:     path,
			ParentID: parent.ID,
			Extra: map[string]any{
				"git_status": e.Status,
				"staged":     e.Staged,
				"unstaged":   e.Unstaged,
			},
		}
		if isDir {
			n.Kind = tree.KindDirectory
		}
		if e.OldPath != "" {
			n.Extra["git_old_path"] = e.OldPath
		}
		if err := st.Tree.Add(n); err != nil {
			s.log.Warn("skipping entry", "path", path, "err", err)
			continue
		}
		if isDir {
			dirs[path] = n
		}
	}

	if s.built {
		st.Tree.RestoreExpandedPaths(expanded)
	} else {
		s.expandAll(st.Tree)
		s.built = true
	}
	return nil
}

// ToggleDir expands a collapsed directory. Status trees are fully
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

// apply runs one git operation under the serialization lock and reports
// the outcome through done. Callers invoke it on a worker goroutine.
func (s *Source) apply(st *command.State, cmd, path string, folder *tree.Node, op func() error, done command.Done) {
	s.gitMu.Lock()
	defer s.gitMu.Unlock()
	if err := op(); err != nil {
		st.Log.Error("git operation failed", "source", st.Source, "command", cmd, "path", path, "err", err)
		return
	}
	st.Log.Debug("git operation done", "source", st.Source, "command", cmd, "path", path)
	if done != nil {
		done(folder, path)
	}
}

// revert confirms with the user, then discards changes to one path.
// Runs on a worker goroutine; prompting must never block the input loop.
func (s *Source) revert(st *command.State, path, name string, folder *tree.Node, done command.Done) {
	if st.Prompt == nil {
		st.Log.Warn("no prompter wired, refusing to revert", "source", st.Source, "path", path)
		return
	}
	if !st.Prompt.Confirm(fmt.Sprintf("Revert changes to %s?", name)) {
		st.Log.Debug("revert canceled", "source", st.Source, "path", path)
		return
	}
	s.apply(st, "git_revert_file", path, folder, func() error { return s.git.Revert(s.root, path) }, done)
}

// gitSource asserts the state belongs to this source and that git is
// wired.
func gitSource(st *command.State) (*Source, bool) {
	s, ok := st.Data.(*Source)
	if !ok {
		st.Log.Warn("git command outside the git_status source")
		return nil, false
	}
	if s.git == nil {
		st.Log.Info("git integration not available", "source", st.Source)
		return nil, false
	}
	return s, true
}

// statusNode resolves the entry under the cursor. Grouping directories
// and message nodes carry no git entry and are skipped.
func statusNode(st *command.State) (*tree.Node, bool) {
	n, err := st.Tree.Current()
	if err != nil {
		st.Log.Warn("no node under cursor", "source", st.Source, "err", err)
		return nil, false
	}
	if _, ok := n.Extra["git_status"]; !ok {
		st.Log.Debug("no git entry under cursor", "source", st.Source, "node", n.ID)
		return nil, false
	}
	return n, true
}

// revealFolder resolves the directory done should reveal after the
// operation lands.
func revealFolder(st *command.State, n *tree.Node) *tree.Node {
	if n.ParentID == "" {
		return n
	}
	folder, err := st.Tree.FolderOf(n.ParentID)
	if err != nil {
		return n
	}
	return folder
}

func gitAddFile(st *command.State, done command.Done) {
	s, ok := gitSource(st)
	if !ok {
		return
	}
	n, ok := statusNode(st)
	if !ok {
		return
	}
	path := n.Path
	folder := revealFolder(st, n)
	go s.apply(st, "git_add_file", path, folder, func() error { return s.git.Stage(s.root, path) }, done)
}

func gitAddAll(st *command.State, done command.Done) {
	s, ok := gitSource(st)
	if !ok {
		return
	}
	var folder *tree.Node
	if roots := st.Tree.RootIDs(); len(roots) > 0 {
		folder, _ = st.Tree.Get(roots[0])
	}
	go s.apply(st, "git_add_all", s.root, folder, func() error { return s.git.StageAll(s.root) }, done)
}

func gitUnstageFile(st *command.State, done command.Done) {
	s, ok := gitSource(st)
	if !ok {
		return
	}
	n, ok := statusNode(st)
	if !ok {
		return
	}
	path := n.Path
	folder := revealFolder(st, n)
	go s.apply(st, "git_unstage_file", path, folder, func() error { return s.git.Unstage(s.root, path) }, done)
}

func gitRevertFile(st *command.State, done command.Done) {
	s, ok := gitSource(st)
	if !ok {
		return
	}
	n, ok := statusNode(st)
	if !ok {
		return
	}
	go s.revert(st, n.Path, n.Name, revealFolder(st, n), done)
}

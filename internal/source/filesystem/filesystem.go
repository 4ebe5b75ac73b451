// Package filesystem provides the directory tree source. Directories
// load lazily on first expand, rebuilds preserve expansion state, and an
// optional fsnotify watcher refreshes the tree when files change under
// the loaded directories.
package filesystem

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arbordev/arbor/internal/command"
	"github.com/arbordev/arbor/internal/config"
	"github.com/arbordev/arbor/internal/source"
	"github.com/arbordev/arbor/internal/tree"
)

// debounceInterval is how long the watcher waits for events to settle
// before triggering one refresh.
const debounceInterval = 100 * time.Millisecond

// Spec declares the filesystem source: commands for hidden files and
// root navigation on top of the common set.
func Spec() config.SourceSpec {
	return config.SourceSpec{
		Name: "filesystem",
		Window: config.Window{
			Mappings: map[string]string{
				"H":         "toggle_hidden",
				"backspace": "navigate_up",
				".":         "set_root",
			},
		},
		Commands: command.Table{
			"toggle_hidden": toggleHidden,
			"navigate_up":   navigateUp,
			"set_root":      setRoot,
		},
		Defaults: map[string]any{
			"hide_dotfiles": true,
			"hide_by_name":  []any{".DS_Store", "thumbs.db"},
			"watch":         true,
		},
	}
}

// Source is one live filesystem tree rooted at a directory.
type Source struct {
	root       string
	log        *slog.Logger
	showHidden bool
	hideNames  map[string]bool

	mu      sync.Mutex
	watched map[string]bool
	w       *fsnotify.Watcher
}

// New builds a filesystem source from its resolved options.
func New(deps source.Deps) source.Instance {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Source{
		root:       deps.Root,
		log:        log,
		showHidden: !optBool(deps.Options, "hide_dotfiles", true),
		hideNames:  optNameSet(deps.Options, "hide_by_name"),
	}
}

func (s *Source) Name() string { return "filesystem" }

// Build rebuilds the tree: the root directory expanded, one level of
// children, and every previously expanded directory reloaded and
// re-expanded.
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
	if err := s.loadDir(st.Tree, root); err != nil {
		return err
	}
	root.Expand()

	s.restoreExpansion(st.Tree, expanded)
	return nil
}

// ToggleDir loads a collapsed directory's children on demand, then
// expands it.
func (s *Source) ToggleDir(st *command.State, n *tree.Node) {
	if !n.IsDir() {
		return
	}
	if !n.HasChildren() {
		if err := s.loadDir(st.Tree, n); err != nil {
			s.log.Error("load directory failed", "path", n.Path, "err", err)
			return
		}
	}
	if n.Expand() {
		st.View.Redraw()
	}
}

// loadDir reads one directory level into the tree: directories first,
// then files, both sorted case-insensitively by name.
func (s *Source) loadDir(tr *tree.Tree, dir *tree.Node) error {
	entries, err := os.ReadDir(dir.Path)
	if err != nil {
		return err
	}
	s.noteDir(dir.Path)

	sort.Slice(entries, func(i, j int) bool {
		di, dj := entries[i].IsDir(), entries[j].IsDir()
		if di != dj {
			return di
		}
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})

	for _, e := range entries {
		name := e.Name()
		if !s.showHidden && s.hidden(name) {
			continue
		}
		path := filepath.Join(dir.Path, name)
		n := &tree.Node{
			ID:       path,
			Name:     name,
			Path:     path,
			ParentID: dir.ID,
		}
		if e.IsDir() {
			n.Kind = tree.KindDirectory
		} else {
			n.Kind = tree.KindFile
			if info, err := e.Info(); err == nil {
				n.File = &tree.FileInfo{Size: info.Size(), ModTime: info.ModTime()}
			}
		}
		if err := tr.Add(n); err != nil {
			s.log.Warn("skipping entry", "path", path, "err", err)
		}
	}
	return nil
}

// restoreExpansion reopens the directories that were expanded before a
// rebuild. Paths sort ascending so parents load before their children.
func (s *Source) restoreExpansion(tr *tree.Tree, expanded map[string]bool) {
	if len(expanded) == 0 {
		return
	}
	paths := make([]string, 0, len(expanded))
	for p := range expanded {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		n, err := tr.Get(p)
		if err != nil || !n.IsDir() || n.Expanded() {
			continue
		}
		if !n.HasChildren() {
			if err := s.loadDir(tr, n); err != nil {
				s.log.Debug("expanded directory gone", "path", p, "err", err)
				continue
			}
		}
		n.Expand()
	}
}

// Watch observes every loaded directory and invokes onChange once per
// settle window after filesystem activity. Directories loaded later are
// added to the watch as they appear.
func (s *Source) Watch(onChange func()) (func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.w = w
	for path := range s.watched {
		_ = w.Add(path)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go s.watchLoop(w, onChange, done)

	stop := func() {
		s.mu.Lock()
		s.w = nil
		s.mu.Unlock()
		close(done)
		_ = w.Close()
	}
	return stop, nil
}

func (s *Source) watchLoop(w *fsnotify.Watcher, onChange func(), done chan struct{}) {
	debounce := time.NewTimer(debounceInterval)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false

	for {
		select {
		case <-done:
			return
		case _, ok := <-w.Events:
			if !ok {
				return
			}
			pending = true
			debounce.Reset(debounceInterval)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.Warn("file watcher error", "err", err)
		case <-debounce.C:
			if pending {
				pending = false
				onChange()
			}
		}
	}
}

// noteDir remembers a loaded directory and, when a watcher is live, adds
// it to the watch set.
func (s *Source) noteDir(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watched == nil {
		s.watched = map[string]bool{}
	}
	if s.watched[path] {
		return
	}
	s.watched[path] = true
	if s.w != nil {
		_ = s.w.Add(path)
	}
}

func toggleHidden(st *command.State, done command.Done) {
	s, ok := st.Data.(*Source)
	if !ok {
		st.Log.Warn("toggle_hidden outside the filesystem source")
		return
	}
	s.showHidden = !s.showHidden
	if err := s.Build(st); err != nil {
		st.Log.Error("rebuild failed", "root", s.root, "err", err)
		return
	}
	st.View.Redraw()
}

// navigateUp makes the parent directory the new root, keeping the old
// root focused so the cursor does not jump.
func navigateUp(st *command.State, done command.Done) {
	s, ok := st.Data.(*Source)
	if !ok {
		st.Log.Warn("navigate_up outside the filesystem source")
		return
	}
	parent := filepath.Dir(s.root)
	if parent == s.root {
		return
	}
	old := s.root
	s.root = parent
	st.RootPath = parent
	if err := s.Build(st); err != nil {
		st.Log.Error("rebuild failed", "root", parent, "err", err)
		s.root = old
		st.RootPath = old
		return
	}
	if err := st.Tree.Focus(old); err == nil {
		st.View.FocusNode(old)
	}
	st.View.Redraw()
}

// setRoot re-roots the tree at the directory under the cursor.
func setRoot(st *command.State, done command.Done) {
	s, ok := st.Data.(*Source)
	if !ok {
		st.Log.Warn("set_root outside the filesystem source")
		return
	}
	n, err := st.Tree.Current()
	if err != nil {
		st.Log.Warn("no node under cursor", "source", st.Source, "err", err)
		return
	}
	target := n
	if !n.IsDir() {
		folder, err := st.Tree.FolderOf(n.ID)
		if err != nil {
			st.Log.Error("folder resolution failed", "source", st.Source, "node", n.ID, "err", err)
			return
		}
		target = folder
	}
	if target.Path == s.root {
		return
	}
	s.root = target.Path
	st.RootPath = target.Path
	if err := s.Build(st); err != nil {
		st.Log.Error("rebuild failed", "root", target.Path, "err", err)
		return
	}
	if err := st.Tree.Focus(target.Path); err == nil {
		st.View.FocusNode(target.Path)
	}
	st.View.Redraw()
}

// hidden reports whether an entry is filtered when hidden files are off:
// dotfiles plus anything listed under hide_by_name.
func (s *Source) hidden(name string) bool {
	return strings.HasPrefix(name, ".") || s.hideNames[name]
}

func optBool(opts map[string]any, key string, def bool) bool {
	if v, ok := opts[key].(bool); ok {
		return v
	}
	return def
}

// optNameSet reads a list option into a set. JSON decoding and option
// merging both deliver lists as []any, so strings are filtered out of that.
func optNameSet(opts map[string]any, key string) map[string]bool {
	set := map[string]bool{}
	raw, ok := opts[key].([]any)
	if !ok {
		return set
	}
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			set[s] = true
		}
	}
	return set
}

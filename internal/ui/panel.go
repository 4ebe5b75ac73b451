// Package ui hosts the tree panel as a bubbletea program. The model owns
// one live instance per configured source, routes keystrokes through the
// merged command tables, and renders the active tree through the
// component registry. The Bridge feeds engine callbacks and worker
// completions back into the update loop.
package ui

import (
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/arbordev/arbor/internal/clip"
	"github.com/arbordev/arbor/internal/command"
	"github.com/arbordev/arbor/internal/config"
	"github.com/arbordev/arbor/internal/fsops"
	"github.com/arbordev/arbor/internal/keymap"
	"github.com/arbordev/arbor/internal/logx"
	"github.com/arbordev/arbor/internal/mouse"
	"github.com/arbordev/arbor/internal/msg"
	"github.com/arbordev/arbor/internal/ports"
	"github.com/arbordev/arbor/internal/render"
	"github.com/arbordev/arbor/internal/source"
	"github.com/arbordev/arbor/internal/state"
	"github.com/arbordev/arbor/internal/styles"
	"github.com/arbordev/arbor/internal/tree"
	"github.com/arbordev/arbor/internal/version"
)

// Options configures the panel.
type Options struct {
	Root    string
	Config  *config.Config
	Log     *slog.Logger
	Editor  string
	Store   *state.Store
	Session *state.State
	Buffers ports.BufferLister
	Git     ports.GitStatus

	// Opened, when set, is told about every file handed to the editor.
	Opened func(path string)
}

// panelSource is one attached source: the live instance, its resolved
// configuration, and the dispatch state commands run against.
type panelSource struct {
	name  string
	cfg   *config.Source
	inst  source.Instance
	st    *command.State
	stop  func()
	built bool
}

type toastState struct {
	text    string
	isError bool
	seq     int
}

// Model drives the panel.
type Model struct {
	root     string
	log      *slog.Logger
	cfg      *config.Config
	registry *render.Registry
	bridge   *Bridge
	ops      *fsops.Local
	mouse    *mouse.Handler
	editor   string
	opened   func(string)

	store   *state.Store
	session *state.State

	sources []*panelSource
	current int

	visible []string
	cursor  int
	scroll  int

	width  int
	height int

	prompt  *promptState
	confirm *confirmState
	toast   toastState
}

// New assembles the panel model and the bridge the host must Attach to
// the program before running it. Sources that fail to resolve are
// skipped with a warning; having none left is an error.
func New(opts Options) (*Model, *Bridge, error) {
	if opts.Config == nil {
		return nil, nil, errors.New("ui: nil config")
	}
	log := opts.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	bridge := &Bridge{}
	ops := fsops.New(opts.Root, bridge, log)
	paster := clip.NewOrchestrator(ops, log)

	m := &Model{
		root:     opts.Root,
		log:      log,
		cfg:      opts.Config,
		registry: render.New(),
		bridge:   bridge,
		ops:      ops,
		mouse:    mouse.NewHandler(),
		editor:   opts.Editor,
		opened:   opts.Opened,
		store:    opts.Store,
		session:  opts.Session,
	}

	for _, name := range opts.Config.Sources {
		rc, ok := opts.Config.Resolved[name]
		if !ok {
			log.Warn("source not resolved, skipping", "source", name)
			continue
		}
		inst, err := source.New(name, source.Deps{
			Root:    opts.Root,
			Options: rc.Options,
			Log:     log.With("source", name),
			Buffers: opts.Buffers,
			Git:     opts.Git,
		})
		if err != nil {
			log.Warn("source unavailable", "source", name, "err", err)
			continue
		}
		st := &command.State{
			Source:    name,
			RootPath:  opts.Root,
			Tree:      tree.New(),
			Clipboard: clip.New(),
			Paster:    paster,
			Ops:       ops,
			View:      bridge,
			Prompt:    bridge,
			Log:       log.With("source", name),
			Data:      inst,
			ToggleDir: inst.ToggleDir,
		}
		st.Refresh = func(cst *command.State) {
			if err := inst.Build(cst); err != nil {
				cst.Log.Error("rebuild failed", "err", err)
			}
		}
		m.sources = append(m.sources, &panelSource{name: name, cfg: rc, inst: inst, st: st})
	}
	if len(m.sources) == 0 {
		return nil, nil, errors.New("ui: no usable sources")
	}

	if opts.Session != nil && opts.Session.Source != "" {
		for i, s := range m.sources {
			if s.name == opts.Session.Source {
				m.current = i
			}
		}
	}
	return m, bridge, nil
}

func (m *Model) active() *panelSource {
	return m.sources[m.current]
}

// Init builds the active source and kicks off the background release
// check.
func (m *Model) Init() tea.Cmd {
	m.activate(m.current)
	return version.CheckAsync(version.Version)
}

// activate switches to source i, building it and starting its watcher on
// first use.
func (m *Model) activate(i int) {
	m.current = i
	src := m.active()
	if !src.built {
		src.st.Refresh(src.st)
		src.built = true
		m.restore(src)
		m.startWatch(src)
	}
	m.refreshVisible()
}

// restore replays the persisted expansion and cursor into a freshly
// built source. Paths that no longer resolve are skipped.
func (m *Model) restore(src *panelSource) {
	if m.session == nil || m.session.Roots == nil {
		return
	}
	rs, ok := m.session.Roots[m.root]
	if !ok {
		return
	}
	paths := make([]string, len(rs.Expanded))
	copy(paths, rs.Expanded)
	sort.Strings(paths)
	for _, p := range paths {
		n, err := src.st.Tree.Get(p)
		if err != nil || !n.IsDir() || n.Expanded() {
			continue
		}
		if src.st.ToggleDir != nil {
			src.st.ToggleDir(src.st, n)
		}
	}
	if rs.Cursor != "" {
		_ = src.st.Tree.Focus(rs.Cursor)
	}
}

func (m *Model) startWatch(src *panelSource) {
	w, ok := src.inst.(source.Watcher)
	if !ok {
		return
	}
	if on, isBool := src.cfg.Options["watch"].(bool); isBool && !on {
		return
	}
	name := src.name
	stop, err := w.Watch(func() {
		m.bridge.send(watchFiredMsg{source: name})
	})
	if err != nil {
		m.log.Warn("watch unavailable", "source", name, "err", err)
		return
	}
	src.stop = stop
}

// Update is the bubbletea message handler.
func (m *Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch v := message.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = v.Width, v.Height
		if m.prompt != nil {
			m.prompt.input.Width = m.promptWidth() - 2
		}
		m.ensureCursorVisible()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(v)

	case tea.MouseMsg:
		return m.handleMouse(v)

	case redrawMsg:
		m.refreshVisible()
		return m, nil

	case focusMsg:
		m.focusID(v.id)
		return m, nil

	case closeMsg:
		return m, m.shutdown()

	case openFileMsg:
		return m.openInEditor(v)

	case editorFinishedMsg:
		if v.err != nil {
			m.log.Error("editor exited with error", "err", v.err)
			return m, msg.ShowError("editor: "+v.err.Error(), 3*time.Second)
		}
		return m, nil

	case opDoneMsg:
		src := m.active()
		src.st.Refresh(src.st)
		m.refreshVisible()
		if v.destination != "" {
			m.reveal(v.destination)
		} else if v.folder != nil {
			m.focusID(v.folder.ID)
		}
		return m, nil

	case watchFiredMsg:
		for _, s := range m.sources {
			if s.name == v.source && s.built {
				s.st.Refresh(s.st)
				if s == m.active() {
					m.refreshVisible()
				}
			}
		}
		return m, nil

	case askMsg:
		return m.beginAsk(v)

	case confirmMsg:
		return m.beginConfirm(v)

	case msg.ToastMsg:
		m.toast = toastState{text: v.Message, isError: v.IsError, seq: m.toast.seq + 1}
		d := v.Duration
		if d <= 0 {
			d = 2 * time.Second
		}
		seq := m.toast.seq
		return m, tea.Tick(d, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} })

	case toastExpiredMsg:
		if v.seq == m.toast.seq {
			m.toast = toastState{}
		}
		return m, nil

	case version.UpdateAvailableMsg:
		m.log.Info("update available",
			"current", v.CurrentVersion, "latest", v.LatestVersion, "url", v.ReleaseURL)
		return m, msg.ShowToast("arbor "+v.LatestVersion+" available", 4*time.Second)
	}
	return m, nil
}

func (m *Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		return m.handleConfirmKey(k)
	}
	if m.prompt != nil {
		return m.handlePromptKey(k)
	}

	key := keymap.Normalize(k.String())
	if key == "ctrl+c" {
		return m, m.shutdown()
	}
	logx.Trace(m.log, "key", "chord", key)

	src := m.active()
	if name, ok := src.cfg.Window.Mappings[key]; ok {
		return m.runCommand(name)
	}

	// Keys no mapping claimed fall through to panel navigation.
	switch key {
	case "tab", ">":
		m.switchSource(1)
	case "shift+tab", "<":
		m.switchSource(-1)
	}
	return m, nil
}

// runCommand executes a mapped command name. Cursor movement is handled
// by the panel itself; everything else goes through the dispatch table.
func (m *Model) runCommand(name string) (tea.Model, tea.Cmd) {
	switch name {
	case "cursor_down":
		m.moveCursor(1)
		return m, nil
	case "cursor_up":
		m.moveCursor(-1)
		return m, nil
	}

	src := m.active()
	done := func(folder *tree.Node, destination string) {
		m.bridge.send(opDoneMsg{folder: folder, destination: destination})
	}
	command.Dispatch(src.st, src.cfg.Commands, name, done)
	m.refreshVisible()
	return m, nil
}

func (m *Model) switchSource(delta int) {
	if len(m.sources) < 2 {
		return
	}
	next := (m.current + delta + len(m.sources)) % len(m.sources)
	m.activate(next)
}

// handleMouse acts on events resolved against the hit map the last
// render registered. Wheel scrolls the viewport without moving the
// cursor; a click focuses the row and a double click opens it.
func (m *Model) handleMouse(ev tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.prompt != nil || m.confirm != nil {
		return m, nil
	}
	action := m.mouse.HandleMouse(ev)
	switch action.Type {
	case mouse.ActionScrollUp, mouse.ActionScrollDown:
		m.scrollBy(action.Delta)
	case mouse.ActionClick:
		return m.mouseSelect(action.Region, false)
	case mouse.ActionDoubleClick:
		return m.mouseSelect(action.Region, true)
	}
	return m, nil
}

func (m *Model) mouseSelect(r *mouse.Region, open bool) (tea.Model, tea.Cmd) {
	if name, ok := strings.CutPrefix(r.ID, "tab:"); ok {
		for i, s := range m.sources {
			if s.name == name {
				m.activate(i)
			}
		}
		return m, nil
	}
	id, ok := r.Data.(string)
	if !ok {
		return m, nil
	}
	m.focusID(id)
	if open {
		return m.runCommand("open")
	}
	return m, nil
}

func (m *Model) scrollBy(delta int) {
	limit := max(len(m.visible)-m.rowsHeight(), 0)
	m.scroll = min(max(m.scroll+delta, 0), limit)
}

// reveal expands ancestors of path in the active tree and moves the
// cursor onto it. Used after file operations so the result is visible.
func (m *Model) reveal(path string) {
	src := m.active()
	for _, anc := range ancestors(m.root, path) {
		n, err := src.st.Tree.Get(anc)
		if err != nil {
			return
		}
		if n.IsDir() && !n.Expanded() && src.st.ToggleDir != nil {
			src.st.ToggleDir(src.st, n)
		}
	}
	if err := src.st.Tree.Focus(path); err != nil {
		m.log.Debug("reveal target missing", "path", path)
	}
	m.refreshVisible()
}

// ancestors lists the directory chain from root down to the parent of
// path. An empty list means path is outside root.
func ancestors(root, path string) []string {
	var chain []string
	for p := filepath.Dir(path); len(p) >= len(root); p = filepath.Dir(p) {
		chain = append(chain, p)
		if p == root || p == filepath.Dir(p) {
			break
		}
	}
	if len(chain) == 0 || chain[len(chain)-1] != root {
		return nil
	}
	// Reverse into root-first order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func (m *Model) focusID(id string) {
	src := m.active()
	if err := src.st.Tree.Focus(id); err != nil {
		m.log.Debug("focus target missing", "id", id)
		return
	}
	m.refreshVisible()
}

// refreshVisible recomputes the row list from the active tree and keeps
// the cursor on the focused node.
func (m *Model) refreshVisible() {
	m.visible = m.active().st.Tree.VisibleIDs()
	m.syncCursor()
	m.ensureCursorVisible()
}

// syncCursor points the cursor at the tree's focused node, clamping when
// the node is no longer visible.
func (m *Model) syncCursor() {
	if len(m.visible) == 0 {
		m.cursor = 0
		return
	}
	id := m.active().st.Tree.FocusedID()
	for i, v := range m.visible {
		if v == id {
			m.cursor = i
			return
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	_ = m.active().st.Tree.Focus(m.visible[m.cursor])
}

func (m *Model) moveCursor(delta int) {
	if len(m.visible) == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	_ = m.active().st.Tree.Focus(m.visible[m.cursor])
	m.ensureCursorVisible()
}

// ensureCursorVisible adjusts the scroll offset to keep the cursor row
// on screen.
func (m *Model) ensureCursorVisible() {
	h := m.rowsHeight()
	if m.cursor < m.scroll {
		m.scroll = m.cursor
	} else if m.cursor >= m.scroll+h {
		m.scroll = m.cursor - h + 1
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

func (m *Model) openInEditor(v openFileMsg) (tea.Model, tea.Cmd) {
	if m.editor == "" {
		m.log.Warn("no editor configured", "path", v.path)
		return m, msg.ShowError("set $EDITOR to open files", 3*time.Second)
	}
	m.log.Debug("opening file", "path", v.path, "mode", string(v.mode))
	if m.opened != nil {
		m.opened(v.path)
	}
	c := exec.Command(m.editor, v.path)
	c.Dir = m.root
	return m, tea.ExecProcess(c, func(err error) tea.Msg {
		return editorFinishedMsg{err: err}
	})
}

// shutdown persists session state, stops watchers, and drains the file
// operation worker before quitting.
func (m *Model) shutdown() tea.Cmd {
	m.persist()
	for _, s := range m.sources {
		if s.stop != nil {
			s.stop()
			s.stop = nil
		}
	}
	if m.ops != nil {
		m.ops.Close()
	}
	return tea.Quit
}

func (m *Model) persist() {
	if m.store == nil || m.session == nil {
		return
	}
	src := m.active()
	m.session.Source = src.name
	rs := m.session.Root(m.root)

	expanded := src.st.Tree.ExpandedPaths()
	paths := make([]string, 0, len(expanded))
	for p := range expanded {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	rs.Expanded = paths

	rs.Cursor = ""
	if n, err := src.st.Tree.Current(); err == nil && n.Path != "" {
		rs.Cursor = n.Path
	}
	if err := m.store.Save(m.session); err != nil {
		m.log.Warn("state save failed", "err", err)
	}
}

// View renders the panel.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	m.mouse.Clear()
	innerW := max(m.width-4, 1)

	var b strings.Builder
	b.WriteString(m.headerView(innerW))
	b.WriteString("\n")
	b.WriteString(m.rowsView(innerW))
	b.WriteString("\n")
	b.WriteString(m.footerView(innerW))

	panel := styles.RenderPanel(b.String(), m.width, m.height, true)
	if m.confirm != nil {
		return OverlayBox(panel, m.confirmView(), m.width, m.height)
	}
	if m.prompt != nil {
		return OverlayBox(panel, m.promptView(), m.width, m.height)
	}
	return panel
}

// rowsHeight is the number of tree rows the panel can show.
func (m *Model) rowsHeight() int {
	return max(m.height-4, 1)
}

func (m *Model) headerView(width int) string {
	// Content starts one cell in from the border plus one of padding.
	x := 2
	tabs := make([]string, 0, len(m.sources))
	for i, s := range m.sources {
		label := displayName(s.name)
		m.mouse.HitMap.AddRect("tab:"+s.name, x, 1, ansi.StringWidth(label), 1, i)
		x += ansi.StringWidth(label) + 2
		if i == m.current {
			tabs = append(tabs, styles.Title.Render(label))
		} else {
			tabs = append(tabs, styles.Muted.Render(label))
		}
	}
	return ansi.Truncate(strings.Join(tabs, "  "), width, "")
}

func (m *Model) rowsView(width int) string {
	src := m.active()
	h := m.rowsHeight()
	ctx := render.Context{Tree: src.st.Tree, Clipboard: src.st.Clipboard}

	lines := make([]string, 0, h)
	for i := m.scroll; i < len(m.visible) && i < m.scroll+h; i++ {
		n, err := src.st.Tree.Get(m.visible[i])
		if err != nil {
			continue
		}
		m.mouse.HitMap.AddRect("row", 2, 2+(i-m.scroll), width, 1, n.ID)
		renderer := render.RendererFor(src.cfg.Renderers, n.Kind)
		line := m.registry.Line(ctx, n, renderer)
		if i == m.cursor {
			plain := ansi.Truncate(ansi.Strip(line), width, "")
			if pad := width - ansi.StringWidth(plain); pad > 0 {
				plain += strings.Repeat(" ", pad)
			}
			line = styles.ListItemSelected.Render(plain)
		} else {
			line = ansi.Truncate(line, width, "")
		}
		lines = append(lines, line)
	}
	for len(lines) < h {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m *Model) footerView(width int) string {
	if m.toast.text != "" {
		style := styles.ToastSuccess
		if m.toast.isError {
			style = styles.ToastError
		}
		return ansi.Truncate(style.Render(m.toast.text), width, "")
	}
	hint := "j/k move  space toggle  tab source  q quit"
	return ansi.Truncate(styles.Footer.Render(hint), width, "")
}

// displayName maps source names to header labels.
func displayName(name string) string {
	switch name {
	case "filesystem":
		return "Files"
	case "buffers":
		return "Buffers"
	case "git_status":
		return "Git"
	default:
		return name
	}
}

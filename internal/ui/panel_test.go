package ui

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/arbordev/arbor/internal/command"
	"github.com/arbordev/arbor/internal/config"
	"github.com/arbordev/arbor/internal/msg"
	"github.com/arbordev/arbor/internal/ports"
	"github.com/arbordev/arbor/internal/source"
	"github.com/arbordev/arbor/internal/state"
	"github.com/arbordev/arbor/internal/tree"
)

// fakeSource serves a fixed tree: an expanded root holding a collapsed
// subdirectory and two files. Registered once per test binary.
type fakeSource struct {
	name     string
	root     string
	builds   int
	onChange func()
	stopped  bool
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Build(st *command.State) error {
	f.builds++
	expanded := st.Tree.ExpandedPaths()
	st.Tree.Reset()

	sub := filepath.Join(f.root, "sub")
	nodes := []*tree.Node{
		{ID: f.root, Kind: tree.KindDirectory, Name: filepath.Base(f.root), Path: f.root},
		{ID: sub, Kind: tree.KindDirectory, Name: "sub", Path: sub, ParentID: f.root},
		{ID: filepath.Join(sub, "inner.txt"), Kind: tree.KindFile, Name: "inner.txt", Path: filepath.Join(sub, "inner.txt"), ParentID: sub},
		{ID: filepath.Join(f.root, "a.txt"), Kind: tree.KindFile, Name: "a.txt", Path: filepath.Join(f.root, "a.txt"), ParentID: f.root},
		{ID: filepath.Join(f.root, "b.txt"), Kind: tree.KindFile, Name: "b.txt", Path: filepath.Join(f.root, "b.txt"), ParentID: f.root},
	}
	for _, n := range nodes {
		if err := st.Tree.Add(n); err != nil {
			return err
		}
	}
	if _, err := st.Tree.Expand(f.root); err != nil {
		return err
	}
	st.Tree.RestoreExpandedPaths(expanded)
	return nil
}

func (f *fakeSource) ToggleDir(st *command.State, n *tree.Node) {
	if n.Expanded() {
		_, _ = st.Tree.Collapse(n.ID)
	} else {
		_, _ = st.Tree.Expand(n.ID)
	}
}

func (f *fakeSource) Watch(onChange func()) (func(), error) {
	f.onChange = onChange
	return func() { f.stopped = true }, nil
}

var registerOnce sync.Once

func registerFakes() {
	registerOnce.Do(func() {
		source.Register(config.SourceSpec{Name: "alpha"}, func(deps source.Deps) source.Instance {
			return &fakeSource{name: "alpha", root: deps.Root}
		})
		source.Register(config.SourceSpec{Name: "beta"}, func(deps source.Deps) source.Instance {
			return &fakeSource{name: "beta", root: deps.Root}
		})
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(sources ...string) *config.Config {
	registerFakes()
	specs := []config.SourceSpec{{Name: "alpha"}, {Name: "beta"}}
	return config.Merge(&config.Config{Sources: sources}, specs, discardLogger())
}

func newTestModel(t *testing.T, sources ...string) *Model {
	t.Helper()
	if len(sources) == 0 {
		sources = []string{"alpha"}
	}
	m, _, err := New(Options{
		Root:   t.TempDir(),
		Config: testConfig(sources...),
		Log:    discardLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.width, m.height = 40, 12
	m.Init()
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press(t *testing.T, m *Model, key string) tea.Cmd {
	t.Helper()
	_, cmd := m.Update(keyMsg(key))
	return cmd
}

func (m *Model) fake() *fakeSource {
	return m.active().inst.(*fakeSource)
}

func TestNewSkipsUnresolvedSources(t *testing.T) {
	m, _, err := New(Options{
		Root:   t.TempDir(),
		Config: testConfig("alpha", "ghost"),
		Log:    discardLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(m.sources) != 1 {
		t.Fatalf("got %d sources, want 1", len(m.sources))
	}
	if got := m.active().name; got != "alpha" {
		t.Errorf("active source = %q, want alpha", got)
	}
}

func TestNewFailsWithoutUsableSources(t *testing.T) {
	_, _, err := New(Options{
		Root:   t.TempDir(),
		Config: testConfig("ghost"),
		Log:    discardLogger(),
	})
	if err == nil {
		t.Fatal("expected error when no source resolves")
	}
}

func TestInitBuildsActiveSource(t *testing.T) {
	m := newTestModel(t)
	if got := m.fake().builds; got != 1 {
		t.Fatalf("builds = %d, want 1", got)
	}
	if len(m.visible) != 4 {
		t.Fatalf("visible rows = %d, want 4 (root, sub, a.txt, b.txt)", len(m.visible))
	}
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
	if got := m.active().st.Tree.FocusedID(); got != m.root {
		t.Errorf("focused = %q, want root", got)
	}
}

func TestCursorKeysMoveAndClamp(t *testing.T) {
	m := newTestModel(t)
	press(t, m, "j")
	if m.cursor != 1 {
		t.Fatalf("cursor after j = %d, want 1", m.cursor)
	}
	if got := m.active().st.Tree.FocusedID(); got != m.visible[1] {
		t.Errorf("focus did not follow cursor: %q", got)
	}
	for range 5 {
		press(t, m, "j")
	}
	if m.cursor != 3 {
		t.Errorf("cursor after overshoot = %d, want 3", m.cursor)
	}
	for range 8 {
		press(t, m, "k")
	}
	if m.cursor != 0 {
		t.Errorf("cursor after underflow = %d, want 0", m.cursor)
	}
}

func TestSpaceTogglesDirectory(t *testing.T) {
	m := newTestModel(t)
	press(t, m, "j") // onto sub
	press(t, m, "space")
	if len(m.visible) != 5 {
		t.Fatalf("visible rows after expand = %d, want 5", len(m.visible))
	}
	inner := filepath.Join(m.root, "sub", "inner.txt")
	if m.visible[2] != inner {
		t.Errorf("visible[2] = %q, want %q", m.visible[2], inner)
	}
	press(t, m, "space")
	if len(m.visible) != 4 {
		t.Errorf("visible rows after collapse = %d, want 4", len(m.visible))
	}
}

func TestRefreshKeyRebuilds(t *testing.T) {
	m := newTestModel(t)
	press(t, m, "R")
	if got := m.fake().builds; got != 2 {
		t.Errorf("builds after refresh = %d, want 2", got)
	}
}

func TestSourceCycling(t *testing.T) {
	m := newTestModel(t, "alpha", "beta")
	if got := m.active().name; got != "alpha" {
		t.Fatalf("initial source = %q, want alpha", got)
	}
	press(t, m, "tab")
	if got := m.active().name; got != "beta" {
		t.Fatalf("after tab = %q, want beta", got)
	}
	if got := m.fake().builds; got != 1 {
		t.Errorf("beta builds = %d, want 1 (built on first activation)", got)
	}
	press(t, m, "shift+tab")
	if got := m.active().name; got != "alpha" {
		t.Errorf("after shift+tab = %q, want alpha", got)
	}
	press(t, m, ">")
	if got := m.active().name; got != "beta" {
		t.Errorf("after > = %q, want beta", got)
	}
	press(t, m, "<")
	if got := m.active().name; got != "alpha" {
		t.Errorf("after < = %q, want alpha", got)
	}
}

func TestPromptRoundTrip(t *testing.T) {
	m := newTestModel(t)
	reply := make(chan askReply, 1)
	m.Update(askMsg{prompt: "New name:", initial: "a.txt", reply: reply})
	if m.prompt == nil {
		t.Fatal("prompt not shown")
	}
	press(t, m, "2")
	press(t, m, "enter")
	if m.prompt != nil {
		t.Fatal("prompt still active after enter")
	}
	got := <-reply
	if !got.ok {
		t.Fatal("reply not ok")
	}
	if got.text != "a.txt2" {
		t.Errorf("reply text = %q, want a.txt2", got.text)
	}
}

func TestPromptEscapeCancels(t *testing.T) {
	m := newTestModel(t)
	reply := make(chan askReply, 1)
	m.Update(askMsg{prompt: "New name:", reply: reply})
	press(t, m, "esc")
	got := <-reply
	if got.ok {
		t.Error("escape should cancel the prompt")
	}
	if m.prompt != nil {
		t.Error("prompt still active after esc")
	}
}

func TestOverlappingPromptIsCancelled(t *testing.T) {
	m := newTestModel(t)
	first := make(chan askReply, 1)
	second := make(chan askReply, 1)
	m.Update(askMsg{prompt: "first", reply: first})
	m.Update(askMsg{prompt: "second", reply: second})
	got := <-second
	if got.ok {
		t.Error("second prompt should be auto-cancelled")
	}
	if m.prompt == nil || m.prompt.title != "first" {
		t.Error("first prompt should stay active")
	}
}

func TestConfirmKeys(t *testing.T) {
	for _, tt := range []struct {
		key  string
		want bool
	}{
		{"y", true},
		{"Y", true},
		{"n", false},
		{"esc", false},
	} {
		m := newTestModel(t)
		reply := make(chan bool, 1)
		m.Update(confirmMsg{prompt: "Delete a.txt?", reply: reply})
		if m.confirm == nil {
			t.Fatal("confirm not shown")
		}
		press(t, m, tt.key)
		if got := <-reply; got != tt.want {
			t.Errorf("key %q: reply = %v, want %v", tt.key, got, tt.want)
		}
		if m.confirm != nil {
			t.Errorf("key %q: confirm still active", tt.key)
		}
	}
}

func TestToastLifecycle(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(msg.ToastMsg{Message: "copied", Duration: time.Minute})
	if cmd == nil {
		t.Fatal("toast should schedule an expiry tick")
	}
	if m.toast.text != "copied" {
		t.Fatalf("toast text = %q, want copied", m.toast.text)
	}
	m.Update(toastExpiredMsg{seq: m.toast.seq - 1})
	if m.toast.text != "copied" {
		t.Error("stale expiry cleared a live toast")
	}
	m.Update(toastExpiredMsg{seq: m.toast.seq})
	if m.toast.text != "" {
		t.Error("toast not cleared on expiry")
	}
}

func TestOpDoneRevealsDestination(t *testing.T) {
	m := newTestModel(t)
	inner := filepath.Join(m.root, "sub", "inner.txt")
	m.Update(opDoneMsg{destination: inner})

	sub, err := m.active().st.Tree.Get(filepath.Join(m.root, "sub"))
	if err != nil {
		t.Fatalf("Get sub: %v", err)
	}
	if !sub.Expanded() {
		t.Error("ancestor directory not expanded")
	}
	if got := m.active().st.Tree.FocusedID(); got != inner {
		t.Errorf("focused = %q, want %q", got, inner)
	}
	if m.visible[m.cursor] != inner {
		t.Errorf("cursor row = %q, want %q", m.visible[m.cursor], inner)
	}
}

func TestOpDoneFallsBackToFolder(t *testing.T) {
	m := newTestModel(t)
	sub, err := m.active().st.Tree.Get(filepath.Join(m.root, "sub"))
	if err != nil {
		t.Fatalf("Get sub: %v", err)
	}
	m.Update(opDoneMsg{folder: sub})
	if got := m.active().st.Tree.FocusedID(); got != sub.ID {
		t.Errorf("focused = %q, want folder %q", got, sub.ID)
	}
}

func TestWatchEventRebuilds(t *testing.T) {
	m := newTestModel(t)
	if m.fake().onChange == nil {
		t.Fatal("watcher not started")
	}
	m.Update(watchFiredMsg{source: "alpha"})
	if got := m.fake().builds; got != 2 {
		t.Errorf("builds after watch event = %d, want 2", got)
	}
}

func TestClosePersistsSession(t *testing.T) {
	store := state.NewStore(t.TempDir())
	session := &state.State{}
	root := t.TempDir()
	m, _, err := New(Options{
		Root:    root,
		Config:  testConfig("alpha"),
		Log:     discardLogger(),
		Store:   store,
		Session: session,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.width, m.height = 40, 12
	m.Init()

	press(t, m, "j")
	press(t, m, "space")
	_, cmd := m.Update(closeMsg{})
	if cmd == nil {
		t.Fatal("close should return a quit command")
	}
	if !m.fake().stopped {
		t.Error("watcher not stopped on close")
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Source != "alpha" {
		t.Errorf("persisted source = %q, want alpha", loaded.Source)
	}
	rs := loaded.Roots[root]
	if rs == nil {
		t.Fatal("no persisted bucket for root")
	}
	sub := filepath.Join(root, "sub")
	want := []string{root, sub}
	if len(rs.Expanded) != len(want) || rs.Expanded[0] != want[0] || rs.Expanded[1] != want[1] {
		t.Errorf("expanded = %v, want %v", rs.Expanded, want)
	}
	if rs.Cursor != sub {
		t.Errorf("cursor = %q, want %q", rs.Cursor, sub)
	}
}

func TestRestoreSession(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	inner := filepath.Join(sub, "inner.txt")
	session := &state.State{
		Source: "alpha",
		Roots: map[string]*state.RootState{
			root: {Expanded: []string{root, sub}, Cursor: inner},
		},
	}
	m, _, err := New(Options{
		Root:    root,
		Config:  testConfig("alpha"),
		Log:     discardLogger(),
		Session: session,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.width, m.height = 40, 12
	m.Init()

	n, err := m.active().st.Tree.Get(sub)
	if err != nil {
		t.Fatalf("Get sub: %v", err)
	}
	if !n.Expanded() {
		t.Error("persisted expansion not restored")
	}
	if got := m.active().st.Tree.FocusedID(); got != inner {
		t.Errorf("focused = %q, want %q", got, inner)
	}
	if m.visible[m.cursor] != inner {
		t.Errorf("cursor row = %q, want %q", m.visible[m.cursor], inner)
	}
}

func TestMissingEditorShowsError(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(openFileMsg{path: filepath.Join(m.root, "a.txt"), mode: ports.OpenEdit})
	if cmd == nil {
		t.Fatal("expected a toast command")
	}
	toast, ok := cmd().(msg.ToastMsg)
	if !ok {
		t.Fatalf("cmd produced %T, want msg.ToastMsg", cmd())
	}
	if !toast.IsError {
		t.Error("missing editor toast should be an error")
	}
}

func TestViewLayout(t *testing.T) {
	m := newTestModel(t)
	view := m.View()
	if got := len(strings.Split(view, "\n")); got != m.height {
		t.Fatalf("view height = %d lines, want %d", got, m.height)
	}
	plain := ansi.Strip(view)
	for _, want := range []string{"alpha", "sub", "a.txt", "b.txt"} {
		if !strings.Contains(plain, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewShowsPromptOverlay(t *testing.T) {
	m := newTestModel(t)
	reply := make(chan askReply, 1)
	m.Update(askMsg{prompt: "New name:", reply: reply})
	plain := ansi.Strip(m.View())
	if !strings.Contains(plain, "New name:") {
		t.Error("prompt overlay not rendered")
	}
}

func TestMouseClickFocusesRow(t *testing.T) {
	m := newTestModel(t)
	m.View() // registers hit regions
	// Row index 2 (a.txt) sits at screen y=4: border, header, two rows down.
	m.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft, X: 5, Y: 4})
	want := filepath.Join(m.root, "a.txt")
	if got := m.active().st.Tree.FocusedID(); got != want {
		t.Errorf("focused = %q, want %q", got, want)
	}
	if m.visible[m.cursor] != want {
		t.Errorf("cursor row = %q, want %q", m.visible[m.cursor], want)
	}
}

func TestMouseDoubleClickTogglesDirectory(t *testing.T) {
	m := newTestModel(t)
	m.View()
	click := tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft, X: 5, Y: 3}
	m.Update(click)
	m.Update(click)
	sub, err := m.active().st.Tree.Get(filepath.Join(m.root, "sub"))
	if err != nil {
		t.Fatalf("Get sub: %v", err)
	}
	if !sub.Expanded() {
		t.Error("double click should expand the directory")
	}
}

func TestMouseWheelScrolls(t *testing.T) {
	m := newTestModel(t)
	m.width, m.height = 40, 6 // two visible rows
	m.View()
	m.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown, X: 5, Y: 3})
	if m.scroll != 2 {
		t.Errorf("scroll = %d, want 2", m.scroll)
	}
	m.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp, X: 5, Y: 3})
	if m.scroll != 0 {
		t.Errorf("scroll after wheel up = %d, want 0", m.scroll)
	}
}

func TestMouseClickHeaderSwitchesSource(t *testing.T) {
	m := newTestModel(t, "alpha", "beta")
	m.View()
	// The beta tab starts after "alpha" and two spaces of separation.
	m.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft, X: 9, Y: 1})
	if got := m.active().name; got != "beta" {
		t.Errorf("active = %q, want beta", got)
	}
}

func TestScrollFollowsCursor(t *testing.T) {
	m := newTestModel(t)
	m.width, m.height = 40, 6 // two visible rows
	m.ensureCursorVisible()
	for range 3 {
		press(t, m, "j")
	}
	if m.cursor != 3 {
		t.Fatalf("cursor = %d, want 3", m.cursor)
	}
	if m.scroll != 2 {
		t.Errorf("scroll = %d, want 2", m.scroll)
	}
	for range 3 {
		press(t, m, "k")
	}
	if m.scroll != 0 {
		t.Errorf("scroll after return = %d, want 0", m.scroll)
	}
}

// Package command implements the dispatch table the panel runs keystrokes
// through. Every source gets its own table: source-specific entries first,
// the built-in common commands filled in behind them at config time.
package command

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/arbordev/arbor/internal/clip"
	"github.com/arbordev/arbor/internal/logx"
	"github.com/arbordev/arbor/internal/ports"
	"github.com/arbordev/arbor/internal/tree"
)

// Done is invoked after a command's filesystem effect has landed, with the
// folder the operation targeted and the destination path that materialized.
// Hosts install a Done that refreshes the source and reveals the path.
type Done func(folder *tree.Node, destination string)

// Func is a dispatchable command.
type Func func(st *State, done Done)

// Table maps command names to implementations.
type Table map[string]Func

// State is everything a command may touch: one source instance's tree and
// clipboard plus the collaborators wired at setup. There is no global
// instance; hosts construct one State per source and pass it explicitly.
type State struct {
	Source    string
	RootPath  string
	Tree      *tree.Tree
	Clipboard *clip.Clipboard
	Paster    *clip.Orchestrator
	Ops       ports.FileOps
	View      ports.View
	Picker    ports.WindowPicker
	Prompt    ports.Prompter
	Log       *slog.Logger

	// Data carries the source instance behind this state. Source-specific
	// commands assert it back to their own type.
	Data any

	// ToggleDir, when set, is how toggle_node expands a collapsed
	// directory. Sources that load children lazily install their loader
	// here; it must populate the node and expand it.
	ToggleDir func(st *State, n *tree.Node)

	// Refresh rebuilds the tree from the source.
	Refresh func(st *State)
}

// Dispatch runs the named command against st. An unknown name is logged
// and ignored, and a panicking command is contained here; keystrokes never
// take the panel down.
func Dispatch(st *State, table Table, name string, done Done) {
	fn, ok := table[name]
	if !ok {
		st.Log.Error("unknown command", "source", st.Source, "command", name)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			st.Log.Error("command panicked", "source", st.Source, "command", name, "panic", r)
		}
	}()
	logx.Trace(st.Log, "dispatch", "source", st.Source, "command", name)
	fn(st, done)
}

// AddCommonCommands copies every built-in command the table does not
// already define. Names starting with an underscore are internal and never
// copied. The copy happens once, at config time; later changes to the
// built-in set are not observed by merged tables.
func AddCommonCommands(t Table) {
	for name, fn := range common {
		if strings.HasPrefix(name, "_") {
			continue
		}
		if _, ok := t[name]; !ok {
			t[name] = fn
		}
	}
}

// focused resolves the node under the cursor, logging when there is none.
func focused(st *State) (*tree.Node, bool) {
	n, err := st.Tree.Current()
	if err != nil {
		st.Log.Warn("no node under cursor", "source", st.Source, "err", err)
		return nil, false
	}
	return n, true
}

// focusedFolder resolves the directory the cursor points into.
func focusedFolder(st *State) (*tree.Node, bool) {
	n, ok := focused(st)
	if !ok {
		return nil, false
	}
	folder, err := st.Tree.FolderOf(n.ID)
	if err != nil {
		st.Log.Error("folder resolution failed", "source", st.Source, "node", n.ID, "err", err)
		return nil, false
	}
	return folder, true
}

// containingFolder resolves the directory that holds n, stepping over n
// itself so a directory being deleted or renamed is not its own target.
func containingFolder(st *State, n *tree.Node) *tree.Node {
	if n.ParentID == "" {
		return n
	}
	folder, err := st.Tree.FolderOf(n.ParentID)
	if err != nil {
		st.Log.Error("folder resolution failed", "source", st.Source, "node", n.ParentID, "err", err)
		return n
	}
	return folder
}

// completion adapts a Done into a FileOps callback: failures are logged,
// successes are forwarded with the folder the command targeted.
func completion(st *State, cmd string, folder *tree.Node, done Done) ports.Callback {
	return func(src, dest string, err error) {
		if errors.Is(err, ports.ErrCanceled) {
			st.Log.Debug("operation canceled", "source", st.Source, "command", cmd, "src", src)
			return
		}
		if err != nil {
			st.Log.Error("file operation failed", "source", st.Source, "command", cmd, "src", src, "err", err)
			return
		}
		st.Log.Debug("file operation done", "source", st.Source, "command", cmd, "src", src, "dest", dest)
		if done != nil {
			done(folder, dest)
		}
	}
}

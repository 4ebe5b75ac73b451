package command

import (
	"github.com/atotto/clipboard"

	"github.com/arbordev/arbor/internal/clip"
	"github.com/arbordev/arbor/internal/ports"
	"github.com/arbordev/arbor/internal/tree"
)

// common is the built-in command set. Sources override entries by name in
// their config; AddCommonCommands fills in the rest.
var common = Table{
	"toggle_node":             ToggleNode,
	"close_node":              CloseNode,
	"close_all_nodes":         CloseAllNodes,
	"close_window":            CloseWindow,
	"open":                    Open,
	"open_split":              OpenSplit,
	"open_vsplit":             OpenVsplit,
	"open_tabnew":             OpenTabnew,
	"open_with_window_picker": OpenWithWindowPicker,
	"add":                     Add,
	"add_directory":           AddDirectory,
	"delete":                  Delete,
	"rename":                  Rename,
	"copy":                    Copy,
	"move":                    Move,
	"copy_to_clipboard":       CopyToClipboard,
	"cut_to_clipboard":        CutToClipboard,
	"paste_from_clipboard":    PasteFromClipboard,
	"copy_path_to_clipboard":  CopyPathToClipboard,
	"refresh":                 Refresh,
}

// toggle flips a node's expansion. Collapsed directories go through the
// source's lazy loader when one is installed. A node with nothing to show
// is left untouched and triggers no redraw.
func toggle(st *State, n *tree.Node) {
	if n.Expanded() {
		if n.Collapse() {
			st.View.Redraw()
		}
		return
	}
	if n.IsDir() && st.ToggleDir != nil {
		st.ToggleDir(st, n)
		return
	}
	if n.Expand() {
		st.View.Redraw()
	}
}

// ToggleNode expands or collapses the node under the cursor.
func ToggleNode(st *State, done Done) {
	n, ok := focused(st)
	if !ok {
		return
	}
	if !n.IsDir() && !n.HasChildren() {
		return
	}
	toggle(st, n)
}

// CloseNode collapses the node under the cursor, or its parent when the
// cursor is on a leaf or an already collapsed node.
func CloseNode(st *State, done Done) {
	n, ok := focused(st)
	if !ok {
		return
	}
	target := n
	if !n.Expanded() {
		if n.ParentID == "" {
			return
		}
		parent, err := st.Tree.Get(n.ParentID)
		if err != nil {
			st.Log.Error("close_node: parent lookup failed", "node", n.ID, "err", err)
			return
		}
		target = parent
	}
	if target != n {
		if err := st.Tree.Focus(target.ID); err == nil {
			st.View.FocusNode(target.ID)
		}
	}
	if target.Collapse() {
		st.View.Redraw()
	}
}

// CloseAllNodes collapses the whole tree and parks the cursor on the first
// root.
func CloseAllNodes(st *State, done Done) {
	if !st.Tree.CollapseAll() {
		return
	}
	if roots := st.Tree.RootIDs(); len(roots) > 0 {
		if err := st.Tree.Focus(roots[0]); err == nil {
			st.View.FocusNode(roots[0])
		}
	}
	st.View.Redraw()
}

// CloseWindow closes the panel.
func CloseWindow(st *State, done Done) {
	st.View.Close()
}

// Refresh rebuilds the tree from the source.
func Refresh(st *State, done Done) {
	if st.Refresh == nil {
		st.Log.Debug("refresh not wired", "source", st.Source)
		return
	}
	st.Refresh(st)
	st.View.Redraw()
}

// openWithMode opens the node under the cursor. Directories and collapsed
// nodes with children toggle instead; an already expanded non-directory
// that carries children opens as a file.
func openWithMode(st *State, mode ports.OpenMode) {
	n, ok := focused(st)
	if !ok {
		return
	}
	if n.IsDir() || n.HasChildren() {
		if !n.Expanded() || n.IsDir() {
			toggle(st, n)
			return
		}
	}
	if n.Kind == tree.KindMessage {
		return
	}
	st.View.OpenFile(n.Path, mode)
}

// Open opens the node under the cursor in the current window.
func Open(st *State, done Done) { openWithMode(st, ports.OpenEdit) }

// OpenSplit opens the node in a horizontal split.
func OpenSplit(st *State, done Done) { openWithMode(st, ports.OpenSplit) }

// OpenVsplit opens the node in a vertical split.
func OpenVsplit(st *State, done Done) { openWithMode(st, ports.OpenVsplit) }

// OpenTabnew opens the node in a new tab.
func OpenTabnew(st *State, done Done) { openWithMode(st, ports.OpenTab) }

// OpenWithWindowPicker opens the node in a window chosen through the
// picker capability. Without a picker installed the command reports the
// gap and aborts; it never guesses a window.
func OpenWithWindowPicker(st *State, done Done) {
	if st.Picker == nil || !st.Picker.Available() {
		st.Log.Info("window picker not installed", "source", st.Source)
		return
	}
	n, ok := focused(st)
	if !ok {
		return
	}
	if n.IsDir() || n.HasChildren() {
		toggle(st, n)
		return
	}
	win, ok := st.Picker.Pick()
	if !ok {
		return
	}
	st.Log.Debug("window picked", "window", win, "path", n.Path)
	st.View.OpenFile(n.Path, ports.OpenEdit)
}

// Add creates a file in the directory under the cursor. The name is
// prompted for by the FileOps implementation.
func Add(st *State, done Done) {
	folder, ok := focusedFolder(st)
	if !ok {
		return
	}
	st.Ops.CreateNode(folder.Path, completion(st, "add", folder, done))
}

// AddDirectory creates a directory in the directory under the cursor.
func AddDirectory(st *State, done Done) {
	folder, ok := focusedFolder(st)
	if !ok {
		return
	}
	st.Ops.CreateDirectory(folder.Path, completion(st, "add_directory", folder, done))
}

// Delete removes the node under the cursor after confirmation.
func Delete(st *State, done Done) {
	n, ok := focused(st)
	if !ok {
		return
	}
	folder := containingFolder(st, n)
	st.Ops.DeleteNode(n.Path, completion(st, "delete", folder, done))
}

// Rename prompts for a new name for the node under the cursor.
func Rename(st *State, done Done) {
	n, ok := focused(st)
	if !ok {
		return
	}
	folder := containingFolder(st, n)
	st.Ops.RenameNode(n.Path, completion(st, "rename", folder, done))
}

// Copy copies the node under the cursor to a prompted destination.
func Copy(st *State, done Done) {
	n, ok := focused(st)
	if !ok {
		return
	}
	folder := containingFolder(st, n)
	st.Ops.CopyNode(n.Path, "", completion(st, "copy", folder, done))
}

// Move moves the node under the cursor to a prompted destination.
func Move(st *State, done Done) {
	n, ok := focused(st)
	if !ok {
		return
	}
	folder := containingFolder(st, n)
	st.Ops.MoveNode(n.Path, "", completion(st, "move", folder, done))
}

// markNode puts the node under the cursor on the clipboard.
func markNode(st *State, action clip.Action) {
	n, ok := focused(st)
	if !ok {
		return
	}
	if n.Kind != tree.KindFile && n.Kind != tree.KindDirectory {
		st.Log.Debug("node not markable", "source", st.Source, "node", n.ID, "kind", n.Kind)
		return
	}
	if n.ParentID == "" {
		st.Log.Warn("refusing to mark a root", "source", st.Source, "node", n.ID)
		return
	}
	st.Clipboard.Mark(n, action)
	st.View.Redraw()
}

// CopyToClipboard marks the node under the cursor for copying. Marking the
// same node again unmarks it.
func CopyToClipboard(st *State, done Done) { markNode(st, clip.ActionCopy) }

// CutToClipboard marks the node under the cursor for moving. Marking the
// same node again unmarks it.
func CutToClipboard(st *State, done Done) { markNode(st, clip.ActionCut) }

// PasteFromClipboard replays the clipboard into the directory under the
// cursor. The clipboard empties immediately; done fires once per landed
// item as the batch drains in the background.
func PasteFromClipboard(st *State, done Done) {
	n, ok := focused(st)
	if !ok {
		return
	}
	folder, err := st.Tree.FolderOf(n.ID)
	if err != nil {
		st.Log.Error("paste target resolution failed", "source", st.Source, "node", n.ID, "err", err)
		return
	}
	st.Paster.Paste(st.Clipboard, folder, clip.PasteDone(done))
	st.View.Redraw()
}

// CopyPathToClipboard puts the node's path on the system clipboard.
func CopyPathToClipboard(st *State, done Done) {
	n, ok := focused(st)
	if !ok {
		return
	}
	if err := clipboard.WriteAll(n.Path); err != nil {
		st.Log.Error("system clipboard write failed", "err", err)
		return
	}
	st.Log.Debug("copied path", "path", n.Path)
}

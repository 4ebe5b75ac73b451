// Package render turns tree nodes into styled text lines. A Registry maps
// component names to render functions; the config layer resolves which
// components draw each node kind and with what options, and Line executes
// that list for one node, joining the non-empty cells.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/arbordev/arbor/internal/clip"
	"github.com/arbordev/arbor/internal/config"
	"github.com/arbordev/arbor/internal/styles"
	"github.com/arbordev/arbor/internal/tree"
)

// Cell is the output of one component for one node: text plus the style
// to paint it with. Empty text means the component contributes nothing
// and the cell is dropped from the line.
type Cell struct {
	Text  string
	Style lipgloss.Style
}

// Context carries the shared state components read besides the node
// itself. Clipboard may be nil for hosts without cut/copy support.
type Context struct {
	Tree      *tree.Tree
	Clipboard *clip.Clipboard
}

// Func renders one component for one node.
type Func func(ctx Context, n *tree.Node, opts map[string]any) Cell

// Registry maps component names to render functions.
type Registry struct {
	funcs map[string]Func
}

// New returns a registry with the built-in components registered.
func New() *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	r.Register("indent", Indent)
	r.Register("icon", Icon)
	r.Register("name", Name)
	r.Register("size", Size)
	r.Register("last_modified", LastModified)
	r.Register("git_status", Git)
	r.Register("clipboard", ClipboardMark)
	r.Register("bufnr", Bufnr)
	return r
}

// Register adds or replaces a component.
func (r *Registry) Register(name string, f Func) {
	r.funcs[name] = f
}

// Line renders one node through the given component list. Unknown
// component names and empty cells are skipped; the rest are styled and
// joined with single spaces.
func (r *Registry) Line(ctx Context, n *tree.Node, renderer config.Renderer) string {
	parts := make([]string, 0, len(renderer))
	for _, c := range renderer {
		f, ok := r.funcs[c.Name]
		if !ok {
			continue
		}
		cell := f(ctx, n, c.Options)
		if cell.Text == "" {
			continue
		}
		parts = append(parts, cell.Style.Render(cell.Text))
	}
	return strings.Join(parts, " ")
}

// RendererFor picks the component list for a node kind. Kinds without an
// entry fall back to the file renderer, then to a bare default.
func RendererFor(renderers map[string]config.Renderer, kind string) config.Renderer {
	if r, ok := renderers[kind]; ok {
		return r
	}
	if r, ok := renderers[tree.KindFile]; ok {
		return r
	}
	return config.Renderer{{Name: "indent"}, {Name: "icon"}, {Name: "name"}}
}

// Indent pads the line by tree depth. With with_expanders on, directories
// additionally show a fold marker and other nodes a one-space placeholder
// so names stay column-aligned.
func Indent(ctx Context, n *tree.Node, opts map[string]any) Cell {
	depth := 0
	if ctx.Tree != nil {
		depth = ctx.Tree.Depth(n.ID)
	}
	pad := strings.Repeat(" ", optInt(opts, "indent_size", 2)*depth)
	if optBool(opts, "with_expanders", true) {
		switch {
		case n.IsDir() && n.Expanded():
			pad += optString(opts, "expander_expanded", "-")
		case n.IsDir():
			pad += optString(opts, "expander_collapsed", "+")
		default:
			pad += " "
		}
	}
	return Cell{Text: pad, Style: styles.TreeIcon}
}

// Icon draws the kind marker: folder glyphs for directories, a fixed
// default for files. Directories that have not revealed children yet use
// the folder_empty glyph. Message nodes carry no icon.
func Icon(ctx Context, n *tree.Node, opts map[string]any) Cell {
	switch {
	case n.IsDir() && n.Expanded():
		return Cell{Text: optString(opts, "folder_open", ">"), Style: styles.TreeIcon}
	case n.IsDir() && n.HasChildren():
		return Cell{Text: optString(opts, "folder_closed", "+"), Style: styles.TreeIcon}
	case n.IsDir():
		return Cell{Text: optString(opts, "folder_empty", "+"), Style: styles.TreeIcon}
	case n.Kind == tree.KindMessage:
		return Cell{}
	default:
		return Cell{Text: optString(opts, "default", " "), Style: styles.TreeIcon}
	}
}

// Name draws the node's display name. Directories grow a trailing slash
// when trailing_slash is set; message nodes show their text instead.
func Name(ctx Context, n *tree.Node, opts map[string]any) Cell {
	switch {
	case n.Kind == tree.KindMessage:
		text := n.Text
		if text == "" {
			text = n.Name
		}
		return Cell{Text: text, Style: styles.TreeMessage}
	case n.IsDir():
		text := n.Name
		if optBool(opts, "trailing_slash", false) {
			text += "/"
		}
		return Cell{Text: text, Style: styles.TreeDir}
	default:
		return Cell{Text: n.Name, Style: styles.TreeFile}
	}
}

// Size right-aligns the file size in a fixed-width column. Directories
// and messages contribute nothing.
func Size(ctx Context, n *tree.Node, opts map[string]any) Cell {
	if n.Kind != tree.KindFile || n.File == nil {
		return Cell{}
	}
	w := optInt(opts, "width", 8)
	return Cell{Text: runewidth.FillLeft(formatSize(n.File.Size), w), Style: styles.Muted}
}

// LastModified formats the node's modification time with the configured
// layout.
func LastModified(ctx Context, n *tree.Node, opts map[string]any) Cell {
	if n.File == nil || n.File.ModTime.IsZero() {
		return Cell{}
	}
	layout := optString(opts, "format", "Jan 02 15:04")
	return Cell{Text: n.File.ModTime.Format(layout), Style: styles.Muted}
}

// Git draws the two-letter porcelain status attached by a source as the
// git_status extra. Each letter maps through the symbols table; untracked
// and conflicted entries collapse to a single symbol. Staged-only changes
// paint green, anything dirtying the working tree amber.
func Git(ctx Context, n *tree.Node, opts map[string]any) Cell {
	code, ok := n.Extra["git_status"].(string)
	if !ok || len(code) != 2 {
		return Cell{}
	}
	symbols := optMap(opts, "symbols")
	text := statusText(code, symbols)
	if text == "" {
		return Cell{}
	}
	return Cell{Text: text, Style: statusStyle(code)}
}

// ClipboardMark flags nodes sitting on the clipboard with the copied or
// cut glyph.
func ClipboardMark(ctx Context, n *tree.Node, opts map[string]any) Cell {
	if ctx.Clipboard == nil {
		return Cell{}
	}
	e, ok := ctx.Clipboard.Get(n.ID)
	if !ok {
		return Cell{}
	}
	if e.Action == clip.ActionCut {
		return Cell{Text: optString(opts, "cut", "x"), Style: styles.ClipCut}
	}
	return Cell{Text: optString(opts, "copied", "c"), Style: styles.ClipCopied}
}

// Bufnr shows the host buffer number, with a trailing plus when the
// buffer holds unsaved changes.
func Bufnr(ctx Context, n *tree.Node, opts map[string]any) Cell {
	id, ok := n.Extra["bufnr"].(int)
	if !ok {
		return Cell{}
	}
	text := fmt.Sprintf("#%d", id)
	if mod, _ := n.Extra["modified"].(bool); mod {
		text += "+"
	}
	return Cell{Text: text, Style: styles.Subtle}
}

// statusText maps a porcelain XY code to display symbols. Untracked and
// conflicted codes collapse to one symbol; otherwise each changed side
// contributes its own.
func statusText(code string, symbols map[string]any) string {
	if code == "??" {
		return symbolFor('?', "untracked", symbols)
	}
	if conflicted(code) {
		return symbolFor('U', "conflict", symbols)
	}
	var b strings.Builder
	for i, letter := range code {
		if letter == '.' {
			continue
		}
		side := "staged"
		if i == 1 {
			side = "unstaged"
		}
		b.WriteString(symbolFor(letter, side, symbols))
	}
	return b.String()
}

// symbolFor resolves one status letter against the symbols table. Letters
// without a named mapping fall back to the side marker, then to the raw
// letter.
func symbolFor(letter rune, side string, symbols map[string]any) string {
	var key string
	switch letter {
	case 'A':
		key = "added"
	case 'M', 'T':
		key = "modified"
	case 'D':
		key = "deleted"
	case 'R', 'C':
		key = "renamed"
	case '?':
		key = "untracked"
	case 'U':
		key = "conflict"
	default:
		key = side
	}
	if s, ok := symbols[key].(string); ok && s != "" {
		return s
	}
	return string(letter)
}

func statusStyle(code string) lipgloss.Style {
	switch {
	case conflicted(code):
		return styles.GitConflict
	case code == "??":
		return styles.GitUntracked
	case code[1] == '.':
		return styles.GitStaged
	default:
		return styles.GitUnstaged
	}
}

// conflicted reports the unmerged porcelain codes.
func conflicted(code string) bool {
	return strings.ContainsRune(code, 'U') || code == "AA" || code == "DD"
}

// formatSize renders a byte count in human units.
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func optInt(opts map[string]any, key string, def int) int {
	switch v := opts[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		// JSON numbers decode as float64.
		return int(v)
	default:
		return def
	}
}

func optBool(opts map[string]any, key string, def bool) bool {
	if v, ok := opts[key].(bool); ok {
		return v
	}
	return def
}

func optString(opts map[string]any, key, def string) string {
	if v, ok := opts[key].(string); ok {
		return v
	}
	return def
}

func optMap(opts map[string]any, key string) map[string]any {
	if v, ok := opts[key].(map[string]any); ok {
		return v
	}
	return nil
}

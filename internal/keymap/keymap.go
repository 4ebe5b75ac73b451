package keymap

import (
	"sort"
	"strings"
)

// Default returns the default window mappings shared by all sources.
// Sources and users override per key; unmapped keys fall through to the
// host.
func Default() map[string]string {
	return map[string]string{
		"space": "toggle_node",
		"enter": "open",
		"s":     "open_vsplit",
		"S":     "open_split",
		"t":     "open_tabnew",
		"w":     "open_with_window_picker",
		"C":     "close_node",
		"z":     "close_all_nodes",
		"a":     "add",
		"A":     "add_directory",
		"d":     "delete",
		"r":     "rename",
		"y":     "copy_to_clipboard",
		"x":     "cut_to_clipboard",
		"p":     "paste_from_clipboard",
		"c":     "copy",
		"m":     "move",
		"Y":     "copy_path_to_clipboard",
		"q":     "close_window",
		"R":     "refresh",
		"j":     "cursor_down",
		"down":  "cursor_down",
		"k":     "cursor_up",
		"up":    "cursor_up",
	}
}

// aliases maps spelling variants to canonical key names.
var aliases = map[string]string{
	"cr":       "enter",
	"return":   "enter",
	"escape":   "esc",
	"bs":       "backspace",
	"del":      "delete",
	" ":        "space",
	"spacebar": "space",
	"pageup":   "pgup",
	"pgdn":     "pgdown",
	"pagedown": "pgdown",
}

// modifiers maps modifier spellings to canonical prefixes.
var modifiers = map[string]string{
	"c":       "ctrl",
	"ctrl":    "ctrl",
	"control": "ctrl",
	"s":       "shift",
	"shift":   "shift",
	"a":       "alt",
	"alt":     "alt",
	"m":       "alt",
	"meta":    "alt",
}

// Normalize canonicalizes a key chord: angle brackets are stripped,
// modifier spellings collapse to ctrl/alt/shift in that order, and named
// keys fold to lower case. Single printable characters keep their case,
// "A" and "a" are different keys.
func Normalize(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if alias, ok := aliases[key]; ok {
		return alias
	}
	if strings.HasPrefix(key, "<") && strings.HasSuffix(key, ">") && len(key) > 2 {
		key = key[1 : len(key)-1]
	}

	// Split modifier chains on + or - while leaving a bare "-" key alone.
	var parts []string
	if len(key) > 1 {
		parts = strings.FieldsFunc(key, func(r rune) bool { return r == '+' || r == '-' })
	} else {
		parts = []string{key}
	}
	if len(parts) == 0 {
		return ""
	}

	base := parts[len(parts)-1]
	mods := map[string]bool{}
	for _, p := range parts[:len(parts)-1] {
		if m, ok := modifiers[strings.ToLower(p)]; ok {
			mods[m] = true
		}
	}

	if alias, ok := aliases[strings.ToLower(base)]; ok {
		base = alias
	} else if len(base) > 1 || len(mods) > 0 {
		// Chords are case-insensitive, bare letters are not.
		base = strings.ToLower(base)
	}

	var b strings.Builder
	for _, m := range []string{"ctrl", "alt", "shift"} {
		if mods[m] {
			b.WriteString(m)
			b.WriteString("+")
		}
	}
	b.WriteString(base)
	return b.String()
}

// NormalizeMappings returns a copy of m with every key normalized. When
// two spellings collapse to the same chord, the lexicographically larger
// original spelling wins, so the result does not depend on map order.
func NormalizeMappings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(m))
	for _, k := range keys {
		out[Normalize(k)] = m[k]
	}
	return out
}

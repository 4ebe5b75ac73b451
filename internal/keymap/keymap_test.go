package keymap

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain letter", "a", "a"},
		{"upper letter keeps case", "A", "A"},
		{"named key folds", "Enter", "enter"},
		{"angle bracket form", "<CR>", "enter"},
		{"angle bracket escape", "<Esc>", "esc"},
		{"literal space", " ", "space"},
		{"space name", "<space>", "space"},
		{"vim ctrl chord", "C-p", "ctrl+p"},
		{"vim ctrl chord upper", "<C-X>", "ctrl+x"},
		{"explicit ctrl chord", "ctrl+p", "ctrl+p"},
		{"shift tab", "S-Tab", "shift+tab"},
		{"meta becomes alt", "M-x", "alt+x"},
		{"modifier order is fixed", "shift+ctrl+a", "ctrl+shift+a"},
		{"alt ctrl order", "alt+ctrl+d", "ctrl+alt+d"},
		{"bare dash survives", "-", "-"},
		{"backspace alias", "<BS>", "backspace"},
		{"page up alias", "PageUp", "pgup"},
		{"empty", "", ""},
		{"padded", "  q  ", "q"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeMappings(t *testing.T) {
	in := map[string]string{
		"<CR>": "open",
		"C-p":  "paste_from_clipboard",
		"A":    "add_directory",
	}
	got := NormalizeMappings(in)

	want := map[string]string{
		"enter":  "open",
		"ctrl+p": "paste_from_clipboard",
		"A":      "add_directory",
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("got[%q] = %q, want %q", k, got[k], v)
		}
	}

	// The input map is untouched.
	if _, ok := in["enter"]; ok {
		t.Error("NormalizeMappings must not mutate its input")
	}
}

func TestNormalizeMappings_CollisionIsDeterministic(t *testing.T) {
	// Two spellings of the same chord: the lexicographically larger
	// original spelling wins, regardless of map iteration order.
	in := map[string]string{
		"<cr>":  "open_split",
		"enter": "open",
	}
	for i := 0; i < 10; i++ {
		got := NormalizeMappings(in)
		if got["enter"] != "open" {
			t.Fatalf("iteration %d: got[enter] = %q, want open", i, got["enter"])
		}
	}
}

func TestNormalizeMappings_Nil(t *testing.T) {
	if got := NormalizeMappings(nil); got != nil {
		t.Errorf("NormalizeMappings(nil) = %v, want nil", got)
	}
}

func TestDefault_CommandsResolve(t *testing.T) {
	m := Default()
	if m["enter"] != "open" {
		t.Errorf(`Default()["enter"] = %q, want "open"`, m["enter"])
	}
	if m["p"] != "paste_from_clipboard" {
		t.Errorf(`Default()["p"] = %q, want "paste_from_clipboard"`, m["p"])
	}
	for key := range m {
		if Normalize(key) != key {
			t.Errorf("default key %q is not in canonical form", key)
		}
	}
}

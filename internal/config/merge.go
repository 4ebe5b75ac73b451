package config

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/arbordev/arbor/internal/command"
	"github.com/arbordev/arbor/internal/keymap"
)

// ErrInvalidPosition reports a window position outside the allowed set.
var ErrInvalidPosition = errors.New("invalid window position")

// positions a window may occupy in the host layout.
var positions = map[string]bool{
	"left":    true,
	"right":   true,
	"top":     true,
	"bottom":  true,
	"float":   true,
	"current": true,
}

// Merge resolves the effective configuration. The merge is ordered:
// built-in defaults first, then the user file, then one resolved Source
// per registered spec, with mapping normalization before any step that
// reads mapping keys and position validation before the final renderer
// pass. Neither input is mutated; the result shares no maps with them.
func Merge(user *Config, specs []SourceSpec, log *slog.Logger) *Config {
	if log == nil {
		log = slog.Default()
	}

	cfg := Defaults()
	user = user.clone()

	cfg.Window.Mappings = keymap.NormalizeMappings(cfg.Window.Mappings)
	user.Window.Mappings = keymap.NormalizeMappings(user.Window.Mappings)
	for _, su := range user.PerSource {
		if su != nil {
			su.Window.Mappings = keymap.NormalizeMappings(su.Window.Mappings)
		}
	}

	overlayWindow(&cfg.Window, user.Window)
	if len(user.Sources) > 0 {
		cfg.Sources = slices.Clone(user.Sources)
	}
	for name, opts := range user.ComponentDefaults {
		cfg.ComponentDefaults[name] = mergeOptions(cfg.ComponentDefaults[name], opts)
	}

	// Renderer lists replace wholesale by kind. Merging them element-wise
	// would splice user entries into the default ordering.
	for kind, r := range user.Renderers {
		cfg.Renderers[kind] = r.clone()
	}

	cfg.Resolved = make(map[string]*Source, len(specs))
	for _, sp := range specs {
		sp.Window.Mappings = keymap.NormalizeMappings(sp.Window.Mappings)
		var su *SourceUser
		if user.PerSource != nil {
			su = user.PerSource[sp.Name]
		}
		cfg.Resolved[sp.Name] = resolveSource(cfg, sp, su, log)
	}

	cfg.Window.Position = validPosition(cfg.Window.Position, "window", log)
	for name, src := range cfg.Resolved {
		src.Window.Position = validPosition(src.Window.Position, name+".window", log)
	}

	for kind, r := range cfg.Renderers {
		cfg.Renderers[kind] = finalizeRenderer(r, cfg.ComponentDefaults)
	}
	for _, src := range cfg.Resolved {
		for kind, r := range src.Renderers {
			src.Renderers[kind] = finalizeRenderer(r, cfg.ComponentDefaults)
		}
	}

	return cfg
}

// resolveSource builds the effective configuration of one source from
// the already-merged global config, the source's registered spec, and
// the user's per-source section (may be nil).
func resolveSource(cfg *Config, sp SourceSpec, su *SourceUser, log *slog.Logger) *Source {
	src := &Source{Name: sp.Name}

	useDefaults := true
	if su != nil && su.UseDefaultMappings != nil {
		useDefaults = *su.UseDefaultMappings
	}
	if useDefaults {
		src.Window = cloneWindow(cfg.Window)
		overlayWindow(&src.Window, sp.Window)
		if su != nil {
			overlayWindow(&src.Window, su.Window)
		}
	} else {
		// The user opted out of inherited mappings; their window section
		// stands alone, with only unset scalars filled from the global
		// window.
		if su != nil {
			src.Window = cloneWindow(su.Window)
		}
		if src.Window.Position == "" {
			src.Window.Position = cfg.Window.Position
		}
		if src.Window.Width <= 0 {
			src.Window.Width = cfg.Window.Width
		}
		if src.Window.Mappings == nil {
			src.Window.Mappings = map[string]string{}
		}
	}

	tbl := command.Table{}
	for name, fn := range sp.Commands {
		tbl[name] = fn
	}
	if su != nil {
		for name, fn := range su.Commands {
			tbl[name] = fn
		}
	}
	command.AddCommonCommands(tbl)
	src.Commands = tbl

	registered := make(map[string]bool, len(CommonComponents)+len(sp.Components))
	src.Components = make([]string, 0, len(CommonComponents)+len(sp.Components))
	for _, n := range CommonComponents {
		registered[n] = true
		src.Components = append(src.Components, n)
	}
	for _, n := range sp.Components {
		if !registered[n] {
			registered[n] = true
			src.Components = append(src.Components, n)
		}
	}

	// Renderers from the source registration or the user replace the
	// global list for that kind. Remaining kinds adopt the global list,
	// pruned to the components this source registers.
	src.Renderers = make(map[string]Renderer)
	for kind, r := range sp.Renderers {
		src.Renderers[kind] = r.clone()
	}
	if su != nil {
		for kind, r := range su.Renderers {
			src.Renderers[kind] = r.clone()
		}
	}
	for kind, r := range cfg.Renderers {
		if _, ok := src.Renderers[kind]; ok {
			continue
		}
		src.Renderers[kind] = pruneRenderer(r, registered, sp.Name, kind, log)
	}

	src.Options = mergeOptions(sp.Defaults, nil)
	if su != nil {
		src.Options = mergeOptions(src.Options, su.Options)
	}

	return src
}

// pruneRenderer drops entries naming components the source did not
// register, so an adopted global renderer cannot reference a component
// the source has no implementation for.
func pruneRenderer(r Renderer, registered map[string]bool, source, kind string, log *slog.Logger) Renderer {
	out := make(Renderer, 0, len(r))
	for _, c := range r {
		if !registered[c.Name] {
			log.Warn("dropping unregistered renderer component",
				"source", source, "kind", kind, "component", c.Name)
			continue
		}
		out = append(out, Component{Name: c.Name, Options: cloneOptions(c.Options)})
	}
	return out
}

// finalizeRenderer guarantees the indent component leads the list and
// merges every entry over its global component defaults, entry fields
// winning.
func finalizeRenderer(r Renderer, defaults map[string]map[string]any) Renderer {
	out := make(Renderer, 0, len(r)+1)
	if !slices.ContainsFunc(r, func(c Component) bool { return c.Name == "indent" }) {
		out = append(out, Component{Name: "indent", Options: cloneOptions(defaults["indent"])})
	}
	for _, c := range r {
		out = append(out, Component{Name: c.Name, Options: mergeOptions(defaults[c.Name], c.Options)})
	}
	return out
}

func validPosition(pos, scope string, log *slog.Logger) string {
	if positions[pos] {
		return pos
	}
	log.Error("window position out of range, using left",
		"scope", scope, "position", pos, "err", ErrInvalidPosition)
	return "left"
}

// clone returns a deep copy. A nil receiver yields an empty config, so
// Merge accepts a missing user file without special cases.
func (c *Config) clone() *Config {
	out := &Config{}
	if c == nil {
		return out
	}
	out.Window = cloneWindow(c.Window)
	out.Sources = slices.Clone(c.Sources)
	if c.ComponentDefaults != nil {
		out.ComponentDefaults = make(map[string]map[string]any, len(c.ComponentDefaults))
		for name, opts := range c.ComponentDefaults {
			out.ComponentDefaults[name] = cloneOptions(opts)
		}
	}
	if c.Renderers != nil {
		out.Renderers = make(map[string]Renderer, len(c.Renderers))
		for kind, r := range c.Renderers {
			out.Renderers[kind] = r.clone()
		}
	}
	if c.PerSource != nil {
		out.PerSource = make(map[string]*SourceUser, len(c.PerSource))
		for name, su := range c.PerSource {
			out.PerSource[name] = su.clone()
		}
	}
	return out
}

func (su *SourceUser) clone() *SourceUser {
	if su == nil {
		return nil
	}
	out := &SourceUser{
		Window:  cloneWindow(su.Window),
		Options: cloneOptions(su.Options),
	}
	if su.UseDefaultMappings != nil {
		v := *su.UseDefaultMappings
		out.UseDefaultMappings = &v
	}
	if su.Renderers != nil {
		out.Renderers = make(map[string]Renderer, len(su.Renderers))
		for kind, r := range su.Renderers {
			out.Renderers[kind] = r.clone()
		}
	}
	if su.Commands != nil {
		out.Commands = command.Table{}
		for name, fn := range su.Commands {
			out.Commands[name] = fn
		}
	}
	return out
}

func (r Renderer) clone() Renderer {
	if r == nil {
		return nil
	}
	out := make(Renderer, len(r))
	for i, c := range r {
		out[i] = Component{Name: c.Name, Options: cloneOptions(c.Options)}
	}
	return out
}

func cloneWindow(w Window) Window {
	if w.Mappings != nil {
		m := make(map[string]string, len(w.Mappings))
		for k, v := range w.Mappings {
			m[k] = v
		}
		w.Mappings = m
	}
	return w
}

// overlayWindow merges over into dst field-by-field: set scalars win,
// mappings merge per key.
func overlayWindow(dst *Window, over Window) {
	if over.Position != "" {
		dst.Position = over.Position
	}
	if over.Width > 0 {
		dst.Width = over.Width
	}
	if len(over.Mappings) > 0 {
		if dst.Mappings == nil {
			dst.Mappings = make(map[string]string, len(over.Mappings))
		}
		for k, v := range over.Mappings {
			dst.Mappings[k] = v
		}
	}
}

// mergeOptions returns a new map holding base under over. Nested
// map[string]any values merge recursively; anything else is replaced.
func mergeOptions(base, over map[string]any) map[string]any {
	if base == nil && over == nil {
		return nil
	}
	out := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		out[k] = cloneValue(v)
	}
	for k, v := range over {
		if bm, ok := out[k].(map[string]any); ok {
			if om, ok := v.(map[string]any); ok {
				out[k] = mergeOptions(bm, om)
				continue
			}
		}
		out[k] = cloneValue(v)
	}
	return out
}

func cloneOptions(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneOptions(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

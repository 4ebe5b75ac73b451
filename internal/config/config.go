// Package config defines the panel configuration model and the merge
// engine that resolves built-in defaults, user overrides, and per-source
// registrations into one effective configuration value.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/arbordev/arbor/internal/command"
	"github.com/arbordev/arbor/internal/keymap"
)

// Window holds the layout settings of the panel window. A zero Position
// or Width means "not set" and inherits from the layer below during merge.
type Window struct {
	Position string            `json:"position,omitempty"`
	Width    int               `json:"width,omitempty"`
	Mappings map[string]string `json:"mappings,omitempty"`
}

// Component is one entry in a renderer list: a registered component name
// plus its per-entry options.
type Component struct {
	Name    string
	Options map[string]any
}

// Renderer is the ordered component list used to draw one node kind.
type Renderer []Component

// SourceUser is the per-source section of the user config file.
// Commands cannot come from JSON; hosts embedding the panel set them
// programmatically before calling Merge.
type SourceUser struct {
	Window             Window              `json:"window,omitempty"`
	UseDefaultMappings *bool               `json:"use_default_mappings,omitempty"`
	Renderers          map[string]Renderer `json:"renderers,omitempty"`
	Options            map[string]any      `json:"options,omitempty"`
	Commands           command.Table       `json:"-"`
}

// SourceSpec is what a source registers in code: its name, commands,
// extra renderer components, window and renderer defaults, and option
// defaults. Merge resolves one Source per spec.
type SourceSpec struct {
	Name       string
	Window     Window
	Renderers  map[string]Renderer
	Components []string
	Commands   command.Table
	Defaults   map[string]any
}

// Source is the fully resolved configuration of one source after Merge.
type Source struct {
	Name       string
	Window     Window
	Renderers  map[string]Renderer
	Components []string
	Commands   command.Table
	Options    map[string]any
}

// Config is the root configuration structure. The exported fields mirror
// the user file; Resolved is populated by Merge with one entry per
// registered source.
type Config struct {
	Window            Window                    `json:"window,omitempty"`
	Sources           []string                  `json:"sources,omitempty"`
	ComponentDefaults map[string]map[string]any `json:"component_defaults,omitempty"`
	Renderers         map[string]Renderer       `json:"renderers,omitempty"`
	PerSource         map[string]*SourceUser    `json:"source_config,omitempty"`

	Resolved map[string]*Source `json:"-"`
}

// CommonComponents are the renderer components available to every
// source. Sources extend the set through SourceSpec.Components.
var CommonComponents = []string{
	"indent",
	"icon",
	"name",
	"size",
	"last_modified",
	"git_status",
	"clipboard",
}

// Defaults returns the built-in configuration. Every call builds a fresh
// value so merged configs never share maps with a package template.
func Defaults() *Config {
	return &Config{
		Window: Window{
			Position: "left",
			Width:    36,
			Mappings: keymap.Default(),
		},
		Sources: []string{"filesystem", "buffers", "git_status"},
		ComponentDefaults: map[string]map[string]any{
			"indent": {
				"indent_size":    2,
				"with_expanders": true,
			},
			"icon": {
				"folder_closed": "+",
				"folder_open":   ">",
				"folder_empty":  "+",
				"default":       " ",
			},
			"name": {
				"trailing_slash": false,
			},
			"size": {
				"width": 8,
			},
			"last_modified": {
				"format": "Jan 02 15:04",
			},
			"git_status": {
				"symbols": map[string]any{
					"added":     "A",
					"modified":  "M",
					"deleted":   "D",
					"renamed":   "R",
					"untracked": "?",
					"staged":    "S",
					"unstaged":  "U",
					"conflict":  "!",
				},
			},
			"clipboard": {
				"copied": "c",
				"cut":    "x",
			},
		},
		Renderers: map[string]Renderer{
			"directory": {{Name: "indent"}, {Name: "icon"}, {Name: "name"}},
			"file":      {{Name: "indent"}, {Name: "icon"}, {Name: "name"}, {Name: "git_status"}},
			"message":   {{Name: "indent"}, {Name: "name"}},
		},
	}
}

// UnmarshalJSON reads a renderer entry written as a flat object, with
// the component name under "name" and every other key as an option:
//
//	{"name": "size", "width": 10}
func (c *Component) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	name, _ := m["name"].(string)
	if name == "" {
		return fmt.Errorf("renderer component missing name")
	}
	delete(m, "name")
	c.Name = name
	c.Options = nil
	if len(m) > 0 {
		c.Options = m
	}
	return nil
}

// MarshalJSON writes the flat-object form read by UnmarshalJSON.
func (c Component) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.Options)+1)
	for k, v := range c.Options {
		m[k] = v
	}
	m["name"] = c.Name
	return json.Marshal(m)
}

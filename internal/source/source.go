// Package source hosts the registry of tree providers. A source
// contributes a config.SourceSpec (commands, renderer components, config
// defaults) plus a factory for live instances that build and refresh
// trees for one root.
package source

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/arbordev/arbor/internal/command"
	"github.com/arbordev/arbor/internal/config"
	"github.com/arbordev/arbor/internal/ports"
	"github.com/arbordev/arbor/internal/tree"
)

// Deps is what a factory gets to work with. Options carries the source's
// resolved config options; the capability fields are nil when the host
// does not provide them.
type Deps struct {
	Root    string
	Options map[string]any
	Log     *slog.Logger
	Buffers ports.BufferLister
	Git     ports.GitStatus
}

// Instance is one live source.
type Instance interface {
	Name() string
	// Build populates st.Tree from scratch, preserving expansion state
	// across rebuilds.
	Build(st *command.State) error
	// ToggleDir expands a collapsed directory, loading children first if
	// the source defers that work. Sources with fully built trees may
	// leave it a no-op.
	ToggleDir(st *command.State, n *tree.Node)
}

// Watcher is implemented by sources that can observe external changes.
// stop releases the watch.
type Watcher interface {
	Watch(onChange func()) (stop func(), err error)
}

// Factory builds one source instance.
type Factory func(deps Deps) Instance

type registration struct {
	spec    config.SourceSpec
	factory Factory
}

var (
	mu      sync.RWMutex
	sources = map[string]registration{}
	order   []string
)

// Register installs a source under its spec's name. Registering the same
// name twice panics; that is a wiring mistake, not a runtime condition.
func Register(spec config.SourceSpec, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := sources[spec.Name]; dup {
		panic("source: Register called twice for " + spec.Name)
	}
	sources[spec.Name] = registration{spec: spec, factory: f}
	order = append(order, spec.Name)
}

// Specs returns every registered spec in registration order, ready to
// hand to config.Merge.
func Specs() []config.SourceSpec {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]config.SourceSpec, 0, len(order))
	for _, name := range order {
		out = append(out, sources[name].spec)
	}
	return out
}

// Names returns registered source names in registration order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, len(order))
	copy(out, order)
	return out
}

// New builds the named source.
func New(name string, deps Deps) (Instance, error) {
	mu.RLock()
	reg, ok := sources[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown source %q", name)
	}
	return reg.factory(deps), nil
}

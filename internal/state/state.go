// Package state persists panel session state across runs: the active
// source plus per-root expansion and cursor. Persistence is best effort;
// a missing or unreadable file yields defaults and the panel runs on.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// RootState is what the panel remembers about one root directory.
type RootState struct {
	Expanded []string `json:"expanded,omitempty"`
	Cursor   string   `json:"cursor,omitempty"`
}

// State is the persisted session snapshot.
type State struct {
	Source string                `json:"source,omitempty"`
	Roots  map[string]*RootState `json:"roots,omitempty"`
}

// Root returns the state bucket for a root path, creating it on first
// use.
func (s *State) Root(path string) *RootState {
	if s.Roots == nil {
		s.Roots = make(map[string]*RootState)
	}
	rs, ok := s.Roots[path]
	if !ok {
		rs = &RootState{}
		s.Roots[path] = rs
	}
	return rs
}

// Store reads and writes one state file.
type Store struct {
	path string
}

// NewStore returns a store backed by dir/state.json.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, "state.json")}
}

// DefaultDir returns the per-user state directory.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "arbor"), nil
}

// Load reads the state file. A missing file is not an error; a corrupt
// one returns the error alongside a usable empty state.
func (s *Store) Load() (*State, error) {
	st := &State{}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, st); err != nil {
		return &State{}, err
	}
	return st, nil
}

// Save writes the state file, creating the directory on first use.
func (s *Store) Save(st *State) error {
	if st == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nonexistent"))
	st, err := store.Load()
	if err != nil {
		t.Fatalf("Load() on missing file: %v", err)
	}
	if st == nil {
		t.Fatal("Load() returned nil state")
	}
	if st.Source != "" || len(st.Roots) != 0 {
		t.Errorf("missing file should yield empty state, got %+v", st)
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	st := &State{Source: "git_status"}
	rs := st.Root("/projects/demo")
	rs.Expanded = []string{"/projects/demo", "/projects/demo/src"}
	rs.Cursor = "/projects/demo/src/main.go"

	if err := store.Save(st); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded.Source != "git_status" {
		t.Errorf("Source = %q, want %q", loaded.Source, "git_status")
	}
	got := loaded.Root("/projects/demo")
	if got.Cursor != "/projects/demo/src/main.go" {
		t.Errorf("Cursor = %q, want %q", got.Cursor, "/projects/demo/src/main.go")
	}
	if len(got.Expanded) != 2 {
		t.Errorf("Expanded has %d entries, want 2", len(got.Expanded))
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "deep", "nested", "arbor")
	store := NewStore(dir)
	if err := store.Save(&State{Source: "filesystem"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "state.json")); err != nil {
		t.Fatalf("state file not created: %v", err)
	}
}

func TestSave_NilState(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Save(nil); err != nil {
		t.Fatalf("Save(nil) should be a no-op, got %v", err)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "state.json"), []byte("not json"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	store := NewStore(dir)
	st, err := store.Load()
	if err == nil {
		t.Error("Load() on corrupt file should return the error")
	}
	if st == nil {
		t.Fatal("Load() must return a usable state even on corruption")
	}
	// The returned state works as a fresh default.
	st.Root("/x").Cursor = "/x/y"
	if st.Roots["/x"].Cursor != "/x/y" {
		t.Error("state returned on corruption is not usable")
	}
}

func TestRoot_CreatesBucketOnce(t *testing.T) {
	st := &State{}
	a := st.Root("/p")
	a.Cursor = "/p/a"
	b := st.Root("/p")
	if b.Cursor != "/p/a" {
		t.Errorf("Root() returned a fresh bucket, want the existing one")
	}
}

func TestSave_WritesIndentedJSON(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if err := store.Save(&State{Source: "buffers"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}
	var decoded State
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("saved file is not valid JSON: %v", err)
	}
	if decoded.Source != "buffers" {
		t.Errorf("Source = %q, want %q", decoded.Source, "buffers")
	}
}

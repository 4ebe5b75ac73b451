package gitcli

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// record builds one porcelain v2 record set joined and terminated by NUL.
func record(lines ...string) []byte {
	return []byte(strings.Join(lines, "\x00") + "\x00")
}

func changedLine(xy, path string) string {
	return strings.Join([]string{"1", xy, "N...", "100644", "100644", "100644", "aaaa", "bbbb", path}, " ")
}

func renamedLine(xy, path string) string {
	return strings.Join([]string{"2", xy, "N...", "100644", "100644", "100644", "aaaa", "bbbb", "R100", path}, " ")
}

func unmergedLine(xy, path string) string {
	return strings.Join([]string{"u", xy, "N...", "100644", "100644", "100644", "100644", "aaaa", "bbbb", "cccc", path}, " ")
}

func TestParseStatus_StagedAndUnstaged(t *testing.T) {
	out := record(
		changedLine("M.", "staged.go"),
		changedLine(".M", "unstaged.go"),
		changedLine("MM", "both.go"),
	)

	entries := parseStatus(out)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	tests := []struct {
		path     string
		status   string
		staged   bool
		unstaged bool
	}{
		{"staged.go", "M.", true, false},
		{"unstaged.go", ".M", false, true},
		{"both.go", "MM", true, true},
	}
	for i, tt := range tests {
		e := entries[i]
		if e.Path != tt.path || e.Status != tt.status || e.Staged != tt.staged || e.Unstaged != tt.unstaged {
			t.Errorf("entry %d = %+v, want %+v", i, e, tt)
		}
	}
}

func TestParseStatus_Untracked(t *testing.T) {
	entries := parseStatus(record("? todo.txt"))
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Path != "todo.txt" || e.Status != "??" || e.Staged || !e.Unstaged {
		t.Errorf("entry = %+v, want untracked todo.txt", e)
	}
}

func TestParseStatus_UntrackedDirectoryKeepsSeparator(t *testing.T) {
	entries := parseStatus(record("? newdir/"))
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Path != "newdir/" {
		t.Errorf("Path = %q, want newdir/", entries[0].Path)
	}
}

func TestParseStatus_RenameReadsOldPath(t *testing.T) {
	entries := parseStatus(record(renamedLine("R.", "after.go"), "before.go"))
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Path != "after.go" || e.OldPath != "before.go" {
		t.Errorf("entry = %+v, want after.go renamed from before.go", e)
	}
	if !e.Staged {
		t.Error("rename with staged index side should be staged")
	}
}

func TestParseStatus_Unmerged(t *testing.T) {
	entries := parseStatus(record(unmergedLine("UU", "conflict.go")))
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Path != "conflict.go" || e.Status != "UU" || !e.Unstaged {
		t.Errorf("entry = %+v, want unmerged conflict.go", e)
	}
}

func TestParseStatus_SkipsMalformedRecords(t *testing.T) {
	entries := parseStatus(record("1 M.", "not a record", "? ok.txt"))
	if len(entries) != 1 || entries[0].Path != "ok.txt" {
		t.Errorf("entries = %+v, want only ok.txt", entries)
	}
}

func TestParseStatus_Empty(t *testing.T) {
	if entries := parseStatus(nil); len(entries) != 0 {
		t.Errorf("entries = %+v, want none", entries)
	}
}

func TestAbsolutize(t *testing.T) {
	tests := []struct {
		rel  string
		want string
	}{
		{"a/b.go", filepath.Join("/top", "a", "b.go")},
		{"dir/", filepath.Join("/top", "dir") + string(filepath.Separator)},
	}
	for _, tt := range tests {
		if got := absolutize("/top", tt.rel); got != tt.want {
			t.Errorf("absolutize(/top, %q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

// initRepo creates a throwaway repository with one committed file.
func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	root := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = root
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init", "-q")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	if err := os.WriteFile(filepath.Join(root, "tracked.txt"), []byte("one\n"), 0644); err != nil {
		t.Fatal(err)
	}
	run("add", "-A")
	run("-c", "commit.gpgsign=false", "commit", "-q", "-m", "init")
	return root
}

func TestStatus_RealRepo(t *testing.T) {
	root := initRepo(t)
	_ = os.WriteFile(filepath.Join(root, "tracked.txt"), []byte("two\n"), 0644)
	_ = os.WriteFile(filepath.Join(root, "loose.txt"), []byte("new\n"), 0644)

	entries, err := New().Status(root)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}

	byName := map[string]bool{}
	for _, e := range entries {
		if !filepath.IsAbs(e.Path) {
			t.Errorf("path %q is not absolute", e.Path)
		}
		byName[filepath.Base(e.Path)] = true
		switch filepath.Base(e.Path) {
		case "tracked.txt":
			if !e.Unstaged || e.Staged {
				t.Errorf("tracked.txt = %+v, want unstaged only", e)
			}
		case "loose.txt":
			if e.Status != "??" {
				t.Errorf("loose.txt Status = %q, want ??", e.Status)
			}
		}
	}
	if !byName["tracked.txt"] || !byName["loose.txt"] {
		t.Errorf("entries = %+v, want tracked.txt and loose.txt", entries)
	}
}

func TestStageAndUnstage_RealRepo(t *testing.T) {
	root := initRepo(t)
	path := filepath.Join(root, "loose.txt")
	_ = os.WriteFile(path, []byte("new\n"), 0644)

	cli := New()
	if err := cli.Stage(root, path); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	entries, err := cli.Status(root)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(entries) != 1 || !entries[0].Staged {
		t.Fatalf("entries = %+v, want one staged entry", entries)
	}

	if err := cli.Unstage(root, path); err != nil {
		t.Fatalf("Unstage: %v", err)
	}
	entries, err = cli.Status(root)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != "??" {
		t.Fatalf("entries = %+v, want one untracked entry", entries)
	}
}

func TestRevert_RealRepo(t *testing.T) {
	root := initRepo(t)
	cli := New()

	tracked := filepath.Join(root, "tracked.txt")
	_ = os.WriteFile(tracked, []byte("changed\n"), 0644)
	if err := cli.Revert(root, tracked); err != nil {
		t.Fatalf("Revert tracked: %v", err)
	}
	data, err := os.ReadFile(tracked)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "one\n" {
		t.Errorf("tracked.txt = %q, want restored content", data)
	}

	loose := filepath.Join(root, "loose.txt")
	_ = os.WriteFile(loose, []byte("new\n"), 0644)
	if err := cli.Revert(root, loose); err != nil {
		t.Fatalf("Revert untracked: %v", err)
	}
	if _, err := os.Stat(loose); !os.IsNotExist(err) {
		t.Error("untracked file should be removed by revert")
	}
}

func TestStatus_NotARepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	if _, err := New().Status(t.TempDir()); err == nil {
		t.Error("Status outside a repository should fail")
	}
}

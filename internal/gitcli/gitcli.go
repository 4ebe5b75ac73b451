// Package gitcli implements the git status port by shelling out to the
// git binary.
package gitcli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/arbordev/arbor/internal/ports"
)

// CLI talks to the git binary found on PATH. The zero value is usable.
type CLI struct{}

// New returns a git CLI client.
func New() *CLI { return &CLI{} }

// Status reports every changed path in the repository containing root.
// Paths come back absolute; an untracked directory keeps its trailing
// separator so callers can tell it from a file.
func (c *CLI) Status(root string) ([]ports.GitEntry, error) {
	top, err := c.toplevel(root)
	if err != nil {
		return nil, err
	}
	out, err := gitRun(root, "status", "--porcelain=v2", "-z", "--untracked-files=normal")
	if err != nil {
		return nil, err
	}
	entries := parseStatus(out)
	for i := range entries {
		entries[i].Path = absolutize(top, entries[i].Path)
	}
	return entries, nil
}

// Stage adds one path to the index.
func (c *CLI) Stage(root, path string) error {
	_, err := gitRun(root, "add", "--", path)
	return err
}

// StageAll stages every change in the repository.
func (c *CLI) StageAll(root string) error {
	_, err := gitRun(root, "add", "-A")
	return err
}

// Unstage removes one path from the index, keeping worktree changes.
func (c *CLI) Unstage(root, path string) error {
	_, err := gitRun(root, "restore", "--staged", "--", path)
	return err
}

// Revert discards all changes to one path. Tracked paths are unstaged
// and restored from HEAD; untracked paths are removed from disk.
func (c *CLI) Revert(root, path string) error {
	out, err := gitRun(root, "ls-files", "--", path)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return os.RemoveAll(path)
	}
	if _, err := gitRun(root, "restore", "--staged", "--", path); err != nil {
		return err
	}
	_, err = gitRun(root, "restore", "--", path)
	return err
}

// toplevel resolves the repository root containing dir.
func (c *CLI) toplevel(dir string) (string, error) {
	out, err := gitRun(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// parseStatus parses git status --porcelain=v2 -z output into entries
// with repo-relative paths.
//
// Record shapes, NUL-terminated:
//
//	1 <XY> <sub> <mH> <mI> <mW> <hH> <hI> <path>
//	2 <XY> <sub> <mH> <mI> <mW> <hH> <hI> <X><score> <path> NUL <origPath>
//	u <XY> <sub> <m1> <m2> <m3> <mW> <h1> <h2> <h3> <path>
//	? <path>
func parseStatus(output []byte) []ports.GitEntry {
	var entries []ports.GitEntry
	parts := bytes.Split(output, []byte{0})
	for i := 0; i < len(parts); i++ {
		if len(parts[i]) == 0 {
			continue
		}
		line := string(parts[i])
		switch {
		case strings.HasPrefix(line, "1 "):
			if e, ok := parseChanged(line); ok {
				entries = append(entries, e)
			}
		case strings.HasPrefix(line, "2 "):
			e, ok := parseRenamed(line)
			if !ok {
				continue
			}
			// The old path rides in the next NUL-separated part.
			i++
			if i < len(parts) {
				e.OldPath = string(parts[i])
			}
			entries = append(entries, e)
		case strings.HasPrefix(line, "? "):
			entries = append(entries, ports.GitEntry{
				Path:     strings.TrimPrefix(line, "? "),
				Status:   "??",
				Unstaged: true,
			})
		case strings.HasPrefix(line, "u "):
			if e, ok := parseUnmerged(line); ok {
				entries = append(entries, e)
			}
		}
	}
	return entries
}

func parseChanged(line string) (ports.GitEntry, bool) {
	fields := strings.SplitN(line, " ", 9)
	if len(fields) < 9 {
		return ports.GitEntry{}, false
	}
	xy := fields[1]
	staged, unstaged := flags(xy)
	return ports.GitEntry{
		Path:     fields[8],
		Status:   xy,
		Staged:   staged,
		Unstaged: unstaged,
	}, true
}

func parseRenamed(line string) (ports.GitEntry, bool) {
	fields := strings.SplitN(line, " ", 10)
	if len(fields) < 10 {
		return ports.GitEntry{}, false
	}
	xy := fields[1]
	staged, unstaged := flags(xy)
	return ports.GitEntry{
		Path:     fields[9],
		Status:   xy,
		Staged:   staged,
		Unstaged: unstaged,
	}, true
}

func parseUnmerged(line string) (ports.GitEntry, bool) {
	fields := strings.SplitN(line, " ", 11)
	if len(fields) < 11 {
		return ports.GitEntry{}, false
	}
	return ports.GitEntry{
		Path:     fields[10],
		Status:   fields[1],
		Unstaged: true,
	}, true
}

// flags derives the staged and unstaged bits from an XY code. X is the
// index side, Y the worktree side.
func flags(xy string) (staged, unstaged bool) {
	if len(xy) < 2 {
		return false, false
	}
	staged = xy[0] != '.' && xy[0] != '?'
	unstaged = xy[1] != '.' && xy[1] != '?'
	return staged, unstaged
}

// absolutize joins a repo-relative path onto the repository root. Git
// always reports forward slashes; a trailing one marks a directory and
// survives the join.
func absolutize(top, rel string) string {
	abs := filepath.Join(top, rel)
	if strings.HasSuffix(rel, "/") {
		abs += string(filepath.Separator)
	}
	return abs
}

// gitRun executes one git command under dir and returns its stdout.
// Stderr is folded into the error so log lines carry git's own words.
func gitRun(dir string, args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) && len(ee.Stderr) > 0 {
			return nil, fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(string(ee.Stderr)))
		}
		return nil, fmt.Errorf("git %s: %w", args[0], err)
	}
	return out, nil
}

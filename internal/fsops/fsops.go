// Package fsops implements panel file operations against the local
// filesystem. Operations run on a single worker goroutine so submissions
// execute in order, prompt through the host when a name or destination is
// needed, and report through the completion callback.
package fsops

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/arbordev/arbor/internal/ports"
)

// renameTmpSuffix briefly holds a file during a case-only rename so the
// two names never collide on case-insensitive filesystems.
const renameTmpSuffix = ".arbor-rename-tmp"

const maxCopySuffix = 100

// Local performs file operations rooted at one directory. Paths that
// resolve outside the root fail validation before any work happens.
type Local struct {
	root   string
	prompt ports.Prompter
	log    *slog.Logger
	jobs   chan func()
}

// New returns a Local rooted at dir with its worker running.
func New(dir string, prompt ports.Prompter, log *slog.Logger) *Local {
	if log == nil {
		log = slog.Default()
	}
	l := &Local{
		root:   filepath.Clean(dir),
		prompt: prompt,
		log:    log,
		jobs:   make(chan func(), 32),
	}
	go l.worker()
	return l
}

func (l *Local) worker() {
	for job := range l.jobs {
		job()
	}
}

// Close stops the worker once queued operations finish.
func (l *Local) Close() {
	close(l.jobs)
}

// CreateNode prompts for a name and creates a file under dir. A name
// ending in a separator creates a directory instead, and intermediate
// directories are created as needed.
func (l *Local) CreateNode(dir string, cb ports.Callback) {
	l.jobs <- func() {
		name, ok := l.prompt.Ask("New file name:", "")
		if !ok || name == "" {
			cb(dir, "", ports.ErrCanceled)
			return
		}
		asDir := strings.HasSuffix(name, "/") || strings.HasSuffix(name, string(filepath.Separator))
		dst, err := l.create(dir, strings.TrimRight(name, "/"+string(filepath.Separator)), asDir)
		cb(dir, dst, err)
	}
}

// CreateDirectory prompts for a name and creates a directory under dir.
func (l *Local) CreateDirectory(dir string, cb ports.Callback) {
	l.jobs <- func() {
		name, ok := l.prompt.Ask("New directory name:", "")
		if !ok || name == "" {
			cb(dir, "", ports.ErrCanceled)
			return
		}
		dst, err := l.create(dir, strings.TrimRight(name, "/"+string(filepath.Separator)), true)
		cb(dir, dst, err)
	}
}

func (l *Local) create(dir, name string, asDir bool) (string, error) {
	if err := validateEntryPath(name); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := l.ensureWithinRoot(path); err != nil {
		return "", err
	}
	if _, err := os.Lstat(path); err == nil {
		return "", fmt.Errorf("already exists: %s", name)
	}
	if asDir {
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	_ = f.Close()
	return path, nil
}

// CopyNode copies src to dst, prompting when dst is empty. A destination
// that already exists gets _copy, _copy2, ... inserted before the
// extension rather than being overwritten.
func (l *Local) CopyNode(src, dst string, cb ports.Callback) {
	l.jobs <- func() {
		target, err := l.resolveDest("Copy to:", src, dst)
		if err != nil {
			cb(src, "", err)
			return
		}
		final, err := l.copyTo(src, target)
		cb(src, final, err)
	}
}

func (l *Local) copyTo(src, dst string) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("source not found: %s", filepath.Base(src))
	}
	dst, err = conflictFree(dst)
	if err != nil {
		return "", err
	}
	if info.IsDir() && within(src, dst) {
		return "", fmt.Errorf("cannot copy a directory into itself")
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}
	if info.IsDir() {
		err = copyDir(src, dst)
	} else {
		err = copyFile(src, dst)
	}
	if err != nil {
		return "", err
	}
	return dst, nil
}

// MoveNode moves src to dst, prompting when dst is empty. Destination
// conflicts resolve the same way as CopyNode; a rename falls back to
// copy-and-delete when the rename itself fails, as it does across
// filesystems.
func (l *Local) MoveNode(src, dst string, cb ports.Callback) {
	l.jobs <- func() {
		target, err := l.resolveDest("Move to:", src, dst)
		if err != nil {
			cb(src, "", err)
			return
		}
		final, err := l.moveTo(src, target)
		cb(src, final, err)
	}
}

func (l *Local) moveTo(src, dst string) (string, error) {
	if src == dst {
		return "", fmt.Errorf("source and destination are the same")
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}
	if strings.EqualFold(src, dst) {
		if err := caseOnlyRename(src, dst); err != nil {
			return "", err
		}
		return dst, nil
	}
	dst, err := conflictFree(dst)
	if err != nil {
		return "", err
	}
	if err := os.Rename(src, dst); err != nil {
		l.log.Debug("rename failed, copying instead", "src", src, "dst", dst, "err", err)
		info, serr := os.Stat(src)
		if serr != nil {
			return "", err
		}
		if info.IsDir() {
			if cerr := copyDir(src, dst); cerr != nil {
				return "", cerr
			}
		} else {
			if cerr := copyFile(src, dst); cerr != nil {
				return "", cerr
			}
		}
		if rerr := os.RemoveAll(src); rerr != nil {
			return "", rerr
		}
	}
	return dst, nil
}

// DeleteNode removes path recursively after the host confirms. The
// operation root itself cannot be deleted.
func (l *Local) DeleteNode(path string, cb ports.Callback) {
	l.jobs <- func() {
		if err := l.ensureWithinRoot(path); err != nil {
			cb(path, "", err)
			return
		}
		if samePath(path, l.root) {
			cb(path, "", fmt.Errorf("cannot delete the root directory"))
			return
		}
		if !l.prompt.Confirm(fmt.Sprintf("Delete %s?", filepath.Base(path))) {
			cb(path, "", ports.ErrCanceled)
			return
		}
		if err := os.RemoveAll(path); err != nil {
			cb(path, "", err)
			return
		}
		cb(path, "", nil)
	}
}

// RenameNode prompts for a new name in the same directory. The entered
// name may not contain separators; moving between directories is
// MoveNode's job.
func (l *Local) RenameNode(path string, cb ports.Callback) {
	l.jobs <- func() {
		name, ok := l.prompt.Ask("New name:", filepath.Base(path))
		if !ok || name == "" || name == filepath.Base(path) {
			cb(path, "", ports.ErrCanceled)
			return
		}
		if strings.ContainsAny(name, "/"+string(filepath.Separator)) {
			cb(path, "", fmt.Errorf("rename cannot move between directories"))
			return
		}
		if err := validateFilename(name); err != nil {
			cb(path, "", err)
			return
		}
		dst := filepath.Join(filepath.Dir(path), name)
		if err := l.ensureWithinRoot(dst); err != nil {
			cb(path, "", err)
			return
		}
		if strings.EqualFold(path, dst) {
			if err := caseOnlyRename(path, dst); err != nil {
				cb(path, "", err)
				return
			}
			cb(path, dst, nil)
			return
		}
		if _, err := os.Lstat(dst); err == nil {
			cb(path, "", fmt.Errorf("destination already exists: %s", name))
			return
		}
		if err := os.Rename(path, dst); err != nil {
			cb(path, "", err)
			return
		}
		cb(path, dst, nil)
	}
}

// resolveDest prompts for a destination when none was given and
// validates whatever results.
func (l *Local) resolveDest(label, src, dst string) (string, error) {
	if dst == "" {
		entered, ok := l.prompt.Ask(label, src)
		if !ok || entered == "" {
			return "", ports.ErrCanceled
		}
		dst = entered
	}
	if err := validateFilename(filepath.Base(dst)); err != nil {
		return "", err
	}
	if err := l.ensureWithinRoot(dst); err != nil {
		return "", err
	}
	return dst, nil
}

// ensureWithinRoot rejects paths that escape the operation root.
func (l *Local) ensureWithinRoot(path string) error {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("invalid path")
	}
	absRoot, err := filepath.Abs(l.root)
	if err != nil {
		return fmt.Errorf("failed to resolve root directory")
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes %s", l.root)
	}
	return nil
}

// validateFilename checks one path segment for invalid characters and
// patterns.
func validateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid filename")
	}
	for _, r := range name {
		if r == 0 || (r < 32 && r != '\t') {
			return fmt.Errorf("filename contains invalid characters")
		}
	}
	for _, c := range []rune{'<', '>', ':', '"', '|', '?', '*'} {
		if strings.ContainsRune(name, c) {
			return fmt.Errorf("filename contains invalid character: %c", c)
		}
	}
	return nil
}

// validateEntryPath validates a possibly nested relative path entered by
// the user, one segment at a time.
func validateEntryPath(name string) error {
	if filepath.IsAbs(name) {
		return fmt.Errorf("absolute paths not allowed")
	}
	for _, seg := range strings.Split(filepath.ToSlash(name), "/") {
		if err := validateFilename(seg); err != nil {
			return err
		}
	}
	return nil
}

// conflictFree returns dst untouched when nothing occupies it, otherwise
// the first free variant with _copy, _copy2, ... inserted before the
// extension.
func conflictFree(dst string) (string, error) {
	if _, err := os.Lstat(dst); os.IsNotExist(err) {
		return dst, nil
	}
	dir := filepath.Dir(dst)
	name := filepath.Base(dst)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; i <= maxCopySuffix; i++ {
		suffix := "_copy"
		if i > 1 {
			suffix = fmt.Sprintf("_copy%d", i)
		}
		candidate := filepath.Join(dir, base+suffix+ext)
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("too many copies of %s", name)
}

// caseOnlyRename renames through a temporary name so renames that only
// change letter case succeed on case-insensitive filesystems.
func caseOnlyRename(src, dst string) error {
	tmp := src + renameTmpSuffix
	if err := os.Rename(src, tmp); err != nil {
		return fmt.Errorf("rename failed: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Rename(tmp, src)
		return fmt.Errorf("rename failed: %w", err)
	}
	return nil
}

// within reports whether child sits at or below parent.
func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func samePath(a, b string) bool {
	aa, err := filepath.Abs(a)
	if err != nil {
		return false
	}
	bb, err := filepath.Abs(b)
	if err != nil {
		return false
	}
	return aa == bb
}

// copyFile copies a single file, preserving its mode.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = srcFile.Close() }()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return err
	}
	defer func() { _ = dstFile.Close() }()

	_, err = io.Copy(dstFile, srcFile)
	return err
}

// copyDir recursively copies a directory.
func copyDir(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dst, srcInfo.Mode()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
		} else {
			if err := copyFile(srcPath, dstPath); err != nil {
				return err
			}
		}
	}

	return nil
}

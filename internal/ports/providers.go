package ports

// Buffer describes an open buffer in the host editor.
type Buffer struct {
	ID       int
	Path     string
	Modified bool
}

// BufferLister exposes the host's open buffers to the buffers source.
type BufferLister interface {
	ListBuffers() []Buffer
	DeleteBuffer(id int) error
}

// GitEntry is one changed path from git status.
type GitEntry struct {
	Path     string
	OldPath  string // set for renames
	Status   string // two-letter XY code from porcelain output
	Staged   bool
	Unstaged bool
}

// GitStatus provides repository status and staging operations for the
// git_status source.
type GitStatus interface {
	Status(root string) ([]GitEntry, error)
	Stage(root, path string) error
	StageAll(root string) error
	Unstage(root, path string) error
	Revert(root, path string) error
}

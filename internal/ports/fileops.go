// Package ports declares the interfaces the tree engine consumes. Hosts and
// platform packages provide the implementations; the engine never reaches
// past these boundaries itself.
package ports

import "errors"

// ErrCanceled reports that the user dismissed a prompt. The operation
// performed no work.
var ErrCanceled = errors.New("operation canceled")

// Callback delivers the result of an asynchronous file operation. It fires
// exactly once per submitted operation. destination is the path that
// actually materialized, which can differ from the requested one when the
// operation prompted for a name or renamed to avoid a collision.
type Callback func(source, destination string, err error)

// FileOps performs filesystem mutations on behalf of commands. Every method
// submits work and returns immediately.
//
// CopyNode and MoveNode prompt the user for a destination when dst is
// empty. CreateNode treats an entered name with a trailing separator as a
// directory request.
type FileOps interface {
	CreateNode(dir string, cb Callback)
	CreateDirectory(dir string, cb Callback)
	CopyNode(src, dst string, cb Callback)
	MoveNode(src, dst string, cb Callback)
	DeleteNode(path string, cb Callback)
	RenameNode(path string, cb Callback)
}

// Prompter collects input from the user for operations that need a name,
// a destination, or a confirmation. ok is false when the user cancels.
type Prompter interface {
	Ask(prompt, initial string) (value string, ok bool)
	Confirm(prompt string) bool
}

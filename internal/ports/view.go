package ports

// OpenMode selects how the host editor opens a file.
type OpenMode string

const (
	OpenEdit   OpenMode = "edit"
	OpenSplit  OpenMode = "split"
	OpenVsplit OpenMode = "vsplit"
	OpenTab    OpenMode = "tab"
)

// View is the host surface the engine talks back to. Redraw is cheap to
// call repeatedly; hosts coalesce.
type View interface {
	Redraw()
	FocusNode(id string)
	Close()
	OpenFile(path string, mode OpenMode)
}

// WindowPicker is an optional capability for choosing the editor window a
// file opens into. Callers must check Available first; commands that need a
// picker report its absence to the user and abort cleanly.
type WindowPicker interface {
	Available() bool
	Pick() (window int, ok bool)
}

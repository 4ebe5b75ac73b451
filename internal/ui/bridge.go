package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arbordev/arbor/internal/ports"
	"github.com/arbordev/arbor/internal/tree"
)

type redrawMsg struct{}

type focusMsg struct{ id string }

type closeMsg struct{}

type openFileMsg struct {
	path string
	mode ports.OpenMode
}

type opDoneMsg struct {
	folder      *tree.Node
	destination string
}

type watchFiredMsg struct{ source string }

type askReply struct {
	text string
	ok   bool
}

type askMsg struct {
	prompt  string
	initial string
	reply   chan askReply
}

type confirmMsg struct {
	prompt string
	reply  chan bool
}

type editorFinishedMsg struct{ err error }

type toastExpiredMsg struct{ seq int }

// Bridge carries the engine's callback interfaces onto the bubbletea
// message loop. Sends are safe from any goroutine; the program serializes
// delivery. Ask and Confirm block the caller until the panel answers, so
// they must never run on the update goroutine itself. Worker goroutines
// (file operations, git commands) are the intended callers.
type Bridge struct {
	mu sync.Mutex
	p  *tea.Program
}

// Attach hands the running program to the bridge. Calls arriving before
// Attach are dropped (sends) or answered as canceled (prompts); nothing
// can dispatch commands before the program runs, so that window is empty
// in practice.
func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	b.p = p
	b.mu.Unlock()
}

func (b *Bridge) send(m tea.Msg) bool {
	b.mu.Lock()
	p := b.p
	b.mu.Unlock()
	if p == nil {
		return false
	}
	p.Send(m)
	return true
}

// Redraw asks the panel to recompute visible rows and repaint.
func (b *Bridge) Redraw() {
	b.send(redrawMsg{})
}

// FocusNode moves the cursor to the node with the given ID.
func (b *Bridge) FocusNode(id string) {
	b.send(focusMsg{id: id})
}

// Close shuts the panel down.
func (b *Bridge) Close() {
	b.send(closeMsg{})
}

// OpenFile opens the file in the host editor.
func (b *Bridge) OpenFile(path string, mode ports.OpenMode) {
	b.send(openFileMsg{path: path, mode: mode})
}

// Ask shows a text prompt and blocks until the user answers or cancels.
func (b *Bridge) Ask(prompt, initial string) (string, bool) {
	reply := make(chan askReply, 1)
	if !b.send(askMsg{prompt: prompt, initial: initial, reply: reply}) {
		return "", false
	}
	r := <-reply
	return r.text, r.ok
}

// Confirm shows a yes/no prompt and blocks until the user answers.
func (b *Bridge) Confirm(prompt string) bool {
	reply := make(chan bool, 1)
	if !b.send(confirmMsg{prompt: prompt, reply: reply}) {
		return false
	}
	return <-reply
}

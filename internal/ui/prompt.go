package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/arbordev/arbor/internal/styles"
)

// promptState is an active text prompt. The reply channel is owned by
// the blocked worker that asked; exactly one answer must be sent.
type promptState struct {
	title string
	input textinput.Model
	reply chan askReply
}

// confirmState is an active yes/no question.
type confirmState struct {
	title string
	reply chan bool
}

func (m *Model) beginAsk(v askMsg) (tea.Model, tea.Cmd) {
	if m.prompt != nil || m.confirm != nil {
		// Workers are serialized, so overlap means a stale prompt.
		// Answer the new one as cancelled rather than block its worker.
		v.reply <- askReply{}
		return m, nil
	}
	ti := textinput.New()
	ti.SetValue(v.initial)
	ti.Focus()
	ti.CursorEnd()
	ti.Width = m.promptWidth() - 2
	m.prompt = &promptState{title: v.prompt, input: ti, reply: v.reply}
	return m, textinput.Blink
}

func (m *Model) beginConfirm(v confirmMsg) (tea.Model, tea.Cmd) {
	if m.prompt != nil || m.confirm != nil {
		v.reply <- false
		return m, nil
	}
	m.confirm = &confirmState{title: v.prompt, reply: v.reply}
	return m, nil
}

func (m *Model) handlePromptKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "esc":
		m.prompt.reply <- askReply{}
		m.prompt = nil
	case "enter":
		m.prompt.reply <- askReply{text: m.prompt.input.Value(), ok: true}
		m.prompt = nil
	default:
		var cmd tea.Cmd
		m.prompt.input, cmd = m.prompt.input.Update(k)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleConfirmKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "y", "Y":
		m.confirm.reply <- true
	default:
		m.confirm.reply <- false
	}
	m.confirm = nil
	return m, nil
}

func (m *Model) promptWidth() int {
	w := min(48, m.width-8)
	return max(w, 20)
}

func (m *Model) promptView() string {
	content := styles.PromptTitle.Render(m.prompt.title) + "\n" + m.prompt.input.View()
	return styles.PromptBox.Width(m.promptWidth()).Render(content)
}

func (m *Model) confirmView() string {
	content := styles.PromptTitle.Render(m.confirm.title) + "\n" +
		styles.Muted.Render("y confirms, any other key cancels")
	return styles.PromptBox.Width(m.promptWidth()).Render(content)
}

package setup

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// startEdit switches the selected step into edit mode
func (m Model) startEdit() (tea.Model, tea.Cmd) {
	p, _, ok := m.current()
	if !ok {
		return m, nil
	}
	if err := p.form.Edit(); err != nil {
		m.notice = "This step is not available until the previous steps are complete"
		return m, nil
	}

	m.editing = true
	m.notice = ""
	m.secret = ""
	m.field = 0
	return m, m.focusField()
}

func (m Model) requestSave() (tea.Model, tea.Cmd) {
	p, _, ok := m.current()
	if !ok {
		return m, nil
	}
	if !p.form.CanSave() {
		if !p.form.IsDirty() {
			m.notice = "Nothing changed"
		} else {
			m.notice = "Fill in every field before saving"
		}
		return m, nil
	}
	if p.needsConfirm != nil && p.needsConfirm() {
		m.confirming = true
		return m, nil
	}
	return m.startSave(p)
}

// startSave runs the step save in the background and reports with saveDoneMsg
func (m Model) startSave(p *panel) (tea.Model, tea.Cmd) {
	m.saving = true
	m.notice = ""
	m.input.Blur()

	ctx, id, save := m.ctx, p.id, p.save
	return m, func() tea.Msg {
		return saveDoneMsg{step: id, err: save(ctx)}
	}
}

// focusField loads the focused field into the text input
func (m *Model) focusField() tea.Cmd {
	f, ok := m.currentField()
	if !ok || f.kind == fieldChoice {
		m.input.Blur()
		return nil
	}

	m.input.SetValue(f.get())
	m.input.CursorEnd()
	if f.kind == fieldSecret {
		m.input.EchoMode = textinput.EchoPassword
	} else {
		m.input.EchoMode = textinput.EchoNormal
	}
	return m.input.Focus()
}

func (m *Model) moveField(dir int) {
	p, _, ok := m.current()
	if !ok {
		return
	}
	n := len(p.visibleFields())
	if n == 0 {
		m.field = 0
		return
	}
	m.field = (m.field + dir + n) % n
}

// clampField keeps the focus inside the visible fields, which change with choices
func (m *Model) clampField() {
	p, _, ok := m.current()
	if !ok {
		return
	}
	if n := len(p.visibleFields()); m.field >= n {
		m.field = max(n-1, 0)
	}
}

// cycleOption selects the next available option of a choice field
func (m *Model) cycleOption(f field, dir int) {
	n := len(f.options)
	if n == 0 {
		return
	}

	idx := -1
	for i, o := range f.options {
		if o.value == f.get() {
			idx = i
		}
	}
	if idx < 0 && dir < 0 {
		idx = n
	}

	for range n {
		idx = (idx + dir + n) % n
		if f.options[idx].available() {
			if err := f.set(f.options[idx].value); err != nil {
				m.notice = err.Error()
			}
			return
		}
	}
}

// copySecret puts the app password shown after a save on the clipboard
func (m *Model) copySecret() {
	if m.secret == "" {
		return
	}
	if err := m.writeClipboard(m.secret); err != nil {
		m.logger.WithError(err).Warn("Failed to copy app password")
		m.notice = "Could not copy to the clipboard, copy the password by hand"
		return
	}
	m.notice = "App password copied to the clipboard"
}

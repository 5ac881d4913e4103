package setup

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tildaslashalef/oplink/internal/tui"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.input.Width = max(msg.Width-30, 20)
		m.renderer = tui.NewMarkdownRenderer(msg.Width - 4)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)

	case saveDoneMsg:
		return m.handleSaveDone(msg)
	}

	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch {
	case m.confirming:
		return m.handleConfirmKey(msg)
	case m.saving:
		return m, nil
	case m.editing:
		return m.handleEditKey(msg)
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.notice = ""
	case key.Matches(msg, m.keymap.Down):
		if m.cursor < len(m.steps())-1 {
			m.cursor++
		}
		m.notice = ""
	case key.Matches(msg, m.keymap.Edit):
		return m.startEdit()
	case key.Matches(msg, m.keymap.Copy):
		m.copySecret()
	}
	return m, nil
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p, _, ok := m.current()
	if !ok {
		m.editing = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.Cancel):
		p.form.Cancel()
		m.editing = false
		m.notice = ""
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keymap.Save):
		return m.requestSave()
	case key.Matches(msg, m.keymap.PrevField):
		m.moveField(-1)
		return m, m.focusField()
	case key.Matches(msg, m.keymap.NextField):
		if msg.Type == tea.KeyEnter && m.field >= len(p.visibleFields())-1 {
			return m.requestSave()
		}
		m.moveField(1)
		return m, m.focusField()
	}

	f, ok := m.currentField()
	if !ok {
		return m, nil
	}

	if f.kind == fieldChoice {
		switch {
		case key.Matches(msg, m.keymap.Left):
			m.cycleOption(f, -1)
		case key.Matches(msg, m.keymap.Right):
			m.cycleOption(f, 1)
		}
		m.clampField()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if err := f.set(m.input.Value()); err != nil {
		m.notice = err.Error()
	}
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Confirm):
		m.confirming = false
		p, _, ok := m.current()
		if !ok {
			return m, nil
		}
		return m.startSave(p)
	case key.Matches(msg, m.keymap.Decline):
		m.confirming = false
		m.notice = "Authentication method was not changed"
	}
	return m, nil
}

func (m Model) handleSaveDone(msg saveDoneMsg) (tea.Model, tea.Cmd) {
	m.saving = false
	p := m.panels[msg.step]

	if msg.err != nil {
		m.logger.Warn("Step save failed", "step", msg.step, "error", msg.err)
		if message, _ := p.form.Failure(); message == "" {
			m.notice = msg.err.Error()
		}
		return m, m.focusField()
	}

	m.logger.Info("Step saved", "step", msg.step)
	m.editing = false
	m.input.Blur()
	m.notice = "Saved"
	if p.afterSave != nil {
		m.secret = p.afterSave()
	}
	m.cursor = m.firstOpenStep()
	return m, nil
}

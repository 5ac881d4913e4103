package link

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tildaslashalef/oplink/internal/bulklink"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.progress.Width = max(msg.Width-10, 10)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.showHelp = !m.showHelp
		case key.Matches(msg, m.keymap.Retry):
			m, cmd = m.retry()
			cmds = append(cmds, cmd)
		}

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		p := bulklink.Progress(msg)
		m.last = p
		if p.Err != nil {
			m.failures = append(m.failures, p)
			if len(m.failures) > maxFailuresShown {
				m.failures = m.failures[len(m.failures)-maxFailuresShown:]
			}
		}
		cmds = append(cmds, m.progress.SetPercent(float64(p.Percent)/100), waitForProgress(m.events))

	case eventsClosedMsg:
		m.events = nil

	case RunDoneMsg:
		m.running = false
		m.job = msg.Job
		m.err = msg.Err
		if msg.Err != nil {
			m.logger.Warn("Link pass ended with an error", "error", msg.Err)
		}
		if msg.Job != nil {
			m.logger.Info("Link pass finished", "job_id", msg.Job.ID, "status", msg.Job.Status, "linked", msg.Job.Linked, "failed", msg.Job.Failed)
			cmds = append(cmds, m.progress.SetPercent(float64(msg.Job.Percent())/100))
		}
	}

	return m, tea.Batch(cmds...)
}

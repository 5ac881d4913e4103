package link

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tildaslashalef/oplink/internal/bulklink"
)

// waitForProgress blocks for the next orchestrator event
func waitForProgress(events <-chan bulklink.Progress) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		p, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return ProgressMsg(p)
	}
}

func run(ctx context.Context, fn func(ctx context.Context) (*bulklink.Job, error)) tea.Cmd {
	if fn == nil {
		return nil
	}
	return func() tea.Msg {
		job, err := fn(ctx)
		return RunDoneMsg{Job: job, Err: err}
	}
}

// retry re-runs the failed files of the current job
func (m Model) retry() (Model, tea.Cmd) {
	if m.running || m.runner.Running() {
		m.notice = bulklink.ErrRetryInFlight.Error()
		return m, nil
	}
	if m.job == nil || m.job.Failed == 0 {
		m.notice = bulklink.ErrNothingToRetry.Error()
		return m, nil
	}

	m.running = true
	m.err = nil
	m.notice = ""
	m.failures = nil
	return m, run(m.ctx, m.runner.RetryRemaining)
}

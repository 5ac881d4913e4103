package link

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tildaslashalef/oplink/internal/bulklink"
	"github.com/tildaslashalef/oplink/internal/loggy"
)

type fakeRunner struct {
	running bool
	retries int
	job     *bulklink.Job
}

func (r *fakeRunner) RetryRemaining(context.Context) (*bulklink.Job, error) {
	r.retries++
	return r.job, nil
}

func (r *fakeRunner) Running() bool { return r.running }

func newTestModel(runner *fakeRunner, events chan bulklink.Progress) Model {
	start := func(context.Context) (*bulklink.Job, error) { return nil, nil }
	return NewModel(context.Background(), runner, start, events, "Linking 3 files", loggy.NewNoopLogger())
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func partialJob() *bulklink.Job {
	return &bulklink.Job{
		ID:            "job-1",
		TotalSelected: 3,
		Linked:        2,
		Failed:        1,
		FailedRefs:    []bulklink.FileRef{{ID: 3, Name: "c.pdf"}},
		Status:        bulklink.JobPartial,
	}
}

func TestModel_ProgressUpdatesCounters(t *testing.T) {
	events := make(chan bulklink.Progress, 1)
	m := newTestModel(&fakeRunner{}, events)

	m, cmd := update(t, m, ProgressMsg(bulklink.Progress{
		File: bulklink.FileRef{ID: 1, Name: "a.pdf"}, Percent: 33, Linked: 1, Remaining: 2, Total: 3,
	}))
	assert.NotNil(t, cmd, "keeps listening for progress")

	m, _ = update(t, m, ProgressMsg(bulklink.Progress{
		File: bulklink.FileRef{ID: 2, Name: "b.pdf"}, Err: errors.New("403 forbidden"), Percent: 33, Linked: 1, Failed: 1, Remaining: 1, Total: 3,
	}))

	view := m.View()
	assert.Contains(t, view, "Linked: 1  Failed: 1  Remaining: 1  Total: 3")
	assert.Contains(t, view, "b.pdf (#2)")
	assert.Contains(t, view, "403 forbidden")
}

func TestModel_RunDoneShowsStatus(t *testing.T) {
	m := newTestModel(&fakeRunner{}, nil)

	m, _ = update(t, m, RunDoneMsg{Job: partialJob()})

	assert.False(t, m.running)
	assert.Equal(t, "job-1", m.Job().ID)
	assert.Contains(t, m.View(), "2 of 3 files linked, 1 failed")
}

func TestModel_RunDoneWithError(t *testing.T) {
	m := newTestModel(&fakeRunner{}, nil)

	job := partialJob()
	job.Linked, job.Failed, job.Status = 0, 3, bulklink.JobAborted
	m, _ = update(t, m, RunDoneMsg{Job: job, Err: bulklink.ErrUnreachable})

	assert.ErrorIs(t, m.Err(), bulklink.ErrUnreachable)
	assert.Contains(t, m.View(), "Linking stopped")
}

func TestModel_Retry(t *testing.T) {
	retried := partialJob()
	retried.Linked, retried.Failed, retried.Status = 3, 0, bulklink.JobCompleted
	runner := &fakeRunner{job: retried}
	m := newTestModel(runner, nil)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Nil(t, cmd, "no retry while the first pass runs")
	assert.Equal(t, bulklink.ErrRetryInFlight.Error(), m.notice)

	m, _ = update(t, m, RunDoneMsg{Job: partialJob()})
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	assert.True(t, m.running)

	done, ok := cmd().(RunDoneMsg)
	require.True(t, ok)
	assert.Equal(t, 1, runner.retries)

	m, _ = update(t, m, done)
	assert.Contains(t, m.View(), "All 3 files linked")

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Nil(t, cmd, "nothing left to retry")
}

func TestModel_EventsClosed(t *testing.T) {
	events := make(chan bulklink.Progress)
	close(events)
	m := newTestModel(&fakeRunner{}, events)

	msg := waitForProgress(m.events)()
	assert.IsType(t, eventsClosedMsg{}, msg)

	m, _ = update(t, m, msg)
	assert.Nil(t, m.events)
}

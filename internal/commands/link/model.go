// Package link is the progress interface of a bulk link job.
package link

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tildaslashalef/oplink/internal/bulklink"
	"github.com/tildaslashalef/oplink/internal/loggy"
	"github.com/tildaslashalef/oplink/internal/tui"
)

// maxFailuresShown bounds the failure list in the view
const maxFailuresShown = 5

// Runner is the part of the orchestrator the interface drives
type Runner interface {
	RetryRemaining(ctx context.Context) (*bulklink.Job, error)
	Running() bool
}

// Model is the Bubble Tea model for a bulk link job
type Model struct {
	ctx      context.Context
	runner   Runner
	start    func(ctx context.Context) (*bulklink.Job, error)
	events   <-chan bulklink.Progress
	title    string
	logger   *loggy.Logger
	keymap   KeyMap
	help     help.Model
	spinner  spinner.Model
	progress progress.Model
	styles   tui.Styles

	// UI state
	running  bool
	showHelp bool
	last     bulklink.Progress
	job      *bulklink.Job
	failures []bulklink.Progress
	err      error
	notice   string
	width    int
}

// NewModel creates the link interface. start runs the first pass; events
// receives the orchestrator progress and is closed by the caller when done.
func NewModel(ctx context.Context, runner Runner, start func(ctx context.Context) (*bulklink.Job, error), events <-chan bulklink.Progress, title string, logger *loggy.Logger) Model {
	styles := tui.DefaultStyles()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	return Model{
		ctx:      ctx,
		runner:   runner,
		start:    start,
		events:   events,
		title:    title,
		logger:   logger.With("component", "link_tui"),
		keymap:   DefaultKeyMap(),
		help:     help.New(),
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient()),
		styles:   styles,
		running:  true,
	}
}

// Init starts the first pass and begins listening for progress
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForProgress(m.events), run(m.ctx, m.start))
}

// Job returns the last job snapshot, nil before the first pass returned
func (m Model) Job() *bulklink.Job {
	return m.job
}

// Err returns the error of the last pass
func (m Model) Err() error {
	return m.err
}

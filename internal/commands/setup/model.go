// Package setup is the interactive admin setup wizard of the integration.
package setup

import (
	"context"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/tildaslashalef/oplink/internal/form"
	"github.com/tildaslashalef/oplink/internal/loggy"
	"github.com/tildaslashalef/oplink/internal/nextcloud"
	"github.com/tildaslashalef/oplink/internal/tui"
	"github.com/tildaslashalef/oplink/internal/wizard"
)

// Model is the Bubble Tea model for the setup wizard
type Model struct {
	ctx      context.Context
	wizard   *wizard.Controller
	panels   map[wizard.StepID]*panel
	logger   *loggy.Logger
	keymap   KeyMap
	help     help.Model
	spinner  spinner.Model
	input    textinput.Model
	styles   tui.Styles
	renderer *glamour.TermRenderer

	writeClipboard func(string) error

	// UI state
	cursor     int
	field      int
	editing    bool
	confirming bool
	saving     bool
	showHelp   bool
	notice     string
	secret     string
	width      int
	height     int
}

// NewModel builds the wizard over the saved admin configuration
func NewModel(ctx context.Context, gw form.Gateway, wc *wizard.Controller, cfg *nextcloud.AdminConfig, logger *loggy.Logger) Model {
	styles := tui.DefaultStyles()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	in := textinput.New()
	in.Prompt = ""
	in.CharLimit = 512

	m := Model{
		ctx:     ctx,
		wizard:  wc,
		panels:  buildPanels(gw, wc, cfg, logger),
		logger:  logger.With("component", "setup"),
		keymap:  DefaultKeyMap(),
		help:    help.New(),
		spinner: s,
		input:   in,
		styles:  styles,

		writeClipboard: clipboard.WriteAll,
	}
	m.cursor = m.firstOpenStep()
	return m
}

// Init initializes the model and returns the initial command
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Done reports whether every applicable step is complete
func (m Model) Done() bool {
	return m.wizard.Done()
}

// steps returns the steps shown for the saved authorization method
func (m Model) steps() []wizard.Step {
	var out []wizard.Step
	for _, s := range m.wizard.Steps() {
		if _, ok := m.panels[s.ID]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (m Model) current() (*panel, wizard.Step, bool) {
	steps := m.steps()
	if m.cursor < 0 || m.cursor >= len(steps) {
		return nil, wizard.Step{}, false
	}
	s := steps[m.cursor]
	return m.panels[s.ID], s, true
}

// firstOpenStep is the first enabled step that is not complete yet
func (m Model) firstOpenStep() int {
	for i, s := range m.steps() {
		g, err := m.wizard.StepGatingState(s.ID)
		if err == nil && g.Enabled && !g.Complete {
			return i
		}
	}
	return 0
}

func (m Model) currentField() (field, bool) {
	p, _, ok := m.current()
	if !ok {
		return field{}, false
	}
	fields := p.visibleFields()
	if m.field < 0 || m.field >= len(fields) {
		return field{}, false
	}
	return fields[m.field], true
}

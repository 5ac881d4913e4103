package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// Run runs model until it quits or ctx is cancelled and returns the final model
func Run(ctx context.Context, model tea.Model, altScreen bool) (tea.Model, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if altScreen {
		opts = append(opts, tea.WithAltScreen())
	}

	final, err := tea.NewProgram(model, opts...).Run()
	if err != nil {
		return final, fmt.Errorf("running interface: %w", err)
	}
	return final, nil
}

// NewMarkdownRenderer returns a glamour renderer wrapping at width, or nil when
// no renderer could be built
func NewMarkdownRenderer(width int) *glamour.TermRenderer {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// RenderMarkdown renders md with r, falling back to the raw text
func RenderMarkdown(r *glamour.TermRenderer, md string) string {
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

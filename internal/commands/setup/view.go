package setup

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"github.com/tildaslashalef/oplink/internal/form"
	"github.com/tildaslashalef/oplink/internal/tui"
	"github.com/tildaslashalef/oplink/internal/wizard"
)

// View renders the setup wizard.
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("OpenProject integration setup"))
	sb.WriteString("\n\n")

	for i, s := range m.steps() {
		sb.WriteString(m.renderStep(i, s))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if p, s, ok := m.current(); ok {
		sb.WriteString(m.styles.Panel.Render(m.renderPanel(p, s)))
		sb.WriteString("\n")
	}

	switch {
	case m.confirming:
		sb.WriteString(m.styles.Dialog.Render(m.wrap(form.MsgAuthMethodConfirm) + "\n\n" + m.styles.Subtle.Render("y: continue  n: keep the current method")))
		sb.WriteString("\n")
	case m.saving:
		sb.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), m.styles.StatusText.Render("Saving...")))
	}

	if m.notice != "" {
		sb.WriteString(m.styles.Info.Render(m.notice))
		sb.WriteString("\n")
	}
	if m.secret != "" {
		sb.WriteString(m.styles.Warning.Render(m.wrap("App password for the OpenProject user, shown only once: " + m.secret)))
		sb.WriteString("\n")
		sb.WriteString(m.styles.Subtle.Render("Press c to copy it."))
		sb.WriteString("\n")
	}

	if m.Done() && !m.editing {
		sb.WriteString(tui.RenderMarkdown(m.renderer, m.summaryMarkdown()))
	}

	sb.WriteString("\n")
	if m.showHelp {
		sb.WriteString(m.help.View(m.keymap))
	} else {
		sb.WriteString(m.styles.Subtle.Render("Press enter to edit a step, ? for help, q to quit."))
	}
	return sb.String()
}

func (m Model) renderStep(i int, s wizard.Step) string {
	g, err := m.wizard.StepGatingState(s.ID)
	if err != nil {
		return m.styles.Error.Render(err.Error())
	}

	marker := "○"
	switch {
	case g.Complete:
		marker = m.styles.Success.Render("✓")
	case !g.Enabled:
		marker = m.styles.Disabled.Render("·")
	}

	cursor := "  "
	if i == m.cursor {
		cursor = "> "
	}

	label := fmt.Sprintf("%d. %s", i+1, s.Title)
	switch {
	case i == m.cursor:
		label = m.styles.Selected.Render(label)
	case !g.Enabled:
		label = m.styles.Disabled.Render(label)
	}

	line := cursor + marker + " " + label
	if g.ShowDependencyError {
		for _, d := range g.Unhealthy() {
			if msg := form.DependencyMessage(d.App, d.State); msg != "" {
				line += "  " + m.styles.Error.Render(msg)
			}
		}
	}
	return line
}

func (m Model) renderPanel(p *panel, s wizard.Step) string {
	var sb strings.Builder
	sb.WriteString(m.styles.Label.Render(s.Title))
	sb.WriteString(m.styles.Subtle.Render(" (" + p.form.Mode().String() + ")"))
	sb.WriteString("\n\n")

	if !m.editing {
		for _, line := range p.summary() {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	} else {
		for i, f := range p.visibleFields() {
			sb.WriteString(m.renderField(f, i == m.field))
			sb.WriteString("\n")
		}
	}

	if message, details := p.form.Failure(); message != "" {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Error.Render(m.wrap(message)))
		if details != "" {
			sb.WriteString("\n")
			sb.WriteString(m.styles.Subtle.Render(m.wrap(details)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderField(f field, focused bool) string {
	label := f.label + ": "
	if focused {
		label = m.styles.Selected.Render("› " + label)
	} else {
		label = "  " + m.styles.Label.Render(label)
	}

	switch f.kind {
	case fieldChoice:
		var opts []string
		for _, o := range f.options {
			box := "[ ]"
			if o.value == f.get() {
				box = "[x]"
			}
			item := box + " " + o.label
			if !o.available() {
				item = m.styles.Disabled.Render(item)
			}
			opts = append(opts, item)
		}
		return label + strings.Join(opts, "  ")
	case fieldSecret:
		if focused {
			return label + m.input.View()
		}
		if f.get() == "" {
			return label
		}
		return label + strings.Repeat("•", 8)
	default:
		if focused {
			return label + m.input.View()
		}
		return label + f.get()
	}
}

func (m Model) summaryMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# Setup complete\n\n")
	for _, s := range m.steps() {
		p := m.panels[s.ID]
		sb.WriteString("## " + s.Title + "\n\n")
		for _, line := range p.summary() {
			sb.WriteString("- " + line + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) wrap(s string) string {
	width := m.width - 6
	if width <= 0 {
		width = 80
	}
	return wordwrap.String(s, width)
}

package link

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"github.com/tildaslashalef/oplink/internal/bulklink"
	"github.com/tildaslashalef/oplink/internal/utils"
)

// View renders the link progress.
func (m Model) View() string {
	var sb strings.Builder

	title := m.title
	if m.running {
		title = fmt.Sprintf("%s %s", m.spinner.View(), title)
	}
	sb.WriteString(m.styles.Title.Render(title))
	sb.WriteString("\n\n")

	linked, failed, remaining, total := m.counts()
	sb.WriteString(m.progress.View())
	sb.WriteString("\n")
	sb.WriteString(m.styles.StatusText.Render(fmt.Sprintf("Linked: %d  Failed: %d  Remaining: %d  Total: %d", linked, failed, remaining, total)))
	sb.WriteString("\n")

	if len(m.failures) > 0 {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Label.Render("Recent failures"))
		sb.WriteString("\n")
		for _, f := range m.failures {
			line := fmt.Sprintf("  %s: %s", fileLabel(f.File), utils.TruncateString(f.Err.Error(), 80))
			sb.WriteString(m.styles.Error.Render(line))
			sb.WriteString("\n")
		}
	}

	if !m.running {
		sb.WriteString("\n")
		sb.WriteString(m.statusLine())
		sb.WriteString("\n")
	}

	if m.notice != "" {
		sb.WriteString(m.styles.Info.Render(m.notice))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if m.showHelp {
		sb.WriteString(m.help.View(m.keymap))
	} else {
		sb.WriteString(m.styles.Subtle.Render("Press r to retry failed files, ? for help, q to quit."))
	}
	return sb.String()
}

// counts prefers the finished job over the last progress event
func (m Model) counts() (linked, failed, remaining, total int) {
	if m.job != nil && !m.running {
		return m.job.Linked, m.job.Failed, len(m.job.Remaining), m.job.TotalSelected
	}
	return m.last.Linked, m.last.Failed, m.last.Remaining, m.last.Total
}

func (m Model) statusLine() string {
	if m.err != nil {
		width := m.width - 4
		if width <= 0 {
			width = 80
		}
		return m.styles.Error.Render(wordwrap.String("Linking stopped: "+m.err.Error(), width))
	}
	if m.job == nil {
		return ""
	}

	switch m.job.Status {
	case bulklink.JobCompleted:
		return m.styles.Success.Render(fmt.Sprintf("All %d files linked", m.job.Linked))
	case bulklink.JobPartial:
		return m.styles.Warning.Render(fmt.Sprintf("%d of %d files linked, %d failed", m.job.Linked, m.job.TotalSelected, m.job.Failed))
	default:
		return m.styles.Warning.Render(fmt.Sprintf("Job %s", m.job.Status))
	}
}

func fileLabel(f bulklink.FileRef) string {
	if f.Name != "" {
		return fmt.Sprintf("%s (#%d)", f.Name, f.ID)
	}
	return fmt.Sprintf("#%d", f.ID)
}

// Package tui holds the look and the program runner shared by the interactive commands
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme represents the color theme for the TUI
type Theme struct {
	Primary     lipgloss.AdaptiveColor
	Secondary   lipgloss.AdaptiveColor
	Accent      lipgloss.AdaptiveColor
	Success     lipgloss.AdaptiveColor
	Warning     lipgloss.AdaptiveColor
	Error       lipgloss.AdaptiveColor
	Info        lipgloss.AdaptiveColor
	Subtle      lipgloss.AdaptiveColor
	HighlightLo lipgloss.AdaptiveColor
	Border      lipgloss.AdaptiveColor
	Text        lipgloss.AdaptiveColor
	TextDim     lipgloss.AdaptiveColor
}

// GruvboxTheme creates a new Gruvbox-inspired theme
func GruvboxTheme() Theme {
	return Theme{
		Primary:     lipgloss.AdaptiveColor{Light: "#b8bb26", Dark: "#b8bb26"},
		Secondary:   lipgloss.AdaptiveColor{Light: "#fe8019", Dark: "#fe8019"},
		Accent:      lipgloss.AdaptiveColor{Light: "#d3869b", Dark: "#d3869b"},
		Success:     lipgloss.AdaptiveColor{Light: "#98971a", Dark: "#b8bb26"},
		Warning:     lipgloss.AdaptiveColor{Light: "#d79921", Dark: "#fabd2f"},
		Error:       lipgloss.AdaptiveColor{Light: "#cc241d", Dark: "#fb4934"},
		Info:        lipgloss.AdaptiveColor{Light: "#458588", Dark: "#83a598"},
		Subtle:      lipgloss.AdaptiveColor{Light: "#928374", Dark: "#7c6f64"},
		HighlightLo: lipgloss.AdaptiveColor{Light: "#d5c4a1", Dark: "#3c3836"},
		Border:      lipgloss.AdaptiveColor{Light: "#d5c4a1", Dark: "#504945"},
		Text:        lipgloss.AdaptiveColor{Light: "#3c3836", Dark: "#fbf1c7"},
		TextDim:     lipgloss.AdaptiveColor{Light: "#7c6f64", Dark: "#a89984"},
	}
}

// DefaultTheme is the default theme for the TUI
var DefaultTheme = GruvboxTheme()

// Styles contains predefined styles for the TUI
type Styles struct {
	Title      lipgloss.Style
	Subtle     lipgloss.Style
	Error      lipgloss.Style
	Success    lipgloss.Style
	Warning    lipgloss.Style
	Info       lipgloss.Style
	Spinner    lipgloss.Style
	StatusText lipgloss.Style
	Selected   lipgloss.Style
	Disabled   lipgloss.Style
	Label      lipgloss.Style
	Panel      lipgloss.Style
	Dialog     lipgloss.Style
}

// DefaultStyles returns the styles built from DefaultTheme
func DefaultStyles() Styles {
	t := DefaultTheme
	return Styles{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(t.Primary).MarginBottom(1),
		Subtle:     lipgloss.NewStyle().Foreground(t.Subtle),
		Error:      lipgloss.NewStyle().Foreground(t.Error).Bold(true),
		Success:    lipgloss.NewStyle().Foreground(t.Success),
		Warning:    lipgloss.NewStyle().Foreground(t.Warning),
		Info:       lipgloss.NewStyle().Foreground(t.Info),
		Spinner:    lipgloss.NewStyle().Foreground(t.Secondary),
		StatusText: lipgloss.NewStyle().Foreground(t.TextDim),
		Selected:   lipgloss.NewStyle().Foreground(t.Secondary).Bold(true),
		Disabled:   lipgloss.NewStyle().Foreground(t.Subtle).Faint(true),
		Label:      lipgloss.NewStyle().Foreground(t.Info).Width(22),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
		Dialog: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(t.Warning).
			Padding(1, 2),
	}
}

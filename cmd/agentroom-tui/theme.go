package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"agentroom/internal/config"
	"agentroom/internal/persona"
)

type uiTheme struct {
	root         lipgloss.Style
	header       lipgloss.Style
	tabActive    lipgloss.Style
	tabInactive  lipgloss.Style
	panel        lipgloss.Style
	panelTitle   lipgloss.Style
	footer       lipgloss.Style
	status       lipgloss.Style
	errorStatus  lipgloss.Style
	inputPanel   lipgloss.Style
	helpText     lipgloss.Style
	settingKey   lipgloss.Style
	settingValue lipgloss.Style
	settingPick  lipgloss.Style
	modalFrame   lipgloss.Style
	accent       lipgloss.Style
	userName     lipgloss.Style
	systemName   lipgloss.Style
	unknownAgent lipgloss.Style
	background   lipgloss.Color
}

func newTheme(prefs config.Prefs) uiTheme {
	pink := lipgloss.Color("#ff71ce")
	blue := lipgloss.Color("#01cdfe")
	mint := lipgloss.Color(nullCoalesce(prefs.AccentColor, "#05ffa1"))
	bg := lipgloss.Color(nullCoalesce(prefs.BackgroundColor, "#120924"))
	panelBg := lipgloss.Color("#1b0f35")
	text := lipgloss.Color("#f3f3ff")
	muted := lipgloss.Color("#9ca3d8")

	return uiTheme{
		root: lipgloss.NewStyle().
			Background(bg).
			Foreground(text).
			Padding(0, 1),
		header: lipgloss.NewStyle().
			Background(panelBg).
			Foreground(text).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1),
		tabActive: lipgloss.NewStyle().
			Background(pink).
			Foreground(lipgloss.Color("#22062f")).
			Bold(true).
			Padding(0, 1),
		tabInactive: lipgloss.NewStyle().
			Background(lipgloss.Color("#2a184a")).
			Foreground(muted).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().
			Foreground(mint).
			Bold(true),
		footer: lipgloss.NewStyle().
			Background(panelBg).
			Foreground(muted).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(pink).
			Padding(0, 1),
		status:      lipgloss.NewStyle().Foreground(blue).Bold(true),
		errorStatus: lipgloss.NewStyle().Foreground(pink).Bold(true),
		inputPanel: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(mint).
			Padding(0, 1),
		helpText:     lipgloss.NewStyle().Foreground(muted),
		settingKey:   lipgloss.NewStyle().Foreground(blue),
		settingValue: lipgloss.NewStyle().Foreground(text),
		settingPick:  lipgloss.NewStyle().Foreground(pink).Bold(true),
		modalFrame: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(blue).
			Padding(1, 2),
		accent:       lipgloss.NewStyle().Foreground(mint).Bold(true),
		userName:     lipgloss.NewStyle().Foreground(mint).Bold(true),
		systemName:   lipgloss.NewStyle().Foreground(muted).Bold(true),
		unknownAgent: lipgloss.NewStyle().Foreground(text).Bold(true),
		background:   bg,
	}
}

// personaStyle colors a speaker label with the persona's hex color. Colors
// that lipgloss cannot use fall back to the neutral label.
func (t uiTheme) personaStyle(color string) lipgloss.Style {
	color = strings.TrimSpace(color)
	if !validHexColor(color) {
		return t.unknownAgent
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
}

func validHexColor(color string) bool {
	if len(color) != 7 && len(color) != 4 {
		return false
	}
	if color[0] != '#' {
		return false
	}
	for _, r := range color[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func swatch(p persona.Persona) string {
	if !validHexColor(p.Color) {
		return "  "
	}
	return lipgloss.NewStyle().Background(lipgloss.Color(p.Color)).Render("  ")
}

package tui

import "github.com/charmbracelet/lipgloss"

type theme struct {
	header     lipgloss.Style
	title      lipgloss.Style
	timer      lipgloss.Style
	timerLow   lipgloss.Style
	panel      lipgloss.Style
	panelTitle lipgloss.Style
	footer     lipgloss.Style
	help       lipgloss.Style
	status     lipgloss.Style
	errorText  lipgloss.Style
	user       lipgloss.Style
	persona    lipgloss.Style
	selected   lipgloss.Style
	muted      lipgloss.Style
	done       lipgloss.Style
	button     lipgloss.Style
	buttonOn   lipgloss.Style
	buttonOff  lipgloss.Style
	win        lipgloss.Style
	lose       lipgloss.Style

	scrollThumb lipgloss.Style
	scrollTrack lipgloss.Style

	logLevel map[string]lipgloss.Style
}

func newTheme() theme {
	gold := lipgloss.Color("#e5c07b")
	oak := lipgloss.Color("#8b5a2b")
	ink := lipgloss.Color("#f2efe6")
	red := lipgloss.Color("#e06c75")
	green := lipgloss.Color("#98c379")
	blue := lipgloss.Color("#61afef")
	muted := lipgloss.Color("#8a8f98")

	return theme{
		header: lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(oak),
		title:    lipgloss.NewStyle().Foreground(gold).Bold(true),
		timer:    lipgloss.NewStyle().Foreground(ink).Bold(true),
		timerLow: lipgloss.NewStyle().Foreground(red).Bold(true).Blink(true),
		panel: lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(oak),
		panelTitle: lipgloss.NewStyle().Foreground(gold).Bold(true),
		footer:     lipgloss.NewStyle().Padding(0, 1),
		help:       lipgloss.NewStyle().Foreground(muted),
		status:     lipgloss.NewStyle().Foreground(blue),
		errorText:  lipgloss.NewStyle().Foreground(red),
		user:       lipgloss.NewStyle().Foreground(green).Bold(true),
		persona:    lipgloss.NewStyle().Foreground(gold).Bold(true),
		selected:   lipgloss.NewStyle().Foreground(lipgloss.Color("#1e1e1e")).Background(gold).Bold(true),
		muted:      lipgloss.NewStyle().Foreground(muted),
		done:       lipgloss.NewStyle().Foreground(green),
		button:     lipgloss.NewStyle().Padding(0, 2).BorderStyle(lipgloss.NormalBorder()).BorderForeground(muted),
		buttonOn:   lipgloss.NewStyle().Padding(0, 2).BorderStyle(lipgloss.ThickBorder()).BorderForeground(gold).Foreground(gold).Bold(true),
		buttonOff:  lipgloss.NewStyle().Padding(0, 2).BorderStyle(lipgloss.NormalBorder()).BorderForeground(muted).Foreground(muted).Faint(true),
		win:        lipgloss.NewStyle().Foreground(green).Bold(true),
		lose:       lipgloss.NewStyle().Foreground(red).Bold(true),

		scrollThumb: lipgloss.NewStyle().Foreground(gold),
		scrollTrack: lipgloss.NewStyle().Foreground(oak),

		logLevel: map[string]lipgloss.Style{
			"DEBUG": lipgloss.NewStyle().Foreground(muted),
			"INFO":  lipgloss.NewStyle().Foreground(blue),
			"WARN":  lipgloss.NewStyle().Foreground(gold),
			"ERROR": lipgloss.NewStyle().Foreground(red),
		},
	}
}

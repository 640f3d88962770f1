package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rivo/uniseg"

	"github.com/joeycumines/courtroom/internal/countdown"
	"github.com/joeycumines/courtroom/internal/game"
	"github.com/joeycumines/courtroom/internal/termui/scrollbar"
	"github.com/joeycumines/courtroom/internal/transcript"
)

const (
	minWidth       = 40
	chromeHeight   = 12
	clueListHeight = 3
)

func (m Model) View() string {
	sections := []string{m.renderHeader(), m.renderBody(), m.renderFooter()}
	if m.showLog {
		sections = append(sections, m.renderLog())
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) contentWidth() int {
	return max(m.width-4, minWidth)
}

// historyWidth leaves room for the scrollbar.
func (m *Model) historyWidth() int {
	return m.contentWidth() - 2
}

func (m *Model) resize() {
	w := m.contentWidth()
	h := m.height - chromeHeight - clueListHeight
	if m.showLog {
		h -= logPanelLines + 2
	}
	m.history.Width = m.historyWidth()
	m.history.Height = max(h, 3)
	m.input.Width = max(w-4, 10)
	m.rationale.Width = max(w-12, 10)
}

func (m *Model) renderHistory() {
	if m.conv == nil {
		m.history.SetContent("")
		return
	}
	wrap := lipgloss.NewStyle().Width(m.historyWidth())
	var b strings.Builder
	for i, line := range m.conv.lines {
		if i > 0 {
			b.WriteString("\n")
		}
		var label string
		switch line.Speaker {
		case speakerError:
			b.WriteString(wrap.Render(m.theme.errorText.Render(line.Text)))
			continue
		case transcript.User:
			label = m.theme.user.Render(labelFor(m.conv.labels.User, "You"))
		default:
			label = m.theme.persona.Render(labelFor(m.conv.labels.Assistant, m.conv.persona.Name))
		}
		b.WriteString(wrap.Render(label + ": " + line.Text))
	}
	m.history.SetContent(b.String())
	m.history.GotoBottom()
}

func labelFor(label, fallback string) string {
	switch label {
	case "", string(transcript.User), string(transcript.Assistant):
		return fallback
	}
	return label
}

func (m Model) renderHeader() string {
	title := m.theme.title.Render(m.cfg.Scenario.Title)

	var clock string
	switch {
	case m.screen == screenVerdict && m.deadline >= 0:
		clock = m.clock("Verdict", m.deadline)
	case m.round >= 0 && m.state == game.Started:
		clock = m.clock("Round", m.round)
	}

	gate := m.theme.muted.Render("Question every witness to unlock your guess")
	if m.gateOpen {
		gate = m.theme.done.Render("Ready to guess (g)")
	}
	if m.state != game.Started {
		gate = m.theme.muted.Render(m.state.String())
	}

	return m.theme.header.Width(m.contentWidth()).Render(
		lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", clock, "  ", gate))
}

func (m Model) clock(name string, remaining int) string {
	style := m.theme.timer
	if remaining <= 10 {
		style = m.theme.timerLow
	}
	return style.Render(fmt.Sprintf("%s %s", name, countdown.Format(remaining)))
}

func (m Model) renderBody() string {
	var title, body string
	switch m.screen {
	case screenFlashback:
		title, body = m.renderFlashback()
	case screenConversation:
		title, body = m.renderConversation()
	case screenVerdict:
		title, body = m.renderVerdict()
	default:
		title, body = m.renderRoom()
	}
	return m.theme.panel.Width(m.contentWidth()).Render(
		m.theme.panelTitle.Render(title) + "\n\n" + body)
}

func (m Model) renderRoom() (string, string) {
	var b strings.Builder
	if brief := strings.TrimSpace(m.cfg.Scenario.Briefing); brief != "" {
		b.WriteString(lipgloss.NewStyle().Width(m.contentWidth() - 2).Render(brief))
		b.WriteString("\n\n")
	}
	nameWidth := 0
	for _, p := range m.cfg.Scenario.Personas {
		nameWidth = max(nameWidth, uniseg.StringWidth(p.Name))
	}
	for i, p := range m.cfg.Scenario.Personas {
		name := p.Name + strings.Repeat(" ", nameWidth-uniseg.StringWidth(p.Name))
		row := fmt.Sprintf(" %d  %s ", i+1, name)
		if i == m.selected {
			row = m.theme.selected.Render(row)
		}
		mark := m.theme.muted.Render("not yet questioned")
		if m.questioned[p.ID] {
			mark = m.theme.done.Render("questioned")
		}
		if m.busy[p.ID] {
			mark += " " + m.spinner.View()
		}
		b.WriteString(row + "  " + mark + "\n")
	}
	if m.statusLine != "" {
		b.WriteString("\n" + m.theme.status.Render(m.statusLine))
	}
	return "The Room", strings.TrimRight(b.String(), "\n")
}

func (m Model) renderFlashback() (string, string) {
	if m.flashback == nil {
		return "Flashback", ""
	}
	text := m.flashback.Flashback
	if text == "" {
		text = fmt.Sprintf("You recall your first encounter with %s.", m.flashback.Name)
	}
	body := lipgloss.NewStyle().Width(m.contentWidth()-2).Italic(true).Render(text)
	return "Flashback: " + m.flashback.Name, body
}

func (m Model) renderConversation() (string, string) {
	c := m.conv
	if c == nil {
		return "", ""
	}
	var b strings.Builder
	if scrollbar.Scrollable(m.history) {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.history.View(), " ", m.scroll.ForViewport(m.history)))
	} else {
		b.WriteString(m.history.View())
	}
	b.WriteString("\n\n")
	if len(c.persona.Clues) > 0 {
		names := make([]string, len(c.persona.Clues))
		for i, clue := range c.persona.Clues {
			names[i] = clue.Title
			if i == c.clue {
				names[i] = m.theme.selected.Render(clue.Title)
			}
		}
		b.WriteString(lipgloss.NewStyle().Width(m.contentWidth() - 2).Render(
			m.theme.muted.Render("Clues: ") + strings.Join(names, m.theme.muted.Render(" | "))))
		b.WriteString("\n")
		if c.clue >= 0 {
			body := c.persona.Clues[c.clue].Body
			b.WriteString(m.theme.muted.Render(firstLine(body)))
			b.WriteString("\n")
		}
	}
	if m.busy[c.persona.ID] {
		b.WriteString(m.spinner.View() + m.theme.muted.Render(" thinking...") + "\n")
	}
	b.WriteString(m.input.View())
	return c.persona.Name, b.String()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func (m Model) renderVerdict() (string, string) {
	c := m.controls
	var b strings.Builder
	if m.autoLoss {
		b.WriteString(m.theme.errorText.Render("Time ran out before you questioned everyone."))
		b.WriteString("\n\n")
	}

	buttons := []string{
		m.button(string(game.Guilty), c.Selected == game.Guilty, c.GuiltyEnabled || c.Selected == game.Guilty),
		m.button(string(game.NotGuilty), c.Selected == game.NotGuilty, c.NotGuiltyEnabled || c.Selected == game.NotGuilty),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, buttons[0], "  ", buttons[1]))
	b.WriteString("\n\n")
	b.WriteString(m.rationale.View())
	if !c.Submitted && c.Rationale == "" && m.rationale.Value() == "" && m.onButtons {
		b.WriteString("\n" + m.theme.muted.Render("Tab to write your reasoning."))
	}

	if c.Submitted {
		b.WriteString("\n\n")
		result := m.theme.lose.Render(c.Outcome.String())
		if c.Outcome == game.Win {
			result = m.theme.win.Render(c.Outcome.String())
		}
		b.WriteString(result + "\n\n")
		feedback := c.Feedback
		if m.ended {
			feedback = m.feedback
		}
		if feedback == game.FeedbackPending {
			feedback = m.spinner.View() + " The judge is considering your case..."
		}
		b.WriteString(lipgloss.NewStyle().Width(m.contentWidth() - 2).Render(feedback))
	}
	return "Verdict", b.String()
}

func (m Model) button(label string, selected, enabled bool) string {
	switch {
	case selected:
		return m.theme.buttonOn.Render(label)
	case !enabled:
		return m.theme.buttonOff.Render(label)
	default:
		return m.theme.button.Render(label)
	}
}

func (m Model) renderFooter() string {
	var keys string
	switch m.screen {
	case screenFlashback:
		keys = "enter: talk  esc: back"
	case screenConversation:
		keys = "enter: send  tab: next clue  shift+tab: clear clue  pgup/pgdown: scroll  esc: leave"
	case screenVerdict:
		if m.controls.Submitted {
			keys = "r: play again  q: quit"
		} else {
			keys = "left/right: choose  tab: reasoning  enter: submit"
		}
	default:
		keys = "up/down or 1-3: choose  enter: approach  g: guess  q: quit"
	}
	return m.theme.footer.Render(m.theme.help.Render(keys + "  ctrl+l: log  ctrl+r: restart"))
}

func (m Model) renderLog() string {
	if m.cfg.Logs == nil {
		return m.theme.panel.Width(m.contentWidth()).Render(m.theme.muted.Render("no log buffer"))
	}
	entries := m.cfg.Logs.Recent(logPanelLines)
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		level := e.Level.String()
		style, ok := m.theme.logLevel[level]
		if !ok {
			style = m.theme.muted
		}
		line := fmt.Sprintf("%s %s %s", e.Time.Format("15:04:05"), style.Render(fmt.Sprintf("%-5s", level)), e.Message)
		if len(e.Attrs) > 0 {
			line += " " + m.theme.muted.Render(formatAttrs(e.Attrs))
		}
		lines = append(lines, lipgloss.NewStyle().MaxWidth(m.contentWidth()-2).Render(line))
	}
	return m.theme.panel.Width(m.contentWidth()).Render(strings.Join(lines, "\n"))
}

func formatAttrs(attrs map[string]string) string {
	keys := slices.Sorted(maps.Keys(attrs))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + attrs[k]
	}
	return strings.Join(parts, " ")
}

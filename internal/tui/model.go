// Package tui is the terminal front-end of the game. The model holds only
// what the screen shows; it learns about the game through messages sent by
// a Bridge and acts on it through a Dispatch function that runs on the event
// loop.
package tui

import (
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joeycumines/courtroom/internal/countdown"
	"github.com/joeycumines/courtroom/internal/game"
	"github.com/joeycumines/courtroom/internal/logging"
	"github.com/joeycumines/courtroom/internal/termui/scrollbar"
	"github.com/joeycumines/courtroom/internal/transcript"
)

// Dispatch runs fn against the game on the event loop goroutine. It reports
// false if the loop has stopped.
type Dispatch func(fn func(g *game.Game)) bool

// Config configures a Model.
type Config struct {
	Scenario *game.Scenario
	Dispatch Dispatch
	// RoundSeconds and VerdictSeconds seed the clocks until the first tick.
	RoundSeconds   int
	VerdictSeconds int
	// Logs, if set, backs the log panel.
	Logs    *logging.RingHandler
	ShowLog bool
	Logger  *slog.Logger
}

type screen int

const (
	screenRoom screen = iota
	screenFlashback
	screenConversation
	screenVerdict
)

// speakerError marks an in-conversation error notice. It is never persisted.
const speakerError transcript.Speaker = "error"

const (
	logPanelLines = 6
	refreshEvery  = time.Second
)

type refreshMsg time.Time

type conversation struct {
	persona *game.Persona
	labels  transcript.Labels
	lines   []transcript.Line
	clue    int
}

// Model is the bubbletea model of the game.
type Model struct {
	cfg    Config
	theme  theme
	logger *slog.Logger

	width  int
	height int

	screen     screen
	state      game.State
	selected   int
	gateOpen   bool
	questioned map[game.PersonaID]bool
	busy       map[game.PersonaID]bool
	round      int
	deadline   int

	flashback *game.Persona
	conv      *conversation

	controls   game.Controls
	autoLoss   bool
	onButtons  bool
	ended      bool
	outcome    game.Outcome
	feedback   string
	showLog    bool
	statusLine string

	input     textinput.Model
	rationale textinput.Model
	history   viewport.Model
	scroll    scrollbar.Bar
	spinner   spinner.Model
}

// New returns the initial model.
func New(cfg Config) Model {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 2000
	input.Placeholder = "Ask a question. Tab cycles clues, Esc returns to the room."

	rationale := textinput.New()
	rationale.Prompt = "Because: "
	rationale.CharLimit = 2000
	rationale.Placeholder = "Explain your verdict."

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	th := newTheme()

	return Model{
		cfg:        cfg,
		theme:      th,
		logger:     cfg.Logger,
		questioned: make(map[game.PersonaID]bool),
		busy:       make(map[game.PersonaID]bool),
		round:      -1,
		deadline:   -1,
		showLog:    cfg.ShowLog,
		input:      input,
		rationale:  rationale,
		history:    viewport.New(0, 0),
		scroll:     scrollbar.New(th.scrollThumb, th.scrollTrack),
		spinner:    sp,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, refreshTick())
}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case stateMsg:
		m.state = msg.state
		if msg.state == game.Started {
			m.reset()
		}
	case flashbackMsg:
		m.screen = screenFlashback
		m.flashback = msg.persona
	case openMsg:
		m.screen = screenConversation
		m.flashback = nil
		m.conv = &conversation{persona: msg.persona, labels: msg.labels, lines: msg.lines, clue: -1}
		m.input.Reset()
		cmds = append(cmds, m.input.Focus())
		m.renderHistory()
	case tickMsg:
		if msg.kind == countdown.Verdict {
			m.deadline = msg.remaining
		} else {
			m.round = msg.remaining
		}
	case verdictMsg:
		m.screen = screenVerdict
		m.conv = nil
		m.flashback = nil
		m.autoLoss = msg.autoLoss
		if m.cfg.VerdictSeconds > 0 {
			m.deadline = m.cfg.VerdictSeconds
		}
		m.input.Blur()
		m.onButtons = true
	case gateMsg:
		m.gateOpen = msg.open
		if msg.questioned != nil {
			m.questioned = msg.questioned
		}
	case endedMsg:
		m.ended = true
		m.outcome = msg.outcome
		m.feedback = msg.feedback
	case lineMsg:
		m.appendLine(msg.id, msg.line)
	case convErrorMsg:
		m.appendLine(msg.id, transcript.Line{Speaker: speakerError, Text: msg.text})
	case busyMsg:
		m.busy[msg.id] = msg.busy
	case controlsMsg:
		m.controls = msg.controls
		if m.controls.Submitted {
			m.rationale.Blur()
		}
	case refreshMsg:
		cmds = append(cmds, refreshTick())
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderHistory()
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, tea.Batch(cmds...)
}

// reset clears per-session view state for a new session.
func (m *Model) reset() {
	m.screen = screenRoom
	m.flashback = nil
	m.conv = nil
	m.controls = game.Controls{}
	m.autoLoss = false
	m.ended = false
	m.outcome = ""
	m.feedback = ""
	m.deadline = -1
	m.round = -1
	if m.cfg.RoundSeconds > 0 {
		m.round = m.cfg.RoundSeconds
	}
	m.busy = make(map[game.PersonaID]bool)
	m.input.Reset()
	m.input.Blur()
	m.rationale.Reset()
	m.rationale.Blur()
}

func (m *Model) appendLine(id game.PersonaID, line transcript.Line) {
	if m.conv == nil || m.conv.persona.ID != id {
		return
	}
	m.conv.lines = append(m.conv.lines, line)
	m.renderHistory()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+l":
		m.showLog = !m.showLog
		m.resize()
		m.renderHistory()
		return m, nil
	case "ctrl+r":
		m.dispatch(func(g *game.Game) {
			if err := g.ReplayRequested(); err != nil {
				m.logger.Error("replay failed", "error", err)
			}
		})
		return m, nil
	}

	switch m.screen {
	case screenRoom:
		return m.roomKey(msg)
	case screenFlashback:
		return m.flashbackKey(msg)
	case screenConversation:
		return m.conversationKey(msg)
	case screenVerdict:
		return m.verdictKey(msg)
	}
	return m, nil
}

func (m Model) roomKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	personas := m.cfg.Scenario.Personas
	switch key := msg.String(); key {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		m.selected = (m.selected + len(personas) - 1) % len(personas)
	case "down", "j":
		m.selected = (m.selected + 1) % len(personas)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		i := int(key[0] - '1')
		if i >= len(personas) {
			break
		}
		m.selected = i
		m.click(personas[i].Rectangle)
	case "enter", " ":
		m.click(personas[m.selected].Rectangle)
	case "g":
		if !m.gateOpen {
			m.statusLine = "Question everyone before you make your guess."
			break
		}
		m.dispatch(func(g *game.Game) { g.GuessRequested() })
	}
	return m, nil
}

func (m *Model) click(rect string) {
	m.statusLine = ""
	m.dispatch(func(g *game.Game) { g.RectangleClicked(rect) })
}

func (m Model) flashbackKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", " ":
		if m.flashback != nil {
			// a second click on a seen flashback opens the conversation
			m.click(m.flashback.Rectangle)
		}
	case "esc":
		m.screen = screenRoom
		m.flashback = nil
	}
	return m, nil
}

func (m Model) conversationKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.dispatch(func(g *game.Game) { g.LeaveConversation() })
		m.screen = screenRoom
		m.conv = nil
		m.input.Blur()
		return m, nil
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		m.dispatch(func(g *game.Game) { g.SendMessage(text) })
		return m, nil
	case "tab":
		clues := m.conv.persona.Clues
		if len(clues) == 0 {
			return m, nil
		}
		m.conv.clue = (m.conv.clue + 1) % len(clues)
		id := clues[m.conv.clue].ID
		m.dispatch(func(g *game.Game) { g.InspectClue(id) })
		return m, nil
	case "shift+tab":
		if m.conv.clue >= 0 {
			m.conv.clue = -1
			m.dispatch(func(g *game.Game) { g.InspectClue("") })
		}
		return m, nil
	case "pgup":
		m.history.LineUp(max(m.history.Height/2, 1))
		return m, nil
	case "pgdown":
		m.history.LineDown(max(m.history.Height/2, 1))
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) verdictKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.controls.Submitted {
		switch msg.String() {
		case "r":
			if m.ended {
				m.dispatch(func(g *game.Game) {
					if err := g.ReplayRequested(); err != nil {
						m.logger.Error("replay failed", "error", err)
					}
				})
			}
		case "q", "esc":
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "tab", "shift+tab":
		m.onButtons = !m.onButtons
		if m.onButtons {
			m.rationale.Blur()
			return m, nil
		}
		return m, m.rationale.Focus()
	case "enter":
		m.dispatch(func(g *game.Game) { g.VerdictSubmitted() })
		return m, nil
	}

	if m.onButtons {
		switch msg.String() {
		case "left", "h", "g":
			m.selectVerdict(game.Guilty)
		case "right", "l", "n":
			m.selectVerdict(game.NotGuilty)
		}
		return m, nil
	}

	before := m.rationale.Value()
	var cmd tea.Cmd
	m.rationale, cmd = m.rationale.Update(msg)
	if text := m.rationale.Value(); text != before {
		m.dispatch(func(g *game.Game) { g.RationaleChanged(text) })
	}
	return m, cmd
}

func (m *Model) selectVerdict(v game.Verdict) {
	enabled := m.controls.GuiltyEnabled
	if v == game.NotGuilty {
		enabled = m.controls.NotGuiltyEnabled
	}
	if !enabled {
		return
	}
	m.dispatch(func(g *game.Game) { g.VerdictSelected(v) })
}

func (m *Model) dispatch(fn func(g *game.Game)) {
	if m.cfg.Dispatch == nil || !m.cfg.Dispatch(fn) {
		m.logger.Warn("event loop unavailable, input dropped")
		m.statusLine = "The game has stopped."
	}
}

package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joeycumines/courtroom/internal/countdown"
	"github.com/joeycumines/courtroom/internal/game"
	"github.com/joeycumines/courtroom/internal/transcript"
)

type (
	stateMsg     struct{ state game.State }
	flashbackMsg struct{ persona *game.Persona }
	openMsg      struct {
		persona *game.Persona
		labels  transcript.Labels
		lines   []transcript.Line
	}
	tickMsg struct {
		kind      countdown.Kind
		remaining int
	}
	verdictMsg struct{ autoLoss bool }
	gateMsg    struct {
		open       bool
		questioned map[game.PersonaID]bool
	}
	endedMsg struct {
		outcome  game.Outcome
		feedback string
	}
	lineMsg struct {
		id   game.PersonaID
		line transcript.Line
	}
	convErrorMsg struct {
		id   game.PersonaID
		text string
	}
	busyMsg struct {
		id   game.PersonaID
		busy bool
	}
	controlsMsg struct{ controls game.Controls }
)

// Bridge forwards game signals to a running program. It is called on the
// event loop goroutine and snapshots whatever game state the screen needs,
// so the model never touches the game directly.
type Bridge struct {
	send func(tea.Msg)
	game *game.Game
}

// NewBridge returns a bridge delivering messages with send, normally
// (*tea.Program).Send.
func NewBridge(send func(tea.Msg)) *Bridge {
	return &Bridge{send: send}
}

// Attach sets the game snapshots are taken from. It must be called before
// the game starts.
func (b *Bridge) Attach(g *game.Game) { b.game = g }

func (b *Bridge) StateChanged(s game.State) { b.send(stateMsg{state: s}) }

func (b *Bridge) ShowFlashback(p *game.Persona) { b.send(flashbackMsg{persona: p}) }

func (b *Bridge) OpenConversation(p *game.Persona) {
	msg := openMsg{persona: p, labels: p.Labels}
	if b.game != nil {
		msg.labels = b.game.Labels(p.ID)
		msg.lines = b.game.Transcript(p.ID)
	}
	b.send(msg)
}

func (b *Bridge) TimerTick(kind countdown.Kind, remaining int) {
	b.send(tickMsg{kind: kind, remaining: remaining})
}

func (b *Bridge) NavigateToVerdict(autoLoss bool) { b.send(verdictMsg{autoLoss: autoLoss}) }

func (b *Bridge) GateStateChanged(open bool) {
	msg := gateMsg{open: open}
	if b.game != nil {
		msg.questioned = b.game.Questioned()
	}
	b.send(msg)
}

func (b *Bridge) SessionEnded(outcome game.Outcome, feedback string) {
	b.send(endedMsg{outcome: outcome, feedback: feedback})
}

func (b *Bridge) ConversationLine(id game.PersonaID, line transcript.Line) {
	b.send(lineMsg{id: id, line: line})
	if line.Speaker == transcript.User && b.game != nil {
		// questioning a persona can open the gate only through a player line
		b.send(gateMsg{open: b.game.AllQuestioned(), questioned: b.game.Questioned()})
	}
}

func (b *Bridge) ConversationError(id game.PersonaID, text string) {
	b.send(convErrorMsg{id: id, text: text})
}

func (b *Bridge) ConversationBusy(id game.PersonaID, busy bool) {
	b.send(busyMsg{id: id, busy: busy})
}

func (b *Bridge) VerdictControls(c game.Controls) { b.send(controlsMsg{controls: c}) }

var _ game.Listener = (*Bridge)(nil)

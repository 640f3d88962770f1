package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/joeycumines/courtroom/internal/backend"
	"github.com/joeycumines/courtroom/internal/chatctx"
	"github.com/joeycumines/courtroom/internal/countdown"
	"github.com/joeycumines/courtroom/internal/loop"
	"github.com/joeycumines/courtroom/internal/transcript"
)

const (
	// DefaultRoundSeconds is the interrogation round length.
	DefaultRoundSeconds = 300

	// VerdictKey is the dispatcher key used for scoring requests.
	VerdictKey = "verdict"
)

// Listener receives the game's signals, on the event loop goroutine.
type Listener interface {
	StateChanged(s State)
	ShowFlashback(p *Persona)
	OpenConversation(p *Persona)
	TimerTick(kind countdown.Kind, remaining int)
	NavigateToVerdict(autoLoss bool)
	GateStateChanged(allQuestioned bool)
	SessionEnded(outcome Outcome, feedback string)
	ConversationLine(id PersonaID, line transcript.Line)
	ConversationError(id PersonaID, text string)
	ConversationBusy(id PersonaID, busy bool)
	VerdictControls(c Controls)
}

// NopListener ignores every signal. Embed it to implement a subset.
type NopListener struct{}

func (NopListener) StateChanged(State)                          {}
func (NopListener) ShowFlashback(*Persona)                      {}
func (NopListener) OpenConversation(*Persona)                   {}
func (NopListener) TimerTick(countdown.Kind, int)               {}
func (NopListener) NavigateToVerdict(bool)                      {}
func (NopListener) GateStateChanged(bool)                       {}
func (NopListener) SessionEnded(Outcome, string)                {}
func (NopListener) ConversationLine(PersonaID, transcript.Line) {}
func (NopListener) ConversationError(PersonaID, string)         {}
func (NopListener) ConversationBusy(PersonaID, bool)            {}
func (NopListener) VerdictControls(Controls)                    {}

var _ Listener = NopListener{}

// Options configures a Game.
type Options struct {
	Scenario   *Scenario
	Store      *transcript.Store
	Dispatcher Submitter
	Loop       loop.Loop
	Listener   Listener

	RoundSeconds   int
	VerdictSeconds int

	Rand   *rand.Rand
	Logger *slog.Logger
}

// Game owns one play session at a time and routes UI events through the
// state machine. Every method must be called on the event loop goroutine.
type Game struct {
	opts     Options
	logger   *slog.Logger
	listener Listener

	gate     *Gate
	agg      *chatctx.Aggregator
	round    *countdown.Timer
	deadline *countdown.Timer

	epoch    uint64
	started  bool
	state    State
	session  *Session
	verdict  *VerdictFlow
	convs    map[PersonaID]*Conversation
	current  *Conversation
	gateOpen bool
}

// New validates opts and hydrates the transcripts of every persona.
func New(opts Options) (*Game, error) {
	var errs []error
	if opts.Scenario == nil {
		errs = append(errs, errors.New("nil scenario"))
	} else if err := opts.Scenario.Validate(); err != nil {
		errs = append(errs, err)
	}
	if opts.Store == nil {
		errs = append(errs, errors.New("nil transcript store"))
	}
	if opts.Dispatcher == nil {
		errs = append(errs, errors.New("nil dispatcher"))
	}
	if opts.Loop == nil {
		errs = append(errs, errors.New("nil loop"))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("game: %w", errors.Join(errs...))
	}
	if opts.Listener == nil {
		opts.Listener = NopListener{}
	}
	if opts.RoundSeconds <= 0 {
		opts.RoundSeconds = DefaultRoundSeconds
	}
	if opts.VerdictSeconds <= 0 {
		opts.VerdictSeconds = DefaultVerdictSeconds
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	sc := opts.Scenario
	ids := sc.PersonaIDs()
	roster := make([]chatctx.Participant, len(sc.Personas))
	keys := make([]string, len(ids))
	for i, p := range sc.Personas {
		roster[i] = chatctx.Participant{ID: string(p.ID), Name: p.Name}
		keys[i] = string(p.ID)
	}
	opts.Store.Load(keys...)

	return &Game{
		opts:     opts,
		logger:   opts.Logger,
		listener: opts.Listener,
		gate:     NewGate(opts.Store, ids),
		agg:      chatctx.New(opts.Store, roster),
		round:    countdown.New(countdown.Round, opts.Loop),
		deadline: countdown.New(countdown.Verdict, opts.Loop),
		convs:    make(map[PersonaID]*Conversation),
	}, nil
}

// Start enters the Started state and begins the round. Later calls are
// ignored; use ReplayRequested to play again.
func (g *Game) Start() error {
	if g.started {
		return nil
	}
	g.started = true
	return g.begin()
}

func (g *Game) begin() error {
	s, err := NewSession(g.opts.Scenario, g.opts.Rand, g.epoch)
	if err != nil {
		return err
	}
	g.session = s
	g.logger.Info("session started", "epoch", g.epoch, "target", s.Target())
	g.state = Started
	g.listener.StateChanged(Started)
	g.dispatch(Enter{})
	g.refreshGate(true)
	return nil
}

// RectangleClicked handles a click on a persona's area of the room.
func (g *Game) RectangleClicked(rect string) { g.dispatch(RectangleClick{Rectangle: rect}) }

// GuessRequested asks to move on to the verdict. It is ignored until every
// persona has been questioned.
func (g *Game) GuessRequested() { g.dispatch(GuessRequest{}) }

// SendMessage sends text to the open conversation.
func (g *Game) SendMessage(text string) {
	if g.state != Started || g.current == nil {
		g.logger.Debug("message with no open conversation ignored", "state", g.state)
		return
	}
	if g.current.Send(text) {
		g.refreshGate(false)
	}
}

// InspectClue focuses a clue in the open conversation. An empty id clears
// the focus.
func (g *Game) InspectClue(id string) {
	if g.current == nil {
		return
	}
	g.current.Inspect(id)
}

// LeaveConversation returns to the room.
func (g *Game) LeaveConversation() {
	if g.current != nil {
		g.current.Close()
		g.current = nil
	}
}

// VerdictSelected selects a verdict.
func (g *Game) VerdictSelected(v Verdict) {
	if g.verdict != nil {
		g.verdict.Select(v)
	}
}

// RationaleChanged replaces the rationale text.
func (g *Game) RationaleChanged(text string) {
	if g.verdict != nil {
		g.verdict.SetRationale(text)
	}
}

// VerdictSubmitted submits the verdict.
func (g *Game) VerdictSubmitted() {
	if g.verdict != nil {
		g.verdict.Submit()
	}
}

// ReplayRequested discards the session, every transcript and both
// countdowns, then starts over.
func (g *Game) ReplayRequested() error {
	g.round.Stop()
	g.deadline.Stop()
	if g.verdict != nil {
		g.verdict.Stop()
		g.verdict = nil
	}
	g.LeaveConversation()
	g.convs = make(map[PersonaID]*Conversation)
	if err := g.opts.Store.ClearAll(); err != nil {
		g.logger.Warn("transcript reset incomplete", "error", err)
	}
	g.epoch++
	g.started = true
	return g.begin()
}

// State returns the current state.
func (g *Game) State() State { return g.state }

// Scenario returns the scenario being played.
func (g *Game) Scenario() *Scenario { return g.opts.Scenario }

// Session returns the live session, nil before Start.
func (g *Game) Session() *Session { return g.session }

// AllQuestioned reports the gate.
func (g *Game) AllQuestioned() bool { return g.gate.AllQuestioned() }

// Questioned reports the gate per persona.
func (g *Game) Questioned() map[PersonaID]bool { return g.gate.Questioned() }

// Transcript returns a persona's transcript.
func (g *Game) Transcript(id PersonaID) []transcript.Line {
	return g.opts.Store.Read(string(id))
}

// Labels returns the transcript labels of a persona.
func (g *Game) Labels(id PersonaID) transcript.Labels {
	return g.opts.Store.Labels(string(id))
}

// Current returns the open conversation, if any.
func (g *Game) Current() *Conversation { return g.current }

// RoundRemaining returns the seconds left in the round.
func (g *Game) RoundRemaining() int { return g.round.Remaining() }

// Verdict returns the verdict controls once the verdict phase has begun.
func (g *Game) Verdict() (Controls, bool) {
	if g.verdict == nil {
		return Controls{}, false
	}
	return g.verdict.Snapshot(), true
}

func (g *Game) dispatch(ev Event) {
	if g.session == nil {
		g.logger.Debug("event before start ignored", "event", fmt.Sprintf("%T", ev))
		return
	}
	prev := g.state
	next, effects := Transition(prev, ev, facts{g})
	if next == prev && len(effects) == 0 {
		if _, ok := ev.(GuessRequest); ok && prev == Started {
			g.logger.Debug("guess requested before every persona was questioned")
		} else {
			g.logger.Debug("event ignored", "state", prev, "event", fmt.Sprintf("%T", ev))
		}
		return
	}
	g.setState(next)
	for _, e := range effects {
		g.apply(e)
	}
}

func (g *Game) setState(s State) {
	if g.state == s {
		return
	}
	g.state = s
	g.listener.StateChanged(s)
}

func (g *Game) apply(e Effect) {
	switch e := e.(type) {
	case StartRoundTimer:
		g.round.Start(g.opts.RoundSeconds,
			func(r int) { g.listener.TimerTick(countdown.Round, r) },
			func() { g.dispatch(RoundExpired{}) })
	case StopRoundTimer:
		g.round.Stop()
	case ShowFlashback:
		p, _ := g.opts.Scenario.Persona(e.Persona)
		if g.session.Flashbacks.TryConsume(string(e.Persona)) {
			g.listener.ShowFlashback(p)
		}
	case OpenConversation:
		g.openConversation(e.Persona)
	case NavigateToVerdict:
		g.LeaveConversation()
		g.listener.NavigateToVerdict(e.AutoLoss)
		g.verdict = g.newVerdict()
		g.verdict.Begin(e.AutoLoss)
	default:
		g.logger.Error("unhandled effect", "effect", fmt.Sprintf("%T", e))
	}
}

func (g *Game) openConversation(id PersonaID) {
	p, ok := g.opts.Scenario.Persona(id)
	if !ok {
		return
	}
	if g.current != nil && g.current.Persona().ID != id {
		g.current.Close()
	}
	c, ok := g.convs[id]
	if !ok {
		epoch := g.epoch
		live := func() bool { return g.epoch == epoch }
		c = newConversation(p, g.session, g.opts.Store, g.agg, g.opts.Dispatcher, ConversationHooks{
			Line: func(id PersonaID, l transcript.Line) {
				if live() {
					g.listener.ConversationLine(id, l)
				}
			},
			Error: func(id PersonaID, text string) {
				if live() {
					g.listener.ConversationError(id, text)
				}
			},
			Busy: func(id PersonaID, busy bool) {
				if live() {
					g.listener.ConversationBusy(id, busy)
				}
			},
		}, g.logger)
		g.convs[id] = c
	}
	g.current = c
	g.listener.OpenConversation(p)
	c.Open()
}

func (g *Game) newVerdict() *VerdictFlow {
	epoch := g.epoch
	live := func() bool { return g.epoch == epoch }
	return NewVerdictFlow(VerdictConfig{
		Timer:    g.deadline,
		Seconds:  g.opts.VerdictSeconds,
		Template: g.opts.Scenario.Feedback.Prompt,
		Logger:   g.logger,
		Score: func(prompt string, done func(string, error)) error {
			return g.opts.Dispatcher.Complete(VerdictKey, backend.Request{
				Messages: []backend.Message{{Role: backend.RoleUser, Content: g.agg.Enhance(prompt, "")}},
				Model:    g.opts.Scenario.Feedback.Model,
				Done: func(m backend.Message, err error) {
					if live() {
						done(m.Content, err)
					}
				},
			})
		},
		Hooks: VerdictHooks{
			Tick:     func(r int) { g.listener.TimerTick(countdown.Verdict, r) },
			Controls: g.listener.VerdictControls,
			Concluded: func(o Outcome) {
				g.logger.Info("verdict concluded", "outcome", o)
				g.dispatch(VerdictConcluded{})
			},
			Ended: g.listener.SessionEnded,
		},
	})
}

func (g *Game) refreshGate(force bool) {
	open := g.gate.AllQuestioned()
	if force || open != g.gateOpen {
		g.gateOpen = open
		g.listener.GateStateChanged(open)
	}
}

type facts struct{ g *Game }

func (f facts) AllQuestioned() bool { return f.g.gate.AllQuestioned() }

func (f facts) Resolve(rect string) (PersonaID, bool) {
	p, ok := f.g.opts.Scenario.ByRectangle(rect)
	if !ok {
		return "", false
	}
	return p.ID, true
}

func (f facts) FlashbackSeen(id PersonaID) bool {
	return f.g.session.Flashbacks.Consumed(string(id))
}

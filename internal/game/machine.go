package game

// State is the phase of a session.
type State int

const (
	Started State = iota
	Guessing
	GameOver
)

func (s State) String() string {
	switch s {
	case Started:
		return "started"
	case Guessing:
		return "guessing"
	case GameOver:
		return "game-over"
	default:
		return "unknown"
	}
}

// Event is an input to Transition.
type Event interface{ event() }

type (
	// Enter (re)starts a session in the Started state.
	Enter struct{}
	// RectangleClick is a click on a persona's clickable area.
	RectangleClick struct{ Rectangle string }
	// GuessRequest asks to move on to the verdict.
	GuessRequest struct{}
	// RoundExpired is fired by the round countdown.
	RoundExpired struct{}
	// VerdictConcluded is fired once the verdict has been submitted.
	VerdictConcluded struct{}
)

func (Enter) event()            {}
func (RectangleClick) event()   {}
func (GuessRequest) event()     {}
func (RoundExpired) event()     {}
func (VerdictConcluded) event() {}

// Effect is an action the orchestrator performs after a transition.
type Effect interface{ effect() }

type (
	StartRoundTimer struct{}
	StopRoundTimer  struct{}
	// ShowFlashback plays the persona's one-time flashback. The orchestrator
	// consumes the flag when applying it.
	ShowFlashback struct{ Persona PersonaID }
	// OpenConversation opens the persona's chat view.
	OpenConversation struct{ Persona PersonaID }
	// NavigateToVerdict leaves the room for the verdict screen. AutoLoss is
	// set when the round ran out before every persona was questioned.
	NavigateToVerdict struct{ AutoLoss bool }
)

func (StartRoundTimer) effect()   {}
func (StopRoundTimer) effect()    {}
func (ShowFlashback) effect()     {}
func (OpenConversation) effect()  {}
func (NavigateToVerdict) effect() {}

// Facts is the read-only view of the session a transition may consult.
type Facts interface {
	AllQuestioned() bool
	Resolve(rect string) (PersonaID, bool)
	FlashbackSeen(id PersonaID) bool
}

// Transition computes the next state and the effects to apply. It has no
// side effects. Events a state does not permit leave the state unchanged and
// produce no effects.
func Transition(s State, ev Event, f Facts) (State, []Effect) {
	switch s {
	case Started:
		switch ev := ev.(type) {
		case Enter:
			return Started, []Effect{StartRoundTimer{}}
		case RectangleClick:
			id, ok := f.Resolve(ev.Rectangle)
			if !ok {
				return Started, nil
			}
			if !f.FlashbackSeen(id) {
				return Started, []Effect{ShowFlashback{Persona: id}}
			}
			return Started, []Effect{OpenConversation{Persona: id}}
		case GuessRequest:
			if !f.AllQuestioned() {
				return Started, nil
			}
			return Guessing, []Effect{StopRoundTimer{}, NavigateToVerdict{}}
		case RoundExpired:
			return Guessing, []Effect{NavigateToVerdict{AutoLoss: !f.AllQuestioned()}}
		}
	case Guessing:
		if _, ok := ev.(VerdictConcluded); ok {
			return GameOver, nil
		}
	}
	return s, nil
}

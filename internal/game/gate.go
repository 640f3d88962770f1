package game

// TranscriptReader is the part of the transcript store the gate needs.
type TranscriptReader interface {
	HasUserLine(persona string) bool
}

// Gate decides whether the verdict phase may be entered early: every
// required persona must have at least one line from the player. It is
// recomputed on every call.
type Gate struct {
	store    TranscriptReader
	required []PersonaID
}

// NewGate creates a gate over the required personas.
func NewGate(store TranscriptReader, required []PersonaID) *Gate {
	return &Gate{store: store, required: append([]PersonaID(nil), required...)}
}

// AllQuestioned reports whether every required persona has been questioned.
func (g *Gate) AllQuestioned() bool {
	for _, id := range g.required {
		if !g.store.HasUserLine(string(id)) {
			return false
		}
	}
	return true
}

// Questioned reports, per required persona, whether it has been questioned.
func (g *Gate) Questioned() map[PersonaID]bool {
	out := make(map[PersonaID]bool, len(g.required))
	for _, id := range g.required {
		out[id] = g.store.HasUserLine(string(id))
	}
	return out
}

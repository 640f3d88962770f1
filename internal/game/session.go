package game

import (
	"fmt"
	"math/rand/v2"
)

// Session is the per-play context: the secret assignment and every one-shot
// flag. Replay discards it and builds a new one.
type Session struct {
	Epoch uint64

	roles  map[PersonaID]string
	target PersonaID

	Flashbacks    OneShot
	Introductions OneShot
	Clues         OneShot
}

// NewSession assigns each persona a distinct role drawn from the scenario and
// picks the target persona uniformly.
func NewSession(sc *Scenario, rng *rand.Rand, epoch uint64) (*Session, error) {
	roles := distinct(sc.Roles)
	if len(roles) < len(sc.Personas) {
		return nil, fmt.Errorf("%w: %d roles for %d personas", ErrInvalidScenario, len(roles), len(sc.Personas))
	}
	if len(sc.Personas) == 0 {
		return nil, fmt.Errorf("%w: no personas", ErrInvalidScenario)
	}
	perm := rng.Perm(len(roles))
	s := &Session{
		Epoch:  epoch,
		roles:  make(map[PersonaID]string, len(sc.Personas)),
		target: sc.Personas[rng.IntN(len(sc.Personas))].ID,
	}
	for i, p := range sc.Personas {
		s.roles[p.ID] = roles[perm[i]]
	}
	return s, nil
}

// Role returns the role assigned to persona.
func (s *Session) Role(id PersonaID) string { return s.roles[id] }

// Target returns the persona secretly selected for this session. Scoring does
// not consult it.
func (s *Session) Target() PersonaID { return s.target }

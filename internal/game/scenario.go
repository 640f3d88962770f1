// Package game implements the interrogation round and verdict phase of a
// courtroom session: the state machine, the gate that unlocks the verdict,
// the verdict flow and the per-persona conversations, tied together by an
// orchestrator that runs on a single event loop.
package game

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joeycumines/courtroom/internal/backend"
	"github.com/joeycumines/courtroom/internal/storage"
	"github.com/joeycumines/courtroom/internal/transcript"
	"gopkg.in/yaml.v3"
)

//go:embed scenario.yaml
var defaultScenario []byte

// PersonaID identifies one of the three questionable participants.
type PersonaID string

// Clue is an inspectable object in a persona's scene.
type Clue struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
	// Nudge is sent to the backend as a system message the first time the
	// clue is inspected.
	Nudge string `yaml:"nudge"`
	// Reply is appended verbatim as a persona line the first time the clue
	// is inspected. {title} expands to Title.
	Reply string `yaml:"reply"`
}

// Persona is a participant the player can question.
type Persona struct {
	ID        PersonaID         `yaml:"id"`
	Name      string            `yaml:"name"`
	Rectangle string            `yaml:"rectangle"`
	Kind      string            `yaml:"kind"`
	Labels    transcript.Labels `yaml:"labels"`
	Flashback string            `yaml:"flashback"`

	// SystemPrompt opens every request. {role} expands to the role assigned
	// for the session.
	SystemPrompt  string       `yaml:"systemPrompt"`
	IntroPrompt   string       `yaml:"introPrompt"`
	IntroRole     backend.Role `yaml:"introRole"`
	IntroFallback string       `yaml:"introFallback"`

	// FocusContext appends what the player is currently looking at to every
	// outgoing player message.
	FocusContext bool `yaml:"focusContext"`

	Model backend.ModelConfig `yaml:"model"`
	Clues []Clue              `yaml:"clues"`
}

// Clue returns the clue with the given id.
func (p *Persona) Clue(id string) (*Clue, bool) {
	for i := range p.Clues {
		if p.Clues[i].ID == id {
			return &p.Clues[i], true
		}
	}
	return nil, false
}

// Feedback configures the verdict scoring request.
type Feedback struct {
	// Prompt is the scoring template; {playerVerdict} and {playerRationale}
	// are substituted.
	Prompt string              `yaml:"prompt"`
	Model  backend.ModelConfig `yaml:"model"`
}

// Scenario is the static content of a game.
type Scenario struct {
	Title    string    `yaml:"title"`
	Briefing string    `yaml:"briefing"`
	Roles    []string  `yaml:"roles"`
	Personas []Persona `yaml:"personas"`
	Feedback Feedback  `yaml:"feedback"`
}

// RequiredPersonas is the number of personas a scenario must define.
const RequiredPersonas = 3

// ErrInvalidScenario wraps every validation failure.
var ErrInvalidScenario = errors.New("invalid scenario")

// DefaultScenario returns the built-in scenario.
func DefaultScenario() *Scenario {
	sc, err := ParseScenario(defaultScenario)
	if err != nil {
		panic(fmt.Sprintf("embedded scenario: %v", err))
	}
	return sc
}

// LoadScenario reads and validates a scenario file. An empty path returns the
// built-in scenario.
func LoadScenario(path string) (*Scenario, error) {
	if path == "" {
		return DefaultScenario(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	for i := range sc.Personas {
		if sc.Personas[i].IntroRole == "" {
			sc.Personas[i].IntroRole = backend.RoleSystem
		}
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the structural rules a playable scenario must satisfy.
func (sc *Scenario) Validate() error {
	var errs []error
	if len(sc.Personas) != RequiredPersonas {
		errs = append(errs, fmt.Errorf("want %d personas, got %d", RequiredPersonas, len(sc.Personas)))
	}
	ids := make(map[PersonaID]bool)
	rects := make(map[string]bool)
	for _, p := range sc.Personas {
		switch {
		case p.ID == "":
			errs = append(errs, errors.New("persona with empty id"))
		case p.ID == VerdictKey:
			errs = append(errs, fmt.Errorf("persona id %q is reserved", p.ID))
		case storage.ValidatePersona(string(p.ID)) != nil:
			errs = append(errs, fmt.Errorf("persona id %q is not a valid file name", p.ID))
		case ids[p.ID]:
			errs = append(errs, fmt.Errorf("duplicate persona id %q", p.ID))
		}
		ids[p.ID] = true
		switch {
		case p.Rectangle == "":
			errs = append(errs, fmt.Errorf("persona %q: empty rectangle", p.ID))
		case rects[p.Rectangle]:
			errs = append(errs, fmt.Errorf("duplicate rectangle %q", p.Rectangle))
		}
		rects[p.Rectangle] = true
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("persona %q: empty name", p.ID))
		}
		switch p.IntroRole {
		case backend.RoleSystem, backend.RoleUser:
		default:
			errs = append(errs, fmt.Errorf("persona %q: introRole must be system or user", p.ID))
		}
		clues := make(map[string]bool)
		for _, c := range p.Clues {
			if c.ID == "" || clues[c.ID] {
				errs = append(errs, fmt.Errorf("persona %q: empty or duplicate clue id %q", p.ID, c.ID))
			}
			clues[c.ID] = true
		}
	}
	if n := len(distinct(sc.Roles)); n < RequiredPersonas {
		errs = append(errs, fmt.Errorf("want at least %d distinct roles, got %d", RequiredPersonas, n))
	}
	for _, ph := range []string{placeholderVerdict, placeholderRationale} {
		if !strings.Contains(sc.Feedback.Prompt, ph) {
			errs = append(errs, fmt.Errorf("feedback prompt missing %s", ph))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidScenario, errors.Join(errs...))
}

// Persona returns the persona with the given id.
func (sc *Scenario) Persona(id PersonaID) (*Persona, bool) {
	for i := range sc.Personas {
		if sc.Personas[i].ID == id {
			return &sc.Personas[i], true
		}
	}
	return nil, false
}

// ByRectangle resolves a clickable rectangle to its persona.
func (sc *Scenario) ByRectangle(rect string) (*Persona, bool) {
	for i := range sc.Personas {
		if sc.Personas[i].Rectangle == rect {
			return &sc.Personas[i], true
		}
	}
	return nil, false
}

// PersonaIDs returns the persona ids in scenario order.
func (sc *Scenario) PersonaIDs() []PersonaID {
	out := make([]PersonaID, len(sc.Personas))
	for i, p := range sc.Personas {
		out[i] = p.ID
	}
	return out
}

func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0:0]
	for _, v := range values {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
